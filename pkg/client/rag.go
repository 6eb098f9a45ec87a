package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/manyblack/studio/pkg/domain"
	"github.com/manyblack/studio/pkg/schema"
)

// KnowledgeBase is the Markdown document the RAG pipeline retrieves from.
type KnowledgeBase struct {
	Content       string  `json:"content"`
	SectionsCount *int    `json:"sections_count,omitempty"`
	LastModified  *string `json:"last_modified,omitempty"`
}

// Prompt is the RAG prompt template.
type Prompt struct {
	Template     string   `json:"template"`
	Placeholders []string `json:"placeholders"`
	IsValid      bool     `json:"is_valid"`
}

// Model is a generation model the backend can use.
type Model struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Provider    string `json:"provider"`
	Available   bool   `json:"available"`
	Description string `json:"description"`
}

// RAGSimulation is the input of a RAG simulation.
type RAGSimulation struct {
	Message    string               `json:"message"`
	LeadID     *int                 `json:"lead_id,omitempty"`
	Parameters domain.RAGParameters `json:"parameters"`
	SafeMode   bool                 `json:"safe_mode"`
}

// TopNResult is one retrieved knowledge-base chunk.
type TopNResult struct {
	Source      string  `json:"source"`
	Score       float64 `json:"score"`
	Snippet     string  `json:"snippet"`
	FullContent *string `json:"full_content,omitempty"`
}

// RAGResult is the outcome of a RAG simulation.
type RAGResult struct {
	Response         string         `json:"response"`
	Classification   string         `json:"classification"`
	DecisionID       string         `json:"decision_id"`
	TopNResults      []TopNResult   `json:"top_n_results"`
	ProcessingTimeMS int            `json:"processing_time_ms"`
	Stages           map[string]any `json:"stages"`
}

// RAGLeadMessage is one line of a test lead's conversation. Role is "Lead" or "GPT".
type RAGLeadMessage struct {
	Role      string `json:"role"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// RAGLead is a scripted lead used to give simulations a conversation history.
type RAGLead struct {
	ID          *int             `json:"id,omitempty"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Messages    []RAGLeadMessage `json:"messages"`
	CreatedAt   *string          `json:"created_at,omitempty"`
}

// NewRAGLead is the input of CreateRAGLead.
type NewRAGLead struct {
	Name            string           `json:"name"`
	Description     string           `json:"description"`
	InitialMessages []RAGLeadMessage `json:"initial_messages"`
}

// KnowledgeBase fetches the knowledge base.
func (c *Client) KnowledgeBase(ctx context.Context) (KnowledgeBase, error) {
	var kb KnowledgeBase
	err := c.Do(ctx, http.MethodGet, "/api/rag/knowledge-base", nil, nil, &kb)
	return kb, err
}

// UpdateKnowledgeBase replaces the knowledge base.
func (c *Client) UpdateKnowledgeBase(ctx context.Context, content string) error {
	return c.Do(ctx, http.MethodPut, "/api/rag/knowledge-base", nil, KnowledgeBase{Content: content}, nil)
}

// Prompt fetches the prompt template.
func (c *Client) Prompt(ctx context.Context) (Prompt, error) {
	var p Prompt
	err := c.Do(ctx, http.MethodGet, "/api/rag/prompt", nil, nil, &p)
	return p, err
}

// UpdatePrompt replaces the prompt template.
func (c *Client) UpdatePrompt(ctx context.Context, template string) error {
	return c.Do(ctx, http.MethodPut, "/api/rag/prompt", nil, Prompt{Template: template, IsValid: true}, nil)
}

// Models lists the generation models.
func (c *Client) Models(ctx context.Context) ([]Model, error) {
	var models []Model
	err := c.Do(ctx, http.MethodGet, "/api/rag/models", nil, nil, &models)
	return models, err
}

// Presets fetches the backend's parameter presets.
func (c *Client) Presets(ctx context.Context) (map[string]domain.RAGParameters, error) {
	var presets map[string]domain.RAGParameters
	err := c.Do(ctx, http.MethodGet, "/api/rag/presets", nil, nil, &presets)
	return presets, err
}

// SimulateRAG runs a RAG simulation. Parameters are validated before sending.
func (c *Client) SimulateRAG(ctx context.Context, in RAGSimulation) (RAGResult, error) {
	if err := schema.ValidateRAGParameters(in.Parameters).Err(); err != nil {
		return RAGResult{}, err
	}
	var res RAGResult
	err := c.Do(ctx, http.MethodPost, "/api/rag/simulate", nil, in, &res)
	return res, err
}

// StreamURL is the server-sent event endpoint streaming the stages of a RAG simulation.
func (c *Client) StreamURL(message string, safeMode bool, leadID *int) string {
	q := url.Values{}
	q.Set("message", message)
	q.Set("safe_mode", strconv.FormatBool(safeMode))
	if leadID != nil {
		q.Set("lead_id", strconv.Itoa(*leadID))
	}
	return c.URL("/api/rag/simulate/stream", q)
}

// RAGLeads lists the test leads.
func (c *Client) RAGLeads(ctx context.Context) ([]RAGLead, error) {
	var leads []RAGLead
	err := c.Do(ctx, http.MethodGet, "/api/rag/leads", nil, nil, &leads)
	return leads, err
}

// GetRAGLead fetches a test lead.
func (c *Client) GetRAGLead(ctx context.Context, id int) (RAGLead, error) {
	var lead RAGLead
	err := c.Do(ctx, http.MethodGet, fmt.Sprintf("/api/rag/leads/%d", id), nil, nil, &lead)
	return lead, err
}

// CreateRAGLead creates a test lead.
func (c *Client) CreateRAGLead(ctx context.Context, in NewRAGLead) (RAGLead, error) {
	if in.InitialMessages == nil {
		in.InitialMessages = []RAGLeadMessage{}
	}
	var lead RAGLead
	err := c.Do(ctx, http.MethodPost, "/api/rag/leads", nil, in, &lead)
	return lead, err
}

// DeleteRAGLead removes a test lead.
func (c *Client) DeleteRAGLead(ctx context.Context, id int) error {
	return c.Do(ctx, http.MethodDelete, fmt.Sprintf("/api/rag/leads/%d", id), nil, nil, nil)
}

// AddRAGLeadMessage appends a message to a test lead and returns the new message count.
func (c *Client) AddRAGLeadMessage(ctx context.Context, id int, msg RAGLeadMessage) (int, error) {
	var out struct {
		TotalMessages int `json:"total_messages"`
	}
	err := c.Do(ctx, http.MethodPost, fmt.Sprintf("/api/rag/leads/%d/messages", id), nil, msg, &out)
	return out.TotalMessages, err
}
