package client

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/manyblack/studio/pkg/domain"
	"github.com/manyblack/studio/pkg/schema"
)

// EquipeSimulation is a staff question run through the RAG pipeline.
type EquipeSimulation struct {
	Message       string               `json:"message"`
	Parameters    domain.RAGParameters `json:"parameters"`
	SafeMode      bool                 `json:"safe_mode"`
	SessionID     *string              `json:"session_id,omitempty"`
	FuncionarioID *string              `json:"funcionario_id,omitempty"`
}

// EquipeResult is the answer to a staff question.
type EquipeResult struct {
	Response       string           `json:"response"`
	KBHits         []map[string]any `json:"kb_hits"`
	ParametersUsed map[string]any   `json:"parameters_used"`
	ExecutionTime  float64          `json:"execution_time"`
	SessionID      string           `json:"session_id"`
	InteractionID  int              `json:"interaction_id"`
	CreatedAt      string           `json:"created_at"`
}

// Consulta is a recorded staff question and the generated answer.
type Consulta struct {
	ID            int            `json:"id"`
	Pergunta      string         `json:"pergunta_funcionario"`
	Resposta      string         `json:"resposta_gerada"`
	ParametrosRAG map[string]any `json:"parametros_rag"`
	FontesKB      map[string]any `json:"fontes_kb"`
	FuncionarioID *string        `json:"funcionario_id"`
	SessaoID      *string        `json:"sessao_id"`
	CriadoEm      string         `json:"criado_em"`
}

// BulkDeleteResult reports a bulk deletion.
type BulkDeleteResult struct {
	Message      string `json:"message"`
	DeletedIDs   []int  `json:"deleted_ids"`
	DeletedCount int    `json:"deleted_count"`
}

// FineTuningExport is an OpenAI fine-tuning JSONL export of selected consultas.
type FineTuningExport struct {
	Message      string `json:"message"`
	Filename     string `json:"filename"`
	Content      string `json:"content"`
	Format       string `json:"format"`
	TotalSamples int    `json:"total_samples"`
	ExportedIDs  []int  `json:"exported_ids"`
}

// ChatMessage is one turn of a fine-tuning sample.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// FineTuningLine is one JSONL sample: the staff question then the answer.
type FineTuningLine struct {
	Messages []ChatMessage `json:"messages"`
}

// SimulateEquipe answers a staff question.
func (c *Client) SimulateEquipe(ctx context.Context, in EquipeSimulation) (EquipeResult, error) {
	if err := schema.ValidateRAGParameters(in.Parameters).Err(); err != nil {
		return EquipeResult{}, err
	}
	var res EquipeResult
	err := c.Do(ctx, http.MethodPost, "/api/equipe/simulate", nil, in, &res)
	return res, err
}

// History lists recorded consultas.
func (c *Client) History(ctx context.Context) ([]Consulta, error) {
	var out []Consulta
	err := c.Do(ctx, http.MethodGet, "/api/equipe/consultas", nil, nil, &out)
	return out, err
}

// UpdateConsulta corrects a recorded question and answer.
func (c *Client) UpdateConsulta(ctx context.Context, id int, pergunta, resposta string) error {
	if strings.TrimSpace(pergunta) == "" || strings.TrimSpace(resposta) == "" {
		return fmt.Errorf("%w: pergunta and resposta are required", domain.ErrInvalid)
	}
	q := url.Values{}
	q.Set("pergunta", pergunta)
	q.Set("resposta", resposta)
	return c.Do(ctx, http.MethodPut, fmt.Sprintf("/api/equipe/consultas/%d", id), q, nil, nil)
}

func idsQuery(ids []int) (url.Values, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: at least one id is required", domain.ErrInvalid)
	}
	q := url.Values{}
	for _, id := range ids {
		q.Add("interaction_ids", strconv.Itoa(id))
	}
	return q, nil
}

// DeleteConsultas removes several consultas.
func (c *Client) DeleteConsultas(ctx context.Context, ids []int) (BulkDeleteResult, error) {
	var out BulkDeleteResult
	q, err := idsQuery(ids)
	if err != nil {
		return out, err
	}
	err = c.Do(ctx, http.MethodDelete, "/api/equipe/consultas/bulk", q, nil, &out)
	return out, err
}

// ExportFineTuning exports consultas as fine-tuning JSONL.
func (c *Client) ExportFineTuning(ctx context.Context, ids []int) (FineTuningExport, error) {
	var out FineTuningExport
	q, err := idsQuery(ids)
	if err != nil {
		return out, err
	}
	err = c.Do(ctx, http.MethodPost, "/api/equipe/consultas/export-finetuning", q, nil, &out)
	return out, err
}

// FineTuningLines parses JSONL content into samples. Blank lines are skipped; every other
// line must hold a user message followed by an assistant message.
func FineTuningLines(content string) ([]FineTuningLine, error) {
	var out []FineTuningLine
	s := bufio.NewScanner(strings.NewReader(content))
	s.Buffer(make([]byte, 0, 4096), 1<<20)
	n := 0
	for s.Scan() {
		n++
		line := strings.TrimSpace(s.Text())
		if line == "" {
			continue
		}
		var ft FineTuningLine
		if err := json.Unmarshal([]byte(line), &ft); err != nil {
			return nil, fmt.Errorf("line %d: %w", n, err)
		}
		if err := ft.check(); err != nil {
			return nil, fmt.Errorf("line %d: %w", n, err)
		}
		out = append(out, ft)
	}
	return out, s.Err()
}

func (l FineTuningLine) check() error {
	if len(l.Messages) != 2 || l.Messages[0].Role != "user" || l.Messages[1].Role != "assistant" {
		return errors.New("expected a user message followed by an assistant message")
	}
	return nil
}

// Question returns the staff question of the sample.
func (l FineTuningLine) Question() string { return l.Messages[0].Content }

// Answer returns the answer of the sample.
func (l FineTuningLine) Answer() string { return l.Messages[1].Content }
