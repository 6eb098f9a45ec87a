// Package client is a typed HTTP client for the backend API the Studio administers.
//
// Every method maps one endpoint. Failed calls return *APIError carrying the status and
// the backend's detail text; errors.Is maps 404, 409 and 422 onto domain.ErrNotFound,
// domain.ErrDuplicateID and domain.ErrInvalid. Nothing is retried automatically.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/manyblack/studio/internal/logging"
	"github.com/manyblack/studio/pkg/domain"
	"github.com/manyblack/studio/pkg/schema"
)

// DefaultTimeout bounds a single request. Streams do not use this client's timeout.
const DefaultTimeout = 60 * time.Second

// APIError is a non-2xx answer from the backend.
type APIError struct {
	Status int
	Detail string
	// Issues holds field errors when the server reported a validation failure.
	Issues []*schema.ValidationError
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("api error %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("api error %d: %s", e.Status, e.Detail)
}

// Is maps statuses onto the domain sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case domain.ErrNotFound:
		return e.Status == http.StatusNotFound
	case domain.ErrDuplicateID:
		return e.Status == http.StatusConflict
	case domain.ErrInvalid:
		return e.Status == http.StatusUnprocessableEntity
	}
	return false
}

// Report returns the validation issues as a schema.Report.
func (e *APIError) Report() schema.Report {
	return schema.Report{Issues: e.Issues}
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// Client talks to one backend.
type Client struct {
	base      *url.URL
	http      *http.Client
	logger    *slog.Logger
	userAgent string
}

// New creates a client for the backend at baseURL, e.g. "http://localhost:8000".
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid api url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid api url %q: scheme must be http or https", baseURL)
	}
	c := &Client{
		base:      u,
		http:      &http.Client{Timeout: DefaultTimeout},
		logger:    logging.NewNop(),
		userAgent: "studio",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the backend address.
func (c *Client) BaseURL() string { return c.base.String() }

// URL resolves an API path and query against the base address.
func (c *Client) URL(path string, query url.Values) string {
	u := *c.base
	u.Path = strings.TrimRight(c.base.Path, "/") + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// Do sends a JSON request and decodes a JSON answer into out. in and out may be nil.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.URL(path, query), body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	c.logger.DebugContext(ctx, "api call", "method", method, "path", path, "status", resp.StatusCode, "elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to decode %s %s: %w", method, path, err)
	}
	return nil
}

// errorBody covers FastAPI ({"detail": "..."} or {"detail": [{loc,msg}]}) and the Studio
// server ({"detail": "...", "issues": [...]}).
type errorBody struct {
	Detail json.RawMessage           `json:"detail"`
	Issues []*schema.ValidationError `json:"issues"`
}

type fastAPIIssue struct {
	Loc []any  `json:"loc"`
	Msg string `json:"msg"`
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var body errorBody
	if err := json.Unmarshal(raw, &body); err != nil {
		apiErr.Detail = strings.TrimSpace(string(raw))
		return apiErr
	}
	apiErr.Issues = body.Issues

	var text string
	var list []fastAPIIssue
	switch {
	case json.Unmarshal(body.Detail, &text) == nil:
		apiErr.Detail = text
	case json.Unmarshal(body.Detail, &list) == nil:
		msgs := make([]string, 0, len(list))
		for _, issue := range list {
			key := joinLoc(issue.Loc)
			msgs = append(msgs, key+": "+issue.Msg)
			apiErr.Issues = append(apiErr.Issues, &schema.ValidationError{Key: key, Reason: issue.Msg, Severity: schema.SeverityError})
		}
		apiErr.Detail = strings.Join(msgs, "; ")
	default:
		apiErr.Detail = strings.TrimSpace(string(raw))
	}
	return apiErr
}

// joinLoc turns ["body","output","buttons",0,"url"] into "output.buttons[0].url".
func joinLoc(loc []any) string {
	var b strings.Builder
	for i, part := range loc {
		switch p := part.(type) {
		case float64:
			fmt.Fprintf(&b, "[%d]", int(p))
		case string:
			if i == 0 && (p == "body" || p == "query" || p == "path") {
				continue
			}
			if b.Len() > 0 {
				b.WriteByte('.')
			}
			b.WriteString(p)
		}
	}
	return b.String()
}

// Health is the answer of GET /health.
type Health struct {
	Status string `json:"status"`
	Env    string `json:"env"`
}

// Healthy reports whether the backend said so.
func (h Health) Healthy() bool { return h.Status == "healthy" || h.Status == "ok" }

// Health checks the backend.
func (c *Client) Health(ctx context.Context) (Health, error) {
	var h Health
	err := c.Do(ctx, http.MethodGet, "/health", nil, nil, &h)
	return h, err
}

// Simulate asks the backend for the plan it would execute for env.
func (c *Client) Simulate(ctx context.Context, env domain.Env) (domain.Plan, error) {
	var plan domain.Plan
	err := c.Do(ctx, http.MethodPost, "/simulate", nil, env, &plan)
	return plan, err
}
