// Package simulator previews the backend's decision for a message without deciding
// anything locally. A Simulator is the state of one simulator screen: the last request,
// its plan or error, and whether a run is in flight.
package simulator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/manyblack/studio/internal/logging"
	"github.com/manyblack/studio/pkg/domain"
	"github.com/manyblack/studio/pkg/schema"
)

// Decider is the backend's simulate endpoint.
type Decider interface {
	Simulate(ctx context.Context, env domain.Env) (domain.Plan, error)
}

// Request is what the user filled in on the simulator screen.
type Request struct {
	Message  string
	Snapshot domain.Snapshot
	Apply    bool
	Lead     domain.Lead
	// Window holds earlier messages; Message is appended after them.
	Window []domain.Message
}

// Env builds the decision input for the request.
func (r Request) Env() domain.Env {
	lead := r.Lead
	if lead.Lang == "" {
		lead.Lang = domain.DefaultLang
	}
	window := make([]domain.Message, 0, len(r.Window)+1)
	window = append(window, r.Window...)
	window = append(window, domain.Message{ID: "sim-" + uuid.NewString()[:8], Text: r.Message})
	return domain.Env{
		Lead:           lead,
		Snapshot:       r.Snapshot,
		MessagesWindow: window,
		Apply:          r.Apply,
	}
}

// Validate checks the request before anything is sent.
func (r Request) Validate() error {
	report := schema.ValidateSnapshot(r.Snapshot)
	if strings.TrimSpace(r.Message) == "" {
		var msg schema.Report
		msg.Issues = append(msg.Issues, &schema.ValidationError{Key: "message", Reason: "required", Severity: schema.SeverityError})
		msg.Merge(report)
		report = msg
	}
	return report.Err()
}

// SafetyNotice explains what a run with the given apply flag may change.
func SafetyNotice(apply bool) string {
	if apply {
		return "apply=true: the backend may persist facts, send messages and advance procedures for this lead."
	}
	return "apply=false: read-only preview, the backend must not change the lead's snapshot or send anything."
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Simulator) { s.logger = l }
}

// Simulator is the state of one simulator screen.
type Simulator struct {
	backend Decider
	logger  *slog.Logger

	mu   sync.Mutex
	busy bool
	last *Request
	plan *domain.Plan
	err  error
}

// New creates a simulator calling backend.
func New(backend Decider, opts ...Option) *Simulator {
	s := &Simulator{backend: backend, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run validates req and sends it. Invalid requests are never sent and do not replace the
// last plan. While a run is in flight other calls fail with domain.ErrInFlight.
func (s *Simulator) Run(ctx context.Context, req Request) (domain.Plan, error) {
	if err := req.Validate(); err != nil {
		return domain.Plan{}, err
	}

	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return domain.Plan{}, domain.ErrInFlight
	}
	s.busy = true
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "simulating", "apply", req.Apply, "window", len(req.Window)+1)
	plan, err := s.backend.Simulate(ctx, req.Env())

	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false
	r := req
	s.last = &r
	if err != nil {
		s.plan, s.err = nil, err
		s.logger.WarnContext(ctx, "simulation failed", "error", err)
		return domain.Plan{}, fmt.Errorf("simulate: %w", err)
	}
	s.plan, s.err = &plan, nil
	return plan, nil
}

// Retry re-sends the last request. It is only ever called by the user.
func (s *Simulator) Retry(ctx context.Context) (domain.Plan, error) {
	s.mu.Lock()
	last := s.last
	s.mu.Unlock()
	if last == nil {
		return domain.Plan{}, errors.New("nothing to retry")
	}
	return s.Run(ctx, *last)
}

// Busy reports whether a run is in flight; the run control is disabled meanwhile.
func (s *Simulator) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// Last returns the last plan, or nil if the last run failed or none happened.
func (s *Simulator) Last() *domain.Plan {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.plan == nil {
		return nil
	}
	p := *s.plan
	return &p
}

// Err returns the error of the last run.
func (s *Simulator) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// SafetyNotice explains the apply flag of the last request, read-only when none was sent.
func (s *Simulator) SafetyNotice() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SafetyNotice(s.last != nil && s.last.Apply)
}
