package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/manyblack/studio/internal/logging"
	"github.com/manyblack/studio/pkg/domain"
)

// DefaultTimeout is how long a stream may stay open.
const DefaultTimeout = 30 * time.Second

// ErrTimeout is reported by Err when the stream was closed by its timeout.
var ErrTimeout = errors.New("log stream timed out")

// Option configures a Viewer.
type Option func(*Viewer)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(v *Viewer) {
		if d > 0 {
			v.timeout = d
		}
	}
}

// WithHTTPClient sets the client used to connect.
func WithHTTPClient(c *http.Client) Option {
	return func(v *Viewer) { v.client = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(v *Viewer) { v.logger = l }
}

// WithHandler is called from the reader goroutine for every event that is appended.
func WithHandler(fn func(domain.LogEvent)) Option {
	return func(v *Viewer) { v.handler = fn }
}

// Viewer holds one log stream and the events received on it. A Viewer is single use:
// Open it once, read it, Close it.
type Viewer struct {
	client  *http.Client
	timeout time.Duration
	logger  *slog.Logger
	handler func(domain.LogEvent)

	mu      sync.Mutex
	opened  bool
	events  []domain.LogEvent
	paused  bool
	dropped int
	err     error
	cancel  context.CancelFunc

	done      chan struct{}
	closeOnce sync.Once
}

// NewViewer creates an unopened viewer.
func NewViewer(opts ...Option) *Viewer {
	v := &Viewer{
		// One long-lived connection per viewer; nothing to keep alive afterwards
		client:  &http.Client{Transport: &http.Transport{DisableKeepAlives: true}},
		timeout: DefaultTimeout,
		logger:  logging.NewNop(),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Open connects to url and starts reading in the background. It returns an error, and the
// viewer is closed, if the connection fails or the server does not answer 200.
func (v *Viewer) Open(ctx context.Context, url string) error {
	v.mu.Lock()
	if v.opened {
		v.mu.Unlock()
		return errors.New("stream already opened")
	}
	v.opened = true
	ctx, cancel := context.WithTimeoutCause(ctx, v.timeout, ErrTimeout)
	v.cancel = cancel
	v.mu.Unlock()

	requestID := uuid.NewString()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return v.fail(err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("X-Request-ID", requestID)

	resp, err := v.client.Do(req)
	if err != nil {
		return v.fail(v.cause(ctx, err))
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return v.fail(fmt.Errorf("stream returned %s: %s", resp.Status, body))
	}

	v.logger.Debug("log stream opened", "url", url, "request_id", requestID)
	go v.read(ctx, resp.Body)
	return nil
}

// cause prefers the context's cause (ErrTimeout) over the transport error it produced.
func (v *Viewer) cause(ctx context.Context, err error) error {
	if c := context.Cause(ctx); c != nil {
		return c
	}
	return err
}

func (v *Viewer) fail(err error) error {
	v.finish(err)
	return err
}

func (v *Viewer) finish(err error) {
	v.closeOnce.Do(func() {
		v.mu.Lock()
		if v.err == nil {
			v.err = err
		}
		cancel := v.cancel
		v.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		close(v.done)
	})
}

func (v *Viewer) read(ctx context.Context, body io.ReadCloser) {
	defer body.Close()

	dec := NewDecoder(body)
	for {
		ev, err := dec.Next()
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				v.finish(nil)
			case ctx.Err() != nil:
				if errors.Is(context.Cause(ctx), ErrTimeout) {
					v.finish(ErrTimeout)
				} else {
					v.finish(nil)
				}
			default:
				v.finish(fmt.Errorf("log stream transport: %w", err))
			}
			return
		}
		if ev.Type != "" && ev.Type != "message" {
			continue
		}

		var le domain.LogEvent
		if err := json.Unmarshal([]byte(ev.Data), &le); err != nil {
			v.finish(fmt.Errorf("log stream decode: %w", err))
			return
		}
		if v.append(le) && v.handler != nil {
			v.handler(le)
		}
	}
}

// append reports whether the event was kept.
func (v *Viewer) append(le domain.LogEvent) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.paused {
		v.dropped++
		return false
	}
	v.events = append(v.events, le)
	return true
}

// Pause stops appending events; events received while paused are dropped.
// The connection stays open.
func (v *Viewer) Pause() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.paused = true
}

// Resume appends events again.
func (v *Viewer) Resume() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.paused = false
}

// Paused reports whether the viewer is paused.
func (v *Viewer) Paused() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.paused
}

// Dropped counts events discarded while paused.
func (v *Viewer) Dropped() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.dropped
}

// Events returns a copy of the events received so far, in arrival order.
func (v *Viewer) Events() []domain.LogEvent {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]domain.LogEvent, len(v.events))
	copy(out, v.events)
	return out
}

// Done is closed once the stream has ended for any reason.
func (v *Viewer) Done() <-chan struct{} {
	return v.done
}

// Err returns why the stream ended: ErrTimeout, a transport or decode error, or nil when
// the server ended it or Close was called.
func (v *Viewer) Err() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.err
}

// Close ends the stream and waits for the reader to exit. Safe to call more than once
// and on a viewer that was never opened.
func (v *Viewer) Close() error {
	v.mu.Lock()
	cancel := v.cancel
	opened := v.opened
	v.mu.Unlock()

	if !opened {
		v.finish(nil)
		return nil
	}
	if cancel != nil {
		cancel()
	}
	<-v.done
	return nil
}
