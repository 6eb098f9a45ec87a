package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/manyblack/studio/internal/logging"
	"github.com/manyblack/studio/internal/metrics"
	"github.com/manyblack/studio/pkg/catalog"
	"github.com/manyblack/studio/pkg/domain"
)

const subscriberBuffer = 16

// StreamManager fans catalog events out to SSE subscribers.
//
// Publish never blocks: a subscriber whose buffer is full misses the event.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[chan catalog.Event]domain.CatalogName // "" subscribes to every catalog
	logger      *slog.Logger
	metrics     *metrics.Metrics
	done        chan struct{}
	closeOnce   sync.Once
}

// NewStreamManager creates an empty manager. m may be nil.
func NewStreamManager(logger *slog.Logger, m *metrics.Metrics) *StreamManager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &StreamManager{
		subscribers: make(map[chan catalog.Event]domain.CatalogName),
		logger:      logger,
		metrics:     m,
		done:        make(chan struct{}),
	}
}

// Close ends every open stream and turns new subscribers away. http.Server.Shutdown waits
// for open streams to return, so call Close first.
func (sm *StreamManager) Close() {
	sm.closeOnce.Do(func() { close(sm.done) })
}

// Subscribe registers a subscriber for one catalog, or all of them when name is empty.
// The returned func unregisters it and closes the channel.
func (sm *StreamManager) Subscribe(name domain.CatalogName) (<-chan catalog.Event, func()) {
	ch := make(chan catalog.Event, subscriberBuffer)
	sm.mu.Lock()
	sm.subscribers[ch] = name
	sm.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			sm.mu.Lock()
			delete(sm.subscribers, ch)
			sm.mu.Unlock()
			close(ch)
		})
	}
}

// Subscribers returns the number of open subscriptions.
func (sm *StreamManager) Subscribers() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers)
}

// Publish delivers ev to matching subscribers. It has the catalog.Notifier signature.
func (sm *StreamManager) Publish(ev catalog.Event) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch, name := range sm.subscribers {
		if name != "" && name != ev.Catalog {
			continue
		}
		select {
		case ch <- ev:
			sm.metrics.Streamed()
		default:
			sm.logger.Warn("SSE: client buffer full, dropping event", "catalog", ev.Catalog, "op", ev.Op)
		}
	}
}

// ServeHTTP streams events as "event: catalog" messages until the client goes away.
func (sm *StreamManager) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	name := domain.CatalogName(r.URL.Query().Get("catalog"))
	if name != "" && name != domain.Automations && name != domain.Procedures {
		writeProblem(w, http.StatusBadRequest, fmt.Sprintf("unknown catalog %q", name), nil)
		return
	}

	select {
	case <-sm.done:
		writeProblem(w, http.StatusServiceUnavailable, "server is shutting down", nil)
		return
	default:
	}

	events, cancel := sm.Subscribe(name)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()
	sm.logger.Info("SSE: subscriber connected", "catalog", name)

	for {
		select {
		case <-r.Context().Done():
			sm.logger.Info("SSE: subscriber disconnected", "catalog", name)
			return
		case <-sm.done:
			fmt.Fprintf(w, "event: shutdown\ndata: server stopping\n\n")
			flusher.Flush()
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				sm.logger.Error("SSE: failed to encode event", "error", err)
				continue
			}
			fmt.Fprintf(w, "event: catalog\ndata: %s\n\n", data)
			flusher.Flush()
		}
	}
}
