// Package http exposes the Studio catalogs over HTTP and provides a catalog port that talks
// to a remote Studio.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/manyblack/studio/internal/logging"
	"github.com/manyblack/studio/internal/metrics"
	"github.com/manyblack/studio/pkg/catalog"
	"github.com/manyblack/studio/pkg/domain"
	"github.com/manyblack/studio/pkg/schema"
)

const maxBodySize = 4 << 20

// Option configures the handler.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithMetrics records request durations.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithStreams serves catalog events from sm. Pass sm.Publish to the catalogs as their
// notifier so changes reach subscribers.
func WithStreams(sm *StreamManager) Option {
	return func(s *Server) { s.streams = sm }
}

// WithVersion sets the version reported by /info.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// Server serves both catalogs of a Studio instance.
type Server struct {
	catalogs *catalog.Catalogs
	spec     *openapi3.T
	streams  *StreamManager
	logger   *slog.Logger
	metrics  *metrics.Metrics
	version  string
}

// NewHandler creates the HTTP handler for cats.
func NewHandler(cats *catalog.Catalogs, opts ...Option) (http.Handler, error) {
	spec, err := LoadSpec(context.Background())
	if err != nil {
		return nil, err
	}
	s := &Server{
		catalogs: cats,
		spec:     spec,
		logger:   logging.NewNop(),
		version:  "dev",
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.streams == nil {
		s.streams = NewStreamManager(s.logger, s.metrics)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer, s.observe)

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		_, _ = w.Write(rawSpec)
	})
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(swaggerHTML))
	})
	r.Get("/health", s.getHealth)
	r.Get("/info", s.getInfo)

	r.Route("/api/catalog", func(r chi.Router) {
		r.Get("/stats", s.getOverview)
		r.Post("/reset", s.resetAll)
		r.Post("/save", saveHandler(s, cats.Automations.Service))
		r.Post("/save-procedures", saveHandler(s, cats.Procedures.Service))
		r.Get("/events", s.streams.ServeHTTP)

		r.Route("/"+string(domain.Automations), func(r chi.Router) {
			r.Get("/stats", s.statsHandler(func(ctx context.Context) (any, error) {
				return cats.Automations.Stats(ctx)
			}))
			mountRecords(r, s, cats.Automations.Service)
		})
		r.Route("/"+string(domain.Procedures), func(r chi.Router) {
			r.Get("/stats", s.statsHandler(func(ctx context.Context) (any, error) {
				return cats.Procedures.Stats(ctx)
			}))
			mountRecords(r, s, cats.Procedures.Service)
		})
	})

	return enableCORS(r), nil
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// observe logs and times every request under its route pattern.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		s.metrics.Request(r.Method, route, status, time.Since(start))
		s.logger.Debug("request", "method", r.Method, "route", route, "status", status, "request_id", r.Header.Get("X-Request-ID"))
	})
}

const swaggerHTML = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>Studio API Documentation</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui.css" />
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui-bundle.js" crossorigin></script>
<script>
    window.onload = () => {
    window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui',
    });
    };
</script>
</body>
</html>
`

func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) getInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if s.spec.Info != nil {
		apiVersion = s.spec.Info.Version
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"app":         "studio-http",
		"version":     strings.TrimSpace(s.version),
		"api_version": apiVersion,
	})
}

func (s *Server) getOverview(w http.ResponseWriter, r *http.Request) {
	ov, err := s.catalogs.Overview(r.Context())
	if err != nil {
		s.fail(w, r, err, schema.Report{})
		return
	}
	writeJSON(w, http.StatusOK, ov)
}

func (s *Server) statsHandler(stats func(context.Context) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := stats(r.Context())
		if err != nil {
			s.fail(w, r, err, schema.Report{})
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

type resetResponse struct {
	Success      bool            `json:"success"`
	BackupPath   string          `json:"backup_path"`
	ResetResults catalog.Backups `json:"reset_results"`
	Message      string          `json:"message"`
}

func (s *Server) resetAll(w http.ResponseWriter, r *http.Request) {
	backups, err := s.catalogs.ResetAll(r.Context())
	if err != nil {
		s.fail(w, r, err, schema.Report{})
		return
	}
	writeJSON(w, http.StatusOK, resetResponse{
		Success:      true,
		BackupPath:   backupPath(backups.Automations),
		ResetResults: backups,
		Message: fmt.Sprintf("Reset %d automations and %d procedures",
			backups.Automations.Count, backups.Procedures.Count),
	})
}

type document struct {
	Content string `json:"content"`
}

type saveResponse struct {
	Success    bool                      `json:"success"`
	BackupPath string                    `json:"backup_path"`
	Message    string                    `json:"message"`
	Issues     []*schema.ValidationError `json:"issues,omitempty"`
}

func saveHandler[T domain.Record](s *Server, svc *catalog.Service[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := readBody(r)
		if err == nil {
			err = checkShape(s.spec, "Document", data)
		}
		if err != nil {
			s.fail(w, r, err, schema.Report{})
			return
		}
		var doc document
		if err := json.Unmarshal(data, &doc); err != nil {
			s.fail(w, r, shapeError("body", err), schema.Report{})
			return
		}

		backup, report, err := svc.Import(r.Context(), []byte(doc.Content))
		if err != nil {
			s.fail(w, r, err, report)
			return
		}
		writeJSON(w, http.StatusOK, saveResponse{
			Success:    true,
			BackupPath: backupPath(backup),
			Message:    fmt.Sprintf("%s saved", svc.Name()),
			Issues:     report.Warnings(),
		})
	}
}

func backupPath(b domain.Backup) string {
	if b.Location != "" {
		return b.Location
	}
	return b.ID
}

// mountRecords registers the CRUD and backup routes of one catalog.
func mountRecords[T domain.Record](r chi.Router, s *Server, svc *catalog.Service[T]) {
	decode := func(r *http.Request) (T, error) {
		var rec T
		data, err := readBody(r)
		if err != nil {
			return rec, err
		}
		if err := checkShape(s.spec, "Record", data); err != nil {
			return rec, err
		}
		if err := json.Unmarshal(data, &rec); err != nil {
			return rec, shapeError("body", err)
		}
		return rec, nil
	}

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		recs, err := svc.List(r.Context())
		if err != nil {
			s.fail(w, r, err, schema.Report{})
			return
		}
		if recs == nil {
			recs = []T{}
		}
		writeJSON(w, http.StatusOK, recs)
	})

	r.Post("/", func(w http.ResponseWriter, r *http.Request) {
		rec, err := decode(r)
		if err != nil {
			s.fail(w, r, err, schema.Report{})
			return
		}
		report, err := svc.Add(r.Context(), rec)
		if err != nil {
			s.fail(w, r, err, report)
			return
		}
		writeJSON(w, http.StatusCreated, report)
	})

	r.Post("/check", func(w http.ResponseWriter, r *http.Request) {
		rec, err := decode(r)
		if err != nil {
			s.fail(w, r, err, schema.Report{})
			return
		}
		report, err := svc.Check(r.Context(), rec)
		if err != nil {
			s.fail(w, r, err, schema.Report{})
			return
		}
		writeJSON(w, http.StatusOK, report)
	})

	r.Post("/reset", func(w http.ResponseWriter, r *http.Request) {
		backup, err := svc.Reset(r.Context())
		if err != nil {
			s.fail(w, r, err, schema.Report{})
			return
		}
		writeJSON(w, http.StatusOK, backup)
	})

	r.Get("/backups", func(w http.ResponseWriter, r *http.Request) {
		backups, err := svc.Backups(r.Context())
		if err != nil {
			s.fail(w, r, err, schema.Report{})
			return
		}
		if backups == nil {
			backups = []domain.Backup{}
		}
		writeJSON(w, http.StatusOK, backups)
	})

	r.Post("/backups/{backupID}/restore", func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Restore(r.Context(), chi.URLParam(r, "backupID")); err != nil {
			s.fail(w, r, err, schema.Report{})
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	r.Get("/export", func(w http.ResponseWriter, r *http.Request) {
		data, err := svc.Export(r.Context())
		if err != nil {
			s.fail(w, r, err, schema.Report{})
			return
		}
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(data)
	})

	r.Get("/{id}", func(w http.ResponseWriter, r *http.Request) {
		rec, err := svc.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			s.fail(w, r, err, schema.Report{})
			return
		}
		writeJSON(w, http.StatusOK, rec)
	})

	r.Put("/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		rec, err := decode(r)
		if err != nil {
			s.fail(w, r, err, schema.Report{})
			return
		}
		report, err := svc.Update(r.Context(), id, rec)
		if err != nil {
			s.fail(w, r, err, report)
			return
		}
		writeJSON(w, http.StatusOK, report)
	})

	r.Delete("/{id}", func(w http.ResponseWriter, r *http.Request) {
		report, err := svc.Delete(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			s.fail(w, r, err, schema.Report{})
			return
		}
		writeJSON(w, http.StatusOK, report)
	})
}

func readBody(r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxBodySize {
		return nil, shapeError("body", errors.New("request body too large"))
	}
	return data, nil
}

type problem struct {
	Detail string                    `json:"detail"`
	Issues []*schema.ValidationError `json:"issues,omitempty"`
}

// fail maps err onto a status. report carries the issues of a failed validation.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, report schema.Report) {
	switch {
	case errors.Is(err, domain.ErrInvalid):
		issues := report.Issues
		var aggr *schema.AggregateError
		if len(issues) == 0 && errors.As(err, &aggr) {
			for _, e := range aggr.Errors {
				var ve *schema.ValidationError
				if errors.As(e, &ve) {
					issues = append(issues, ve)
				}
			}
		}
		writeProblem(w, http.StatusUnprocessableEntity, err.Error(), issues)
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, domain.ErrDuplicateID):
		writeProblem(w, http.StatusConflict, err.Error(), nil)
	default:
		s.logger.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeProblem(w, http.StatusInternalServerError, err.Error(), nil)
	}
}

func writeProblem(w http.ResponseWriter, status int, detail string, issues []*schema.ValidationError) {
	writeJSON(w, status, problem{Detail: detail, Issues: issues})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
