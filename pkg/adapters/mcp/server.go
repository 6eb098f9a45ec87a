// Package mcp exposes the Studio catalogs as Model Context Protocol tools and resources.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/manyblack/studio/internal/logging"
	"github.com/manyblack/studio/pkg/catalog"
	"github.com/manyblack/studio/pkg/domain"
	"github.com/manyblack/studio/pkg/schema"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// StatsResponse is the structured output of the catalog_stats tool.
type StatsResponse struct {
	Overview    catalog.Overview       `json:"overview" jsonschema_description:"Record counts of both catalogs"`
	Automations catalog.Stats          `json:"automations" jsonschema_description:"Automation statistics"`
	Procedures  catalog.ProcedureStats `json:"procedures" jsonschema_description:"Procedure statistics"`
}

// WriteResponse is the outcome of a tool that changes or checks a record.
type WriteResponse struct {
	ID     string                    `json:"id"`
	OK     bool                      `json:"ok"`
	Issues []*schema.ValidationError `json:"issues"`
}

// Server exposes the catalogs over MCP.
type Server struct {
	catalogs  *catalog.Catalogs
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP Server instance.
func NewServer(cats *catalog.Catalogs, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		catalogs:  cats,
		logger:    logger,
		mcpServer: server.NewMCPServer("studio-mcp", version),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves MCP over SSE on port until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(fmt.Sprintf("http://localhost:%d", port)))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))
	httpServer := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

var catalogArg = mcp.WithString("catalog",
	mcp.Required(),
	mcp.Enum(string(domain.Automations), string(domain.Procedures)),
	mcp.Description("Catalog to operate on"),
)

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("list_records",
		mcp.WithDescription("List every record of a catalog in insertion order."),
		catalogArg,
	), s.handleList)

	s.mcpServer.AddTool(mcp.NewTool("get_record",
		mcp.WithDescription("Get one record by id."),
		catalogArg,
		mcp.WithString("id", mcp.Required(), mcp.Description("Record id")),
	), s.handleGet)

	s.mcpServer.AddTool(mcp.NewTool("check_record",
		mcp.WithDescription("Validate a record without storing it. Returns errors and warnings by field."),
		catalogArg,
		mcp.WithObject("record", mcp.Required(), mcp.Description("The record, using the catalog's JSON field names")),
	), s.handleWrite(false))

	s.mcpServer.AddTool(mcp.NewTool("add_record",
		mcp.WithDescription("Validate and add a record. Nothing is stored when validation fails."),
		catalogArg,
		mcp.WithObject("record", mcp.Required(), mcp.Description("The record, using the catalog's JSON field names")),
	), s.handleWrite(true))

	s.mcpServer.AddTool(mcp.NewTool("delete_record",
		mcp.WithDescription("Delete a record by id. Warns when procedures still reference a deleted automation."),
		catalogArg,
		mcp.WithString("id", mcp.Required(), mcp.Description("Record id")),
	), s.handleDelete)

	s.mcpServer.AddTool(mcp.NewTool("catalog_stats",
		mcp.WithDescription("Summarize both catalogs."),
		mcp.WithOutputSchema[StatsResponse](),
	), mcp.NewStructuredToolHandler(s.handleStats))
}

func catalogName(request mcp.CallToolRequest) (domain.CatalogName, error) {
	name, err := request.RequireString("catalog")
	if err != nil {
		return "", err
	}
	switch n := domain.CatalogName(name); n {
	case domain.Automations, domain.Procedures:
		return n, nil
	}
	return "", fmt.Errorf("unknown catalog %q", name)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}

func toolError(err error) *mcp.CallToolResult {
	if errors.Is(err, domain.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("%v (use list_records to see the ids)", err))
	}
	return mcp.NewToolResultError(err.Error())
}

func (s *Server) handleList(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := catalogName(request)
	if err != nil {
		return toolError(err), nil
	}
	var recs any
	if name == domain.Automations {
		recs, err = s.catalogs.Automations.List(ctx)
	} else {
		recs, err = s.catalogs.Procedures.List(ctx)
	}
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(recs)
}

func (s *Server) handleGet(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := catalogName(request)
	if err != nil {
		return toolError(err), nil
	}
	id, err := request.RequireString("id")
	if err != nil {
		return toolError(err), nil
	}
	var rec any
	if name == domain.Automations {
		rec, err = s.catalogs.Automations.Get(ctx, id)
	} else {
		rec, err = s.catalogs.Procedures.Get(ctx, id)
	}
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(rec)
}

func (s *Server) handleWrite(store bool) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := catalogName(request)
		if err != nil {
			return toolError(err), nil
		}
		raw := request.GetArguments()["record"]

		var resp WriteResponse
		if name == domain.Automations {
			resp, err = write(ctx, s.catalogs.Automations.Service, raw, store)
		} else {
			resp, err = write(ctx, s.catalogs.Procedures.Service, raw, store)
		}
		if err != nil && !errors.Is(err, domain.ErrInvalid) && !errors.Is(err, domain.ErrDuplicateID) {
			return toolError(err), nil
		}
		result, rerr := jsonResult(resp)
		if rerr != nil {
			return nil, rerr
		}
		result.IsError = !resp.OK
		return result, nil
	}
}

func write[T domain.Record](ctx context.Context, svc *catalog.Service[T], raw any, store bool) (WriteResponse, error) {
	rec, err := decodeRecord[T](raw)
	if err != nil {
		issue := &schema.ValidationError{Key: "record", Reason: err.Error(), Severity: schema.SeverityError}
		return WriteResponse{Issues: []*schema.ValidationError{issue}}, err
	}
	var report schema.Report
	if store {
		report, err = svc.Add(ctx, rec)
	} else {
		report, err = svc.Check(ctx, rec)
	}
	if err == nil {
		err = report.Err()
	}
	return WriteResponse{ID: rec.RecordID(), OK: report.OK() && err == nil, Issues: report.Issues}, err
}

func (s *Server) handleDelete(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := catalogName(request)
	if err != nil {
		return toolError(err), nil
	}
	id, err := request.RequireString("id")
	if err != nil {
		return toolError(err), nil
	}
	var report schema.Report
	if name == domain.Automations {
		report, err = s.catalogs.Automations.Delete(ctx, id)
	} else {
		report, err = s.catalogs.Procedures.Delete(ctx, id)
	}
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(WriteResponse{ID: id, OK: true, Issues: report.Issues})
}

func (s *Server) handleStats(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (StatsResponse, error) {
	var resp StatsResponse
	var err error
	if resp.Overview, err = s.catalogs.Overview(ctx); err != nil {
		return resp, err
	}
	if resp.Automations, err = s.catalogs.Automations.Stats(ctx); err != nil {
		return resp, err
	}
	resp.Procedures, err = s.catalogs.Procedures.Stats(ctx)
	return resp, err
}

func (s *Server) registerResources() {
	for _, name := range []domain.CatalogName{domain.Automations, domain.Procedures} {
		uri := "studio://catalog/" + string(name)
		s.mcpServer.AddResource(mcp.NewResource(uri, "Catalog "+string(name)+" as a YAML policy document",
			mcp.WithMIMEType("application/yaml"),
		), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
			var data []byte
			var err error
			if name == domain.Automations {
				data, err = s.catalogs.Automations.Export(ctx)
			} else {
				data, err = s.catalogs.Procedures.Export(ctx)
			}
			if err != nil {
				return nil, fmt.Errorf("failed to export %s: %w", name, err)
			}
			return []mcp.ResourceContents{
				mcp.TextResourceContents{URI: uri, MIMEType: "application/yaml", Text: string(data)},
			}, nil
		})
	}
}
