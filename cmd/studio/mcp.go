package main

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/manyblack/studio"
	"github.com/manyblack/studio/pkg/adapters/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Exposes the catalogs as MCP tools (list, get, check, add, delete, stats) and resources
so AI agents can read and edit them under the same validation as the editors.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		transport, _ := cmd.Flags().GetString("transport")

		st, err := openCatalogs()
		if err != nil {
			return err
		}
		defer st.Close()
		srv := mcp.NewServer(st.Catalogs, studio.Version, app.logger)

		switch transport {
		case "stdio":
			// Logs go to stderr, stdout carries JSON-RPC.
			app.logger.Info("starting MCP server (stdio)")
			return srv.ServeStdio()
		case "sse":
			sc := commandContext(cmd)
			defer sc.Cancel()
			app.logger.Info("starting MCP server (SSE)", "port", app.cfg.MCP.Port)
			if err := srv.ServeSSE(sc, app.cfg.MCP.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			app.logger.Info("MCP server stopped gracefully")
			return nil
		default:
			return fmt.Errorf("unknown transport %q, supported: stdio, sse", transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().Int("mcp-port", 8090, "Port to listen on (only for SSE)")
}
