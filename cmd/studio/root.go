package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/manyblack/studio"
	"github.com/manyblack/studio/internal/cli"
	"github.com/manyblack/studio/internal/config"
	"github.com/manyblack/studio/pkg/catalog"
	"github.com/manyblack/studio/pkg/client"
	"github.com/spf13/cobra"
)

// session is what PersistentPreRunE resolves for the command being run.
type session struct {
	cfg      *config.Config
	logger   *slog.Logger
	out      *cli.Printer
	closeLog func() error
}

var app session

var rootCmd = &cobra.Command{
	Use:   "studio",
	Short: "Studio manages the automation and procedure catalogs of the decision backend",
	Long: `Studio edits the policy catalogs (automations and procedures) the decision backend
reads, previews backend decisions for a message, and follows the backend's simulation logs.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configFile, _ := cmd.Flags().GetString("config")
		envFile, _ := cmd.Flags().GetString("env-file")
		cfg, err := config.Load(config.Options{
			ConfigFile: configFile,
			EnvFile:    envFile,
			Flags:      cmd.Flags(),
		})
		if err != nil {
			return err
		}
		logger, closeLog, err := cli.NewLogger(cfg.Log)
		if err != nil {
			return err
		}
		slog.SetDefault(logger)
		app = session{cfg: cfg, logger: logger, out: cli.NewPrinter(cmd.OutOrStdout()), closeLog: closeLog}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if app.closeLog != nil {
			return app.closeLog()
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		cli.Fatal(err)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "YAML config file")
	pf.String("env-file", ".env", "dotenv file loaded before reading STUDIO_* variables")
	pf.String("env", "dev", "Deployment environment (dev, staging, prod)")
	pf.String("api-url", "http://localhost:8000", "Base URL of the decision backend")
	pf.String("studio-url", "http://localhost:8080", "Base URL of the Studio serving the remote store")
	pf.String("store", config.StoreFile, "Catalog store: file, memory, redis or remote; memory forgets everything on exit")
	pf.String("policies-dir", "policies", "Directory holding catalog.yml and procedures.yml")
	pf.String("backup-dir", "backup", "Directory receiving catalog backups")
	pf.String("redis-addr", "localhost:6379", "Redis address for the redis store")
	pf.String("redis-prefix", "studio:", "Key prefix for the redis store")
	pf.String("log-level", "info", "Log level: debug, info, warn or error")
	pf.String("log-file", "", "Also write JSON logs to this file")
	pf.Bool("json", false, "Print machine-readable JSON instead of tables")
	pf.BoolP("yes", "y", false, "Skip confirmation prompts of destructive commands")
}

// openCatalogs opens both catalogs on the configured store. Callers must Close the result.
func openCatalogs(opts ...catalog.Option) (*cli.Studio, error) {
	return cli.OpenCatalogs(app.cfg, app.logger, opts...)
}

// backend returns a client for the decision backend.
func backend() (*client.Client, error) {
	return client.New(app.cfg.APIURL,
		client.WithLogger(app.logger),
		client.WithUserAgent("studio-cli/"+studio.Version))
}

// asJSON reports whether --json was given.
func asJSON(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

// printOr prints v as JSON under --json and runs table otherwise.
func printOr(cmd *cobra.Command, v any, table func()) error {
	if asJSON(cmd) {
		return app.out.JSON(v)
	}
	table()
	return nil
}

// readInput reads a file, or stdin when path is "-".
func readInput(path string) ([]byte, error) {
	if path == "" {
		return nil, fmt.Errorf("--file is required")
	}
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

// commandContext returns a context cancelled on SIGINT or SIGTERM.
func commandContext(cmd *cobra.Command) *cli.SignalContext {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return cli.NewSignalContext(ctx)
}
