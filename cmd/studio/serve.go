package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/manyblack/studio"
	"github.com/manyblack/studio/internal/metrics"
	studiohttp "github.com/manyblack/studio/pkg/adapters/http"
	"github.com/manyblack/studio/pkg/catalog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the catalog API",
	Long: `Serves both catalogs over HTTP (see /openapi.yaml and /swagger) together with a
Server-Sent Events feed of catalog changes at /api/catalog/events. Prometheus metrics are
served on a separate port unless --metrics-port is 0.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sc := commandContext(cmd)
		defer sc.Cancel()

		m := metrics.New()
		streams := studiohttp.NewStreamManager(app.logger, m)
		st, err := openCatalogs(catalog.WithMetrics(m), catalog.WithNotifier(streams.Publish))
		if err != nil {
			return err
		}
		defer st.Close()

		handler, err := studiohttp.NewHandler(st.Catalogs,
			studiohttp.WithLogger(app.logger),
			studiohttp.WithMetrics(m),
			studiohttp.WithStreams(streams),
			studiohttp.WithVersion(studio.Version),
		)
		if err != nil {
			return err
		}

		servers := []*http.Server{{
			Addr:              fmt.Sprintf(":%d", app.cfg.HTTP.Port),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}}
		if app.cfg.Metrics.Port > 0 {
			servers = append(servers, &http.Server{
				Addr:              fmt.Sprintf(":%d", app.cfg.Metrics.Port),
				Handler:           m.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			})
		}

		app.out.Banner()
		g, gctx := errgroup.WithContext(sc)
		for _, srv := range servers {
			g.Go(func() error {
				app.logger.Info("listening", "addr", srv.Addr, "store", app.cfg.Store, "env", app.cfg.Env)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		}
		g.Go(func() error {
			<-gctx.Done()
			if sig := sc.Signal(); sig != nil {
				app.logger.Info("shutting down", "signal", sig.String())
			}
			streams.Close()
			ctx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
			defer cancel()
			var errs []error
			for _, srv := range servers {
				if err := srv.Shutdown(ctx); err != nil {
					errs = append(errs, fmt.Errorf("graceful shutdown of %s did not complete: %w", srv.Addr, err))
					_ = srv.Close()
				}
			}
			return errors.Join(errs...)
		})
		if err := g.Wait(); err != nil {
			return err
		}
		app.logger.Info("server stopped gracefully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	serveCmd.Flags().Int("metrics-port", 9090, "Port serving /metrics; 0 disables it")
}
