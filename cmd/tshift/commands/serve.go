package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/testshift/testshift/pkg/api"
	"github.com/testshift/testshift/pkg/telemetry"
)

func newServeCommand() *cobra.Command {
	var listenAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the run-history HTTP API",
		Long: `Serve a read-only HTTP API over the local run-history database.

Endpoints:
  GET /healthz
  GET /metrics                     (when metrics are enabled)
  GET /api/runs
  GET /api/runs/{id}
  GET /api/runs/{id}/errors
  GET /api/runs/{id}/mappings`,
		Example: `  # Serve on the default address
  tshift serve

  # Serve on a specific port
  tshift serve --listen :8080`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log, err := newLogger(cfg)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			store, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			srv := &api.Server{Store: store}
			if cfg.Telemetry.MetricsEnabled {
				metrics, err := telemetry.NewMetrics(telemetry.MetricsConfig{
					Enabled:   true,
					Namespace: "testshift",
				})
				if err != nil {
					return err
				}
				srv.Metrics = metrics
			}

			httpServer := &http.Server{
				Addr:              listenAddr,
				Handler:           api.NewRouter(srv),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				log.WithField("addr", listenAddr).Infof("Serving run-history API")
				errCh <- httpServer.ListenAndServe()
			}()

			select {
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := httpServer.Shutdown(shutdownCtx); err != nil {
					return fmt.Errorf("server shutdown failed: %w", err)
				}
				return nil
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			}
		},
	}

	cmd.Flags().StringVar(&listenAddr, "listen", ":8080", "listen address for the HTTP API")

	return cmd
}
