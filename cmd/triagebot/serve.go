package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	sqliteadapter "github.com/ericfisherdev/triagebot/internal/adapter/driven/sqlite"
	httphandler "github.com/ericfisherdev/triagebot/internal/adapter/driving/http"
)

func (c *cli) newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the run history as a JSON API",
		Long: `Serve the run ledger read-only over HTTP on listen_addr:

  GET /api/v1/health
  GET /api/v1/runs?policy=&limit=
  GET /api/v1/runs/{id}`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := c.loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.DBPath == "" {
				return errors.New("run ledger disabled: db_path is empty")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			db, err := sqliteadapter.Open(cfg.DBPath)
			if err != nil {
				return err
			}
			defer closeQuietly("database", db.Close)
			slog.Info("database opened", "path", cfg.DBPath)

			h := httphandler.NewHandler(sqliteadapter.NewRunRepo(db), slog.Default())
			srv := &http.Server{
				Addr:              cfg.ListenAddr,
				Handler:           httphandler.NewServeMux(h, slog.Default()),
				ReadHeaderTimeout: 5 * time.Second,
				ReadTimeout:       10 * time.Second,
				WriteTimeout:      30 * time.Second,
				IdleTimeout:       120 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				slog.Info("http server starting", "addr", cfg.ListenAddr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}
			slog.Info("shutting down")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				slog.Error("http server shutdown error", "error", err)
			}

			slog.Info("shutdown complete")
			return nil
		},
	}
}
