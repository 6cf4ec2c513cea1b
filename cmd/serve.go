package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/lessonforge/internal/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the JSON HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := openApp(ctx, true)
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := a.Close(); closeErr != nil {
				logger.Error("failed to close app", "error", closeErr)
			}
		}()

		logger.Info("backend selected", "candidate", a.client.Active())

		a.manager.StartPurgeRoutine(cfg.Session.PurgeInterval)
		logger.Info("purge routine started",
			"interval", cfg.Session.PurgeInterval,
			"retention", cfg.Session.Retention,
			"idle_ttl", cfg.Session.IdleTTL)

		h := api.NewHandler(a.registry, a.manager, a.reports, logger)
		srv := &http.Server{
			Addr:        cfg.Server.Addr,
			Handler:     api.NewRouter(h),
			ReadTimeout: cfg.Server.ReadTimeout,
			IdleTimeout: 120 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			logger.Info("server listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()

		select {
		case <-ctx.Done():
		case err := <-errCh:
			return fmt.Errorf("server failed: %w", err)
		}
		stop()

		logger.Info("shutting down gracefully")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}

		logger.Info("server stopped")
		return nil
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides server.addr)")
	_ = vp.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
}
