package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/use-agent/jobscout/api"
	"github.com/use-agent/jobscout/cache"
	"github.com/use-agent/jobscout/notify"
	"github.com/use-agent/jobscout/scraper"
	"github.com/use-agent/jobscout/sink"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the run API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	cfg := a.cfg
	slog.Info("jobscout starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"engine", cfg.Browser.Engine,
		"sink", cfg.Output.Sink,
		"api_keys", len(cfg.Server.APIKeys),
	)
	if len(cfg.Server.APIKeys) == 0 {
		slog.Warn("no API keys configured, /runs is open to any caller")
	}

	// ── 1. Pipeline ─────────────────────────────────────────────────
	eng, err := newEngine(cfg.Browser.Engine)
	if err != nil {
		return err
	}
	snk, err := sink.New(cfg)
	if err != nil {
		return err
	}
	defer snk.Close()

	var opts []scraper.Option
	if n, err := notify.FromConfig(cfg.Notify); err != nil {
		slog.Warn("notifications disabled", "error", err)
	} else if n != nil {
		opts = append(opts, scraper.WithNotifier(n))
	}
	runner, err := scraper.NewRunner(cfg, eng, snk, opts...)
	if err != nil {
		return err
	}

	// ── 2. Run history ──────────────────────────────────────────────
	store := cache.New(cfg.Server.RunHistory, time.Hour)
	defer store.Close()

	// ── 3. Router and server ────────────────────────────────────────
	router := api.NewRouter(runner, eng.Name(), cfg, store, time.Now())
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// ── 4. Graceful shutdown ────────────────────────────────────────
	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP server: %w", err)
		}
	case <-sigCtx.Done():
		slog.Info("shutdown signal received")
	}

	// In-flight runs are bounded by the navigation and readiness timeouts.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Navigator.NavigationTimeout+cfg.Navigator.ReadinessTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}
	slog.Info("jobscout stopped")
	return nil
}
