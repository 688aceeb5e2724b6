package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/lukemcguire/linkwalker/api"
	"github.com/lukemcguire/linkwalker/config"
	"github.com/lukemcguire/linkwalker/crawler"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve link checks over HTTP",
		Long: `Serve starts the link checker API.

Endpoints:
  GET  /             liveness text
  GET  /api/health   JSON health status
  POST /api/check    {"url": "...", "maxDepth": 2, "strategy": "static"}

The listen port comes from --port, the PORT environment variable or the
configuration file, in that order.`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}
	cmd.Flags().IntP("port", "p", 0, "Listen port (default from config or PORT)")
	return cmd
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd, false)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port, _ = cmd.Flags().GetInt("port")
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := newHTTPServer(ctx, cfg, logger)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("link checker API listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// newHTTPServer wires the API for cfg. Request contexts derive from ctx, so
// canceling it aborts in-flight crawls.
func newHTTPServer(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*http.Server, error) {
	strategies, err := buildStrategies(cfg, logger, nil)
	if err != nil {
		return nil, err
	}

	opts := api.Options{
		DefaultStrategy: cfg.Crawl.Strategy,
		DefaultMaxDepth: cfg.Crawl.DefaultMaxDepth,
		MaxDepthLimit:   cfg.Crawl.MaxDepthLimit,
		MaxBodyBytes:    cfg.Server.MaxBodyBytes,
		Logger:          logger,
	}
	if cfg.Server.MemoryLimitMB > 0 {
		watcher := crawler.NewMemoryWatcher(cfg.Server.MemoryLimitMB)
		watcher.SetThrottleCallback(func(level crawler.ThrottleLevel) {
			logger.Warn().Stringer("level", level).Int64("limit_mb", cfg.Server.MemoryLimitMB).Msg("memory pressure changed")
		})
		opts.Memory = watcher
	}

	return &http.Server{
		Addr:         cfg.Addr(),
		Handler:      api.NewServer(strategies, opts),
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}, nil
}
