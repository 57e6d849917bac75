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

	"expediente/internal/expediente/analysis"
	"expediente/internal/expediente/handler"
	expmetrics "expediente/internal/expediente/metrics"
	"expediente/internal/expediente/session"
	httpapi "expediente/internal/http"
	"expediente/internal/platform/config"
	"expediente/internal/platform/httpserver"
	"expediente/internal/platform/logger"
	"expediente/internal/platform/metrics"
	"expediente/internal/platform/middleware"
	"expediente/internal/vigencia"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal packages.
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load("")
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(log)

	policy, err := cfg.ReturnPolicy()
	if err != nil {
		return err
	}
	asOf, err := cfg.AsOf()
	if err != nil {
		return err
	}

	reg := metrics.NewRegistry()
	engine := vigencia.NewEngine()
	svc := analysis.NewService(
		analysis.NewAnalyzer(analysis.WithEngine(engine), analysis.WithReturnPolicy(policy)),
		analysis.WithLogger(log),
		analysis.WithMetrics(expmetrics.NewWithRegistry(reg)),
	)
	h := handler.New(svc, session.NewInMemory(), engine, log)

	opts := httpapi.Options{Logger: log, TrustProxy: cfg.Server.TrustProxy}
	if cfg.Metrics.Enabled {
		opts.Registry = reg
		opts.MetricsPath = cfg.Metrics.Path
	}
	if cfg.RateLimit.Enabled {
		opts.RateLimiter = middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	}
	if !asOf.IsZero() {
		opts.Clock = func() time.Time { return asOf }
		log.Warn("reference date pinned", "as_of", cfg.Analysis.AsOf)
	}
	srv := httpserver.New(cfg.Server.Addr, httpapi.NewRouter(opts, h), cfg.Server.ReadHeaderTimeout)

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting expediente server", "addr", cfg.Server.Addr, "return_policy", policy)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down", "timeout", cfg.Server.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
