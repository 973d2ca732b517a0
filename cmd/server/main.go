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

	"github.com/go-chi/chi/v5"

	"forensics/internal/intel"
	"forensics/internal/intel/handler"
	intelmetrics "forensics/internal/intel/metrics"
	"forensics/internal/platform/config"
	"forensics/internal/platform/httpserver"
	"forensics/internal/platform/logger"
	platformmetrics "forensics/internal/platform/metrics"
	"forensics/pkg/platform/middleware/apitoken"
	"forensics/pkg/platform/middleware/metadata"
	"forensics/pkg/platform/middleware/requesttime"
)

var version = "dev"

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Resolution logic lives in internal/intel.
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Env, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, err := intel.Build(ctx, cfg, log, intelmetrics.New())
	if err != nil {
		log.Error("wire engine", "error", err)
		os.Exit(1)
	}
	defer engine.Close()

	m := platformmetrics.New(version)
	r := chi.NewRouter()
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	r.Get("/healthz", handler.Health(engine.Health))
	r.Handle("/metrics", platformmetrics.Handler())
	r.Group(func(r chi.Router) {
		r.Use(apitoken.Require(cfg.APIToken, log))
		handler.New(engine.Orchestrator, log, m).Register(r)
	})

	srv := httpserver.New(cfg.Addr, r)
	errCh := make(chan error, 1)
	go func() {
		log.Info("starting forensics", "addr", cfg.Addr, "version", version, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		log.Error("server error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
	log.Info("stopped")
}
