package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	zlog "github.com/rs/zerolog/log"
	"qrgen/internal/api"
	"qrgen/internal/api/handlers"
	"qrgen/internal/api/middleware"
	"qrgen/internal/engine/qr"
	"qrgen/internal/engine/session"
	"qrgen/internal/engine/workflow"
	"qrgen/internal/pkg/logger"
	"qrgen/internal/platform/audit"
	"qrgen/internal/platform/auth"
	"qrgen/internal/platform/config"
	"qrgen/internal/platform/database"
	"qrgen/internal/platform/metrics"
	"qrgen/internal/workers"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(cfg.Logging)

	diagDB, err := database.OpenDiagnostics(cfg.Diagnostics)
	if err != nil {
		log.Fatalf("Failed to open diagnostics DB: %v", err)
	}
	defer diagDB.Close()

	m := metrics.New()
	recorder := audit.NewRecorder(diagDB.DB, m.Generations)

	tokenSvc, err := auth.NewTokenService(cfg.Session)
	if err != nil {
		log.Fatalf("Failed to init session tokens: %v", err)
	}
	if cfg.Session.Secret == "" {
		zlog.Warn().Msg("session.secret not set; sessions will not survive a restart")
	}

	// Encoder and per-session workflows
	encoder := qr.NewEncoder()
	opts := qr.Options{
		Width:  cfg.Encoder.Width,
		Margin: cfg.Encoder.Margin,
		Dark:   cfg.Encoder.DarkColor,
		Light:  cfg.Encoder.LightColor,
	}
	registry := session.NewRegistry(func(id string) *workflow.Workflow {
		return workflow.New(encoder,
			workflow.WithID(id),
			workflow.WithOptions(opts),
			workflow.WithFilename(cfg.Encoder.DownloadFilename),
			workflow.WithRecorder(recorder),
			workflow.WithLogger(logger.Component("workflow")),
		)
	})
	defer registry.CloseAll()
	m.ObserveSessions(registry)

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit)
	defer rateLimiter.Stop()

	deps := &api.Dependencies{
		PageHandler:        handlers.NewPageHandler(cfg.Encoder.DownloadFilename),
		WorkflowHandler:    handlers.NewWorkflowHandler(),
		DiagnosticsHandler: handlers.NewDiagnosticsHandler(recorder, cfg.Diagnostics.RecentLimit),
		HealthHandler:      handlers.NewHealthHandler(recorder),
		MetricsHandler:     handlers.NewMetricsHandler(m),
		SessionMiddleware:  middleware.NewSessionMiddleware(tokenSvc, registry, cfg.Session.CookieName),
		RateLimiter:        rateLimiter,
	}
	router := api.NewRouter(deps)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go workers.RunSessionSweeper(ctx, registry, cfg.Session.SweepInterval, cfg.Session.IdleTTL)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			zlog.Error().Err(err).Msg("server shutdown failed")
		}
	}()

	zlog.Info().Str("addr", addr).Msg("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Server failed: %v", err)
	}
	zlog.Info().Msg("server stopped")
}
