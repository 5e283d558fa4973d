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

	"github.com/DanielPopoola/ficmart-payment-orchestrator/internal/application"
	"github.com/DanielPopoola/ficmart-payment-orchestrator/internal/application/services"
	"github.com/DanielPopoola/ficmart-payment-orchestrator/internal/config"
	"github.com/DanielPopoola/ficmart-payment-orchestrator/internal/infrastructure/audit"
	"github.com/DanielPopoola/ficmart-payment-orchestrator/internal/infrastructure/cache"
	"github.com/DanielPopoola/ficmart-payment-orchestrator/internal/infrastructure/gateway"
	"github.com/DanielPopoola/ficmart-payment-orchestrator/internal/infrastructure/persistence"
	"github.com/DanielPopoola/ficmart-payment-orchestrator/internal/infrastructure/persistence/postgres"
	"github.com/DanielPopoola/ficmart-payment-orchestrator/internal/interfaces/rest/handlers"
	"github.com/DanielPopoola/ficmart-payment-orchestrator/internal/observability"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := cfg.Logger.NewLogger()
	slog.SetDefault(logger)

	logger.Info("starting payment orchestrator",
		"env", cfg.Primary.Env,
		"port", cfg.Server.Port,
		"cache_backend", cfg.Cache.Backend,
		"audit_sink", cfg.Audit.Sink,
	)

	ctx := context.Background()

	shutdownTracing, err := observability.InitTracing(ctx, cfg.Telemetry, logger)
	if err != nil {
		logger.Error("failed to initialise tracing", "error", err)
		os.Exit(1)
	}
	metrics := observability.NewMetrics()

	db, err := persistence.Connect(ctx, &cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if cfg.Database.ApplySchema {
		if err := postgres.EnsureSchema(ctx, db.Pool); err != nil {
			logger.Error("failed to apply schema", "error", err)
			os.Exit(1)
		}
	}

	healthChecks := []handlers.HealthCheck{{Name: "postgres", Check: db.Ping}}

	idempotency, cacheCheck, closeCache, err := buildCache(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer closeCache()
	if cacheCheck != nil {
		healthChecks = append(healthChecks, *cacheCheck)
	}

	ledger := persistence.NewRetryingLedger(postgres.NewLedgerRepository(db.Pool), cfg.LedgerRetry, logger, metrics)
	router := gateway.NewRouterClient(cfg.Gateway)

	var sink audit.Sink = audit.NewLogSink(logger)
	if cfg.Audit.Sink == "kafka" {
		sink = audit.NewKafkaSink(cfg.Kafka)
	}
	auditPublisher := audit.NewAsyncPublisher(sink, cfg.Audit, logger, metrics)

	deps := services.Dependencies{
		Cache:   idempotency,
		Ledger:  ledger,
		Gateway: router,
		Audit:   auditPublisher,
		Logger:  logger,
		Metrics: metrics,
		Policy:  services.PolicyFromConfig(cfg.Policy, cfg.Cache),
	}

	h := handlers.NewHandlers(
		services.NewAuthorizeProcessor(deps),
		services.NewCaptureProcessor(deps),
		services.NewRefundProcessor(deps),
		services.NewVoidProcessor(deps),
		services.NewQueryService(ledger, logger),
		logger,
		healthChecks...,
	)

	httpHandler, err := handlers.NewRouter(h, metrics.Handler(), cfg.Server.RequestTimeout, logger)
	if err != nil {
		logger.Error("failed to build router", "error", err)
		os.Exit(1)
	}

	server := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Server.Port,
		Handler:      httpHandler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	// detached pipelines may still be finishing; their audit events are drained here
	if err := auditPublisher.Close(shutdownCtx); err != nil {
		logger.Error("audit publisher did not drain", "error", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error("tracer shutdown failed", "error", err)
	}

	logger.Info("server exited")
}

// buildCache returns the idempotency cache for the configured backend, its
// health check (nil for the in-memory cache) and a close func.
func buildCache(ctx context.Context, cfg *config.Config, logger *slog.Logger) (application.IdempotencyCache, *handlers.HealthCheck, func(), error) {
	if cfg.Cache.Backend == "memory" {
		logger.Warn("using in-memory idempotency cache; keys are not shared between instances")
		return cache.NewMemoryCache(), nil, func() {}, nil
	}

	client, err := cache.Connect(ctx, cfg.Redis, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	check := &handlers.HealthCheck{
		Name:  "redis",
		Check: func(ctx context.Context) error { return client.Ping(ctx).Err() },
	}
	closeFn := func() {
		if err := client.Close(); err != nil {
			logger.Warn("failed to close redis client", "error", err)
		}
	}
	return cache.NewRedisCache(client, cfg.Redis.KeyPrefix), check, closeFn, nil
}
