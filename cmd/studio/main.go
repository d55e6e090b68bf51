package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/Krosebrook/CreatorStudioLite-sub000/internal/app"
	"github.com/Krosebrook/CreatorStudioLite-sub000/internal/grants"
	"github.com/Krosebrook/CreatorStudioLite-sub000/internal/observability"
	"github.com/Krosebrook/CreatorStudioLite-sub000/internal/platform/cache"
	"github.com/Krosebrook/CreatorStudioLite-sub000/internal/platform/db"
	"github.com/Krosebrook/CreatorStudioLite-sub000/internal/policy"
	"github.com/Krosebrook/CreatorStudioLite-sub000/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, grant caching disabled", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient == nil {
			return
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	catalogue := policy.DefaultCatalogue()
	if cfg.RoleCataloguePath != "" {
		catalogue, err = policy.LoadCatalogue(cfg.RoleCataloguePath)
		if err != nil {
			logger.Error("load role catalogue", slog.Any("error", err))
			os.Exit(1)
		}
	}

	metrics := observability.NewMetrics()
	engine := policy.NewEngine(catalogue, policy.WithRecorder(metrics))
	app.RegisterDefaultPolicies(engine, pool)

	grantsRepo := grants.NewRepository(pool)
	grantSource := grants.NewCachedSource(grantsRepo, redisClient, cfg.GrantCacheTTL, logger)
	grantsService := grants.NewService(grantsRepo, catalogue, grantSource, logger)
	grantsHandler := grants.NewHandler(logger, grantsService)

	policyHandler := policy.NewHandler(logger, engine, grantSource)
	policyMiddleware := policy.Middleware{Engine: engine, Grants: grantSource, Logger: logger}

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		GrantsHandler:    grantsHandler,
		PolicyHandler:    policyHandler,
		JobHandler:       jobHandler,
		PolicyMiddleware: policyMiddleware,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
