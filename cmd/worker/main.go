package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/Krosebrook/CreatorStudioLite-sub000/internal/app"
	"github.com/Krosebrook/CreatorStudioLite-sub000/internal/grants"
	jobmetrics "github.com/Krosebrook/CreatorStudioLite-sub000/internal/jobs"
	"github.com/Krosebrook/CreatorStudioLite-sub000/internal/platform/db"
	"github.com/Krosebrook/CreatorStudioLite-sub000/internal/policy"
	"github.com/Krosebrook/CreatorStudioLite-sub000/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	catalogue := policy.DefaultCatalogue()
	if cfg.RoleCataloguePath != "" {
		catalogue, err = policy.LoadCatalogue(cfg.RoleCataloguePath)
		if err != nil {
			logger.Error("load role catalogue", slog.Any("error", err))
			os.Exit(1)
		}
	}

	grantsRepo := grants.NewRepository(pool)
	grantsService := grants.NewService(grantsRepo, catalogue, nil, logger)

	metrics := jobmetrics.NewMetrics(nil)
	sweepJob := jobs.NewGrantSweepJob(grantsService, logger, metrics)

	sweepTask, err := jobs.NewGrantSweepTask(jobs.GrantSweepPayload{Retention: cfg.GrantRetention})
	if err != nil {
		logger.Error("build sweep task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskGrantSweep, Handler: sweepJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "@hourly", Task: sweepTask},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("worker started")
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker", slog.Any("error", err))
		os.Exit(1)
	}
}
