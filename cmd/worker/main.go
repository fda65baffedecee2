package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/sanctus-app/sanctus/internal/app"
	jobmetrics "github.com/sanctus-app/sanctus/internal/jobs"
	"github.com/sanctus-app/sanctus/internal/observability"
	"github.com/sanctus-app/sanctus/internal/platform/db"
	"github.com/sanctus-app/sanctus/internal/rbac"
	"github.com/sanctus-app/sanctus/internal/shared"
	"github.com/sanctus-app/sanctus/jobs"
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

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}

	metrics := observability.NewMetrics()
	jobMetrics := jobmetrics.NewMetrics(metrics.Registerer(), metrics)

	rbacService := rbac.NewService(
		rbac.NewRepository(pool),
		rbac.NewCache(redisClient, cfg.PermissionCacheTTL),
		shared.NewAuditLogger(pool),
		logger,
	)
	sweepJob := jobs.NewOverridesExpireJob(rbacService, logger, jobMetrics)
	cleanupJob := jobs.NewIdempotencyCleanupJob(shared.NewIdempotencyStore(pool), logger, jobMetrics)

	cleanupTask, err := jobs.NewIdempotencyCleanupTask(jobs.IdempotencyCleanupPayload{
		OlderThanHours: int(cfg.IdempotencyRetention.Hours()),
	})
	if err != nil {
		logger.Error("build cleanup task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskOverridesExpire, Handler: sweepJob.Handle},
			{Type: jobs.TaskIdempotencyCleanup, Handler: cleanupJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.OverrideSweepCron, Task: jobs.NewOverridesExpireTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: cfg.IdempotencyCleanupCron, Task: cleanupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
