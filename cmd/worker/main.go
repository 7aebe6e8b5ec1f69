package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/boothkeeper/boothkeeper/internal/app"
	"github.com/boothkeeper/boothkeeper/internal/catalog"
	"github.com/boothkeeper/boothkeeper/internal/conventions"
	jobmetrics "github.com/boothkeeper/boothkeeper/internal/jobs"
	"github.com/boothkeeper/boothkeeper/internal/platform/cache"
	"github.com/boothkeeper/boothkeeper/internal/platform/db"
	"github.com/boothkeeper/boothkeeper/internal/revenue"
	"github.com/boothkeeper/boothkeeper/jobs"
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

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := jobmetrics.NewMetrics(nil)

	catalogRepo := catalog.NewRepository(pool)
	conventionRepo := conventions.NewRepository(pool)
	reportCache := revenue.NewCache(redisClient, cfg.ReportCacheTTL)
	reportService := revenue.NewService(revenue.NewStore(catalogRepo, conventionRepo), reportCache, logger, revenue.Options{
		Earliest: cfg.EarliestDate(),
	})

	warmupJob := jobs.NewReportWarmupJob(conventionRepo, reportService, logger, metrics, cfg.Location())
	invalidateJob := jobs.NewReportInvalidateJob(reportCache, logger, metrics)

	warmupTask, err := jobs.NewReportWarmupTask(jobs.ReportWarmupPayload{})
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Location:    cfg.Location(),
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskReportWarmup, Handler: warmupJob.Handle},
			{Type: jobs.TaskReportInvalidate, Handler: invalidateJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: jobs.ReportWarmupCron, Task: warmupTask},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("starting worker", slog.Int("concurrency", cfg.WorkerConcurrency))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
