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

	"github.com/boothkeeper/boothkeeper/cmd/boothkeeper/cli"
	"github.com/boothkeeper/boothkeeper/internal/app"
	"github.com/boothkeeper/boothkeeper/internal/catalog"
	"github.com/boothkeeper/boothkeeper/internal/conventions"
	"github.com/boothkeeper/boothkeeper/internal/observability"
	"github.com/boothkeeper/boothkeeper/internal/platform/cache"
	"github.com/boothkeeper/boothkeeper/internal/platform/db"
	"github.com/boothkeeper/boothkeeper/internal/revenue"
	reporthttp "github.com/boothkeeper/boothkeeper/internal/revenue/http"
	"github.com/boothkeeper/boothkeeper/internal/shared"
	"github.com/boothkeeper/boothkeeper/jobs"
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

	if len(os.Args) > 1 && os.Args[1] == "jobs" {
		if err := cli.RunJobs(ctx, cfg.RedisAddr, os.Args[2:], os.Stdout); err != nil {
			logger.Error("jobs command", slog.Any("error", err))
			os.Exit(1)
		}
		return
	}

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

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

	metrics := observability.NewMetrics()
	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}

	jobClient := jobs.NewClient(redisOpts)
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	reportCache := revenue.NewCache(redisClient, cfg.ReportCacheTTL)
	if err := reportCache.ListenForInvalidation(ctx, revenue.BumpChannel); err != nil {
		logger.Warn("subscribe report cache bumps", slog.Any("error", err))
	}
	invalidator := app.NewReportInvalidator(reportCache, jobClient, logger)

	catalogRepo := catalog.NewRepository(dbpool)
	catalogService := catalog.NewService(catalogRepo, invalidator, logger)
	catalogHandler := catalog.NewHandler(logger, catalogService)

	conventionRepo := conventions.NewRepository(dbpool)
	conventionService := conventions.NewService(conventionRepo, invalidator, logger)
	conventionHandler := conventions.NewHandler(logger, conventionService)

	reportService := revenue.NewService(revenue.NewStore(catalogRepo, conventionRepo), reportCache, logger, revenue.Options{
		Earliest: cfg.EarliestDate(),
		Observer: metrics,
	})
	reportHandler := reporthttp.NewHandler(logger, reportService, cfg.Location())

	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		Owners:            shared.NewSessionStore(redisClient, cfg.SessionCookie, cfg.SessionTTL),
		CatalogHandler:    catalogHandler,
		ConventionHandler: conventionHandler,
		ReportHandler:     reportHandler,
		JobHandler:        jobHandler,
		Metrics:           metrics,
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
