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

	"github.com/stakeledger/stakeledger/internal/app"
	"github.com/stakeledger/stakeledger/internal/ledger"
	"github.com/stakeledger/stakeledger/internal/observability"
	"github.com/stakeledger/stakeledger/internal/packages"
	"github.com/stakeledger/stakeledger/internal/platform/cache"
	"github.com/stakeledger/stakeledger/internal/platform/db"
	"github.com/stakeledger/stakeledger/internal/rewards"
	"github.com/stakeledger/stakeledger/internal/users"
	"github.com/stakeledger/stakeledger/jobs"
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

	dbpool, err := db.New(ctx, cfg.PGDSN, 0)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, report cache disabled", slog.Any("error", err))
	}
	defer func() {
		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}
	}()

	metrics := observability.NewMetrics()

	ledgerRepo := ledger.NewRepository(dbpool)
	ledgerService := ledger.NewService(ledgerRepo, logger, cfg.ReportStageBudget)
	var reportCache *ledger.Cache
	if redisClient != nil {
		reportCache = ledger.NewCache(redisClient, cfg.ReportCacheTTL)
	}
	ledgerHandler := ledger.NewHandler(logger, ledgerService, reportCache, metrics)

	usersRepo := users.NewRepository(dbpool)
	usersService := users.NewService(usersRepo, logger)
	usersHandler := users.NewHandler(logger, usersService)

	packagesRepo := packages.NewRepository(dbpool)
	packagesService := packages.NewService(packagesRepo, logger)
	packagesHandler := packages.NewHandler(logger, packagesService)

	rewardsRepo := rewards.NewRepository(dbpool)
	rewardsService := rewards.NewService(rewardsRepo, usersService, logger)
	rewardsHandler := rewards.NewHandler(logger, rewardsService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		LedgerHandler:   ledgerHandler,
		UsersHandler:    usersHandler,
		PackagesHandler: packagesHandler,
		RewardsHandler:  rewardsHandler,
		JobHandler:      jobHandler,
		Metrics:         metrics,
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
