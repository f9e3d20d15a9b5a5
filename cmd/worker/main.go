package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/stakeledger/stakeledger/internal/app"
	"github.com/stakeledger/stakeledger/internal/ledger"
	"github.com/stakeledger/stakeledger/internal/platform/cache"
	"github.com/stakeledger/stakeledger/internal/platform/db"
	"github.com/stakeledger/stakeledger/internal/rewards"
	"github.com/stakeledger/stakeledger/internal/users"
	"github.com/stakeledger/stakeledger/jobs"
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

	pool, err := db.New(ctx, cfg.PGDSN, 0)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, warmup cache disabled", slog.Any("error", err))
	}
	defer func() {
		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}
	}()

	ledgerRepo := ledger.NewRepository(pool)
	ledgerService := ledger.NewService(ledgerRepo, logger, cfg.ReportStageBudget)
	var reportCache *ledger.Cache
	if redisClient != nil {
		reportCache = ledger.NewCache(redisClient, cfg.ReportCacheTTL)
	}

	usersRepo := users.NewRepository(pool)
	usersService := users.NewService(usersRepo, logger)

	rewardsRepo := rewards.NewRepository(pool)
	rewardsService := rewards.NewService(rewardsRepo, usersService, logger)

	warmupJob := jobs.NewReportWarmupJob(ledgerService, reportCache, pool, logger, nil)
	eligibilityJob := jobs.NewRewardsEligibilityJob(rewardsService, logger, nil)

	warmupTask, err := jobs.NewReportWarmupTask(jobs.ReportWarmupPayload{
		WindowHours: int(cfg.WarmupOwnerWindow.Hours()),
	})
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}
	eligibilityTask, err := jobs.NewRewardsEligibilityTask(jobs.RewardsEligibilityPayload{
		MinInvestment: 1000,
		MinReferrals:  1,
		SinceDays:     30,
	})
	if err != nil {
		logger.Error("build eligibility task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskReportWarmup, Handler: warmupJob.Handle},
			{Type: jobs.TaskRewardsEligibility, Handler: eligibilityJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "15 1 * * *", Task: warmupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "0 2 * * *", Task: eligibilityTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
