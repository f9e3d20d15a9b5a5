package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/stakeledger/stakeledger/internal/jobs"
	"github.com/stakeledger/stakeledger/internal/ledger"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

const defaultWarmupWindow = 7 * 24 * time.Hour

// ReportWarmupJob pre-computes the default first-page report for every user
// with recent ledger activity and stores it in the report cache, so the
// dashboard's initial load is a cache hit.
type ReportWarmupJob struct {
	Reports *ledger.Service
	Cache   *ledger.Cache
	Pool    *pgxpool.Pool
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewReportWarmupJob wires dependencies for the warmup handler.
func NewReportWarmupJob(reports *ledger.Service, cache *ledger.Cache, pool *pgxpool.Pool, logger *slog.Logger, metrics *jobmetrics.Metrics) *ReportWarmupJob {
	return &ReportWarmupJob{
		Reports: reports,
		Cache:   cache,
		Pool:    pool,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes report warmup tasks.
func (j *ReportWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("report warmup: handler not configured")
	}
	var payload ReportWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	window := defaultWarmupWindow
	if payload.WindowHours > 0 {
		window = time.Duration(payload.WindowHours) * time.Hour
	}
	maxOwners := payload.MaxOwners
	if maxOwners <= 0 {
		maxOwners = 500
	}

	tracker := j.metrics().Track(TaskReportWarmup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.Duration("window", window))
	logger.Info("starting report warmup")

	owners, err := j.fetchRecentOwners(ctx, window, maxOwners)
	if err != nil {
		resultErr = err
		logger.Error("load warmup owners", slog.Any("error", err))
		return resultErr
	}
	if len(owners) == 0 {
		logger.Info("no recent ledger activity to warm")
		return resultErr
	}

	start := j.now()
	warmed := 0
	for _, owner := range owners {
		if err := j.warmOwner(ctx, owner); err != nil {
			resultErr = err
			logger.Error("warm owner report", slog.String("user_id", owner), slog.Any("error", err))
			return resultErr
		}
		warmed++
	}
	j.metrics().AddWarmedReports(warmed)

	logger.Info("completed report warmup", slog.Int("owners", warmed), slog.Duration("duration", time.Since(start)))
	return resultErr
}

func (j *ReportWarmupJob) warmOwner(ctx context.Context, owner string) error {
	if j.Reports == nil {
		return nil
	}
	ownerCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	req := ledger.ReportRequest{OwnerID: owner}
	rep, err := j.Reports.Report(ownerCtx, req)
	if err != nil {
		return err
	}
	// A degraded report is a transient outage artifact; caching it would
	// pin the outage past recovery.
	if rep.Degraded || j.Cache == nil {
		return nil
	}
	key, err := j.Cache.RequestKey(ownerCtx, req)
	if err != nil {
		return err
	}
	return j.Cache.SetJSON(ownerCtx, key, ledger.CacheableResponse(rep))
}

func (j *ReportWarmupJob) fetchRecentOwners(ctx context.Context, window time.Duration, limit int) ([]string, error) {
	if j.Pool == nil {
		return nil, errors.New("report warmup: pool not configured")
	}
	since := j.now().Add(-window)
	rows, err := j.Pool.Query(ctx,
		`SELECT user_id FROM ledger_entries WHERE created_at >= $1 GROUP BY user_id ORDER BY MAX(created_at) DESC LIMIT $2`,
		since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	owners := make([]string, 0)
	for rows.Next() {
		var owner string
		if err := rows.Scan(&owner); err != nil {
			return nil, err
		}
		owners = append(owners, owner)
	}
	return owners, rows.Err()
}

func (j *ReportWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskReportWarmup))
	}
	return slog.Default().With(slog.String("job", TaskReportWarmup))
}

func (j *ReportWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *ReportWarmupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
