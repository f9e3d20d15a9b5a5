package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/stakeledger/stakeledger/internal/jobs"
	"github.com/stakeledger/stakeledger/internal/rewards"
)

// RewardsEligibilityJob periodically scans the ledger for users clearing the
// reward thresholds and logs the outcome for the operations team.
type RewardsEligibilityJob struct {
	Rewards *rewards.Service
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewRewardsEligibilityJob wires dependencies for the scan handler.
func NewRewardsEligibilityJob(rewardsSvc *rewards.Service, logger *slog.Logger, metrics *jobmetrics.Metrics) *RewardsEligibilityJob {
	return &RewardsEligibilityJob{
		Rewards: rewardsSvc,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes eligibility scan tasks.
func (j *RewardsEligibilityJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("eligibility scan: handler not configured")
	}
	var payload RewardsEligibilityPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskRewardsEligibility)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	if j.Rewards == nil {
		resultErr = errors.New("eligibility scan: rewards service not configured")
		return resultErr
	}

	filter := rewards.EligibilityFilter{
		MinInvestment: payload.MinInvestment,
		MinReferrals:  payload.MinReferrals,
		Limit:         payload.Limit,
	}
	if payload.SinceDays > 0 {
		filter.Since = j.now().AddDate(0, 0, -payload.SinceDays)
	}

	logger := j.logger().With(
		slog.Float64("min_investment", filter.MinInvestment),
		slog.Int("min_referrals", filter.MinReferrals))
	logger.Info("starting eligibility scan")

	candidates, err := j.Rewards.Eligible(ctx, filter)
	if err != nil {
		resultErr = err
		logger.Error("eligibility scan failed", slog.Any("error", err))
		return resultErr
	}

	logger.Info("completed eligibility scan", slog.Int("candidates", len(candidates)))
	for _, c := range candidates {
		logger.Debug("eligible user",
			slog.String("user_id", c.UserID.String()),
			slog.String("username", c.Username),
			slog.Float64("total_investment", c.TotalInvestment),
			slog.Int("referrals", c.ReferralCount))
	}
	return resultErr
}

func (j *RewardsEligibilityJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskRewardsEligibility))
	}
	return slog.Default().With(slog.String("job", TaskRewardsEligibility))
}

func (j *RewardsEligibilityJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *RewardsEligibilityJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
