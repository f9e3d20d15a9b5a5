package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskReportWarmup pre-computes first-page reports for recently active
	// users.
	TaskReportWarmup = "report:warmup"
	// TaskRewardsEligibility runs the reward eligibility scan over the ledger.
	TaskRewardsEligibility = "rewards:eligibility_scan"
)

// ReportWarmupPayload bounds one warmup run.
type ReportWarmupPayload struct {
	// WindowHours selects the activity window used to discover owners. Zero
	// falls back to the configured default.
	WindowHours int `json:"window_hours"`
	// MaxOwners caps the number of owners warmed per run.
	MaxOwners int `json:"max_owners"`
}

// NewReportWarmupTask constructs an Asynq task.
func NewReportWarmupTask(payload ReportWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReportWarmup, data), nil
}

// RewardsEligibilityPayload bounds one eligibility scan.
type RewardsEligibilityPayload struct {
	MinInvestment float64 `json:"min_investment"`
	MinReferrals  int     `json:"min_referrals"`
	SinceDays     int     `json:"since_days"`
	Limit         int     `json:"limit"`
}

// NewRewardsEligibilityTask constructs an Asynq task.
func NewRewardsEligibilityTask(payload RewardsEligibilityPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRewardsEligibility, data), nil
}
