// Package rewards derives reward eligibility from the income ledger. It is a
// read-side companion to the reporting engine: it aggregates per user rather
// than per entry.
package rewards

import (
	"time"

	"github.com/google/uuid"
)

// EligibilityFilter bounds an eligibility scan.
type EligibilityFilter struct {
	// MinInvestment is the lowest accumulated investment amount that still
	// qualifies.
	MinInvestment float64
	// MinReferrals is the lowest number of distinct referred users that still
	// qualifies.
	MinReferrals int
	// Since restricts the scan to ledger entries created at or after the
	// instant. Zero means all history.
	Since time.Time
	Page  int
	Limit int
}

// Candidate is one user aggregated over their ledger activity.
type Candidate struct {
	UserID          uuid.UUID `json:"user_id"`
	Username        string    `json:"username"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	TotalInvestment float64   `json:"total_investment"`
	ReferralCount   int       `json:"referral_count"`
	EntryCount      int       `json:"entry_count"`
	LastEntryAt     time.Time `json:"last_entry_at"`
}
