// Package ledger implements the read-side reporting engine over the
// append-only income ledger: declarative filter/sort/page requests in,
// deterministic paginated reports out. The ledger itself is written
// elsewhere; this package never updates or deletes an entry.
package ledger

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Kind enumerates the financial event types a ledger entry can carry.
// Legacy rows may instead store a bare numeric code; the predicate builder
// handles both representations.
type Kind string

const (
	KindDailyROI      Kind = "daily_roi"
	KindReferralBonus Kind = "referral_bonus"
	KindLevelIncome   Kind = "level_income"
	KindPoolIncome    Kind = "pool_income"
	KindWithdrawalFee Kind = "withdrawal_fee"
)

// Valid reports whether k is a known enumeration value.
func (k Kind) Valid() bool {
	switch k {
	case KindDailyROI, KindReferralBonus, KindLevelIncome, KindPoolIncome, KindWithdrawalFee:
		return true
	}
	return false
}

// LedgerEntry is one immutable financial event. Kind holds the stored tag
// as-is: either an enum name or a legacy numeric token.
type LedgerEntry struct {
	ID           uuid.UUID
	OwnerID      uuid.UUID
	OriginatorID *uuid.UUID

	Kind string

	Amount           float64
	WalletAmount     float64
	TopupAmount      float64
	CommissionAmount float64
	InvestmentAmount float64
	Level            int
	PoolIndex        int
	DaysElapsed      int

	Status bool

	// Extra is kind-specific metadata. The reporting engine never interprets
	// it, only passes it through.
	Extra json.RawMessage

	CreatedAt time.Time
}

// UserRef is a denormalized projection of a user directory record, used only
// for enrichment. A dangling reference yields the zero value: empty strings,
// never a dropped row.
type UserRef struct {
	Username string
	Name     string
	Email    string
}

// EnrichedEntry is a ledger entry with its owner and originator resolved.
type EnrichedEntry struct {
	LedgerEntry
	Owner      UserRef
	Originator UserRef
}

// ReportRequest is the caller-supplied, ephemeral description of one report.
type ReportRequest struct {
	// OwnerID scopes the report to a single user. It is a hard tenant
	// boundary: when set it is conjoined with every other clause.
	OwnerID string

	// Kind filters by transaction type. A value that parses as an integer is
	// treated as a legacy numeric code unless ExactKindMatch is set.
	Kind           string
	ExactKindMatch bool

	Status *bool

	DateFrom *time.Time
	DateTo   *time.Time

	// Filters maps a numeric field name to an exact value or a {min,max}
	// range. Field names outside the allow-list are rejected.
	Filters map[string]FilterValue

	// Search is a free-text search over the resolved originator identity.
	// When set, the structured filters above are suppressed.
	Search string

	// SortBy has the form "field:direction", e.g. "amount:desc".
	SortBy string

	Page  int
	Limit int
}

// FilterValue is either an exact numeric match or a half/fully bounded range.
type FilterValue struct {
	Eq  *float64
	Min *float64
	Max *float64
}

// Report is the engine's output. Total and TotalPages always reflect the
// count of entries matching the filter, even when Rows is empty because the
// pipeline degraded.
type Report struct {
	Rows       []EnrichedEntry
	Page       int
	Limit      int
	Total      int
	TotalPages int

	// Degraded marks a report whose aggregation stage failed. It is a valid,
	// non-error response; the counts are still correct.
	Degraded bool
}
