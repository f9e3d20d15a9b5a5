// Package packages manages the investment package catalogue that ledger
// entries reference through their extra metadata.
package packages

import (
	"time"

	"github.com/google/uuid"
)

// Package is one investment product.
type Package struct {
	ID           uuid.UUID `json:"id"`
	Code         string    `json:"code"`
	Name         string    `json:"name"`
	MinAmount    float64   `json:"min_amount"`
	MaxAmount    float64   `json:"max_amount"`
	DailyROIPct  float64   `json:"daily_roi_pct"`
	DurationDays int       `json:"duration_days"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ListFilters narrow a catalogue listing.
type ListFilters struct {
	Search   string
	IsActive *bool
	SortBy   string
	SortDir  string
	Page     int
	Limit    int
}
