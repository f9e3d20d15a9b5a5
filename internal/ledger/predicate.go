package ledger

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
)

const (
	defaultLimit = 20
	maxLimit     = 200
)

// sortColumns is the allow-list of sortable fields. Sorting by anything else
// is rejected while building the query, never silently ignored.
var sortColumns = map[string]string{
	"amount":            "amount",
	"wallet_amount":     "wallet_amount",
	"topup_amount":      "topup_amount",
	"commission_amount": "commission_amount",
	"investment_amount": "investment_amount",
	"level":             "level",
	"pool_index":        "pool_index",
	"days_elapsed":      "days_elapsed",
	"created_at":        "created_at",
}

// filterColumns is the allow-list of numeric fields accepted by the advanced
// search helper. created_at is handled separately via the date range.
var filterColumns = map[string]string{
	"amount":            "amount",
	"wallet_amount":     "wallet_amount",
	"topup_amount":      "topup_amount",
	"commission_amount": "commission_amount",
	"investment_amount": "investment_amount",
	"level":             "level",
	"pool_index":        "pool_index",
	"days_elapsed":      "days_elapsed",
}

// KindMode selects how the kind filter compares against the stored tag.
type KindMode int

const (
	KindModeNone KindMode = iota
	// KindModeLegacyCode compares the raw numeric token for equality.
	KindModeLegacyCode
	// KindModeExact compares the enum string strictly.
	KindModeExact
	// KindModeSubstring matches case-insensitively anywhere in the tag,
	// preserving behaviour from the loosely typed numeric era.
	KindModeSubstring
)

// FieldRange is one advanced-search clause over a numeric column.
type FieldRange struct {
	Field string
	Eq    *float64
	Min   *float64
	Max   *float64
}

// Predicate is the normalized, store-agnostic filter a request compiles to.
type Predicate struct {
	Owner *uuid.UUID

	KindMode KindMode
	Kind     string

	Status   *bool
	DateFrom *time.Time
	DateTo   *time.Time
	Ranges   []FieldRange

	// Search carries the case-folded free-text term. When SearchMode is set
	// the structured clauses above (except Owner) are suppressed and the
	// predicate is evaluated against the enriched originator fields.
	Search     string
	SearchID   *uuid.UUID
	SearchMode bool
}

// Sort is the single allowed sort clause.
type Sort struct {
	Field string
	Desc  bool
}

// Page is a 1-based page selection.
type Page struct {
	Number int
	Size   int
}

// Query bundles everything the pipeline and count stages need.
type Query struct {
	Predicate Predicate
	Sort      Sort
	Page      Page
}

// ValidationError names the request field that failed validation. It is the
// only error the engine raises before touching the store.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

var searchFolder = cases.Fold()

// BuildQuery compiles a raw report request into a validated predicate, sort
// and page. Owner scope is always conjoined; a free-text search suppresses
// the structured filters but never the owner scope.
func BuildQuery(req ReportRequest) (Query, error) {
	var q Query

	if owner := strings.TrimSpace(req.OwnerID); owner != "" {
		id, err := uuid.Parse(owner)
		if err != nil {
			return Query{}, &ValidationError{Field: "user_id", Reason: "not a valid identifier"}
		}
		q.Predicate.Owner = &id
	}

	page, size, err := normalizePage(req.Page, req.Limit)
	if err != nil {
		return Query{}, err
	}
	q.Page = Page{Number: page, Size: size}

	q.Sort, err = parseSort(req.SortBy)
	if err != nil {
		return Query{}, err
	}

	ranges, err := buildRanges(req.Filters)
	if err != nil {
		return Query{}, err
	}

	if req.DateFrom != nil && req.DateTo != nil && req.DateFrom.After(*req.DateTo) {
		return Query{}, &ValidationError{Field: "date_from", Reason: "after date_to"}
	}

	if search := strings.TrimSpace(req.Search); search != "" {
		q.Predicate.SearchMode = true
		q.Predicate.Search = searchFolder.String(search)
		if id, err := uuid.Parse(search); err == nil {
			q.Predicate.SearchID = &id
		}
		return q, nil
	}

	q.Predicate.KindMode, q.Predicate.Kind = resolveKind(req.Kind, req.ExactKindMatch)
	q.Predicate.Status = req.Status
	q.Predicate.DateFrom = req.DateFrom
	q.Predicate.DateTo = req.DateTo
	q.Predicate.Ranges = ranges
	return q, nil
}

// resolveKind implements the dual numeric/string representation: a token that
// parses as an integer is a legacy code compared for equality, unless the
// caller explicitly asked for an exact enum match.
func resolveKind(raw string, exact bool) (KindMode, string) {
	kind := strings.TrimSpace(raw)
	if kind == "" {
		return KindModeNone, ""
	}
	if _, err := strconv.Atoi(kind); err == nil && !exact {
		return KindModeLegacyCode, kind
	}
	if exact {
		return KindModeExact, kind
	}
	return KindModeSubstring, kind
}

func normalizePage(page, limit int) (int, int, error) {
	if page < 0 {
		return 0, 0, &ValidationError{Field: "page", Reason: "must be positive"}
	}
	if limit < 0 {
		return 0, 0, &ValidationError{Field: "limit", Reason: "must be positive"}
	}
	if page == 0 {
		page = 1
	}
	if limit == 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit, nil
}

func parseSort(raw string) (Sort, error) {
	if strings.TrimSpace(raw) == "" {
		return Sort{Field: "created_at", Desc: true}, nil
	}
	field, dir, _ := strings.Cut(raw, ":")
	field = strings.TrimSpace(field)
	if _, ok := sortColumns[field]; !ok {
		return Sort{}, &ValidationError{Field: "sort_by", Reason: "unknown sort field " + strconv.Quote(field)}
	}
	switch strings.ToLower(strings.TrimSpace(dir)) {
	case "", "asc":
		return Sort{Field: field}, nil
	case "desc":
		return Sort{Field: field, Desc: true}, nil
	default:
		return Sort{}, &ValidationError{Field: "sort_by", Reason: "direction must be asc or desc"}
	}
}

// buildRanges turns the filter map into ordered range clauses. Iteration is
// sorted by field name so identical requests compile to identical predicates.
func buildRanges(filters map[string]FilterValue) ([]FieldRange, error) {
	if len(filters) == 0 {
		return nil, nil
	}
	fields := make([]string, 0, len(filters))
	for field := range filters {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	ranges := make([]FieldRange, 0, len(fields))
	for _, field := range fields {
		if _, ok := filterColumns[field]; !ok {
			return nil, &ValidationError{Field: field, Reason: "not a filterable field"}
		}
		value := filters[field]
		if value.Eq == nil && value.Min == nil && value.Max == nil {
			return nil, &ValidationError{Field: field, Reason: "empty filter"}
		}
		if value.Eq != nil && (value.Min != nil || value.Max != nil) {
			return nil, &ValidationError{Field: field, Reason: "exact value and range are mutually exclusive"}
		}
		if value.Min != nil && value.Max != nil && *value.Min > *value.Max {
			return nil, &ValidationError{Field: field, Reason: "min exceeds max"}
		}
		ranges = append(ranges, FieldRange{Field: field, Eq: value.Eq, Min: value.Min, Max: value.Max})
	}
	return ranges, nil
}
