package ledger

import "context"

// Store is the record-store boundary the reporting engine runs against.
// Aggregate executes the full pipeline; CountFiltered counts the rows
// matching the predicate independently of the enrichment, sort and paginate
// stages so pagination metadata stays correct even when the pipeline fails.
// CountAll is diagnostic only and never surfaced to callers.
type Store interface {
	Aggregate(ctx context.Context, pipe Pipeline) ([]EnrichedEntry, error)
	CountFiltered(ctx context.Context, p Predicate, plan EnrichmentPlan) (int, error)
	CountAll(ctx context.Context) (int, error)
}
