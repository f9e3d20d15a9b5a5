package ledger

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/stakeledger/stakeledger/internal/shared"
)

// ErrCountUnavailable marks a failed count reconciliation. Unlike a pipeline
// failure this is surfaced to the caller: a silently wrong total would
// corrupt pagination in a way the caller cannot detect.
var ErrCountUnavailable = errors.New("ledger: count unavailable")

// Service assembles reports: it compiles the request, runs the count
// reconciler and the aggregation pipeline concurrently, and merges the
// results. A pipeline failure degrades to an empty, correctly paginated
// report; it never bubbles a store error past this boundary.
type Service struct {
	store       Store
	logger      *slog.Logger
	stageBudget time.Duration
}

// NewService constructs the reporting service. stageBudget caps each store
// round trip; zero disables the per-stage timeout.
func NewService(store Store, logger *slog.Logger, stageBudget time.Duration) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger, stageBudget: stageBudget}
}

// Report computes one report. Validation errors surface before any store
// call; aggregation failures produce a degraded report; count failures are
// returned wrapped in ErrCountUnavailable.
func (s *Service) Report(ctx context.Context, req ReportRequest) (Report, error) {
	q, err := BuildQuery(req)
	if err != nil {
		return Report{}, err
	}

	plan := PlanEnrichment(q.Predicate)
	pipe := Compose(q.Predicate, plan, q.Sort, q.Page)

	var (
		rows   []EnrichedEntry
		total  int
		aggErr error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		countCtx, cancel := s.stageContext(gctx)
		defer cancel()
		n, err := s.store.CountFiltered(countCtx, q.Predicate, plan)
		if err != nil {
			return errors.Join(ErrCountUnavailable, err)
		}
		total = n
		return nil
	})
	g.Go(func() error {
		aggCtx, cancel := s.stageContext(gctx)
		defer cancel()
		// A failure here must not abort the count; it is recorded and turned
		// into a degraded report after both stages settle.
		entries, err := s.store.Aggregate(aggCtx, pipe)
		if err != nil {
			aggErr = err
			return nil
		}
		rows = entries
		return nil
	})
	if err := g.Wait(); err != nil {
		return Report{}, err
	}
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}

	s.logDiagnostics(ctx, total)

	degraded := aggErr != nil
	if degraded {
		s.logger.Error("report pipeline failed, serving degraded report",
			slog.Any("error", errors.Join(shared.ErrStoreUnavailable, aggErr)),
			slog.Int("total", total))
		rows = nil
	}
	if rows == nil {
		rows = []EnrichedEntry{}
	}

	paging := shared.NewPagination(q.Page.Number, q.Page.Size, total)
	return Report{
		Rows:       rows,
		Page:       paging.Page,
		Limit:      paging.Limit,
		Total:      paging.Total,
		TotalPages: paging.TotalPages,
		Degraded:   degraded,
	}, nil
}

// logDiagnostics records the unfiltered table count. The value is not part
// of the report contract; it only exists for operators comparing filtered
// and total volumes, so it is computed at debug level only.
func (s *Service) logDiagnostics(ctx context.Context, filtered int) {
	if !s.logger.Enabled(ctx, slog.LevelDebug) {
		return
	}
	all, err := s.store.CountAll(ctx)
	if err != nil {
		s.logger.Debug("table count unavailable", slog.Any("error", err))
		return
	}
	s.logger.Debug("report counts", slog.Int("filtered", filtered), slog.Int("table", all))
}

func (s *Service) stageContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.stageBudget <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.stageBudget)
}
