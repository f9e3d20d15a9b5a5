package ledger

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed execution of report pipelines. The
// enrich stage becomes two left-outer joins against the user directory, so a
// dangling reference yields empty placeholder strings instead of losing the
// row.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Aggregate runs the pipeline and returns the enriched page of entries.
func (r *Repository) Aggregate(ctx context.Context, pipe Pipeline) ([]EnrichedEntry, error) {
	query, args := buildSelect(pipe)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapStoreErr("aggregate", err)
	}
	defer rows.Close()

	var entries []EnrichedEntry
	for rows.Next() {
		var (
			entry EnrichedEntry
			extra []byte
		)
		if err := rows.Scan(
			&entry.ID, &entry.OwnerID, &entry.OriginatorID, &entry.Kind,
			&entry.Amount, &entry.WalletAmount, &entry.TopupAmount,
			&entry.CommissionAmount, &entry.InvestmentAmount,
			&entry.Level, &entry.PoolIndex, &entry.DaysElapsed,
			&entry.Status, &extra, &entry.CreatedAt,
			&entry.Owner.Username, &entry.Owner.Name, &entry.Owner.Email,
			&entry.Originator.Username, &entry.Originator.Name, &entry.Originator.Email,
		); err != nil {
			return nil, wrapStoreErr("scan entry", err)
		}
		entry.Extra = extra
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStoreErr("aggregate rows", err)
	}
	return entries, nil
}

// CountFiltered counts entries matching the predicate. It joins the user
// directory only when the predicate itself reads enriched fields, i.e. in
// search mode.
func (r *Repository) CountFiltered(ctx context.Context, p Predicate, plan EnrichmentPlan) (int, error) {
	query, args := buildCount(p, plan)
	var total int
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, wrapStoreErr("count filtered", err)
	}
	return total, nil
}

// CountAll returns the unfiltered table count, for diagnostics only.
func (r *Repository) CountAll(ctx context.Context) (int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM ledger_entries`).Scan(&total); err != nil {
		return 0, wrapStoreErr("count all", err)
	}
	return total, nil
}

const entryColumns = `e.id, e.user_id, e.user_id_from, e.kind, e.amount, e.wallet_amount, e.topup_amount, e.commission_amount, e.investment_amount, e.level, e.pool_index, e.days_elapsed, e.status, e.extra, e.created_at`

// buildSelect renders the pipeline stages, in their fixed order, into one
// parameterised statement.
func buildSelect(pipe Pipeline) (string, []any) {
	var (
		selectList = entryColumns
		joins      string
		where      strings.Builder
		order      string
		window     string
		args       []any
	)
	for _, stage := range pipe.Stages {
		switch stage {
		case StageEnrich:
			joins = enrichJoins(pipe.Plan)
		case StageFilter:
			appendPredicate(&where, &args, pipe.Predicate)
		case StageProject:
			selectList = projectedColumns(pipe.Plan)
		case StageSort:
			order = ` ORDER BY e.` + sortColumns[pipe.Sort.Field] + sortDirection(pipe.Sort) + `, e.id`
		case StagePaginate:
			args = append(args, pipe.Page.Size)
			window = ` LIMIT $` + strconv.Itoa(len(args))
			offset := (pipe.Page.Number - 1) * pipe.Page.Size
			if offset < 0 {
				offset = 0
			}
			args = append(args, offset)
			window += ` OFFSET $` + strconv.Itoa(len(args))
		}
	}
	query := `SELECT ` + selectList + ` FROM ledger_entries e` + joins + ` WHERE 1=1` + where.String() + order + window
	return query, args
}

// buildCount renders the reconciliation count for the same predicate.
func buildCount(p Predicate, plan EnrichmentPlan) (string, []any) {
	var (
		where strings.Builder
		args  []any
		joins string
	)
	if p.SearchMode {
		joins = enrichJoins(plan)
	}
	appendPredicate(&where, &args, p)
	return `SELECT COUNT(*) FROM ledger_entries e` + joins + ` WHERE 1=1` + where.String(), args
}

func enrichJoins(plan EnrichmentPlan) string {
	var joins string
	if plan.ResolveOwner {
		joins += ` LEFT JOIN users owner ON owner.id = e.user_id`
	}
	if plan.ResolveOriginator {
		joins += ` LEFT JOIN users origin ON origin.id = e.user_id_from`
	}
	return joins
}

func projectedColumns(plan EnrichmentPlan) string {
	cols := entryColumns
	if plan.ResolveOwner {
		cols += `, COALESCE(owner.username, ''), COALESCE(owner.name, ''), COALESCE(owner.email, '')`
	} else {
		cols += `, '', '', ''`
	}
	if plan.ResolveOriginator {
		cols += `, COALESCE(origin.username, ''), COALESCE(origin.name, ''), COALESCE(origin.email, '')`
	} else {
		cols += `, '', '', ''`
	}
	return cols
}

func sortDirection(s Sort) string {
	if s.Desc {
		return ` DESC`
	}
	return ` ASC`
}

// appendPredicate renders the WHERE clauses. The owner scope is always
// conjoined; in search mode the remaining structured clauses are absent by
// construction (BuildQuery never populates them alongside a search term).
func appendPredicate(where *strings.Builder, args *[]any, p Predicate) {
	addClause := func(clause string, value any) {
		*args = append(*args, value)
		where.WriteString(strings.Replace(clause, "?", "$"+strconv.Itoa(len(*args)), 1))
	}

	if p.Owner != nil {
		addClause(` AND e.user_id = ?`, *p.Owner)
	}

	if p.SearchMode {
		*args = append(*args, "%"+p.Search+"%")
		ph := "$" + strconv.Itoa(len(*args))
		where.WriteString(` AND (origin.username ILIKE ` + ph +
			` OR origin.email ILIKE ` + ph +
			` OR origin.name ILIKE ` + ph)
		if p.SearchID != nil {
			*args = append(*args, *p.SearchID)
			where.WriteString(` OR e.user_id_from = $` + strconv.Itoa(len(*args)))
		}
		where.WriteString(`)`)
		return
	}

	switch p.KindMode {
	case KindModeLegacyCode, KindModeExact:
		addClause(` AND e.kind = ?`, p.Kind)
	case KindModeSubstring:
		addClause(` AND e.kind ILIKE ?`, "%"+p.Kind+"%")
	}

	if p.Status != nil {
		addClause(` AND e.status = ?`, *p.Status)
	}
	if p.DateFrom != nil {
		addClause(` AND e.created_at >= ?`, *p.DateFrom)
	}
	if p.DateTo != nil {
		addClause(` AND e.created_at <= ?`, *p.DateTo)
	}
	for _, rng := range p.Ranges {
		col := `e.` + filterColumns[rng.Field]
		if rng.Eq != nil {
			addClause(` AND `+col+` = ?`, *rng.Eq)
			continue
		}
		if rng.Min != nil {
			addClause(` AND `+col+` >= ?`, *rng.Min)
		}
		if rng.Max != nil {
			addClause(` AND `+col+` <= ?`, *rng.Max)
		}
	}
}

func wrapStoreErr(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fmt.Errorf("ledger: %s: sqlstate %s: %w", op, pgErr.Code, err)
	}
	return fmt.Errorf("ledger: %s: %w", op, err)
}
