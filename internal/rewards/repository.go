package rewards

import (
	"context"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository aggregates ledger activity per user.
type Repository interface {
	ScanCandidates(ctx context.Context, filter EligibilityFilter) ([]Candidate, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL backed aggregation repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

// ScanCandidates groups ledger entries by owner and keeps the groups that
// clear the investment and referral thresholds. Referrals are counted as
// distinct originators on referral_bonus entries.
func (r *repository) ScanCandidates(ctx context.Context, filter EligibilityFilter) ([]Candidate, error) {
	query := `SELECT e.user_id,
		COALESCE(SUM(e.investment_amount), 0),
		COUNT(DISTINCT e.user_id_from) FILTER (WHERE e.kind = 'referral_bonus'),
		COUNT(*),
		MAX(e.created_at)
	FROM ledger_entries e
	WHERE 1=1`
	args := []any{}

	if !filter.Since.IsZero() {
		args = append(args, filter.Since)
		query += ` AND e.created_at >= $` + strconv.Itoa(len(args))
	}

	query += ` GROUP BY e.user_id`

	args = append(args, filter.MinInvestment)
	query += ` HAVING COALESCE(SUM(e.investment_amount), 0) >= $` + strconv.Itoa(len(args))
	if filter.MinReferrals > 0 {
		args = append(args, filter.MinReferrals)
		query += ` AND COUNT(DISTINCT e.user_id_from) FILTER (WHERE e.kind = 'referral_bonus') >= $` + strconv.Itoa(len(args))
	}

	query += ` ORDER BY COALESCE(SUM(e.investment_amount), 0) DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
		offset := (filter.Page - 1) * filter.Limit
		if offset < 0 {
			offset = 0
		}
		args = append(args, offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Candidate
	for rows.Next() {
		var c Candidate
		if err := rows.Scan(&c.UserID, &c.TotalInvestment, &c.ReferralCount, &c.EntryCount, &c.LastEntryAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
