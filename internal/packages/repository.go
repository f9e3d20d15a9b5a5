package packages

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stakeledger/stakeledger/internal/platform/httpx"
	"github.com/stakeledger/stakeledger/internal/shared"
)

// Repository reads and writes the package catalogue.
type Repository interface {
	List(ctx context.Context, filters ListFilters) ([]Package, int, error)
	Get(ctx context.Context, id uuid.UUID) (Package, error)
	Create(ctx context.Context, pkg Package) (Package, error)
	Update(ctx context.Context, id uuid.UUID, pkg Package) error
	Deactivate(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL backed catalogue repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const packageColumns = `id, code, name, min_amount, max_amount, daily_roi_pct, duration_days, is_active, created_at, updated_at`

func (r *repository) List(ctx context.Context, filters ListFilters) ([]Package, int, error) {
	query := `SELECT ` + packageColumns + ` FROM packages WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM packages WHERE 1=1`
	args := []any{}

	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		ph := `$` + strconv.Itoa(len(args))
		clause := ` AND (name ILIKE ` + ph + ` OR code ILIKE ` + ph + `)`
		query += clause
		countQuery += clause
	}
	if filters.IsActive != nil {
		args = append(args, *filters.IsActive)
		clause := ` AND is_active = $` + strconv.Itoa(len(args))
		query += clause
		countQuery += clause
	}

	var total int
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += ` ORDER BY ` + sortOrder(filters.SortBy, filters.SortDir)
	if filters.Limit > 0 {
		args = append(args, filters.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
		offset := (filters.Page - 1) * filters.Limit
		if offset < 0 {
			offset = 0
		}
		args = append(args, offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Package
	for rows.Next() {
		var p Package
		if err := rows.Scan(&p.ID, &p.Code, &p.Name, &p.MinAmount, &p.MaxAmount, &p.DailyROIPct, &p.DurationDays, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (Package, error) {
	query := `SELECT ` + packageColumns + ` FROM packages WHERE id = $1`
	var p Package
	err := r.db.QueryRow(ctx, query, id).Scan(&p.ID, &p.Code, &p.Name, &p.MinAmount, &p.MaxAmount, &p.DailyROIPct, &p.DurationDays, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Package{}, shared.ErrNotFound
	}
	return p, err
}

func (r *repository) Create(ctx context.Context, pkg Package) (Package, error) {
	query := `INSERT INTO packages (code, name, min_amount, max_amount, daily_roi_pct, duration_days, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`
	now := time.Now()
	err := r.db.QueryRow(ctx, query, pkg.Code, pkg.Name, pkg.MinAmount, pkg.MaxAmount, pkg.DailyROIPct, pkg.DurationDays, pkg.IsActive, now, now).Scan(&pkg.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Package{}, httpx.ErrDuplicate
		}
		return Package{}, err
	}
	pkg.CreatedAt = now
	pkg.UpdatedAt = now
	return pkg, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, pkg Package) error {
	query := `UPDATE packages SET code = $1, name = $2, min_amount = $3, max_amount = $4, daily_roi_pct = $5, duration_days = $6, is_active = $7, updated_at = $8 WHERE id = $9`
	tag, err := r.db.Exec(ctx, query, pkg.Code, pkg.Name, pkg.MinAmount, pkg.MaxAmount, pkg.DailyROIPct, pkg.DurationDays, pkg.IsActive, time.Now(), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Deactivate retires a package from sale without deleting it; historical
// ledger entries keep referencing it.
func (r *repository) Deactivate(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `UPDATE packages SET is_active = FALSE, updated_at = $1 WHERE id = $2`, time.Now(), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func sortOrder(sortBy, sortDir string) string {
	dir := "ASC"
	if sortDir == "desc" {
		dir = "DESC"
	}
	switch sortBy {
	case "code":
		return "code " + dir
	case "name":
		return "name " + dir
	case "min_amount":
		return "min_amount " + dir
	case "daily_roi_pct":
		return "daily_roi_pct " + dir
	case "created_at":
		return "created_at " + dir
	default:
		return "name ASC"
	}
}
