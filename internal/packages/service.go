package packages

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/stakeledger/stakeledger/internal/shared"
)

// Service applies catalogue business rules on top of the repository.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService constructs the catalogue service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// List returns a catalogue page plus pagination metadata.
func (s *Service) List(ctx context.Context, filters ListFilters) ([]Package, shared.Pagination, error) {
	if filters.Page <= 0 {
		filters.Page = 1
	}
	if filters.Limit <= 0 || filters.Limit > 200 {
		filters.Limit = 20
	}
	list, total, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	if list == nil {
		list = []Package{}
	}
	return list, shared.NewPagination(filters.Page, filters.Limit, total), nil
}

// Get loads one package.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Package, error) {
	return s.repo.Get(ctx, id)
}

// Create validates and persists a new package.
func (s *Service) Create(ctx context.Context, pkg Package) (Package, error) {
	if err := validatePackage(pkg); err != nil {
		return Package{}, err
	}
	pkg.Code = strings.ToUpper(strings.TrimSpace(pkg.Code))
	return s.repo.Create(ctx, pkg)
}

// Update validates and persists changes to an existing package.
func (s *Service) Update(ctx context.Context, id uuid.UUID, pkg Package) error {
	if err := validatePackage(pkg); err != nil {
		return err
	}
	pkg.Code = strings.ToUpper(strings.TrimSpace(pkg.Code))
	return s.repo.Update(ctx, id, pkg)
}

// Deactivate retires a package from sale.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) error {
	return s.repo.Deactivate(ctx, id)
}

func validatePackage(pkg Package) error {
	if strings.TrimSpace(pkg.Code) == "" {
		return errors.New("package code is required")
	}
	if strings.TrimSpace(pkg.Name) == "" {
		return errors.New("package name is required")
	}
	if pkg.MinAmount < 0 || pkg.MaxAmount < 0 {
		return errors.New("amounts must not be negative")
	}
	if pkg.MaxAmount > 0 && pkg.MinAmount > pkg.MaxAmount {
		return errors.New("min amount exceeds max amount")
	}
	if pkg.DailyROIPct < 0 || pkg.DailyROIPct > 100 {
		return errors.New("daily roi percent out of range")
	}
	if pkg.DurationDays < 0 {
		return errors.New("duration must not be negative")
	}
	return nil
}
