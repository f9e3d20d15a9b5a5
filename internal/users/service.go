package users

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/stakeledger/stakeledger/internal/shared"
)

// Service wraps the directory repository with pagination defaults and batch
// de-duplication.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService constructs the directory service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// List returns a directory page plus pagination metadata.
func (s *Service) List(ctx context.Context, filters ListFilters) ([]User, shared.Pagination, error) {
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
		list = []User{}
	}
	return list, shared.NewPagination(filters.Page, filters.Limit, total), nil
}

// Get loads one user.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (User, error) {
	return s.repo.Get(ctx, id)
}

// ResolveRefs resolves a batch of ids to display refs. Duplicates collapse
// and unknown ids are omitted, so the result may be smaller than the input.
func (s *Service) ResolveRefs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Ref, error) {
	unique := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	return s.repo.ResolveRefs(ctx, unique)
}
