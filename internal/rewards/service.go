package rewards

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/stakeledger/stakeledger/internal/users"
)

const (
	defaultScanLimit = 100
	maxScanLimit     = 1000
)

// RefResolver resolves user ids to display refs; satisfied by the directory
// service.
type RefResolver interface {
	ResolveRefs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]users.Ref, error)
}

// Service runs eligibility scans and enriches the candidates.
type Service struct {
	repo     Repository
	resolver RefResolver
	logger   *slog.Logger
}

// NewService constructs the eligibility service.
func NewService(repo Repository, resolver RefResolver, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, resolver: resolver, logger: logger}
}

// Eligible returns the enriched candidates clearing the filter thresholds.
// A candidate whose directory record is gone keeps empty display fields; the
// candidate itself is never dropped.
func (s *Service) Eligible(ctx context.Context, filter EligibilityFilter) ([]Candidate, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultScanLimit
	}
	if filter.Limit > maxScanLimit {
		filter.Limit = maxScanLimit
	}
	candidates, err := s.repo.ScanCandidates(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return []Candidate{}, nil
	}

	ids := make([]uuid.UUID, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.UserID)
	}
	refs, err := s.resolver.ResolveRefs(ctx, ids)
	if err != nil {
		// The scan result is still valid without display names.
		s.logger.Warn("candidate enrichment failed", slog.Any("error", err))
		return candidates, nil
	}
	for i := range candidates {
		if ref, ok := refs[candidates[i].UserID]; ok {
			candidates[i].Username = ref.Username
			candidates[i].Name = ref.Name
			candidates[i].Email = ref.Email
		}
	}
	return candidates, nil
}
