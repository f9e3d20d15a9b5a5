package packages

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/stakeledger/stakeledger/internal/shared"
)

type memoryRepo struct {
	packages map[uuid.UUID]Package
	created  []Package
}

func (r *memoryRepo) List(ctx context.Context, filters ListFilters) ([]Package, int, error) {
	var out []Package
	for _, p := range r.packages {
		out = append(out, p)
	}
	return out, len(out), nil
}

func (r *memoryRepo) Get(ctx context.Context, id uuid.UUID) (Package, error) {
	p, ok := r.packages[id]
	if !ok {
		return Package{}, shared.ErrNotFound
	}
	return p, nil
}

func (r *memoryRepo) Create(ctx context.Context, pkg Package) (Package, error) {
	pkg.ID = uuid.New()
	if r.packages == nil {
		r.packages = map[uuid.UUID]Package{}
	}
	r.packages[pkg.ID] = pkg
	r.created = append(r.created, pkg)
	return pkg, nil
}

func (r *memoryRepo) Update(ctx context.Context, id uuid.UUID, pkg Package) error {
	if _, ok := r.packages[id]; !ok {
		return shared.ErrNotFound
	}
	pkg.ID = id
	r.packages[id] = pkg
	return nil
}

func (r *memoryRepo) Deactivate(ctx context.Context, id uuid.UUID) error {
	p, ok := r.packages[id]
	if !ok {
		return shared.ErrNotFound
	}
	p.IsActive = false
	r.packages[id] = p
	return nil
}

func TestServiceCreateNormalizesCode(t *testing.T) {
	repo := &memoryRepo{}
	svc := NewService(repo, nil)

	created, err := svc.Create(context.Background(), Package{
		Code:        " starter ",
		Name:        "Starter",
		MinAmount:   100,
		MaxAmount:   1000,
		DailyROIPct: 0.5,
	})
	require.NoError(t, err)
	require.Equal(t, "STARTER", created.Code)
}

func TestServiceCreateValidation(t *testing.T) {
	repo := &memoryRepo{}
	svc := NewService(repo, nil)

	cases := []struct {
		name string
		pkg  Package
	}{
		{name: "missing code", pkg: Package{Name: "X"}},
		{name: "missing name", pkg: Package{Code: "X"}},
		{name: "negative amount", pkg: Package{Code: "X", Name: "X", MinAmount: -1}},
		{name: "min above max", pkg: Package{Code: "X", Name: "X", MinAmount: 10, MaxAmount: 5}},
		{name: "roi out of range", pkg: Package{Code: "X", Name: "X", DailyROIPct: 120}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tc.pkg)
			require.Error(t, err)
			require.Empty(t, repo.created)
		})
	}
}

func TestServiceUpdateMissingPackage(t *testing.T) {
	repo := &memoryRepo{}
	svc := NewService(repo, nil)

	err := svc.Update(context.Background(), uuid.New(), Package{Code: "VIP", Name: "VIP"})
	require.ErrorIs(t, err, shared.ErrNotFound)
}
