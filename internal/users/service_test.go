package users

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/stakeledger/stakeledger/internal/shared"
)

type memoryRepo struct {
	users map[uuid.UUID]User

	lastFilters ListFilters
	resolvedIDs []uuid.UUID
}

func (r *memoryRepo) List(ctx context.Context, filters ListFilters) ([]User, int, error) {
	r.lastFilters = filters
	var out []User
	for _, u := range r.users {
		out = append(out, u)
	}
	return out, len(out), nil
}

func (r *memoryRepo) Get(ctx context.Context, id uuid.UUID) (User, error) {
	u, ok := r.users[id]
	if !ok {
		return User{}, shared.ErrNotFound
	}
	return u, nil
}

func (r *memoryRepo) ResolveRefs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Ref, error) {
	r.resolvedIDs = ids
	refs := make(map[uuid.UUID]Ref)
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			refs[id] = u.Ref()
		}
	}
	return refs, nil
}

func TestServiceListDefaultsPaging(t *testing.T) {
	repo := &memoryRepo{users: map[uuid.UUID]User{}}
	svc := NewService(repo, nil)

	list, paging, err := svc.List(context.Background(), ListFilters{Limit: -5})
	require.NoError(t, err)
	require.NotNil(t, list)
	require.Equal(t, 1, repo.lastFilters.Page)
	require.Equal(t, 20, repo.lastFilters.Limit)
	require.Equal(t, 1, paging.Page)
}

func TestServiceResolveRefs(t *testing.T) {
	known := uuid.New()
	repo := &memoryRepo{users: map[uuid.UUID]User{
		known: {ID: known, Username: "carol", Name: "Carol Webb", Email: "carol@example.com"},
	}}
	svc := NewService(repo, nil)

	missing := uuid.New()
	refs, err := svc.ResolveRefs(context.Background(), []uuid.UUID{known, known, missing, uuid.Nil})
	require.NoError(t, err)
	// Duplicates and the nil id collapse before hitting the store.
	require.Len(t, repo.resolvedIDs, 2)
	require.Len(t, refs, 1)
	require.Equal(t, "carol", refs[known].Username)
	_, ok := refs[missing]
	require.False(t, ok)
}

func TestServiceGetNotFound(t *testing.T) {
	repo := &memoryRepo{users: map[uuid.UUID]User{}}
	svc := NewService(repo, nil)

	_, err := svc.Get(context.Background(), uuid.New())
	require.ErrorIs(t, err, shared.ErrNotFound)
}
