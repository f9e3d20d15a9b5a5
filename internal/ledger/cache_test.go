package ledger

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, 0)
}

func TestCacheRequestKeyDeterministic(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	// Map iteration order must not leak into the key.
	a := ReportRequest{Filters: map[string]FilterValue{
		"amount": {Min: f64(1)},
		"level":  {Eq: f64(2)},
	}}
	b := ReportRequest{Filters: map[string]FilterValue{
		"level":  {Eq: f64(2)},
		"amount": {Min: f64(1)},
	}}
	keyA, err := cache.RequestKey(ctx, a)
	require.NoError(t, err)
	keyB, err := cache.RequestKey(ctx, b)
	require.NoError(t, err)
	require.Equal(t, keyA, keyB)

	c := a
	c.Page = 2
	keyC, err := cache.RequestKey(ctx, c)
	require.NoError(t, err)
	require.NotEqual(t, keyA, keyC)
}

func TestCacheBumpChangesKeys(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()
	req := ReportRequest{Search: "dave"}

	before, err := cache.RequestKey(ctx, req)
	require.NoError(t, err)
	require.NoError(t, cache.Bump(ctx))
	after, err := cache.RequestKey(ctx, req)
	require.NoError(t, err)
	require.NotEqual(t, before, after)
}

func TestCacheRoundTrip(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	stored := reportResponse{Page: 1, Limit: 20, Total: 3, TotalPages: 1}
	require.NoError(t, cache.SetJSON(ctx, "ledger:report:test", stored))

	var loaded reportResponse
	hit, err := cache.GetJSON(ctx, "ledger:report:test", &loaded)
	require.NoError(t, err)
	require.True(t, hit)
	require.Equal(t, stored.Total, loaded.Total)

	hit, err = cache.GetJSON(ctx, "ledger:report:missing", &loaded)
	require.NoError(t, err)
	require.False(t, hit)
}

func TestCacheNilIsNoop(t *testing.T) {
	var cache *Cache
	ctx := context.Background()

	key, err := cache.RequestKey(ctx, ReportRequest{})
	require.NoError(t, err)
	require.NotEmpty(t, key)

	require.NoError(t, cache.SetJSON(ctx, key, reportResponse{}))
	hit, err := cache.GetJSON(ctx, key, &reportResponse{})
	require.NoError(t, err)
	require.False(t, hit)
	require.Error(t, cache.Bump(ctx))
}
