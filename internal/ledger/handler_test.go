package ledger

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T, store *memoryStore, cache *Cache) chi.Router {
	t.Helper()
	svc := NewService(store, testLogger(), 0)
	h := NewHandler(testLogger(), svc, cache, nil)
	r := chi.NewRouter()
	h.MountRoutes(r)
	return r
}

func TestHandlerGetReports(t *testing.T) {
	store, owner, _ := seedStore(t)
	router := newTestRouter(t, store, nil)

	req := httptest.NewRequest(http.MethodGet, "/reports?user_id="+owner.String()+"&type=daily_roi&limit=5&sort_by=amount:asc", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp reportResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 20, resp.Total)
	require.Equal(t, 4, resp.TotalPages)
	require.Len(t, resp.List, 5)
	require.False(t, resp.Degraded)
	require.Equal(t, "carol", resp.List[0].Username)
}

func TestHandlerPostReports(t *testing.T) {
	store, owner, _ := seedStore(t)
	router := newTestRouter(t, store, nil)

	body := `{"user_id":"` + owner.String() + `","filters":{"amount":{"min":25}},"limit":100}`
	req := httptest.NewRequest(http.MethodPost, "/reports", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp reportResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 6, resp.Total)
	for _, row := range resp.List {
		require.GreaterOrEqual(t, row.Amount, 25.0)
	}
}

func TestHandlerValidationErrors(t *testing.T) {
	store, _, _ := seedStore(t)
	router := newTestRouter(t, store, nil)

	req := httptest.NewRequest(http.MethodGet, "/reports?sort_by=bogus:asc", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "sort_by")

	req = httptest.NewRequest(http.MethodPost, "/reports", strings.NewReader(`{"user_id":"not-a-uuid"}`))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/reports", strings.NewReader(`{`))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerDegradedReport(t *testing.T) {
	store, owner, _ := seedStore(t)
	store.aggErr = errors.New("cursor timeout")
	router := newTestRouter(t, store, nil)

	req := httptest.NewRequest(http.MethodGet, "/reports?user_id="+owner.String(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp reportResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Degraded)
	require.Empty(t, resp.List)
	require.Equal(t, 30, resp.Total)
}

func TestHandlerCountFailure(t *testing.T) {
	store, owner, _ := seedStore(t)
	store.countErr = errors.New("count timeout")
	router := newTestRouter(t, store, nil)

	req := httptest.NewRequest(http.MethodGet, "/reports?user_id="+owner.String(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandlerCachesGetReports(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache := NewCache(client, 0)

	store, owner, _ := seedStore(t)
	router := newTestRouter(t, store, cache)

	target := "/reports?user_id=" + owner.String() + "&limit=5"
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	firstCalls := store.aggCalls

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, firstCalls, store.aggCalls)

	// Invalidation bumps the version so the next read recomputes.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/reports/invalidate", nil))
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, firstCalls+1, store.aggCalls)
}

func TestHandlerNeverCachesDegradedOrSearch(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache := NewCache(client, 0)

	store, owner, _ := seedStore(t)
	store.aggErr = errors.New("cursor timeout")
	router := newTestRouter(t, store, cache)

	target := "/reports?user_id=" + owner.String()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	// The pipeline recovers; the degraded response must not have been cached.
	store.aggErr = nil
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	var resp reportResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.False(t, resp.Degraded)
	require.NotEmpty(t, resp.List)

	// Search results bypass the cache entirely.
	calls := store.aggCalls
	search := "/reports?user_id=" + owner.String() + "&search=dave"
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, search, nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, search, nil))
	require.Equal(t, calls+2, store.aggCalls)
}
