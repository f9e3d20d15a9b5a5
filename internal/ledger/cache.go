package ledger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheVersionKey = "ledger:report:version"

// Cache is an explicit, injected report cache with TTL. It is layered
// outside the reporting core: the service always computes fresh, and callers
// that tolerate staleness opt in through this collaborator. A nil Cache is
// a no-op.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Version returns the current cache version, initialising when missing.
func (c *Cache) Version(ctx context.Context) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	ver, err := c.client.Get(ctx, cacheVersionKey).Int64()
	if err == redis.Nil {
		if err := c.client.Set(ctx, cacheVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	if ver <= 0 {
		ver = 1
		if err := c.client.Set(ctx, cacheVersionKey, ver, 0).Err(); err != nil {
			return 0, err
		}
	}
	return ver, nil
}

// RequestKey derives the versioned cache key for a report request. The key
// hashes the canonical JSON form of the request, so identical requests share
// an entry and any difference produces a distinct key.
func (c *Cache) RequestKey(ctx context.Context, req ReportRequest) (string, error) {
	raw, err := json.Marshal(canonicalRequest(req))
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	key := "ledger:report:" + hex.EncodeToString(sum[:16])
	if c == nil || c.client == nil {
		return key, nil
	}
	ver, err := c.Version(ctx)
	if err != nil {
		return "", err
	}
	return key + ":" + strconv.FormatInt(ver, 10), nil
}

// GetJSON loads a cached value into dest, reporting whether it was present.
func (c *Cache) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	if c == nil || c.client == nil {
		return false, nil
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON stores a value under the key with the configured TTL.
func (c *Cache) SetJSON(ctx context.Context, key string, value any) error {
	if c == nil || c.client == nil {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, raw, c.ttl).Err()
}

// Bump invalidates every cached report by incrementing the version.
func (c *Cache) Bump(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errors.New("ledger: cache not configured")
	}
	return c.client.Incr(ctx, cacheVersionKey).Err()
}

// canonicalRequest strips map ordering effects so the key is deterministic.
type canonicalFilter struct {
	Field string   `json:"field"`
	Eq    *float64 `json:"eq,omitempty"`
	Min   *float64 `json:"min,omitempty"`
	Max   *float64 `json:"max,omitempty"`
}

type canonicalReq struct {
	Owner    string            `json:"owner"`
	Kind     string            `json:"kind"`
	Exact    bool              `json:"exact"`
	Status   *bool             `json:"status"`
	DateFrom *time.Time        `json:"date_from"`
	DateTo   *time.Time        `json:"date_to"`
	Filters  []canonicalFilter `json:"filters"`
	Search   string            `json:"search"`
	SortBy   string            `json:"sort_by"`
	Page     int               `json:"page"`
	Limit    int               `json:"limit"`
}

func canonicalRequest(req ReportRequest) canonicalReq {
	ranges, _ := buildRanges(req.Filters)
	filters := make([]canonicalFilter, 0, len(ranges))
	for _, rng := range ranges {
		filters = append(filters, canonicalFilter{Field: rng.Field, Eq: rng.Eq, Min: rng.Min, Max: rng.Max})
	}
	return canonicalReq{
		Owner:    req.OwnerID,
		Kind:     req.Kind,
		Exact:    req.ExactKindMatch,
		Status:   req.Status,
		DateFrom: req.DateFrom,
		DateTo:   req.DateTo,
		Filters:  filters,
		Search:   req.Search,
		SortBy:   req.SortBy,
		Page:     req.Page,
		Limit:    req.Limit,
	}
}
