package geocode

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
)

// Defaults for the in-memory result cache.
const (
	DefaultCacheTTL        = time.Hour
	DefaultCacheMaxEntries = 1000
)

// CacheStats contains cache performance statistics.
type CacheStats struct {
	Entries    int     `json:"entries"`
	MaxEntries int     `json:"max_entries"`
	Hits       int64   `json:"hits"`
	Misses     int64   `json:"misses"`
	HitRate    float64 `json:"hit_rate"`
}

// CachedClient wraps a Client with a concurrent-safe LRU cache whose entries
// expire after a TTL. Matches and misses are cached; errors are not.
type CachedClient struct {
	next       Client
	ttl        time.Duration
	maxEntries int
	lru        *expirable.LRU[string, Result]

	hits   atomic.Int64
	misses atomic.Int64
}

// NewCachedClient wraps next. Non-positive ttl or maxEntries use the defaults.
func NewCachedClient(next Client, ttl time.Duration, maxEntries int) *CachedClient {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if maxEntries <= 0 {
		maxEntries = DefaultCacheMaxEntries
	}
	return &CachedClient{
		next:       next,
		ttl:        ttl,
		maxEntries: maxEntries,
		lru:        expirable.NewLRU[string, Result](maxEntries, nil, ttl),
	}
}

func cacheKey(query string) string {
	h := sha256.Sum256([]byte(normalizeQuery(query)))
	return hex.EncodeToString(h[:])
}

// Geocode implements Client.
func (c *CachedClient) Geocode(ctx context.Context, query string) (*Result, error) {
	key := cacheKey(query)
	if r, ok := c.get(key); ok {
		zap.L().Debug("geocode cache hit", zap.String("key", key[:12]), zap.Bool("matched", r.Matched))
		return &r, nil
	}

	res, err := c.next.Geocode(ctx, query)
	if err != nil {
		return nil, err
	}
	if res != nil {
		c.put(key, *res)
	}
	return res, nil
}

func (c *CachedClient) get(key string) (Result, bool) {
	r, ok := c.lru.Get(key)
	if !ok {
		c.misses.Add(1)
		return Result{}, false
	}
	c.hits.Add(1)
	return r, true
}

func (c *CachedClient) put(key string, r Result) {
	c.lru.Add(key, r)
}

// Stats returns cache performance statistics.
func (c *CachedClient) Stats() CacheStats {
	entries := c.lru.Len()
	hits, misses := c.hits.Load(), c.misses.Load()
	var rate float64
	if total := hits + misses; total > 0 {
		rate = float64(hits) / float64(total)
	}
	return CacheStats{
		Entries:    entries,
		MaxEntries: c.maxEntries,
		Hits:       hits,
		Misses:     misses,
		HitRate:    rate,
	}
}
