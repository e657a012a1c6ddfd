package geocode

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/okian/eventdex/internal/domain/model"
)

// CacheEntry is one cached geocode outcome. A nil Coordinate is a cached
// "not found" and is honoured like a hit.
type CacheEntry struct {
	Query      string
	Coordinate *model.Coordinate
	ExpiresAt  time.Time
}

// Cache stores geocode outcomes keyed by CacheKey.
type Cache interface {
	Get(ctx context.Context, key string) (CacheEntry, bool)
	Set(ctx context.Context, key string, entry CacheEntry)
	Len() int
}

// NormalizeQuery lowercases, trims and collapses whitespace so trivially
// different spellings share a cache entry.
func NormalizeQuery(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}

// CacheKey returns the stable key for a query.
func CacheKey(q string) string {
	return strconv.FormatUint(xxhash.Sum64String(NormalizeQuery(q)), 16)
}

// MemoryCache is a bounded LRU with per-entry expiry.
type MemoryCache struct {
	mu    sync.Mutex
	lru   *lru.Cache[string, CacheEntry]
	clock func() time.Time
}

// MemoryCacheOption configures a MemoryCache.
type MemoryCacheOption func(*MemoryCache)

// WithCacheClock overrides time.Now for expiry checks.
func WithCacheClock(now func() time.Time) MemoryCacheOption {
	return func(c *MemoryCache) {
		if now != nil {
			c.clock = now
		}
	}
}

// NewMemoryCache creates a cache holding at most size entries.
func NewMemoryCache(size int, opts ...MemoryCacheOption) (*MemoryCache, error) {
	if size <= 0 {
		size = 10_000
	}
	l, err := lru.New[string, CacheEntry](size)
	if err != nil {
		return nil, err
	}
	c := &MemoryCache{lru: l, clock: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Get returns a non-expired entry. Expired entries are evicted on read.
func (c *MemoryCache) Get(_ context.Context, key string) (CacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.lru.Get(key)
	if !ok {
		return CacheEntry{}, false
	}
	if !c.clock().Before(e.ExpiresAt) {
		c.lru.Remove(key)
		return CacheEntry{}, false
	}
	return e, true
}

// Set stores entry under key, evicting the least recently used entry when full.
func (c *MemoryCache) Set(_ context.Context, key string, entry CacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(key, entry)
}

// Len returns the number of entries, expired ones included until read.
func (c *MemoryCache) Len() int {
	return c.lru.Len()
}
