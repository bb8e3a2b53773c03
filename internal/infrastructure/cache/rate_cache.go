// Package cache holds the short-lived rate caches used by the resolver
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/damon-houk/fx-route-engine/internal/domain/entity"
)

// DefaultTTL is how long a resolved rate is served from cache
const DefaultTTL = time.Hour

// CacheEntry represents a cached rate with its insertion time
type CacheEntry struct {
	Pair       entity.CurrencyPair
	Rate       float64
	InsertedAt time.Time
}

// RateCache provides a thread-safe in-memory cache for resolved rates.
// Entries are keyed by ordered pair, so USD/EUR never answers EUR/USD.
type RateCache struct {
	cache      map[entity.CurrencyPair]CacheEntry
	expiration time.Duration
	now        func() time.Time
	mutex      sync.RWMutex
}

// NewRateCache creates a new rate cache. A non-positive ttl uses DefaultTTL.
func NewRateCache(ttl time.Duration) *RateCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &RateCache{
		cache:      make(map[entity.CurrencyPair]CacheEntry),
		expiration: ttl,
		now:        time.Now,
	}
}

// WithClock replaces the time source, for tests
func (c *RateCache) WithClock(now func() time.Time) *RateCache {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.now = now
	return c
}

// Get retrieves a rate if present and not expired
func (c *RateCache) Get(_ context.Context, pair entity.CurrencyPair) (float64, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	entry, exists := c.cache[pair]
	if !exists || c.now().Sub(entry.InsertedAt) > c.expiration {
		return 0, false
	}

	return entry.Rate, true
}

// Put stores a rate for the pair
func (c *RateCache) Put(_ context.Context, pair entity.CurrencyPair, rate float64) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.cache[pair] = CacheEntry{
		Pair:       pair,
		Rate:       rate,
		InsertedAt: c.now(),
	}
}

// Invalidate removes a single pair
func (c *RateCache) Invalidate(_ context.Context, pair entity.CurrencyPair) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.cache, pair)
}

// Clear clears all entries from the cache
func (c *RateCache) Clear(_ context.Context) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.cache = make(map[entity.CurrencyPair]CacheEntry)
}

// Size returns the number of items in the cache, expired or not
func (c *RateCache) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return len(c.cache)
}

// CleanExpired removes expired entries from the cache
func (c *RateCache) CleanExpired() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	count := 0
	now := c.now()

	for key, entry := range c.cache {
		if now.Sub(entry.InsertedAt) > c.expiration {
			delete(c.cache, key)
			count++
		}
	}

	return count
}

// RunJanitor removes expired entries every interval until ctx is done
func (c *RateCache) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.CleanExpired()
		}
	}
}
