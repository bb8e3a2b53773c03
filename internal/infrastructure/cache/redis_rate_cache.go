package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/damon-houk/fx-route-engine/internal/domain/entity"
	"github.com/damon-houk/fx-route-engine/internal/infrastructure/logger"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "fx_rate:"

// RedisRateCache shares resolved rates between service instances. Expiry is
// delegated to Redis key TTLs. Redis errors are logged and reported as misses.
type RedisRateCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
	logger logger.Logger
}

// NewRedisRateCache creates a Redis-backed rate cache
func NewRedisRateCache(client *redis.Client, ttl time.Duration, log logger.Logger) *RedisRateCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if log == nil {
		log = logger.GetDefaultLogger()
	}

	return &RedisRateCache{
		client: client,
		ttl:    ttl,
		prefix: redisKeyPrefix,
		logger: log,
	}
}

func (c *RedisRateCache) key(pair entity.CurrencyPair) string {
	return c.prefix + pair.Base + ":" + pair.Quote
}

// Get retrieves a rate if present
func (c *RedisRateCache) Get(ctx context.Context, pair entity.CurrencyPair) (float64, bool) {
	val, err := c.client.Get(ctx, c.key(pair)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("Redis rate cache read failed", map[string]interface{}{
				"pair":  pair.String(),
				"error": err.Error(),
			})
		}
		return 0, false
	}

	rate, err := strconv.ParseFloat(val, 64)
	if err != nil || rate <= 0 {
		return 0, false
	}

	return rate, true
}

// Put stores a rate with the cache TTL
func (c *RedisRateCache) Put(ctx context.Context, pair entity.CurrencyPair, rate float64) {
	val := strconv.FormatFloat(rate, 'g', -1, 64)
	if err := c.client.Set(ctx, c.key(pair), val, c.ttl).Err(); err != nil {
		c.logger.Warn("Redis rate cache write failed", map[string]interface{}{
			"pair":  pair.String(),
			"error": err.Error(),
		})
	}
}

// Invalidate removes a single pair
func (c *RedisRateCache) Invalidate(ctx context.Context, pair entity.CurrencyPair) {
	if err := c.client.Del(ctx, c.key(pair)).Err(); err != nil {
		c.logger.Warn("Redis rate cache delete failed", map[string]interface{}{
			"pair":  pair.String(),
			"error": err.Error(),
		})
	}
}

// Clear removes every cached rate under the cache prefix
func (c *RedisRateCache) Clear(ctx context.Context) {
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.logger.Warn("Redis rate cache scan failed", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("Redis rate cache clear failed", map[string]interface{}{
			"error": err.Error(),
			"keys":  len(keys),
		})
	}
}
