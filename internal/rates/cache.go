package rates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	DefaultCacheTTL = 30 * time.Second
	cacheKey        = "rates:current"
)

// Cache is the subset of the redis client CachedSource uses.
type Cache interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// CachedSource is a read-through redis cache in front of another Source.
// Redis failures are logged and fall through to the wrapped Source.
type CachedSource struct {
	next  Source
	cache Cache
	ttl   time.Duration
	log   zerolog.Logger
}

// NewCachedSource wraps next with a cache entry that lives for ttl.
func NewCachedSource(next Source, cache Cache, ttl time.Duration, log zerolog.Logger) *CachedSource {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedSource{next: next, cache: cache, ttl: ttl, log: log}
}

func (c *CachedSource) Current(ctx context.Context) (Snapshot, error) {
	raw, err := c.cache.Get(ctx, cacheKey).Result()
	switch {
	case err == nil:
		var snap Snapshot
		if err := json.Unmarshal([]byte(raw), &snap); err == nil {
			return snap, nil
		}
		c.log.Warn().Str("key", cacheKey).Msg("discarding undecodable cached rates")
	case errors.Is(err, redis.Nil):
	default:
		c.log.Warn().Err(err).Msg("rate cache read failed")
	}

	snap, err := c.next.Current(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	payload, err := json.Marshal(snap)
	if err != nil {
		return Snapshot{}, fmt.Errorf("encode rates for cache: %w", err)
	}
	if err := c.cache.Set(ctx, cacheKey, payload, c.ttl).Err(); err != nil {
		c.log.Warn().Err(err).Msg("rate cache write failed")
	}
	return snap, nil
}

// Invalidate drops the cached rates so the next Current call reads through.
func (c *CachedSource) Invalidate(ctx context.Context) error {
	if err := c.cache.Del(ctx, cacheKey).Err(); err != nil {
		return fmt.Errorf("invalidate rate cache: %w", err)
	}
	return nil
}
