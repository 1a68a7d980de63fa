package redis

import (
	"context"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/claimscope/claimscope/internal/infrastructure/monitoring/logging"
	"github.com/claimscope/claimscope/pkg/errors"
)

// ResultCache stores serialized engine responses. It satisfies the engine's
// cache port: misses are reported via the boolean, errors are reserved for
// transport problems.
type ResultCache struct {
	client     *Client
	logger     logging.Logger
	prefix     string
	defaultTTL time.Duration
}

// CacheOption customizes a ResultCache.
type CacheOption func(*ResultCache)

// WithPrefix overrides the key namespace.
func WithPrefix(prefix string) CacheOption {
	return func(c *ResultCache) { c.prefix = prefix }
}

// WithDefaultTTL sets the TTL used when Set receives zero.
func WithDefaultTTL(ttl time.Duration) CacheOption {
	return func(c *ResultCache) { c.defaultTTL = ttl }
}

// NewResultCache wraps a connected client as a result cache.
func NewResultCache(client *Client, log logging.Logger, opts ...CacheOption) *ResultCache {
	c := &ResultCache{
		client:     client,
		logger:     log,
		prefix:     "claimscope:",
		defaultTTL: 15 * time.Minute,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *ResultCache) fullKey(key string) string {
	return c.prefix + key
}

// jitterTTL spreads expirations +/-10% so identical requests issued in a
// burst do not all expire in the same instant.
func (c *ResultCache) jitterTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return 0
	}
	jitter := float64(ttl) * 0.1 * (rand.Float64()*2 - 1)
	return ttl + time.Duration(jitter)
}

// Get returns the stored bytes for key. A missing key is (nil, false, nil).
func (c *ResultCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, c.fullKey(key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, errors.ErrCodeCacheError, "cache get")
	}
	return data, true, nil
}

// Set stores value under key. Zero ttl falls back to the default.
func (c *ResultCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	if err := c.client.Set(ctx, c.fullKey(key), value, c.jitterTTL(ttl)).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "cache set")
	}
	return nil
}

// Invalidate removes every key under the cache prefix with the given
// sub-prefix, e.g. "search:". Returns the number of keys removed.
func (c *ResultCache) Invalidate(ctx context.Context, subPrefix string) (int64, error) {
	var deleted int64
	var cursor uint64
	match := c.fullKey(subPrefix) + "*"
	for {
		keys, next, err := c.client.Scan(ctx, cursor, match, 100).Result()
		if err != nil {
			return deleted, errors.Wrap(err, errors.ErrCodeCacheError, "cache scan")
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return deleted, errors.Wrap(err, errors.ErrCodeCacheError, "cache delete")
			}
			deleted += int64(len(keys))
		}
		cursor = next
		if cursor == 0 {
			c.logger.Debug("result cache invalidated",
				logging.String("match", match), logging.Int64("deleted", deleted))
			return deleted, nil
		}
	}
}

// Ping reports cache health for readiness probes.
func (c *ResultCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx)
}
