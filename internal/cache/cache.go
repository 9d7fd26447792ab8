// Package cache keeps recent provider readings keyed by coordinate so repeated map
// clicks on the same spot do not hit the upstream APIs again.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/urbanize/urbanize-backend/internal/gateway/provider"
	"github.com/urbanize/urbanize-backend/internal/logger"
	"github.com/urbanize/urbanize-backend/internal/metrics"
)

// ErrMiss is returned by a Backend when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

// Backend stores opaque values with a time-to-live.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
}

// Key formats the cache key for a reading kind at a coordinate. Coordinates are
// rounded to four decimals (about 11 m).
func Key(kind string, at provider.Coordinates) string {
	return fmt.Sprintf("%s:%.4f:%.4f", kind, at.Lat, at.Lon)
}

// Cache is a typed view over a Backend. A nil *Cache or one without a backend
// passes every lookup straight through.
type Cache struct {
	backend Backend
	ttl     time.Duration
}

// New creates a Cache over b.
func New(b Backend, ttl time.Duration) *Cache {
	return &Cache{backend: b, ttl: ttl}
}

// Fetch returns the cached value for kind/at, or calls load and stores its result.
// Errors from load are returned as-is and never cached. Backend failures only cost a
// cache miss.
func Fetch[T any](ctx context.Context, c *Cache, kind string, at provider.Coordinates, load func(context.Context) (T, error)) (T, error) {
	if c == nil || c.backend == nil {
		return load(ctx)
	}

	key := Key(kind, at)
	if raw, err := c.backend.Get(ctx, key); err == nil {
		var v T
		if err := json.Unmarshal(raw, &v); err == nil {
			metrics.CacheHitsTotal.WithLabelValues(kind).Inc()
			return v, nil
		}
	} else if !errors.Is(err, ErrMiss) {
		logger.L().Warn("cache_get_failed", "key", key, "err", err)
	}
	metrics.CacheMissesTotal.WithLabelValues(kind).Inc()

	v, err := load(ctx)
	if err != nil {
		return v, err
	}
	if err := Store(ctx, c, kind, at, v); err != nil {
		logger.L().Warn("cache_set_failed", "key", key, "err", err)
	}
	return v, nil
}

// Store writes v for kind/at unconditionally.
func Store[T any](ctx context.Context, c *Cache, kind string, at provider.Coordinates, v T) error {
	if c == nil || c.backend == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", kind, err)
	}
	return c.backend.Set(ctx, Key(kind, at), raw, c.ttl)
}

// RedisBackend adapts a go-redis client.
type RedisBackend struct {
	rdb *redis.Client
}

// NewRedis connects to addr and verifies the connection with a PING.
func NewRedis(ctx context.Context, addr, password string, db int) (*RedisBackend, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return &RedisBackend{rdb: rdb}, nil
}

func (r *RedisBackend) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := r.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	return b, err
}

func (r *RedisBackend) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	return r.rdb.Set(ctx, key, val, ttl).Err()
}

// Close releases the connection pool.
func (r *RedisBackend) Close() error { return r.rdb.Close() }
