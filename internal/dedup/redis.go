package dedup

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "arbiter:seen:"

// RedisConfig holds connection parameters for the Redis seen-set.
type RedisConfig struct {
	Addr       string
	Password   string
	DB         int
	PoolSize   int
	MaxRetries int
	TLSEnabled bool
}

// Redis is a seen-set backed by Redis SET NX EX, letting several engine
// instances share one dedup window.
type Redis struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedis connects to Redis, pings it to verify connectivity, and returns
// the seen-set.
func NewRedis(ctx context.Context, cfg RedisConfig, ttl time.Duration) (*Redis, error) {
	opts := &redis.Options{
		Addr:       cfg.Addr,
		Password:   cfg.Password,
		DB:         cfg.DB,
		PoolSize:   cfg.PoolSize,
		MaxRetries: cfg.MaxRetries,
	}
	if cfg.TLSEnabled {
		opts.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("dedup: redis ping: %w", err)
	}
	return &Redis{rdb: rdb, ttl: ttl}, nil
}

// Seen atomically records signature with the TTL and reports whether it was
// already present. SET NX returns false when the key exists, so a single
// round trip both checks and marks.
func (r *Redis) Seen(ctx context.Context, signature string) (bool, error) {
	set, err := r.rdb.SetNX(ctx, redisKeyPrefix+signature, 1, r.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedup: redis setnx: %w", err)
	}
	return !set, nil
}

// Close closes the Redis connection.
func (r *Redis) Close() error {
	return r.rdb.Close()
}
