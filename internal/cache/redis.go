package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"

	"github.com/prompt-general/cscx/internal/config"
)

// RedisCache stores JSON values under a key prefix
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisCache(cfg config.RedisConfig, prefix string) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,

		// Connection pool settings
		PoolSize:        20,
		MinIdleConns:    2,
		ConnMaxLifetime: 30 * time.Minute,

		// Timeouts
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolTimeout:  4 * time.Second,

		MaxRetries:      3,
		MinRetryBackoff: 8 * time.Millisecond,
		MaxRetryBackoff: 512 * time.Millisecond,
	})

	ttl := cfg.TTL
	if ttl == 0 {
		ttl = 5 * time.Minute
	}

	return &RedisCache{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (rc *RedisCache) key(key string) string {
	return rc.prefix + ":" + key
}

// Get returns the raw cached bytes and whether the key was present
func (rc *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := rc.client.Get(ctx, rc.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrap(err, "redis get failed")
	}
	return data, true, nil
}

// Set stores raw bytes. A zero ttl uses the cache default.
func (rc *RedisCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = rc.ttl
	}

	if err := rc.client.Set(ctx, rc.key(key), data, ttl).Err(); err != nil {
		return eris.Wrap(err, "redis set failed")
	}

	return nil
}

func (rc *RedisCache) Delete(ctx context.Context, key string) error {
	return rc.client.Del(ctx, rc.key(key)).Err()
}

// GetJSON decodes a cached value into target
func (rc *RedisCache) GetJSON(ctx context.Context, key string, target any) (bool, error) {
	data, found, err := rc.Get(ctx, key)
	if err != nil || !found {
		return found, err
	}
	if err := json.Unmarshal(data, target); err != nil {
		return false, eris.Wrap(err, "failed to unmarshal cached data")
	}
	return true, nil
}

// Ping checks connectivity for health reporting
func (rc *RedisCache) Ping(ctx context.Context) error {
	return rc.client.Ping(ctx).Err()
}

func (rc *RedisCache) Close() error {
	return rc.client.Close()
}
