package cache

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Remote is the shared second tier, normally a RedisCache
type Remote interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Stats counts lookups across both tiers
type Stats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Errors int64 `json:"errors"`
}

// Layered is a read-through cache: an in-process tier in front of an optional
// shared remote tier. Values are stored as JSON so both tiers hold the same bytes.
type Layered struct {
	local     *gocache.Cache
	remote    Remote
	remoteTTL time.Duration

	hits   atomic.Int64
	misses atomic.Int64
	errors atomic.Int64
}

// NewLayered creates a layered cache. remote may be nil for a local-only cache.
func NewLayered(localTTL time.Duration, remote Remote, remoteTTL time.Duration) *Layered {
	return &Layered{
		local:     gocache.New(localTTL, 2*localTTL),
		remote:    remote,
		remoteTTL: remoteTTL,
	}
}

// Get decodes the cached value for key into target, promoting remote hits to
// the local tier. Remote failures count as misses.
func (l *Layered) Get(ctx context.Context, key string, target any) bool {
	if raw, ok := l.local.Get(key); ok {
		if err := json.Unmarshal(raw.([]byte), target); err == nil {
			l.hits.Add(1)
			return true
		}
		l.local.Delete(key)
	}

	if l.remote != nil {
		data, found, err := l.remote.Get(ctx, key)
		if err != nil {
			l.errors.Add(1)
			zap.L().Warn("cache: remote get failed", zap.String("key", key), zap.Error(err))
		} else if found {
			if err := json.Unmarshal(data, target); err == nil {
				l.local.Set(key, data, gocache.DefaultExpiration)
				l.hits.Add(1)
				return true
			}
		}
	}

	l.misses.Add(1)
	return false
}

// Set stores value in both tiers. Remote failures are logged, not returned.
func (l *Layered) Set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return eris.Wrapf(err, "cache: marshal %s", key)
	}
	l.local.Set(key, data, gocache.DefaultExpiration)

	if l.remote != nil {
		if err := l.remote.Set(ctx, key, data, l.remoteTTL); err != nil {
			l.errors.Add(1)
			zap.L().Warn("cache: remote set failed", zap.String("key", key), zap.Error(err))
		}
	}
	return nil
}

// Invalidate removes key from both tiers
func (l *Layered) Invalidate(ctx context.Context, key string) {
	l.local.Delete(key)
	if l.remote != nil {
		if err := l.remote.Delete(ctx, key); err != nil {
			zap.L().Warn("cache: remote delete failed", zap.String("key", key), zap.Error(err))
		}
	}
}

// Stats returns lookup counters
func (l *Layered) Stats() Stats {
	return Stats{
		Hits:   l.hits.Load(),
		Misses: l.misses.Load(),
		Errors: l.errors.Load(),
	}
}

// GetOrLoad returns the cached value for key or loads, stores and returns it.
// Load errors are returned and nothing is cached.
func GetOrLoad[T any](ctx context.Context, l *Layered, key string, load func(context.Context) (T, error)) (T, error) {
	var cached T
	if l.Get(ctx, key, &cached) {
		return cached, nil
	}

	value, err := load(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	if err := l.Set(ctx, key, value); err != nil {
		zap.L().Warn("cache: set failed", zap.String("key", key), zap.Error(err))
	}
	return value, nil
}
