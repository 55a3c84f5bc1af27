// Package cancellation records cancel requests for in-flight ingestion runs.
// The processor polls it at batch boundaries.
package cancellation

import (
	"context"
	"errors"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// DefaultTTL bounds how long an unanswered request is remembered.
const DefaultTTL = time.Hour

const redisKeyPrefix = "docqa:cancel:"

type Registry interface {
	Request(ctx context.Context, documentID string) error
	IsRequested(ctx context.Context, documentID string) (bool, error)
	Clear(ctx context.Context, documentID string) error
}

type MemoryRegistry struct {
	cache *cache.Cache
}

func NewMemoryRegistry(ttl time.Duration) *MemoryRegistry {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryRegistry{cache: cache.New(ttl, 10*time.Minute)}
}

func (r *MemoryRegistry) Request(ctx context.Context, documentID string) error {
	r.cache.SetDefault(documentID, struct{}{})
	return nil
}

func (r *MemoryRegistry) IsRequested(ctx context.Context, documentID string) (bool, error) {
	_, found := r.cache.Get(documentID)
	return found, nil
}

func (r *MemoryRegistry) Clear(ctx context.Context, documentID string) error {
	r.cache.Delete(documentID)
	return nil
}

// RedisRegistry shares requests across instances, so the instance that
// receives the cancel call need not be the one running the job.
type RedisRegistry struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisRegistry(rdb redis.Cmdable, ttl time.Duration) *RedisRegistry {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisRegistry{rdb: rdb, ttl: ttl}
}

func (r *RedisRegistry) Request(ctx context.Context, documentID string) error {
	return r.rdb.Set(ctx, redisKeyPrefix+documentID, "1", r.ttl).Err()
}

func (r *RedisRegistry) IsRequested(ctx context.Context, documentID string) (bool, error) {
	err := r.rdb.Get(ctx, redisKeyPrefix+documentID).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *RedisRegistry) Clear(ctx context.Context, documentID string) error {
	return r.rdb.Del(ctx, redisKeyPrefix+documentID).Err()
}
