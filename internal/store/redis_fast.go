package store

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisFast adapts a go-redis client to the FastStore interface
type RedisFast struct {
	rdb *redis.Client
}

// NewRedisFast wraps an initialized Redis client
func NewRedisFast(rdb *redis.Client) *RedisFast {
	return &RedisFast{rdb: rdb}
}

// Set writes a key with an expiry
func (f *RedisFast) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return f.rdb.Set(ctx, key, value, ttl).Err()
}

// Get reads a key, returning ErrCacheMiss when it does not exist
func (f *RedisFast) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := f.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}
	return data, nil
}

// Del removes a key
func (f *RedisFast) Del(ctx context.Context, key string) error {
	return f.rdb.Del(ctx, key).Err()
}

// IndexAdd inserts a member into a sorted set
func (f *RedisFast) IndexAdd(ctx context.Context, key string, score float64, member string) error {
	return f.rdb.ZAdd(ctx, key, redis.Z{Score: score, Member: member}).Err()
}

// IndexRevRange reads members by descending score
func (f *RedisFast) IndexRevRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	return f.rdb.ZRevRange(ctx, key, start, stop).Result()
}

// IndexRem removes a member from a sorted set
func (f *RedisFast) IndexRem(ctx context.Context, key string, member string) error {
	return f.rdb.ZRem(ctx, key, member).Err()
}
