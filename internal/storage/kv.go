package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// KVStore is the key-value table boundary used for idempotency records.
// Implementations report a missing key as (nil, false, nil); infrastructure
// failures surface as errors for the caller to collapse per its fail-open
// policy.
type KVStore interface {
	// Get returns the value stored at key, if any.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Put stores value at key. A positive ttl expires the entry; expiry is
	// advisory cleanup, not a correctness mechanism.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// RedisKV is a redis-backed KVStore.
type RedisKV struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisKV creates a KVStore over an existing redis client. All keys are
// namespaced under prefix.
func NewRedisKV(client redis.UniversalClient, prefix string) *RedisKV {
	return &RedisKV{client: client, prefix: prefix}
}

func (s *RedisKV) key(key string) string {
	if s.prefix == "" {
		return key
	}
	return fmt.Sprintf("%s:%s", s.prefix, key)
}

// Get fetches the value at key.
func (s *RedisKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("kv get %s: %w", key, err)
	}
	return val, true, nil
}

// Put stores value at key with the given ttl.
func (s *RedisKV) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("kv put %s: %w", key, err)
	}
	return nil
}
