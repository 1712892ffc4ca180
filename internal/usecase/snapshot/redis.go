package snapshot

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// RedisKV adapts a go-redis client to the KV surface.
type RedisKV struct {
	client redis.Cmdable
}

// NewRedisKV wraps the given client.
func NewRedisKV(client redis.Cmdable) *RedisKV {
	return &RedisKV{client: client}
}

// Set stores the value without expiry; snapshots are overwritten in place.
func (r *RedisKV) Set(ctx context.Context, key string, value []byte) error {
	return r.client.Set(ctx, key, value, 0).Err()
}

// Get returns nil, nil for a missing key.
func (r *RedisKV) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}
