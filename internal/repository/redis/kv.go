package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// KV stores values as plain Redis strings under a common prefix, so several
// tools can share one Redis database.
type KV struct {
	client *Client
	prefix string
}

// NewKV creates a Redis-backed key-value store
func NewKV(client *Client, prefix string) *KV {
	return &KV{client: client, prefix: prefix}
}

func (s *KV) key(key string) string {
	return s.prefix + key
}

func (s *KV) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.rdb.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get %q: %w", key, err)
	}
	return value, true, nil
}

func (s *KV) Set(ctx context.Context, key, value string) error {
	if err := s.client.rdb.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("failed to set %q: %w", key, err)
	}
	return nil
}

func (s *KV) Delete(ctx context.Context, key string) error {
	if err := s.client.rdb.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete %q: %w", key, err)
	}
	return nil
}

func (s *KV) Close() error {
	return s.client.Close()
}
