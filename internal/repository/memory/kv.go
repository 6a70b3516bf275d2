package memory

import (
	"context"

	"github.com/patrickmn/go-cache"
)

// KV is a process-local key-value store. Values never expire; it backs tests
// and the `memory` storage driver, where a token lives only as long as the
// process.
type KV struct {
	cache *cache.Cache
}

// NewKV creates an empty in-memory store
func NewKV() *KV {
	return &KV{cache: cache.New(cache.NoExpiration, 0)}
}

func (s *KV) Get(ctx context.Context, key string) (string, bool, error) {
	if x, found := s.cache.Get(key); found {
		return x.(string), true, nil
	}
	return "", false, nil
}

func (s *KV) Set(ctx context.Context, key, value string) error {
	s.cache.Set(key, value, cache.NoExpiration)
	return nil
}

func (s *KV) Delete(ctx context.Context, key string) error {
	s.cache.Delete(key)
	return nil
}

func (s *KV) Close() error {
	return nil
}
