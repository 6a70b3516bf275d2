// Package repository opens the durable key-value store that holds the
// client's bearer token.
package repository

import (
	"context"
	"fmt"

	"github.com/Rrens/knowflow/internal/config"
	"github.com/Rrens/knowflow/internal/domain"
	"github.com/Rrens/knowflow/internal/repository/file"
	"github.com/Rrens/knowflow/internal/repository/memory"
	"github.com/Rrens/knowflow/internal/repository/redis"
	"github.com/Rrens/knowflow/internal/repository/sqlite"
	"github.com/Rrens/knowflow/internal/security"
)

// Open builds the store selected by cfg.Storage.Driver. When a token secret is
// configured, values are encrypted before they reach the backend.
func Open(ctx context.Context, cfg *config.Config) (domain.KeyValueStore, error) {
	var kv domain.KeyValueStore

	switch cfg.Storage.Driver {
	case "", "file":
		s, err := file.NewKV(cfg.Storage.Path)
		if err != nil {
			return nil, err
		}
		kv = s
	case "sqlite":
		s, err := sqlite.NewKV(cfg.Storage.Path)
		if err != nil {
			return nil, err
		}
		kv = s
	case "redis":
		client, err := redis.NewClient(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		kv = redis.NewKV(client, cfg.Redis.Prefix)
	case "memory":
		kv = memory.NewKV()
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}

	if cfg.Security.TokenSecret == "" {
		return kv, nil
	}

	encryptor, err := security.NewEncryptorFromSecret(cfg.Security.TokenSecret)
	if err != nil {
		kv.Close()
		return nil, fmt.Errorf("failed to init token encryption: %w", err)
	}
	return NewEncrypted(kv, encryptor), nil
}
