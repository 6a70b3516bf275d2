package domain

import "context"

// TokenKey is the durable slot holding the bearer token
const TokenKey = "token"

// KeyValueStore defines the durable local key-value storage
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}
