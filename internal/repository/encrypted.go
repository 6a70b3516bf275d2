package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/Rrens/knowflow/internal/domain"
	"github.com/Rrens/knowflow/internal/security"
)

const sealedPrefix = "enc:v1:"

// Encrypted seals values with AES-GCM before handing them to the wrapped
// store. Values written before encryption was enabled are returned as is.
type Encrypted struct {
	inner     domain.KeyValueStore
	encryptor *security.Encryptor
}

// NewEncrypted wraps inner with value encryption
func NewEncrypted(inner domain.KeyValueStore, encryptor *security.Encryptor) *Encrypted {
	return &Encrypted{inner: inner, encryptor: encryptor}
}

func (e *Encrypted) Get(ctx context.Context, key string) (string, bool, error) {
	value, ok, err := e.inner.Get(ctx, key)
	if err != nil || !ok {
		return value, ok, err
	}

	sealed, found := strings.CutPrefix(value, sealedPrefix)
	if !found {
		return value, true, nil
	}

	plain, err := e.encryptor.DecryptString(sealed)
	if err != nil {
		return "", false, fmt.Errorf("failed to open %q: %w", key, err)
	}
	return plain, true, nil
}

func (e *Encrypted) Set(ctx context.Context, key, value string) error {
	sealed, err := e.encryptor.EncryptString(value)
	if err != nil {
		return fmt.Errorf("failed to seal %q: %w", key, err)
	}
	return e.inner.Set(ctx, key, sealedPrefix+sealed)
}

func (e *Encrypted) Delete(ctx context.Context, key string) error {
	return e.inner.Delete(ctx, key)
}

func (e *Encrypted) Close() error {
	return e.inner.Close()
}
