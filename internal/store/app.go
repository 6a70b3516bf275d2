package store

import (
	"context"

	"github.com/Rrens/knowflow/internal/domain"
)

// API is everything the stores need from the remote service
type API interface {
	domain.AuthAPI
	domain.DocumentAPI
	domain.ChatAPI
}

// App is the application state container handed to every view. Stores share
// one API client and one token repository.
type App struct {
	Auth      *AuthStore
	Documents *DocumentStore
	Chat      *ChatStore
}

// NewApp builds the stores
func NewApp(api API, tokens domain.KeyValueStore) *App {
	return &App{
		Auth:      NewAuthStore(api, tokens),
		Documents: NewDocumentStore(api),
		Chat:      NewChatStore(api),
	}
}

// Start restores the signed-in user when a token was left by an earlier run
func (a *App) Start(ctx context.Context) {
	if _, ok := a.Auth.Token(ctx); !ok {
		return
	}
	a.Auth.GetProfile(ctx)
}
