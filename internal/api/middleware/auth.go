package middleware

import (
	"net/http"

	"github.com/Rrens/knowflow/internal/api/response"
	"github.com/Rrens/knowflow/internal/store"
)

// AuthMiddleware guards routes that need a signed-in user
type AuthMiddleware struct {
	auth *store.AuthStore
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(auth *store.AuthStore) *AuthMiddleware {
	return &AuthMiddleware{auth: auth}
}

// Authenticate rejects the request unless the auth store holds a signed-in
// user. The remote API still validates the token on every call.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.auth.Snapshot().IsAuthenticated {
			response.Unauthorized(w, "not signed in")
			return
		}
		next.ServeHTTP(w, r)
	})
}
