package handler

import (
	"net/http"

	"github.com/Rrens/knowflow/internal/api/response"
	"github.com/Rrens/knowflow/internal/store"
)

// HealthCheck returns a simple health check response
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.OK(w, map[string]string{
		"status": "ok",
	})
}

// StateHandler exposes store snapshots
type StateHandler struct {
	app *store.App
}

// NewStateHandler creates a new state handler
func NewStateHandler(app *store.App) *StateHandler {
	return &StateHandler{app: app}
}

// Get returns every store's current state in one payload
func (h *StateHandler) Get(w http.ResponseWriter, r *http.Request) {
	response.OK(w, map[string]any{
		"auth":      h.app.Auth.Snapshot(),
		"documents": h.app.Documents.Snapshot(),
		"chat":      h.app.Chat.Snapshot(),
	})
}
