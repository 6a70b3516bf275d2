package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/Rrens/knowflow/internal/api/response"
	"github.com/Rrens/knowflow/internal/domain"
	"github.com/Rrens/knowflow/internal/store"
	"github.com/go-chi/chi/v5"
)

// SessionHandler handles chat session endpoints
type SessionHandler struct {
	chat *store.ChatStore
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(chat *store.ChatStore) *SessionHandler {
	return &SessionHandler{chat: chat}
}

// List refreshes the session list
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	if !h.chat.FetchSessions(r.Context()) {
		response.StoreFailure(w, h.chat.Snapshot().Error, "Failed to fetch sessions")
		return
	}
	response.OK(w, h.chat.Snapshot().Sessions)
}

// Create creates a session; an empty title gets the next "Chat N" name
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input domain.SessionCreate
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil && err != io.EOF {
		response.BadRequest(w, "invalid request body")
		return
	}
	if input.Title == "" {
		input.Title = h.chat.NextSessionTitle()
	}

	session := h.chat.CreateSession(r.Context(), input.Title)
	if session == nil {
		response.StoreFailure(w, h.chat.Snapshot().Error, "Failed to create session")
		return
	}

	response.Created(w, session)
}

// Select makes a session current and loads its transcript
func (h *SessionHandler) Select(w http.ResponseWriter, r *http.Request) {
	sessionID := domain.ID(chi.URLParam(r, "sessionID"))

	summary := domain.ChatSession{ID: sessionID}
	for _, s := range h.chat.Snapshot().Sessions {
		if s.ID == sessionID {
			summary = s
			break
		}
	}

	if !h.chat.SelectSession(r.Context(), summary) {
		response.StoreFailure(w, h.chat.Snapshot().Error, "Failed to fetch session messages")
		return
	}

	response.OK(w, h.chat.Snapshot().CurrentSession)
}

// Rename changes a session title
func (h *SessionHandler) Rename(w http.ResponseWriter, r *http.Request) {
	var input domain.SessionRename
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := validate.Struct(input); err != nil {
		response.BadRequest(w, validationErrors(err))
		return
	}

	sessionID := domain.ID(chi.URLParam(r, "sessionID"))
	if !h.chat.RenameSession(r.Context(), sessionID, input.NewTitle) {
		response.StoreFailure(w, h.chat.Snapshot().Error, "Failed to rename chat session")
		return
	}

	response.OK(w, map[string]any{
		"session_id": sessionID,
		"new_title":  input.NewTitle,
	})
}

// Delete removes a session
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sessionID := domain.ID(chi.URLParam(r, "sessionID"))
	if !h.chat.DeleteSession(r.Context(), sessionID) {
		response.StoreFailure(w, h.chat.Snapshot().Error, "Failed to delete session")
		return
	}

	response.OK(w, map[string]string{
		"message": "session deleted",
	})
}
