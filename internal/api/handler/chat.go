package handler

import (
	"encoding/json"
	"net/http"

	"github.com/Rrens/knowflow/internal/api/response"
	"github.com/Rrens/knowflow/internal/domain"
	"github.com/Rrens/knowflow/internal/store"
)

// ChatHandler handles chat turns and the document scope
type ChatHandler struct {
	chat *store.ChatStore
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chat *store.ChatStore) *ChatHandler {
	return &ChatHandler{chat: chat}
}

// Send posts one message. Without session_id it goes to the current session,
// creating one if needed; without document_ids the saved selection is used.
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req domain.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := validate.Struct(req); err != nil {
		response.BadRequest(w, validationErrors(err))
		return
	}

	if req.DocumentIDs == nil {
		req.DocumentIDs = h.chat.SelectedDocuments()
	}

	var resp *domain.ChatResponse
	if req.SessionID == "" {
		resp = h.chat.SendFirstMessage(r.Context(), req.Query, req.DocumentIDs)
	} else {
		resp = h.chat.SendMessage(r.Context(), req.Query, req.SessionID, req.DocumentIDs)
	}
	if resp == nil {
		response.StoreFailure(w, h.chat.Snapshot().Error, "Failed to send message")
		return
	}

	response.OK(w, resp)
}

type selectionInput struct {
	DocumentIDs []string `json:"document_ids"`
}

// SetSelection replaces the document scope for later messages
func (h *ChatHandler) SetSelection(w http.ResponseWriter, r *http.Request) {
	var input selectionInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	h.chat.SetSelectedDocuments(input.DocumentIDs)
	response.OK(w, map[string]any{
		"document_ids": h.chat.SelectedDocuments(),
	})
}
