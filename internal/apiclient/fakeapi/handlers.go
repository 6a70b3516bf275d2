package fakeapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Rrens/knowflow/internal/domain"
	"github.com/go-chi/chi/v5"
)

type ctxKey struct{}

func withUser(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, ctxKey{}, email)
}

func userEmail(ctx context.Context) string {
	email, _ := ctx.Value(ctxKey{}).(string)
	return email
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"detail": []map[string]any{{
				"loc":  []string{"body"},
				"msg":  "Invalid JSON body",
				"type": "value_error.jsondecode",
			}},
		})
		return false
	}
	return true
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req domain.UserLogin
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[req.Email]
	if !ok || u.password != req.Password {
		writeDetail(w, http.StatusUnauthorized, "Incorrect email or password")
		return
	}

	user := u.User
	writeJSON(w, http.StatusOK, domain.LoginResponse{
		AccessToken: s.issueLocked(u),
		TokenType:   "bearer",
		User:        &user,
	})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req domain.UserRegister
	if !decode(w, r, &req) {
		return
	}

	var problems []map[string]any
	if len(req.Username) < 3 {
		problems = append(problems, map[string]any{"loc": []string{"body", "username"}, "msg": "ensure this value has at least 3 characters", "type": "value_error"})
	}
	if !strings.Contains(req.Email, "@") {
		problems = append(problems, map[string]any{"loc": []string{"body", "email"}, "msg": "value is not a valid email address", "type": "value_error.email"})
	}
	if len(problems) > 0 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": problems})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[req.Email]; exists {
		writeDetail(w, http.StatusBadRequest, "Email already registered")
		return
	}
	u := s.addUserLocked(req.Username, req.Email, req.Password)
	writeJSON(w, http.StatusCreated, map[string]any{
		"message":  "User registered successfully",
		"username": u.Username,
		"role":     u.Role,
	})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	u := s.users[userEmail(r.Context())]
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, u.User)
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.ChatSession, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, domain.ChatSession{
			ID:        sess.ID,
			Title:     sess.Title,
			CreatedAt: sess.CreatedAt,
			UpdatedAt: sess.UpdatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req domain.SessionCreate
	if !decode(w, r, &req) {
		return
	}
	if req.Title == "" {
		req.Title = "New Chat"
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.addSessionLocked(req.Title).Clone())
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.findSessionLocked(domain.ID(chi.URLParam(r, "id")))
	if sess == nil {
		writeDetail(w, http.StatusNotFound, "Session not found")
		return
	}
	writeJSON(w, http.StatusOK, sess.Clone())
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	id := domain.ID(chi.URLParam(r, "id"))

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, sess := range s.sessions {
		if sess.ID == id {
			s.sessions = append(s.sessions[:i], s.sessions[i+1:]...)
			writeJSON(w, http.StatusOK, map[string]any{"message": "Session deleted"})
			return
		}
	}
	writeDetail(w, http.StatusNotFound, "Session not found")
}

func (s *Server) renameSession(w http.ResponseWriter, r *http.Request) {
	var req domain.SessionRename
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.findSessionLocked(domain.ID(chi.URLParam(r, "id")))
	if sess == nil {
		writeDetail(w, http.StatusNotFound, "Session not found")
		return
	}
	sess.Title = req.NewTitle
	writeJSON(w, http.StatusOK, map[string]any{
		"message":    "Session renamed",
		"session_id": sess.ID,
		"new_title":  sess.Title,
	})
}

func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	var req domain.ChatRequest
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	gate := s.gate
	s.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-r.Context().Done():
			return
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.findSessionLocked(req.SessionID)
	if sess == nil {
		writeDetail(w, http.StatusNotFound, "Session not found")
		return
	}

	resp := s.reply(req)
	if resp.SessionID == "" {
		resp.SessionID = sess.ID
	}
	now := time.Now().UTC().Truncate(time.Second)
	sess.UpdatedAt = domain.NewTimestamp(now)
	sess.Messages = append(sess.Messages,
		domain.Message{Sender: domain.RoleUser, Content: req.Query},
		domain.Message{Sender: domain.RoleAssistant, Content: resp.Message, ContextUsed: resp.ContextUsed},
	)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) listDocuments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	status := domain.DocumentStatus(q.Get("status"))
	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("page_size"))
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 50
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []domain.Document
	for _, doc := range s.documents {
		if status == "" || doc.Status == status {
			matched = append(matched, *doc)
		}
	}

	out := []domain.Document{}
	start := (page - 1) * size
	if start < len(matched) {
		end := start + size
		if end > len(matched) {
			end = len(matched)
		}
		out = matched[start:end]
	}
	writeJSON(w, http.StatusOK, out)
}

type uploadedDocument struct {
	DocID  domain.ID             `json:"doc_id"`
	Title  string                `json:"title"`
	Status domain.DocumentStatus `json:"status"`
}

func (s *Server) upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid multipart body")
		return
	}
	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		writeDetail(w, http.StatusBadRequest, "No files provided")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]uploadedDocument, 0, len(files))
	for _, fh := range files {
		doc := s.addDocumentLocked(fh.Filename, domain.DocumentStatusPending)
		out = append(out, uploadedDocument{DocID: doc.ID, Title: doc.Title, Status: doc.Status})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"documents": out,
		"message":   fmt.Sprintf("%d document(s) uploaded", len(out)),
	})
}

func (s *Server) indexDocument(w http.ResponseWriter, r *http.Request) {
	var req domain.IndexRequest
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.findDocumentLocked(domain.ID(chi.URLParam(r, "id")))
	if doc == nil {
		writeDetail(w, http.StatusNotFound, "Document not found")
		return
	}
	if doc.Status == domain.DocumentStatusIndexed && !req.ForceReindex {
		writeDetail(w, http.StatusBadRequest, "Document already indexed")
		return
	}

	// indexing runs in the background; the caller sees processing
	doc.Status = domain.DocumentStatusProcessing
	writeJSON(w, http.StatusOK, domain.IndexResult{
		DocID:   doc.ID,
		Status:  string(doc.Status),
		Message: "Indexing started",
	})
}

func (s *Server) getDocument(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.findDocumentLocked(domain.ID(chi.URLParam(r, "id")))
	if doc == nil {
		writeDetail(w, http.StatusNotFound, "Document not found")
		return
	}
	writeJSON(w, http.StatusOK, doc)
}
