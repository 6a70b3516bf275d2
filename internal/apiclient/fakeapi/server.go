// Package fakeapi is an in-memory stand-in for the knowflow REST API, used by
// tests across the module. It implements the routes the client consumes with
// the same payload and error shapes, and lets tests inject failures.
package fakeapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Rrens/knowflow/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
)

// Prefix is the API root the fake serves under
const Prefix = "/api/v1"

var secret = []byte("fakeapi-signing-secret-32-bytes!")

type user struct {
	domain.User
	password string
}

type claims struct {
	Generation int `json:"gen"`
	jwt.RegisteredClaims
}

type failure struct {
	status int
	detail string
}

// Recorded is a request as seen by the fake server
type Recorded struct {
	Method        string
	Path          string
	Query         string
	Authorization string
	ContentType   string
	RequestID     string
}

// ReplyFunc produces the assistant reply for a chat turn
type ReplyFunc func(req domain.ChatRequest) domain.ChatResponse

// Server is a running fake API
type Server struct {
	*httptest.Server

	mu         sync.Mutex
	users      map[string]*user
	generation int
	sessions   []*domain.ChatSession
	documents  []*domain.Document
	nextID     int
	failures   map[string][]failure
	requests   []Recorded
	reply      ReplyFunc
	gate       chan struct{}
}

// New starts a fake API that is closed when the test ends
func New(t testing.TB) *Server {
	s := &Server{
		users:    map[string]*user{},
		failures: map[string][]failure{},
		nextID:   1,
		reply:    EchoReply,
	}
	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)
	return s
}

// EchoReply answers with the query and reports the requested document scope
func EchoReply(req domain.ChatRequest) domain.ChatResponse {
	resp := domain.ChatResponse{
		Message:   "Echo: " + req.Query,
		SessionID: req.SessionID,
	}
	if len(req.DocumentIDs) > 0 {
		resp.ContextUsed = &domain.ContextUsed{FilteredDocumentIDs: req.DocumentIDs}
	}
	return resp
}

// BaseURL is the API root to hand to the client
func (s *Server) BaseURL() string {
	return s.URL + Prefix
}

// SetReply replaces the assistant behaviour
func (s *Server) SetReply(fn ReplyFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reply = fn
}

// Fail makes the next request matching method and path (relative to Prefix,
// e.g. "/chat") fail with status and detail. Calls queue up.
func (s *Server) Fail(method, path string, status int, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := method + " " + path
	s.failures[key] = append(s.failures[key], failure{status: status, detail: detail})
}

// Hold blocks every chat request until the returned release func is called
func (s *Server) Hold() (release func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	gate := make(chan struct{})
	s.gate = gate
	var once sync.Once
	return func() {
		once.Do(func() { close(gate) })
	}
}

// AddUser registers an account directly
func (s *Server) AddUser(username, email, password string) domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addUserLocked(username, email, password)
}

func (s *Server) addUserLocked(username, email, password string) domain.User {
	u := &user{
		User: domain.User{
			ID:       domain.ID(fmt.Sprint(len(s.users) + 1)),
			Username: username,
			Email:    email,
			Role:     "user",
		},
		password: password,
	}
	s.users[email] = u
	return u.User
}

// IssueToken returns a valid bearer token for an existing user
func (s *Server) IssueToken(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[email]
	if !ok {
		panic("fakeapi: unknown user " + email)
	}
	return s.issueLocked(u)
}

func (s *Server) issueLocked(u *user) string {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Generation: s.generation,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.Email,
			Issuer:    "fakeapi",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	})
	signed, err := token.SignedString(secret)
	if err != nil {
		panic(err)
	}
	return signed
}

// ExpireTokens invalidates every token issued so far
func (s *Server) ExpireTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
}

// SeedDocument adds a document owned by nobody in particular
func (s *Server) SeedDocument(title string, status domain.DocumentStatus) domain.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.addDocumentLocked(title, status)
}

func (s *Server) addDocumentLocked(title string, status domain.DocumentStatus) *domain.Document {
	now := time.Now().UTC().Truncate(time.Second)
	doc := &domain.Document{
		ID:        domain.ID(fmt.Sprintf("doc-%d", s.nextID)),
		Title:     title,
		Status:    status,
		CreatedAt: domain.NewTimestamp(now),
	}
	s.nextID++
	s.documents = append(s.documents, doc)
	return doc
}

// SetDocumentStatus simulates the background indexer finishing
func (s *Server) SetDocumentStatus(id domain.ID, status domain.DocumentStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc := s.findDocumentLocked(id); doc != nil {
		doc.Status = status
	}
}

// Document returns the server-side copy of a document
func (s *Server) Document(id domain.ID) (domain.Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc := s.findDocumentLocked(id); doc != nil {
		return *doc, true
	}
	return domain.Document{}, false
}

// SeedSession adds a session with an optional transcript
func (s *Server) SeedSession(title string, messages ...domain.Message) domain.ChatSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.addSessionLocked(title)
	sess.Messages = append(sess.Messages, messages...)
	return *sess.Clone()
}

func (s *Server) addSessionLocked(title string) *domain.ChatSession {
	now := time.Now().UTC().Truncate(time.Second)
	sess := &domain.ChatSession{
		ID:        domain.ID(fmt.Sprint(s.nextID)),
		Title:     title,
		CreatedAt: domain.NewTimestamp(now),
		UpdatedAt: domain.NewTimestamp(now),
		Messages:  []domain.Message{},
	}
	s.nextID++
	s.sessions = append(s.sessions, sess)
	return sess
}

// Session returns the server-side copy of a session
func (s *Server) Session(id domain.ID) (domain.ChatSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess := s.findSessionLocked(id); sess != nil {
		return *sess.Clone(), true
	}
	return domain.ChatSession{}, false
}

// Requests returns every request received so far
func (s *Server) Requests() []Recorded {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Recorded(nil), s.requests...)
}

// RequestCount returns how many requests were received
func (s *Server) RequestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func (s *Server) findDocumentLocked(id domain.ID) *domain.Document {
	for _, doc := range s.documents {
		if doc.ID == id {
			return doc
		}
	}
	return nil
}

func (s *Server) findSessionLocked(id domain.ID) *domain.ChatSession {
	for _, sess := range s.sessions {
		if sess.ID == id {
			return sess
		}
	}
	return nil
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.record)
	r.Use(s.inject)

	r.Route(Prefix, func(r chi.Router) {
		r.Post("/auth/login", s.login)
		r.Post("/auth/register", s.register)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)

			r.Get("/auth/me", s.me)

			r.Get("/sessions", s.listSessions)
			r.Post("/sessions", s.createSession)
			r.Get("/sessions/{id}", s.getSession)

			r.Post("/chat", s.chat)
			r.Put("/chat/{id}/rename", s.renameSession)
			r.Delete("/chat/{id}", s.deleteSession)

			r.Get("/document", s.listDocuments)
			r.Post("/document/upload", s.upload)
			r.Post("/document/{id}/index", s.indexDocument)
			r.Get("/document/{id}", s.getDocument)
		})
	})

	return r
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, Recorded{
			Method:        r.Method,
			Path:          strings.TrimPrefix(r.URL.Path, Prefix),
			Query:         r.URL.RawQuery,
			Authorization: r.Header.Get("Authorization"),
			ContentType:   r.Header.Get("Content-Type"),
			RequestID:     r.Header.Get("X-Request-ID"),
		})
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) inject(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + strings.TrimPrefix(r.URL.Path, Prefix)

		s.mu.Lock()
		queue := s.failures[key]
		var f *failure
		if len(queue) > 0 {
			f = &queue[0]
			s.failures[key] = queue[1:]
		}
		s.mu.Unlock()

		if f != nil {
			writeDetail(w, f.status, f.detail)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			writeDetail(w, http.StatusUnauthorized, "Not authenticated")
			return
		}

		var c claims
		_, err := jwt.ParseWithClaims(parts[1], &c, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return secret, nil
		})

		s.mu.Lock()
		stale := c.Generation != s.generation
		_, known := s.users[c.Subject]
		s.mu.Unlock()

		if err != nil || stale || !known {
			writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}

		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), c.Subject)))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]any{"detail": detail})
}
