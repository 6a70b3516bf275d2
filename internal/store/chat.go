package store

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/Rrens/knowflow/internal/apiclient"
	"github.com/Rrens/knowflow/internal/domain"
	"github.com/rs/zerolog/log"
)

// DefaultSessionTitle names sessions created implicitly by a first message
const DefaultSessionTitle = "New Chat"

// ChatState is the observable state of the chat store
type ChatState struct {
	Sessions          []domain.ChatSession `json:"sessions"`
	CurrentSession    *domain.ChatSession  `json:"current_session"`
	SelectedDocuments []string             `json:"selected_documents"`
	IsLoading         bool                 `json:"is_loading"`
	Error             string               `json:"error,omitempty"`
}

func (s ChatState) clone() ChatState {
	sessions := make([]domain.ChatSession, len(s.Sessions))
	for i := range s.Sessions {
		sessions[i] = *s.Sessions[i].Clone()
	}
	s.Sessions = sessions
	s.CurrentSession = s.CurrentSession.Clone()
	s.SelectedDocuments = append([]string{}, s.SelectedDocuments...)
	return s
}

// ChatStore holds the session list, the active session and its transcript
type ChatStore struct {
	api domain.ChatAPI

	mu    sync.Mutex
	state ChatState
	subs  subscribers[ChatState]
}

// NewChatStore creates a new chat store
func NewChatStore(api domain.ChatAPI) *ChatStore {
	return &ChatStore{
		api: api,
		state: ChatState{
			Sessions:          []domain.ChatSession{},
			SelectedDocuments: []string{},
		},
	}
}

// Snapshot returns a copy of the current state
func (s *ChatStore) Snapshot() ChatState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Subscribe registers fn to receive every new state
func (s *ChatStore) Subscribe(fn func(ChatState)) func() {
	return s.subs.add(fn)
}

func (s *ChatStore) update(fn func(*ChatState)) {
	s.mu.Lock()
	fn(&s.state)
	snapshot := s.state.clone()
	s.mu.Unlock()

	s.subs.notify(snapshot)
}

func (s *ChatStore) fail(op string, err error, msg string) {
	log.Warn().Err(err).Str("op", op).Msg("chat request failed")
	s.update(func(st *ChatState) {
		st.Error = msg
		st.IsLoading = false
	})
}

// record stores the error of an operation that never raised IsLoading, so a
// fetch still in flight keeps its flag
func (s *ChatStore) record(op string, err error, msg string) {
	log.Warn().Err(err).Str("op", op).Msg("chat request failed")
	s.update(func(st *ChatState) {
		st.Error = msg
	})
}

// FetchSessions replaces the session list
func (s *ChatStore) FetchSessions(ctx context.Context) bool {
	s.update(func(st *ChatState) {
		st.IsLoading = true
	})

	sessions, err := s.api.ListSessions(ctx)
	if err != nil {
		s.fail("fetch_sessions", err, apiclient.DetailOf(err, "Failed to fetch sessions"))
		return false
	}

	s.update(func(st *ChatState) {
		st.Sessions = sessions
		st.IsLoading = false
	})
	return true
}

// CreateSession creates a session, lists it and makes it current
func (s *ChatStore) CreateSession(ctx context.Context, title string) *domain.ChatSession {
	s.update(func(st *ChatState) {
		st.IsLoading = true
	})

	session, err := s.api.CreateSession(ctx, title)
	if err != nil {
		s.fail("create_session", err, apiclient.DetailOf(err, "Failed to create session"))
		return nil
	}

	s.update(func(st *ChatState) {
		st.Sessions = append(slices.Clone(st.Sessions), *session.Clone())
		st.CurrentSession = session.Clone()
		st.IsLoading = false
	})
	return session
}

// FetchSessionMessages loads a transcript, makes it current and refreshes
// the matching list entry. A session missing from the list is appended, so
// the current session is always listed.
func (s *ChatStore) FetchSessionMessages(ctx context.Context, sessionID domain.ID) bool {
	s.update(func(st *ChatState) {
		st.IsLoading = true
	})

	session, err := s.api.GetSession(ctx, sessionID)
	if err != nil {
		s.fail("fetch_session_messages", err, apiclient.DetailOf(err, "Failed to fetch session messages"))
		return false
	}
	for i := range session.Messages {
		session.Messages[i].Origin = domain.OriginServer
	}

	s.update(func(st *ChatState) {
		st.CurrentSession = session.Clone()
		st.Sessions = upsertSession(st.Sessions, sessionID, session)
		st.IsLoading = false
	})
	return true
}

// SelectSession makes session current straight away and then reloads its
// transcript. Transcripts are never served from cache. If the reload fails
// for a session that is not listed, the previous current session comes back.
func (s *ChatStore) SelectSession(ctx context.Context, session domain.ChatSession) bool {
	var previous *domain.ChatSession
	s.update(func(st *ChatState) {
		previous = st.CurrentSession.Clone()
		st.CurrentSession = session.Clone()
	})

	if s.FetchSessionMessages(ctx, session.ID) {
		return true
	}

	s.update(func(st *ChatState) {
		if st.CurrentSession == nil || st.CurrentSession.ID != session.ID {
			return
		}
		if !slices.ContainsFunc(st.Sessions, func(c domain.ChatSession) bool { return c.ID == session.ID }) {
			st.CurrentSession = previous
		}
	})
	return false
}

// SendMessage posts one user turn scoped to documentIDs. On success the user
// message and the reply are appended, in that order, to the session's
// transcript; on failure nothing is appended. Concurrent sends append in the
// order their responses arrive.
func (s *ChatStore) SendMessage(ctx context.Context, message string, sessionID domain.ID, documentIDs []string) *domain.ChatResponse {
	resp, err := s.api.Chat(ctx, domain.ChatRequest{
		Query:       message,
		SessionID:   sessionID,
		DocumentIDs: documentIDs,
	})
	if err != nil {
		s.record("send_message", err, apiclient.DetailOf(err, "Failed to send message"))
		return nil
	}

	turn := []domain.Message{
		{Sender: domain.RoleUser, Content: message, Origin: domain.OriginLocal},
		{Sender: domain.RoleAssistant, Content: resp.Message, ContextUsed: resp.ContextUsed, Origin: domain.OriginLocal},
	}

	s.update(func(st *ChatState) {
		if st.CurrentSession != nil && st.CurrentSession.ID == sessionID {
			current := st.CurrentSession.Clone()
			current.Messages = append(current.Messages, cloneMessages(turn)...)
			st.CurrentSession = current
			st.Sessions = replaceSession(st.Sessions, sessionID, current)
			return
		}

		// the reply landed after the user moved to another session
		sessions := make([]domain.ChatSession, len(st.Sessions))
		for i, sess := range st.Sessions {
			if sess.ID == sessionID {
				c := sess.Clone()
				c.Messages = append(c.Messages, cloneMessages(turn)...)
				sess = *c
			}
			sessions[i] = sess
		}
		st.Sessions = sessions
	})
	return resp
}

// SendFirstMessage sends to the current session, creating one titled
// DefaultSessionTitle first when nothing is active
func (s *ChatStore) SendFirstMessage(ctx context.Context, message string, documentIDs []string) *domain.ChatResponse {
	s.mu.Lock()
	current := s.state.CurrentSession.Clone()
	s.mu.Unlock()

	if current == nil {
		current = s.CreateSession(ctx, DefaultSessionTitle)
		if current == nil {
			return nil
		}
	}
	return s.SendMessage(ctx, message, current.ID, documentIDs)
}

// DeleteSession removes a session, clearing it as current if it was active
func (s *ChatStore) DeleteSession(ctx context.Context, sessionID domain.ID) bool {
	if err := s.api.DeleteSession(ctx, sessionID); err != nil {
		s.record("delete_session", err, apiclient.DetailOf(err, "Failed to delete session"))
		return false
	}

	s.update(func(st *ChatState) {
		sessions := make([]domain.ChatSession, 0, len(st.Sessions))
		for _, sess := range st.Sessions {
			if sess.ID != sessionID {
				sessions = append(sessions, sess)
			}
		}
		st.Sessions = sessions
		if st.CurrentSession != nil && st.CurrentSession.ID == sessionID {
			st.CurrentSession = nil
		}
	})
	return true
}

// RenameSession retitles a session. Nothing changes locally unless the
// server answers 2xx.
func (s *ChatStore) RenameSession(ctx context.Context, sessionID domain.ID, newTitle string) bool {
	if err := s.api.RenameSession(ctx, sessionID, newTitle); err != nil {
		s.record("rename_session", err, apiclient.DetailOf(err, "Failed to rename chat session"))
		return false
	}

	s.update(func(st *ChatState) {
		sessions := make([]domain.ChatSession, len(st.Sessions))
		for i, sess := range st.Sessions {
			if sess.ID == sessionID {
				sess.Title = newTitle
			}
			sessions[i] = sess
		}
		st.Sessions = sessions
		if st.CurrentSession != nil && st.CurrentSession.ID == sessionID {
			current := st.CurrentSession.Clone()
			current.Title = newTitle
			st.CurrentSession = current
		}
	})
	return true
}

// SetSelectedDocuments replaces the document scope for new messages
func (s *ChatStore) SetSelectedDocuments(ids []string) {
	s.update(func(st *ChatState) {
		st.SelectedDocuments = append([]string{}, ids...)
	})
}

// ToggleDocument adds id to the selection, or removes it if present
func (s *ChatStore) ToggleDocument(id string) {
	s.update(func(st *ChatState) {
		if i := slices.Index(st.SelectedDocuments, id); i >= 0 {
			st.SelectedDocuments = slices.Delete(slices.Clone(st.SelectedDocuments), i, i+1)
			return
		}
		st.SelectedDocuments = append(slices.Clone(st.SelectedDocuments), id)
	})
}

// SelectedDocuments returns the current document scope
func (s *ChatStore) SelectedDocuments() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.state.SelectedDocuments...)
}

// NextSessionTitle suggests a title for a session created by hand
func (s *ChatStore) NextSessionTitle() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fmt.Sprintf("Chat %d", len(s.state.Sessions)+1)
}

func replaceSession(sessions []domain.ChatSession, id domain.ID, with *domain.ChatSession) []domain.ChatSession {
	out := make([]domain.ChatSession, len(sessions))
	for i, sess := range sessions {
		if sess.ID == id {
			sess = *with.Clone()
		}
		out[i] = sess
	}
	return out
}

// upsertSession replaces the entry with id, or appends with when none matches
func upsertSession(sessions []domain.ChatSession, id domain.ID, with *domain.ChatSession) []domain.ChatSession {
	if slices.ContainsFunc(sessions, func(c domain.ChatSession) bool { return c.ID == id }) {
		return replaceSession(sessions, id, with)
	}
	return append(slices.Clone(sessions), *with.Clone())
}

func cloneMessages(msgs []domain.Message) []domain.Message {
	out := make([]domain.Message, len(msgs))
	for i, m := range msgs {
		out[i] = m.Clone()
	}
	return out
}
