package store

import (
	"context"
	"sync"

	"github.com/Rrens/knowflow/internal/apiclient"
	"github.com/Rrens/knowflow/internal/domain"
	"github.com/rs/zerolog/log"
)

// AuthState is the observable state of the auth store
type AuthState struct {
	User            *domain.User `json:"user"`
	IsAuthenticated bool         `json:"is_authenticated"`
	IsLoading       bool         `json:"is_loading"`
	Error           string       `json:"error,omitempty"`
}

func (s AuthState) clone() AuthState {
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}

// AuthStore tracks who is signed in and owns the durable token slot
type AuthStore struct {
	api    domain.AuthAPI
	tokens domain.KeyValueStore

	mu    sync.Mutex
	state AuthState
	subs  subscribers[AuthState]
}

// NewAuthStore creates a new auth store
func NewAuthStore(api domain.AuthAPI, tokens domain.KeyValueStore) *AuthStore {
	return &AuthStore{
		api:    api,
		tokens: tokens,
	}
}

// Snapshot returns a copy of the current state
func (s *AuthStore) Snapshot() AuthState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Subscribe registers fn to receive every new state. The returned func
// unsubscribes.
func (s *AuthStore) Subscribe(fn func(AuthState)) func() {
	return s.subs.add(fn)
}

func (s *AuthStore) update(fn func(*AuthState)) {
	s.mu.Lock()
	fn(&s.state)
	snapshot := s.state.clone()
	s.mu.Unlock()

	s.subs.notify(snapshot)
}

// Login exchanges credentials for a token and persists it. On failure the
// stored token is left as it was.
func (s *AuthStore) Login(ctx context.Context, email, password string) bool {
	s.update(func(st *AuthState) {
		st.IsLoading = true
		st.Error = ""
	})

	resp, err := s.api.Login(ctx, email, password)
	if err != nil {
		s.fail("login", err, apiclient.DetailOf(err, "Login failed"))
		return false
	}

	if err := s.tokens.Set(ctx, domain.TokenKey, resp.AccessToken); err != nil {
		s.fail("login", err, "Failed to store session token")
		return false
	}

	s.update(func(st *AuthState) {
		st.User = resp.User
		st.IsAuthenticated = true
		st.IsLoading = false
	})
	return true
}

// Register creates an account. It never signs the user in.
func (s *AuthStore) Register(ctx context.Context, username, email, password string) bool {
	input := domain.UserRegister{
		Username: username,
		Email:    email,
		Password: password,
	}

	if err := validate.Struct(input); err != nil {
		msg := validationMessage(err)
		log.Warn().Str("op", "register").Str("reason", msg).Msg("registration rejected locally")
		s.update(func(st *AuthState) {
			st.Error = msg
			st.IsLoading = false
		})
		return false
	}

	s.update(func(st *AuthState) {
		st.IsLoading = true
		st.Error = ""
	})

	if err := s.api.Register(ctx, input); err != nil {
		s.fail("register", err, apiclient.DetailOf(err, "Registration failed"))
		return false
	}

	s.update(func(st *AuthState) {
		st.IsLoading = false
	})
	return true
}

// Logout forgets the token and the user. It does not contact the server.
func (s *AuthStore) Logout(ctx context.Context) {
	if err := s.tokens.Delete(ctx, domain.TokenKey); err != nil {
		log.Warn().Err(err).Msg("failed to remove stored token")
	}
	s.update(func(st *AuthState) {
		st.User = nil
		st.IsAuthenticated = false
	})
}

// GetProfile hydrates the user from the stored token. Without a token it
// resets to signed out and makes no request; any failure purges the token.
func (s *AuthStore) GetProfile(ctx context.Context) {
	token, ok := s.Token(ctx)
	if !ok || token == "" {
		s.update(func(st *AuthState) {
			st.User = nil
			st.IsAuthenticated = false
			st.IsLoading = false
		})
		return
	}

	s.update(func(st *AuthState) {
		st.IsLoading = true
	})

	user, err := s.api.Me(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("profile refresh failed, signing out")
		if err := s.tokens.Delete(ctx, domain.TokenKey); err != nil {
			log.Warn().Err(err).Msg("failed to remove stored token")
		}
		s.update(func(st *AuthState) {
			st.User = nil
			st.IsAuthenticated = false
			st.IsLoading = false
		})
		return
	}

	s.update(func(st *AuthState) {
		st.User = user
		st.IsAuthenticated = true
		st.IsLoading = false
	})
}

// Token returns the stored bearer token, if any
func (s *AuthStore) Token(ctx context.Context) (string, bool) {
	token, ok, err := s.tokens.Get(ctx, domain.TokenKey)
	if err != nil {
		log.Warn().Err(err).Msg("failed to read stored token")
		return "", false
	}
	return token, ok
}

func (s *AuthStore) fail(op string, err error, msg string) {
	log.Warn().Err(err).Str("op", op).Msg("auth request failed")
	s.update(func(st *AuthState) {
		st.Error = msg
		st.IsLoading = false
	})
}
