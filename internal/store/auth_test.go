package store

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/Rrens/knowflow/internal/apiclient"
	"github.com/Rrens/knowflow/internal/domain"
	"github.com/Rrens/knowflow/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func storedToken(t *testing.T, kv domain.KeyValueStore) (string, bool) {
	t.Helper()
	token, ok, err := kv.Get(context.Background(), domain.TokenKey)
	require.NoError(t, err)
	return token, ok
}

func TestAuthStore_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("success persists token", func(t *testing.T) {
		api := new(MockAPI)
		kv := memory.NewKV()
		s := NewAuthStore(api, kv)

		user := &domain.User{ID: "1", Username: "alice", Email: "alice@example.com"}
		api.On("Login", mock.Anything, "alice@example.com", "password123").
			Return(&domain.LoginResponse{AccessToken: "tok", User: user}, nil)

		assert.True(t, s.Login(ctx, "alice@example.com", "password123"))

		token, ok := storedToken(t, kv)
		assert.True(t, ok)
		assert.Equal(t, "tok", token)

		st := s.Snapshot()
		assert.True(t, st.IsAuthenticated)
		assert.False(t, st.IsLoading)
		assert.Empty(t, st.Error)
		assert.Equal(t, "alice", st.User.Username)
		api.AssertExpectations(t)
	})

	t.Run("failure leaves token untouched", func(t *testing.T) {
		api := new(MockAPI)
		kv := memory.NewKV()
		require.NoError(t, kv.Set(ctx, domain.TokenKey, "previous"))
		s := NewAuthStore(api, kv)

		api.On("Login", mock.Anything, "alice@example.com", "wrong").
			Return(nil, &apiclient.APIError{Status: http.StatusUnauthorized, Detail: "Incorrect email or password"})

		assert.False(t, s.Login(ctx, "alice@example.com", "wrong"))

		token, _ := storedToken(t, kv)
		assert.Equal(t, "previous", token)

		st := s.Snapshot()
		assert.False(t, st.IsAuthenticated)
		assert.False(t, st.IsLoading)
		assert.Equal(t, "Incorrect email or password", st.Error)
	})

	t.Run("transport failure uses fallback", func(t *testing.T) {
		api := new(MockAPI)
		s := NewAuthStore(api, memory.NewKV())
		api.On("Login", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, &apiclient.APIError{Err: errors.New("connection refused")})

		assert.False(t, s.Login(ctx, "a@b.c", "x"))
		assert.Equal(t, "Login failed", s.Snapshot().Error)
	})

	t.Run("token write failure", func(t *testing.T) {
		api := new(MockAPI)
		kv := new(MockKV)
		s := NewAuthStore(api, kv)

		api.On("Login", mock.Anything, mock.Anything, mock.Anything).
			Return(&domain.LoginResponse{AccessToken: "tok"}, nil)
		kv.On("Set", mock.Anything, domain.TokenKey, "tok").Return(errors.New("disk full"))

		assert.False(t, s.Login(ctx, "a@b.c", "x"))
		assert.False(t, s.Snapshot().IsAuthenticated)
		assert.NotEmpty(t, s.Snapshot().Error)
	})

	t.Run("clears previous error", func(t *testing.T) {
		api := new(MockAPI)
		s := NewAuthStore(api, memory.NewKV())
		api.On("Login", mock.Anything, "a@b.c", "bad").
			Return(nil, &apiclient.APIError{Status: http.StatusUnauthorized, Detail: "nope"}).Once()
		api.On("Login", mock.Anything, "a@b.c", "good").
			Return(&domain.LoginResponse{AccessToken: "tok"}, nil).Once()

		s.Login(ctx, "a@b.c", "bad")
		require.Equal(t, "nope", s.Snapshot().Error)

		assert.True(t, s.Login(ctx, "a@b.c", "good"))
		assert.Empty(t, s.Snapshot().Error)
	})
}

func TestAuthStore_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("local validation skips network", func(t *testing.T) {
		api := new(MockAPI)
		s := NewAuthStore(api, memory.NewKV())

		assert.False(t, s.Register(ctx, "al", "not-an-email", "short"))

		st := s.Snapshot()
		assert.Contains(t, st.Error, "username: must be at least 3 characters")
		assert.Contains(t, st.Error, "email: invalid email format")
		assert.Contains(t, st.Error, "password: must be at least 8 characters")
		assert.False(t, st.IsLoading)
		api.AssertNotCalled(t, "Register", mock.Anything, mock.Anything)
	})

	t.Run("success does not sign in", func(t *testing.T) {
		api := new(MockAPI)
		kv := memory.NewKV()
		s := NewAuthStore(api, kv)

		input := domain.UserRegister{Username: "alice", Email: "alice@example.com", Password: "password123"}
		api.On("Register", mock.Anything, input).Return(nil)

		assert.True(t, s.Register(ctx, "alice", "alice@example.com", "password123"))
		assert.False(t, s.Snapshot().IsAuthenticated)
		_, ok := storedToken(t, kv)
		assert.False(t, ok)
	})

	t.Run("server rejection", func(t *testing.T) {
		api := new(MockAPI)
		s := NewAuthStore(api, memory.NewKV())
		api.On("Register", mock.Anything, mock.Anything).
			Return(&apiclient.APIError{Status: http.StatusBadRequest, Detail: "Email already registered"})

		assert.False(t, s.Register(ctx, "alice", "alice@example.com", "password123"))
		assert.Equal(t, "Email already registered", s.Snapshot().Error)
	})

	t.Run("fallback message", func(t *testing.T) {
		api := new(MockAPI)
		s := NewAuthStore(api, memory.NewKV())
		api.On("Register", mock.Anything, mock.Anything).
			Return(&apiclient.APIError{Status: http.StatusInternalServerError})

		assert.False(t, s.Register(ctx, "alice", "alice@example.com", "password123"))
		assert.Equal(t, "Registration failed", s.Snapshot().Error)
	})
}

func TestAuthStore_Logout(t *testing.T) {
	ctx := context.Background()
	api := new(MockAPI)
	kv := memory.NewKV()
	s := NewAuthStore(api, kv)

	api.On("Login", mock.Anything, mock.Anything, mock.Anything).
		Return(&domain.LoginResponse{AccessToken: "tok", User: &domain.User{ID: "1"}}, nil)
	require.True(t, s.Login(ctx, "a@b.c", "password123"))

	s.Logout(ctx)

	_, ok := storedToken(t, kv)
	assert.False(t, ok)
	st := s.Snapshot()
	assert.False(t, st.IsAuthenticated)
	assert.Nil(t, st.User)
	api.AssertNumberOfCalls(t, "Login", 1)
}

func TestAuthStore_GetProfile(t *testing.T) {
	ctx := context.Background()

	t.Run("no token makes no request", func(t *testing.T) {
		api := new(MockAPI)
		s := NewAuthStore(api, memory.NewKV())

		s.GetProfile(ctx)

		assert.False(t, s.Snapshot().IsAuthenticated)
		api.AssertNotCalled(t, "Me", mock.Anything)
	})

	t.Run("valid token hydrates user", func(t *testing.T) {
		api := new(MockAPI)
		kv := memory.NewKV()
		require.NoError(t, kv.Set(ctx, domain.TokenKey, "tok"))
		s := NewAuthStore(api, kv)
		api.On("Me", mock.Anything).Return(&domain.User{ID: "1", Username: "alice"}, nil)

		s.GetProfile(ctx)

		st := s.Snapshot()
		assert.True(t, st.IsAuthenticated)
		assert.False(t, st.IsLoading)
		assert.Equal(t, "alice", st.User.Username)
	})

	t.Run("auth failure purges token", func(t *testing.T) {
		api := new(MockAPI)
		kv := memory.NewKV()
		require.NoError(t, kv.Set(ctx, domain.TokenKey, "expired"))
		s := NewAuthStore(api, kv)
		api.On("Me", mock.Anything).
			Return(nil, &apiclient.APIError{Status: http.StatusUnauthorized, Detail: "Could not validate credentials"})

		s.GetProfile(ctx)

		_, ok := storedToken(t, kv)
		assert.False(t, ok)
		st := s.Snapshot()
		assert.False(t, st.IsAuthenticated)
		assert.False(t, st.IsLoading)
		assert.Empty(t, st.Error, "profile failures force logout instead of surfacing")

		s.GetProfile(ctx)
		api.AssertNumberOfCalls(t, "Me", 1)
	})
}

func TestAuthStore_Subscribe(t *testing.T) {
	api := new(MockAPI)
	s := NewAuthStore(api, memory.NewKV())
	api.On("Login", mock.Anything, mock.Anything, mock.Anything).
		Return(&domain.LoginResponse{AccessToken: "tok", User: &domain.User{ID: "1"}}, nil)

	var states []AuthState
	unsubscribe := s.Subscribe(func(st AuthState) {
		states = append(states, st)
	})

	require.True(t, s.Login(context.Background(), "a@b.c", "password123"))
	require.Len(t, states, 2)
	assert.True(t, states[0].IsLoading)
	assert.True(t, states[1].IsAuthenticated)

	unsubscribe()
	unsubscribe()
	s.Logout(context.Background())
	assert.Len(t, states, 2)
}
