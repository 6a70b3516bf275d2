package store

import (
	"context"

	"github.com/Rrens/knowflow/internal/domain"
	"github.com/stretchr/testify/mock"
)

// MockAPI mocks the remote API
type MockAPI struct {
	mock.Mock
}

func (m *MockAPI) Login(ctx context.Context, email, password string) (*domain.LoginResponse, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LoginResponse), args.Error(1)
}

func (m *MockAPI) Register(ctx context.Context, input domain.UserRegister) error {
	args := m.Called(ctx, input)
	return args.Error(0)
}

func (m *MockAPI) Me(ctx context.Context) (*domain.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockAPI) ListDocuments(ctx context.Context, q domain.DocumentQuery) ([]domain.Document, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Document), args.Error(1)
}

func (m *MockAPI) UploadDocuments(ctx context.Context, files []domain.UploadFile) (*domain.UploadResult, error) {
	args := m.Called(ctx, files)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.UploadResult), args.Error(1)
}

func (m *MockAPI) IndexDocument(ctx context.Context, docID domain.ID, forceReindex bool) (*domain.IndexResult, error) {
	args := m.Called(ctx, docID, forceReindex)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.IndexResult), args.Error(1)
}

func (m *MockAPI) GetDocument(ctx context.Context, docID domain.ID) (*domain.Document, error) {
	args := m.Called(ctx, docID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockAPI) ListSessions(ctx context.Context) ([]domain.ChatSession, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ChatSession), args.Error(1)
}

func (m *MockAPI) CreateSession(ctx context.Context, title string) (*domain.ChatSession, error) {
	args := m.Called(ctx, title)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ChatSession), args.Error(1)
}

func (m *MockAPI) GetSession(ctx context.Context, sessionID domain.ID) (*domain.ChatSession, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ChatSession), args.Error(1)
}

func (m *MockAPI) DeleteSession(ctx context.Context, sessionID domain.ID) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

func (m *MockAPI) RenameSession(ctx context.Context, sessionID domain.ID, newTitle string) error {
	args := m.Called(ctx, sessionID, newTitle)
	return args.Error(0)
}

func (m *MockAPI) Chat(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ChatResponse), args.Error(1)
}

// MockKV mocks the token repository when a test needs it to fail
type MockKV struct {
	mock.Mock
}

func (m *MockKV) Get(ctx context.Context, key string) (string, bool, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockKV) Set(ctx context.Context, key, value string) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockKV) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockKV) Close() error {
	return m.Called().Error(0)
}
