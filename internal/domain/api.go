package domain

import "context"

// AuthAPI defines the remote authentication endpoints
type AuthAPI interface {
	Login(ctx context.Context, email, password string) (*LoginResponse, error)
	Register(ctx context.Context, input UserRegister) error
	Me(ctx context.Context) (*User, error)
}

// DocumentAPI defines the remote document endpoints
type DocumentAPI interface {
	ListDocuments(ctx context.Context, q DocumentQuery) ([]Document, error)
	UploadDocuments(ctx context.Context, files []UploadFile) (*UploadResult, error)
	IndexDocument(ctx context.Context, docID ID, forceReindex bool) (*IndexResult, error)
	GetDocument(ctx context.Context, docID ID) (*Document, error)
}

// ChatAPI defines the remote session and chat endpoints
type ChatAPI interface {
	ListSessions(ctx context.Context) ([]ChatSession, error)
	CreateSession(ctx context.Context, title string) (*ChatSession, error)
	GetSession(ctx context.Context, sessionID ID) (*ChatSession, error)
	DeleteSession(ctx context.Context, sessionID ID) error
	RenameSession(ctx context.Context, sessionID ID, newTitle string) error
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}
