package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/Rrens/knowflow/internal/domain"
)

// ListSessions returns session summaries (without transcripts)
func (c *Client) ListSessions(ctx context.Context) ([]domain.ChatSession, error) {
	var out []domain.ChatSession
	if err := c.do(ctx, request{method: http.MethodGet, path: "/sessions"}, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.ChatSession{}
	}
	return out, nil
}

// CreateSession creates an empty session
func (c *Client) CreateSession(ctx context.Context, title string) (*domain.ChatSession, error) {
	var out domain.ChatSession
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/sessions",
		body:   domain.SessionCreate{Title: title},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetSession returns a session with its full transcript
func (c *Client) GetSession(ctx context.Context, sessionID domain.ID) (*domain.ChatSession, error) {
	var out domain.ChatSession
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/sessions/" + url.PathEscape(sessionID.String()),
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteSession removes a session and its transcript. Like rename, delete is
// mounted under the chat router.
func (c *Client) DeleteSession(ctx context.Context, sessionID domain.ID) error {
	return c.do(ctx, request{
		method: http.MethodDelete,
		path:   "/chat/" + url.PathEscape(sessionID.String()),
	}, nil)
}

// RenameSession changes a session title. Renames live under the chat router
// on the server.
func (c *Client) RenameSession(ctx context.Context, sessionID domain.ID, newTitle string) error {
	return c.do(ctx, request{
		method: http.MethodPut,
		path:   "/chat/" + url.PathEscape(sessionID.String()) + "/rename",
		body:   domain.SessionRename{NewTitle: newTitle},
	}, nil)
}
