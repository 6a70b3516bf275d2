package apiclient

import (
	"context"
	"net/http"

	"github.com/Rrens/knowflow/internal/domain"
)

// Login exchanges credentials for a bearer token. It does not persist the
// token; that is the auth store's job.
func (c *Client) Login(ctx context.Context, email, password string) (*domain.LoginResponse, error) {
	var out domain.LoginResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/login",
		body:   domain.UserLogin{Email: email, Password: password},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Register creates an account
func (c *Client) Register(ctx context.Context, input domain.UserRegister) error {
	return c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/register",
		body:   input,
	}, nil)
}

// Me returns the profile of the token holder
func (c *Client) Me(ctx context.Context) (*domain.User, error) {
	var out domain.User
	if err := c.do(ctx, request{method: http.MethodGet, path: "/auth/me"}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
