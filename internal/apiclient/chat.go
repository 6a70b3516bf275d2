package apiclient

import (
	"context"
	"net/http"

	"github.com/Rrens/knowflow/internal/domain"
)

// Chat sends one user turn and returns the assistant reply. The server
// persists both sides of the exchange.
func (c *Client) Chat(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	var out domain.ChatResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/chat",
		body:   req,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
