package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/Rrens/knowflow/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const maxErrorBody = 1 << 20

// Client talks to the knowflow REST API on behalf of the stores. It reads the
// bearer token from the durable key-value store on every request, so a login
// or logout in one place is seen by every caller.
type Client struct {
	baseURL string
	client  *http.Client
	tokens  domain.KeyValueStore
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.client = hc
	}
}

// New creates a new API client
func New(baseURL string, timeout time.Duration, tokens domain.KeyValueStore, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		tokens:  tokens,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root this client targets
func (c *Client) BaseURL() string {
	return c.baseURL
}

type request struct {
	method string
	path   string
	query  url.Values
	body   any
	files  []domain.UploadFile
}

func (c *Client) token(ctx context.Context) string {
	if c.tokens == nil {
		return ""
	}
	token, ok, err := c.tokens.Get(ctx, domain.TokenKey)
	if err != nil {
		log.Warn().Err(err).Msg("failed to read stored token, sending request unauthenticated")
		return ""
	}
	if !ok {
		return ""
	}
	return token
}

func (c *Client) newRequest(ctx context.Context, r request) (*http.Request, error) {
	u := c.baseURL + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}

	var (
		body        io.Reader
		contentType string
	)
	switch {
	case r.files != nil:
		pr, pw := io.Pipe()
		mw := multipart.NewWriter(pw)
		go func() {
			pw.CloseWithError(writeMultipart(mw, r.files))
		}()
		body = pr
		contentType = mw.FormDataContentType()
	case r.body != nil:
		data, err := json.Marshal(r.body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, r.method, u, body)
	if err != nil {
		if closer, ok := body.(io.Closer); ok {
			closer.Close()
		}
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token := c.token(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return req, nil
}

func writeMultipart(mw *multipart.Writer, files []domain.UploadFile) error {
	for _, f := range files {
		name := filepath.Base(f.Name)
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename="%s"`, escapeQuotes(name)))
		ct := mime.TypeByExtension(filepath.Ext(name))
		if ct == "" {
			ct = "application/octet-stream"
		}
		header.Set("Content-Type", ct)

		part, err := mw.CreatePart(header)
		if err != nil {
			return fmt.Errorf("failed to create part for %s: %w", name, err)
		}
		if _, err := io.Copy(part, f.Reader); err != nil {
			return fmt.Errorf("failed to copy %s: %w", name, err)
		}
	}
	return mw.Close()
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

// do performs the request and decodes a 2xx JSON body into out (when non-nil).
// Every failure is returned as *APIError.
func (c *Client) do(ctx context.Context, r request, out any) error {
	req, err := c.newRequest(ctx, r)
	if err != nil {
		return &APIError{Err: err}
	}
	requestID := req.Header.Get("X-Request-ID")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		log.Debug().Err(err).
			Str("request_id", requestID).
			Str("method", r.method).
			Str("path", r.path).
			Msg("api request failed")
		return &APIError{RequestID: requestID, Err: err}
	}
	defer resp.Body.Close()

	log.Debug().
		Str("request_id", requestID).
		Str("method", r.method).
		Str("path", r.path).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("api request")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{
			Status:    resp.StatusCode,
			Detail:    extractDetail(body),
			RequestID: requestID,
		}
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{Status: resp.StatusCode, RequestID: requestID, Err: fmt.Errorf("failed to read response: %w", err)}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &APIError{Status: resp.StatusCode, RequestID: requestID, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}
