package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Rrens/knowflow/internal/domain"
)

// ListDocuments returns one page of documents. Filters are passed through
// untouched; zero values are omitted.
func (c *Client) ListDocuments(ctx context.Context, q domain.DocumentQuery) ([]domain.Document, error) {
	query := url.Values{}
	if q.Status != "" {
		query.Set("status", string(q.Status))
	}
	if q.Page > 0 {
		query.Set("page", strconv.Itoa(q.Page))
	}
	if q.PageSize > 0 {
		query.Set("page_size", strconv.Itoa(q.PageSize))
	}

	var out []domain.Document
	if err := c.do(ctx, request{method: http.MethodGet, path: "/document", query: query}, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.Document{}
	}
	return out, nil
}

// UploadDocuments sends files as one multipart request
func (c *Client) UploadDocuments(ctx context.Context, files []domain.UploadFile) (*domain.UploadResult, error) {
	if files == nil {
		files = []domain.UploadFile{}
	}

	var out domain.UploadResult
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/document/upload",
		files:  files,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// IndexDocument asks the server to (re)index a document. Success means the
// request was accepted, not that indexing finished.
func (c *Client) IndexDocument(ctx context.Context, docID domain.ID, forceReindex bool) (*domain.IndexResult, error) {
	var out domain.IndexResult
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/document/" + url.PathEscape(docID.String()) + "/index",
		body:   domain.IndexRequest{ForceReindex: forceReindex},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetDocument fetches a single document
func (c *Client) GetDocument(ctx context.Context, docID domain.ID) (*domain.Document, error) {
	var out domain.Document
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/document/" + url.PathEscape(docID.String()),
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
