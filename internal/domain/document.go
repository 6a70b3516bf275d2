package domain

import (
	"encoding/json"
	"io"
)

// DocumentStatus represents the indexing state of a document
type DocumentStatus string

const (
	DocumentStatusPending    DocumentStatus = "pending"
	DocumentStatusProcessing DocumentStatus = "processing"
	DocumentStatusIndexed    DocumentStatus = "indexed"
	DocumentStatusFailed     DocumentStatus = "failed"
)

// Document represents an uploaded document.
//
// Optimistic is local bookkeeping only: it is set when the client assumed a
// status the server has not confirmed yet, and cleared when the entry is
// replaced by server data.
type Document struct {
	ID         ID             `json:"id"`
	Title      string         `json:"title"`
	Status     DocumentStatus `json:"status"`
	CreatedAt  *Timestamp     `json:"created_at,omitempty"`
	Optimistic bool           `json:"optimistic,omitempty"`
}

// UnmarshalJSON falls back to doc_id when the payload has no id field, which is
// how upload results name it.
func (d *Document) UnmarshalJSON(data []byte) error {
	type plain Document
	var aux struct {
		plain
		DocID ID `json:"doc_id"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*d = Document(aux.plain)
	if d.ID == "" {
		d.ID = aux.DocID
	}
	d.Optimistic = false
	return nil
}

// DocumentQuery holds list filters, passed to the server verbatim
type DocumentQuery struct {
	Status   DocumentStatus
	Page     int
	PageSize int
}

// UploadFile is a named file handle to be sent in a multipart upload
type UploadFile struct {
	Name   string
	Reader io.Reader
}

// UploadResult is the payload of a successful upload
type UploadResult struct {
	Documents []Document `json:"documents"`
	Message   string     `json:"message"`
}

// IndexRequest represents an index trigger
type IndexRequest struct {
	ForceReindex bool `json:"force_reindex"`
}

// IndexResult is the acknowledgement of an index request. It does not mean
// indexing has finished.
type IndexResult struct {
	DocID   ID     `json:"doc_id,omitempty"`
	Status  string `json:"status,omitempty"`
	Message string `json:"message,omitempty"`
}
