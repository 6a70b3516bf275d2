package handler

import (
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/Rrens/knowflow/internal/api/response"
	"github.com/Rrens/knowflow/internal/domain"
	"github.com/Rrens/knowflow/internal/store"
	"github.com/go-chi/chi/v5"
)

const maxUploadMemory = 32 << 20

// DocumentHandler handles document endpoints
type DocumentHandler struct {
	documents *store.DocumentStore
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(documents *store.DocumentStore) *DocumentHandler {
	return &DocumentHandler{documents: documents}
}

// List refreshes the document list from the server and returns it
func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	q := domain.DocumentQuery{
		Status: domain.DocumentStatus(r.URL.Query().Get("status")),
	}
	if p := r.URL.Query().Get("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			q.Page = v
		}
	}
	if ps := r.URL.Query().Get("page_size"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 {
			q.PageSize = v
		}
	}

	if !h.documents.FetchDocuments(r.Context(), q) {
		response.StoreFailure(w, h.documents.Snapshot().Error, "Failed to fetch documents")
		return
	}

	response.OK(w, h.documents.Snapshot().Documents)
}

// Upload forwards the multipart "files" field to the server
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		response.BadRequest(w, "invalid multipart body")
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		response.BadRequest(w, "no files uploaded")
		return
	}

	files := make([]domain.UploadFile, 0, len(headers))
	opened := make([]multipart.File, 0, len(headers))
	defer func() {
		for _, f := range opened {
			f.Close()
		}
	}()

	for _, header := range headers {
		f, err := header.Open()
		if err != nil {
			response.BadRequest(w, "failed to read "+header.Filename)
			return
		}
		opened = append(opened, f)
		files = append(files, domain.UploadFile{Name: header.Filename, Reader: f})
	}

	result := h.documents.UploadDocuments(r.Context(), files)
	if result == nil {
		response.StoreFailure(w, h.documents.Snapshot().Error, "Failed to upload documents")
		return
	}

	response.Created(w, result)
}

// Index requests indexing of one document. The body is optional.
func (h *DocumentHandler) Index(w http.ResponseWriter, r *http.Request) {
	var input domain.IndexRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil && err != io.EOF {
		response.BadRequest(w, "invalid request body")
		return
	}

	ack := h.documents.IndexDocument(r.Context(), domain.ID(chi.URLParam(r, "docID")), input.ForceReindex)
	if ack == nil {
		response.StoreFailure(w, h.documents.Snapshot().Error, "Failed to index document")
		return
	}

	response.OK(w, ack)
}

// Get returns one document. With reconcile=true the local list entry is
// replaced by the server record.
func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	docID := domain.ID(chi.URLParam(r, "docID"))

	var doc *domain.Document
	if r.URL.Query().Get("reconcile") == "true" {
		doc = h.documents.ReconcileDocument(r.Context(), docID)
	} else {
		doc = h.documents.GetDocument(r.Context(), docID)
	}
	if doc == nil {
		response.StoreFailure(w, h.documents.Snapshot().Error, "Failed to get document")
		return
	}

	response.OK(w, doc)
}
