package store

import (
	"context"
	"sync"

	"github.com/Rrens/knowflow/internal/apiclient"
	"github.com/Rrens/knowflow/internal/domain"
	"github.com/rs/zerolog/log"
)

const (
	defaultPage     = 1
	defaultPageSize = 10
)

// DocumentState is the observable state of the document store
type DocumentState struct {
	Documents []domain.Document `json:"documents"`
	IsLoading bool              `json:"is_loading"`
	Error     string            `json:"error,omitempty"`
}

func (s DocumentState) clone() DocumentState {
	s.Documents = append([]domain.Document(nil), s.Documents...)
	return s
}

// DocumentStore mirrors the user's document library
type DocumentStore struct {
	api domain.DocumentAPI

	mu    sync.Mutex
	state DocumentState
	subs  subscribers[DocumentState]
}

// NewDocumentStore creates a new document store
func NewDocumentStore(api domain.DocumentAPI) *DocumentStore {
	return &DocumentStore{
		api:   api,
		state: DocumentState{Documents: []domain.Document{}},
	}
}

// Snapshot returns a copy of the current state
func (s *DocumentStore) Snapshot() DocumentState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Subscribe registers fn to receive every new state
func (s *DocumentStore) Subscribe(fn func(DocumentState)) func() {
	return s.subs.add(fn)
}

func (s *DocumentStore) update(fn func(*DocumentState)) {
	s.mu.Lock()
	fn(&s.state)
	snapshot := s.state.clone()
	s.mu.Unlock()

	s.subs.notify(snapshot)
}

func (s *DocumentStore) fail(op string, err error, msg string) {
	log.Warn().Err(err).Str("op", op).Msg("document request failed")
	s.update(func(st *DocumentState) {
		st.Error = msg
		st.IsLoading = false
	})
}

// FetchDocuments replaces the list with one page from the server. Zero page
// values default to page 1 of 10. The old list survives a failure.
func (s *DocumentStore) FetchDocuments(ctx context.Context, q domain.DocumentQuery) bool {
	if q.Page == 0 {
		q.Page = defaultPage
	}
	if q.PageSize == 0 {
		q.PageSize = defaultPageSize
	}

	s.update(func(st *DocumentState) {
		st.IsLoading = true
	})

	docs, err := s.api.ListDocuments(ctx, q)
	if err != nil {
		s.fail("fetch_documents", err, apiclient.DetailOf(err, "Failed to fetch documents"))
		return false
	}

	s.update(func(st *DocumentState) {
		st.Documents = docs
		st.IsLoading = false
	})
	return true
}

// UploadDocuments sends files in one request and appends the created records
func (s *DocumentStore) UploadDocuments(ctx context.Context, files []domain.UploadFile) *domain.UploadResult {
	s.update(func(st *DocumentState) {
		st.IsLoading = true
	})

	result, err := s.api.UploadDocuments(ctx, files)
	if err != nil {
		s.fail("upload_documents", err, apiclient.DetailOf(err, "Failed to upload documents"))
		return nil
	}

	s.update(func(st *DocumentState) {
		st.Documents = append(st.Documents, result.Documents...)
		st.IsLoading = false
	})
	return result
}

// IndexDocument requests indexing and, once the server accepts, marks the
// matching entry indexed. The flip is optimistic: the server may still be
// processing. ReconcileDocument replaces it with the confirmed record.
func (s *DocumentStore) IndexDocument(ctx context.Context, docID domain.ID, forceReindex bool) *domain.IndexResult {
	ack, err := s.api.IndexDocument(ctx, docID, forceReindex)
	if err != nil {
		s.fail("index_document", err, apiclient.DetailOf(err, "Failed to index document"))
		return nil
	}

	s.update(func(st *DocumentState) {
		docs := make([]domain.Document, len(st.Documents))
		for i, doc := range st.Documents {
			if doc.ID == docID {
				doc.Status = domain.DocumentStatusIndexed
				doc.Optimistic = true
			}
			docs[i] = doc
		}
		st.Documents = docs
	})
	return ack
}

// GetDocument fetches one document without touching the list
func (s *DocumentStore) GetDocument(ctx context.Context, docID domain.ID) *domain.Document {
	doc, err := s.api.GetDocument(ctx, docID)
	if err != nil {
		s.fail("get_document", err, apiclient.DetailOf(err, "Failed to get document"))
		return nil
	}
	return doc
}

// ReconcileDocument replaces the matching list entry with the server record
func (s *DocumentStore) ReconcileDocument(ctx context.Context, docID domain.ID) *domain.Document {
	doc, err := s.api.GetDocument(ctx, docID)
	if err != nil {
		s.fail("reconcile_document", err, apiclient.DetailOf(err, "Failed to get document"))
		return nil
	}

	confirmed := *doc
	confirmed.Optimistic = false
	s.update(func(st *DocumentState) {
		docs := make([]domain.Document, len(st.Documents))
		for i, d := range st.Documents {
			if d.ID == docID {
				d = confirmed
			}
			docs[i] = d
		}
		st.Documents = docs
	})
	return &confirmed
}

// IndexedDocuments returns the documents that can scope a chat
func (s *DocumentStore) IndexedDocuments() []domain.Document {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []domain.Document{}
	for _, doc := range s.state.Documents {
		if doc.Status == domain.DocumentStatusIndexed {
			out = append(out, doc)
		}
	}
	return out
}
