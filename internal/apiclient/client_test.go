package apiclient_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Rrens/knowflow/internal/apiclient"
	"github.com/Rrens/knowflow/internal/apiclient/fakeapi"
	"github.com/Rrens/knowflow/internal/domain"
	"github.com/Rrens/knowflow/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*fakeapi.Server, *apiclient.Client, *memory.KV) {
	t.Helper()
	srv := fakeapi.New(t)
	tokens := memory.NewKV()
	return srv, apiclient.New(srv.BaseURL(), 5*time.Second, tokens), tokens
}

func login(t *testing.T, srv *fakeapi.Server, tokens *memory.KV) {
	t.Helper()
	srv.AddUser("alice", "alice@example.com", "password123")
	require.NoError(t, tokens.Set(context.Background(), domain.TokenKey, srv.IssueToken("alice@example.com")))
}

func TestClient_BearerHeader(t *testing.T) {
	srv, client, tokens := setup(t)
	ctx := context.Background()

	_, err := client.Me(ctx)
	require.Error(t, err)
	assert.True(t, apiclient.IsUnauthorized(err))
	assert.Equal(t, "", srv.Requests()[0].Authorization, "no token means no header")

	login(t, srv, tokens)
	token, _, _ := tokens.Get(ctx, domain.TokenKey)

	me, err := client.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alice", me.Username)

	reqs := srv.Requests()
	assert.Equal(t, "Bearer "+token, reqs[1].Authorization)
	assert.NotEmpty(t, reqs[1].RequestID)
	assert.NotEqual(t, reqs[0].RequestID, reqs[1].RequestID)
}

func TestClient_Login(t *testing.T) {
	srv, client, tokens := setup(t)
	srv.AddUser("alice", "alice@example.com", "password123")
	ctx := context.Background()

	resp, err := client.Login(ctx, "alice@example.com", "password123")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "bearer", resp.TokenType)
	require.NotNil(t, resp.User)
	assert.Equal(t, domain.ID("1"), resp.User.ID)

	_, ok, _ := tokens.Get(ctx, domain.TokenKey)
	assert.False(t, ok, "client never persists tokens")

	_, err = client.Login(ctx, "alice@example.com", "wrong")
	assert.Equal(t, "Incorrect email or password", apiclient.DetailOf(err, "Login failed"))
}

func TestClient_RegisterValidationDetail(t *testing.T) {
	_, client, _ := setup(t)

	err := client.Register(context.Background(), domain.UserRegister{
		Username: "al",
		Email:    "not-an-email",
		Password: "password123",
	})
	require.Error(t, err)

	var apiErr *apiclient.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	assert.Equal(t, "username: ensure this value has at least 3 characters; email: value is not a valid email address", apiErr.Detail)
}

func TestClient_ListDocumentsQuery(t *testing.T) {
	srv, client, tokens := setup(t)
	login(t, srv, tokens)
	srv.SeedDocument("a.pdf", domain.DocumentStatusIndexed)
	srv.SeedDocument("b.pdf", domain.DocumentStatusPending)
	srv.SeedDocument("c.pdf", domain.DocumentStatusIndexed)
	ctx := context.Background()

	docs, err := client.ListDocuments(ctx, domain.DocumentQuery{Status: domain.DocumentStatusIndexed, Page: 1, PageSize: 1})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "a.pdf", docs[0].Title)

	last := srv.Requests()[len(srv.Requests())-1]
	assert.Equal(t, "page=1&page_size=1&status=indexed", last.Query)

	docs, err = client.ListDocuments(ctx, domain.DocumentQuery{Status: domain.DocumentStatusFailed})
	require.NoError(t, err)
	assert.NotNil(t, docs)
	assert.Empty(t, docs)

	last = srv.Requests()[len(srv.Requests())-1]
	assert.Equal(t, "status=failed", last.Query)
}

func TestClient_UploadMultipart(t *testing.T) {
	srv, client, tokens := setup(t)
	login(t, srv, tokens)

	result, err := client.UploadDocuments(context.Background(), []domain.UploadFile{
		{Name: "/tmp/report.pdf", Reader: strings.NewReader("%PDF-1.4")},
		{Name: "notes.txt", Reader: strings.NewReader("hello")},
	})
	require.NoError(t, err)
	require.Len(t, result.Documents, 2)
	assert.Equal(t, "report.pdf", result.Documents[0].Title)
	assert.NotEmpty(t, result.Documents[0].ID, "doc_id is mapped onto ID")
	assert.Equal(t, domain.DocumentStatusPending, result.Documents[1].Status)
	assert.Equal(t, "2 document(s) uploaded", result.Message)

	last := srv.Requests()[len(srv.Requests())-1]
	assert.True(t, strings.HasPrefix(last.ContentType, "multipart/form-data; boundary="))
}

func TestClient_IndexAndGetDocument(t *testing.T) {
	srv, client, tokens := setup(t)
	login(t, srv, tokens)
	doc := srv.SeedDocument("a.pdf", domain.DocumentStatusPending)
	ctx := context.Background()

	ack, err := client.IndexDocument(ctx, doc.ID, false)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, ack.DocID)

	got, err := client.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentStatusProcessing, got.Status)

	_, err = client.GetDocument(ctx, "missing")
	assert.Equal(t, "Document not found", apiclient.DetailOf(err, ""))
}

func TestClient_Sessions(t *testing.T) {
	srv, client, tokens := setup(t)
	login(t, srv, tokens)
	ctx := context.Background()

	created, err := client.CreateSession(ctx, "Chat 1")
	require.NoError(t, err)
	assert.Equal(t, "Chat 1", created.Title)

	require.NoError(t, client.RenameSession(ctx, created.ID, "Renamed"))
	renameReq := srv.Requests()[len(srv.Requests())-1]
	assert.Equal(t, http.MethodPut, renameReq.Method)
	assert.Equal(t, "/chat/"+created.ID.String()+"/rename", renameReq.Path)

	resp, err := client.Chat(ctx, domain.ChatRequest{Query: "What is X?", SessionID: created.ID, DocumentIDs: []string{"doc1"}})
	require.NoError(t, err)
	assert.Equal(t, "Echo: What is X?", resp.Message)
	require.NotNil(t, resp.ContextUsed)
	assert.Equal(t, []string{"doc1"}, resp.ContextUsed.FilteredDocumentIDs)

	full, err := client.GetSession(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", full.Title)
	require.Len(t, full.Messages, 2)
	assert.Equal(t, domain.RoleUser, full.Messages[0].Sender)

	list, err := client.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Empty(t, list[0].Messages)

	require.NoError(t, client.DeleteSession(ctx, created.ID))
	deleteReq := srv.Requests()[len(srv.Requests())-1]
	assert.Equal(t, http.MethodDelete, deleteReq.Method)
	assert.Equal(t, "/chat/"+created.ID.String(), deleteReq.Path)

	list, err = client.ListSessions(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	err = client.DeleteSession(ctx, created.ID)
	assert.Equal(t, "Session not found", apiclient.DetailOf(err, ""))
}

func TestClient_TransportError(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	dead.Close()

	client := apiclient.New(dead.URL, time.Second, memory.NewKV())
	_, err := client.ListSessions(context.Background())
	require.Error(t, err)
	assert.True(t, apiclient.IsTransport(err))
	assert.Equal(t, "Failed to fetch sessions", apiclient.DetailOf(err, "Failed to fetch sessions"))
}

func TestClient_InjectedFailure(t *testing.T) {
	srv, client, tokens := setup(t)
	login(t, srv, tokens)
	srv.Fail(http.MethodGet, "/sessions", http.StatusInternalServerError, "database unavailable")
	ctx := context.Background()

	_, err := client.ListSessions(ctx)
	var apiErr *apiclient.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	assert.Equal(t, "database unavailable", apiErr.Detail)
	assert.NotEmpty(t, apiErr.RequestID)

	_, err = client.ListSessions(ctx)
	assert.NoError(t, err, "failures are one-shot")
}

func TestClient_ZonelessTimestamps(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/sessions":
			w.Write([]byte(`[{"id":1,"title":"Chat 1","created_at":"2024-05-01T12:34:56.123456","updated_at":"2024-05-01T12:35:00"}]`))
		case "/document":
			w.Write([]byte(`[{"id":"d1","title":"a.pdf","status":"indexed","created_at":"2024-05-01T08:00:00+02:00"}]`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer ts.Close()

	client := apiclient.New(ts.URL, time.Second, nil)
	ctx := context.Background()

	sessions, err := client.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	require.NotNil(t, sessions[0].CreatedAt)
	assert.Equal(t, time.Date(2024, 5, 1, 12, 34, 56, 123456000, time.UTC), sessions[0].CreatedAt.Time)
	assert.Equal(t, time.Date(2024, 5, 1, 12, 35, 0, 0, time.UTC), sessions[0].UpdatedAt.Time)

	docs, err := client.ListDocuments(ctx, domain.DocumentQuery{})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.True(t, time.Date(2024, 5, 1, 6, 0, 0, 0, time.UTC).Equal(docs[0].CreatedAt.Time))
}

func TestClient_MalformedSuccessBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": [`))
	}))
	defer ts.Close()

	client := apiclient.New(ts.URL, time.Second, nil)
	_, err := client.GetSession(context.Background(), "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode response")
}
