package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Rrens/knowflow/internal/apiclient/fakeapi"
	"github.com/Rrens/knowflow/internal/domain"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testEmail    = "alice@example.com"
	testPassword = "password123"
)

func setup(t *testing.T) *fakeapi.Server {
	t.Helper()
	srv := fakeapi.New(t)
	srv.AddUser("alice", testEmail, testPassword)

	t.Setenv("KNOWFLOW_HOME", t.TempDir())
	t.Setenv("KNOWFLOW_CONFIG", "")
	t.Setenv("KNOWFLOW_API_URL", srv.BaseURL())
	t.Setenv("KNOWFLOW_STORAGE", "file")
	t.Setenv("LOG_LEVEL", "error")
	return srv
}

// resetFlags puts every flag back to its default; RootCmd is a package global
// and cobra keeps parsed values between executions.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			sv.Replace(nil)
		} else {
			f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func executeContext(ctx context.Context, stdin string, args ...string) (string, error) {
	resetFlags(RootCmd)

	var out bytes.Buffer
	RootCmd.SetArgs(args)
	RootCmd.SetOut(&out)
	RootCmd.SetErr(io.Discard)
	RootCmd.SetIn(strings.NewReader(stdin))

	err := Execute(ctx)
	return out.String(), err
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	return executeContext(context.Background(), stdin, args...)
}

func login(t *testing.T) {
	t.Helper()
	_, err := execute(t, "", "login", "-e", testEmail, "-p", testPassword)
	require.NoError(t, err)
}

func TestLoginWhoamiLogout(t *testing.T) {
	setup(t)

	_, err := execute(t, "", "whoami")
	assert.ErrorIs(t, err, errNotSignedIn)

	out, err := execute(t, "", "login", "-e", testEmail, "-p", testPassword, "-f", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"is_authenticated": true`)

	out, err = execute(t, "", "whoami", "--format", "json")
	require.NoError(t, err)
	var who whoamiOutput
	require.NoError(t, json.Unmarshal([]byte(out), &who))
	assert.Equal(t, "alice", who.Username)
	assert.Equal(t, testEmail, who.Email)
	assert.NotNil(t, who.ExpiresAt)

	out, err = execute(t, "", "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed out")

	_, err = execute(t, "", "whoami")
	assert.ErrorIs(t, err, errNotSignedIn)
}

func TestLogin_PasswordFromStdin(t *testing.T) {
	setup(t)

	out, err := execute(t, testPassword+"\n", "login", "-e", testEmail)
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as alice")
}

func TestLogin_WrongPassword(t *testing.T) {
	setup(t)

	_, err := execute(t, "", "login", "-e", testEmail, "-p", "nope-nope")
	require.Error(t, err)
	assert.Equal(t, "Incorrect email or password", err.Error())
}

func TestRegister(t *testing.T) {
	srv := setup(t)

	_, err := execute(t, "", "register", "-u", "al", "-e", "bob@example.com", "-p", "password123")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "username")
	for _, r := range srv.Requests() {
		assert.NotEqual(t, "/auth/register", r.Path, "invalid input never reaches the API")
	}

	out, err := execute(t, "", "register", "-u", "bob", "-e", "bob@example.com", "-p", "password123")
	require.NoError(t, err)
	assert.Contains(t, out, "Account created.")

	_, err = execute(t, "", "register", "-u", "bob", "-e", "bob@example.com", "-p", "password123")
	require.Error(t, err)
	assert.Equal(t, "Email already registered", err.Error())
}

func TestInvalidFormat(t *testing.T) {
	setup(t)

	_, err := execute(t, "", "whoami", "-f", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")
}

func TestExpiredTokenIsForgotten(t *testing.T) {
	srv := setup(t)
	login(t)

	srv.ExpireTokens()

	_, err := execute(t, "", "whoami")
	assert.ErrorIs(t, err, errNotSignedIn)

	before := srv.RequestCount()
	_, err = execute(t, "", "whoami")
	assert.ErrorIs(t, err, errNotSignedIn)
	assert.Equal(t, before, srv.RequestCount(), "purged token means no profile call")
}

func TestDocuments(t *testing.T) {
	srv := setup(t)
	login(t)

	path := filepath.Join(t.TempDir(), "guide.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o600))

	out, err := execute(t, "", "docs", "upload", path, "-f", "json")
	require.NoError(t, err)
	var uploaded domain.UploadResult
	require.NoError(t, json.Unmarshal([]byte(out), &uploaded))
	require.Len(t, uploaded.Documents, 1)
	docID := uploaded.Documents[0].ID
	assert.Equal(t, "guide.txt", uploaded.Documents[0].Title)
	assert.Equal(t, "1 document(s) uploaded", uploaded.Message)

	out, err = execute(t, "", "docs", "index", docID.String())
	require.NoError(t, err)
	assert.Contains(t, out, "Indexing started")

	doc, ok := srv.Document(docID)
	require.True(t, ok)
	assert.Equal(t, domain.DocumentStatusProcessing, doc.Status)

	_, err = execute(t, "", "docs", "index", docID.String())
	require.NoError(t, err, "processing documents can be indexed again")

	srv.SetDocumentStatus(docID, domain.DocumentStatusIndexed)
	_, err = execute(t, "", "docs", "index", docID.String())
	require.Error(t, err)
	assert.Equal(t, "Document already indexed", err.Error())

	// forced re-index goes back to processing; --wait polls until it settles
	time.AfterFunc(50*time.Millisecond, func() {
		srv.SetDocumentStatus(docID, domain.DocumentStatusIndexed)
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	out, err = executeContext(ctx, "", "docs", "index", docID.String(), "--force", "--wait", "--interval", "10ms", "-f", "json")
	require.NoError(t, err)
	var settled domain.Document
	require.NoError(t, json.Unmarshal([]byte(out), &settled))
	assert.Equal(t, domain.DocumentStatusIndexed, settled.Status)

	out, err = execute(t, "", "docs", "show", docID.String())
	require.NoError(t, err)
	assert.Contains(t, out, "guide.txt")
	assert.Contains(t, out, "indexed")

	srv.SeedDocument("pending.pdf", domain.DocumentStatusPending)
	out, err = execute(t, "", "docs", "list", "--status", "indexed", "-f", "json")
	require.NoError(t, err)
	var docs []domain.Document
	require.NoError(t, json.Unmarshal([]byte(out), &docs))
	require.Len(t, docs, 1)
	assert.Equal(t, docID, docs[0].ID)

	_, err = execute(t, "", "docs", "show", "doc-404")
	require.Error(t, err)
}

func TestSessionsAndAsk(t *testing.T) {
	srv := setup(t)
	login(t)
	doc := srv.SeedDocument("guide.pdf", domain.DocumentStatusIndexed)

	out, err := execute(t, "", "sessions", "new", "-f", "json")
	require.NoError(t, err)
	var session domain.ChatSession
	require.NoError(t, json.Unmarshal([]byte(out), &session))
	assert.Equal(t, "Chat 1", session.Title)

	out, err = execute(t, "", "sessions", "rename", session.ID.String(), "Research", "notes")
	require.NoError(t, err)
	assert.Contains(t, out, "Renamed to Research notes")
	stored, ok := srv.Session(session.ID)
	require.True(t, ok)
	assert.Equal(t, "Research notes", stored.Title)

	out, err = execute(t, "", "ask", "--session", session.ID.String(), "--doc", doc.ID.String(), "-f", "json", "What", "is", "X?")
	require.NoError(t, err)
	var resp domain.ChatResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "Echo: What is X?", resp.Message)
	require.NotNil(t, resp.ContextUsed)
	assert.Equal(t, []string{doc.ID.String()}, resp.ContextUsed.FilteredDocumentIDs)

	out, err = execute(t, "", "sessions", "show", session.ID.String())
	require.NoError(t, err)
	assert.Contains(t, out, "Research notes")
	assert.Contains(t, out, "What is X?")
	assert.Contains(t, out, "Echo: What is X?")

	out, err = execute(t, "", "sessions", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Research notes")

	_, err = execute(t, "", "sessions", "rm", session.ID.String())
	require.NoError(t, err)
	_, ok = srv.Session(session.ID)
	assert.False(t, ok)

	_, err = execute(t, "", "sessions", "rm", session.ID.String())
	require.Error(t, err)
	assert.Equal(t, "Session not found", err.Error())
}

func TestAsk_WithoutSessionCreatesOne(t *testing.T) {
	srv := setup(t)
	login(t)

	out, err := execute(t, "", "ask", "hello")
	require.NoError(t, err)
	assert.Contains(t, out, "Echo: hello")

	out, err = execute(t, "", "sessions", "list", "-f", "json")
	require.NoError(t, err)
	var sessions []domain.ChatSession
	require.NoError(t, json.Unmarshal([]byte(out), &sessions))
	require.Len(t, sessions, 1)
	assert.Equal(t, "New Chat", sessions[0].Title)

	srv.Fail("POST", "/chat", 500, "model unavailable")
	_, err = execute(t, "", "ask", "--session", sessions[0].ID.String(), "again")
	require.Error(t, err)
	assert.Equal(t, "model unavailable", err.Error())
}

func TestChatShell(t *testing.T) {
	srv := setup(t)
	login(t)
	doc := srv.SeedDocument("guide.pdf", domain.DocumentStatusIndexed)
	srv.SeedDocument("draft.pdf", domain.DocumentStatusPending)

	script := strings.Join([]string{
		"/new Notes",
		"/docs",
		"/select " + doc.ID.String(),
		"hello there",
		"/rename Renamed notes",
		"/sessions",
		"/bogus",
		"/delete",
		"/use 999",
		"/quit",
		"never sent",
	}, "\n")

	out, err := execute(t, script, "chat")
	require.NoError(t, err)

	assert.Contains(t, out, "Started Notes")
	assert.Contains(t, out, "guide.pdf")
	assert.NotContains(t, out, "draft.pdf", "only indexed documents are offered")
	assert.Contains(t, out, "Echo: hello there")
	assert.Contains(t, out, "sources: "+doc.ID.String())
	assert.Contains(t, out, "Renamed to Renamed notes")
	assert.Contains(t, out, "unknown command /bogus")
	assert.Contains(t, out, "Session not found")
	assert.Contains(t, out, "Deleted Renamed notes")
	assert.NotContains(t, out, "never sent")

	chats := 0
	for _, r := range srv.Requests() {
		if r.Method == "POST" && r.Path == "/chat" {
			chats++
		}
	}
	assert.Equal(t, 1, chats)
}

func TestChatShell_RequiresLogin(t *testing.T) {
	setup(t)

	_, err := execute(t, "hello\n", "chat")
	assert.ErrorIs(t, err, errNotSignedIn)
}

func TestServe_StopsOnCancel(t *testing.T) {
	setup(t)
	login(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := executeContext(ctx, "", "serve", "--host", "127.0.0.1", "--port", "0")
		done <- err
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop")
	}
}

func TestEnvironmentComesFromExecute(t *testing.T) {
	setup(t)
	resetFlags(RootCmd)
	RootCmd.SetArgs([]string{"whoami"})
	RootCmd.SetOut(io.Discard)
	RootCmd.SetErr(io.Discard)

	err := RootCmd.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cli.Execute")

	slot := &envSlot{}
	ctx := context.WithValue(context.Background(), envKey{}, slot)
	got, ok := slotFrom(ctx)
	require.True(t, ok)
	assert.Same(t, slot, got)
}
