package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/Rrens/knowflow/internal/domain"
	"github.com/Rrens/knowflow/internal/store"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

const pickerPageSize = 100

func init() {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive chat shell",
		Long: `Interactive chat shell. Lines are sent as messages; a session is created on
the first message if none is active. Commands:

  /new [title]      start a new session
  /use <id>         switch to a session and show its transcript
  /rename <title>   rename the active session
  /delete           delete the active session
  /sessions         list sessions
  /docs             list indexed documents and the current selection
  /select <id>      toggle a document in the selection
  /quit             leave`,
		Args: cobra.NoArgs,
		RunE: runChat,
	}

	RootCmd.AddCommand(cmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	e := envFrom(cmd)
	if err := e.requireAuth(); err != nil {
		return err
	}

	in := cmd.InOrStdin()
	interactive := false
	if f, ok := in.(*os.File); ok {
		interactive = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}

	sh := &shell{
		app:    e.app,
		in:     bufio.NewScanner(in),
		out:    cmd.OutOrStdout(),
		prompt: interactive,
	}
	return sh.run(cmd.Context())
}

// shell is the line-oriented chat loop
type shell struct {
	app    *store.App
	in     *bufio.Scanner
	out    io.Writer
	prompt bool
}

var errQuit = errors.New("quit")

func (s *shell) run(ctx context.Context) error {
	if !s.app.Chat.FetchSessions(ctx) {
		s.printError(s.app.Chat.Snapshot().Error)
	}
	if !s.app.Documents.FetchDocuments(ctx, domain.DocumentQuery{PageSize: pickerPageSize}) {
		s.printError(s.app.Documents.Snapshot().Error)
	}
	fmt.Fprintln(s.out, mutedStyle.Render("Type a question, or /help for commands."))

	for {
		if s.prompt {
			fmt.Fprint(s.out, s.promptString())
		}
		if !s.in.Scan() {
			return s.in.Err()
		}

		line := strings.TrimSpace(s.in.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			err := s.command(ctx, line)
			if errors.Is(err, errQuit) {
				return nil
			}
			if err != nil {
				s.printError(err.Error())
			}
			continue
		}

		s.send(ctx, line)
	}
}

func (s *shell) promptString() string {
	title := "no session"
	if cur := s.app.Chat.Snapshot().CurrentSession; cur != nil {
		title = cur.Title
	}
	return mutedStyle.Render("["+title+"]") + " > "
}

func (s *shell) printError(msg string) {
	fmt.Fprintln(s.out, errorStyle.Render("error: "+msg))
}

func (s *shell) send(ctx context.Context, line string) {
	chat := s.app.Chat
	resp := chat.SendFirstMessage(ctx, line, chat.SelectedDocuments())
	if resp == nil {
		s.printError(storeError(chat.Snapshot().Error, "Failed to send message").Error())
		return
	}
	printReply(s.out, resp)
}

func (s *shell) command(ctx context.Context, line string) error {
	name, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	chat := s.app.Chat

	switch name {
	case "/quit", "/exit":
		return errQuit

	case "/help":
		fmt.Fprintln(s.out, "/new [title]  /use <id>  /rename <title>  /delete  /sessions  /docs  /select <id>  /quit")

	case "/new":
		title := rest
		if title == "" {
			title = chat.NextSessionTitle()
		}
		session := chat.CreateSession(ctx, title)
		if session == nil {
			return storeError(chat.Snapshot().Error, "Failed to create session")
		}
		fmt.Fprintf(s.out, "%s %s\n", successStyle.Render("Started"), session.Title)

	case "/use":
		if rest == "" {
			return errors.New("usage: /use <id>")
		}
		target := domain.ChatSession{ID: domain.ID(rest)}
		for _, sess := range chat.Snapshot().Sessions {
			if sess.ID == target.ID {
				target = sess
				break
			}
		}
		if !chat.SelectSession(ctx, target) {
			return storeError(chat.Snapshot().Error, "Failed to fetch session messages")
		}
		printTranscript(s.out, chat.Snapshot().CurrentSession)

	case "/rename":
		cur := chat.Snapshot().CurrentSession
		if cur == nil {
			return errors.New("no active session")
		}
		if rest == "" {
			return errors.New("usage: /rename <title>")
		}
		if !chat.RenameSession(ctx, cur.ID, rest) {
			return storeError(chat.Snapshot().Error, "Failed to rename chat session")
		}
		fmt.Fprintf(s.out, "Renamed to %s\n", rest)

	case "/delete":
		cur := chat.Snapshot().CurrentSession
		if cur == nil {
			return errors.New("no active session")
		}
		if !chat.DeleteSession(ctx, cur.ID) {
			return storeError(chat.Snapshot().Error, "Failed to delete session")
		}
		fmt.Fprintf(s.out, "Deleted %s\n", cur.Title)

	case "/sessions":
		st := chat.Snapshot()
		printSessions(s.out, st.Sessions, st.CurrentSession)

	case "/docs":
		s.printPicker()

	case "/select":
		if rest == "" {
			return errors.New("usage: /select <id>")
		}
		chat.ToggleDocument(rest)
		s.printPicker()

	default:
		return fmt.Errorf("unknown command %s (try /help)", name)
	}
	return nil
}

// printPicker lists indexed documents, marking the ones scoping new messages
func (s *shell) printPicker() {
	docs := s.app.Documents.IndexedDocuments()
	if len(docs) == 0 {
		fmt.Fprintln(s.out, mutedStyle.Render("no indexed documents"))
		return
	}

	selected := s.app.Chat.SelectedDocuments()
	rows := make([][]string, 0, len(docs))
	for _, d := range docs {
		mark := " "
		if slices.Contains(selected, d.ID.String()) {
			mark = "x"
		}
		rows = append(rows, []string{mark, d.ID.String(), d.Title})
	}
	fmt.Fprintln(s.out, renderTable([]string{"", "ID", "TITLE"}, rows))
}
