package cli

import (
	"fmt"
	"strings"

	"github.com/Rrens/knowflow/internal/domain"
	"github.com/spf13/cobra"
)

func init() {
	sessions := &cobra.Command{
		Use:     "sessions",
		Aliases: []string{"s"},
		Short:   "Manage chat sessions",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List sessions",
		Args:  cobra.NoArgs,
		RunE:  runSessionsList,
	}

	create := &cobra.Command{
		Use:   "new [title]",
		Short: "Create a session (default title: Chat N)",
		RunE:  runSessionsNew,
	}

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Print a session transcript",
		Args:  cobra.ExactArgs(1),
		RunE:  runSessionsShow,
	}

	rename := &cobra.Command{
		Use:   "rename <id> <title>",
		Short: "Rename a session",
		Args:  cobra.MinimumNArgs(2),
		RunE:  runSessionsRename,
	}

	rm := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a session",
		Args:  cobra.ExactArgs(1),
		RunE:  runSessionsRm,
	}

	sessions.AddCommand(list, create, show, rename, rm)
	RootCmd.AddCommand(sessions)
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	e := envFrom(cmd)
	if err := e.requireAuth(); err != nil {
		return err
	}

	chat := e.app.Chat
	if !chat.FetchSessions(cmd.Context()) {
		return storeError(chat.Snapshot().Error, "Failed to fetch sessions")
	}

	state := chat.Snapshot()
	if asJSON() {
		return printJSON(cmd.OutOrStdout(), state.Sessions)
	}
	printSessions(cmd.OutOrStdout(), state.Sessions, state.CurrentSession)
	return nil
}

func runSessionsNew(cmd *cobra.Command, args []string) error {
	e := envFrom(cmd)
	if err := e.requireAuth(); err != nil {
		return err
	}

	chat := e.app.Chat
	title := strings.TrimSpace(strings.Join(args, " "))
	if title == "" {
		// the suggested title counts existing sessions
		if !chat.FetchSessions(cmd.Context()) {
			return storeError(chat.Snapshot().Error, "Failed to fetch sessions")
		}
		title = chat.NextSessionTitle()
	}

	session := chat.CreateSession(cmd.Context(), title)
	if session == nil {
		return storeError(chat.Snapshot().Error, "Failed to create session")
	}

	if asJSON() {
		return printJSON(cmd.OutOrStdout(), session)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", successStyle.Render("Created"), session.Title)
	fmt.Fprintln(cmd.OutOrStdout(), mutedStyle.Render("id: "+session.ID.String()))
	return nil
}

func runSessionsShow(cmd *cobra.Command, args []string) error {
	e := envFrom(cmd)
	if err := e.requireAuth(); err != nil {
		return err
	}

	chat := e.app.Chat
	if !chat.SelectSession(cmd.Context(), domain.ChatSession{ID: domain.ID(args[0])}) {
		return storeError(chat.Snapshot().Error, "Failed to fetch session messages")
	}

	session := chat.Snapshot().CurrentSession
	if asJSON() {
		return printJSON(cmd.OutOrStdout(), session)
	}
	printTranscript(cmd.OutOrStdout(), session)
	return nil
}

func runSessionsRename(cmd *cobra.Command, args []string) error {
	e := envFrom(cmd)
	if err := e.requireAuth(); err != nil {
		return err
	}

	chat := e.app.Chat
	sessionID := domain.ID(args[0])
	title := strings.Join(args[1:], " ")
	if !chat.RenameSession(cmd.Context(), sessionID, title) {
		return storeError(chat.Snapshot().Error, "Failed to rename chat session")
	}

	if asJSON() {
		return printJSON(cmd.OutOrStdout(), map[string]string{"session_id": sessionID.String(), "new_title": title})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Renamed to %s\n", title)
	return nil
}

func runSessionsRm(cmd *cobra.Command, args []string) error {
	e := envFrom(cmd)
	if err := e.requireAuth(); err != nil {
		return err
	}

	chat := e.app.Chat
	sessionID := domain.ID(args[0])
	if !chat.DeleteSession(cmd.Context(), sessionID) {
		return storeError(chat.Snapshot().Error, "Failed to delete session")
	}

	if asJSON() {
		return printJSON(cmd.OutOrStdout(), map[string]string{"deleted": sessionID.String()})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted session %s\n", sessionID)
	return nil
}
