package cli

import (
	"strings"

	"github.com/Rrens/knowflow/internal/domain"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask one question",
		Long:  "Ask one question. Without --session a new session titled \"New Chat\" is created.",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runAsk,
	}

	cmd.Flags().String("session", "", "Session to continue")
	cmd.Flags().StringSlice("doc", nil, "Restrict retrieval to these document ids (repeatable)")

	RootCmd.AddCommand(cmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	e := envFrom(cmd)
	if err := e.requireAuth(); err != nil {
		return err
	}

	sessionID, _ := cmd.Flags().GetString("session")
	docs, _ := cmd.Flags().GetStringSlice("doc")
	question := strings.Join(args, " ")

	chat := e.app.Chat
	var resp *domain.ChatResponse
	if sessionID != "" {
		resp = chat.SendMessage(cmd.Context(), question, domain.ID(sessionID), docs)
	} else {
		resp = chat.SendFirstMessage(cmd.Context(), question, docs)
	}
	if resp == nil {
		return storeError(chat.Snapshot().Error, "Failed to send message")
	}

	if asJSON() {
		return printJSON(cmd.OutOrStdout(), resp)
	}
	printReply(cmd.OutOrStdout(), resp)
	return nil
}
