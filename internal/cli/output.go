package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/Rrens/knowflow/internal/domain"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true)
	userStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#20B9B4"))
	assistantStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F4D03F"))
	mutedStyle     = lipgloss.NewStyle().Faint(true)
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#2CD7C7"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#E74C3C"))
)

func asJSON() bool {
	return formatFlag == "json"
}

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	fmt.Fprintln(w, string(b))
	return nil
}

func renderTable(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Headers(headers...).
		Rows(rows...).
		String()
}

func formatTime(t *domain.Timestamp) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func printDocuments(w io.Writer, docs []domain.Document) {
	if len(docs) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("no documents"))
		return
	}

	rows := make([][]string, 0, len(docs))
	for _, d := range docs {
		status := string(d.Status)
		if d.Optimistic {
			status += " (unconfirmed)"
		}
		rows = append(rows, []string{d.ID.String(), d.Title, status, formatTime(d.CreatedAt)})
	}
	fmt.Fprintln(w, renderTable([]string{"ID", "TITLE", "STATUS", "CREATED"}, rows))
}

func printSessions(w io.Writer, sessions []domain.ChatSession, current *domain.ChatSession) {
	if len(sessions) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("no sessions"))
		return
	}

	rows := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		marker := ""
		if current != nil && current.ID == s.ID {
			marker = "*"
		}
		rows = append(rows, []string{marker, s.ID.String(), s.Title, formatTime(s.UpdatedAt)})
	}
	fmt.Fprintln(w, renderTable([]string{"", "ID", "TITLE", "UPDATED"}, rows))
}

func printMessage(w io.Writer, m domain.Message) {
	switch m.Sender {
	case domain.RoleUser:
		fmt.Fprintf(w, "%s %s\n", userStyle.Render("you>"), m.Content)
	default:
		fmt.Fprintf(w, "%s %s\n", assistantStyle.Render("assistant>"), m.Content)
		if m.ContextUsed != nil && len(m.ContextUsed.FilteredDocumentIDs) > 0 {
			fmt.Fprintln(w, mutedStyle.Render("  sources: "+strings.Join(m.ContextUsed.FilteredDocumentIDs, ", ")))
		}
	}
}

func printTranscript(w io.Writer, s *domain.ChatSession) {
	fmt.Fprintf(w, "%s %s\n", headerStyle.Render(s.Title), mutedStyle.Render("#"+s.ID.String()))
	if len(s.Messages) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("(no messages yet)"))
		return
	}
	for _, m := range s.Messages {
		printMessage(w, m)
	}
}

func printReply(w io.Writer, resp *domain.ChatResponse) {
	printMessage(w, domain.Message{
		Sender:      domain.RoleAssistant,
		Content:     resp.Message,
		ContextUsed: resp.ContextUsed,
	})
}
