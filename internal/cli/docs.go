package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Rrens/knowflow/internal/domain"
	"github.com/Rrens/knowflow/internal/store"
	"github.com/spf13/cobra"
)

func init() {
	docs := &cobra.Command{
		Use:   "docs",
		Short: "Manage documents",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List documents",
		Args:  cobra.NoArgs,
		RunE:  runDocsList,
	}
	list.Flags().StringP("status", "s", "", "Filter by status (pending, processing, indexed, failed)")
	list.Flags().Int("page", 1, "Page number")
	list.Flags().Int("page-size", 10, "Documents per page")

	upload := &cobra.Command{
		Use:   "upload <file>...",
		Short: "Upload one or more files",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runDocsUpload,
	}

	index := &cobra.Command{
		Use:   "index <id>",
		Short: "Start indexing a document",
		Args:  cobra.ExactArgs(1),
		RunE:  runDocsIndex,
	}
	index.Flags().Bool("force", false, "Re-index even if already indexed")
	index.Flags().Bool("wait", false, "Poll until the server reports a final status")
	index.Flags().Duration("interval", 2*time.Second, "Polling interval for --wait")

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one document",
		Args:  cobra.ExactArgs(1),
		RunE:  runDocsShow,
	}

	docs.AddCommand(list, upload, index, show)
	RootCmd.AddCommand(docs)
}

func runDocsList(cmd *cobra.Command, args []string) error {
	e := envFrom(cmd)
	if err := e.requireAuth(); err != nil {
		return err
	}

	status, _ := cmd.Flags().GetString("status")
	page, _ := cmd.Flags().GetInt("page")
	pageSize, _ := cmd.Flags().GetInt("page-size")

	documents := e.app.Documents
	ok := documents.FetchDocuments(cmd.Context(), domain.DocumentQuery{
		Status:   domain.DocumentStatus(status),
		Page:     page,
		PageSize: pageSize,
	})
	if !ok {
		return storeError(documents.Snapshot().Error, "Failed to fetch documents")
	}

	docs := documents.Snapshot().Documents
	if asJSON() {
		return printJSON(cmd.OutOrStdout(), docs)
	}
	printDocuments(cmd.OutOrStdout(), docs)
	return nil
}

func runDocsUpload(cmd *cobra.Command, args []string) error {
	e := envFrom(cmd)
	if err := e.requireAuth(); err != nil {
		return err
	}

	files := make([]domain.UploadFile, 0, len(args))
	for _, path := range args {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer f.Close()
		files = append(files, domain.UploadFile{Name: filepath.Base(path), Reader: f})
	}

	documents := e.app.Documents
	result := documents.UploadDocuments(cmd.Context(), files)
	if result == nil {
		return storeError(documents.Snapshot().Error, "Failed to upload documents")
	}

	if asJSON() {
		return printJSON(cmd.OutOrStdout(), result)
	}
	if result.Message != "" {
		fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(result.Message))
	}
	printDocuments(cmd.OutOrStdout(), result.Documents)
	return nil
}

func runDocsIndex(cmd *cobra.Command, args []string) error {
	e := envFrom(cmd)
	if err := e.requireAuth(); err != nil {
		return err
	}

	force, _ := cmd.Flags().GetBool("force")
	wait, _ := cmd.Flags().GetBool("wait")
	interval, _ := cmd.Flags().GetDuration("interval")
	docID := domain.ID(args[0])

	documents := e.app.Documents
	ack := documents.IndexDocument(cmd.Context(), docID, force)
	if ack == nil {
		return storeError(documents.Snapshot().Error, "Failed to index document")
	}

	if !wait {
		if asJSON() {
			return printJSON(cmd.OutOrStdout(), ack)
		}
		msg := ack.Message
		if msg == "" {
			msg = "Indexing requested"
		}
		fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(msg))
		return nil
	}

	doc, err := waitForIndex(cmd.Context(), documents, docID, interval)
	if err != nil {
		return err
	}
	if asJSON() {
		return printJSON(cmd.OutOrStdout(), doc)
	}
	printDocuments(cmd.OutOrStdout(), []domain.Document{*doc})
	return nil
}

// waitForIndex reconciles the document until the server reports a final state
func waitForIndex(ctx context.Context, documents *store.DocumentStore, docID domain.ID, interval time.Duration) (*domain.Document, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		doc := documents.ReconcileDocument(ctx, docID)
		if doc == nil {
			return nil, storeError(documents.Snapshot().Error, "Failed to get document")
		}
		if doc.Status == domain.DocumentStatusIndexed || doc.Status == domain.DocumentStatusFailed {
			return doc, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func runDocsShow(cmd *cobra.Command, args []string) error {
	e := envFrom(cmd)
	if err := e.requireAuth(); err != nil {
		return err
	}

	documents := e.app.Documents
	doc := documents.GetDocument(cmd.Context(), domain.ID(args[0]))
	if doc == nil {
		return storeError(documents.Snapshot().Error, "Failed to get document")
	}

	if asJSON() {
		return printJSON(cmd.OutOrStdout(), doc)
	}
	printDocuments(cmd.OutOrStdout(), []domain.Document{*doc})
	return nil
}
