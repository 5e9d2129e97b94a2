package cli

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var (
	documentCollection string
)

var documentCmd = &cobra.Command{
	Use:   "document",
	Short: "Manage indexed documents",
	Long:  `Remove indexed documents, suggest metadata, and view collection statistics.`,
}

var documentRemoveCmd = &cobra.Command{
	Use:   "remove [doc-id]",
	Short: "Remove a document and its chunks",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentRemove,
}

var documentSuggestCmd = &cobra.Command{
	Use:   "suggest [doc-id]",
	Short: "Suggest metadata for a document",
	Long: `Asks the active provider to summarise a stored document and prints
the suggested metadata for the catalog to review. Requires an active
provider.`,
	Args: cobra.ExactArgs(1),
	RunE: runDocumentSuggest,
}

var documentStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show collection statistics",
	RunE:  runDocumentStats,
}

func init() {
	documentCmd.PersistentFlags().StringVarP(&documentCollection, "collection", "c", "", "collection (default when omitted)")

	documentCmd.AddCommand(documentRemoveCmd)
	documentCmd.AddCommand(documentSuggestCmd)
	documentCmd.AddCommand(documentStatsCmd)
	rootCmd.AddCommand(documentCmd)
}

func runDocumentRemove(cmd *cobra.Command, args []string) error {
	if ragService == nil {
		return errors.New("rag service not configured")
	}

	docID := args[0]
	removed, err := ragService.RemoveDocument(cmd.Context(), documentCollection, docID)
	if err != nil {
		return fmt.Errorf("failed to remove document: %w", err)
	}

	if !removed {
		cmd.Printf("Document %s not found.\n", docID)
		return nil
	}

	cmd.Printf("Document %s removed.\n", docID)
	return nil
}

func runDocumentSuggest(cmd *cobra.Command, args []string) error {
	if ragService == nil {
		return errors.New("rag service not configured")
	}

	docID := args[0]
	metadata, err := ragService.SuggestMetadata(cmd.Context(), documentCollection, docID)
	if err != nil {
		return fmt.Errorf("failed to suggest metadata: %w", err)
	}

	cmd.Printf("Suggested metadata for %s:\n\n", docID)
	keys := make([]string, 0, len(metadata))
	for k := range metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		cmd.Printf("  %s: %s\n", k, metadata[k])
	}

	return nil
}

func runDocumentStats(cmd *cobra.Command, _ []string) error {
	if ragService == nil {
		return errors.New("rag service not configured")
	}

	stats, err := ragService.Stats(cmd.Context(), documentCollection)
	if err != nil {
		return fmt.Errorf("failed to get stats: %w", err)
	}

	cmd.Printf("Collection: %s\n\n", stats.Collection)
	cmd.Printf("  Documents: %d\n", stats.Documents)
	cmd.Printf("  Chunks:    %d\n", stats.Chunks)

	return nil
}
