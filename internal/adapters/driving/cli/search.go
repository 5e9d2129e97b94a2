package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/libris/internal/core/domain"
)

var (
	searchLimit      int
	searchCollection string
	searchMinScore   float64
	searchJSON       bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the library",
	Long: `Performs semantic search over the indexed collections.
The query is embedded once and matched against stored chunk embeddings
by cosine similarity.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 5, "maximum number of results")
	searchCmd.Flags().StringVarP(&searchCollection, "collection", "c", "", "collection to search")
	searchCmd.Flags().Float64Var(&searchMinScore, "min-score", 0, "minimum similarity score")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]

	if ragService == nil {
		return errors.New("rag service not configured")
	}

	opts := domain.SearchOptions{
		Collection: searchCollection,
		Limit:      searchLimit,
		MinScore:   searchMinScore,
	}

	results, err := ragService.Search(cmd.Context(), query, opts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, results)
	}

	return outputSearchTable(cmd, results)
}

func outputSearchJSON(cmd *cobra.Command, results []domain.SearchResult) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, results []domain.SearchResult) error {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i := range results {
		name := results[i].Document.Name
		if name == "" {
			name = results[i].Document.ID
		}

		cmd.Printf("  [%d] %s (%.2f)\n", i+1, name, results[i].Score)
		cmd.Printf("      chunk %d: %s\n", results[i].Chunk.Index, snippet(results[i].Chunk.Text))
		cmd.Println()
	}

	return nil
}

// snippet truncates chunk text for table display.
func snippet(text string) string {
	const max = 120
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}
