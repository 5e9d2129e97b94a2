package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/libris/internal/core/domain"
	"github.com/custodia-labs/libris/internal/core/ports/driving"
)

var (
	askCollection string
	askMaxResults int
	askMinScore   float64
	askMode       string
	askJSON       bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question grounded on the library",
	Long: `Retrieves the most relevant chunks for the question and produces an
answer with source attribution.

With an active provider the answer is synthesised by the model from the
retrieved context. Without one, or with --mode extractive, the top chunk
excerpts are returned directly.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askCollection, "collection", "c", "", "collection to retrieve from")
	askCmd.Flags().IntVarP(&askMaxResults, "max-results", "n", 5, "maximum context chunks")
	askCmd.Flags().Float64Var(&askMinScore, "min-score", 0, "minimum similarity score")
	askCmd.Flags().StringVar(&askMode, "mode", "", "answer mode: generative or extractive")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output answer as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := args[0]

	if ragService == nil {
		return errors.New("rag service not configured")
	}

	answer, err := ragService.Answer(cmd.Context(), driving.AnswerRequest{
		Question:   question,
		Collection: askCollection,
		MaxResults: askMaxResults,
		MinScore:   askMinScore,
		Mode:       domain.AnswerMode(askMode),
	})
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	if askJSON {
		data, err := json.MarshalIndent(answer, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal answer: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Println(answer.Text)

	if len(answer.Sources) > 0 {
		cmd.Println()
		cmd.Println("Sources:")
		for i := range answer.Sources {
			name := answer.Sources[i].Document.Name
			if name == "" {
				name = answer.Sources[i].Document.ID
			}
			cmd.Printf("  [%d] %s (%.2f)\n", i+1, name, answer.Sources[i].Score)
		}
	}

	return nil
}
