package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/libris/internal/core/domain"
	"github.com/custodia-labs/libris/internal/core/ports/driving"
)

var (
	ingestName        string
	ingestCollection  string
	ingestContentType string
	ingestMetadata    []string
	ingestWait        bool
)

// ingestPollInterval is how often --wait polls the job tracker.
const ingestPollInterval = 200 * time.Millisecond

var ingestCmd = &cobra.Command{
	Use:   "ingest [file]",
	Short: "Index a document into the library",
	Long: `Reads extracted plain text from a file (or stdin when the argument
is "-") and submits it to the asynchronous ingestion pipeline.

Returns a job ID immediately; use "libris jobs status" to poll, or pass
--wait to block until the job reaches a terminal state.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestName, "name", "", "document display name (default: file name)")
	ingestCmd.Flags().StringVarP(&ingestCollection, "collection", "c", "", "target collection")
	ingestCmd.Flags().StringVar(&ingestContentType, "content-type", "text/plain", "MIME type of the original content")
	ingestCmd.Flags().StringArrayVarP(&ingestMetadata, "meta", "m", nil, "metadata as key=value (repeatable)")
	ingestCmd.Flags().BoolVarP(&ingestWait, "wait", "w", false, "block until the job finishes")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ragService == nil {
		return errors.New("rag service not configured")
	}

	path := args[0]
	text, name, err := readIngestInput(path)
	if err != nil {
		return err
	}
	if ingestName != "" {
		name = ingestName
	}

	metadata, err := parseMetadata(ingestMetadata)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	jobID, err := ragService.Ingest(ctx, driving.IngestRequest{
		Name:        name,
		ContentType: ingestContentType,
		Text:        text,
		Metadata:    metadata,
		Collection:  ingestCollection,
	})
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	cmd.Printf("Job %s accepted.\n", jobID)

	if !ingestWait {
		return nil
	}
	if jobService == nil {
		return errors.New("job service not configured")
	}
	return waitForJob(cmd, jobID)
}

// readIngestInput loads the document text from a file or stdin.
func readIngestInput(path string) (text, name string, err error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), "stdin", nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("reading %s: %w", path, err)
	}
	return string(data), filepath.Base(path), nil
}

// parseMetadata converts key=value flags into a map.
func parseMetadata(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	metadata := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid metadata %q, expected key=value", pair)
		}
		metadata[key] = value
	}
	return metadata, nil
}

// waitForJob polls until the job reaches a terminal state.
func waitForJob(cmd *cobra.Command, jobID string) error {
	ctx := cmd.Context()
	lastProgress := -1

	for {
		status, err := jobService.GetJobStatus(ctx, jobID)
		if err != nil {
			return fmt.Errorf("polling job %s: %w", jobID, err)
		}

		if status.Progress != lastProgress {
			cmd.Printf("  %s %d%%\n", status.State, status.Progress)
			lastProgress = status.Progress
		}

		if status.State.IsTerminal() {
			switch status.State {
			case domain.JobCompleted:
				cmd.Printf("Done. Document %s stored.\n", status.DocumentID)
				return nil
			case domain.JobCancelled:
				return fmt.Errorf("job %s was cancelled", jobID)
			default:
				return fmt.Errorf("job %s failed: %s", jobID, status.Error)
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(ingestPollInterval):
		}
	}
}
