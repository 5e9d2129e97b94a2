package driving

import (
	"context"

	"github.com/custodia-labs/libris/internal/core/domain"
)

// IngestRequest describes one document to ingest. Text arrives already
// extracted; Libris never parses container formats.
type IngestRequest struct {
	// Name is the document's display name.
	Name string

	// ContentType is the MIME type of the original content.
	ContentType string

	// Text is the extracted plain text.
	Text string

	// Metadata is carried through to the stored document.
	Metadata map[string]string

	// Collection is the target collection. Empty means the default.
	Collection string
}

// AnswerRequest configures retrieval-augmented answer generation.
type AnswerRequest struct {
	// Question is the user's question.
	Question string

	// Collection is the collection to retrieve from. Empty means default.
	Collection string

	// MaxResults caps the retrieved context chunks (default 5).
	MaxResults int

	// MinScore excludes weakly matching chunks.
	MinScore float64

	// Mode selects generative synthesis or the extractive fallback.
	// Empty means generative when a provider is active, extractive
	// otherwise.
	Mode domain.AnswerMode
}

// RAGService is the orchestrating entry point: ingestion, retrieval and
// answer generation.
type RAGService interface {
	// Ingest accepts a document for asynchronous processing and returns
	// a job ID immediately. Poll JobService for completion.
	Ingest(ctx context.Context, req IngestRequest) (string, error)

	// RemoveDocument deletes a document and its chunks from a collection.
	RemoveDocument(ctx context.Context, collection, documentID string) (bool, error)

	// Search embeds the query once and returns ranked results. A blank
	// query returns an empty list, not an error.
	Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.SearchResult, error)

	// Answer retrieves relevant chunks and produces an answer. When
	// nothing relevant is found the fixed no-information answer is
	// returned with empty sources.
	Answer(ctx context.Context, req AnswerRequest) (*domain.Answer, error)

	// SuggestMetadata produces summary metadata for a stored document,
	// for the host catalog to review. Requires an active provider.
	SuggestMetadata(ctx context.Context, collection, documentID string) (map[string]string, error)

	// Stats reports the document and chunk counts of a collection.
	Stats(ctx context.Context, collection string) (domain.CollectionStats, error)
}

// JobService exposes ingestion job tracking to the host's presentation
// layer.
type JobService interface {
	// GetJobStatus returns a snapshot of one job.
	GetJobStatus(ctx context.Context, jobID string) (*domain.JobStatus, error)

	// CancelJob requests cooperative cancellation. Jobs already terminal
	// return domain.ErrJobTerminal.
	CancelJob(ctx context.Context, jobID string) error

	// GetStats summarises tracked jobs.
	GetStats(ctx context.Context) (domain.JobStats, error)
}
