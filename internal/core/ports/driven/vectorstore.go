package driven

import (
	"context"

	"github.com/custodia-labs/libris/internal/core/domain"
)

// ScoredChunk pairs a chunk with its similarity score for one query.
type ScoredChunk struct {
	// Chunk is the matched chunk.
	Chunk domain.DocumentChunk

	// Score is the cosine similarity against the query embedding.
	Score float64
}

// VectorStore stores chunks and their embeddings per named collection and
// answers similarity queries.
//
// The in-memory implementation is the reference; networked backends sit
// behind this same contract. Implementations must keep a single document's
// add/remove atomic with respect to concurrent searches.
type VectorStore interface {
	// AddDocument stores a document and its chunks in a collection,
	// replacing any previous version of the same document. Returns the
	// number of chunks stored.
	AddDocument(ctx context.Context, collection string, doc domain.Document, chunks []domain.DocumentChunk) (int, error)

	// RemoveDocument deletes a document and all its chunks from a
	// collection. Returns true iff the document existed.
	RemoveDocument(ctx context.Context, collection, documentID string) (bool, error)

	// SimilaritySearch returns chunks scoring at least opts.MinScore
	// against the query embedding, sorted by score descending with ties
	// broken by ascending chunk index, at most opts.Limit entries.
	SimilaritySearch(ctx context.Context, collection string, query []float32, opts domain.SearchOptions) ([]ScoredChunk, error)

	// GetDocument retrieves a document by ID, without its chunks.
	GetDocument(ctx context.Context, collection, id string) (*domain.Document, error)

	// ListDocuments pages through a collection's documents.
	ListDocuments(ctx context.Context, collection string, limit, offset int) ([]domain.Document, error)

	// GetDocumentChunks returns a document's chunks in index order.
	GetDocumentChunks(ctx context.Context, collection, documentID string) ([]domain.DocumentChunk, error)

	// Stats summarises a collection.
	Stats(ctx context.Context, collection string) (domain.CollectionStats, error)

	// Close releases resources.
	Close() error
}
