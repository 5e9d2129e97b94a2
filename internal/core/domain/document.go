package domain

import "time"

// Document represents an ingested text document.
// The host catalog extracts the text; Libris never parses container formats.
//
// Documents are treated as immutable values: mutation happens only through
// the With* copy methods, so a Document handed to a concurrent reader never
// changes underneath it.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// Name is the human-readable name (usually the originating file name).
	Name string

	// ContentType is the MIME type of the original content.
	ContentType string

	// SizeBytes is the size of the original content.
	SizeBytes int64

	// Metadata contains arbitrary key-value pairs supplied by the host.
	Metadata map[string]string

	// Chunks are the document's chunks, in index order.
	// Empty until the ingestion pipeline has run.
	Chunks []DocumentChunk

	// CreatedAt is when the document was first ingested.
	CreatedAt time.Time

	// UpdatedAt is when the document was last replaced.
	UpdatedAt time.Time
}

// WithChunks returns a copy of the document carrying the given chunks.
// The receiver is not modified.
func (d Document) WithChunks(chunks []DocumentChunk) Document {
	out := d
	out.Chunks = make([]DocumentChunk, len(chunks))
	copy(out.Chunks, chunks)
	out.UpdatedAt = time.Now().UTC()
	return out
}

// WithMetadata returns a copy of the document carrying the given metadata.
// The receiver is not modified.
func (d Document) WithMetadata(metadata map[string]string) Document {
	out := d
	out.Metadata = make(map[string]string, len(metadata))
	for k, v := range metadata {
		out.Metadata[k] = v
	}
	out.UpdatedAt = time.Now().UTC()
	return out
}

// DocumentChunk is a bounded-length substring of a document, the unit of
// embedding and retrieval. Offsets are byte positions into the source text
// and never change after creation.
type DocumentChunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// DocumentID links to the parent Document.
	DocumentID string

	// Text is the chunk content.
	Text string

	// Metadata contains chunk-specific key-value pairs.
	Metadata map[string]string

	// Embedding is the vector representation. Nil until the embedding
	// stage of the ingestion pipeline has completed.
	Embedding []float32

	// Index is the 0-based, contiguous position within the parent document.
	Index int

	// StartOffset is the byte offset of the chunk start in the source text.
	StartOffset int

	// EndOffset is the byte offset one past the chunk end.
	EndOffset int
}

// HasEmbedding reports whether the embedding stage has run for this chunk.
func (c DocumentChunk) HasEmbedding() bool {
	return len(c.Embedding) > 0
}
