package domain

// DefaultCollection is the vector store collection used when a request
// does not name one.
const DefaultCollection = "default"

// SearchOptions configures a similarity search.
type SearchOptions struct {
	// Collection is the vector store collection to search.
	// Empty means DefaultCollection.
	Collection string

	// Limit is the maximum number of results (default 5).
	Limit int

	// MinScore excludes results scoring below this threshold.
	MinScore float64

	// Filter restricts results to chunks whose metadata contains
	// every listed key-value pair. Nil means no filtering.
	Filter map[string]string
}

// SearchResult represents a single retrieval hit. Results are ephemeral:
// computed per query and never persisted.
type SearchResult struct {
	// Chunk is the matched chunk.
	Chunk DocumentChunk

	// Document is the chunk's parent document (without its chunk slice).
	Document Document

	// Score is the cosine similarity in [0, 1], non-increasing by rank.
	Score float64
}

// Answer is the outcome of retrieval-augmented answer generation.
type Answer struct {
	// Text is the synthesised (or extractive) answer.
	Text string

	// Sources are the chunks the answer was grounded on, best first.
	Sources []SearchResult

	// Generative reports whether a generation backend produced the text.
	// False means the extractive fallback concatenated chunk excerpts.
	Generative bool
}

// AnswerMode selects how answers are produced.
type AnswerMode string

// Answer generation modes.
const (
	// AnswerModeGenerative synthesises an answer with the active provider.
	AnswerModeGenerative AnswerMode = "generative"

	// AnswerModeExtractive concatenates top chunk excerpts without a model.
	AnswerModeExtractive AnswerMode = "extractive"
)

// IsValid returns true if the answer mode is recognised.
func (m AnswerMode) IsValid() bool {
	return m == AnswerModeGenerative || m == AnswerModeExtractive
}

// NoRelevantInformation is the fixed answer returned when retrieval finds
// nothing above the score threshold.
const NoRelevantInformation = "No relevant information found in the knowledge base for this question."

// CollectionStats summarises one vector store collection.
type CollectionStats struct {
	// Collection is the collection name.
	Collection string

	// Documents is the number of stored documents.
	Documents int

	// Chunks is the number of stored chunks.
	Chunks int
}
