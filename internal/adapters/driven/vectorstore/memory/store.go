// Package memory provides the reference in-memory vector store.
// It is intended for reference scale: similarity search is a linear scan
// over the collection under a single lock. Networked backends implement
// the same port with sub-linear search.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/libris/internal/core/domain"
	"github.com/custodia-labs/libris/internal/core/ports/driven"
	"github.com/custodia-labs/libris/internal/vectormath"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// Store is an in-memory implementation of driven.VectorStore.
// All collection reads and mutations happen under one RWMutex; callers
// must never hold a network call open while inside the store.
type Store struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

// collection holds one isolated namespace of documents and chunks.
type collection struct {
	// documents are stored without their chunk slices.
	documents map[string]domain.Document

	// chunks are keyed by document ID, in index order.
	chunks map[string][]domain.DocumentChunk

	// order preserves document insertion order for stable pagination.
	order []string

	// dimension is fixed by the first stored embedding.
	dimension int
}

// NewStore creates an empty in-memory vector store.
func NewStore() *Store {
	return &Store{
		collections: make(map[string]*collection),
	}
}

// AddDocument stores a document and its chunks, replacing any previous
// version of the same document.
func (s *Store) AddDocument(_ context.Context, name string, doc domain.Document, chunks []domain.DocumentChunk) (int, error) {
	if doc.ID == "" {
		return 0, fmt.Errorf("%w: document ID is empty", domain.ErrInvalidInput)
	}
	for i := range chunks {
		if chunks[i].DocumentID != doc.ID {
			return 0, fmt.Errorf("%w: chunk %d belongs to document %q, not %q",
				domain.ErrInvalidInput, i, chunks[i].DocumentID, doc.ID)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	col := s.collection(name)

	// Dimension is pinned by the first embedding ever stored.
	for i := range chunks {
		if !chunks[i].HasEmbedding() {
			continue
		}
		if col.dimension == 0 {
			col.dimension = len(chunks[i].Embedding)
		}
		if len(chunks[i].Embedding) != col.dimension {
			return 0, fmt.Errorf("chunk %q has dimension %d, collection %q expects %d: %w",
				chunks[i].ID, len(chunks[i].Embedding), name, col.dimension, domain.ErrDimensionMismatch)
		}
	}

	if _, exists := col.documents[doc.ID]; !exists {
		col.order = append(col.order, doc.ID)
	}

	stored := doc
	stored.Chunks = nil
	col.documents[doc.ID] = stored

	copied := make([]domain.DocumentChunk, len(chunks))
	copy(copied, chunks)
	sort.Slice(copied, func(i, j int) bool { return copied[i].Index < copied[j].Index })
	col.chunks[doc.ID] = copied

	return len(copied), nil
}

// RemoveDocument deletes a document and all its chunks.
func (s *Store) RemoveDocument(_ context.Context, name, documentID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	col, ok := s.collections[name]
	if !ok {
		return false, nil
	}
	if _, exists := col.documents[documentID]; !exists {
		return false, nil
	}

	delete(col.documents, documentID)
	delete(col.chunks, documentID)
	for i, id := range col.order {
		if id == documentID {
			col.order = append(col.order[:i], col.order[i+1:]...)
			break
		}
	}
	return true, nil
}

// SimilaritySearch scans every stored chunk and ranks by cosine similarity.
func (s *Store) SimilaritySearch(_ context.Context, name string, query []float32, opts domain.SearchOptions) ([]driven.ScoredChunk, error) {
	if len(query) == 0 {
		return nil, fmt.Errorf("%w: query embedding is empty", domain.ErrInvalidInput)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	col, ok := s.collections[name]
	if !ok {
		// An unknown collection has no matches; that is not an error.
		return []driven.ScoredChunk{}, nil
	}
	if col.dimension != 0 && len(query) != col.dimension {
		return nil, fmt.Errorf("query has dimension %d, collection %q expects %d: %w",
			len(query), name, col.dimension, domain.ErrDimensionMismatch)
	}

	var hits []driven.ScoredChunk
	for _, docChunks := range col.chunks {
		for i := range docChunks {
			chunk := docChunks[i]
			if !chunk.HasEmbedding() {
				continue
			}
			if !matchesFilter(chunk.Metadata, opts.Filter) {
				continue
			}
			score := vectormath.Cosine(query, chunk.Embedding)
			if score < opts.MinScore {
				continue
			}
			hits = append(hits, driven.ScoredChunk{Chunk: chunk, Score: score})
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Chunk.Index < hits[j].Chunk.Index
	})

	if opts.Limit > 0 && len(hits) > opts.Limit {
		hits = hits[:opts.Limit]
	}
	return hits, nil
}

// GetDocument retrieves a document by ID, without its chunks.
func (s *Store) GetDocument(_ context.Context, name, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	col, ok := s.collections[name]
	if !ok {
		return nil, domain.ErrNotFound
	}
	doc, ok := col.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

// ListDocuments pages through documents in insertion order.
func (s *Store) ListDocuments(_ context.Context, name string, limit, offset int) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	col, ok := s.collections[name]
	if !ok {
		return nil, nil
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(col.order) {
		return nil, nil
	}

	end := len(col.order)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}

	out := make([]domain.Document, 0, end-offset)
	for _, id := range col.order[offset:end] {
		out = append(out, col.documents[id])
	}
	return out, nil
}

// GetDocumentChunks returns a document's chunks in index order.
// An unknown document has no chunks; that is not an error.
func (s *Store) GetDocumentChunks(_ context.Context, name, documentID string) ([]domain.DocumentChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	col, ok := s.collections[name]
	if !ok {
		return nil, nil
	}
	chunks := col.chunks[documentID]
	out := make([]domain.DocumentChunk, len(chunks))
	copy(out, chunks)
	return out, nil
}

// Stats summarises a collection.
func (s *Store) Stats(_ context.Context, name string) (domain.CollectionStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := domain.CollectionStats{Collection: name}
	col, ok := s.collections[name]
	if !ok {
		return stats, nil
	}
	stats.Documents = len(col.documents)
	for _, chunks := range col.chunks {
		stats.Chunks += len(chunks)
	}
	return stats, nil
}

// Close releases resources (no-op for the in-memory store).
func (*Store) Close() error {
	return nil
}

// collection returns the named collection, creating it if needed.
// Caller must hold the write lock.
func (s *Store) collection(name string) *collection {
	col, ok := s.collections[name]
	if !ok {
		col = &collection{
			documents: make(map[string]domain.Document),
			chunks:    make(map[string][]domain.DocumentChunk),
		}
		s.collections[name] = col
	}
	return col
}

// matchesFilter reports whether metadata contains every filter pair.
func matchesFilter(metadata, filter map[string]string) bool {
	for k, v := range filter {
		if metadata[k] != v {
			return false
		}
	}
	return true
}
