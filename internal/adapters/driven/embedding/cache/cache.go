// Package cache decorates an embedding service with a bounded LRU cache
// keyed by exact input text. Repeated ingestion of identical chunks and
// repeated queries skip the backend entirely.
package cache

import (
	"container/list"
	"context"
	"sync"

	"github.com/custodia-labs/libris/internal/core/ports/driven"
)

// Ensure Service implements the interface.
var _ driven.EmbeddingService = (*Service)(nil)

// DefaultCapacity bounds the number of cached embeddings.
const DefaultCapacity = 1024

// Service wraps an embedding backend with an LRU cache.
type Service struct {
	inner driven.EmbeddingService

	mu       sync.Mutex
	capacity int
	entries  map[string]*list.Element
	lru      *list.List // front = most recently used

	hits   uint64
	misses uint64
}

// entry is an LRU list payload.
type entry struct {
	text      string
	embedding []float32
}

// New creates a caching decorator around inner. A non-positive capacity
// falls back to DefaultCapacity.
func New(inner driven.EmbeddingService, capacity int) *Service {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Service{
		inner:    inner,
		capacity: capacity,
		entries:  make(map[string]*list.Element),
		lru:      list.New(),
	}
}

// Embed returns the cached embedding for text, or generates and caches it.
func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	if cached, ok := s.get(text); ok {
		return cached, nil
	}

	embedding, err := s.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	s.put(text, embedding)
	return embedding, nil
}

// EmbedBatch serves what it can from the cache and forwards only the
// misses, preserving input order in the result.
func (s *Service) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int
	for i, text := range texts {
		if cached, ok := s.get(text); ok {
			out[i] = cached
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}

	if len(missing) > 0 {
		embeddings, err := s.inner.EmbedBatch(ctx, missing)
		if err != nil {
			return nil, err
		}
		for i, embedding := range embeddings {
			out[missingIdx[i]] = embedding
			s.put(missing[i], embedding)
		}
	}

	return out, nil
}

// Dimensions returns the backend's embedding vector size.
func (s *Service) Dimensions() int {
	return s.inner.Dimensions()
}

// ModelName returns the backend's model name.
func (s *Service) ModelName() string {
	return s.inner.ModelName()
}

// Ping validates the backend is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.inner.Ping(ctx)
}

// Close releases the backend's resources.
func (s *Service) Close() error {
	return s.inner.Close()
}

// Stats reports cache hit and miss counts.
func (s *Service) Stats() (hits, misses uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits, s.misses
}

// Len reports how many embeddings are currently cached.
func (s *Service) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lru.Len()
}

// get looks up text and promotes it to most recently used.
func (s *Service) get(text string) ([]float32, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	elem, ok := s.entries[text]
	if !ok {
		s.misses++
		return nil, false
	}
	s.lru.MoveToFront(elem)
	s.hits++
	return elem.Value.(*entry).embedding, true
}

// put stores an embedding, evicting the least recently used entry when
// the cache is full.
func (s *Service) put(text string, embedding []float32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if elem, ok := s.entries[text]; ok {
		s.lru.MoveToFront(elem)
		elem.Value.(*entry).embedding = embedding
		return
	}

	if s.lru.Len() >= s.capacity {
		oldest := s.lru.Back()
		if oldest != nil {
			s.lru.Remove(oldest)
			delete(s.entries, oldest.Value.(*entry).text)
		}
	}

	s.entries[text] = s.lru.PushFront(&entry{text: text, embedding: embedding})
}
