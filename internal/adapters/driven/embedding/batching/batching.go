// Package batching decorates an embedding service with fixed-size batch
// grouping, head-preserving truncation and transient-failure retry.
package batching

import (
	"context"
	"fmt"

	"github.com/custodia-labs/libris/internal/core/ports/driven"
	"github.com/custodia-labs/libris/internal/retry"
)

// Ensure Service implements the interface.
var _ driven.EmbeddingService = (*Service)(nil)

// Default configuration values.
const (
	// DefaultBatchSize bounds how many texts go into one backend request.
	DefaultBatchSize = 32

	// DefaultMaxTextLen is the per-text rune budget. Texts beyond it are
	// truncated from the tail; the head always survives.
	DefaultMaxTextLen = 8192
)

// Option configures the batching service.
type Option func(*Service)

// WithBatchSize overrides the batch size.
func WithBatchSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithMaxTextLen overrides the per-text rune budget. Zero disables
// truncation.
func WithMaxTextLen(n int) Option {
	return func(s *Service) {
		s.maxTextLen = n
	}
}

// WithRetryPolicy overrides the backoff policy for transient failures.
func WithRetryPolicy(p retry.Policy) Option {
	return func(s *Service) {
		s.policy = p
	}
}

// Service wraps an embedding backend with batching and truncation.
type Service struct {
	inner      driven.EmbeddingService
	batchSize  int
	maxTextLen int
	policy     retry.Policy
}

// New creates a batching decorator around inner.
func New(inner driven.EmbeddingService, opts ...Option) *Service {
	s := &Service{
		inner:      inner,
		batchSize:  DefaultBatchSize,
		maxTextLen: DefaultMaxTextLen,
		policy:     retry.DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Embed generates an embedding for a single text.
func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}
	return embeddings[0], nil
}

// EmbedBatch splits texts into fixed-size groups, truncates over-long
// inputs and embeds each group, retrying transient failures. The output
// has one vector per input in the original order.
func (s *Service) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	prepared := make([]string, len(texts))
	for i, text := range texts {
		prepared[i] = truncate(text, s.maxTextLen)
	}

	out := make([][]float32, 0, len(prepared))
	for start := 0; start < len(prepared); start += s.batchSize {
		end := start + s.batchSize
		if end > len(prepared) {
			end = len(prepared)
		}
		group := prepared[start:end]

		var embeddings [][]float32
		err := s.policy.Do(ctx, func(ctx context.Context) error {
			var innerErr error
			embeddings, innerErr = s.inner.EmbedBatch(ctx, group)
			return innerErr
		})
		if err != nil {
			return nil, fmt.Errorf("embedding batch %d-%d: %w", start, end, err)
		}
		if len(embeddings) != len(group) {
			return nil, fmt.Errorf("embedding batch %d-%d: got %d vectors for %d inputs",
				start, end, len(embeddings), len(group))
		}
		out = append(out, embeddings...)
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

// truncate keeps the first maxLen runes of text. A zero or negative
// budget disables truncation.
func truncate(text string, maxLen int) string {
	if maxLen <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	return string(runes[:maxLen])
}
