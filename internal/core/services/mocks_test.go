package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/libris/internal/core/domain"
	"github.com/custodia-labs/libris/internal/core/ports/driven"
)

// mockStore is an in-memory driven.VectorStore fake recording calls.
type mockStore struct {
	mu        sync.Mutex
	docs      map[string]domain.Document
	chunks    map[string][]domain.DocumentChunk
	hits      []driven.ScoredChunk
	searchErr error
	addErr    error
}

var _ driven.VectorStore = (*mockStore)(nil)

func newMockStore() *mockStore {
	return &mockStore{
		docs:   make(map[string]domain.Document),
		chunks: make(map[string][]domain.DocumentChunk),
	}
}

func (m *mockStore) AddDocument(_ context.Context, _ string, doc domain.Document, chunks []domain.DocumentChunk) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.addErr != nil {
		return 0, m.addErr
	}
	m.docs[doc.ID] = doc
	m.chunks[doc.ID] = chunks
	return len(chunks), nil
}

func (m *mockStore) RemoveDocument(_ context.Context, _, documentID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[documentID]; !ok {
		return false, nil
	}
	delete(m.docs, documentID)
	delete(m.chunks, documentID)
	return true, nil
}

func (m *mockStore) SimilaritySearch(_ context.Context, _ string, _ []float32, _ domain.SearchOptions) ([]driven.ScoredChunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	return m.hits, nil
}

func (m *mockStore) GetDocument(_ context.Context, _, id string) (*domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return nil, fmt.Errorf("document %q: %w", id, domain.ErrNotFound)
	}
	return &doc, nil
}

func (m *mockStore) ListDocuments(_ context.Context, _ string, _, _ int) ([]domain.Document, error) {
	return nil, nil
}

func (m *mockStore) GetDocumentChunks(_ context.Context, _, documentID string) ([]domain.DocumentChunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.chunks[documentID], nil
}

func (m *mockStore) Stats(_ context.Context, collection string) (domain.CollectionStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := domain.CollectionStats{Collection: collection, Documents: len(m.docs)}
	for _, chunks := range m.chunks {
		stats.Chunks += len(chunks)
	}
	return stats, nil
}

func (m *mockStore) Close() error { return nil }

func (m *mockStore) storedChunks(documentID string) []domain.DocumentChunk {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.chunks[documentID]
}

// mockEmbedder is a deterministic driven.EmbeddingService fake.
// Vectors encode the rune length of the input text.
type mockEmbedder struct {
	mu       sync.Mutex
	batchErr error
	embedErr error
	calls    int
	block    chan struct{} // when set, EmbedBatch waits for ctx or release
}

var _ driven.EmbeddingService = (*mockEmbedder)(nil)

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := m.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (m *mockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.calls++
	block := m.block
	batchErr := m.batchErr
	embedErr := m.embedErr
	m.mu.Unlock()

	if block != nil {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-block:
		}
	}
	if batchErr != nil {
		return nil, batchErr
	}
	if embedErr != nil {
		return nil, embedErr
	}

	vecs := make([][]float32, len(texts))
	for i, text := range texts {
		vecs[i] = []float32{float32(len([]rune(text))), 1}
	}
	return vecs, nil
}

func (m *mockEmbedder) Dimensions() int            { return 2 }
func (m *mockEmbedder) ModelName() string          { return "mock-embed" }
func (m *mockEmbedder) Ping(context.Context) error { return nil }
func (m *mockEmbedder) Close() error               { return nil }

// nopLimiter satisfies driven.RateLimiter and counts outcomes.
type nopLimiter struct {
	mu       sync.Mutex
	acquires int
	records  int
}

var _ driven.RateLimiter = (*nopLimiter)(nil)

func (l *nopLimiter) Acquire(context.Context, string, time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.acquires++
	return nil
}

func (l *nopLimiter) Release(string) {}

func (l *nopLimiter) Record(string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records++
}

// mockPrompts serves the built-in prompt templates.
type mockPrompts struct{}

var _ driven.PromptStore = (*mockPrompts)(nil)

func (mockPrompts) Load(name string) (string, error) {
	switch name {
	case driven.PromptAnswerSystem:
		return "Answer from context only.", nil
	case driven.PromptAnswer:
		return "Context:\n%s\n\nQuestion: %s", nil
	case driven.PromptSummarise:
		return "Summarise in %d chars:\n%s", nil
	default:
		return "", fmt.Errorf("prompt %q: %w", name, domain.ErrNotFound)
	}
}

// mockLLM is a canned driven.LLMService fake.
type mockLLM struct {
	mu          sync.Mutex
	available   bool
	completion  string
	chatContent string
	chatErr     error
	genErr      error
	lastChat    []driven.ChatMessage
	lastPrompt  string
	models      []domain.ModelInfo
	closed      bool
}

var _ driven.LLMService = (*mockLLM)(nil)

func (m *mockLLM) IsAvailable(context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.available
}

func (m *mockLLM) GenerateCompletion(_ context.Context, prompt string, _ driven.GenerateOptions) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastPrompt = prompt
	if m.genErr != nil {
		return "", m.genErr
	}
	return m.completion, nil
}

func (m *mockLLM) GenerateChatCompletion(_ context.Context, messages []driven.ChatMessage, _ driven.ChatOptions) (*driven.ChatResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastChat = messages
	if m.chatErr != nil {
		return nil, m.chatErr
	}
	return &driven.ChatResult{Content: m.chatContent, Role: "assistant"}, nil
}

func (m *mockLLM) CreateEmbedding(context.Context, string) ([]float32, error) {
	return nil, &domain.ProviderError{Class: domain.ErrorInvalidRequest, Provider: m.Provider()}
}

func (m *mockLLM) ListModels(context.Context) ([]domain.ModelInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.models, nil
}

func (m *mockLLM) Provider() domain.AIProvider { return domain.AIProviderOllama }
func (m *mockLLM) ModelName() string           { return "mock-llm" }

func (m *mockLLM) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockLLM) chatMessages() []driven.ChatMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastChat
}
