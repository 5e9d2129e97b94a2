package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/libris/internal/core/domain"
	"github.com/custodia-labs/libris/internal/core/ports/driven"
	"github.com/custodia-labs/libris/internal/core/ports/driving"
)

// ragFixture wires a RAGService over mocks.
type ragFixture struct {
	svc      *RAGService
	store    *mockStore
	embedder *mockEmbedder
	limiter  *nopLimiter
	jobs     *JobTracker
	mgr      *ProviderManager
	llm      *mockLLM
}

// newRAGFixture builds the service. When llm is nil the provider manager
// runs degraded.
func newRAGFixture(t *testing.T, llm *mockLLM) *ragFixture {
	t.Helper()

	store := newMockStore()
	embedder := &mockEmbedder{}
	limiter := &nopLimiter{}
	jobs := NewJobTracker(0)

	available := map[string]*mockLLM{}
	if llm != nil {
		available["local"] = llm
	}
	mgr := NewProviderManager(providerSettings(), stubFactory(available))
	mgr.Initialise(context.Background())

	svc, err := NewRAGService(store, embedder, limiter, mockPrompts{}, jobs, mgr, RAGConfig{
		ChunkSize:    50,
		ChunkOverlap: 10,
		Workers:      2,
	})
	require.NoError(t, err)

	return &ragFixture{
		svc:      svc,
		store:    store,
		embedder: embedder,
		limiter:  limiter,
		jobs:     jobs,
		mgr:      mgr,
		llm:      llm,
	}
}

// waitForTerminal polls until the job reaches a terminal state.
func waitForTerminal(t *testing.T, jobs *JobTracker, jobID string) domain.JobStatus {
	t.Helper()

	var status *domain.JobStatus
	require.Eventually(t, func() bool {
		var err error
		status, err = jobs.GetJobStatus(context.Background(), jobID)
		require.NoError(t, err)
		return status.State.IsTerminal()
	}, 5*time.Second, 10*time.Millisecond)
	return *status
}

func TestRAG_Ingest_EmptyText(t *testing.T) {
	f := newRAGFixture(t, nil)

	_, err := f.svc.Ingest(context.Background(), driving.IngestRequest{Name: "empty.txt", Text: "   "})

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRAG_Ingest_Completes(t *testing.T) {
	f := newRAGFixture(t, nil)

	jobID, err := f.svc.Ingest(context.Background(), driving.IngestRequest{
		Name:        "notes.md",
		ContentType: "text/markdown",
		Text:        "# Heading\n\nFirst paragraph of notes.\n\nSecond paragraph, slightly longer than the first one.",
		Metadata:    map[string]string{"author": "me"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, jobID)

	status := waitForTerminal(t, f.jobs, jobID)
	assert.Equal(t, domain.JobCompleted, status.State)
	assert.Equal(t, domain.ProgressStored, status.Progress)
	require.NotEmpty(t, status.DocumentID)

	chunks := f.store.storedChunks(status.DocumentID)
	require.NotEmpty(t, chunks)
	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.Index)
		assert.Equal(t, status.DocumentID, chunk.DocumentID)
		assert.True(t, chunk.HasEmbedding())
	}

	doc, err := f.store.GetDocument(context.Background(), domain.DefaultCollection, status.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, "notes.md", doc.Name)
	assert.Equal(t, "me", doc.Metadata["author"])
}

func TestRAG_Ingest_EmbeddingFailure(t *testing.T) {
	f := newRAGFixture(t, nil)
	f.embedder.batchErr = &domain.ProviderError{
		Class:    domain.ErrorAuthentication,
		Provider: domain.AIProviderOpenAI,
		Endpoint: "embeddings",
		Err:      assert.AnError,
	}

	jobID, err := f.svc.Ingest(context.Background(), driving.IngestRequest{Name: "a.txt", Text: "some text"})
	require.NoError(t, err)

	status := waitForTerminal(t, f.jobs, jobID)
	assert.Equal(t, domain.JobFailed, status.State)
	assert.Contains(t, status.Error, "embed chunks")
}

func TestRAG_Ingest_Cancel(t *testing.T) {
	f := newRAGFixture(t, nil)
	f.embedder.block = make(chan struct{})

	jobID, err := f.svc.Ingest(context.Background(), driving.IngestRequest{Name: "slow.txt", Text: "some text"})
	require.NoError(t, err)

	// Wait for the worker to reach the blocking embed call.
	require.Eventually(t, func() bool {
		status, err := f.jobs.GetJobStatus(context.Background(), jobID)
		require.NoError(t, err)
		return status.State == domain.JobProcessing
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, f.jobs.CancelJob(context.Background(), jobID))

	status := waitForTerminal(t, f.jobs, jobID)
	assert.Equal(t, domain.JobCancelled, status.State)
	assert.Empty(t, f.store.storedChunks(status.DocumentID))
}

func TestRAG_Search_BlankQuery(t *testing.T) {
	f := newRAGFixture(t, nil)

	results, err := f.svc.Search(context.Background(), "  \t ", domain.SearchOptions{})

	require.NoError(t, err)
	assert.Empty(t, results)
	assert.NotNil(t, results)
}

func TestRAG_Search_HydratesDocuments(t *testing.T) {
	f := newRAGFixture(t, nil)
	f.store.docs["doc-1"] = domain.Document{ID: "doc-1", Name: "guide.md"}
	f.store.hits = []driven.ScoredChunk{
		{Chunk: domain.DocumentChunk{ID: "c1", DocumentID: "doc-1", Text: "alpha", Index: 0}, Score: 0.9},
		{Chunk: domain.DocumentChunk{ID: "c2", DocumentID: "doc-1", Text: "beta", Index: 1}, Score: 0.7},
	}

	results, err := f.svc.Search(context.Background(), "query", domain.SearchOptions{})

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "guide.md", results[0].Document.Name)
	assert.Equal(t, 0.9, results[0].Score)
	assert.Equal(t, "beta", results[1].Chunk.Text)
}

func TestRAG_Search_SkipsOrphanedChunks(t *testing.T) {
	f := newRAGFixture(t, nil)
	f.store.hits = []driven.ScoredChunk{
		{Chunk: domain.DocumentChunk{ID: "c1", DocumentID: "gone", Text: "alpha"}, Score: 0.9},
	}

	results, err := f.svc.Search(context.Background(), "query", domain.SearchOptions{})

	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRAG_Answer_EmptyQuestion(t *testing.T) {
	f := newRAGFixture(t, nil)

	_, err := f.svc.Answer(context.Background(), driving.AnswerRequest{Question: " "})

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRAG_Answer_NoResults(t *testing.T) {
	f := newRAGFixture(t, nil)

	answer, err := f.svc.Answer(context.Background(), driving.AnswerRequest{Question: "anything?"})

	require.NoError(t, err)
	assert.Equal(t, domain.NoRelevantInformation, answer.Text)
	assert.Empty(t, answer.Sources)
	assert.False(t, answer.Generative)
}

func TestRAG_Answer_ExtractiveWithoutProvider(t *testing.T) {
	f := newRAGFixture(t, nil)
	f.store.docs["doc-1"] = domain.Document{ID: "doc-1", Name: "guide.md"}
	f.store.hits = []driven.ScoredChunk{
		{Chunk: domain.DocumentChunk{ID: "c1", DocumentID: "doc-1", Text: "the answer lives here"}, Score: 0.8},
	}

	answer, err := f.svc.Answer(context.Background(), driving.AnswerRequest{Question: "where?"})

	require.NoError(t, err)
	assert.False(t, answer.Generative)
	assert.Contains(t, answer.Text, "[Source: guide.md]")
	assert.Contains(t, answer.Text, "the answer lives here")
	require.Len(t, answer.Sources, 1)
}

func TestRAG_Answer_Generative(t *testing.T) {
	llm := &mockLLM{available: true, chatContent: "It lives in the guide."}
	f := newRAGFixture(t, llm)
	f.store.docs["doc-1"] = domain.Document{ID: "doc-1", Name: "guide.md"}
	f.store.hits = []driven.ScoredChunk{
		{Chunk: domain.DocumentChunk{ID: "c1", DocumentID: "doc-1", Text: "the answer lives here"}, Score: 0.8},
	}

	answer, err := f.svc.Answer(context.Background(), driving.AnswerRequest{Question: "where does it live?"})

	require.NoError(t, err)
	assert.True(t, answer.Generative)
	assert.Equal(t, "It lives in the guide.", answer.Text)

	messages := llm.chatMessages()
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].Role)
	assert.Contains(t, messages[1].Content, "[Source: guide.md]")
	assert.Contains(t, messages[1].Content, "the answer lives here")
	assert.Contains(t, messages[1].Content, "where does it live?")
}

func TestRAG_Answer_ExplicitGenerativeWithoutProvider(t *testing.T) {
	f := newRAGFixture(t, nil)
	f.store.docs["doc-1"] = domain.Document{ID: "doc-1", Name: "guide.md"}
	f.store.hits = []driven.ScoredChunk{
		{Chunk: domain.DocumentChunk{ID: "c1", DocumentID: "doc-1", Text: "text"}, Score: 0.8},
	}

	_, err := f.svc.Answer(context.Background(), driving.AnswerRequest{
		Question: "q?",
		Mode:     domain.AnswerModeGenerative,
	})

	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
}

func TestRAG_Answer_ImplicitModeFallsBackOnGenerationFailure(t *testing.T) {
	llm := &mockLLM{available: true, chatErr: &domain.ProviderError{
		Class:    domain.ErrorUnavailable,
		Provider: domain.AIProviderOllama,
		Endpoint: "chat",
		Err:      assert.AnError,
	}}
	f := newRAGFixture(t, llm)
	f.store.docs["doc-1"] = domain.Document{ID: "doc-1", Name: "guide.md"}
	f.store.hits = []driven.ScoredChunk{
		{Chunk: domain.DocumentChunk{ID: "c1", DocumentID: "doc-1", Text: "fallback text"}, Score: 0.8},
	}

	answer, err := f.svc.Answer(context.Background(), driving.AnswerRequest{Question: "q?"})

	require.NoError(t, err)
	assert.False(t, answer.Generative)
	assert.Contains(t, answer.Text, "fallback text")
}

func TestRAG_Answer_ExplicitGenerativeFailureSurfaces(t *testing.T) {
	llm := &mockLLM{available: true, chatErr: assert.AnError}
	f := newRAGFixture(t, llm)
	f.store.docs["doc-1"] = domain.Document{ID: "doc-1", Name: "guide.md"}
	f.store.hits = []driven.ScoredChunk{
		{Chunk: domain.DocumentChunk{ID: "c1", DocumentID: "doc-1", Text: "text"}, Score: 0.8},
	}

	_, err := f.svc.Answer(context.Background(), driving.AnswerRequest{
		Question: "q?",
		Mode:     domain.AnswerModeGenerative,
	})

	assert.ErrorIs(t, err, assert.AnError)
}

func TestRAG_Answer_UnknownMode(t *testing.T) {
	f := newRAGFixture(t, nil)

	_, err := f.svc.Answer(context.Background(), driving.AnswerRequest{
		Question: "q?",
		Mode:     domain.AnswerMode("telepathic"),
	})

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRAG_SuggestMetadata(t *testing.T) {
	llm := &mockLLM{available: true, completion: "  A short summary.  "}
	f := newRAGFixture(t, llm)
	f.store.docs["doc-1"] = domain.Document{ID: "doc-1", Name: "guide.md"}
	f.store.chunks["doc-1"] = []domain.DocumentChunk{
		{ID: "c1", DocumentID: "doc-1", Text: "chapter one text", Index: 0, StartOffset: 0, EndOffset: 16},
	}

	metadata, err := f.svc.SuggestMetadata(context.Background(), "", "doc-1")

	require.NoError(t, err)
	assert.Equal(t, "A short summary.", metadata["summary"])
	assert.Equal(t, "mock-llm", metadata["summary_model"])
	assert.Contains(t, llm.lastPrompt, "chapter one text")
}

func TestRAG_SuggestMetadata_Degraded(t *testing.T) {
	f := newRAGFixture(t, nil)

	_, err := f.svc.SuggestMetadata(context.Background(), "", "doc-1")

	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
}

func TestRAG_SuggestMetadata_UnknownDocument(t *testing.T) {
	llm := &mockLLM{available: true}
	f := newRAGFixture(t, llm)

	_, err := f.svc.SuggestMetadata(context.Background(), "", "missing")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRAG_RemoveDocument(t *testing.T) {
	f := newRAGFixture(t, nil)
	f.store.docs["doc-1"] = domain.Document{ID: "doc-1"}

	removed, err := f.svc.RemoveDocument(context.Background(), "", "doc-1")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = f.svc.RemoveDocument(context.Background(), "", "doc-1")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestRAG_Stats(t *testing.T) {
	f := newRAGFixture(t, nil)
	f.store.docs["doc-1"] = domain.Document{ID: "doc-1"}
	f.store.chunks["doc-1"] = []domain.DocumentChunk{{ID: "c1"}, {ID: "c2"}}

	stats, err := f.svc.Stats(context.Background(), "")

	require.NoError(t, err)
	assert.Equal(t, domain.DefaultCollection, stats.Collection)
	assert.Equal(t, 1, stats.Documents)
	assert.Equal(t, 2, stats.Chunks)
}

func TestBuildContext_Truncation(t *testing.T) {
	long := strings.Repeat("x", contextBudget)
	results := []domain.SearchResult{
		{Document: domain.Document{Name: "a"}, Chunk: domain.DocumentChunk{Text: long}},
		{Document: domain.Document{Name: "b"}, Chunk: domain.DocumentChunk{Text: long}},
	}

	built := buildContext(results, contextBudget)

	assert.True(t, strings.HasSuffix(built, truncationMarker))
	assert.LessOrEqual(t, len([]rune(built)), contextBudget+len([]rune(truncationMarker)))
}

func TestReassemble_SkipsOverlap(t *testing.T) {
	// Source text "abcdefghij" chunked with overlap: "abcdef" and "defghij".
	chunks := []domain.DocumentChunk{
		{Text: "abcdef", Index: 0, StartOffset: 0, EndOffset: 6},
		{Text: "defghij", Index: 1, StartOffset: 3, EndOffset: 10},
	}

	assert.Equal(t, "abcdefghij", reassemble(chunks, 100))
}
