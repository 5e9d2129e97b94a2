package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/libris/internal/chunker"
	"github.com/custodia-labs/libris/internal/core/domain"
	"github.com/custodia-labs/libris/internal/core/ports/driven"
	"github.com/custodia-labs/libris/internal/core/ports/driving"
	"github.com/custodia-labs/libris/internal/logger"
	"github.com/custodia-labs/libris/internal/normalise"
)

// Ensure RAGService implements the interface.
var _ driving.RAGService = (*RAGService)(nil)

// DefaultSearchLimit is the result cap when a request does not set one.
const DefaultSearchLimit = 5

// DefaultWorkers is the ingestion worker pool size.
const DefaultWorkers = 4

// DefaultAcquireTimeout bounds how long a pipeline stage waits for a
// rate limiter slot.
const DefaultAcquireTimeout = 30 * time.Second

// contextBudget is the maximum number of characters of retrieved context
// handed to the generation prompt.
const contextBudget = 4000

// truncationMarker is appended when retrieved context exceeds the budget.
const truncationMarker = "\n... [truncated]"

// excerptLength caps per-chunk excerpts in extractive answers.
const excerptLength = 500

// summaryMaxChars is the length hint given to the summarise prompt.
const summaryMaxChars = 300

// Rate limiter endpoints.
const (
	endpointEmbeddings = "embeddings"
	endpointChat       = "chat"
)

// RAGConfig tunes the orchestrator.
type RAGConfig struct {
	// ChunkSize is the chunker's size budget (default 1000).
	ChunkSize int

	// ChunkOverlap is the chunker's overlap (default 200).
	ChunkOverlap int

	// Workers is the ingestion worker pool size (default 4).
	Workers int

	// AcquireTimeout bounds rate limiter waits (default 30s).
	AcquireTimeout time.Duration
}

// RAGService orchestrates ingestion, retrieval and answer generation.
// Ingestion is asynchronous: Ingest returns a job ID immediately and a
// bounded worker pool runs the chunk, embed, attach, store pipeline.
type RAGService struct {
	store     driven.VectorStore
	embedder  driven.EmbeddingService
	limiter   driven.RateLimiter
	prompts   driven.PromptStore
	jobs      *JobTracker
	providers *ProviderManager

	splitter       *chunker.Splitter
	workers        chan struct{}
	acquireTimeout time.Duration
}

// NewRAGService creates the orchestrator. The store, embedder, limiter,
// prompts, jobs and providers dependencies are all required.
func NewRAGService(
	store driven.VectorStore,
	embedder driven.EmbeddingService,
	limiter driven.RateLimiter,
	prompts driven.PromptStore,
	jobs *JobTracker,
	providers *ProviderManager,
	cfg RAGConfig,
) (*RAGService, error) {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = chunker.DefaultChunkSize
	}
	if cfg.ChunkOverlap <= 0 {
		cfg.ChunkOverlap = chunker.DefaultChunkOverlap
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.AcquireTimeout <= 0 {
		cfg.AcquireTimeout = DefaultAcquireTimeout
	}

	splitter, err := chunker.New(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, fmt.Errorf("configure chunker: %w", err)
	}

	return &RAGService{
		store:          store,
		embedder:       embedder,
		limiter:        limiter,
		prompts:        prompts,
		jobs:           jobs,
		providers:      providers,
		splitter:       splitter,
		workers:        make(chan struct{}, cfg.Workers),
		acquireTimeout: cfg.AcquireTimeout,
	}, nil
}

// Ingest accepts a document for asynchronous processing and returns a
// job ID immediately.
func (s *RAGService) Ingest(_ context.Context, req driving.IngestRequest) (string, error) {
	if strings.TrimSpace(req.Text) == "" {
		return "", fmt.Errorf("%w: document text is empty", domain.ErrInvalidInput)
	}
	if s.embedder == nil {
		return "", domain.ErrEmbeddingUnavailable
	}

	jobID := s.jobs.Create()
	logger.Debug("Ingest job %s accepted: %q (%d bytes)", jobID, req.Name, len(req.Text))

	go s.runIngest(jobID, req)
	return jobID, nil
}

// runIngest executes one ingestion job on the worker pool. The job runs
// detached from the caller's context; cancellation comes from the job
// tracker.
func (s *RAGService) runIngest(jobID string, req driving.IngestRequest) {
	s.workers <- struct{}{}
	defer func() { <-s.workers }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if !s.jobs.Start(jobID, cancel) {
		// Cancelled before a worker picked it up.
		return
	}

	if err := s.ingestPipeline(ctx, jobID, req); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("Ingest job %s cancelled", jobID)
			s.jobs.MarkCancelled(jobID)
			return
		}
		logger.Warn("Ingest job %s failed: %v", jobID, err)
		s.jobs.Fail(jobID, err)
		return
	}

	s.jobs.Complete(jobID)
}

// ingestPipeline runs the chunk, embed, attach, store stages, checking
// for cancellation between each.
func (s *RAGService) ingestPipeline(ctx context.Context, jobID string, req driving.IngestRequest) error {
	collection := collectionOrDefault(req.Collection)
	docID := uuid.NewString()
	s.jobs.SetDocumentID(jobID, docID)

	// Chunk
	text := normalise.Text(req.ContentType, req.Text)
	pieces := s.splitter.Split(text)
	if err := ctx.Err(); err != nil {
		return err
	}
	s.jobs.SetProgress(jobID, domain.ProgressChunked)
	logger.Debug("Job %s: %d chunks", jobID, len(pieces))

	chunks := make([]domain.DocumentChunk, len(pieces))
	texts := make([]string, len(pieces))
	for i, piece := range pieces {
		chunks[i] = domain.DocumentChunk{
			ID:          uuid.NewString(),
			DocumentID:  docID,
			Text:        piece.Text,
			Index:       i,
			StartOffset: piece.Start,
			EndOffset:   piece.End,
		}
		texts[i] = piece.Text
	}

	// Embed
	var vectors [][]float32
	if len(texts) > 0 {
		var err error
		vectors, err = s.embedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed chunks: %w", err)
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.jobs.SetProgress(jobID, domain.ProgressEmbedded)

	// Attach
	for i := range chunks {
		chunks[i].Embedding = vectors[i]
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.jobs.SetProgress(jobID, domain.ProgressAttached)

	// Store
	now := time.Now().UTC()
	doc := domain.Document{
		ID:          docID,
		Name:        req.Name,
		ContentType: req.ContentType,
		SizeBytes:   int64(len(req.Text)),
		Metadata:    req.Metadata,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	stored, err := s.store.AddDocument(ctx, collection, doc, chunks)
	if err != nil {
		return fmt.Errorf("store document: %w", err)
	}
	s.jobs.SetProgress(jobID, domain.ProgressStored)

	logger.Info("Ingested %q into %s: %d chunks", req.Name, collection, stored)
	return nil
}

// RemoveDocument deletes a document and its chunks from a collection.
func (s *RAGService) RemoveDocument(ctx context.Context, collection, documentID string) (bool, error) {
	return s.store.RemoveDocument(ctx, collectionOrDefault(collection), documentID)
}

// Search embeds the query once and returns ranked results.
// A blank query returns an empty list, not an error.
func (s *RAGService) Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		logger.Debug("Empty query, returning no results")
		return []domain.SearchResult{}, nil
	}
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	if opts.Limit <= 0 {
		opts.Limit = DefaultSearchLimit
	}
	collection := collectionOrDefault(opts.Collection)
	logger.Debug("Search %q in %s (limit %d, min score %.2f)", query, collection, opts.Limit, opts.MinScore)

	embedding, err := s.embedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := s.store.SimilaritySearch(ctx, collection, embedding, opts)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}

	// Hydrate parent documents, one lookup per document.
	docs := make(map[string]domain.Document)
	results := make([]domain.SearchResult, 0, len(hits))
	for _, hit := range hits {
		doc, ok := docs[hit.Chunk.DocumentID]
		if !ok {
			found, err := s.store.GetDocument(ctx, collection, hit.Chunk.DocumentID)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					// Document removed between search and hydration.
					continue
				}
				return nil, fmt.Errorf("get document %s: %w", hit.Chunk.DocumentID, err)
			}
			doc = *found
			docs[hit.Chunk.DocumentID] = doc
		}
		results = append(results, domain.SearchResult{
			Chunk:    hit.Chunk,
			Document: doc,
			Score:    hit.Score,
		})
	}

	logger.Debug("Search returned %d results", len(results))
	return results, nil
}

// Answer retrieves relevant chunks and produces an answer.
func (s *RAGService) Answer(ctx context.Context, req driving.AnswerRequest) (*domain.Answer, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, fmt.Errorf("%w: question is empty", domain.ErrInvalidInput)
	}
	if req.Mode != "" && !req.Mode.IsValid() {
		return nil, fmt.Errorf("%w: unknown answer mode %q", domain.ErrInvalidInput, req.Mode)
	}

	limit := req.MaxResults
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	results, err := s.Search(ctx, question, domain.SearchOptions{
		Collection: req.Collection,
		Limit:      limit,
		MinScore:   req.MinScore,
	})
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return &domain.Answer{
			Text:    domain.NoRelevantInformation,
			Sources: []domain.SearchResult{},
		}, nil
	}

	llm := s.providers.LLM()
	mode := req.Mode
	if mode == "" {
		if llm != nil {
			mode = domain.AnswerModeGenerative
		} else {
			mode = domain.AnswerModeExtractive
		}
	}

	if mode == domain.AnswerModeExtractive {
		return s.extractiveAnswer(results), nil
	}

	if llm == nil {
		return nil, domain.ErrLLMUnavailable
	}
	answer, err := s.generativeAnswer(ctx, llm, question, results)
	if err != nil {
		if req.Mode == "" {
			// Implicit mode degrades rather than failing the request.
			logger.Warn("Generation failed, falling back to extractive answer: %v", err)
			return s.extractiveAnswer(results), nil
		}
		return nil, err
	}
	return answer, nil
}

// generativeAnswer synthesises an answer grounded on the retrieved
// chunks via the active provider.
func (s *RAGService) generativeAnswer(
	ctx context.Context, llm driven.LLMService, question string, results []domain.SearchResult,
) (*domain.Answer, error) {
	systemPrompt, err := s.prompts.Load(driven.PromptAnswerSystem)
	if err != nil {
		return nil, fmt.Errorf("load system prompt: %w", err)
	}
	userTemplate, err := s.prompts.Load(driven.PromptAnswer)
	if err != nil {
		return nil, fmt.Errorf("load answer prompt: %w", err)
	}

	contextText := buildContext(results, contextBudget)
	messages := []driven.ChatMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: fmt.Sprintf(userTemplate, contextText, question)},
	}

	if err := s.limiter.Acquire(ctx, endpointChat, s.acquireTimeout); err != nil {
		return nil, err
	}
	defer s.limiter.Release(endpointChat)

	result, err := llm.GenerateChatCompletion(ctx, messages, driven.ChatOptions{Temperature: 0.2})
	s.limiter.Record(endpointChat, err == nil)
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	text := strings.TrimSpace(result.Content)
	if text == "" {
		return nil, fmt.Errorf("generate answer: %w", &domain.ProviderError{
			Class:    domain.ErrorIncompleteResponse,
			Provider: llm.Provider(),
			Endpoint: endpointChat,
			Err:      errors.New("empty completion"),
		})
	}

	return &domain.Answer{Text: text, Sources: results, Generative: true}, nil
}

// extractiveAnswer concatenates top chunk excerpts with source labels.
func (s *RAGService) extractiveAnswer(results []domain.SearchResult) *domain.Answer {
	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[Source: %s]\n%s", r.Document.Name, excerpt(r.Chunk.Text, excerptLength))
	}
	return &domain.Answer{Text: b.String(), Sources: results}
}

// SuggestMetadata produces summary metadata for a stored document.
func (s *RAGService) SuggestMetadata(ctx context.Context, collection, documentID string) (map[string]string, error) {
	llm := s.providers.LLM()
	if llm == nil {
		return nil, domain.ErrLLMUnavailable
	}

	collection = collectionOrDefault(collection)
	if _, err := s.store.GetDocument(ctx, collection, documentID); err != nil {
		return nil, err
	}
	chunks, err := s.store.GetDocumentChunks(ctx, collection, documentID)
	if err != nil {
		return nil, fmt.Errorf("get chunks for %s: %w", documentID, err)
	}

	text := reassemble(chunks, contextBudget)
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("document %s: %w: no chunk text", documentID, domain.ErrInvalidInput)
	}

	template, err := s.prompts.Load(driven.PromptSummarise)
	if err != nil {
		return nil, fmt.Errorf("load summarise prompt: %w", err)
	}
	prompt := fmt.Sprintf(template, summaryMaxChars, text)

	if err := s.limiter.Acquire(ctx, endpointChat, s.acquireTimeout); err != nil {
		return nil, err
	}
	defer s.limiter.Release(endpointChat)

	summary, err := llm.GenerateCompletion(ctx, prompt, driven.GenerateOptions{Temperature: 0.2})
	s.limiter.Record(endpointChat, err == nil)
	if err != nil {
		return nil, fmt.Errorf("summarise document: %w", err)
	}

	return map[string]string{
		"summary":       strings.TrimSpace(summary),
		"summary_model": llm.ModelName(),
	}, nil
}

// Stats reports the document and chunk counts of a collection.
func (s *RAGService) Stats(ctx context.Context, collection string) (domain.CollectionStats, error) {
	return s.store.Stats(ctx, collectionOrDefault(collection))
}

// embedBatch runs a batch embedding call under the rate limiter.
func (s *RAGService) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := s.limiter.Acquire(ctx, endpointEmbeddings, s.acquireTimeout); err != nil {
		return nil, err
	}
	defer s.limiter.Release(endpointEmbeddings)

	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	s.limiter.Record(endpointEmbeddings, err == nil)
	return vectors, err
}

// embedQuery embeds a single query under the rate limiter.
func (s *RAGService) embedQuery(ctx context.Context, query string) ([]float32, error) {
	if err := s.limiter.Acquire(ctx, endpointEmbeddings, s.acquireTimeout); err != nil {
		return nil, err
	}
	defer s.limiter.Release(endpointEmbeddings)

	embedding, err := s.embedder.Embed(ctx, query)
	s.limiter.Record(endpointEmbeddings, err == nil)
	return embedding, err
}

// collectionOrDefault maps an empty collection name to the default.
func collectionOrDefault(collection string) string {
	if collection == "" {
		return domain.DefaultCollection
	}
	return collection
}

// buildContext assembles retrieved chunks into a prompt context block,
// one source label per chunk, capped at budget characters.
func buildContext(results []domain.SearchResult, budget int) string {
	blocks := make([]string, 0, len(results))
	for _, r := range results {
		blocks = append(blocks, fmt.Sprintf("[Source: %s]\n%s", r.Document.Name, strings.TrimSpace(r.Chunk.Text)))
	}

	joined := strings.Join(blocks, "\n\n")
	runes := []rune(joined)
	if len(runes) <= budget {
		return joined
	}
	return string(runes[:budget]) + truncationMarker
}

// reassemble rebuilds document text from its chunks, skipping the
// overlapping head of each chunk using the recorded byte offsets.
func reassemble(chunks []domain.DocumentChunk, budget int) string {
	var b strings.Builder
	covered := 0
	for _, chunk := range chunks {
		text := chunk.Text
		if chunk.StartOffset < covered {
			skip := covered - chunk.StartOffset
			if skip >= len(text) {
				continue
			}
			text = text[skip:]
		}
		b.WriteString(text)
		if chunk.EndOffset > covered {
			covered = chunk.EndOffset
		}
		if b.Len() >= budget*4 {
			// Byte cap well above the rune budget; trimmed below.
			break
		}
	}

	runes := []rune(b.String())
	if len(runes) > budget {
		return string(runes[:budget]) + truncationMarker
	}
	return b.String()
}

// excerpt returns at most limit runes of text, marking truncation.
func excerpt(text string, limit int) string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
