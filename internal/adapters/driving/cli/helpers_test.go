package cli

import (
	"context"
	"time"

	"github.com/custodia-labs/libris/internal/core/domain"
	"github.com/custodia-labs/libris/internal/core/ports/driven"
	"github.com/custodia-labs/libris/internal/core/ports/driving"
)

// mockRAG implements driving.RAGService for command tests.
type mockRAG struct {
	results  []domain.SearchResult
	answer   *domain.Answer
	stats    domain.CollectionStats
	metadata map[string]string
	jobID    string
	removed  bool
	err      error
	lastReq  driving.IngestRequest
	lastOpts domain.SearchOptions
}

var _ driving.RAGService = (*mockRAG)(nil)

func (m *mockRAG) Ingest(_ context.Context, req driving.IngestRequest) (string, error) {
	m.lastReq = req
	if m.err != nil {
		return "", m.err
	}
	return m.jobID, nil
}

func (m *mockRAG) RemoveDocument(context.Context, string, string) (bool, error) {
	return m.removed, m.err
}

func (m *mockRAG) Search(_ context.Context, _ string, opts domain.SearchOptions) ([]domain.SearchResult, error) {
	m.lastOpts = opts
	if m.err != nil {
		return nil, m.err
	}
	return m.results, nil
}

func (m *mockRAG) Answer(context.Context, driving.AnswerRequest) (*domain.Answer, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.answer, nil
}

func (m *mockRAG) SuggestMetadata(context.Context, string, string) (map[string]string, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.metadata, nil
}

func (m *mockRAG) Stats(_ context.Context, collection string) (domain.CollectionStats, error) {
	if m.err != nil {
		return domain.CollectionStats{}, m.err
	}
	stats := m.stats
	if stats.Collection == "" {
		stats.Collection = collection
	}
	return stats, nil
}

// mockJobs implements driving.JobService for command tests.
type mockJobs struct {
	status *domain.JobStatus
	stats  domain.JobStats
	err    error
}

var _ driving.JobService = (*mockJobs)(nil)

func (m *mockJobs) GetJobStatus(context.Context, string) (*domain.JobStatus, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.status, nil
}

func (m *mockJobs) CancelJob(context.Context, string) error { return m.err }

func (m *mockJobs) GetStats(context.Context) (domain.JobStats, error) {
	return m.stats, m.err
}

// mockProviders implements driving.ProviderService for command tests.
type mockProviders struct {
	active    string
	providers []driving.ProviderStatus
	models    []domain.ModelInfo
	err       error
}

var _ driving.ProviderService = (*mockProviders)(nil)

func (m *mockProviders) ActiveProvider() string { return m.active }

func (m *mockProviders) SwitchProvider(context.Context, string) error { return m.err }

func (m *mockProviders) ListProviders(context.Context) ([]driving.ProviderStatus, error) {
	return m.providers, m.err
}

func (m *mockProviders) ListModels(context.Context) ([]domain.ModelInfo, error) {
	return m.models, m.err
}

// mockSettings implements driven.SettingsStore over an in-memory value.
type mockSettings struct {
	settings domain.Settings
	loadErr  error
	saveErr  error
	saved    *domain.Settings
}

var _ driven.SettingsStore = (*mockSettings)(nil)

func (m *mockSettings) Load() (domain.Settings, error) {
	return m.settings, m.loadErr
}

func (m *mockSettings) Save(settings domain.Settings) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = &settings
	return nil
}

func (m *mockSettings) Path() string { return "/tmp/libris/config.toml" }

// setupTestServices installs a full set of happy-path mocks and returns a
// cleanup restoring the previous services.
func setupTestServices() func() {
	oldRAG := ragService
	oldJobs := jobService
	oldProviders := providerService
	oldSettings := settingsStore

	now := time.Now()
	completed := now.Add(time.Second)
	ragService = &mockRAG{
		jobID: "job-1",
		results: []domain.SearchResult{
			{
				Document: domain.Document{ID: "doc-1", Name: "guide.md"},
				Chunk:    domain.DocumentChunk{Text: "the relevant passage", Index: 0},
				Score:    0.9,
			},
		},
		answer: &domain.Answer{
			Text:       "The answer.",
			Generative: true,
			Sources: []domain.SearchResult{
				{Document: domain.Document{ID: "doc-1", Name: "guide.md"}, Score: 0.9},
			},
		},
		stats:    domain.CollectionStats{Collection: "default", Documents: 2, Chunks: 8},
		metadata: map[string]string{"summary": "A short summary."},
		removed:  true,
	}
	jobService = &mockJobs{
		status: &domain.JobStatus{
			JobID:       "job-1",
			State:       domain.JobCompleted,
			Progress:    domain.ProgressStored,
			DocumentID:  "doc-1",
			StartedAt:   now,
			CompletedAt: &completed,
		},
		stats: domain.JobStats{Completed: 1},
	}
	providerService = &mockProviders{
		active: "local",
		providers: []driving.ProviderStatus{
			{ID: "local", Type: domain.AIProviderOllama, Enabled: true, Active: true, Available: true},
		},
		models: []domain.ModelInfo{
			{ID: "llama3.2", Provider: domain.AIProviderOllama, Loaded: true},
		},
	}
	settingsStore = &mockSettings{
		settings: domain.Settings{
			DefaultProvider: "local",
			Providers: []domain.ProviderConfig{
				{
					ID:      "local",
					Type:    domain.AIProviderOllama,
					Enabled: true,
					Ollama: &domain.OllamaSettings{
						BaseURL:        "http://localhost:11434",
						Model:          "llama3.2",
						EmbeddingModel: "nomic-embed-text",
					},
				},
			},
			Chunking:  domain.ChunkingSettings{ChunkSize: 1000, ChunkOverlap: 200},
			RateLimit: domain.RateLimitSettings{RequestsPerMinute: 60, MaxConcurrent: 4},
			Jobs:      domain.JobSettings{Workers: 4, Retention: time.Hour},
		},
	}

	return func() {
		ragService = oldRAG
		jobService = oldJobs
		providerService = oldProviders
		settingsStore = oldSettings
	}
}
