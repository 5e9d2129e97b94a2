package mcp

import (
	"context"

	"github.com/custodia-labs/libris/internal/core/domain"
	"github.com/custodia-labs/libris/internal/core/ports/driving"
)

// mockRAGService implements driving.RAGService for tests.
type mockRAGService struct {
	results   []domain.SearchResult
	answer    *domain.Answer
	stats     domain.CollectionStats
	jobID     string
	err       error
	lastQuery string
	lastOpts  domain.SearchOptions
	lastReq   driving.IngestRequest
}

var _ driving.RAGService = (*mockRAGService)(nil)

func (m *mockRAGService) Ingest(_ context.Context, req driving.IngestRequest) (string, error) {
	m.lastReq = req
	if m.err != nil {
		return "", m.err
	}
	return m.jobID, nil
}

func (m *mockRAGService) RemoveDocument(context.Context, string, string) (bool, error) {
	return false, m.err
}

func (m *mockRAGService) Search(_ context.Context, query string, opts domain.SearchOptions) ([]domain.SearchResult, error) {
	m.lastQuery = query
	m.lastOpts = opts
	if m.err != nil {
		return nil, m.err
	}
	return m.results, nil
}

func (m *mockRAGService) Answer(context.Context, driving.AnswerRequest) (*domain.Answer, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.answer, nil
}

func (m *mockRAGService) SuggestMetadata(context.Context, string, string) (map[string]string, error) {
	return nil, m.err
}

func (m *mockRAGService) Stats(_ context.Context, collection string) (domain.CollectionStats, error) {
	if m.err != nil {
		return domain.CollectionStats{}, m.err
	}
	stats := m.stats
	stats.Collection = collection
	return stats, nil
}

// mockJobService implements driving.JobService for tests.
type mockJobService struct {
	status *domain.JobStatus
	stats  domain.JobStats
	err    error
}

var _ driving.JobService = (*mockJobService)(nil)

func (m *mockJobService) GetJobStatus(context.Context, string) (*domain.JobStatus, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.status, nil
}

func (m *mockJobService) CancelJob(context.Context, string) error {
	return m.err
}

func (m *mockJobService) GetStats(context.Context) (domain.JobStats, error) {
	return m.stats, m.err
}

// mockProviderService implements driving.ProviderService for tests.
type mockProviderService struct {
	providers []driving.ProviderStatus
	err       error
}

var _ driving.ProviderService = (*mockProviderService)(nil)

func (m *mockProviderService) ActiveProvider() string { return "" }

func (m *mockProviderService) SwitchProvider(context.Context, string) error { return m.err }

func (m *mockProviderService) ListProviders(context.Context) ([]driving.ProviderStatus, error) {
	return m.providers, m.err
}

func (m *mockProviderService) ListModels(context.Context) ([]domain.ModelInfo, error) {
	return nil, m.err
}
