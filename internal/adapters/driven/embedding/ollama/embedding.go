// Package ollama embeds text through a local Ollama server's
// /api/embed endpoint.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/libris/internal/core/domain"
	"github.com/custodia-labs/libris/internal/core/ports/driven"
)

var _ driven.EmbeddingService = (*EmbeddingService)(nil)

const (
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "nomic-embed-text"
	DefaultTimeout = 30 * time.Second

	// DefaultDimensions matches nomic-embed-text.
	DefaultDimensions = 768
)

// Config configures the embedding client.
type Config struct {
	// BaseURL is the Ollama endpoint (default http://localhost:11434).
	BaseURL string

	// Model is the embedding model (default nomic-embed-text).
	Model string

	// Timeout bounds each HTTP request.
	Timeout time.Duration

	// Dimensions is the vector size the model produces.
	Dimensions int
}

// EmbeddingService is an Ollama embedding client.
type EmbeddingService struct {
	client     *http.Client
	baseURL    string
	model      string
	dimensions int
}

// embedRequest targets /api/embed. Input accepts a single string or a
// list; a list is always sent so one codepath handles both shapes.
type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
}

// NewEmbeddingService builds a client from cfg, filling defaults.
func NewEmbeddingService(cfg Config) *EmbeddingService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = DefaultDimensions
	}

	return &EmbeddingService{
		client:     &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
	}
}

// Embed generates a vector embedding for a single text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, s.wrap(0, errors.New("no embedding returned"))
	}
	return vectors[0], nil
}

// EmbedBatch embeds texts in one request, preserving input order.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(embedRequest{Model: s.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, s.wrap(0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return nil, s.wrap(resp.StatusCode, errors.New("unreadable error response"))
		}
		return nil, s.wrap(resp.StatusCode, errors.New(strings.TrimSpace(string(raw))))
	}

	var parsed embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Embeddings) != len(texts) {
		return nil, &domain.ProviderError{
			Class:    domain.ErrorIncompleteResponse,
			Provider: domain.AIProviderOllama,
			Endpoint: "embeddings",
			Err:      fmt.Errorf("got %d embeddings for %d inputs", len(parsed.Embeddings), len(texts)),
		}
	}

	vectors := make([][]float32, len(parsed.Embeddings))
	for i, raw := range parsed.Embeddings {
		vec := make([]float32, len(raw))
		for j, v := range raw {
			vec[j] = float32(v)
		}
		vectors[i] = vec
	}
	return vectors, nil
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping checks the server is reachable via /api/tags, without running
// inference.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/tags", http.NoBody)
	if err != nil {
		return fmt.Errorf("ollama: create ping request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return s.wrap(0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return s.wrap(resp.StatusCode, errors.New(strings.TrimSpace(string(raw))))
	}
	return nil
}

// Close releases resources. The HTTP client needs no explicit cleanup.
func (s *EmbeddingService) Close() error {
	return nil
}

// wrap classifies a transport or API failure. A zero status means the
// request never completed.
func (s *EmbeddingService) wrap(status int, cause error) error {
	class := domain.ErrorUnavailable
	if status > 0 {
		class = domain.ClassifyStatus(status)
	}
	return &domain.ProviderError{
		Class:    class,
		Provider: domain.AIProviderOllama,
		Endpoint: "embeddings",
		Status:   status,
		Err:      cause,
	}
}
