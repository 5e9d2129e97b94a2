// Package openai embeds text through the OpenAI embeddings API, or any
// server that speaks the same wire format.
package openai

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
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "text-embedding-3-small"
	DefaultTimeout = 60 * time.Second

	// fallbackDimensions is assumed for models not in the known table.
	fallbackDimensions = 1536

	// errBodyLimit caps how much of an error response ends up in a message.
	errBodyLimit = 512
)

var knownDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// Config configures the embedding client.
type Config struct {
	// APIKey is the bearer token (required).
	APIKey string

	// BaseURL overrides the endpoint, for Azure or compatible servers.
	BaseURL string

	// Model is the embedding model (default text-embedding-3-small).
	Model string

	// Timeout bounds each HTTP request.
	Timeout time.Duration

	// Dimensions requests a reduced vector size. Honoured only by the
	// text-embedding-3 family.
	Dimensions int
}

// EmbeddingService is an OpenAI-compatible embedding client.
type EmbeddingService struct {
	client     *http.Client
	baseURL    string
	apiKey     string
	model      string
	dimensions int
}

type embedRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewEmbeddingService builds a client from cfg, filling defaults.
func NewEmbeddingService(cfg Config) (*EmbeddingService, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	dims := cfg.Dimensions
	if dims == 0 {
		if known, ok := knownDimensions[cfg.Model]; ok {
			dims = known
		} else {
			dims = fallbackDimensions
		}
	}

	return &EmbeddingService{
		client:     &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		dimensions: dims,
	}, nil
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

// EmbedBatch embeds texts in one request. The result preserves input
// order even when the server returns data out of order.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	payload := embedRequest{Model: s.model, Input: texts}
	if s.supportsDimensionOverride() && s.dimensions > 0 {
		payload.Dimensions = s.dimensions
	}

	parsed, status, err := s.post(ctx, payload)
	if err != nil {
		return nil, err
	}
	if parsed.Error != nil {
		return nil, s.wrap(status, errors.New(parsed.Error.Message))
	}
	if len(parsed.Data) != len(texts) {
		return nil, &domain.ProviderError{
			Class:    domain.ErrorIncompleteResponse,
			Provider: domain.AIProviderOpenAI,
			Endpoint: "embeddings",
			Err:      fmt.Errorf("got %d embeddings for %d inputs", len(parsed.Data), len(texts)),
		}
	}

	vectors := make([][]float32, len(texts))
	for _, item := range parsed.Data {
		if item.Index < 0 || item.Index >= len(vectors) {
			return nil, &domain.ProviderError{
				Class:    domain.ErrorIncompleteResponse,
				Provider: domain.AIProviderOpenAI,
				Endpoint: "embeddings",
				Err:      fmt.Errorf("embedding index %d out of range", item.Index),
			}
		}
		vec := make([]float32, len(item.Embedding))
		for i, v := range item.Embedding {
			vec[i] = float32(v)
		}
		vectors[item.Index] = vec
	}
	return vectors, nil
}

func (s *EmbeddingService) post(ctx context.Context, payload embedRequest) (*embedResponse, int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, 0, s.wrap(0, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}

	var parsed embedResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, resp.StatusCode, s.wrap(resp.StatusCode, errors.New(clip(raw)))
		}
		return nil, resp.StatusCode, fmt.Errorf("decode response: %w", err)
	}
	if resp.StatusCode != http.StatusOK && parsed.Error == nil {
		return nil, resp.StatusCode, s.wrap(resp.StatusCode, errors.New(clip(raw)))
	}
	return &parsed, resp.StatusCode, nil
}

// supportsDimensionOverride reports whether the model accepts a
// dimensions parameter.
func (s *EmbeddingService) supportsDimensionOverride() bool {
	return strings.HasPrefix(s.model, "text-embedding-3-")
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping checks reachability and the API key via the models endpoint,
// without running inference.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/models", http.NoBody)
	if err != nil {
		return fmt.Errorf("openai: create ping request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return s.wrap(0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return s.wrap(resp.StatusCode, errors.New(clip(raw)))
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
		Provider: domain.AIProviderOpenAI,
		Endpoint: "embeddings",
		Status:   status,
		Err:      cause,
	}
}

func clip(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) > errBodyLimit {
		text = text[:errBodyLimit] + "..."
	}
	return text
}
