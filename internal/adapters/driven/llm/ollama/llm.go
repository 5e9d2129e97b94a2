// Package ollama provides an LLM service adapter using Ollama.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/custodia-labs/libris/internal/core/domain"
	"github.com/custodia-labs/libris/internal/core/ports/driven"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// Default configuration values.
const (
	DefaultBaseURL    = "http://localhost:11434"
	DefaultLLMModel   = "llama3.2"
	DefaultLLMTimeout = 120 * time.Second
)

// LLMConfig holds configuration for the Ollama LLM service.
type LLMConfig struct {
	// BaseURL is the Ollama API base URL (default: http://localhost:11434).
	BaseURL string

	// Model is the LLM model to use (default: llama3.2).
	Model string

	// EmbeddingModel is the model used for CreateEmbedding. Defaults to
	// the generation model.
	EmbeddingModel string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration
}

// LLMService provides LLM operations using Ollama.
type LLMService struct {
	client         *http.Client
	baseURL        string
	model          string
	embeddingModel string
}

// generateRequest is the Ollama /api/generate request format.
type generateRequest struct {
	Model   string   `json:"model"`
	Prompt  string   `json:"prompt"`
	Stream  bool     `json:"stream"`
	Options *options `json:"options,omitempty"`
}

// options holds generation parameters.
type options struct {
	NumPredict  int      `json:"num_predict,omitempty"`
	Temperature float64  `json:"temperature,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

// generateResponse is the Ollama /api/generate response format.
type generateResponse struct {
	Response   string `json:"response"`
	Done       bool   `json:"done"`
	DoneReason string `json:"done_reason"`
}

// chatRequest is the Ollama /api/chat request format.
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  *options      `json:"options,omitempty"`
}

// chatMessage is the Ollama chat message format.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse is the Ollama /api/chat response format.
type chatResponse struct {
	Message    chatMessage `json:"message"`
	Done       bool        `json:"done"`
	DoneReason string      `json:"done_reason"`
}

// embedRequest is the Ollama /api/embed request format.
type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// embedResponse is the Ollama /api/embed response format.
type embedResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
}

// tagsResponse is the Ollama /api/tags response format.
type tagsResponse struct {
	Models []struct {
		Name       string    `json:"name"`
		Size       int64     `json:"size"`
		ModifiedAt time.Time `json:"modified_at"`
	} `json:"models"`
}

// psResponse is the Ollama /api/ps response format, listing loaded models.
type psResponse struct {
	Models []struct {
		Name      string    `json:"name"`
		ExpiresAt time.Time `json:"expires_at"`
	} `json:"models"`
}

// NewLLMService creates a new Ollama LLM service.
func NewLLMService(cfg LLMConfig) *LLMService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultLLMModel
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = cfg.Model
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultLLMTimeout
	}

	return &LLMService{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:        cfg.BaseURL,
		model:          cfg.Model,
		embeddingModel: cfg.EmbeddingModel,
	}
}

// IsAvailable reports whether the Ollama server responds on /api/tags.
func (s *LLMService) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/tags", http.NoBody)
	if err != nil {
		return false
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

// GenerateCompletion produces text from a prompt.
func (s *LLMService) GenerateCompletion(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	reqBody := generateRequest{
		Model:  s.model,
		Prompt: prompt,
		Stream: false,
	}

	if opts.MaxTokens > 0 || opts.Temperature > 0 || len(opts.StopSequences) > 0 {
		reqBody.Options = &options{
			NumPredict:  opts.MaxTokens,
			Temperature: driven.ClampTemperature(opts.Temperature),
			Stop:        opts.StopSequences,
		}
	}

	var genResp generateResponse
	if err := s.post(ctx, "/api/generate", "generate", reqBody, &genResp); err != nil {
		return "", err
	}

	if !genResp.Done {
		return "", &domain.ProviderError{
			Class:    domain.ErrorIncompleteResponse,
			Provider: domain.AIProviderOllama,
			Endpoint: "generate",
			Err:      errors.New("generation did not complete"),
		}
	}

	return genResp.Response, nil
}

// GenerateChatCompletion conducts a multi-turn conversation. Ollama has no
// function calling support; declared functions are ignored.
func (s *LLMService) GenerateChatCompletion(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (*driven.ChatResult, error) {
	chatMessages := make([]chatMessage, len(messages))
	for i, msg := range messages {
		chatMessages[i] = chatMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	reqBody := chatRequest{
		Model:    s.model,
		Messages: chatMessages,
		Stream:   false,
	}

	if opts.MaxTokens > 0 || opts.Temperature > 0 {
		reqBody.Options = &options{
			NumPredict:  opts.MaxTokens,
			Temperature: driven.ClampTemperature(opts.Temperature),
		}
	}

	var chatResp chatResponse
	if err := s.post(ctx, "/api/chat", "chat", reqBody, &chatResp); err != nil {
		return nil, err
	}

	role := chatResp.Message.Role
	if role == "" {
		role = "assistant"
	}

	return &driven.ChatResult{
		Content:      chatResp.Message.Content,
		Role:         role,
		FinishReason: chatResp.DoneReason,
	}, nil
}

// CreateEmbedding generates a vector embedding for a single text.
func (s *LLMService) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	reqBody := embedRequest{
		Model: s.embeddingModel,
		Input: []string{text},
	}

	var embedResp embedResponse
	if err := s.post(ctx, "/api/embed", "embeddings", reqBody, &embedResp); err != nil {
		return nil, err
	}

	if len(embedResp.Embeddings) == 0 {
		return nil, &domain.ProviderError{
			Class:    domain.ErrorIncompleteResponse,
			Provider: domain.AIProviderOllama,
			Endpoint: "embeddings",
			Err:      errors.New("no embedding returned"),
		}
	}

	embedding := make([]float32, len(embedResp.Embeddings[0]))
	for i, v := range embedResp.Embeddings[0] {
		embedding[i] = float32(v)
	}
	return embedding, nil
}

// ListModels returns the models Ollama knows about, marking which are
// currently loaded.
func (s *LLMService) ListModels(ctx context.Context) ([]domain.ModelInfo, error) {
	var tags tagsResponse
	if err := s.get(ctx, "/api/tags", "models", &tags); err != nil {
		return nil, err
	}

	// Loaded state comes from /api/ps; failure there degrades to an
	// unannotated listing rather than an error.
	loaded := make(map[string]time.Time)
	var ps psResponse
	if err := s.get(ctx, "/api/ps", "models", &ps); err == nil {
		for _, m := range ps.Models {
			loaded[m.Name] = m.ExpiresAt
		}
	}

	models := make([]domain.ModelInfo, 0, len(tags.Models))
	for _, m := range tags.Models {
		info := domain.ModelInfo{
			ID:        m.Name,
			Name:      m.Name,
			Provider:  domain.AIProviderOllama,
			SizeBytes: m.Size,
		}
		if _, ok := loaded[m.Name]; ok {
			info.Loaded = true
		}
		models = append(models, info)
	}
	return models, nil
}

// Provider identifies the backend type.
func (s *LLMService) Provider() domain.AIProvider {
	return domain.AIProviderOllama
}

// ModelName returns the name of the LLM model being used.
func (s *LLMService) ModelName() string {
	return s.model
}

// Close releases resources.
func (s *LLMService) Close() error {
	// HTTP client doesn't need explicit cleanup
	return nil
}

// post sends a JSON request and decodes the JSON response, classifying
// transport and status failures.
func (s *LLMService) post(ctx context.Context, path, endpoint string, reqBody, respBody any) error {
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		s.baseURL+path,
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return s.providerError(endpoint, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return s.providerError(endpoint, resp.StatusCode, errors.New("failed to read response"))
		}
		return s.providerError(endpoint, resp.StatusCode, errors.New(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(respBody); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// get sends a GET request and decodes the JSON response.
func (s *LLMService) get(ctx context.Context, path, endpoint string, respBody any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return s.providerError(endpoint, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return s.providerError(endpoint, resp.StatusCode, errors.New("failed to read response"))
		}
		return s.providerError(endpoint, resp.StatusCode, errors.New(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(respBody); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// providerError wraps a transport or API failure with its classification.
func (s *LLMService) providerError(endpoint string, status int, cause error) error {
	class := domain.ErrorUnavailable
	if status > 0 {
		class = domain.ClassifyStatus(status)
	}
	return &domain.ProviderError{
		Class:    class,
		Provider: domain.AIProviderOllama,
		Endpoint: endpoint,
		Status:   status,
		Err:      cause,
	}
}
