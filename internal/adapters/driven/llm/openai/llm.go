// Package openai provides an LLM service adapter using OpenAI API.
package openai

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
	DefaultBaseURL        = "https://api.openai.com/v1"
	DefaultLLMModel       = "gpt-4o-mini"
	DefaultEmbeddingModel = "text-embedding-3-small"
	DefaultLLMTimeout     = 120 * time.Second
)

// LLMConfig holds configuration for the OpenAI LLM service.
type LLMConfig struct {
	// APIKey is the OpenAI API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.openai.com/v1).
	// Can be changed for Azure OpenAI or compatible APIs.
	BaseURL string

	// Model is the LLM model to use (default: gpt-4o-mini).
	Model string

	// EmbeddingModel is the model used for CreateEmbedding
	// (default: text-embedding-3-small).
	EmbeddingModel string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration
}

// LLMService provides LLM operations using OpenAI API.
type LLMService struct {
	client         *http.Client
	baseURL        string
	apiKey         string
	model          string
	embeddingModel string
}

// chatCompletionRequest is the OpenAI /chat/completions request format.
type chatCompletionRequest struct {
	Model        string              `json:"model"`
	Messages     []chatCompletionMsg `json:"messages"`
	MaxTokens    int                 `json:"max_tokens,omitempty"`
	Temperature  float64             `json:"temperature,omitempty"`
	Stop         []string            `json:"stop,omitempty"`
	Functions    []functionDef       `json:"functions,omitempty"`
	FunctionCall any                 `json:"function_call,omitempty"`
}

// chatCompletionMsg is the OpenAI chat message format.
type chatCompletionMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Name    string `json:"name,omitempty"`
}

// functionDef is the OpenAI function declaration format.
type functionDef struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// chatCompletionResponse is the OpenAI /chat/completions response format.
type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Role         string `json:"role"`
			Content      string `json:"content"`
			FunctionCall *struct {
				Name      string `json:"name"`
				Arguments string `json:"arguments"`
			} `json:"function_call,omitempty"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// embeddingRequest is the OpenAI /embeddings request format.
type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// embeddingResponse is the OpenAI /embeddings response format.
type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// modelsResponse is the OpenAI /models response format.
type modelsResponse struct {
	Data []struct {
		ID      string `json:"id"`
		Created int64  `json:"created"`
		OwnedBy string `json:"owned_by"`
	} `json:"data"`
}

// NewLLMService creates a new OpenAI LLM service.
func NewLLMService(cfg LLMConfig) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultLLMModel
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = DefaultEmbeddingModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultLLMTimeout
	}

	return &LLMService{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:        cfg.BaseURL,
		apiKey:         cfg.APIKey,
		model:          cfg.Model,
		embeddingModel: cfg.EmbeddingModel,
	}, nil
}

// IsAvailable reports whether the API responds on /models with this key.
func (s *LLMService) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/models", http.NoBody)
	if err != nil {
		return false
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

// GenerateCompletion produces text from a prompt via the chat endpoint.
func (s *LLMService) GenerateCompletion(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	result, err := s.chatCompletion(ctx,
		[]driven.ChatMessage{{Role: "user", Content: prompt}},
		driven.ChatOptions{
			MaxTokens:   opts.MaxTokens,
			Temperature: opts.Temperature,
		},
		opts.StopSequences)
	if err != nil {
		return "", err
	}
	return result.Content, nil
}

// GenerateChatCompletion conducts a multi-turn conversation with optional
// function calling.
func (s *LLMService) GenerateChatCompletion(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (*driven.ChatResult, error) {
	return s.chatCompletion(ctx, messages, opts, nil)
}

// chatCompletion is the shared implementation for both generation paths.
func (s *LLMService) chatCompletion(
	ctx context.Context,
	messages []driven.ChatMessage,
	opts driven.ChatOptions,
	stopSequences []string,
) (*driven.ChatResult, error) {
	chatMessages := make([]chatCompletionMsg, len(messages))
	for i, msg := range messages {
		chatMessages[i] = chatCompletionMsg{
			Role:    msg.Role,
			Content: msg.Content,
			Name:    msg.Name,
		}
	}

	reqBody := chatCompletionRequest{
		Model:    s.model,
		Messages: chatMessages,
	}

	if opts.MaxTokens > 0 {
		reqBody.MaxTokens = opts.MaxTokens
	}
	if opts.Temperature > 0 {
		reqBody.Temperature = driven.ClampTemperature(opts.Temperature)
	}
	if len(stopSequences) > 0 {
		reqBody.Stop = stopSequences
	}
	for _, fn := range opts.Functions {
		reqBody.Functions = append(reqBody.Functions, functionDef{
			Name:        fn.Name,
			Description: fn.Description,
			Parameters:  fn.Parameters,
		})
	}
	if opts.FunctionCall != "" {
		switch opts.FunctionCall {
		case "auto", "none":
			reqBody.FunctionCall = opts.FunctionCall
		default:
			reqBody.FunctionCall = map[string]string{"name": opts.FunctionCall}
		}
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		s.baseURL+"/chat/completions",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, s.providerError("chat", 0, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var chatResp chatCompletionResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if chatResp.Error != nil {
		return nil, s.providerError("chat", resp.StatusCode, errors.New(chatResp.Error.Message))
	}

	if resp.StatusCode != http.StatusOK {
		return nil, s.providerError("chat", resp.StatusCode, errors.New(string(body)))
	}

	if len(chatResp.Choices) == 0 {
		return nil, &domain.ProviderError{
			Class:    domain.ErrorIncompleteResponse,
			Provider: domain.AIProviderOpenAI,
			Endpoint: "chat",
			Err:      errors.New("no response choices returned"),
		}
	}

	choice := chatResp.Choices[0]
	result := &driven.ChatResult{
		Content:      choice.Message.Content,
		Role:         choice.Message.Role,
		FinishReason: choice.FinishReason,
	}
	if result.Role == "" {
		result.Role = "assistant"
	}
	if choice.Message.FunctionCall != nil {
		result.FunctionCall = &driven.FunctionCall{
			Name:      choice.Message.FunctionCall.Name,
			Arguments: choice.Message.FunctionCall.Arguments,
		}
	}
	return result, nil
}

// CreateEmbedding generates a vector embedding for a single text.
func (s *LLMService) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	reqBody := embeddingRequest{
		Model: s.embeddingModel,
		Input: []string{text},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		s.baseURL+"/embeddings",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, s.providerError("embeddings", 0, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var embedResp embeddingResponse
	if err := json.Unmarshal(body, &embedResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if embedResp.Error != nil {
		return nil, s.providerError("embeddings", resp.StatusCode, errors.New(embedResp.Error.Message))
	}

	if resp.StatusCode != http.StatusOK {
		return nil, s.providerError("embeddings", resp.StatusCode, errors.New(string(body)))
	}

	if len(embedResp.Data) == 0 {
		return nil, &domain.ProviderError{
			Class:    domain.ErrorIncompleteResponse,
			Provider: domain.AIProviderOpenAI,
			Endpoint: "embeddings",
			Err:      errors.New("no embedding returned"),
		}
	}

	embedding := make([]float32, len(embedResp.Data[0].Embedding))
	for i, v := range embedResp.Data[0].Embedding {
		embedding[i] = float32(v)
	}
	return embedding, nil
}

// ListModels returns the models the API exposes for this key.
func (s *LLMService) ListModels(ctx context.Context) ([]domain.ModelInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/models", http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, s.providerError("models", 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, s.providerError("models", resp.StatusCode, errors.New("failed to read response"))
		}
		return nil, s.providerError("models", resp.StatusCode, errors.New(string(body)))
	}

	var modelsResp modelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&modelsResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	models := make([]domain.ModelInfo, 0, len(modelsResp.Data))
	for _, m := range modelsResp.Data {
		models = append(models, domain.ModelInfo{
			ID:       m.ID,
			Name:     m.ID,
			Provider: domain.AIProviderOpenAI,
			// Cloud-hosted models are always resident.
			Loaded: true,
		})
	}
	return models, nil
}

// Provider identifies the backend type.
func (s *LLMService) Provider() domain.AIProvider {
	return domain.AIProviderOpenAI
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

// providerError wraps a transport or API failure with its classification.
func (s *LLMService) providerError(endpoint string, status int, cause error) error {
	class := domain.ErrorUnavailable
	if status > 0 {
		class = domain.ClassifyStatus(status)
	}
	return &domain.ProviderError{
		Class:    class,
		Provider: domain.AIProviderOpenAI,
		Endpoint: endpoint,
		Status:   status,
		Err:      cause,
	}
}
