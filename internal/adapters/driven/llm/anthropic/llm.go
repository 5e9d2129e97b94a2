// Package anthropic provides an LLM service adapter using Anthropic API.
package anthropic

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
	DefaultBaseURL = "https://api.anthropic.com"
	DefaultModel   = "claude-3-5-sonnet-latest"
	DefaultTimeout = 120 * time.Second

	// anthropicVersion is the required API version header.
	anthropicVersion = "2023-06-01"
)

// Config holds configuration for the Anthropic LLM service.
type Config struct {
	// APIKey is the Anthropic API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.anthropic.com).
	BaseURL string

	// Model is the LLM model to use (default: claude-3-5-sonnet-latest).
	Model string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration
}

// LLMService provides LLM operations using Anthropic API.
type LLMService struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
}

// messagesRequest is the Anthropic /v1/messages request format.
type messagesRequest struct {
	Model       string            `json:"model"`
	Messages    []messagesMessage `json:"messages"`
	MaxTokens   int               `json:"max_tokens"`
	System      string            `json:"system,omitempty"`
	Temperature float64           `json:"temperature,omitempty"`
	StopSeqs    []string          `json:"stop_sequences,omitempty"`
}

// messagesMessage is the Anthropic message format.
type messagesMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// messagesResponse is the Anthropic /v1/messages response format.
type messagesResponse struct {
	Role    string `json:"role"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// modelsResponse is the Anthropic /v1/models response format.
type modelsResponse struct {
	Data []struct {
		ID          string `json:"id"`
		DisplayName string `json:"display_name"`
	} `json:"data"`
}

// defaultMaxTokens applies when the caller leaves MaxTokens unset;
// the Anthropic API requires the field.
const defaultMaxTokens = 1024

// NewLLMService creates a new Anthropic LLM service.
func NewLLMService(cfg Config) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: API key is required")
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

	return &LLMService{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
	}, nil
}

// IsAvailable reports whether the API responds on /v1/models with this key.
func (s *LLMService) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/v1/models", http.NoBody)
	if err != nil {
		return false
	}
	s.setHeaders(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

// GenerateCompletion produces text from a prompt.
func (s *LLMService) GenerateCompletion(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	result, err := s.sendMessages(ctx, "",
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

// GenerateChatCompletion conducts a multi-turn conversation. System
// messages are lifted into the dedicated system field; Anthropic's
// function calling is not exposed, declared functions are ignored.
func (s *LLMService) GenerateChatCompletion(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (*driven.ChatResult, error) {
	var systemPrompt string
	var chatMessages []driven.ChatMessage

	for _, msg := range messages {
		if msg.Role == "system" {
			systemPrompt = msg.Content
		} else {
			chatMessages = append(chatMessages, msg)
		}
	}

	return s.sendMessages(ctx, systemPrompt, chatMessages, opts, nil)
}

// sendMessages is the shared implementation for both generation paths.
func (s *LLMService) sendMessages(
	ctx context.Context,
	systemPrompt string,
	messages []driven.ChatMessage,
	opts driven.ChatOptions,
	stopSequences []string,
) (*driven.ChatResult, error) {
	apiMessages := make([]messagesMessage, len(messages))
	for i, msg := range messages {
		apiMessages[i] = messagesMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	reqBody := messagesRequest{
		Model:     s.model,
		Messages:  apiMessages,
		MaxTokens: maxTokens,
		System:    systemPrompt,
		StopSeqs:  stopSequences,
	}
	if opts.Temperature > 0 {
		reqBody.Temperature = driven.ClampTemperature(opts.Temperature)
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		s.baseURL+"/v1/messages",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	s.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, s.providerError("chat", 0, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var msgResp messagesResponse
	if err := json.Unmarshal(body, &msgResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if msgResp.Error != nil {
		return nil, s.providerError("chat", resp.StatusCode, errors.New(msgResp.Error.Message))
	}

	if resp.StatusCode != http.StatusOK {
		return nil, s.providerError("chat", resp.StatusCode, errors.New(string(body)))
	}

	var content string
	for _, block := range msgResp.Content {
		if block.Type == "text" {
			content += block.Text
		}
	}
	if content == "" {
		return nil, &domain.ProviderError{
			Class:    domain.ErrorIncompleteResponse,
			Provider: domain.AIProviderAnthropic,
			Endpoint: "chat",
			Err:      errors.New("no text content returned"),
		}
	}

	role := msgResp.Role
	if role == "" {
		role = "assistant"
	}

	return &driven.ChatResult{
		Content:      content,
		Role:         role,
		FinishReason: msgResp.StopReason,
	}, nil
}

// CreateEmbedding is unsupported; Anthropic has no embedding endpoint.
func (s *LLMService) CreateEmbedding(context.Context, string) ([]float32, error) {
	return nil, &domain.ProviderError{
		Class:    domain.ErrorInvalidRequest,
		Provider: domain.AIProviderAnthropic,
		Endpoint: "embeddings",
		Err:      errors.New("anthropic does not provide an embedding endpoint"),
	}
}

// ListModels returns the models the API exposes for this key.
func (s *LLMService) ListModels(ctx context.Context) ([]domain.ModelInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/v1/models", http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	s.setHeaders(req)

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
		name := m.DisplayName
		if name == "" {
			name = m.ID
		}
		models = append(models, domain.ModelInfo{
			ID:       m.ID,
			Name:     name,
			Provider: domain.AIProviderAnthropic,
			// Cloud-hosted models are always resident.
			Loaded: true,
		})
	}
	return models, nil
}

// Provider identifies the backend type.
func (s *LLMService) Provider() domain.AIProvider {
	return domain.AIProviderAnthropic
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

// setHeaders applies the authentication and version headers.
func (s *LLMService) setHeaders(req *http.Request) {
	req.Header.Set("x-api-key", s.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)
}

// providerError wraps a transport or API failure with its classification.
func (s *LLMService) providerError(endpoint string, status int, cause error) error {
	class := domain.ErrorUnavailable
	if status > 0 {
		class = domain.ClassifyStatus(status)
	}
	return &domain.ProviderError{
		Class:    class,
		Provider: domain.AIProviderAnthropic,
		Endpoint: endpoint,
		Status:   status,
		Err:      cause,
	}
}
