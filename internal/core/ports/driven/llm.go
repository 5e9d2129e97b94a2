package driven

import (
	"context"

	"github.com/custodia-labs/libris/internal/core/domain"
)

// LLMService is the uniform contract over interchangeable text-generation
// backends. This is an optional service - when nil, answer generation
// degrades to the extractive mode.
//
// Implementations may include:
//   - Ollama (local models)
//   - OpenAI-compatible servers (cloud or local)
//   - Anthropic (Claude)
type LLMService interface {
	// IsAvailable reports whether the backend is reachable. It has no
	// side effects and is safe to poll.
	IsAvailable(ctx context.Context) bool

	// GenerateCompletion produces text from a prompt.
	GenerateCompletion(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

	// GenerateChatCompletion conducts a multi-turn conversation, with
	// optional function calling for providers that support it.
	GenerateChatCompletion(ctx context.Context, messages []ChatMessage, opts ChatOptions) (*ChatResult, error)

	// CreateEmbedding generates a vector embedding for a single text.
	// Providers without an embedding endpoint return a ProviderError of
	// class ErrorInvalidRequest.
	CreateEmbedding(ctx context.Context, text string) ([]float32, error)

	// ListModels returns the models this backend knows about.
	ListModels(ctx context.Context) ([]domain.ModelInfo, error)

	// Provider identifies the backend type.
	Provider() domain.AIProvider

	// ModelName returns the generation model being used.
	ModelName() string

	// Close releases resources. Safe to call more than once.
	Close() error
}

// Temperature bounds enforced before transmission.
const (
	MinTemperature = 0.0
	MaxTemperature = 2.0
)

// ClampTemperature forces a temperature into the transmittable range.
func ClampTemperature(t float64) float64 {
	if t < MinTemperature {
		return MinTemperature
	}
	if t > MaxTemperature {
		return MaxTemperature
	}
	return t
}

// GenerateOptions configures text generation behaviour.
type GenerateOptions struct {
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness. Clamped into [0, 2] before
	// transmission.
	Temperature float64

	// StopSequences stop generation when encountered.
	StopSequences []string
}

// ChatMessage represents a single message in a conversation.
type ChatMessage struct {
	// Role is one of "system", "user", "assistant" or "function".
	Role string

	// Content is the message text.
	Content string

	// Name identifies the function for role "function" messages.
	Name string
}

// FunctionDef declares a callable function to the model.
type FunctionDef struct {
	// Name is the function name.
	Name string

	// Description tells the model when to call the function.
	Description string

	// Parameters is a JSON Schema object describing the arguments.
	Parameters map[string]any
}

// FunctionCall is the model's request to invoke a declared function.
type FunctionCall struct {
	// Name is the requested function.
	Name string

	// Arguments is the raw JSON argument payload.
	Arguments string
}

// ChatOptions configures chat behaviour.
type ChatOptions struct {
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness. Clamped into [0, 2] before
	// transmission.
	Temperature float64

	// Functions declares callable functions, for providers that support
	// function calling.
	Functions []FunctionDef

	// FunctionCall forces ("auto", "none", or a function name) how the
	// model may call functions.
	FunctionCall string
}

// ChatResult is the uniform chat completion response.
type ChatResult struct {
	// Content is the assistant's reply text.
	Content string

	// Role is the reply role, normally "assistant".
	Role string

	// FunctionCall is set when the model chose to call a function.
	FunctionCall *FunctionCall

	// FinishReason is the provider's stop reason, if reported.
	FinishReason string
}
