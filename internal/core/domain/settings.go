package domain

import "time"

// ProviderConfig is one configured provider backend. The per-provider
// settings are a tagged union keyed by Type: exactly one of the variant
// fields is set, each with its own strongly-typed struct.
type ProviderConfig struct {
	// ID is the unique name of this configuration (e.g. "local-ollama").
	ID string

	// Type selects the variant.
	Type AIProvider

	// Enabled marks the configuration as usable for fallback selection.
	Enabled bool

	// Ollama settings, set when Type is AIProviderOllama.
	Ollama *OllamaSettings

	// OpenAI settings, set when Type is AIProviderOpenAI.
	OpenAI *OpenAISettings

	// Anthropic settings, set when Type is AIProviderAnthropic.
	Anthropic *AnthropicSettings
}

// IsConfigured returns true if the variant matching Type is present and
// carries the credentials it needs.
func (c ProviderConfig) IsConfigured() bool {
	switch c.Type {
	case AIProviderOllama:
		return c.Ollama != nil
	case AIProviderOpenAI:
		return c.OpenAI != nil && c.OpenAI.APIKey != ""
	case AIProviderAnthropic:
		return c.Anthropic != nil && c.Anthropic.APIKey != ""
	default:
		return false
	}
}

// OllamaSettings configures a local Ollama backend.
type OllamaSettings struct {
	// BaseURL is the API endpoint (default http://localhost:11434).
	BaseURL string

	// Model is the generation model name.
	Model string

	// EmbeddingModel is the embedding model name.
	EmbeddingModel string
}

// OpenAISettings configures an OpenAI-compatible backend.
type OpenAISettings struct {
	// APIKey is the bearer token.
	APIKey string

	// BaseURL is the API endpoint (default https://api.openai.com/v1).
	// Can point at any OpenAI-compatible server.
	BaseURL string

	// Model is the generation model name.
	Model string

	// EmbeddingModel is the embedding model name.
	EmbeddingModel string
}

// AnthropicSettings configures an Anthropic backend.
type AnthropicSettings struct {
	// APIKey is the API key.
	APIKey string

	// BaseURL is the API endpoint (default https://api.anthropic.com).
	BaseURL string

	// Model is the generation model name.
	Model string
}

// ChunkingSettings configures the text chunker.
type ChunkingSettings struct {
	// ChunkSize is the maximum chunk length in characters (default 1000).
	ChunkSize int

	// ChunkOverlap is the number of characters shared with the previous
	// chunk (default 200). Must be smaller than ChunkSize.
	ChunkOverlap int
}

// RateLimitSettings configures the per-provider adaptive rate limiter.
type RateLimitSettings struct {
	// RequestsPerMinute is the configured ceiling for the rolling window.
	RequestsPerMinute int

	// MaxConcurrent caps in-flight requests.
	MaxConcurrent int
}

// JobSettings configures the ingestion job tracker.
type JobSettings struct {
	// Workers is the size of the ingestion worker pool.
	Workers int

	// Retention is how long terminal jobs are kept before the sweep
	// removes them (default 1 hour).
	Retention time.Duration
}

// Settings is the full configuration for the engine.
type Settings struct {
	// DefaultProvider is the provider configuration tried first at startup.
	DefaultProvider string

	// Providers are the configured backends, keyed by ProviderConfig.ID.
	Providers []ProviderConfig

	// Chunking configures the text chunker.
	Chunking ChunkingSettings

	// RateLimit configures the adaptive rate limiter.
	RateLimit RateLimitSettings

	// Jobs configures the ingestion worker pool and retention sweep.
	Jobs JobSettings
}

// Provider returns the configuration with the given ID.
func (s Settings) Provider(id string) (ProviderConfig, bool) {
	for _, p := range s.Providers {
		if p.ID == id {
			return p, true
		}
	}
	return ProviderConfig{}, false
}
