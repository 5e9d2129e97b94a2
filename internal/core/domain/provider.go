package domain

import "time"

// AIProvider identifies an interchangeable LLM backend.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is a local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is the OpenAI cloud API, or any compatible server.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is the Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	default:
		return "Unknown"
	}
}

// ModelInfo describes a model known to a provider. It is mutated only by
// the provider manager on load/unload events.
type ModelInfo struct {
	// ID is the provider-scoped model identifier.
	ID string

	// Name is the display name.
	Name string

	// Provider is the owning provider.
	Provider AIProvider

	// Loaded reports whether the model is resident and ready to serve.
	Loaded bool

	// LoadedAt is when the model was loaded, if known.
	LoadedAt *time.Time

	// ContextWindow is the model's context length in tokens, if known.
	ContextWindow int

	// SizeBytes is the on-disk model size, if known.
	SizeBytes int64
}
