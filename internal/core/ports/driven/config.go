package driven

import "github.com/custodia-labs/libris/internal/core/domain"

// SettingsStore persists the engine configuration.
type SettingsStore interface {
	// Load reads settings from the backing store. A missing store yields
	// defaulted settings, not an error.
	Load() (domain.Settings, error)

	// Save persists the given settings.
	Save(settings domain.Settings) error

	// Path returns the location of the backing store, for diagnostics.
	Path() string
}

// Prompt names used with PromptStore.Load.
const (
	// PromptAnswerSystem is the system prompt for generative answers.
	PromptAnswerSystem = "answer_system"

	// PromptAnswer is the user prompt template for generative answers.
	// Takes two %s placeholders: retrieved context and the question.
	PromptAnswer = "answer"

	// PromptSummarise is the metadata-suggestion prompt template.
	// Takes a %d max-length placeholder and a %s content placeholder.
	PromptSummarise = "summarise"
)

// PromptStore loads LLM prompt templates by name.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	Load(name string) (string, error)
}
