package driving

import (
	"context"

	"github.com/custodia-labs/libris/internal/core/domain"
)

// ProviderStatus describes one configured provider for display.
type ProviderStatus struct {
	// ID is the configuration ID.
	ID string

	// Type is the provider backend type.
	Type domain.AIProvider

	// Enabled marks the configuration as usable.
	Enabled bool

	// Active reports whether this is the currently active provider.
	Active bool

	// Available is the result of the last availability probe.
	Available bool
}

// ProviderService manages the active LLM provider.
type ProviderService interface {
	// ActiveProvider returns the active configuration ID, or "" when
	// generation is degraded to extractive-only.
	ActiveProvider() string

	// SwitchProvider verifies the named configuration is available and
	// makes it active. On failure the previous provider stays active.
	SwitchProvider(ctx context.Context, id string) error

	// ListProviders reports every configured provider with a fresh
	// availability probe.
	ListProviders(ctx context.Context) ([]ProviderStatus, error)

	// ListModels returns the active provider's model inventory.
	ListModels(ctx context.Context) ([]domain.ModelInfo, error)
}
