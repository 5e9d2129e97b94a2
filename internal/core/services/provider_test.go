package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/libris/internal/core/domain"
	"github.com/custodia-labs/libris/internal/core/ports/driven"
)

func providerSettings() domain.Settings {
	return domain.Settings{
		DefaultProvider: "local",
		Providers: []domain.ProviderConfig{
			{
				ID:      "local",
				Type:    domain.AIProviderOllama,
				Enabled: true,
				Ollama:  &domain.OllamaSettings{Model: "llama3.2"},
			},
			{
				ID:        "claude",
				Type:      domain.AIProviderAnthropic,
				Enabled:   true,
				Anthropic: &domain.AnthropicSettings{APIKey: "sk", Model: "claude-3-5-sonnet-latest"},
			},
			{
				ID:      "disabled",
				Type:    domain.AIProviderOllama,
				Enabled: false,
				Ollama:  &domain.OllamaSettings{Model: "llama3.2"},
			},
		},
	}
}

// stubFactory activates only the listed provider IDs.
func stubFactory(available map[string]*mockLLM) LLMFactory {
	return func(_ context.Context, cfg domain.ProviderConfig) (driven.LLMService, error) {
		if svc, ok := available[cfg.ID]; ok {
			return svc, nil
		}
		return nil, domain.ErrLLMUnavailable
	}
}

func TestProviderManager_Initialise_Default(t *testing.T) {
	llm := &mockLLM{available: true}
	mgr := NewProviderManager(providerSettings(), stubFactory(map[string]*mockLLM{"local": llm}))

	mgr.Initialise(context.Background())

	assert.Equal(t, "local", mgr.ActiveProvider())
	assert.Same(t, llm, mgr.LLM().(*mockLLM))
}

func TestProviderManager_Initialise_FallsBack(t *testing.T) {
	claude := &mockLLM{available: true}
	mgr := NewProviderManager(providerSettings(), stubFactory(map[string]*mockLLM{"claude": claude}))

	mgr.Initialise(context.Background())

	assert.Equal(t, "claude", mgr.ActiveProvider())
}

func TestProviderManager_Initialise_SkipsDisabled(t *testing.T) {
	// Only the disabled configuration would succeed.
	disabled := &mockLLM{available: true}
	mgr := NewProviderManager(providerSettings(), stubFactory(map[string]*mockLLM{"disabled": disabled}))

	mgr.Initialise(context.Background())

	assert.Empty(t, mgr.ActiveProvider())
	assert.Nil(t, mgr.LLM())
}

func TestProviderManager_Initialise_NoneAvailable(t *testing.T) {
	mgr := NewProviderManager(providerSettings(), stubFactory(nil))

	mgr.Initialise(context.Background())

	assert.Empty(t, mgr.ActiveProvider())
	assert.Nil(t, mgr.LLM())
}

func TestProviderManager_SwitchProvider(t *testing.T) {
	local := &mockLLM{available: true}
	claude := &mockLLM{available: true}
	mgr := NewProviderManager(providerSettings(), stubFactory(map[string]*mockLLM{
		"local":  local,
		"claude": claude,
	}))
	mgr.Initialise(context.Background())
	require.Equal(t, "local", mgr.ActiveProvider())

	err := mgr.SwitchProvider(context.Background(), "claude")

	require.NoError(t, err)
	assert.Equal(t, "claude", mgr.ActiveProvider())
	assert.True(t, local.closed, "previous provider should be closed")
}

func TestProviderManager_SwitchProvider_UnknownID(t *testing.T) {
	mgr := NewProviderManager(providerSettings(), stubFactory(nil))

	err := mgr.SwitchProvider(context.Background(), "nope")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestProviderManager_SwitchProvider_FailureKeepsPrevious(t *testing.T) {
	local := &mockLLM{available: true}
	mgr := NewProviderManager(providerSettings(), stubFactory(map[string]*mockLLM{"local": local}))
	mgr.Initialise(context.Background())

	err := mgr.SwitchProvider(context.Background(), "claude")

	require.Error(t, err)
	assert.Equal(t, "local", mgr.ActiveProvider())
	assert.False(t, local.closed)
}

func TestProviderManager_ListProviders(t *testing.T) {
	local := &mockLLM{available: true}
	claude := &mockLLM{available: true}
	mgr := NewProviderManager(providerSettings(), stubFactory(map[string]*mockLLM{
		"local":  local,
		"claude": claude,
	}))
	mgr.Initialise(context.Background())

	statuses, err := mgr.ListProviders(context.Background())
	require.NoError(t, err)
	require.Len(t, statuses, 3)

	byID := make(map[string]bool)
	for _, status := range statuses {
		byID[status.ID] = true
		switch status.ID {
		case "local":
			assert.True(t, status.Active)
			assert.True(t, status.Available)
		case "claude":
			assert.False(t, status.Active)
			assert.True(t, status.Available)
		case "disabled":
			assert.False(t, status.Active)
			assert.False(t, status.Enabled)
		}
	}
	assert.Len(t, byID, 3)
}

func TestProviderManager_ListModels(t *testing.T) {
	local := &mockLLM{
		available: true,
		models:    []domain.ModelInfo{{ID: "llama3.2", Provider: domain.AIProviderOllama}},
	}
	mgr := NewProviderManager(providerSettings(), stubFactory(map[string]*mockLLM{"local": local}))
	mgr.Initialise(context.Background())

	models, err := mgr.ListModels(context.Background())

	require.NoError(t, err)
	require.Len(t, models, 1)
	assert.Equal(t, "llama3.2", models[0].ID)
}

func TestProviderManager_ListModels_Degraded(t *testing.T) {
	mgr := NewProviderManager(providerSettings(), stubFactory(nil))

	_, err := mgr.ListModels(context.Background())

	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
}

func TestProviderManager_Close(t *testing.T) {
	local := &mockLLM{available: true}
	mgr := NewProviderManager(providerSettings(), stubFactory(map[string]*mockLLM{"local": local}))
	mgr.Initialise(context.Background())

	require.NoError(t, mgr.Close())

	assert.True(t, local.closed)
	assert.Empty(t, mgr.ActiveProvider())
	assert.Nil(t, mgr.LLM())
}
