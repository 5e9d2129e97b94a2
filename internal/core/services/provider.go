package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/libris/internal/core/domain"
	"github.com/custodia-labs/libris/internal/core/ports/driven"
	"github.com/custodia-labs/libris/internal/core/ports/driving"
	"github.com/custodia-labs/libris/internal/logger"
)

// Ensure ProviderManager implements the interface.
var _ driving.ProviderService = (*ProviderManager)(nil)

// LLMFactory builds a validated LLM service for a provider configuration.
// It returns (nil, nil) when the configuration is unusable, keeping core
// free of adapter imports.
type LLMFactory func(ctx context.Context, cfg domain.ProviderConfig) (driven.LLMService, error)

// ProviderManager owns the active generation backend. Exactly one
// provider is active at a time; when none is available the engine runs
// degraded and answer generation falls back to the extractive mode.
type ProviderManager struct {
	settings domain.Settings
	factory  LLMFactory

	mu       sync.RWMutex
	activeID string
	llm      driven.LLMService
}

// NewProviderManager creates a provider manager.
func NewProviderManager(settings domain.Settings, factory LLMFactory) *ProviderManager {
	return &ProviderManager{
		settings: settings,
		factory:  factory,
	}
}

// Initialise activates the default provider, falling back to the other
// enabled configurations in order. Running without any provider is not
// an error; the engine degrades to extractive answers.
func (m *ProviderManager) Initialise(ctx context.Context) {
	tried := make(map[string]bool)

	if m.settings.DefaultProvider != "" {
		if cfg, ok := m.settings.Provider(m.settings.DefaultProvider); ok {
			tried[cfg.ID] = true
			if m.tryActivate(ctx, cfg) {
				return
			}
			logger.Warn("Default provider %q unavailable, trying fallbacks", cfg.ID)
		} else {
			logger.Warn("Default provider %q is not configured", m.settings.DefaultProvider)
		}
	}

	for _, cfg := range m.settings.Providers {
		if tried[cfg.ID] || !cfg.Enabled {
			continue
		}
		if m.tryActivate(ctx, cfg) {
			return
		}
	}

	logger.Warn("No LLM provider available; answers degrade to extractive mode")
}

// tryActivate builds and installs a provider. Returns true on success.
func (m *ProviderManager) tryActivate(ctx context.Context, cfg domain.ProviderConfig) bool {
	svc, err := m.factory(ctx, cfg)
	if err != nil || svc == nil {
		if err != nil {
			logger.Debug("Provider %q activation failed: %v", cfg.ID, err)
		}
		return false
	}

	m.mu.Lock()
	old := m.llm
	m.activeID = cfg.ID
	m.llm = svc
	m.mu.Unlock()

	if old != nil {
		old.Close()
	}
	logger.Info("Active provider: %s (%s, model %s)", cfg.ID, svc.Provider(), svc.ModelName())
	return true
}

// ActiveProvider returns the active configuration ID, or "" when
// generation is degraded.
func (m *ProviderManager) ActiveProvider() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.activeID
}

// LLM returns the active generation backend, or nil when degraded.
func (m *ProviderManager) LLM() driven.LLMService {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.llm
}

// SwitchProvider verifies the named configuration is available and makes
// it active. On failure the previous provider stays active.
func (m *ProviderManager) SwitchProvider(ctx context.Context, id string) error {
	cfg, ok := m.settings.Provider(id)
	if !ok {
		return fmt.Errorf("provider %q: %w", id, domain.ErrNotFound)
	}

	svc, err := m.factory(ctx, cfg)
	if err != nil {
		return fmt.Errorf("switch provider %q: %w", id, err)
	}
	if svc == nil {
		return fmt.Errorf("switch provider %q: %w: missing credentials", id, domain.ErrInvalidInput)
	}

	m.mu.Lock()
	old := m.llm
	m.activeID = cfg.ID
	m.llm = svc
	m.mu.Unlock()

	if old != nil {
		old.Close()
	}
	logger.Info("Switched active provider to %s", id)
	return nil
}

// ListProviders reports every configured provider with a fresh
// availability probe. The active provider is probed through its live
// service; the others get a short-lived one.
func (m *ProviderManager) ListProviders(ctx context.Context) ([]driving.ProviderStatus, error) {
	m.mu.RLock()
	activeID := m.activeID
	activeLLM := m.llm
	m.mu.RUnlock()

	statuses := make([]driving.ProviderStatus, 0, len(m.settings.Providers))
	for _, cfg := range m.settings.Providers {
		status := driving.ProviderStatus{
			ID:      cfg.ID,
			Type:    cfg.Type,
			Enabled: cfg.Enabled,
			Active:  cfg.ID == activeID,
		}

		if status.Active && activeLLM != nil {
			status.Available = activeLLM.IsAvailable(ctx)
		} else if probe, err := m.factory(ctx, cfg); err == nil && probe != nil {
			status.Available = true
			probe.Close()
		}

		statuses = append(statuses, status)
	}
	return statuses, nil
}

// ListModels returns the active provider's model inventory.
func (m *ProviderManager) ListModels(ctx context.Context) ([]domain.ModelInfo, error) {
	llm := m.LLM()
	if llm == nil {
		return nil, domain.ErrLLMUnavailable
	}

	models, err := llm.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	return models, nil
}

// Close releases the active provider.
func (m *ProviderManager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.llm != nil {
		err := m.llm.Close()
		m.llm = nil
		m.activeID = ""
		return err
	}
	return nil
}
