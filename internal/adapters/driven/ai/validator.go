package ai

import (
	"context"
	"fmt"

	"github.com/custodia-labs/libris/internal/core/domain"
)

// ValidateConfig checks that a provider configuration is complete and the
// backend answers. Anthropic configurations skip the embedding check
// since the provider has no embedding endpoint.
func ValidateConfig(ctx context.Context, cfg domain.ProviderConfig) error {
	if !cfg.Type.IsValid() {
		return fmt.Errorf("%w: unknown provider type %q", domain.ErrInvalidInput, cfg.Type)
	}
	if !cfg.IsConfigured() {
		return fmt.Errorf("%w: provider %q is missing credentials", domain.ErrInvalidInput, cfg.ID)
	}

	svc, err := CreateAndValidateLLMService(ctx, cfg)
	if err != nil {
		return err
	}
	svc.Close()

	if cfg.Type == domain.AIProviderAnthropic {
		return nil
	}

	embed, err := CreateAndValidateEmbeddingService(ctx, cfg)
	if err != nil {
		return err
	}
	return embed.Close()
}
