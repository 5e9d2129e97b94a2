// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/libris/internal/adapters/driven/embedding/batching"
	"github.com/custodia-labs/libris/internal/adapters/driven/embedding/cache"
	ollamaembed "github.com/custodia-labs/libris/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/libris/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/libris/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/custodia-labs/libris/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/libris/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/libris/internal/core/domain"
	"github.com/custodia-labs/libris/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// CreateLLMService creates the appropriate LLM service for a provider
// configuration. Returns nil if the configuration is not usable.
func CreateLLMService(cfg domain.ProviderConfig) (driven.LLMService, error) {
	if !cfg.IsConfigured() {
		return nil, nil
	}

	switch cfg.Type {
	case domain.AIProviderOllama:
		return ollamallm.NewLLMService(ollamallm.LLMConfig{
			BaseURL:        cfg.Ollama.BaseURL,
			Model:          cfg.Ollama.Model,
			EmbeddingModel: cfg.Ollama.EmbeddingModel,
		}), nil

	case domain.AIProviderOpenAI:
		return openaillm.NewLLMService(openaillm.LLMConfig{
			APIKey:         cfg.OpenAI.APIKey,
			BaseURL:        cfg.OpenAI.BaseURL,
			Model:          cfg.OpenAI.Model,
			EmbeddingModel: cfg.OpenAI.EmbeddingModel,
		})

	case domain.AIProviderAnthropic:
		return anthropicllm.NewLLMService(anthropicllm.Config{
			APIKey:  cfg.Anthropic.APIKey,
			BaseURL: cfg.Anthropic.BaseURL,
			Model:   cfg.Anthropic.Model,
		})

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Type)
	}
}

// CreateEmbeddingService creates the embedding service for a provider
// configuration, wrapped with batching, truncation, retry and an LRU
// cache. Returns nil if the configuration is not usable.
func CreateEmbeddingService(cfg domain.ProviderConfig) (driven.EmbeddingService, error) {
	if !cfg.IsConfigured() {
		return nil, nil
	}

	raw, err := createRawEmbedding(cfg)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}

	return cache.New(batching.New(raw), cache.DefaultCapacity), nil
}

func createRawEmbedding(cfg domain.ProviderConfig) (driven.EmbeddingService, error) {
	switch cfg.Type {
	case domain.AIProviderOllama:
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL: cfg.Ollama.BaseURL,
			Model:   cfg.Ollama.EmbeddingModel,
		}), nil

	case domain.AIProviderOpenAI:
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:  cfg.OpenAI.APIKey,
			BaseURL: cfg.OpenAI.BaseURL,
			Model:   cfg.OpenAI.EmbeddingModel,
		})

	case domain.AIProviderAnthropic:
		return nil, fmt.Errorf("anthropic does not support embeddings, use ollama or openai")

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Type)
	}
}

// CreateAndValidateLLMService creates an LLM service and verifies the
// backend is reachable. The service is closed and an error returned when
// it is not.
func CreateAndValidateLLMService(ctx context.Context, cfg domain.ProviderConfig) (driven.LLMService, error) {
	svc, err := CreateLLMService(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, err)
	}
	if svc == nil {
		return nil, nil
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if !svc.IsAvailable(pingCtx) {
		svc.Close()
		return nil, fmt.Errorf("%w: provider %q is unreachable", domain.ErrLLMUnavailable, cfg.ID)
	}

	return svc, nil
}

// CreateAndValidateEmbeddingService creates an embedding service and
// verifies the backend is reachable.
func CreateAndValidateEmbeddingService(ctx context.Context, cfg domain.ProviderConfig) (driven.EmbeddingService, error) {
	svc, err := CreateEmbeddingService(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	if svc == nil {
		return nil, nil
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := svc.Ping(pingCtx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}

	return svc, nil
}
