// Command libris runs the AI retrieval engine CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/libris/internal/adapters/driven/ai"
	"github.com/custodia-labs/libris/internal/adapters/driven/config/file"
	"github.com/custodia-labs/libris/internal/adapters/driven/vectorstore/memory"
	"github.com/custodia-labs/libris/internal/adapters/driven/vectorstore/sqlite"
	"github.com/custodia-labs/libris/internal/adapters/driving/cli"
	"github.com/custodia-labs/libris/internal/core/domain"
	"github.com/custodia-labs/libris/internal/core/ports/driven"
	"github.com/custodia-labs/libris/internal/core/services"
	"github.com/custodia-labs/libris/internal/logger"
	"github.com/custodia-labs/libris/internal/ratelimit"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// API keys may live in a .env next to the binary; absence is fine.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	settingsStore, err := file.NewSettingsStore(os.Getenv("LIBRIS_CONFIG_DIR"))
	if err != nil {
		return fmt.Errorf("open settings store: %w", err)
	}
	settings, err := settingsStore.Load()
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	prompts, err := file.NewPromptStore(os.Getenv("LIBRIS_PROMPT_DIR"))
	if err != nil {
		return fmt.Errorf("open prompt store: %w", err)
	}

	store, err := openStore()
	if err != nil {
		return fmt.Errorf("open vector store: %w", err)
	}
	defer store.Close()

	limiter := ratelimit.New(ratelimit.Config{
		RequestsPerMinute: settings.RateLimit.RequestsPerMinute,
		MaxConcurrent:     settings.RateLimit.MaxConcurrent,
	})

	jobs := services.NewJobTracker(settings.Jobs.Retention)
	jobs.StartSweeper(ctx)

	providers := services.NewProviderManager(settings, ai.CreateAndValidateLLMService)
	providers.Initialise(ctx)
	defer providers.Close()

	embedder := openEmbedder(settings)
	if embedder != nil {
		defer embedder.Close()
	}

	rag, err := services.NewRAGService(store, embedder, limiter, prompts, jobs, providers, services.RAGConfig{
		ChunkSize:    settings.Chunking.ChunkSize,
		ChunkOverlap: settings.Chunking.ChunkOverlap,
		Workers:      settings.Jobs.Workers,
	})
	if err != nil {
		return fmt.Errorf("create rag service: %w", err)
	}

	cli.SetVersion(version)
	cli.SetServices(cli.Services{
		RAG:       rag,
		Jobs:      jobs,
		Providers: providers,
		Settings:  settingsStore,
	})

	return cli.Execute()
}

// openStore selects the vector store backend. The sqlite store is the
// default; LIBRIS_STORE=memory selects the in-memory reference store.
func openStore() (driven.VectorStore, error) {
	if os.Getenv("LIBRIS_STORE") == "memory" {
		return memory.NewStore(), nil
	}
	return sqlite.NewStore(os.Getenv("LIBRIS_DATA_DIR"))
}

// openEmbedder picks the first configured provider that supports
// embeddings. Running without one still serves search-free commands;
// ingest and search report the embedding backend as unavailable.
func openEmbedder(settings domain.Settings) driven.EmbeddingService {
	ordered := make([]domain.ProviderConfig, 0, len(settings.Providers))
	if cfg, ok := settings.Provider(settings.DefaultProvider); ok {
		ordered = append(ordered, cfg)
	}
	for _, cfg := range settings.Providers {
		if cfg.ID != settings.DefaultProvider {
			ordered = append(ordered, cfg)
		}
	}

	for _, cfg := range ordered {
		if !cfg.Enabled || cfg.Type == domain.AIProviderAnthropic {
			continue
		}
		svc, err := ai.CreateEmbeddingService(cfg)
		if err != nil || svc == nil {
			continue
		}
		logger.Debug("Embedding backend: %s (%s)", cfg.ID, svc.ModelName())
		return svc
	}

	logger.Warn("No embedding provider configured; ingest and search are unavailable")
	return nil
}
