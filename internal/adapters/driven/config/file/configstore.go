package file

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/libris/internal/core/domain"
	"github.com/custodia-labs/libris/internal/core/ports/driven"
)

// Ensure SettingsStore implements the interface.
var _ driven.SettingsStore = (*SettingsStore)(nil)

// Defaults applied when the settings file is missing or leaves a field
// unset.
const (
	DefaultChunkSize         = 1000
	DefaultChunkOverlap      = 200
	DefaultRequestsPerMinute = 60
	DefaultMaxConcurrent     = 4
	DefaultJobWorkers        = 4
	DefaultJobRetention      = time.Hour
)

// SettingsStore is a TOML-backed implementation of driven.SettingsStore.
// Settings live in a single file within the libris config directory.
type SettingsStore struct {
	mu       sync.Mutex
	filePath string
}

// NewSettingsStore creates a TOML settings store.
// If configDir is empty, defaults to ~/.libris/config.toml.
func NewSettingsStore(configDir string) (*SettingsStore, error) {
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		configDir = filepath.Join(home, ".libris")
	}

	// Ensure directory exists
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, err
	}

	return &SettingsStore{
		filePath: filepath.Join(configDir, "config.toml"),
	}, nil
}

// Load reads settings from disk and applies defaults to unset fields.
// A missing file yields fully defaulted settings, not an error.
func (s *SettingsStore) Load() (domain.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return applyDefaults(domain.Settings{}), nil
		}
		return domain.Settings{}, fmt.Errorf("read settings: %w", err)
	}

	var f settingsFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return domain.Settings{}, fmt.Errorf("parse settings: %w", err)
	}

	settings, err := f.toDomain()
	if err != nil {
		return domain.Settings{}, err
	}
	return applyDefaults(settings), nil
}

// Save persists settings to disk with restricted permissions.
func (s *SettingsStore) Save(settings domain.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := toml.Marshal(fromDomain(settings))
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	return os.WriteFile(s.filePath, data, 0600)
}

// Path returns the settings file path.
func (s *SettingsStore) Path() string {
	return s.filePath
}

// applyDefaults fills unset fields with the package defaults.
func applyDefaults(settings domain.Settings) domain.Settings {
	if settings.Chunking.ChunkSize <= 0 {
		settings.Chunking.ChunkSize = DefaultChunkSize
	}
	if settings.Chunking.ChunkOverlap <= 0 {
		settings.Chunking.ChunkOverlap = DefaultChunkOverlap
	}
	if settings.RateLimit.RequestsPerMinute <= 0 {
		settings.RateLimit.RequestsPerMinute = DefaultRequestsPerMinute
	}
	if settings.RateLimit.MaxConcurrent <= 0 {
		settings.RateLimit.MaxConcurrent = DefaultMaxConcurrent
	}
	if settings.Jobs.Workers <= 0 {
		settings.Jobs.Workers = DefaultJobWorkers
	}
	if settings.Jobs.Retention <= 0 {
		settings.Jobs.Retention = DefaultJobRetention
	}
	return settings
}

// settingsFile is the on-disk TOML layout. It is kept separate from the
// domain types so the file format can evolve without touching core.
type settingsFile struct {
	DefaultProvider string          `toml:"default_provider,omitempty"`
	Providers       []providerTable `toml:"providers,omitempty"`
	Chunking        chunkingTable   `toml:"chunking,omitempty"`
	RateLimit       rateLimitTable  `toml:"rate_limit,omitempty"`
	Jobs            jobsTable       `toml:"jobs,omitempty"`
}

type providerTable struct {
	ID      string `toml:"id"`
	Type    string `toml:"type"`
	Enabled bool   `toml:"enabled"`

	Ollama    *ollamaTable    `toml:"ollama,omitempty"`
	OpenAI    *openaiTable    `toml:"openai,omitempty"`
	Anthropic *anthropicTable `toml:"anthropic,omitempty"`
}

type ollamaTable struct {
	BaseURL        string `toml:"base_url,omitempty"`
	Model          string `toml:"model,omitempty"`
	EmbeddingModel string `toml:"embedding_model,omitempty"`
}

type openaiTable struct {
	APIKey         string `toml:"api_key,omitempty"`
	BaseURL        string `toml:"base_url,omitempty"`
	Model          string `toml:"model,omitempty"`
	EmbeddingModel string `toml:"embedding_model,omitempty"`
}

type anthropicTable struct {
	APIKey  string `toml:"api_key,omitempty"`
	BaseURL string `toml:"base_url,omitempty"`
	Model   string `toml:"model,omitempty"`
}

type chunkingTable struct {
	ChunkSize    int `toml:"chunk_size,omitempty"`
	ChunkOverlap int `toml:"chunk_overlap,omitempty"`
}

type rateLimitTable struct {
	RequestsPerMinute int `toml:"requests_per_minute,omitempty"`
	MaxConcurrent     int `toml:"max_concurrent,omitempty"`
}

type jobsTable struct {
	Workers   int    `toml:"workers,omitempty"`
	Retention string `toml:"retention,omitempty"`
}

func (f settingsFile) toDomain() (domain.Settings, error) {
	settings := domain.Settings{
		DefaultProvider: f.DefaultProvider,
		Chunking: domain.ChunkingSettings{
			ChunkSize:    f.Chunking.ChunkSize,
			ChunkOverlap: f.Chunking.ChunkOverlap,
		},
		RateLimit: domain.RateLimitSettings{
			RequestsPerMinute: f.RateLimit.RequestsPerMinute,
			MaxConcurrent:     f.RateLimit.MaxConcurrent,
		},
		Jobs: domain.JobSettings{
			Workers: f.Jobs.Workers,
		},
	}

	if f.Jobs.Retention != "" {
		retention, err := time.ParseDuration(f.Jobs.Retention)
		if err != nil {
			return domain.Settings{}, fmt.Errorf("parse jobs.retention: %w", err)
		}
		settings.Jobs.Retention = retention
	}

	for _, p := range f.Providers {
		cfg := domain.ProviderConfig{
			ID:      p.ID,
			Type:    domain.AIProvider(p.Type),
			Enabled: p.Enabled,
		}
		if p.Ollama != nil {
			cfg.Ollama = &domain.OllamaSettings{
				BaseURL:        p.Ollama.BaseURL,
				Model:          p.Ollama.Model,
				EmbeddingModel: p.Ollama.EmbeddingModel,
			}
		}
		if p.OpenAI != nil {
			cfg.OpenAI = &domain.OpenAISettings{
				APIKey:         p.OpenAI.APIKey,
				BaseURL:        p.OpenAI.BaseURL,
				Model:          p.OpenAI.Model,
				EmbeddingModel: p.OpenAI.EmbeddingModel,
			}
		}
		if p.Anthropic != nil {
			cfg.Anthropic = &domain.AnthropicSettings{
				APIKey:  p.Anthropic.APIKey,
				BaseURL: p.Anthropic.BaseURL,
				Model:   p.Anthropic.Model,
			}
		}
		settings.Providers = append(settings.Providers, cfg)
	}

	return settings, nil
}

func fromDomain(settings domain.Settings) settingsFile {
	f := settingsFile{
		DefaultProvider: settings.DefaultProvider,
		Chunking: chunkingTable{
			ChunkSize:    settings.Chunking.ChunkSize,
			ChunkOverlap: settings.Chunking.ChunkOverlap,
		},
		RateLimit: rateLimitTable{
			RequestsPerMinute: settings.RateLimit.RequestsPerMinute,
			MaxConcurrent:     settings.RateLimit.MaxConcurrent,
		},
		Jobs: jobsTable{
			Workers: settings.Jobs.Workers,
		},
	}

	if settings.Jobs.Retention > 0 {
		f.Jobs.Retention = settings.Jobs.Retention.String()
	}

	for _, cfg := range settings.Providers {
		p := providerTable{
			ID:      cfg.ID,
			Type:    string(cfg.Type),
			Enabled: cfg.Enabled,
		}
		if cfg.Ollama != nil {
			p.Ollama = &ollamaTable{
				BaseURL:        cfg.Ollama.BaseURL,
				Model:          cfg.Ollama.Model,
				EmbeddingModel: cfg.Ollama.EmbeddingModel,
			}
		}
		if cfg.OpenAI != nil {
			p.OpenAI = &openaiTable{
				APIKey:         cfg.OpenAI.APIKey,
				BaseURL:        cfg.OpenAI.BaseURL,
				Model:          cfg.OpenAI.Model,
				EmbeddingModel: cfg.OpenAI.EmbeddingModel,
			}
		}
		if cfg.Anthropic != nil {
			p.Anthropic = &anthropicTable{
				APIKey:  cfg.Anthropic.APIKey,
				BaseURL: cfg.Anthropic.BaseURL,
				Model:   cfg.Anthropic.Model,
			}
		}
		f.Providers = append(f.Providers, p)
	}

	return f
}
