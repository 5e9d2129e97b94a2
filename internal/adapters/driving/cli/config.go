package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/libris/internal/core/domain"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `View and edit the libris configuration file.

Provider credentials and endpoints, chunking parameters, rate limits and
job settings all live in the TOML file reported by "config show".`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configDefaultProviderCmd = &cobra.Command{
	Use:   "default-provider [provider-id]",
	Short: "Set the provider tried first at startup",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigDefaultProvider,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configDefaultProviderCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if settingsStore == nil {
		return errors.New("settings store not configured")
	}

	settings, err := settingsStore.Load()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	cmd.Println("Current Configuration")
	cmd.Println("=====================")
	cmd.Println()
	cmd.Printf("File: %s\n", settingsStore.Path())
	cmd.Println()

	cmd.Println("[Providers]")
	if len(settings.Providers) == 0 {
		cmd.Println("  (none configured)")
	}
	for _, p := range settings.Providers {
		marker := " "
		if p.ID == settings.DefaultProvider {
			marker = "*"
		}
		status := "configured"
		if !p.IsConfigured() {
			status = "not configured"
		}
		if !p.Enabled {
			status = "disabled"
		}
		cmd.Printf("  %s %s (%s) - %s\n", marker, p.ID, p.Type.Description(), status)
		printProviderDetails(cmd, p)
	}
	cmd.Println()

	cmd.Println("[Chunking]")
	cmd.Printf("  Chunk size:    %d\n", settings.Chunking.ChunkSize)
	cmd.Printf("  Chunk overlap: %d\n", settings.Chunking.ChunkOverlap)
	cmd.Println()

	cmd.Println("[Rate limit]")
	cmd.Printf("  Requests/min:   %d\n", settings.RateLimit.RequestsPerMinute)
	cmd.Printf("  Max concurrent: %d\n", settings.RateLimit.MaxConcurrent)
	cmd.Println()

	cmd.Println("[Jobs]")
	cmd.Printf("  Workers:   %d\n", settings.Jobs.Workers)
	cmd.Printf("  Retention: %s\n", settings.Jobs.Retention)

	return nil
}

func printProviderDetails(cmd *cobra.Command, p domain.ProviderConfig) {
	switch p.Type {
	case domain.AIProviderOllama:
		if p.Ollama != nil {
			cmd.Printf("      Base URL: %s\n", p.Ollama.BaseURL)
			cmd.Printf("      Model: %s, Embedding: %s\n", p.Ollama.Model, p.Ollama.EmbeddingModel)
		}
	case domain.AIProviderOpenAI:
		if p.OpenAI != nil {
			cmd.Printf("      API Key: %s\n", maskAPIKey(p.OpenAI.APIKey))
			cmd.Printf("      Model: %s, Embedding: %s\n", p.OpenAI.Model, p.OpenAI.EmbeddingModel)
		}
	case domain.AIProviderAnthropic:
		if p.Anthropic != nil {
			cmd.Printf("      API Key: %s\n", maskAPIKey(p.Anthropic.APIKey))
			cmd.Printf("      Model: %s\n", p.Anthropic.Model)
		}
	}
}

func runConfigDefaultProvider(cmd *cobra.Command, args []string) error {
	if settingsStore == nil {
		return errors.New("settings store not configured")
	}

	id := args[0]
	settings, err := settingsStore.Load()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	if _, ok := settings.Provider(id); !ok {
		return fmt.Errorf("unknown provider %q: %w", id, domain.ErrNotFound)
	}

	settings.DefaultProvider = id
	if err := settingsStore.Save(settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	cmd.Printf("Default provider set to %s.\n", id)
	cmd.Println("Restart or run \"providers switch\" to change the running instance.")
	return nil
}

// maskAPIKey hides all but the last four characters of a key.
func maskAPIKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	if len(key) <= 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}
