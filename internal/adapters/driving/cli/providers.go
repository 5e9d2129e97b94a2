package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "Manage generation providers",
	Long:  `List configured LLM providers, switch the active one, and inspect models.`,
	RunE:  runProvidersList,
}

var providersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured providers",
	RunE:  runProvidersList,
}

var providersSwitchCmd = &cobra.Command{
	Use:   "switch [provider-id]",
	Short: "Switch the active provider",
	Long: `Verifies the named provider configuration responds, then makes it
active. On failure the previous provider stays active.`,
	Args: cobra.ExactArgs(1),
	RunE: runProvidersSwitch,
}

var providersModelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the active provider's models",
	RunE:  runProvidersModels,
}

func init() {
	providersCmd.AddCommand(providersListCmd)
	providersCmd.AddCommand(providersSwitchCmd)
	providersCmd.AddCommand(providersModelsCmd)
	rootCmd.AddCommand(providersCmd)
}

func runProvidersList(cmd *cobra.Command, _ []string) error {
	if providerService == nil {
		return errors.New("provider service not configured")
	}

	providers, err := providerService.ListProviders(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list providers: %w", err)
	}

	if len(providers) == 0 {
		cmd.Println("No providers configured.")
		return nil
	}

	cmd.Println("Providers:")
	cmd.Println()
	for _, p := range providers {
		marker := " "
		if p.Active {
			marker = "*"
		}
		availability := "unavailable"
		if p.Available {
			availability = "available"
		}
		if !p.Enabled {
			availability = "disabled"
		}
		cmd.Printf("  %s %s (%s) - %s\n", marker, p.ID, p.Type.Description(), availability)
	}
	cmd.Println()
	cmd.Println("* = active")

	return nil
}

func runProvidersSwitch(cmd *cobra.Command, args []string) error {
	if providerService == nil {
		return errors.New("provider service not configured")
	}

	id := args[0]
	if err := providerService.SwitchProvider(cmd.Context(), id); err != nil {
		return fmt.Errorf("failed to switch provider: %w", err)
	}

	cmd.Printf("Active provider is now %s.\n", id)
	return nil
}

func runProvidersModels(cmd *cobra.Command, _ []string) error {
	if providerService == nil {
		return errors.New("provider service not configured")
	}

	models, err := providerService.ListModels(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list models: %w", err)
	}

	if len(models) == 0 {
		cmd.Println("No models reported.")
		return nil
	}

	cmd.Printf("Models (%s):\n\n", providerService.ActiveProvider())
	for _, m := range models {
		loaded := ""
		if m.Loaded {
			loaded = " [loaded]"
		}
		cmd.Printf("  %s%s\n", m.ID, loaded)
		if m.ContextWindow > 0 {
			cmd.Printf("    context: %d tokens\n", m.ContextWindow)
		}
	}

	return nil
}
