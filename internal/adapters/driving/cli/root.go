// Package cli implements the libris command-line interface. Commands are
// thin adapters over the driving ports; all orchestration lives in the
// core services.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/libris/internal/core/ports/driven"
	"github.com/custodia-labs/libris/internal/core/ports/driving"
	"github.com/custodia-labs/libris/internal/logger"
)

// version is set at build time via ldflags.
var version = "dev"

// Services injected by main before Execute runs. Commands nil-check the
// ones they need so a partially wired binary degrades per command.
var (
	ragService      driving.RAGService
	jobService      driving.JobService
	providerService driving.ProviderService
	settingsStore   driven.SettingsStore
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "libris",
	Short: "AI retrieval engine for your library",
	Long: `Libris indexes extracted document text into a vector store and answers
questions grounded on the indexed content.

Ingestion is asynchronous: "libris ingest" returns a job ID which can be
polled with "libris jobs status". Search and ask work against the indexed
collections immediately.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Services bundles everything the commands need.
type Services struct {
	RAG       driving.RAGService
	Jobs      driving.JobService
	Providers driving.ProviderService
	Settings  driven.SettingsStore
}

// SetServices injects the service implementations. Call before Execute.
func SetServices(s Services) {
	ragService = s.RAG
	jobService = s.Jobs
	providerService = s.Providers
	settingsStore = s.Settings
}

// SetVersion overrides the reported version string.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
