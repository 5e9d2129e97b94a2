package mcp

import (
	"github.com/custodia-labs/libris/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// RAG provides ingestion, search and answer generation.
	RAG driving.RAGService

	// Jobs exposes ingestion job tracking.
	Jobs driving.JobService

	// Providers reports configured generation providers.
	Providers driving.ProviderService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.RAG == nil {
		return ErrMissingRAGService
	}
	// Jobs and Providers degrade the surface rather than blocking startup.
	return nil
}
