package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/libris/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for Libris resources.
	uriScheme = "libris://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	// Static resource for library and job statistics.
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "stats",
		Name:        "stats",
		Description: "Document, chunk and ingestion job counts for the default collection",
		MIMEType:    "application/json",
	}, s.handleStatsResource)

	// Template for per-collection statistics.
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "collections/{collection}/stats",
		Name:        "collection-stats",
		Description: "Document and chunk counts for a specific collection",
		MIMEType:    "application/json",
	}, s.handleCollectionStatsResource)

	// Static resource for the provider inventory.
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "providers",
		Name:        "providers",
		Description: "Configured generation providers and their availability",
		MIMEType:    "application/json",
	}, s.handleProvidersResource)
}

// statsPayload is the JSON shape of the stats resources.
type statsPayload struct {
	Collection string           `json:"collection"`
	Documents  int              `json:"documents"`
	Chunks     int              `json:"chunks"`
	Jobs       *domain.JobStats `json:"jobs,omitempty"`
}

// handleStatsResource reports default-collection and job statistics.
func (s *Server) handleStatsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	payload, err := s.collectionStats(ctx, domain.DefaultCollection)
	if err != nil {
		return nil, err
	}

	if s.ports.Jobs != nil {
		jobStats, err := s.ports.Jobs.GetStats(ctx)
		if err != nil {
			return nil, fmt.Errorf("getting job stats: %w", err)
		}
		payload.Jobs = &jobStats
	}

	return jsonResource(req.Params.URI, payload)
}

// handleCollectionStatsResource reports statistics for one collection.
func (s *Server) handleCollectionStatsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	collection := extractCollection(req.Params.URI)
	if collection == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	payload, err := s.collectionStats(ctx, collection)
	if err != nil {
		return nil, err
	}

	return jsonResource(req.Params.URI, payload)
}

// handleProvidersResource lists configured providers.
func (s *Server) handleProvidersResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Providers == nil {
		return jsonResource(req.Params.URI, []struct{}{})
	}

	providers, err := s.ports.Providers.ListProviders(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing providers: %w", err)
	}

	type providerInfo struct {
		ID        string `json:"id"`
		Type      string `json:"type"`
		Enabled   bool   `json:"enabled"`
		Active    bool   `json:"active"`
		Available bool   `json:"available"`
	}

	infos := make([]providerInfo, len(providers))
	for i, p := range providers {
		infos[i] = providerInfo{
			ID:        p.ID,
			Type:      string(p.Type),
			Enabled:   p.Enabled,
			Active:    p.Active,
			Available: p.Available,
		}
	}

	return jsonResource(req.Params.URI, infos)
}

// collectionStats fetches one collection's counts as a payload.
func (s *Server) collectionStats(ctx context.Context, collection string) (statsPayload, error) {
	stats, err := s.ports.RAG.Stats(ctx, collection)
	if err != nil {
		return statsPayload{}, fmt.Errorf("getting collection stats: %w", err)
	}
	return statsPayload{
		Collection: stats.Collection,
		Documents:  stats.Documents,
		Chunks:     stats.Chunks,
	}, nil
}

// jsonResource marshals a payload into a single JSON resource result.
func jsonResource(uri string, payload any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling resource: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractCollection extracts the collection name from a URI like
// libris://collections/{collection}/stats.
func extractCollection(uri string) string {
	const prefix = uriScheme + "collections/"
	const suffix = "/stats"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	uri = strings.TrimPrefix(uri, prefix)
	if !strings.HasSuffix(uri, suffix) {
		return ""
	}

	return strings.TrimSuffix(uri, suffix)
}
