// Package domain defines the core business entities for Libris.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: an ingested text document with metadata
//   - DocumentChunk: the unit of embedding and retrieval
//   - JobStatus: the observable lifecycle of an ingestion job
//   - SearchResult: a ranked retrieval hit
//   - ModelInfo: a model known to a provider
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
