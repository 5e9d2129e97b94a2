// Package mcp provides an MCP (Model Context Protocol) server adapter for
// Libris. It lets AI assistants search the library, ask grounded questions
// and feed documents into the ingestion pipeline.
package mcp

import "errors"

// ErrMissingRAGService is returned when the RAG service is not provided.
var ErrMissingRAGService = errors.New("mcp: rag service is required")
