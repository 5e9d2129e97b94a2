// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// RAGService runs the ingestion pipeline and answers queries,
// JobTracker tracks asynchronous ingestion jobs, and ProviderManager
// owns the active generation backend.
package services
