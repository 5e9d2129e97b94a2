// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - VectorStore: Chunk and embedding storage with similarity search
//   - EmbeddingService: Generates vector embeddings
//   - RateLimiter: Throttles outbound provider calls
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - LLMService: Text generation. Without it, answer generation falls
//     back to the extractive mode and metadata suggestions are disabled.
//   - SettingsStore: Configuration persistence. Without it, built-in
//     defaults apply.
//   - PromptStore: User-editable prompt templates. Without it, embedded
//     defaults apply.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
