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
//   - ContentSource: Fetches raw document bytes by reference
//   - Extractor: Parses raw bytes into page text
//   - ExtractorRegistry: Selects appropriate extractor
//   - Chunker: Splits page text into overlapping chunks
//   - NamespaceStore: Per-document vector namespaces
//   - DocumentStore: Document registry persistence
//   - ChatStore: Append-only chat turn log
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil at construction time, but questions cannot be answered
// until they are configured:
//
//   - EmbeddingService: Generates document and query embeddings.
//   - LLMService: Text generation for query rewriting and answers.
//   - PromptStore: User-editable prompt templates. Defaults are used when nil.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or extractor package
package driven
