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
//   - RecordManager: Durable ledger of content keys already indexed
//   - VectorStore: Embedded chunk storage and similarity search
//   - EmbeddingService: Generates vector embeddings
//   - TextExtractor: Turns a PDF into page segments
//   - Chunker: Splits segments into bounded chunks
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - LLMService: Answer generation and query expansion. Without it, only retrieval is available.
//   - BibliographyParser: Without it, bibliography files are ignored.
//   - PromptStore: Without it, built-in prompts are used.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or postprocessor package
package driven
