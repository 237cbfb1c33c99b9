package domain

import (
	"path/filepath"
	"time"
)

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"

	// AIProviderHash is the offline feature-hashing embedder.
	AIProviderHash AIProvider = "hash"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic, AIProviderHash:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama || p == AIProviderHash
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	case AIProviderHash:
		return "Feature hashing (offline)"
	default:
		return unknownDescription
	}
}

// CitationMode selects how answers are attributed to sources.
type CitationMode string

// Available citation modes.
const (
	// CitationModeIDs asks the model to return the identifiers of the documents it used.
	CitationModeIDs CitationMode = "ids"

	// CitationModePages attributes the answer to every retrieved page.
	CitationModePages CitationMode = "pages"
)

// IsValid returns true if the citation mode is recognised.
func (m CitationMode) IsValid() bool {
	return m == CitationModeIDs || m == CitationModePages
}

// DuplicatePolicy selects what is written when a document is partially new.
type DuplicatePolicy string

// Available duplicate policies.
const (
	// DuplicatePolicyWriteAll writes every chunk of a partially-new document.
	DuplicatePolicyWriteAll DuplicatePolicy = "write_all"

	// DuplicatePolicyWriteNew writes only chunks whose key was newly recorded.
	DuplicatePolicyWriteNew DuplicatePolicy = "write_new"
)

// IsValid returns true if the policy is recognised.
func (p DuplicatePolicy) IsValid() bool {
	return p == DuplicatePolicyWriteAll || p == DuplicatePolicyWriteNew
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// Dimensions overrides the model's vector size. Zero uses the model default.
	Dimensions int

	// RateLimit caps requests per second. Zero disables throttling.
	RateLimit float64
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() || e.Provider == AIProviderAnthropic {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI/Anthropic).
	APIKey string

	// Temperature controls randomness of answers.
	Temperature float64

	// RateLimit caps requests per second. Zero disables throttling.
	RateLimit float64
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() || l.Provider == AIProviderHash {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// ChunkerSettings configures text splitting.
type ChunkerSettings struct {
	// Type is the registered chunker name ("recursive" or "fixed").
	Type string

	// ChunkSize is the maximum chunk length in characters.
	ChunkSize int

	// ChunkOverlap is the trailing context carried into the next chunk.
	ChunkOverlap int

	// MinLength drops chunks shorter than this many characters. Zero keeps all.
	MinLength int
}

// VectorStoreSettings configures the vector store.
type VectorStoreSettings struct {
	// Type is "sqlite" or "memory".
	Type string

	// Path is the vector database file. Empty derives it from the data dir.
	Path string
}

// LedgerSettings configures the record manager.
type LedgerSettings struct {
	// Path is the ledger database file. Empty derives it from the data dir.
	Path string

	// Namespace scopes records so several stores can share a ledger.
	Namespace string
}

// RetrievalSettings configures retrieval and answering.
type RetrievalSettings struct {
	// K is the number of neighbours fetched per query.
	K int

	// MultiQuery enables LLM query expansion.
	MultiQuery bool

	// Variants is the number of rewritten queries requested.
	Variants int

	// IncludeOriginal searches the user's query alongside the variants.
	IncludeOriginal bool

	// CitationMode selects identifier or page citations.
	CitationMode CitationMode

	// MaxAttempts bounds regeneration after an unknown reference.
	MaxAttempts int
}

// IngestSettings configures ingestion.
type IngestSettings struct {
	// DuplicatePolicy applies to partially-new documents.
	DuplicatePolicy DuplicatePolicy

	// Concurrency bounds parallel documents in bulk ingestion.
	Concurrency int

	// Pattern selects files for bulk ingestion and watching.
	Pattern string

	// UploadDir holds uploaded files while they are processed.
	UploadDir string

	// Extractor is the PDF text backend ("pdftotext").
	Extractor string
}

// ServerSettings configures the HTTP API.
type ServerSettings struct {
	// Addr is the listen address.
	Addr string

	// QueryTimeout bounds a single query.
	QueryTimeout time.Duration
}

// AppSettings holds all application settings.
type AppSettings struct {
	// DataDir is the root for persisted state.
	DataDir string

	Embedding   EmbeddingSettings
	LLM         LLMSettings
	Chunker     ChunkerSettings
	VectorStore VectorStoreSettings
	Ledger      LedgerSettings
	Retrieval   RetrievalSettings
	Ingest      IngestSettings
	Server      ServerSettings
}

// LedgerPath returns the record manager database path.
func (s AppSettings) LedgerPath() string {
	if s.Ledger.Path != "" {
		return s.Ledger.Path
	}
	return filepath.Join(s.DataDir, DefaultLedgerFilename)
}

// VectorStorePath returns the vector database path.
func (s AppSettings) VectorStorePath() string {
	if s.VectorStore.Path != "" {
		return s.VectorStore.Path
	}
	return filepath.Join(s.DataDir, "out_data", DefaultVectorsFilename)
}

// Defaults for settings that are not configured.
const (
	DefaultChunkSize       = 500
	DefaultChunkOverlap    = 0
	DefaultNamespace       = "vectorstore/chunks"
	DefaultRetrievalK      = 4
	DefaultVariants        = 3
	DefaultMaxAttempts     = 2
	DefaultConcurrency     = 4
	DefaultIngestPattern   = "**/*.pdf"
	DefaultServerAddr      = "127.0.0.1:8000"
	DefaultQueryTimeout    = 120 * time.Second
	DefaultLedgerFilename  = "record_manager_cache.db"
	DefaultVectorsFilename = "vectors.db"
)

// DefaultAppSettings returns settings with sensible defaults.
// The offline hash embedder is used until a provider is configured,
// and the LLM is left unconfigured.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Embedding: EmbeddingSettings{
			Provider: AIProviderHash,
			Model:    DefaultEmbeddingModels()[AIProviderHash],
		},
		LLM: LLMSettings{},
		Chunker: ChunkerSettings{
			Type:         "recursive",
			ChunkSize:    DefaultChunkSize,
			ChunkOverlap: DefaultChunkOverlap,
		},
		VectorStore: VectorStoreSettings{Type: "sqlite"},
		Ledger:      LedgerSettings{Namespace: DefaultNamespace},
		Retrieval: RetrievalSettings{
			K:               DefaultRetrievalK,
			MultiQuery:      false,
			Variants:        DefaultVariants,
			IncludeOriginal: true,
			CitationMode:    CitationModeIDs,
			MaxAttempts:     DefaultMaxAttempts,
		},
		Ingest: IngestSettings{
			DuplicatePolicy: DuplicatePolicyWriteAll,
			Concurrency:     DefaultConcurrency,
			Pattern:         DefaultIngestPattern,
			Extractor:       "pdftotext",
		},
		Server: ServerSettings{
			Addr:         DefaultServerAddr,
			QueryTimeout: DefaultQueryTimeout,
		},
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderHash,
	}
}

// AllLLMProviders returns providers that support LLM operations.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAnthropic,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
		AIProviderHash:   "hash-384",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
		// Offline
		"hash-384": 384,
	}
}
