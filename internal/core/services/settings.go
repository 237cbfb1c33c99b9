package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/paperchat/internal/core/domain"
	"github.com/custodia-labs/paperchat/internal/core/ports/driven"
	"github.com/custodia-labs/paperchat/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyDataDir            = "data_dir"
	keyChunkerType        = "chunker.type"
	keyChunkSize          = "chunker.chunk_size"
	keyChunkOverlap       = "chunker.chunk_overlap"
	keyChunkMinLength     = "chunker.min_length"
	keyVectorStoreType    = "vector_store.type"
	keyVectorStorePath    = "vector_store.path"
	keyLedgerPath         = "ledger.path"
	keyLedgerNamespace    = "ledger.namespace"
	keyEmbedProvider      = "embedding.provider"
	keyEmbedModel         = "embedding.model"
	keyEmbedBaseURL       = "embedding.base_url"
	keyEmbedAPIKey        = "embedding.api_key"
	keyEmbedDimensions    = "embedding.dimensions"
	keyEmbedRateLimit     = "embedding.rate_limit"
	keyLLMProvider        = "llm.provider"
	keyLLMModel           = "llm.model"
	keyLLMBaseURL         = "llm.base_url"
	keyLLMAPIKey          = "llm.api_key"
	keyLLMRateLimit       = "llm.rate_limit"
	keyLLMTemperature     = "llm.temperature"
	keyRetrievalK         = "retrieval.k"
	keyMultiQuery         = "retrieval.multi_query"
	keyVariants           = "retrieval.variants"
	keyIncludeOriginal    = "retrieval.include_original"
	keyCitationMode       = "retrieval.citation_mode"
	keyMaxAttempts        = "retrieval.max_attempts"
	keyDuplicatePolicy    = "ingest.duplicate_policy"
	keyIngestConcurrency  = "ingest.concurrency"
	keyIngestPattern      = "ingest.pattern"
	keyIngestUploadDir    = "ingest.upload_dir"
	keyIngestExtractor    = "ingest.extractor"
	keyServerAddr         = "server.addr"
	keyQueryTimeoutSecs   = "query.timeout_secs"
	defaultOllamaEndpoint = "http://localhost:11434"
)

type settingKind int

const (
	kindString settingKind = iota
	kindInt
	kindFloat
	kindBool
)

// settingKinds lists every recognised key and how its value is parsed.
var settingKinds = map[string]settingKind{
	keyDataDir:           kindString,
	keyChunkerType:       kindString,
	keyChunkSize:         kindInt,
	keyChunkOverlap:      kindInt,
	keyChunkMinLength:    kindInt,
	keyVectorStoreType:   kindString,
	keyVectorStorePath:   kindString,
	keyLedgerPath:        kindString,
	keyLedgerNamespace:   kindString,
	keyEmbedProvider:     kindString,
	keyEmbedModel:        kindString,
	keyEmbedBaseURL:      kindString,
	keyEmbedAPIKey:       kindString,
	keyEmbedDimensions:   kindInt,
	keyEmbedRateLimit:    kindFloat,
	keyLLMProvider:       kindString,
	keyLLMModel:          kindString,
	keyLLMBaseURL:        kindString,
	keyLLMAPIKey:         kindString,
	keyLLMRateLimit:      kindFloat,
	keyLLMTemperature:    kindFloat,
	keyRetrievalK:        kindInt,
	keyMultiQuery:        kindBool,
	keyVariants:          kindInt,
	keyIncludeOriginal:   kindBool,
	keyCitationMode:      kindString,
	keyMaxAttempts:       kindInt,
	keyDuplicatePolicy:   kindString,
	keyIngestConcurrency: kindInt,
	keyIngestPattern:     kindString,
	keyIngestUploadDir:   kindString,
	keyIngestExtractor:   kindString,
	keyServerAddr:        kindString,
	keyQueryTimeoutSecs:  kindInt,
}

// Supported storage and chunker backends.
var (
	vectorStoreTypes = []string{"memory", "sqlite"}
	chunkerTypes     = []string{"fixed", "recursive"}
)

// EnvPrefix prefixes environment overrides, e.g. PAPERCHAT_LLM_MODEL.
const EnvPrefix = "PAPERCHAT_"

// SettingsService manages application settings.
//
// Values resolve in order: PAPERCHAT_* environment variables, the config
// store, then defaults. Provider API keys left empty are filled from
// OPENAI_API_KEY or ANTHROPIC_API_KEY.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
	getenv      func(string) string
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
		getenv:      os.Getenv,
	}
}

// WithEnv replaces the environment lookup. Tests pass a map-backed func.
func (s *SettingsService) WithEnv(getenv func(string) string) *SettingsService {
	s.getenv = getenv
	return s
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	d := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		DataDir: s.getString(keyDataDir, s.defaultDataDir()),
		Embedding: domain.EmbeddingSettings{
			Provider:   s.getProvider(keyEmbedProvider, d.Embedding.Provider),
			BaseURL:    s.getString(keyEmbedBaseURL, ""),
			APIKey:     s.getString(keyEmbedAPIKey, ""),
			Dimensions: s.getInt(keyEmbedDimensions, 0),
			RateLimit:  s.getFloat(keyEmbedRateLimit, 0),
		},
		LLM: domain.LLMSettings{
			Provider:    s.getProvider(keyLLMProvider, d.LLM.Provider),
			BaseURL:     s.getString(keyLLMBaseURL, ""),
			APIKey:      s.getString(keyLLMAPIKey, ""),
			Temperature: s.getFloat(keyLLMTemperature, d.LLM.Temperature),
			RateLimit:   s.getFloat(keyLLMRateLimit, 0),
		},
		Chunker: domain.ChunkerSettings{
			Type:         s.getString(keyChunkerType, d.Chunker.Type),
			ChunkSize:    s.getInt(keyChunkSize, d.Chunker.ChunkSize),
			ChunkOverlap: s.getInt(keyChunkOverlap, d.Chunker.ChunkOverlap),
			MinLength:    s.getInt(keyChunkMinLength, d.Chunker.MinLength),
		},
		VectorStore: domain.VectorStoreSettings{
			Type: s.getString(keyVectorStoreType, d.VectorStore.Type),
			Path: s.getString(keyVectorStorePath, ""),
		},
		Ledger: domain.LedgerSettings{
			Path:      s.getString(keyLedgerPath, ""),
			Namespace: s.getString(keyLedgerNamespace, d.Ledger.Namespace),
		},
		Retrieval: domain.RetrievalSettings{
			K:               s.getInt(keyRetrievalK, d.Retrieval.K),
			MultiQuery:      s.getBool(keyMultiQuery, d.Retrieval.MultiQuery),
			Variants:        s.getInt(keyVariants, d.Retrieval.Variants),
			IncludeOriginal: s.getBool(keyIncludeOriginal, d.Retrieval.IncludeOriginal),
			CitationMode:    domain.CitationMode(s.getString(keyCitationMode, string(d.Retrieval.CitationMode))),
			MaxAttempts:     s.getInt(keyMaxAttempts, d.Retrieval.MaxAttempts),
		},
		Ingest: domain.IngestSettings{
			DuplicatePolicy: domain.DuplicatePolicy(
				s.getString(keyDuplicatePolicy, string(d.Ingest.DuplicatePolicy))),
			Concurrency: s.getInt(keyIngestConcurrency, d.Ingest.Concurrency),
			Pattern:     s.getString(keyIngestPattern, d.Ingest.Pattern),
			UploadDir:   s.getString(keyIngestUploadDir, d.Ingest.UploadDir),
			Extractor:   s.getString(keyIngestExtractor, d.Ingest.Extractor),
		},
		Server: domain.ServerSettings{
			Addr:         s.getString(keyServerAddr, d.Server.Addr),
			QueryTimeout: d.Server.QueryTimeout,
		},
	}

	if secs := s.getInt(keyQueryTimeoutSecs, 0); secs > 0 {
		settings.Server.QueryTimeout = time.Duration(secs) * time.Second
	}

	settings.Embedding.Model = s.getString(keyEmbedModel, defaultModel(
		domain.DefaultEmbeddingModels(), settings.Embedding.Provider))
	settings.LLM.Model = s.getString(keyLLMModel, defaultModel(
		domain.DefaultLLMModels(), settings.LLM.Provider))

	if settings.Embedding.Provider == domain.AIProviderOllama && settings.Embedding.BaseURL == "" {
		settings.Embedding.BaseURL = defaultOllamaEndpoint
	}
	if settings.LLM.Provider == domain.AIProviderOllama && settings.LLM.BaseURL == "" {
		settings.LLM.BaseURL = defaultOllamaEndpoint
	}
	if settings.Embedding.APIKey == "" {
		settings.Embedding.APIKey = s.providerKey(settings.Embedding.Provider)
	}
	if settings.LLM.APIKey == "" {
		settings.LLM.APIKey = s.providerKey(settings.LLM.Provider)
	}

	return settings, nil
}

// Set updates a single setting. The value is parsed according to the key
// and checked before it is persisted.
func (s *SettingsService) Set(key, value string) error {
	kind, ok := settingKinds[key]
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}

	parsed, err := parseSetting(kind, value)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrInvalidInput, key, err)
	}
	if err := checkEnum(key, value); err != nil {
		return err
	}

	if err := s.configStore.Set(key, parsed); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !slices.Contains(domain.AllEmbeddingProviders(), provider) {
		return fmt.Errorf("%w: provider %s does not support embeddings", domain.ErrInvalidInput, provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" && s.providerKey(provider) == "" {
		return fmt.Errorf("%w: API key required for %s", domain.ErrInvalidInput, provider)
	}

	if model == "" {
		model = defaultModel(domain.DefaultEmbeddingModels(), provider)
	}

	return s.setAll(map[string]any{
		keyEmbedProvider: provider.String(),
		keyEmbedModel:    model,
		keyEmbedAPIKey:   apiKey,
		keyEmbedBaseURL:  s.baseURLFor(provider, keyEmbedBaseURL),
	})
}

// SetLLMProvider configures the LLM provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !slices.Contains(domain.AllLLMProviders(), provider) {
		return fmt.Errorf("%w: invalid LLM provider: %s", domain.ErrInvalidInput, provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" && s.providerKey(provider) == "" {
		return fmt.Errorf("%w: API key required for %s", domain.ErrInvalidInput, provider)
	}

	if model == "" {
		model = defaultModel(domain.DefaultLLMModels(), provider)
	}

	return s.setAll(map[string]any{
		keyLLMProvider: provider.String(),
		keyLLMModel:    model,
		keyLLMAPIKey:   apiKey,
		keyLLMBaseURL:  s.baseURLFor(provider, keyLLMBaseURL),
	})
}

// Validate checks the current settings are in range and, when a validator is
// configured, that the AI providers respond.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}
	if err := CheckSettings(settings); err != nil {
		return err
	}

	if s.aiValidator == nil {
		return nil
	}
	ctx := context.Background()
	if err := s.aiValidator.ValidateEmbedding(ctx, &settings.Embedding); err != nil {
		return fmt.Errorf("embedding provider: %w", err)
	}
	if err := s.aiValidator.ValidateLLM(ctx, &settings.LLM); err != nil {
		return fmt.Errorf("llm provider: %w", err)
	}
	return nil
}

// CheckSettings validates ranges and enumerations without contacting providers.
func CheckSettings(settings *domain.AppSettings) error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	c := settings.Chunker
	if !slices.Contains(chunkerTypes, c.Type) {
		add("chunker.type %q is not one of %s", c.Type, strings.Join(chunkerTypes, ", "))
	}
	if c.ChunkSize <= 0 {
		add("chunker.chunk_size must be positive")
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		add("chunker.chunk_overlap must be in [0, chunk_size)")
	}
	if c.MinLength < 0 {
		add("chunker.min_length must not be negative")
	}
	if !slices.Contains(vectorStoreTypes, settings.VectorStore.Type) {
		add("vector_store.type %q is not one of %s",
			settings.VectorStore.Type, strings.Join(vectorStoreTypes, ", "))
	}
	if settings.Ledger.Namespace == "" {
		add("ledger.namespace must not be empty")
	}
	if !settings.Embedding.IsConfigured() {
		add("embedding provider %q is not configured", settings.Embedding.Provider)
	}
	if settings.LLM.Provider != "" && !settings.LLM.IsConfigured() {
		add("llm provider %q is not configured", settings.LLM.Provider)
	}

	r := settings.Retrieval
	if r.K <= 0 {
		add("retrieval.k must be positive")
	}
	if r.Variants <= 0 {
		add("retrieval.variants must be positive")
	}
	if r.MaxAttempts <= 0 {
		add("retrieval.max_attempts must be positive")
	}
	if !r.CitationMode.IsValid() {
		add("retrieval.citation_mode %q is not ids or pages", r.CitationMode)
	}

	if !settings.Ingest.DuplicatePolicy.IsValid() {
		add("ingest.duplicate_policy %q is not write_all or write_new", settings.Ingest.DuplicatePolicy)
	}
	if settings.Ingest.Concurrency <= 0 {
		add("ingest.concurrency must be positive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrInvalidInput, strings.Join(problems, "; "))
	}
	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// Keys returns the recognised setting keys, sorted.
func (s *SettingsService) Keys() []string {
	keys := make([]string, 0, len(settingKinds))
	for k := range settingKinds {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// ConfigPath returns the backing config file.
func (s *SettingsService) ConfigPath() string {
	return s.configStore.Path()
}

func (s *SettingsService) setAll(values map[string]any) error {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if err := s.configStore.Set(k, values[k]); err != nil {
			return fmt.Errorf("save %s: %w", k, err)
		}
	}
	return nil
}

// baseURLFor keeps a configured endpoint for local providers and clears it
// for cloud providers.
func (s *SettingsService) baseURLFor(provider domain.AIProvider, key string) string {
	if provider != domain.AIProviderOllama {
		return ""
	}
	if existing := s.configStore.GetString(key); existing != "" {
		return existing
	}
	return defaultOllamaEndpoint
}

func (s *SettingsService) defaultDataDir() string {
	path := s.configStore.Path()
	if path == "" || strings.HasPrefix(path, ":") {
		return ""
	}
	return filepath.Join(filepath.Dir(path), "data")
}

func (s *SettingsService) providerKey(provider domain.AIProvider) string {
	switch provider {
	case domain.AIProviderOpenAI:
		return s.getenv("OPENAI_API_KEY")
	case domain.AIProviderAnthropic:
		return s.getenv("ANTHROPIC_API_KEY")
	default:
		return ""
	}
}

// Helper methods for reading config with environment overrides and defaults.

// envValue returns PAPERCHAT_<KEY> with dots upper-cased to underscores.
func (s *SettingsService) envValue(key string) (string, bool) {
	name := EnvPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
	v := s.getenv(name)
	return v, v != ""
}

func (s *SettingsService) getString(key, defaultVal string) string {
	if v, ok := s.envValue(key); ok {
		return v
	}
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if v, ok := s.envValue(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if v, ok := s.envValue(key); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if v, ok := s.envValue(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.getString(key, "")
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func defaultModel(models map[domain.AIProvider]string, provider domain.AIProvider) string {
	return models[provider]
}

func parseSetting(kind settingKind, value string) (any, error) {
	value = strings.TrimSpace(value)
	switch kind {
	case kindInt:
		return strconv.Atoi(value)
	case kindFloat:
		return strconv.ParseFloat(value, 64)
	case kindBool:
		return strconv.ParseBool(value)
	default:
		return value, nil
	}
}

// checkEnum rejects values outside a key's fixed set.
func checkEnum(key, value string) error {
	var ok bool
	switch key {
	case keyEmbedProvider:
		ok = slices.Contains(domain.AllEmbeddingProviders(), domain.AIProvider(value))
	case keyLLMProvider:
		ok = value == "" || slices.Contains(domain.AllLLMProviders(), domain.AIProvider(value))
	case keyChunkerType:
		ok = slices.Contains(chunkerTypes, value)
	case keyVectorStoreType:
		ok = slices.Contains(vectorStoreTypes, value)
	case keyCitationMode:
		ok = domain.CitationMode(value).IsValid()
	case keyDuplicatePolicy:
		ok = domain.DuplicatePolicy(value).IsValid()
	default:
		return nil
	}
	if !ok {
		return fmt.Errorf("%w: %s does not accept %q", domain.ErrInvalidInput, key, value)
	}
	return nil
}
