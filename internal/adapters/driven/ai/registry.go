// Package ai builds embedding and LLM services from settings.
//
// Providers are registered by name in a Registry; the default registry knows
// ollama, openai, anthropic (LLM only) and the offline hash embedder.
// Services are wrapped with a token-bucket limiter when a rate limit is set.
package ai

import (
	"fmt"
	"slices"
	"sync"

	hashembed "github.com/custodia-labs/paperchat/internal/adapters/driven/embedding/hash"
	ollamaembed "github.com/custodia-labs/paperchat/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/paperchat/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/paperchat/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/custodia-labs/paperchat/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/paperchat/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/paperchat/internal/core/domain"
	"github.com/custodia-labs/paperchat/internal/core/ports/driven"
)

// EmbeddingBuilder creates an embedding service from settings.
type EmbeddingBuilder func(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error)

// LLMBuilder creates an LLM service from settings.
type LLMBuilder func(settings *domain.LLMSettings) (driven.LLMService, error)

// Registry maps provider names to service builders.
type Registry struct {
	mu        sync.RWMutex
	embedders map[domain.AIProvider]EmbeddingBuilder
	llms      map[domain.AIProvider]LLMBuilder
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		embedders: make(map[domain.AIProvider]EmbeddingBuilder),
		llms:      make(map[domain.AIProvider]LLMBuilder),
	}
}

// DefaultRegistry returns a registry with every built-in provider.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.RegisterEmbedding(domain.AIProviderOllama, createOllamaEmbedding)
	r.RegisterEmbedding(domain.AIProviderOpenAI, createOpenAIEmbedding)
	r.RegisterEmbedding(domain.AIProviderHash, createHashEmbedding)
	r.RegisterLLM(domain.AIProviderOllama, createOllamaLLM)
	r.RegisterLLM(domain.AIProviderOpenAI, createOpenAILLM)
	r.RegisterLLM(domain.AIProviderAnthropic, createAnthropicLLM)
	return r
}

// RegisterEmbedding adds or replaces an embedding builder.
func (r *Registry) RegisterEmbedding(provider domain.AIProvider, b EmbeddingBuilder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.embedders[provider] = b
}

// RegisterLLM adds or replaces an LLM builder.
func (r *Registry) RegisterLLM(provider domain.AIProvider, b LLMBuilder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.llms[provider] = b
}

// EmbeddingProviders returns registered embedding providers, sorted.
func (r *Registry) EmbeddingProviders() []domain.AIProvider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.AIProvider, 0, len(r.embedders))
	for p := range r.embedders {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}

// LLMProviders returns registered LLM providers, sorted.
func (r *Registry) LLMProviders() []domain.AIProvider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.AIProvider, 0, len(r.llms))
	for p := range r.llms {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}

// CreateEmbeddingService builds the embedding service for settings.
// Returns nil, nil if the provider is not configured.
func (r *Registry) CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	r.mu.RLock()
	build, ok := r.embedders[settings.Provider]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: embedding provider %q", domain.ErrUnsupportedType, settings.Provider)
	}

	svc, err := build(settings)
	if err != nil {
		return nil, fmt.Errorf("create %s embedding service: %w", settings.Provider, err)
	}
	return WithEmbeddingRateLimit(svc, settings.RateLimit), nil
}

// CreateLLMService builds the LLM service for settings.
// Returns nil, nil if the provider is not configured.
func (r *Registry) CreateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	r.mu.RLock()
	build, ok := r.llms[settings.Provider]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: LLM provider %q", domain.ErrUnsupportedType, settings.Provider)
	}

	svc, err := build(settings)
	if err != nil {
		return nil, fmt.Errorf("create %s LLM service: %w", settings.Provider, err)
	}
	return WithLLMRateLimit(svc, settings.RateLimit), nil
}

func createOllamaEmbedding(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	return ollamaembed.NewEmbeddingService(ollamaembed.Config{
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: settings.Dimensions,
	}), nil
}

func createOpenAIEmbedding(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	return openaiembed.NewEmbeddingService(openaiembed.Config{
		APIKey:     settings.APIKey,
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: settings.Dimensions,
	})
}

func createHashEmbedding(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	dims := settings.Dimensions
	if dims == 0 {
		dims = domain.EmbeddingDimensions()[settings.Model]
	}
	return hashembed.NewEmbeddingService(dims), nil
}

func createOllamaLLM(settings *domain.LLMSettings) (driven.LLMService, error) {
	return ollamallm.NewLLMService(ollamallm.LLMConfig{
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
	}), nil
}

func createOpenAILLM(settings *domain.LLMSettings) (driven.LLMService, error) {
	return openaillm.NewLLMService(openaillm.LLMConfig{
		APIKey:  settings.APIKey,
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
	})
}

func createAnthropicLLM(settings *domain.LLMSettings) (driven.LLMService, error) {
	return anthropicllm.NewLLMService(anthropicllm.Config{
		APIKey:  settings.APIKey,
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
	})
}
