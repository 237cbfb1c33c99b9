package domain

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAIProvider_IsValid(t *testing.T) {
	tests := []struct {
		provider AIProvider
		expected bool
	}{
		{AIProviderOllama, true},
		{AIProviderOpenAI, true},
		{AIProviderAnthropic, true},
		{AIProviderHash, true},
		{AIProvider(""), false},
		{AIProvider("gemini"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.provider), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.provider.IsValid())
		})
	}
}

func TestAIProvider_Properties(t *testing.T) {
	assert.True(t, AIProviderOpenAI.RequiresAPIKey())
	assert.True(t, AIProviderAnthropic.RequiresAPIKey())
	assert.False(t, AIProviderOllama.RequiresAPIKey())
	assert.True(t, AIProviderHash.IsLocal())
	assert.Equal(t, unknownDescription, AIProvider("nope").Description())
}

func TestEmbeddingSettings_IsConfigured(t *testing.T) {
	tests := []struct {
		name     string
		settings EmbeddingSettings
		expected bool
	}{
		{"hash needs nothing", EmbeddingSettings{Provider: AIProviderHash}, true},
		{"ollama needs nothing", EmbeddingSettings{Provider: AIProviderOllama}, true},
		{"openai without key", EmbeddingSettings{Provider: AIProviderOpenAI}, false},
		{"openai with key", EmbeddingSettings{Provider: AIProviderOpenAI, APIKey: "k"}, true},
		{"anthropic cannot embed", EmbeddingSettings{Provider: AIProviderAnthropic, APIKey: "k"}, false},
		{"empty", EmbeddingSettings{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.settings.IsConfigured())
		})
	}
}

func TestLLMSettings_IsConfigured(t *testing.T) {
	assert.True(t, LLMSettings{Provider: AIProviderOllama}.IsConfigured())
	assert.False(t, LLMSettings{Provider: AIProviderAnthropic}.IsConfigured())
	assert.True(t, LLMSettings{Provider: AIProviderAnthropic, APIKey: "k"}.IsConfigured())
	assert.False(t, LLMSettings{Provider: AIProviderHash}.IsConfigured())
	assert.False(t, LLMSettings{}.IsConfigured())
}

func TestDefaultAppSettings(t *testing.T) {
	s := DefaultAppSettings()

	assert.Equal(t, 500, s.Chunker.ChunkSize)
	assert.Equal(t, 0, s.Chunker.ChunkOverlap)
	assert.Equal(t, "recursive", s.Chunker.Type)
	assert.Equal(t, CitationModeIDs, s.Retrieval.CitationMode)
	assert.Equal(t, DuplicatePolicyWriteAll, s.Ingest.DuplicatePolicy)
	assert.True(t, s.Embedding.IsConfigured())
	assert.False(t, s.LLM.IsConfigured())
	assert.Equal(t, 384, EmbeddingDimensions()[s.Embedding.Model])
}

func TestPolicies_IsValid(t *testing.T) {
	assert.True(t, CitationModePages.IsValid())
	assert.False(t, CitationMode("footnotes").IsValid())
	assert.True(t, DuplicatePolicyWriteNew.IsValid())
	assert.False(t, DuplicatePolicy("overwrite").IsValid())
}

func TestAppSettings_Paths(t *testing.T) {
	s := AppSettings{DataDir: "/data"}
	assert.Equal(t, filepath.Join("/data", "record_manager_cache.db"), s.LedgerPath())
	assert.Equal(t, filepath.Join("/data", "out_data", "vectors.db"), s.VectorStorePath())

	s.Ledger.Path = "/elsewhere/ledger.db"
	s.VectorStore.Path = "/elsewhere/vectors.db"
	assert.Equal(t, "/elsewhere/ledger.db", s.LedgerPath())
	assert.Equal(t, "/elsewhere/vectors.db", s.VectorStorePath())
}
