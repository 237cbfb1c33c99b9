package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigStore_Seeded(t *testing.T) {
	store := NewConfigStore(map[string]any{
		"retrieval.k":     int64(6),
		"llm.temperature": 0.5,
	})

	assert.Equal(t, 6, store.GetInt("retrieval.k"))
	assert.InDelta(t, 0.5, store.GetFloat("llm.temperature"), 1e-9)
	assert.Equal(t, []string{"llm.temperature", "retrieval.k"}, store.Keys())
}

func TestConfigStore_SetAndGet(t *testing.T) {
	store := NewConfigStore()

	require.NoError(t, store.Set("embedding.provider", "openai"))
	require.NoError(t, store.Set("retrieval.multi_query", true))
	require.NoError(t, store.Set("ingest.exclude", []any{"a/**", 3}))

	val, ok := store.Get("embedding.provider")
	assert.True(t, ok)
	assert.Equal(t, "openai", val)
	assert.Equal(t, "openai", store.GetString("embedding.provider"))
	assert.True(t, store.GetBool("retrieval.multi_query"))
	assert.Equal(t, []string{"a/**"}, store.GetStringSlice("ingest.exclude"))
}

func TestConfigStore_Defaults(t *testing.T) {
	store := NewConfigStore()

	_, ok := store.Get("missing")
	assert.False(t, ok)
	assert.Empty(t, store.GetString("missing"))
	assert.Zero(t, store.GetInt("missing"))
	assert.Zero(t, store.GetFloat("missing"))
	assert.False(t, store.GetBool("missing"))
	assert.Nil(t, store.GetStringSlice("missing"))
	assert.NoError(t, store.Save())
	assert.NoError(t, store.Load())
	assert.Equal(t, ":memory:", store.Path())
}

func TestConfigStore_SeededNested(t *testing.T) {
	store := NewConfigStore(map[string]any{
		"chunker": map[string]any{"chunk_size": int64(300)},
	})

	assert.Equal(t, 300, store.GetInt("chunker.chunk_size"))
	_, ok := store.Get("chunker")
	assert.False(t, ok)
}
