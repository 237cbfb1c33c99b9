package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/paperchat/internal/core/domain"
)

func setupVectorStore(t *testing.T) (*VectorStore, string, func()) {
	t.Helper()

	dir, cleanup := setupTestDir(t)
	path := filepath.Join(dir, "out_data", "vectors.db")
	s := NewVectorStore(path, &letterEmbedder{})

	return s, path, func() {
		assert.NoError(t, s.Close())
		cleanup()
	}
}

func chunk(source, content string) domain.Chunk {
	return domain.Chunk{
		Content:  content,
		Metadata: domain.Metadata{domain.MetaSource: source, domain.MetaPage: 1},
	}
}

func TestVectorStore_LazyOpen(t *testing.T) {
	s, path, cleanup := setupVectorStore(t)
	defer cleanup()

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "nothing is created before first use")

	n, err := s.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	_, err = os.Stat(path)
	assert.NoError(t, err)

	// Open is idempotent.
	require.NoError(t, s.Open(context.Background()))
}

func TestVectorStore_AddChunksAndSearch(t *testing.T) {
	s, _, cleanup := setupVectorStore(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, s.AddChunks(ctx, []domain.Chunk{
		chunk("a.pdf", "vectors vectors vectors"),
		chunk("b.pdf", "zebra quartz"),
		chunk("c.pdf", "vector spaces"),
	}))

	hits, err := s.SimilaritySearch(ctx, "vectors", 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "a.pdf", hits[0].Chunk.Metadata.Source())
	assert.Equal(t, "c.pdf", hits[1].Chunk.Metadata.Source())
	assert.LessOrEqual(t, hits[0].Distance, hits[1].Distance)

	page, ok := hits[0].Chunk.Metadata.Page()
	assert.True(t, ok)
	assert.Equal(t, 1, page)
}

func TestVectorStore_TiesKeepInsertionOrder(t *testing.T) {
	s, _, cleanup := setupVectorStore(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, s.AddChunks(ctx, []domain.Chunk{
		chunk("first.pdf", "same text"),
		chunk("second.pdf", "same text"),
	}))

	hits, err := s.SimilaritySearch(ctx, "same text", 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "first.pdf", hits[0].Chunk.Metadata.Source())
	assert.Equal(t, "second.pdf", hits[1].Chunk.Metadata.Source())
}

func TestVectorStore_EmptyInputs(t *testing.T) {
	s, _, cleanup := setupVectorStore(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, s.AddChunks(ctx, nil))
	require.NoError(t, s.Add(ctx, nil))

	hits, err := s.SimilaritySearch(ctx, "anything", 4)
	require.NoError(t, err)
	assert.Empty(t, hits)

	hits, err = s.SimilaritySearch(ctx, "anything", 0)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestVectorStore_SkipsMismatchedDimensions(t *testing.T) {
	s, _, cleanup := setupVectorStore(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, []domain.VectorEntry{
		{Embedding: []float32{1, 2, 3}, Chunk: chunk("old.pdf", "old model")},
	}))
	require.NoError(t, s.AddChunks(ctx, []domain.Chunk{chunk("new.pdf", "new model")}))

	hits, err := s.SimilaritySearch(ctx, "model", 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "new.pdf", hits[0].Chunk.Metadata.Source())
}

func TestVectorStore_PersistsAcrossReopen(t *testing.T) {
	s, path, cleanup := setupVectorStore(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, s.AddChunks(ctx, []domain.Chunk{chunk("a.pdf", "persisted")}))
	require.NoError(t, s.Close())

	reopened := NewVectorStore(path, &letterEmbedder{})
	defer reopened.Close()

	n, err := reopened.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestVectorStore_RecoversFromCorruption(t *testing.T) {
	dir, cleanup := setupTestDir(t)
	defer cleanup()
	ctx := context.Background()

	path := filepath.Join(dir, "vectors.db")
	garbage := strings.Repeat("this is not a sqlite database ", 200)
	require.NoError(t, os.WriteFile(path, []byte(garbage), 0600))

	s := NewVectorStore(path, &letterEmbedder{})
	defer s.Close()

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "store restarts empty")

	matches, err := filepath.Glob(path + ".corrupt-*")
	require.NoError(t, err)
	assert.Len(t, matches, 1, "damaged file is kept aside")

	require.NoError(t, s.AddChunks(ctx, []domain.Chunk{chunk("a.pdf", "fresh")}))
	n, err = s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestVectorStore_HasSource(t *testing.T) {
	s, _, cleanup := setupVectorStore(t)
	defer cleanup()
	ctx := context.Background()

	has, err := s.HasSource(ctx, "a.pdf")
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, s.AddChunks(ctx, []domain.Chunk{chunk("a.pdf", "alpha")}))

	has, err = s.HasSource(ctx, "a.pdf")
	require.NoError(t, err)
	assert.True(t, has)

	has, err = s.HasSource(ctx, "b.pdf")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestVectorStore_HasSourceAfterCorruption(t *testing.T) {
	s, path, cleanup := setupVectorStore(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, s.AddChunks(ctx, []domain.Chunk{chunk("a.pdf", "alpha")}))
	require.NoError(t, s.Close())
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("garbage ", 512)), 0600))

	has, err := s.HasSource(ctx, "a.pdf")
	require.NoError(t, err)
	assert.False(t, has, "vectors are gone once the store is reinitialised")
}

func TestVectorStore_Unavailable(t *testing.T) {
	dir, cleanup := setupTestDir(t)
	defer cleanup()

	// A directory cannot be opened as a database and is never quarantined.
	s := NewVectorStore(dir, &letterEmbedder{})
	err := s.Open(context.Background())
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
}

func TestVectorStore_NoEmbedder(t *testing.T) {
	dir, cleanup := setupTestDir(t)
	defer cleanup()

	s := NewVectorStore(filepath.Join(dir, "v.db"), nil)
	defer s.Close()

	err := s.AddChunks(context.Background(), []domain.Chunk{chunk("a.pdf", "x")})
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
}

func TestVectorStore_AsRetriever(t *testing.T) {
	s, _, cleanup := setupVectorStore(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, s.AddChunks(ctx, []domain.Chunk{
		chunk("a.pdf", "alpha"),
		chunk("b.pdf", "beta"),
		chunk("c.pdf", "gamma"),
	}))

	chunks, err := s.AsRetriever(2).Retrieve(ctx, "alpha")
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "a.pdf", chunks[0].Metadata.Source())
}
