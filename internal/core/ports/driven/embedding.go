// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/custodia-labs/paperchat/internal/core/domain"
)

// EmbedBatchSize bounds the texts sent to an EmbeddingService per request.
const EmbedBatchSize = 64

// EmbeddingService generates vector embeddings from text.
//
// Note: This is separate from VectorStore which stores and searches vectors.
// EmbeddingService generates vectors; VectorStore persists them.
//
// Implementations include:
//   - OpenAI (text-embedding-3-small, text-embedding-3-large)
//   - Ollama (nomic-embed-text, all-minilm)
//   - Feature hashing (offline, deterministic)
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts.
	// The result has one vector per input, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size (e.g., 384, 1536, 3072).
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// EmbedChunks embeds the chunks at idx in batches of EmbedBatchSize and pairs
// each with a fresh ID. Entries come back in idx order. A nil idx embeds
// every chunk.
func EmbedChunks(
	ctx context.Context, embedder EmbeddingService, chunks []domain.Chunk, idx []int,
) ([]domain.VectorEntry, error) {
	if idx == nil {
		idx = make([]int, len(chunks))
		for i := range idx {
			idx[i] = i
		}
	}

	entries := make([]domain.VectorEntry, 0, len(idx))
	for start := 0; start < len(idx); start += EmbedBatchSize {
		batch := idx[start:min(start+EmbedBatchSize, len(idx))]

		texts := make([]string, len(batch))
		for j, i := range batch {
			texts[j] = chunks[i].Content
		}

		vectors, err := embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed chunks: %w", err)
		}
		if len(vectors) != len(texts) {
			return nil, fmt.Errorf("%w: embedder returned %d vectors for %d chunks",
				domain.ErrProviderUnavailable, len(vectors), len(texts))
		}

		for j, i := range batch {
			entries = append(entries, domain.VectorEntry{
				ID:        uuid.NewString(),
				Embedding: vectors[j],
				Chunk:     chunks[i],
			})
		}
	}
	return entries, nil
}
