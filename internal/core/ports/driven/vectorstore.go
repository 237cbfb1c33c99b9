package driven

import (
	"context"

	"github.com/custodia-labs/paperchat/internal/core/domain"
)

// VectorStore persists embedded chunks and answers nearest-neighbour queries.
//
// Stores initialise lazily on first use. A store whose persisted state cannot
// be read logs domain.ErrStoreCorrupt and reinitialises empty; if that fails
// every operation returns domain.ErrStorageUnavailable.
type VectorStore interface {
	// Open loads or creates the store. Safe to call repeatedly.
	Open(ctx context.Context) error

	// Add appends pre-embedded entries.
	Add(ctx context.Context, entries []domain.VectorEntry) error

	// AddChunks embeds chunks with the store's embedder and appends them.
	// Zero chunks is a no-op.
	AddChunks(ctx context.Context, chunks []domain.Chunk) error

	// SimilaritySearch returns up to k chunks nearest to text, ordered by
	// ascending distance with ties in insertion order.
	SimilaritySearch(ctx context.Context, text string, k int) ([]domain.ScoredChunk, error)

	// AsRetriever exposes the store as a Retriever returning k results.
	AsRetriever(k int) Retriever

	// Count returns the number of stored entries.
	Count(ctx context.Context) (int, error)

	// HasSource reports whether any entry belongs to source.
	HasSource(ctx context.Context, source string) (bool, error)

	// Close releases resources.
	Close() error
}

// Retriever fetches chunks relevant to a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]domain.Chunk, error)
}
