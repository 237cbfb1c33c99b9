package vecmath

import (
	"context"

	"github.com/custodia-labs/paperchat/internal/core/domain"
	"github.com/custodia-labs/paperchat/internal/core/ports/driven"
)

// retriever adapts a VectorStore to driven.Retriever.
type retriever struct {
	store driven.VectorStore
	k     int
}

// NewRetriever adapts any vector store to a Retriever returning k chunks.
func NewRetriever(store driven.VectorStore, k int) driven.Retriever {
	return &retriever{store: store, k: k}
}

func (r *retriever) Retrieve(ctx context.Context, query string) ([]domain.Chunk, error) {
	hits, err := r.store.SimilaritySearch(ctx, query, r.k)
	if err != nil {
		return nil, err
	}
	chunks := make([]domain.Chunk, len(hits))
	for i, h := range hits {
		chunks[i] = h.Chunk
	}
	return chunks, nil
}
