package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/custodia-labs/paperchat/internal/adapters/driven/storage/vecmath"
	"github.com/custodia-labs/paperchat/internal/core/domain"
	"github.com/custodia-labs/paperchat/internal/core/ports/driven"
)

// Ensure VectorStore implements the interface.
var _ driven.VectorStore = (*VectorStore)(nil)

// VectorStore is an in-memory implementation of driven.VectorStore.
type VectorStore struct {
	embedder driven.EmbeddingService

	mu      sync.RWMutex
	entries []domain.VectorEntry
}

// NewVectorStore creates an empty in-memory vector store.
func NewVectorStore(embedder driven.EmbeddingService) *VectorStore {
	return &VectorStore{embedder: embedder}
}

// Open is a no-op; the store is always ready.
func (s *VectorStore) Open(context.Context) error {
	return nil
}

// Add appends entries.
func (s *VectorStore) Add(_ context.Context, entries []domain.VectorEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range entries {
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		e.Embedding = slices.Clone(e.Embedding)
		e.Chunk.Metadata = e.Chunk.Metadata.Clone()
		s.entries = append(s.entries, e)
	}
	return nil
}

// AddChunks embeds and appends chunks.
func (s *VectorStore) AddChunks(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if s.embedder == nil {
		return fmt.Errorf("%w: vector store has no embedder", domain.ErrProviderUnavailable)
	}

	entries, err := driven.EmbedChunks(ctx, s.embedder, chunks, nil)
	if err != nil {
		return err
	}
	return s.Add(ctx, entries)
}

// SimilaritySearch returns the k nearest chunks to text.
func (s *VectorStore) SimilaritySearch(ctx context.Context, text string, k int) ([]domain.ScoredChunk, error) {
	if k <= 0 {
		return nil, nil
	}
	if s.embedder == nil {
		return nil, fmt.Errorf("%w: vector store has no embedder", domain.ErrProviderUnavailable)
	}

	query, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	cands := make([]vecmath.Candidate, 0, len(s.entries))
	refs := make([]int, 0, len(s.entries))
	for i, e := range s.entries {
		if len(e.Embedding) != len(query) {
			continue
		}
		cands = append(cands, vecmath.Candidate{Seq: int64(i), Distance: vecmath.CosineDistance(query, e.Embedding)})
		refs = append(refs, i)
	}

	top := vecmath.TopK(cands, k)
	out := make([]domain.ScoredChunk, 0, len(top))
	for _, i := range top {
		e := s.entries[refs[i]]
		out = append(out, domain.ScoredChunk{
			Chunk:    domain.Chunk{Content: e.Chunk.Content, Metadata: e.Chunk.Metadata.Clone()},
			Distance: cands[i].Distance,
		})
	}
	return out, nil
}

// AsRetriever exposes the store as a retriever returning k chunks.
func (s *VectorStore) AsRetriever(k int) driven.Retriever {
	return vecmath.NewRetriever(s, k)
}

// Count returns the number of entries.
func (s *VectorStore) Count(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

// HasSource reports whether any entry belongs to source.
func (s *VectorStore) HasSource(_ context.Context, source string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.entries {
		if e.Chunk.Metadata.Source() == source {
			return true, nil
		}
	}
	return false, nil
}

// Close is a no-op.
func (s *VectorStore) Close() error {
	return nil
}
