package driven

import (
	"context"

	"github.com/custodia-labs/paperchat/internal/core/domain"
)

// Chunker splits page segments into bounded chunks.
// Implementations are deterministic: equal input yields equal output.
type Chunker interface {
	// Name returns the chunker name for logging and configuration.
	Name() string

	// Split chunks every segment. Each chunk inherits a copy of its
	// segment's metadata. Returns domain.ErrInvalidInput for an empty
	// sequence or a blank segment.
	Split(ctx context.Context, segments []domain.Segment) ([]domain.Chunk, error)
}

// PostProcessor transforms chunks after splitting (filtering, normalising).
// PostProcessors are chained in a pipeline after the chunker.
type PostProcessor interface {
	// Name returns the processor name for logging and configuration.
	Name() string

	// Process receives chunks and returns the transformed chunks.
	Process(ctx context.Context, chunks []domain.Chunk) ([]domain.Chunk, error)
}

// ChunkPipeline runs a chunker followed by post-processors.
type ChunkPipeline interface {
	Process(ctx context.Context, segments []domain.Segment) ([]domain.Chunk, error)
}
