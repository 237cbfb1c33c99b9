// Package postprocessors builds the chunking pipeline: a chunker followed by
// chunk post-processors.
package postprocessors

import (
	"context"
	"fmt"

	"github.com/custodia-labs/paperchat/internal/core/domain"
	"github.com/custodia-labs/paperchat/internal/core/ports/driven"
)

// Ensure Pipeline implements the interface.
var _ driven.ChunkPipeline = (*Pipeline)(nil)

// Pipeline runs a chunker and then each processor in order.
type Pipeline struct {
	chunker    driven.Chunker
	processors []driven.PostProcessor
}

// NewPipeline creates a new processing pipeline with the given processors.
// Processors are executed in the order provided.
func NewPipeline(chunker driven.Chunker, processors ...driven.PostProcessor) *Pipeline {
	return &Pipeline{
		chunker:    chunker,
		processors: processors,
	}
}

// Process splits the segments and runs the chunks through all processors.
func (p *Pipeline) Process(ctx context.Context, segments []domain.Segment) ([]domain.Chunk, error) {
	if p.chunker == nil {
		return nil, fmt.Errorf("pipeline has no chunker")
	}

	chunks, err := p.chunker.Split(ctx, segments)
	if err != nil {
		return nil, fmt.Errorf("chunker %s: %w", p.chunker.Name(), err)
	}

	for _, processor := range p.processors {
		chunks, err = processor.Process(ctx, chunks)
		if err != nil {
			return nil, fmt.Errorf("processor %s: %w", processor.Name(), err)
		}
	}

	return chunks, nil
}

// Add appends a processor to the pipeline.
func (p *Pipeline) Add(processor driven.PostProcessor) {
	p.processors = append(p.processors, processor)
}

// Len returns the number of processors in the pipeline.
func (p *Pipeline) Len() int {
	return len(p.processors)
}

// Chunker returns the pipeline's chunker.
func (p *Pipeline) Chunker() driven.Chunker {
	return p.chunker
}
