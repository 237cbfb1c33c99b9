package chunker

import (
	"context"
	"strings"

	"github.com/custodia-labs/paperchat/internal/core/domain"
	"github.com/custodia-labs/paperchat/internal/core/ports/driven"
)

// Ensure Fixed implements the interface.
var _ driven.Chunker = (*Fixed)(nil)

// Fixed splits text into fixed-size character windows.
type Fixed struct {
	chunkSize int
	overlap   int
}

// NewFixed creates a fixed-size splitter.
func NewFixed(opts ...Option) *Fixed {
	c := newConfig(opts)
	return &Fixed{
		chunkSize: c.chunkSize,
		overlap:   c.overlap,
	}
}

// Name returns the chunker name.
func (f *Fixed) Name() string {
	return "fixed"
}

// Split chunks every segment in order.
func (f *Fixed) Split(ctx context.Context, segments []domain.Segment) ([]domain.Chunk, error) {
	return splitSegments(ctx, segments, f.SplitText)
}

// SplitText splits a single text into windows of chunkSize characters,
// each starting chunkSize-overlap characters after the previous one.
func (f *Fixed) SplitText(text string) []string {
	runes := []rune(text)
	step := f.chunkSize - f.overlap

	var out []string
	for start := 0; start < len(runes); start += step {
		end := min(start+f.chunkSize, len(runes))
		if piece := strings.TrimSpace(string(runes[start:end])); piece != "" {
			out = append(out, piece)
		}
		if end == len(runes) {
			break
		}
	}
	return out
}
