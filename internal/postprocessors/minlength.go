package postprocessors

import (
	"context"
	"unicode/utf8"

	"github.com/custodia-labs/paperchat/internal/core/domain"
	"github.com/custodia-labs/paperchat/internal/core/ports/driven"
	"github.com/custodia-labs/paperchat/internal/logger"
)

// Ensure MinLength implements the interface.
var _ driven.PostProcessor = (*MinLength)(nil)

// MinLength drops chunks shorter than a threshold. PDF extraction leaves
// stray page numbers and running headers that make poor retrieval units.
type MinLength struct {
	min int
}

// NewMinLength creates the filter.
func NewMinLength(minChars int) *MinLength {
	return &MinLength{min: minChars}
}

// Name returns the processor name.
func (m *MinLength) Name() string {
	return "min_length"
}

// Process returns the chunks at least min characters long.
func (m *MinLength) Process(_ context.Context, chunks []domain.Chunk) ([]domain.Chunk, error) {
	if m.min <= 0 {
		return chunks, nil
	}

	kept := make([]domain.Chunk, 0, len(chunks))
	for _, c := range chunks {
		if utf8.RuneCountInString(c.Content) >= m.min {
			kept = append(kept, c)
		}
	}
	if dropped := len(chunks) - len(kept); dropped > 0 {
		logger.Debug("min_length: dropped %d chunks shorter than %d characters", dropped, m.min)
	}
	return kept, nil
}
