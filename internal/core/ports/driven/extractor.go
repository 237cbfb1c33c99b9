package driven

import (
	"context"

	"github.com/custodia-labs/paperchat/internal/core/domain"
)

// TextExtractor turns a document file into page segments.
type TextExtractor interface {
	// Extract returns one segment per non-blank page, with source and page metadata.
	// Returns domain.ErrUnreadableDocument when the file cannot be parsed.
	Extract(ctx context.Context, path string) ([]domain.Segment, error)

	// SupportedExtensions returns the file extensions handled, e.g. ".pdf".
	SupportedExtensions() []string
}

// BibliographyParser parses BibTeX into entry key -> field -> value.
type BibliographyParser interface {
	// Parse never fails; malformed input yields an empty map.
	Parse(data []byte) domain.Bibliography
}
