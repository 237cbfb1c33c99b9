// Package text extracts plain-text and Markdown files as documents.
// Form feeds split pages the same way pdftotext output does, so text exports
// of papers keep their page numbers.
package text

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/custodia-labs/paperchat/internal/adapters/driven/extract/pdf"
	"github.com/custodia-labs/paperchat/internal/core/domain"
	"github.com/custodia-labs/paperchat/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.TextExtractor = (*Extractor)(nil)

// Extractor reads UTF-8 text files.
type Extractor struct{}

// New creates a text extractor.
func New() *Extractor {
	return &Extractor{}
}

// SupportedExtensions returns the file extensions handled.
func (e *Extractor) SupportedExtensions() []string {
	return []string{".txt", ".md"}
}

// Extract reads the file and returns one segment per form-feed separated page.
func (e *Extractor) Extract(ctx context.Context, path string) ([]domain.Segment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrUnreadableDocument, err)
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: %s is not valid UTF-8", domain.ErrUnreadableDocument, filepath.Base(path))
	}

	segments := pdf.SplitPages(string(data), filepath.Base(path))
	if len(segments) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", domain.ErrUnreadableDocument, filepath.Base(path))
	}
	return segments, nil
}
