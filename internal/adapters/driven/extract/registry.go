// Package extract selects a text extractor by file extension.
package extract

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/custodia-labs/paperchat/internal/adapters/driven/extract/pdf"
	"github.com/custodia-labs/paperchat/internal/adapters/driven/extract/text"
	"github.com/custodia-labs/paperchat/internal/core/domain"
	"github.com/custodia-labs/paperchat/internal/core/ports/driven"
)

// Ensure Registry implements the interface.
var _ driven.TextExtractor = (*Registry)(nil)

// Registry dispatches to the extractor registered for a file's extension.
type Registry struct {
	byExt map[string]driven.TextExtractor
}

// NewRegistry creates a registry from extractors. Later extractors win on
// overlapping extensions.
func NewRegistry(extractors ...driven.TextExtractor) *Registry {
	r := &Registry{byExt: make(map[string]driven.TextExtractor)}
	for _, e := range extractors {
		r.Register(e)
	}
	return r
}

// Default returns a registry with the pdftotext and plain-text extractors.
func Default() *Registry {
	return NewRegistry(pdf.New(), text.New())
}

// Register adds an extractor for each of its extensions.
func (r *Registry) Register(e driven.TextExtractor) {
	for _, ext := range e.SupportedExtensions() {
		r.byExt[strings.ToLower(ext)] = e
	}
}

// SupportedExtensions returns every registered extension, sorted.
func (r *Registry) SupportedExtensions() []string {
	exts := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		exts = append(exts, ext)
	}
	slices.Sort(exts)
	return exts
}

// Supports reports whether path has a registered extension.
func (r *Registry) Supports(path string) bool {
	_, ok := r.byExt[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Extract delegates to the extractor for path's extension.
func (r *Registry) Extract(ctx context.Context, path string) ([]domain.Segment, error) {
	ext := strings.ToLower(filepath.Ext(path))
	e, ok := r.byExt[ext]
	if !ok {
		return nil, fmt.Errorf("%w: no extractor for %q files", domain.ErrUnsupportedType, ext)
	}
	return e.Extract(ctx, path)
}
