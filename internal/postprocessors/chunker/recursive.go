package chunker

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/paperchat/internal/core/domain"
	"github.com/custodia-labs/paperchat/internal/core/ports/driven"
)

// Ensure Recursive implements the interface.
var _ driven.Chunker = (*Recursive)(nil)

// DefaultSeparators are tried in order: paragraph, line, sentence, word, character.
var DefaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// Recursive splits text at the coarsest separator that occurs in it, recursing
// into pieces that are still too long, then merges adjacent pieces up to the
// chunk size carrying overlap characters of trailing context forward.
type Recursive struct {
	chunkSize  int
	overlap    int
	separators []string
}

// NewRecursive creates a recursive splitter.
func NewRecursive(opts ...Option) *Recursive {
	c := newConfig(opts)
	return &Recursive{
		chunkSize:  c.chunkSize,
		overlap:    c.overlap,
		separators: DefaultSeparators,
	}
}

// Name returns the chunker name.
func (r *Recursive) Name() string {
	return "recursive"
}

// ChunkSize returns the configured chunk size.
func (r *Recursive) ChunkSize() int {
	return r.chunkSize
}

// Overlap returns the configured overlap.
func (r *Recursive) Overlap() int {
	return r.overlap
}

// Split chunks every segment in order.
func (r *Recursive) Split(ctx context.Context, segments []domain.Segment) ([]domain.Chunk, error) {
	return splitSegments(ctx, segments, r.SplitText)
}

// SplitText splits a single text.
func (r *Recursive) SplitText(text string) []string {
	return r.split(text, r.separators)
}

func (r *Recursive) split(text string, separators []string) []string {
	separator := separators[len(separators)-1]
	var remaining []string
	for i, s := range separators {
		if s == "" {
			separator = s
			break
		}
		if strings.Contains(text, s) {
			separator = s
			remaining = separators[i+1:]
			break
		}
	}

	var final []string
	var good []string
	for _, piece := range splitKeepingSeparator(text, separator) {
		if utf8.RuneCountInString(piece) < r.chunkSize {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			final = append(final, r.merge(good)...)
			good = nil
		}
		if len(remaining) == 0 {
			final = append(final, piece)
		} else {
			final = append(final, r.split(piece, remaining)...)
		}
	}
	if len(good) > 0 {
		final = append(final, r.merge(good)...)
	}
	return final
}

// merge joins pieces into chunks no longer than chunkSize where possible.
// Pieces already carry their separator, so they are concatenated directly.
func (r *Recursive) merge(pieces []string) []string {
	var docs []string
	var current []string
	total := 0

	for _, piece := range pieces {
		n := utf8.RuneCountInString(piece)
		if total+n > r.chunkSize && len(current) > 0 {
			if doc := strings.TrimSpace(strings.Join(current, "")); doc != "" {
				docs = append(docs, doc)
			}
			// Drop from the front until only the overlap remains and the
			// next piece fits.
			for total > r.overlap || (total+n > r.chunkSize && total > 0) {
				total -= utf8.RuneCountInString(current[0])
				current = current[1:]
			}
		}
		current = append(current, piece)
		total += n
	}

	if doc := strings.TrimSpace(strings.Join(current, "")); doc != "" {
		docs = append(docs, doc)
	}
	return docs
}

// splitKeepingSeparator splits text on sep, prefixing each piece after the
// first with the separator. An empty separator splits into characters.
func splitKeepingSeparator(text, sep string) []string {
	if sep == "" {
		out := make([]string, 0, utf8.RuneCountInString(text))
		for _, r := range text {
			out = append(out, string(r))
		}
		return out
	}

	parts := strings.Split(text, sep)
	out := make([]string, 0, len(parts))
	for i, p := range parts {
		if i > 0 {
			p = sep + p
		}
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// splitSegments applies splitText to every segment, giving each chunk a copy
// of its segment's metadata.
func splitSegments(ctx context.Context, segments []domain.Segment, splitText func(string) []string) ([]domain.Chunk, error) {
	if len(segments) == 0 {
		return nil, fmt.Errorf("%w: no segments to split", domain.ErrInvalidInput)
	}

	var chunks []domain.Chunk
	for i, seg := range segments {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if strings.TrimSpace(seg.Text) == "" {
			return nil, fmt.Errorf("%w: segment %d has no text", domain.ErrInvalidInput, i)
		}
		for _, text := range splitText(seg.Text) {
			chunks = append(chunks, domain.Chunk{
				Content:  text,
				Metadata: seg.Metadata.Clone(),
			})
		}
	}
	return chunks, nil
}
