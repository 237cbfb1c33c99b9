package domain

import (
	"maps"
	"math"
	"strconv"
)

// Well-known metadata keys.
const (
	// MetaSource is the originating filename or identifier.
	MetaSource = "source"

	// MetaPage is the 1-based page number within the source.
	MetaPage = "page"

	// MetaDomain is the subject domain supplied at ingestion time.
	MetaDomain = "domain"
)

// Metadata holds provenance and bibliographic key-values for a chunk.
// Values are strings or numbers; a JSON round-trip turns ints into float64,
// so accessors accept both.
type Metadata map[string]any

// Clone returns a shallow copy. A nil map clones to an empty map.
func (m Metadata) Clone() Metadata {
	out := make(Metadata, len(m))
	maps.Copy(out, m)
	return out
}

// String returns the value for key formatted as a string.
func (m Metadata) String(key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		if v == math.Trunc(v) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

// Source returns the chunk's source identifier, or "" if absent.
func (m Metadata) Source() string {
	return m.String(MetaSource)
}

// Domain returns the subject domain, or "" if absent.
func (m Metadata) Domain() string {
	return m.String(MetaDomain)
}

// Page returns the page number and whether one is recorded.
func (m Metadata) Page() (int, bool) {
	switch v := m[MetaPage].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case string:
		n, err := strconv.Atoi(v)
		return n, err == nil
	default:
		return 0, false
	}
}

// Segment is the text of one page produced by a text extractor.
type Segment struct {
	// Text is the extracted page text.
	Text string

	// Metadata carries at least the source and page.
	Metadata Metadata
}

// Chunk is a bounded-length slice of a segment.
// Chunks are values; enrichment produces new chunks with cloned metadata.
type Chunk struct {
	// Content is the chunk text.
	Content string

	// Metadata is inherited from the parent segment and enriched at ingestion.
	Metadata Metadata
}

// WithMetadata returns a copy of the chunk whose metadata is extended with
// extra. Keys already present on the chunk are kept.
func (c Chunk) WithMetadata(extra map[string]string) Chunk {
	md := c.Metadata.Clone()
	for k, v := range extra {
		if _, exists := md[k]; exists {
			continue
		}
		md[k] = v
	}
	return Chunk{Content: c.Content, Metadata: md}
}
