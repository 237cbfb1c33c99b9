// Package bibliography parses BibTeX files into per-entry field maps that
// are attached to chunks as metadata.
package bibliography

import (
	"bytes"
	"strings"

	"github.com/nickng/bibtex"

	"github.com/custodia-labs/paperchat/internal/core/domain"
	"github.com/custodia-labs/paperchat/internal/core/ports/driven"
)

// Ensure Parser implements the interface.
var _ driven.BibliographyParser = (*Parser)(nil)

// Field names added to every parsed entry.
const (
	FieldEntryType = "entry_type"
	FieldCiteKey   = "cite_key"
)

// Parser parses BibTeX with github.com/nickng/bibtex.
type Parser struct{}

// NewParser creates a BibTeX parser.
func NewParser() *Parser {
	return &Parser{}
}

// Parse returns entry key -> field -> value. Field names are lower-cased.
// Malformed input yields an empty map.
func (p *Parser) Parse(data []byte) domain.Bibliography {
	out := make(domain.Bibliography)
	if len(bytes.TrimSpace(data)) == 0 {
		return out
	}

	parsed, err := bibtex.Parse(bytes.NewReader(data))
	if err != nil || parsed == nil {
		return out
	}

	for _, entry := range parsed.Entries {
		if entry == nil || entry.CiteName == "" {
			continue
		}
		fields := make(map[string]string, len(entry.Fields)+2)
		for name, value := range entry.Fields {
			if value == nil {
				continue
			}
			fields[strings.ToLower(name)] = normaliseSpace(value.String())
		}
		fields[FieldEntryType] = strings.ToLower(entry.Type)
		fields[FieldCiteKey] = entry.CiteName
		out[entry.CiteName] = fields
	}
	return out
}

// normaliseSpace collapses the line breaks and indentation BibTeX values carry.
func normaliseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
