package domain

import "slices"

// Bibliography maps BibTeX entry keys to their lower-cased fields.
type Bibliography map[string]map[string]string

// Entry picks the entry for a document: the one keyed by the file stem if
// present, otherwise the first key in sorted order. Returns nil when empty.
func (b Bibliography) Entry(stem string) map[string]string {
	if len(b) == 0 {
		return nil
	}
	if e, ok := b[stem]; ok {
		return e
	}
	keys := make([]string, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return b[keys[0]]
}
