package domain

import "time"

// IndexRecord is one ledger entry: a content key recorded in a namespace.
// Records are never mutated once written.
type IndexRecord struct {
	Key       string    `json:"key"`
	Namespace string    `json:"namespace"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IndexResult summarises a ledger write.
type IndexResult struct {
	// NumAdded is the number of keys newly recorded.
	NumAdded int `json:"num_added"`

	// NumSkipped is the number of keys that were already present.
	NumSkipped int `json:"num_skipped"`

	// NumDeleted is always zero; no cleanup policy is applied.
	NumDeleted int `json:"num_deleted"`
}

// Total returns NumAdded + NumSkipped.
func (r IndexResult) Total() int {
	return r.NumAdded + r.NumSkipped
}

// AllSkipped reports whether every one of total keys was already recorded.
func (r IndexResult) AllSkipped(total int) bool {
	return total > 0 && r.NumSkipped == total
}
