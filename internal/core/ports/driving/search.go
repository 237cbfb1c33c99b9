package driving

import (
	"context"

	"github.com/custodia-labs/paperchat/internal/core/domain"
)

// QueryService answers natural-language questions over indexed documents.
type QueryService interface {
	// Query retrieves evidence and generates a cited answer.
	Query(ctx context.Context, question string) (*domain.Answer, error)

	// Retrieve returns the evidence set for a question without generating an answer.
	Retrieve(ctx context.Context, question string) (*domain.EvidenceSet, error)
}

// StatsService reports index sizes.
type StatsService interface {
	Stats(ctx context.Context) (*Stats, error)

	// Records lists the ledger entries in the namespace ordered by key.
	Records(ctx context.Context) ([]domain.IndexRecord, error)
}

// Stats summarises the ledger and vector store.
type Stats struct {
	Namespace     string `json:"namespace"`
	LedgerRecords int    `json:"ledger_records"`
	Vectors       int    `json:"vectors"`
}
