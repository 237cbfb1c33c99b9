package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/paperchat/internal/core/domain"
	"github.com/custodia-labs/paperchat/internal/core/ports/driven"
	"github.com/custodia-labs/paperchat/internal/core/ports/driving"
)

// Ensure StatsService implements the interface.
var _ driving.StatsService = (*StatsService)(nil)

// StatsService reports ledger and vector store sizes.
type StatsService struct {
	ledger driven.RecordManager
	store  driven.VectorStore
}

// NewStatsService creates a stats service.
func NewStatsService(ledger driven.RecordManager, store driven.VectorStore) *StatsService {
	return &StatsService{ledger: ledger, store: store}
}

// Stats counts ledger records in the namespace and stored vectors.
func (s *StatsService) Stats(ctx context.Context) (*driving.Stats, error) {
	if err := s.ledger.CreateSchema(ctx); err != nil {
		return nil, fmt.Errorf("prepare ledger: %w", err)
	}
	records, err := s.ledger.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count ledger records: %w", err)
	}
	vectors, err := s.store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count vectors: %w", err)
	}
	return &driving.Stats{
		Namespace:     s.ledger.Namespace(),
		LedgerRecords: records,
		Vectors:       vectors,
	}, nil
}

// Records lists the ledger entries in the namespace.
func (s *StatsService) Records(ctx context.Context) ([]domain.IndexRecord, error) {
	if err := s.ledger.CreateSchema(ctx); err != nil {
		return nil, fmt.Errorf("prepare ledger: %w", err)
	}
	records, err := s.ledger.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list ledger records: %w", err)
	}
	return records, nil
}
