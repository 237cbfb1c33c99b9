package driven

import (
	"context"

	"github.com/custodia-labs/paperchat/internal/core/domain"
)

// RecordManager is the durable ledger of content keys already indexed.
// Records are scoped by namespace and never deleted.
type RecordManager interface {
	// CreateSchema ensures the ledger exists. Idempotent.
	CreateSchema(ctx context.Context) error

	// RecordIfAbsent records every key not already present as one atomic batch.
	// A key repeated within the batch counts as added once, then skipped.
	RecordIfAbsent(ctx context.Context, keys []string) (domain.IndexResult, error)

	// Reserve performs the same conditional insert as RecordIfAbsent but
	// holds it open until the reservation is committed or rolled back.
	// Concurrent reservations for overlapping keys are serialised.
	Reserve(ctx context.Context, keys []string) (Reservation, error)

	// Exists reports, per key, whether it is already recorded.
	Exists(ctx context.Context, keys []string) ([]bool, error)

	// Count returns the number of records in the namespace.
	Count(ctx context.Context) (int, error)

	// List returns the records in the namespace ordered by key.
	List(ctx context.Context) ([]domain.IndexRecord, error)

	// Namespace returns the ledger namespace.
	Namespace() string

	// Close releases resources.
	Close() error
}

// Reservation is an uncommitted ledger write.
type Reservation interface {
	// Result reports how many keys the reservation would add and skip.
	Result() domain.IndexResult

	// Added reports, per key, whether it was newly recorded by this reservation.
	Added() []bool

	// Commit makes the records durable.
	Commit() error

	// Rollback discards the records. Safe to call after Commit.
	Rollback() error
}
