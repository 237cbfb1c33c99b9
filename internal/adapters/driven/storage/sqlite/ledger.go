package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/paperchat/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/paperchat/internal/core/domain"
	"github.com/custodia-labs/paperchat/internal/core/ports/driven"
)

// Ensure RecordManager implements the interface.
var _ driven.RecordManager = (*RecordManager)(nil)

// existsBatchSize bounds the number of keys per IN (...) lookup.
const existsBatchSize = 500

// RecordManager is a SQLite ledger of indexed content keys.
//
// Writes go through a single in-process lock plus an IMMEDIATE transaction,
// so concurrent reservations for the same namespace never interleave, whether
// they come from goroutines in this process or from another process.
type RecordManager struct {
	path      string
	namespace string

	initMu sync.Mutex
	db     *sql.DB

	// writeMu is held from Reserve until Commit or Rollback.
	writeMu sync.Mutex
}

// NewRecordManager creates a ledger at path scoped to namespace.
// The database is not touched until CreateSchema or first use.
func NewRecordManager(path, namespace string) *RecordManager {
	if namespace == "" {
		namespace = domain.DefaultNamespace
	}
	return &RecordManager{path: path, namespace: namespace}
}

// Namespace returns the ledger namespace.
func (m *RecordManager) Namespace() string {
	return m.namespace
}

// Path returns the ledger database path.
func (m *RecordManager) Path() string {
	return m.path
}

// CreateSchema opens the ledger and applies migrations. Idempotent.
func (m *RecordManager) CreateSchema(ctx context.Context) error {
	_, err := m.conn(ctx)
	return err
}

func (m *RecordManager) conn(ctx context.Context) (*sql.DB, error) {
	m.initMu.Lock()
	defer m.initMu.Unlock()

	if m.db != nil {
		return m.db, nil
	}

	db, err := openDB(m.path, "_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStorageUnavailable, err)
	}
	if err := migrate(ctx, db, migrations.FS, migrations.LedgerDir); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: ledger %s: %w", domain.ErrStorageUnavailable, m.path, err)
	}

	m.db = db
	return db, nil
}

// RecordIfAbsent records every absent key in one transaction.
func (m *RecordManager) RecordIfAbsent(ctx context.Context, keys []string) (domain.IndexResult, error) {
	res, err := m.Reserve(ctx, keys)
	if err != nil {
		return domain.IndexResult{}, err
	}
	if err := res.Commit(); err != nil {
		return domain.IndexResult{}, err
	}
	return res.Result(), nil
}

// Reserve inserts absent keys inside an open transaction.
// The caller must Commit or Rollback the returned reservation.
func (m *RecordManager) Reserve(ctx context.Context, keys []string) (driven.Reservation, error) {
	db, err := m.conn(ctx)
	if err != nil {
		return nil, err
	}

	m.writeMu.Lock()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		m.writeMu.Unlock()
		return nil, fmt.Errorf("%w: begin ledger transaction: %w", domain.ErrStorageUnavailable, err)
	}

	r := &reservation{tx: tx, unlock: m.writeMu.Unlock, added: make([]bool, len(keys))}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO upsertion_record (uuid, key, namespace, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (key, namespace) DO NOTHING
	`)
	if err != nil {
		_ = r.Rollback()
		return nil, fmt.Errorf("%w: prepare ledger insert: %w", domain.ErrStorageUnavailable, err)
	}
	defer stmt.Close()

	now := float64(time.Now().UnixNano()) / 1e9
	for i, key := range keys {
		result, err := stmt.ExecContext(ctx, uuid.NewString(), key, m.namespace, now)
		if err != nil {
			_ = r.Rollback()
			return nil, fmt.Errorf("%w: record key: %w", domain.ErrStorageUnavailable, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			_ = r.Rollback()
			return nil, fmt.Errorf("%w: rows affected: %w", domain.ErrStorageUnavailable, err)
		}
		if n > 0 {
			r.added[i] = true
			r.result.NumAdded++
		} else {
			r.result.NumSkipped++
		}
	}

	return r, nil
}

// Exists reports, per key, whether it is recorded in the namespace.
func (m *RecordManager) Exists(ctx context.Context, keys []string) ([]bool, error) {
	db, err := m.conn(ctx)
	if err != nil {
		return nil, err
	}

	found := make(map[string]bool, len(keys))
	for start := 0; start < len(keys); start += existsBatchSize {
		batch := keys[start:min(start+existsBatchSize, len(keys))]

		args := make([]any, 0, len(batch)+1)
		args = append(args, m.namespace)
		for _, k := range batch {
			args = append(args, k)
		}

		query := "SELECT key FROM upsertion_record WHERE namespace = ? AND key IN (" + placeholders(len(batch)) + ")"
		rows, err := db.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("%w: query ledger: %w", domain.ErrStorageUnavailable, err)
		}
		for rows.Next() {
			var k string
			if err := rows.Scan(&k); err != nil {
				rows.Close()
				return nil, fmt.Errorf("%w: scan ledger: %w", domain.ErrStorageUnavailable, err)
			}
			found[k] = true
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: iterate ledger: %w", domain.ErrStorageUnavailable, err)
		}
	}

	out := make([]bool, len(keys))
	for i, k := range keys {
		out[i] = found[k]
	}
	return out, nil
}

// Count returns the number of records in the namespace.
func (m *RecordManager) Count(ctx context.Context) (int, error) {
	db, err := m.conn(ctx)
	if err != nil {
		return 0, err
	}

	var n int
	err = db.QueryRowContext(ctx, "SELECT COUNT(*) FROM upsertion_record WHERE namespace = ?", m.namespace).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("%w: count ledger: %w", domain.ErrStorageUnavailable, err)
	}
	return n, nil
}

// List returns records in the namespace ordered by key.
func (m *RecordManager) List(ctx context.Context) ([]domain.IndexRecord, error) {
	db, err := m.conn(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx,
		"SELECT key, namespace, updated_at FROM upsertion_record WHERE namespace = ? ORDER BY key",
		m.namespace)
	if err != nil {
		return nil, fmt.Errorf("%w: list ledger: %w", domain.ErrStorageUnavailable, err)
	}
	defer rows.Close()

	var records []domain.IndexRecord
	for rows.Next() {
		var rec domain.IndexRecord
		var updated float64
		if err := rows.Scan(&rec.Key, &rec.Namespace, &updated); err != nil {
			return nil, fmt.Errorf("%w: scan ledger: %w", domain.ErrStorageUnavailable, err)
		}
		sec := int64(updated)
		rec.UpdatedAt = time.Unix(sec, int64((updated-float64(sec))*1e9))
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Close releases the database handle.
func (m *RecordManager) Close() error {
	m.initMu.Lock()
	defer m.initMu.Unlock()

	if m.db == nil {
		return nil
	}
	err := m.db.Close()
	m.db = nil
	return err
}

// reservation is an open ledger transaction.
type reservation struct {
	tx     *sql.Tx
	result domain.IndexResult
	added  []bool

	once   sync.Once
	unlock func()
}

func (r *reservation) Result() domain.IndexResult {
	return r.result
}

func (r *reservation) Added() []bool {
	return r.added
}

func (r *reservation) Commit() error {
	var err error
	done := false
	r.once.Do(func() {
		done = true
		defer r.unlock()
		if cerr := r.tx.Commit(); cerr != nil {
			err = fmt.Errorf("%w: commit ledger: %w", domain.ErrStorageUnavailable, cerr)
		}
	})
	if !done {
		return errors.New("reservation already finished")
	}
	return err
}

func (r *reservation) Rollback() error {
	var err error
	r.once.Do(func() {
		defer r.unlock()
		if rerr := r.tx.Rollback(); rerr != nil && !errors.Is(rerr, sql.ErrTxDone) {
			err = fmt.Errorf("%w: rollback ledger: %w", domain.ErrStorageUnavailable, rerr)
		}
	})
	return err
}
