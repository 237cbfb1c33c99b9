// Package memory provides in-memory implementations of the storage ports,
// used for ephemeral runs and tests.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/paperchat/internal/core/domain"
	"github.com/custodia-labs/paperchat/internal/core/ports/driven"
)

// Ensure RecordManager implements the interface.
var _ driven.RecordManager = (*RecordManager)(nil)

// RecordManager is an in-memory ledger. A reservation holds the write lock
// until it is committed or rolled back.
type RecordManager struct {
	namespace string

	mu      sync.RWMutex
	records map[string]domain.IndexRecord

	writeMu sync.Mutex
}

// NewRecordManager creates an empty in-memory ledger.
func NewRecordManager(namespace string) *RecordManager {
	if namespace == "" {
		namespace = domain.DefaultNamespace
	}
	return &RecordManager{
		namespace: namespace,
		records:   make(map[string]domain.IndexRecord),
	}
}

// CreateSchema is a no-op.
func (m *RecordManager) CreateSchema(context.Context) error {
	return nil
}

// Namespace returns the ledger namespace.
func (m *RecordManager) Namespace() string {
	return m.namespace
}

// RecordIfAbsent records every absent key.
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

// Reserve stages absent keys. Staged keys become visible on Commit.
func (m *RecordManager) Reserve(ctx context.Context, keys []string) (driven.Reservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.writeMu.Lock()

	r := &reservation{owner: m, added: make([]bool, len(keys))}
	staged := make(map[string]bool, len(keys))

	m.mu.RLock()
	for i, k := range keys {
		if _, ok := m.records[k]; ok || staged[k] {
			r.result.NumSkipped++
			continue
		}
		staged[k] = true
		r.added[i] = true
		r.result.NumAdded++
		r.keys = append(r.keys, k)
	}
	m.mu.RUnlock()

	return r, nil
}

// Exists reports, per key, whether it is recorded.
func (m *RecordManager) Exists(_ context.Context, keys []string) ([]bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]bool, len(keys))
	for i, k := range keys {
		_, out[i] = m.records[k]
	}
	return out, nil
}

// Count returns the number of records.
func (m *RecordManager) Count(context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records), nil
}

// List returns records ordered by key.
func (m *RecordManager) List(context.Context) ([]domain.IndexRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.IndexRecord, 0, len(m.records))
	for _, r := range m.records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// Close is a no-op.
func (m *RecordManager) Close() error {
	return nil
}

type reservation struct {
	owner  *RecordManager
	keys   []string
	added  []bool
	result domain.IndexResult
	once   sync.Once
}

func (r *reservation) Result() domain.IndexResult {
	return r.result
}

func (r *reservation) Added() []bool {
	return r.added
}

func (r *reservation) Commit() error {
	done := false
	r.once.Do(func() {
		done = true
		defer r.owner.writeMu.Unlock()

		now := time.Now()
		r.owner.mu.Lock()
		for _, k := range r.keys {
			r.owner.records[k] = domain.IndexRecord{Key: k, Namespace: r.owner.namespace, UpdatedAt: now}
		}
		r.owner.mu.Unlock()
	})
	if !done {
		return errors.New("reservation already finished")
	}
	return nil
}

func (r *reservation) Rollback() error {
	r.once.Do(r.owner.writeMu.Unlock)
	return nil
}
