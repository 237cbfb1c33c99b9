package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/paperchat/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/paperchat/internal/adapters/driven/storage/vecmath"
	"github.com/custodia-labs/paperchat/internal/core/domain"
	"github.com/custodia-labs/paperchat/internal/core/ports/driven"
	"github.com/custodia-labs/paperchat/internal/logger"
)

// Ensure VectorStore implements the interface.
var _ driven.VectorStore = (*VectorStore)(nil)

// VectorStore keeps embedded chunks in SQLite and ranks them by brute-force
// cosine distance. It is created lazily on first use.
type VectorStore struct {
	path     string
	embedder driven.EmbeddingService

	mu sync.Mutex
	db *sql.DB
}

// NewVectorStore creates a store at path. The embedder is used by AddChunks
// and SimilaritySearch.
func NewVectorStore(path string, embedder driven.EmbeddingService) *VectorStore {
	return &VectorStore{path: path, embedder: embedder}
}

// Path returns the database path.
func (s *VectorStore) Path() string {
	return s.path
}

// Open loads the store, or creates it if absent. A store that fails its
// integrity check is moved aside and recreated empty.
func (s *VectorStore) Open(ctx context.Context) error {
	_, err := s.conn(ctx)
	return err
}

func (s *VectorStore) conn(ctx context.Context) (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return s.db, nil
	}

	// Only an existing regular file can be quarantined.
	info, statErr := os.Stat(s.path)
	existed := statErr == nil && info.Mode().IsRegular()

	db, err := s.load(ctx)
	if err == nil {
		s.db = db
		s.checkModel(ctx)
		return db, nil
	}
	if !existed {
		return nil, fmt.Errorf("%w: create vector store %s: %w", domain.ErrStorageUnavailable, s.path, err)
	}

	logger.Warn("%v: %s: %v; moving it aside and starting empty", domain.ErrStoreCorrupt, s.path, err)
	if err := s.quarantine(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStorageUnavailable, err)
	}

	db, err = s.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: reinitialise vector store: %w", domain.ErrStorageUnavailable, err)
	}
	s.db = db
	return db, nil
}

// load opens the file, verifies its integrity and applies migrations.
func (s *VectorStore) load(ctx context.Context) (*sql.DB, error) {
	db, err := openDB(s.path)
	if err != nil {
		return nil, err
	}

	var status string
	if err := db.QueryRowContext(ctx, "PRAGMA quick_check").Scan(&status); err != nil {
		db.Close()
		return nil, fmt.Errorf("integrity check: %w", err)
	}
	if status != "ok" {
		db.Close()
		return nil, fmt.Errorf("integrity check: %s", status)
	}

	if err := migrate(ctx, db, migrations.FS, migrations.VectorsDir); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// quarantine renames the damaged database and its WAL files.
func (s *VectorStore) quarantine() error {
	suffix := ".corrupt-" + strconv.FormatInt(time.Now().Unix(), 10)
	for _, ext := range []string{"", "-wal", "-shm"} {
		src := s.path + ext
		if _, err := os.Stat(src); err != nil {
			continue
		}
		if err := os.Rename(src, src+suffix); err != nil {
			return fmt.Errorf("move aside %s: %w", src, err)
		}
	}
	return nil
}

// checkModel warns when vectors were produced by a different embedding model.
func (s *VectorStore) checkModel(ctx context.Context) {
	if s.embedder == nil {
		return
	}
	var model string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM meta WHERE key = 'embedding_model'").Scan(&model)
	if err != nil {
		return
	}
	if model != s.embedder.ModelName() {
		logger.Warn("vector store %s was built with %q but the current embedder is %q; results may be poor",
			s.path, model, s.embedder.ModelName())
	}
}

// Add appends pre-embedded entries in one transaction.
func (s *VectorStore) Add(ctx context.Context, entries []domain.VectorEntry) error {
	if len(entries) == 0 {
		return nil
	}

	db, err := s.conn(ctx)
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %w", domain.ErrStorageUnavailable, err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO vectors (id, source, content, metadata, dims, embedding)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("%w: prepare insert: %w", domain.ErrStorageUnavailable, err)
	}
	defer stmt.Close()

	for _, e := range entries {
		md, err := json.Marshal(e.Chunk.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
		id := e.ID
		if id == "" {
			id = uuid.NewString()
		}
		if _, err := stmt.ExecContext(ctx, id, e.Chunk.Metadata.Source(), e.Chunk.Content,
			string(md), len(e.Embedding), vecmath.Encode(e.Embedding)); err != nil {
			return fmt.Errorf("%w: insert vector: %w", domain.ErrStorageUnavailable, err)
		}
	}

	if s.embedder != nil {
		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO meta (key, value) VALUES ('embedding_model', ?), ('dimensions', ?)
		`, s.embedder.ModelName(), strconv.Itoa(len(entries[0].Embedding))); err != nil {
			return fmt.Errorf("%w: record meta: %w", domain.ErrStorageUnavailable, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", domain.ErrStorageUnavailable, err)
	}
	logger.Debug("vector store: added %d entries", len(entries))
	return nil
}

// AddChunks embeds chunks and appends them.
func (s *VectorStore) AddChunks(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if s.embedder == nil {
		return fmt.Errorf("%w: vector store has no embedder", domain.ErrProviderUnavailable)
	}

	entries, err := driven.EmbedChunks(ctx, s.embedder, chunks, nil)
	if err != nil {
		return err
	}
	return s.Add(ctx, entries)
}

// SimilaritySearch embeds text and returns the k nearest chunks.
func (s *VectorStore) SimilaritySearch(ctx context.Context, text string, k int) ([]domain.ScoredChunk, error) {
	if k <= 0 {
		return nil, nil
	}
	if s.embedder == nil {
		return nil, fmt.Errorf("%w: vector store has no embedder", domain.ErrProviderUnavailable)
	}

	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}

	query, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	rows, err := db.QueryContext(ctx, "SELECT seq, content, metadata, dims, embedding FROM vectors ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("%w: scan vectors: %w", domain.ErrStorageUnavailable, err)
	}
	defer rows.Close()

	var (
		cands      []vecmath.Candidate
		chunks     []domain.Chunk
		mismatched int
	)
	for rows.Next() {
		var (
			seq     int64
			content string
			mdJSON  string
			dims    int
			blob    []byte
		)
		if err := rows.Scan(&seq, &content, &mdJSON, &dims, &blob); err != nil {
			return nil, fmt.Errorf("%w: scan vector row: %w", domain.ErrStorageUnavailable, err)
		}
		if dims != len(query) {
			mismatched++
			continue
		}

		var md domain.Metadata
		if err := json.Unmarshal([]byte(mdJSON), &md); err != nil {
			return nil, fmt.Errorf("%w: metadata of row %d: %w", domain.ErrStoreCorrupt, seq, err)
		}

		cands = append(cands, vecmath.Candidate{Seq: seq, Distance: vecmath.CosineDistance(query, vecmath.Decode(blob))})
		chunks = append(chunks, domain.Chunk{Content: content, Metadata: md})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate vectors: %w", domain.ErrStorageUnavailable, err)
	}
	if mismatched > 0 {
		logger.Warn("vector store: skipped %d vectors whose dimensions differ from the query (%d)", mismatched, len(query))
	}

	top := vecmath.TopK(cands, k)
	out := make([]domain.ScoredChunk, 0, len(top))
	for _, i := range top {
		out = append(out, domain.ScoredChunk{Chunk: chunks[i], Distance: cands[i].Distance})
	}
	return out, nil
}

// AsRetriever exposes the store as a retriever returning k chunks.
func (s *VectorStore) AsRetriever(k int) driven.Retriever {
	return vecmath.NewRetriever(s, k)
}

// Count returns the number of stored vectors.
func (s *VectorStore) Count(ctx context.Context) (int, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return 0, err
	}
	var n int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM vectors").Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: count vectors: %w", domain.ErrStorageUnavailable, err)
	}
	return n, nil
}

// HasSource reports whether any vector belongs to source.
func (s *VectorStore) HasSource(ctx context.Context, source string) (bool, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return false, err
	}
	var found bool
	err = db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM vectors WHERE source = ?)", source).Scan(&found)
	if err != nil {
		return false, fmt.Errorf("%w: look up source: %w", domain.ErrStorageUnavailable, err)
	}
	return found, nil
}

// Close releases the database handle. The store reopens on next use.
func (s *VectorStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
