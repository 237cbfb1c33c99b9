package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/paperchat/internal/core/domain"
	"github.com/custodia-labs/paperchat/internal/core/ports/driven"
	"github.com/custodia-labs/paperchat/internal/core/ports/driving"
	"github.com/custodia-labs/paperchat/internal/logger"
)

// Ensure IngestionService implements the interface.
var _ driving.IngestionService = (*IngestionService)(nil)

// IngestionService chunks, de-duplicates and indexes documents.
//
// The ledger is the single gate for duplicate detection: keys are reserved
// in one conditional insert, vectors are written while the reservation is
// held, and the reservation is committed only after the vector write
// succeeds. A failed write rolls the reservation back so the document can be
// retried.
type IngestionService struct {
	pipeline  driven.ChunkPipeline
	ledger    driven.RecordManager
	store     driven.VectorStore
	embedder  driven.EmbeddingService
	extractor driven.TextExtractor
	bib       driven.BibliographyParser
	policy    domain.DuplicatePolicy
	uploadDir string
}

// IngestionOption configures an IngestionService.
type IngestionOption func(*IngestionService)

// WithExtractor sets the text extractor used by IngestFile and IngestBytes.
func WithExtractor(e driven.TextExtractor) IngestionOption {
	return func(s *IngestionService) { s.extractor = e }
}

// WithBibliographyParser sets the parser for IngestOptions.Bibliography.
func WithBibliographyParser(p driven.BibliographyParser) IngestionOption {
	return func(s *IngestionService) { s.bib = p }
}

// WithDuplicatePolicy sets what is written for partially-new documents.
func WithDuplicatePolicy(p domain.DuplicatePolicy) IngestionOption {
	return func(s *IngestionService) {
		if p.IsValid() {
			s.policy = p
		}
	}
}

// WithUploadDir sets where IngestBytes stages uploads. Defaults to os.TempDir().
func WithUploadDir(dir string) IngestionOption {
	return func(s *IngestionService) { s.uploadDir = dir }
}

// NewIngestionService creates an ingestion service.
func NewIngestionService(
	pipeline driven.ChunkPipeline,
	ledger driven.RecordManager,
	store driven.VectorStore,
	embedder driven.EmbeddingService,
	opts ...IngestionOption,
) *IngestionService {
	s := &IngestionService{
		pipeline: pipeline,
		ledger:   ledger,
		store:    store,
		embedder: embedder,
		policy:   domain.DuplicatePolicyWriteAll,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ChunkKey is the ledger key for a chunk: hex SHA-256 of source and content.
// Identical content from the same source always maps to the same key.
func ChunkKey(c domain.Chunk) string {
	h := sha256.New()
	h.Write([]byte(c.Metadata.Source()))
	h.Write([]byte{0})
	h.Write([]byte(c.Content))
	return hex.EncodeToString(h.Sum(nil))
}

// Ingest indexes pre-extracted segments.
func (s *IngestionService) Ingest(ctx context.Context, req domain.IngestRequest) (*domain.IngestResult, error) {
	logger.Section("Ingest " + req.Source)

	if len(req.Segments) == 0 {
		return nil, fmt.Errorf("%w: document has no text", domain.ErrInvalidInput)
	}

	segments := withDefaultSource(req.Segments, req.Source)

	done := logger.Timed("chunking")
	chunks, err := s.pipeline.Process(ctx, segments)
	done()
	if err != nil {
		return nil, fmt.Errorf("chunk document: %w", err)
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: document produced no chunks", domain.ErrInvalidInput)
	}

	chunks = enrich(chunks, req.Domain, req.Bibliography)

	keys := make([]string, len(chunks))
	for i, c := range chunks {
		if c.Metadata.Source() == "" {
			return nil, fmt.Errorf("%w: chunk %d has no source", domain.ErrInvalidInput, i)
		}
		keys[i] = ChunkKey(c)
	}

	result := &domain.IngestResult{
		Source:      firstSource(chunks),
		ChunksTotal: len(chunks),
	}
	logger.Debug("%d chunks from %s", len(chunks), result.Source)

	if err := s.ledger.CreateSchema(ctx); err != nil {
		return nil, fmt.Errorf("prepare ledger: %w", err)
	}

	// Cheap pre-check so a re-upload skips embedding entirely.
	exists, err := s.ledger.Exists(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("check ledger: %w", err)
	}
	stale, err := s.staleRecords(ctx, chunks, exists)
	if err != nil {
		return nil, err
	}
	if allTrue(exists) && !anyTrue(stale) {
		return duplicate(result, domain.IndexResult{NumSkipped: len(keys)}), nil
	}

	candidates := make([]int, 0, len(chunks))
	for i := range chunks {
		if s.policy == domain.DuplicatePolicyWriteNew && exists[i] && !stale[i] {
			continue
		}
		candidates = append(candidates, i)
	}

	entries, err := s.embed(ctx, chunks, candidates)
	if err != nil {
		return nil, err
	}

	reservation, err := s.ledger.Reserve(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("reserve ledger keys: %w", err)
	}
	index := reservation.Result()

	// Reservations are serialised, so this sees any vectors another
	// ingestion restored since the pre-check.
	if anyTrue(stale) {
		if stale, err = s.staleRecords(ctx, chunks, exists); err != nil {
			if rbErr := reservation.Rollback(); rbErr != nil {
				logger.Warn("rollback reservation for %s: %v", result.Source, rbErr)
			}
			return nil, err
		}
	}

	if index.AllSkipped(len(keys)) && !anyTrue(stale) {
		// Another ingestion recorded the same keys since the pre-check.
		if err := reservation.Rollback(); err != nil {
			logger.Warn("rollback reservation for %s: %v", result.Source, err)
		}
		return duplicate(result, index), nil
	}

	if s.policy == domain.DuplicatePolicyWriteNew {
		entries = filterAdded(entries, candidates, reservation.Added(), stale)
	}

	if err := s.store.Add(ctx, entries); err != nil {
		if rbErr := reservation.Rollback(); rbErr != nil {
			logger.Warn("rollback reservation for %s: %v", result.Source, rbErr)
		}
		return nil, fmt.Errorf("write vectors: %w", err)
	}

	if err := reservation.Commit(); err != nil {
		logger.Error("vectors for %s written but ledger commit failed: %v", result.Source, err)
		return nil, fmt.Errorf("commit ledger: %w", err)
	}

	if n := countTrue(stale); n > 0 {
		logger.Warn("%s: %d recorded chunks had no vectors; wrote them again", result.Source, n)
	}

	result.Index = index
	result.ChunksWritten = len(entries)
	result.Message = domain.MessageUploaded
	logger.Info("%s: added %d, skipped %d, wrote %d vectors",
		result.Source, index.NumAdded, index.NumSkipped, len(entries))
	return result, nil
}

// IngestFile extracts and indexes a document on disk.
func (s *IngestionService) IngestFile(
	ctx context.Context, path string, opts driving.IngestOptions,
) (*domain.IngestResult, error) {
	if s.extractor == nil {
		return nil, fmt.Errorf("%w: no text extractor configured", domain.ErrUnsupportedType)
	}

	done := logger.Timed("extract " + filepath.Base(path))
	segments, err := s.extractor.Extract(ctx, path)
	done()
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", filepath.Base(path), err)
	}

	return s.Ingest(ctx, domain.IngestRequest{
		Source:       filepath.Base(path),
		Segments:     segments,
		Domain:       opts.Domain,
		Bibliography: s.bibliographyFor(path, opts.Bibliography),
	})
}

// IngestBytes stages an upload in a private directory under the upload dir,
// ingests it under its original filename and removes it afterwards.
func (s *IngestionService) IngestBytes(
	ctx context.Context, name string, data []byte, opts driving.IngestOptions,
) (*domain.IngestResult, error) {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return nil, fmt.Errorf("%w: upload has no filename", domain.ErrInvalidInput)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", domain.ErrInvalidInput, name)
	}

	base := s.uploadDir
	if base == "" {
		base = os.TempDir()
	}
	dir := filepath.Join(base, uuid.NewString())
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("%w: create upload dir: %w", domain.ErrStorageUnavailable, err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			logger.Warn("remove upload dir %s: %v", dir, err)
		}
	}()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0600); err != nil {
		return nil, fmt.Errorf("%w: stage upload: %w", domain.ErrStorageUnavailable, err)
	}

	return s.IngestFile(ctx, path, opts)
}

// bibliographyFor parses raw BibTeX and selects the entry for path.
func (s *IngestionService) bibliographyFor(path string, raw []byte) map[string]string {
	if len(raw) == 0 || s.bib == nil {
		return nil
	}
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	entry := s.bib.Parse(raw).Entry(stem)
	if entry == nil {
		logger.Warn("no usable BibTeX entry for %s", filepath.Base(path))
	}
	return entry
}

// embed embeds the chunks at idx in batches and returns entries in idx order.
func (s *IngestionService) embed(ctx context.Context, chunks []domain.Chunk, idx []int) ([]domain.VectorEntry, error) {
	if len(idx) == 0 {
		return nil, nil
	}
	if s.embedder == nil {
		return nil, fmt.Errorf("%w: no embedding service configured", domain.ErrProviderUnavailable)
	}
	defer logger.Timed(fmt.Sprintf("embedding %d chunks", len(idx)))()

	return driven.EmbedChunks(ctx, s.embedder, chunks, idx)
}

// withDefaultSource gives segments without a source the request's source.
func withDefaultSource(segments []domain.Segment, source string) []domain.Segment {
	if source == "" {
		return segments
	}
	out := make([]domain.Segment, len(segments))
	for i, seg := range segments {
		out[i] = seg
		if seg.Metadata.Source() == "" {
			md := seg.Metadata.Clone()
			md[domain.MetaSource] = source
			out[i].Metadata = md
		}
	}
	return out
}

// enrich attaches domain and bibliographic fields without overwriting a
// chunk's own metadata. The request domain wins over a bibliography field
// of the same name.
func enrich(chunks []domain.Chunk, dom string, bib map[string]string) []domain.Chunk {
	if dom == "" && len(bib) == 0 {
		return chunks
	}
	extra := make(map[string]string, len(bib)+1)
	for k, v := range bib {
		extra[k] = v
	}
	if dom != "" {
		extra[domain.MetaDomain] = dom
	}

	out := make([]domain.Chunk, len(chunks))
	for i, c := range chunks {
		out[i] = c.WithMetadata(extra)
	}
	return out
}

// staleRecords reports, per chunk, whether its key is recorded in the ledger
// while the vector store holds nothing for its source. That happens when a
// corrupt store was reinitialised empty under an intact ledger.
func (s *IngestionService) staleRecords(
	ctx context.Context, chunks []domain.Chunk, exists []bool,
) ([]bool, error) {
	stale := make([]bool, len(chunks))
	present := make(map[string]bool)
	for i, c := range chunks {
		if !exists[i] {
			continue
		}
		src := c.Metadata.Source()
		has, seen := present[src]
		if !seen {
			var err error
			if has, err = s.store.HasSource(ctx, src); err != nil {
				return nil, fmt.Errorf("check vector store: %w", err)
			}
			present[src] = has
		}
		stale[i] = !has
	}
	return stale, nil
}

// filterAdded keeps the entries whose chunk key was newly recorded or whose
// vectors are missing. entries[j] belongs to chunk candidates[j].
func filterAdded(entries []domain.VectorEntry, candidates []int, added, stale []bool) []domain.VectorEntry {
	out := entries[:0:0]
	for j, i := range candidates {
		if (i < len(added) && added[i]) || stale[i] {
			out = append(out, entries[j])
		}
	}
	return out
}

func duplicate(result *domain.IngestResult, index domain.IndexResult) *domain.IngestResult {
	result.IsDuplicate = true
	result.Index = index
	result.Message = domain.MessageDuplicate
	logger.Info("%s: %s", result.Source, domain.MessageDuplicate)
	return result
}

func allTrue(values []bool) bool {
	for _, v := range values {
		if !v {
			return false
		}
	}
	return len(values) > 0
}

func anyTrue(values []bool) bool {
	for _, v := range values {
		if v {
			return true
		}
	}
	return false
}

func countTrue(values []bool) int {
	n := 0
	for _, v := range values {
		if v {
			n++
		}
	}
	return n
}

func firstSource(chunks []domain.Chunk) string {
	for _, c := range chunks {
		if src := c.Metadata.Source(); src != "" {
			return src
		}
	}
	return ""
}
