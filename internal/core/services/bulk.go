package services

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/custodia-labs/paperchat/internal/core/domain"
	"github.com/custodia-labs/paperchat/internal/core/ports/driving"
	"github.com/custodia-labs/paperchat/internal/logger"
)

// Ensure BulkIngestionService implements the interface.
var _ driving.BulkIngestionService = (*BulkIngestionService)(nil)

// BulkIngestionService ingests a directory tree where each top-level
// sub-directory names the subject domain of the documents beneath it.
// A document's bibliography is the .bib file sharing its stem.
type BulkIngestionService struct {
	ingest      driving.IngestionService
	pattern     string
	concurrency int
}

// NewBulkIngestionService creates a bulk ingestion service.
// An empty pattern defaults to domain.DefaultIngestPattern and a
// non-positive concurrency to domain.DefaultConcurrency.
func NewBulkIngestionService(ingest driving.IngestionService, pattern string, concurrency int) *BulkIngestionService {
	if pattern == "" {
		pattern = domain.DefaultIngestPattern
	}
	if concurrency <= 0 {
		concurrency = domain.DefaultConcurrency
	}
	return &BulkIngestionService{
		ingest:      ingest,
		pattern:     pattern,
		concurrency: concurrency,
	}
}

// Pattern returns the glob used to select documents.
func (s *BulkIngestionService) Pattern() string {
	return s.pattern
}

// Discover lists documents under root matching the pattern, sorted by path.
func (s *BulkIngestionService) Discover(root string) ([]domain.BulkItem, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", domain.ErrInvalidInput, root)
	}

	fsys := os.DirFS(root)
	matches, err := doublestar.Glob(fsys, s.pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("%w: pattern %q: %w", domain.ErrInvalidInput, s.pattern, err)
	}
	sort.Strings(matches)

	items := make([]domain.BulkItem, 0, len(matches))
	for _, rel := range matches {
		item := domain.BulkItem{
			Path:   filepath.Join(root, filepath.FromSlash(rel)),
			Domain: domainOf(rel),
		}
		if bib := bibFor(fsys, rel); bib != "" {
			item.BibPath = filepath.Join(root, filepath.FromSlash(bib))
		}
		items = append(items, item)
	}
	return items, nil
}

// Item describes the document at path, which must lie under root and match
// the pattern. ok is false otherwise.
func (s *BulkIngestionService) Item(root, path string) (domain.BulkItem, bool) {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return domain.BulkItem{}, false
	}
	rel = filepath.ToSlash(rel)
	if ok, err := doublestar.Match(s.pattern, rel); err != nil || !ok {
		return domain.BulkItem{}, false
	}

	item := domain.BulkItem{Path: path, Domain: domainOf(rel)}
	if bib := bibFor(os.DirFS(root), rel); bib != "" {
		item.BibPath = filepath.Join(root, filepath.FromSlash(bib))
	}
	return item, true
}

// IngestDir ingests every discovered document with bounded concurrency.
// Results are returned in discovery order.
func (s *BulkIngestionService) IngestDir(ctx context.Context, root string) ([]domain.BulkResult, error) {
	logger.Section("Bulk ingest " + root)

	items, err := s.Discover(root)
	if err != nil {
		return nil, err
	}
	logger.Info("found %d documents matching %s", len(items), s.pattern)

	results := make([]domain.BulkResult, len(items))
	sem := make(chan struct{}, s.concurrency)
	var wg sync.WaitGroup

	for i, item := range items {
		wg.Add(1)
		go func(i int, item domain.BulkItem) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[i] = domain.BulkResult{Item: item, Err: ctx.Err()}
				return
			}

			if err := ctx.Err(); err != nil {
				results[i] = domain.BulkResult{Item: item, Err: err}
				return
			}

			res, err := s.ingestItem(ctx, item)
			if err != nil {
				logger.Error("ingest %s: %v", item.Path, err)
			}
			results[i] = domain.BulkResult{Item: item, Result: res, Err: err}
		}(i, item)
	}

	wg.Wait()
	return results, nil
}

// IngestItem ingests a single discovered document.
func (s *BulkIngestionService) IngestItem(ctx context.Context, item domain.BulkItem) (*domain.IngestResult, error) {
	return s.ingestItem(ctx, item)
}

func (s *BulkIngestionService) ingestItem(ctx context.Context, item domain.BulkItem) (*domain.IngestResult, error) {
	opts := driving.IngestOptions{Domain: item.Domain}
	if item.BibPath == "" {
		logger.Warn("no bibliography for %s", filepath.Base(item.Path))
	} else {
		data, err := os.ReadFile(item.BibPath)
		if err != nil {
			logger.Warn("read %s: %v", item.BibPath, err)
		} else {
			opts.Bibliography = data
		}
	}
	return s.ingest.IngestFile(ctx, item.Path, opts)
}

// domainOf returns the first path component of a slash-separated relative
// path, or "" for files directly under the root.
func domainOf(rel string) string {
	dir, _, found := strings.Cut(rel, "/")
	if !found {
		return ""
	}
	return dir
}

// bibFor returns the relative path of the .bib file sharing rel's stem.
func bibFor(fsys fs.FS, rel string) string {
	bib := strings.TrimSuffix(rel, path.Ext(rel)) + ".bib"
	if info, err := fs.Stat(fsys, bib); err == nil && !info.IsDir() {
		return bib
	}
	return ""
}
