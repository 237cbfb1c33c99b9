// Package watch ingests documents as they appear in a directory tree.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/paperchat/internal/core/domain"
	"github.com/custodia-labs/paperchat/internal/core/ports/driving"
	"github.com/custodia-labs/paperchat/internal/logger"
)

// DefaultDebounce is how long a file must stay quiet before it is ingested.
// Large PDFs arrive as many writes.
const DefaultDebounce = 500 * time.Millisecond

// Watcher ingests matching files created or rewritten under a root directory.
type Watcher struct {
	root     string
	bulk     driving.BulkIngestionService
	debounce time.Duration

	mu      sync.Mutex
	pending map[string]*time.Timer
	closed  bool
	wg      sync.WaitGroup
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period before a file is ingested.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// New creates a watcher for root.
func New(root string, bulk driving.BulkIngestionService, opts ...Option) *Watcher {
	w := &Watcher{
		root:     root,
		bulk:     bulk,
		debounce: DefaultDebounce,
		pending:  make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run watches the tree until ctx is cancelled, calling onResult after each
// ingestion. In-flight ingestions finish before Run returns.
func (w *Watcher) Run(ctx context.Context, onResult func(domain.BulkResult)) error {
	info, err := os.Stat(w.root)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", domain.ErrInvalidInput, w.root)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := addRecursive(watcher, w.root); err != nil {
		return err
	}
	logger.Info("watching %s for %s", w.root, w.bulk.Pattern())

	defer w.wg.Wait()
	defer w.stopPending()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, watcher, event, onResult)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("watch: %v", err)
		}
	}
}

// handleEvent schedules ingestion for a created or written document and
// starts watching new directories.
func (w *Watcher) handleEvent(
	ctx context.Context, watcher *fsnotify.Watcher, event fsnotify.Event, onResult func(domain.BulkResult),
) {
	if isHidden(event.Name) {
		return
	}
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}

	info, err := os.Stat(event.Name)
	if err != nil {
		return
	}
	if info.IsDir() {
		if event.Has(fsnotify.Create) && watcher != nil {
			if err := addRecursive(watcher, event.Name); err != nil {
				logger.Warn("watch %s: %v", event.Name, err)
			}
		}
		return
	}

	if _, ok := w.bulk.Item(w.root, event.Name); !ok {
		logger.Debug("watch: ignoring %s", event.Name)
		return
	}
	w.schedule(ctx, event.Name, onResult)
}

// schedule (re)starts the debounce timer for path.
func (w *Watcher) schedule(ctx context.Context, path string, onResult func(domain.BulkResult)) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	if t, ok := w.pending[path]; ok {
		t.Reset(w.debounce)
		return
	}

	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		if w.closed {
			w.mu.Unlock()
			return
		}
		w.wg.Add(1)
		w.mu.Unlock()
		defer w.wg.Done()

		if ctx.Err() != nil {
			return
		}
		w.ingest(ctx, path, onResult)
	})
}

// ingest re-describes path at fire time so a .bib written after the PDF is
// still picked up.
func (w *Watcher) ingest(ctx context.Context, path string, onResult func(domain.BulkResult)) {
	item, ok := w.bulk.Item(w.root, path)
	if !ok {
		return
	}
	res, err := w.bulk.IngestItem(ctx, item)
	if err != nil {
		logger.Error("ingest %s: %v", path, err)
	}
	if onResult != nil {
		onResult(domain.BulkResult{Item: item, Result: res, Err: err})
	}
}

// Pending returns the number of files waiting out their debounce period.
func (w *Watcher) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}

func (w *Watcher) stopPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
}

// addRecursive watches dir and every non-hidden directory below it.
func addRecursive(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && isHidden(path) {
			return filepath.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

// isHidden reports whether the base name starts with a dot.
func isHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}
