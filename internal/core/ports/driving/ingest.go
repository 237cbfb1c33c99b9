package driving

import (
	"context"

	"github.com/custodia-labs/paperchat/internal/core/domain"
)

// IngestOptions carries per-document ingestion parameters.
type IngestOptions struct {
	// Domain is the subject domain attached to every chunk.
	Domain string

	// Bibliography is raw BibTeX for the document, may be empty.
	Bibliography []byte
}

// IngestionService indexes documents.
type IngestionService interface {
	// Ingest indexes pre-extracted segments.
	Ingest(ctx context.Context, req domain.IngestRequest) (*domain.IngestResult, error)

	// IngestFile extracts and indexes a document on disk.
	IngestFile(ctx context.Context, path string, opts IngestOptions) (*domain.IngestResult, error)

	// IngestBytes indexes an uploaded document. name is the original filename.
	IngestBytes(ctx context.Context, name string, data []byte, opts IngestOptions) (*domain.IngestResult, error)
}

// BulkIngestionService indexes a directory tree of documents.
type BulkIngestionService interface {
	// Discover lists documents under root, pairing each with its bibliography.
	Discover(root string) ([]domain.BulkItem, error)

	// IngestDir ingests every discovered document concurrently.
	// Per-document failures are reported in the results, not returned.
	IngestDir(ctx context.Context, root string) ([]domain.BulkResult, error)

	// Item describes a single document under root. ok is false when path
	// does not match the ingestion pattern.
	Item(root, path string) (item domain.BulkItem, ok bool)

	// IngestItem ingests one described document.
	IngestItem(ctx context.Context, item domain.BulkItem) (*domain.IngestResult, error)

	// Pattern returns the glob used to select documents.
	Pattern() string
}
