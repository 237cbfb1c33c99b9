// Package app is the composition root. It builds every adapter and service
// once from settings and hands them to the driving adapters.
package app

import (
	"errors"
	"fmt"

	"github.com/custodia-labs/paperchat/internal/adapters/driven/ai"
	"github.com/custodia-labs/paperchat/internal/adapters/driven/bibliography"
	"github.com/custodia-labs/paperchat/internal/adapters/driven/config/file"
	"github.com/custodia-labs/paperchat/internal/adapters/driven/extract"
	"github.com/custodia-labs/paperchat/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/paperchat/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/paperchat/internal/core/domain"
	"github.com/custodia-labs/paperchat/internal/core/ports/driven"
	"github.com/custodia-labs/paperchat/internal/core/services"
	"github.com/custodia-labs/paperchat/internal/logger"
	"github.com/custodia-labs/paperchat/internal/postprocessors"
)

// Vector store types.
const (
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

// App holds the wired services.
type App struct {
	Settings domain.AppSettings

	Embedder driven.EmbeddingService
	LLM      driven.LLMService
	Store    driven.VectorStore
	Ledger   driven.RecordManager
	Prompts  driven.PromptStore

	Ingest    *services.IngestionService
	Bulk      *services.BulkIngestionService
	Retrieval *services.RetrievalService
	Query     *services.QueryService
	Stats     *services.StatsService
}

type options struct {
	registry  *ai.Registry
	promptDir string
	extractor driven.TextExtractor
}

// Option customises New.
type Option func(*options)

// WithRegistry replaces the AI provider registry.
func WithRegistry(r *ai.Registry) Option {
	return func(o *options) { o.registry = r }
}

// WithPromptDir loads prompts from dir instead of ~/.paperchat/prompts.
func WithPromptDir(dir string) Option {
	return func(o *options) { o.promptDir = dir }
}

// WithExtractor replaces the extension-dispatching text extractor.
func WithExtractor(e driven.TextExtractor) Option {
	return func(o *options) { o.extractor = e }
}

// New builds the application from settings. Nothing is opened on disk until
// the first operation that needs it.
func New(settings domain.AppSettings, opts ...Option) (*App, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.registry == nil {
		o.registry = ai.DefaultRegistry()
	}
	if o.extractor == nil {
		if settings.Ingest.Extractor != "" && settings.Ingest.Extractor != "pdftotext" {
			return nil, fmt.Errorf("%w: extractor %q", domain.ErrUnsupportedType, settings.Ingest.Extractor)
		}
		o.extractor = extract.Default()
	}

	embedder, err := o.registry.CreateEmbeddingService(&settings.Embedding)
	if err != nil {
		return nil, err
	}
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedding provider %q is not configured",
			domain.ErrProviderUnavailable, settings.Embedding.Provider)
	}

	a := &App{Settings: settings, Embedder: embedder}

	// fail releases whatever was built before the error.
	fail := func(err error) (*App, error) {
		if cerr := a.Close(); cerr != nil {
			logger.Warn("app: release after failed start: %v", cerr)
		}
		return nil, err
	}

	llm, err := o.registry.CreateLLMService(&settings.LLM)
	if err != nil {
		return fail(err)
	}
	if llm == nil {
		logger.Debug("LLM not configured; queries will return evidence only")
	}
	a.LLM = llm

	store, ledger, err := newStorage(settings, embedder)
	if err != nil {
		return fail(err)
	}
	a.Store, a.Ledger = store, ledger

	prompts, err := file.NewPromptStore(o.promptDir)
	if err != nil {
		return fail(err)
	}
	a.Prompts = prompts

	pipeline, err := postprocessors.DefaultRegistry().BuildPipeline(settings.Chunker)
	if err != nil {
		return fail(fmt.Errorf("build chunker: %w", err))
	}

	a.Ingest = services.NewIngestionService(pipeline, ledger, store, embedder,
		services.WithExtractor(o.extractor),
		services.WithBibliographyParser(bibliography.NewParser()),
		services.WithDuplicatePolicy(settings.Ingest.DuplicatePolicy),
		services.WithUploadDir(settings.Ingest.UploadDir),
	)
	a.Bulk = services.NewBulkIngestionService(a.Ingest, settings.Ingest.Pattern, settings.Ingest.Concurrency)
	a.Retrieval = services.NewRetrievalService(store.AsRetriever(settings.Retrieval.K), llm, prompts,
		services.RetrievalOptions{
			MultiQuery:      settings.Retrieval.MultiQuery,
			Variants:        settings.Retrieval.Variants,
			IncludeOriginal: settings.Retrieval.IncludeOriginal,
		})
	a.Query = services.NewQueryService(a.Retrieval, llm, prompts, services.QueryOptions{
		CitationMode: settings.Retrieval.CitationMode,
		MaxAttempts:  settings.Retrieval.MaxAttempts,
		Temperature:  settings.LLM.Temperature,
	})
	a.Stats = services.NewStatsService(ledger, store)

	logger.Debug("app: store=%s ledger=%s embedder=%s", settings.VectorStore.Type, ledger.Namespace(), embedder.ModelName())
	return a, nil
}

// newStorage selects the vector store and its ledger. A memory store is
// paired with a memory ledger so the ledger never outlives its vectors.
func newStorage(settings domain.AppSettings, embedder driven.EmbeddingService) (driven.VectorStore, driven.RecordManager, error) {
	switch settings.VectorStore.Type {
	case StoreMemory:
		return memory.NewVectorStore(embedder), memory.NewRecordManager(settings.Ledger.Namespace), nil
	case StoreSQLite, "":
		return sqlite.NewVectorStore(settings.VectorStorePath(), embedder),
			sqlite.NewRecordManager(settings.LedgerPath(), settings.Ledger.Namespace), nil
	default:
		return nil, nil, fmt.Errorf("%w: vector store %q", domain.ErrUnsupportedType, settings.VectorStore.Type)
	}
}

// Close releases every adapter.
func (a *App) Close() error {
	var errs []error
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	if a.Ledger != nil {
		errs = append(errs, a.Ledger.Close())
	}
	if a.Embedder != nil {
		errs = append(errs, a.Embedder.Close())
	}
	if a.LLM != nil {
		errs = append(errs, a.LLM.Close())
	}
	return errors.Join(errs...)
}
