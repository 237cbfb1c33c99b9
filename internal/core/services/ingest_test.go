package services

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/paperchat/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/paperchat/internal/core/domain"
	"github.com/custodia-labs/paperchat/internal/core/ports/driving"
	"github.com/custodia-labs/paperchat/internal/postprocessors"
)

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

type ingestFixture struct {
	svc      *IngestionService
	ledger   *memory.RecordManager
	store    *mockVectorStore
	embedder *countingEmbedder
}

func newIngestFixture(opts ...IngestionOption) *ingestFixture {
	f := &ingestFixture{
		ledger:   memory.NewRecordManager(""),
		store:    &mockVectorStore{},
		embedder: newCountingEmbedder(),
	}
	f.svc = NewIngestionService(pagePipeline{}, f.ledger, f.store, f.embedder, opts...)
	return f
}

func (f *ingestFixture) ledgerCount(t *testing.T) int {
	t.Helper()
	n, err := f.ledger.Count(context.Background())
	require.NoError(t, err)
	return n
}

func TestChunkKey(t *testing.T) {
	a := chunk("a.pdf", 1, "same text")
	b := chunk("a.pdf", 2, "same text")
	c := chunk("b.pdf", 1, "same text")

	assert.Equal(t, ChunkKey(a), ChunkKey(b), "page does not affect the key")
	assert.NotEqual(t, ChunkKey(a), ChunkKey(c), "source is part of the key")
	assert.Len(t, ChunkKey(a), 64)
}

func TestIngest_FirstUpload(t *testing.T) {
	f := newIngestFixture()

	res, err := f.svc.Ingest(context.Background(), domain.IngestRequest{
		Segments: pages("paper.pdf", "first page", "second page"),
	})

	require.NoError(t, err)
	assert.False(t, res.IsDuplicate)
	assert.Equal(t, domain.MessageUploaded, res.Message)
	assert.Equal(t, "paper.pdf", res.Source)
	assert.Equal(t, 2, res.Index.NumAdded)
	assert.Equal(t, 0, res.Index.NumSkipped)
	assert.Equal(t, 2, res.ChunksWritten)
	assert.Equal(t, 2, f.ledgerCount(t))
	assert.Equal(t, []string{"first page", "second page"}, f.store.contents())
}

func TestIngest_SecondUploadIsDuplicate(t *testing.T) {
	f := newIngestFixture()
	req := domain.IngestRequest{Segments: pages("paper.pdf", "first page", "second page")}

	_, err := f.svc.Ingest(context.Background(), req)
	require.NoError(t, err)
	embedded := f.embedder.texts.Load()

	res, err := f.svc.Ingest(context.Background(), req)

	require.NoError(t, err)
	assert.True(t, res.IsDuplicate)
	assert.Equal(t, domain.MessageDuplicate, res.Message)
	assert.Equal(t, 0, res.Index.NumAdded)
	assert.Equal(t, 2, res.Index.NumSkipped)
	assert.Equal(t, res.ChunksTotal, res.Index.Total())
	assert.Equal(t, embedded, f.embedder.texts.Load(), "duplicates are not re-embedded")
	assert.Equal(t, 1, f.store.adds)
	assert.Equal(t, 2, f.ledgerCount(t))
}

func TestIngest_PartialDuplicate(t *testing.T) {
	segments := pages("paper.pdf", "one", "two", "three")
	existing := []string{
		ChunkKey(domain.Chunk{Content: "one", Metadata: segments[0].Metadata}),
		ChunkKey(domain.Chunk{Content: "two", Metadata: segments[1].Metadata}),
	}
	seeded := []domain.VectorEntry{
		{ID: "old-1", Chunk: domain.Chunk{Content: "one", Metadata: segments[0].Metadata}},
		{ID: "old-2", Chunk: domain.Chunk{Content: "two", Metadata: segments[1].Metadata}},
	}

	tests := []struct {
		name     string
		policy   domain.DuplicatePolicy
		written  []string
		embedded int32
	}{
		{"write all", domain.DuplicatePolicyWriteAll, []string{"one", "two", "three"}, 3},
		{"write new", domain.DuplicatePolicyWriteNew, []string{"three"}, 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newIngestFixture(WithDuplicatePolicy(tc.policy))
			_, err := f.ledger.RecordIfAbsent(context.Background(), existing)
			require.NoError(t, err)
			require.NoError(t, f.store.Add(context.Background(), seeded))

			res, err := f.svc.Ingest(context.Background(), domain.IngestRequest{Segments: segments})

			require.NoError(t, err)
			assert.False(t, res.IsDuplicate)
			assert.Equal(t, domain.IndexResult{NumAdded: 1, NumSkipped: 2}, res.Index)
			assert.Equal(t, tc.written, f.store.contents()[len(seeded):])
			assert.Equal(t, len(tc.written), res.ChunksWritten)
			assert.Equal(t, tc.embedded, f.embedder.texts.Load())
			assert.Equal(t, 3, f.ledgerCount(t))
		})
	}
}

func TestIngest_RewritesVectorsLostWithStore(t *testing.T) {
	for _, policy := range []domain.DuplicatePolicy{domain.DuplicatePolicyWriteAll, domain.DuplicatePolicyWriteNew} {
		t.Run(string(policy), func(t *testing.T) {
			f := newIngestFixture(WithDuplicatePolicy(policy))
			req := domain.IngestRequest{Segments: pages("paper.pdf", "first page", "second page")}

			_, err := f.svc.Ingest(context.Background(), req)
			require.NoError(t, err)

			// The store comes back empty while the ledger keeps its keys.
			f.store.reset()

			res, err := f.svc.Ingest(context.Background(), req)

			require.NoError(t, err)
			assert.False(t, res.IsDuplicate)
			assert.Equal(t, domain.MessageUploaded, res.Message)
			assert.Equal(t, domain.IndexResult{NumSkipped: 2}, res.Index)
			assert.Equal(t, 2, res.ChunksWritten)
			assert.Equal(t, []string{"first page", "second page"}, f.store.contents())
			assert.Equal(t, 2, f.ledgerCount(t))

			res, err = f.svc.Ingest(context.Background(), req)
			require.NoError(t, err)
			assert.True(t, res.IsDuplicate, "once restored, the document is a duplicate again")
		})
	}
}

func TestIngest_LostVectorsWithNewContent(t *testing.T) {
	f := newIngestFixture(WithDuplicatePolicy(domain.DuplicatePolicyWriteNew))

	_, err := f.svc.Ingest(context.Background(), domain.IngestRequest{
		Segments: pages("paper.pdf", "one", "two"),
	})
	require.NoError(t, err)
	f.store.reset()

	res, err := f.svc.Ingest(context.Background(), domain.IngestRequest{
		Segments: pages("paper.pdf", "one", "two", "three"),
	})

	require.NoError(t, err)
	assert.False(t, res.IsDuplicate)
	assert.Equal(t, domain.IndexResult{NumAdded: 1, NumSkipped: 2}, res.Index)
	assert.Equal(t, []string{"one", "two", "three"}, f.store.contents())
}

func TestIngest_OtherSourceVectorsDoNotHideLoss(t *testing.T) {
	f := newIngestFixture()
	ctx := context.Background()

	_, err := f.svc.Ingest(ctx, domain.IngestRequest{Segments: pages("a.pdf", "alpha")})
	require.NoError(t, err)
	f.store.reset()
	_, err = f.svc.Ingest(ctx, domain.IngestRequest{Segments: pages("b.pdf", "beta")})
	require.NoError(t, err)

	res, err := f.svc.Ingest(ctx, domain.IngestRequest{Segments: pages("a.pdf", "alpha")})

	require.NoError(t, err)
	assert.False(t, res.IsDuplicate)
	assert.Equal(t, []string{"beta", "alpha"}, f.store.contents())
}

func TestIngest_RepeatedChunkWithinDocument(t *testing.T) {
	f := newIngestFixture()

	res, err := f.svc.Ingest(context.Background(), domain.IngestRequest{
		Segments: pages("paper.pdf", "header", "body", "header"),
	})

	require.NoError(t, err)
	assert.Equal(t, 2, res.Index.NumAdded)
	assert.Equal(t, 1, res.Index.NumSkipped)
	assert.Equal(t, 3, res.Index.Total())
	assert.Equal(t, 2, f.ledgerCount(t))
}

func TestIngest_EnrichesMetadata(t *testing.T) {
	f := newIngestFixture()

	_, err := f.svc.Ingest(context.Background(), domain.IngestRequest{
		Segments: pages("paper.pdf", "content"),
		Domain:   "physics",
		Bibliography: map[string]string{
			"title":  "Vectors in Practice",
			"source": "bib-source",
			"page":   "99",
			"domain": "bib-domain",
		},
	})
	require.NoError(t, err)

	require.Len(t, f.store.entries, 1)
	md := f.store.entries[0].Chunk.Metadata
	assert.Equal(t, "paper.pdf", md.Source())
	page, ok := md.Page()
	require.True(t, ok)
	assert.Equal(t, 1, page)
	assert.Equal(t, "physics", md.Domain())
	assert.Equal(t, "Vectors in Practice", md.String("title"))
	assert.NotEmpty(t, f.store.entries[0].ID)
}

func TestIngest_SegmentsInheritRequestSource(t *testing.T) {
	f := newIngestFixture()

	res, err := f.svc.Ingest(context.Background(), domain.IngestRequest{
		Source:   "upload.pdf",
		Segments: []domain.Segment{{Text: "text", Metadata: domain.Metadata{domain.MetaPage: 1}}},
	})

	require.NoError(t, err)
	assert.Equal(t, "upload.pdf", res.Source)
	assert.Equal(t, "upload.pdf", f.store.entries[0].Chunk.Metadata.Source())
}

func TestIngest_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		req  domain.IngestRequest
	}{
		{"no segments", domain.IngestRequest{}},
		{"missing source", domain.IngestRequest{Segments: []domain.Segment{{Text: "text"}}}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newIngestFixture()
			_, err := f.svc.Ingest(context.Background(), tc.req)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
			assert.Equal(t, 0, f.ledgerCount(t))
		})
	}
}

func TestIngest_StoreFailureRollsBackLedger(t *testing.T) {
	f := newIngestFixture()
	f.store.addErr = domain.ErrStorageUnavailable
	req := domain.IngestRequest{Segments: pages("paper.pdf", "a", "b")}

	_, err := f.svc.Ingest(context.Background(), req)
	require.ErrorIs(t, err, domain.ErrStorageUnavailable)
	assert.Equal(t, 0, f.ledgerCount(t), "no ledger records without a vector write")

	f.store.addErr = nil
	res, err := f.svc.Ingest(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, res.IsDuplicate, "a failed upload can be retried")
	assert.Equal(t, 2, res.Index.NumAdded)
}

func TestIngest_EmbeddingFailureLeavesLedgerUntouched(t *testing.T) {
	f := newIngestFixture()
	f.embedder.err = domain.ErrRateLimited

	_, err := f.svc.Ingest(context.Background(), domain.IngestRequest{Segments: pages("p.pdf", "a")})

	assert.ErrorIs(t, err, domain.ErrRateLimited)
	assert.Equal(t, 0, f.ledgerCount(t))
	assert.Equal(t, 0, f.store.adds)
}

func TestIngest_ConcurrentSameDocument(t *testing.T) {
	f := newIngestFixture()
	req := domain.IngestRequest{Segments: pages("paper.pdf", "a", "b", "c")}

	const workers = 4
	results := make([]*domain.IngestResult, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = f.svc.Ingest(context.Background(), req)
		}()
	}
	wg.Wait()

	uploaded := 0
	for i := range workers {
		require.NoError(t, errs[i])
		if !results[i].IsDuplicate {
			uploaded++
		}
	}
	assert.Equal(t, 1, uploaded)
	assert.Len(t, f.store.contents(), 3)
	assert.Equal(t, 3, f.ledgerCount(t))
}

func TestIngestFile(t *testing.T) {
	extractor := &mockExtractor{pages: []string{"page one", "page two"}}
	bib := mockBibParser{entries: domain.Bibliography{
		"other": {"title": "Other"},
		"paper": {"title": "Paper Title", "author": "Doe"},
	}}
	f := newIngestFixture(WithExtractor(extractor), WithBibliographyParser(bib))

	res, err := f.svc.IngestFile(context.Background(), "/docs/paper.pdf", driving.IngestOptions{
		Domain:       "math",
		Bibliography: []byte("@article{paper, title={Paper Title}}"),
	})

	require.NoError(t, err)
	assert.Equal(t, "paper.pdf", res.Source)
	require.Len(t, f.store.entries, 2)
	md := f.store.entries[0].Chunk.Metadata
	assert.Equal(t, "Paper Title", md.String("title"))
	assert.Equal(t, "math", md.Domain())
}

func TestIngestFile_ExtractError(t *testing.T) {
	extractor := &mockExtractor{err: domain.ErrUnreadableDocument}
	f := newIngestFixture(WithExtractor(extractor))

	_, err := f.svc.IngestFile(context.Background(), "/docs/broken.pdf", driving.IngestOptions{})

	assert.ErrorIs(t, err, domain.ErrUnreadableDocument)
}

func TestIngestFile_NoExtractor(t *testing.T) {
	f := newIngestFixture()
	_, err := f.svc.IngestFile(context.Background(), "/docs/paper.pdf", driving.IngestOptions{})
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}

func TestIngestBytes(t *testing.T) {
	uploadDir := t.TempDir()
	extractor := &mockExtractor{pages: []string{"uploaded text"}}
	f := newIngestFixture(WithExtractor(extractor), WithUploadDir(uploadDir))

	res, err := f.svc.IngestBytes(context.Background(), "../../report.pdf", []byte("%PDF-1.4"), driving.IngestOptions{})

	require.NoError(t, err)
	assert.Equal(t, "report.pdf", res.Source)
	assert.True(t, extractor.existed, "file is staged before extraction")
	assert.Equal(t, "report.pdf", filepath.Base(extractor.lastPath))
	assert.False(t, fileExists(extractor.lastPath), "staged file is removed")

	left, err := os.ReadDir(uploadDir)
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestIngestBytes_InvalidInput(t *testing.T) {
	f := newIngestFixture(WithExtractor(&mockExtractor{}), WithUploadDir(t.TempDir()))

	_, err := f.svc.IngestBytes(context.Background(), "", []byte("data"), driving.IngestOptions{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.svc.IngestBytes(context.Background(), "a.pdf", nil, driving.IngestOptions{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestIngest_WithRealChunker(t *testing.T) {
	pipeline, err := postprocessors.DefaultRegistry().BuildPipeline(domain.ChunkerSettings{
		Type:      "recursive",
		ChunkSize: 40,
	})
	require.NoError(t, err)

	ledger := memory.NewRecordManager("")
	embedder := newCountingEmbedder()
	store := memory.NewVectorStore(embedder)
	svc := NewIngestionService(pipeline, ledger, store, embedder)

	text := "Vector stores index embeddings.\n\nA record manager remembers what was indexed."
	res, err := svc.Ingest(context.Background(), domain.IngestRequest{Segments: pages("test.pdf", text)})
	require.NoError(t, err)
	assert.Greater(t, res.ChunksTotal, 1)

	hits, err := store.SimilaritySearch(context.Background(), "vector stores", 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "test.pdf", hits[0].Chunk.Metadata.Source())

	again, err := svc.Ingest(context.Background(), domain.IngestRequest{Segments: pages("test.pdf", text)})
	require.NoError(t, err)
	assert.True(t, again.IsDuplicate)
	assert.Equal(t, 0, again.Index.NumAdded)
}
