package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/paperchat/internal/core/domain"
)

func newTestServer(t *testing.T, ports Ports) http.Handler {
	t.Helper()
	s, err := NewServer(ports, time.Minute)
	require.NoError(t, err)
	return s.Handler()
}

func do(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// multipartUpload builds an upload request. Empty bib omits bib_file.
func multipartUpload(t *testing.T, path, filename string, pdf, bib []byte, dom string) *http.Request {
	t.Helper()
	body := new(bytes.Buffer)
	w := multipart.NewWriter(body)

	if filename != "" {
		part, err := w.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(pdf)
		require.NoError(t, err)
	}
	if len(bib) > 0 {
		part, err := w.CreateFormFile("bib_file", "paper.bib")
		require.NoError(t, err)
		_, err = part.Write(bib)
		require.NoError(t, err)
	}
	if dom != "" {
		require.NoError(t, w.WriteField("domain", dom))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error
}

func TestNewServer_ValidatesPorts(t *testing.T) {
	_, err := NewServer(Ports{Query: &mockQueryService{}}, 0)
	assert.ErrorIs(t, err, ErrMissingIngestService)

	_, err = NewServer(Ports{Ingest: &mockIngestService{}}, 0)
	assert.ErrorIs(t, err, ErrMissingQueryService)

	s, err := NewServer(Ports{Ingest: &mockIngestService{}, Query: &mockQueryService{}}, 0)
	require.NoError(t, err)
	assert.NotNil(t, s.Handler())
}

func TestUpload(t *testing.T) {
	t.Run("indexes the file with domain and bibliography", func(t *testing.T) {
		ingest := &mockIngestService{}
		h := newTestServer(t, Ports{Ingest: ingest, Query: &mockQueryService{}})

		req := multipartUpload(t, "/upload", "paper.pdf", []byte("%PDF-1.4"), []byte("@article{paper}"), "physics")
		rec := do(h, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"message":"PDF uploaded and processed successfully."}`, rec.Body.String())
		assert.Equal(t, "paper.pdf", ingest.name)
		assert.Equal(t, []byte("%PDF-1.4"), ingest.data)
		assert.Equal(t, "physics", ingest.opts.Domain)
		assert.Equal(t, []byte("@article{paper}"), ingest.opts.Bibliography)
	})

	t.Run("legacy path reports duplicates", func(t *testing.T) {
		ingest := &mockIngestService{result: &domain.IngestResult{
			Source:      "paper.pdf",
			IsDuplicate: true,
			Message:     domain.MessageDuplicate,
		}}
		h := newTestServer(t, Ports{Ingest: ingest, Query: &mockQueryService{}})

		rec := do(h, multipartUpload(t, "/upload-pdf", "paper.pdf", []byte("%PDF"), nil, ""))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"message":"Document already uploaded"}`, rec.Body.String())
		assert.Empty(t, ingest.opts.Bibliography)
	})

	t.Run("missing file is a bad request", func(t *testing.T) {
		h := newTestServer(t, Ports{Ingest: &mockIngestService{}, Query: &mockQueryService{}})

		rec := do(h, multipartUpload(t, "/upload", "", nil, nil, "physics"))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decodeError(t, rec), "file is required")
	})

	t.Run("unreadable document is a bad request", func(t *testing.T) {
		ingest := &mockIngestService{err: fmt.Errorf("extract: %w", domain.ErrUnreadableDocument)}
		h := newTestServer(t, Ports{Ingest: ingest, Query: &mockQueryService{}})

		rec := do(h, multipartUpload(t, "/upload", "bad.pdf", []byte("junk"), nil, ""))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decodeError(t, rec), "unreadable document")
	})

	t.Run("storage failure is unavailable", func(t *testing.T) {
		ingest := &mockIngestService{err: domain.ErrStorageUnavailable}
		h := newTestServer(t, Ports{Ingest: ingest, Query: &mockQueryService{}})

		rec := do(h, multipartUpload(t, "/upload", "a.pdf", []byte("%PDF"), nil, ""))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestQuery(t *testing.T) {
	t.Run("returns response with citations", func(t *testing.T) {
		query := &mockQueryService{}
		h := newTestServer(t, Ports{Ingest: &mockIngestService{}, Query: query})

		req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{"query":"what are vectors?"}`))
		req.Header.Set("Content-Type", "application/json")
		rec := do(h, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp QueryResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "Vectors are ordered lists of numbers.", resp.Response)
		assert.Equal(t, []domain.Citation{{Source: "test.pdf", Domain: "math"}}, resp.Citations)
		assert.Equal(t, []string{"test.pdf (page 1)"}, resp.References)
		assert.Equal(t, "what are vectors?", query.question)
		assert.True(t, query.hadDeadline)
	})

	t.Run("empty citations encode as arrays", func(t *testing.T) {
		query := &mockQueryService{answer: &domain.Answer{Response: "I could not find that."}}
		h := newTestServer(t, Ports{Ingest: &mockIngestService{}, Query: query})

		req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{"query":"x"}`))
		req.Header.Set("Content-Type", "application/json")
		rec := do(h, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"response":"I could not find that.","citations":[],"references":[]}`, rec.Body.String())
	})

	t.Run("blank query is a bad request", func(t *testing.T) {
		h := newTestServer(t, Ports{Ingest: &mockIngestService{}, Query: &mockQueryService{}})

		req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{"query":"   "}`))
		req.Header.Set("Content-Type", "application/json")
		rec := do(h, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decodeError(t, rec), "query is required")
	})

	t.Run("malformed json is a bad request", func(t *testing.T) {
		h := newTestServer(t, Ports{Ingest: &mockIngestService{}, Query: &mockQueryService{}})

		req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{"query":`))
		req.Header.Set("Content-Type", "application/json")
		rec := do(h, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decodeError(t, rec), "invalid json")
	})

	t.Run("unknown reference is a bad gateway", func(t *testing.T) {
		query := &mockQueryService{err: &domain.UnknownReferenceError{ID: "zz-9"}}
		h := newTestServer(t, Ports{Ingest: &mockIngestService{}, Query: query})

		req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{"query":"x"}`))
		req.Header.Set("Content-Type", "application/json")
		rec := do(h, req)

		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Equal(t, `unknown reference "zz-9"`, decodeError(t, rec))
	})
}

func TestRetrieve(t *testing.T) {
	t.Run("returns passages", func(t *testing.T) {
		query := &mockQueryService{}
		h := newTestServer(t, Ports{Ingest: &mockIngestService{}, Query: query})

		rec := do(h, httptest.NewRequest(http.MethodGet, "/retrieve?q=vectors", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		var resp RetrieveResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, []string{"vectors"}, resp.Queries)
		require.Len(t, resp.Passages, 1)
		assert.Equal(t, "ab12cd34-0", resp.Passages[0].ID)
		assert.Equal(t, "test.pdf", resp.Passages[0].Metadata.Source())
	})

	t.Run("empty evidence encodes an empty list", func(t *testing.T) {
		query := &mockQueryService{evidence: &domain.EvidenceSet{Query: "x", Queries: []string{"x"}}}
		h := newTestServer(t, Ports{Ingest: &mockIngestService{}, Query: query})

		rec := do(h, httptest.NewRequest(http.MethodGet, "/retrieve?q=x", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"queries":["x"],"passages":[]}`, rec.Body.String())
	})

	t.Run("missing q is a bad request", func(t *testing.T) {
		h := newTestServer(t, Ports{Ingest: &mockIngestService{}, Query: &mockQueryService{}})

		rec := do(h, httptest.NewRequest(http.MethodGet, "/retrieve", nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rate limit passes through", func(t *testing.T) {
		query := &mockQueryService{err: fmt.Errorf("embed: %w", domain.ErrRateLimited)}
		h := newTestServer(t, Ports{Ingest: &mockIngestService{}, Query: query})

		rec := do(h, httptest.NewRequest(http.MethodGet, "/retrieve?q=x", nil))

		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	})
}

func TestHealth(t *testing.T) {
	t.Run("without stats", func(t *testing.T) {
		h := newTestServer(t, Ports{Ingest: &mockIngestService{}, Query: &mockQueryService{}})

		rec := do(h, httptest.NewRequest(http.MethodGet, "/health", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"ok":true`)
		assert.NotContains(t, rec.Body.String(), `"index"`)
	})

	t.Run("with stats", func(t *testing.T) {
		h := newTestServer(t, Ports{
			Ingest: &mockIngestService{},
			Query:  &mockQueryService{},
			Stats:  &mockStatsService{},
		})

		rec := do(h, httptest.NewRequest(http.MethodGet, "/health", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"ledger_records":3`)
		assert.Contains(t, rec.Body.String(), `"vectors":3`)
	})

	t.Run("stats failure is unavailable", func(t *testing.T) {
		h := newTestServer(t, Ports{
			Ingest: &mockIngestService{},
			Query:  &mockQueryService{},
			Stats:  &mockStatsService{err: domain.ErrStorageUnavailable},
		})

		rec := do(h, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, rec.Body.String(), `"ok":false`)
	})
}

func TestUnknownRoute_UsesEnvelope(t *testing.T) {
	h := newTestServer(t, Ports{Ingest: &mockIngestService{}, Query: &mockQueryService{}})

	rec := do(h, httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not Found", decodeError(t, rec))
}

type panickingQueryService struct{ mockQueryService }

func (p *panickingQueryService) Query(context.Context, string) (*domain.Answer, error) {
	panic("boom")
}

func TestPanic_Recovered(t *testing.T) {
	h := newTestServer(t, Ports{Ingest: &mockIngestService{}, Query: &panickingQueryService{}})

	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{"query":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := do(h, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, decodeError(t, rec), "boom")
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid input", domain.ErrInvalidInput, http.StatusBadRequest},
		{"unreadable", domain.ErrUnreadableDocument, http.StatusBadRequest},
		{"unsupported", domain.ErrUnsupportedType, http.StatusBadRequest},
		{"not found", domain.ErrNotFound, http.StatusNotFound},
		{"rate limited", domain.ErrRateLimited, http.StatusTooManyRequests},
		{"provider", domain.ErrProviderUnavailable, http.StatusBadGateway},
		{"unknown reference", &domain.UnknownReferenceError{ID: "x"}, http.StatusBadGateway},
		{"storage", domain.ErrStorageUnavailable, http.StatusServiceUnavailable},
		{"corrupt", domain.ErrStoreCorrupt, http.StatusServiceUnavailable},
		{"timeout", fmt.Errorf("llm: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestServer_RunStopsOnCancel(t *testing.T) {
	s, err := NewServer(Ports{Ingest: &mockIngestService{}, Query: &mockQueryService{}}, 0)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
