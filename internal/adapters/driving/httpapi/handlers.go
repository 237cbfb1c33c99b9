package httpapi

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/custodia-labs/paperchat/internal/core/domain"
	"github.com/custodia-labs/paperchat/internal/core/ports/driving"
)

var appStart = time.Now()

// Ports aggregates the driving ports served over HTTP.
type Ports struct {
	// Ingest indexes uploaded documents.
	Ingest driving.IngestionService

	// Query answers questions.
	Query driving.QueryService

	// Stats is optional; /health reports index sizes when set.
	Stats driving.StatsService
}

// Validate ensures the required ports are set.
func (p *Ports) Validate() error {
	if p.Ingest == nil {
		return ErrMissingIngestService
	}
	if p.Query == nil {
		return ErrMissingQueryService
	}
	return nil
}

// Handler serves the API routes.
type Handler struct {
	ports        Ports
	queryTimeout time.Duration
}

// NewHandler creates a handler. A zero timeout leaves queries bounded only
// by the request context.
func NewHandler(ports Ports, queryTimeout time.Duration) (*Handler, error) {
	if err := ports.Validate(); err != nil {
		return nil, err
	}
	return &Handler{ports: ports, queryTimeout: queryTimeout}, nil
}

// UploadResponse is returned by the upload route.
type UploadResponse struct {
	Message string `json:"message"`
}

// QueryRequest is the body of the query route.
type QueryRequest struct {
	Query string `json:"query"`
}

// QueryResponse is returned by the query route.
type QueryResponse struct {
	Response   string            `json:"response"`
	Citations  []domain.Citation `json:"citations"`
	References []string          `json:"references"`
}

// Passage is one retrieved chunk.
type Passage struct {
	ID       string          `json:"id"`
	Content  string          `json:"content"`
	Metadata domain.Metadata `json:"metadata"`
}

// RetrieveResponse is returned by the retrieve route.
type RetrieveResponse struct {
	Queries  []string  `json:"queries"`
	Passages []Passage `json:"passages"`
}

// Upload indexes a multipart upload. Fields: file (required), bib_file and
// domain (optional).
func (h *Handler) Upload(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return fail(c, fmt.Errorf("%w: file is required", domain.ErrInvalidInput))
	}
	data, err := readPart(fh)
	if err != nil {
		return fail(c, err)
	}

	opts := driving.IngestOptions{Domain: strings.TrimSpace(c.FormValue("domain"))}
	if bib, err := c.FormFile("bib_file"); err == nil {
		if opts.Bibliography, err = readPart(bib); err != nil {
			return fail(c, err)
		}
	}

	result, err := h.ports.Ingest.IngestBytes(c.Request().Context(), fh.Filename, data, opts)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, UploadResponse{Message: result.Message})
}

// Query answers a question with citations.
func (h *Handler) Query(c echo.Context) error {
	var req QueryRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, fmt.Errorf("%w: invalid json", domain.ErrInvalidInput))
	}
	if strings.TrimSpace(req.Query) == "" {
		return fail(c, fmt.Errorf("%w: query is required", domain.ErrInvalidInput))
	}

	ctx, cancel := h.queryContext(c)
	defer cancel()

	answer, err := h.ports.Query.Query(ctx, req.Query)
	if err != nil {
		return fail(c, err)
	}

	resp := QueryResponse{
		Response:   answer.Response,
		Citations:  answer.Citations,
		References: answer.References,
	}
	if resp.Citations == nil {
		resp.Citations = []domain.Citation{}
	}
	if resp.References == nil {
		resp.References = []string{}
	}
	return c.JSON(http.StatusOK, resp)
}

// Retrieve returns the passages a question would be answered from.
func (h *Handler) Retrieve(c echo.Context) error {
	q := strings.TrimSpace(c.QueryParam("q"))
	if q == "" {
		return fail(c, fmt.Errorf("%w: q is required", domain.ErrInvalidInput))
	}

	ctx, cancel := h.queryContext(c)
	defer cancel()

	evidence, err := h.ports.Query.Retrieve(ctx, q)
	if err != nil {
		return fail(c, err)
	}

	resp := RetrieveResponse{
		Queries:  evidence.Queries,
		Passages: make([]Passage, 0, len(evidence.Docs)),
	}
	if resp.Queries == nil {
		resp.Queries = []string{}
	}
	for _, d := range evidence.Docs {
		resp.Passages = append(resp.Passages, Passage(d))
	}
	return c.JSON(http.StatusOK, resp)
}

// Health reports liveness and, when available, index sizes.
func (h *Handler) Health(c echo.Context) error {
	resp := map[string]any{
		"status":     map[string]any{"ok": true},
		"uptime_sec": int(time.Since(appStart).Seconds()),
		"time":       time.Now().Format(time.RFC3339),
	}
	if h.ports.Stats == nil {
		return c.JSON(http.StatusOK, resp)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 800*time.Millisecond)
	defer cancel()

	stats, err := h.ports.Stats.Stats(ctx)
	if err != nil {
		resp["status"] = map[string]any{"ok": false}
		resp["error"] = err.Error()
		return c.JSON(http.StatusServiceUnavailable, resp)
	}
	resp["index"] = stats
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) queryContext(c echo.Context) (context.Context, context.CancelFunc) {
	ctx := c.Request().Context()
	if h.queryTimeout > 0 {
		return context.WithTimeout(ctx, h.queryTimeout)
	}
	return context.WithCancel(ctx)
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", domain.ErrInvalidInput, fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", domain.ErrInvalidInput, fh.Filename, err)
	}
	return data, nil
}
