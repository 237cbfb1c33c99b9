package mcp

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/paperchat/internal/core/domain"
	"github.com/custodia-labs/paperchat/internal/core/ports/driving"
)

// IngestInput is the input schema for the ingest_pdf tool.
type IngestInput struct {
	Path    string `json:"path" jsonschema:"absolute path of the PDF to index"`
	Domain  string `json:"domain,omitempty" jsonschema:"subject domain attached to every chunk"`
	BibPath string `json:"bib_path,omitempty" jsonschema:"path of a BibTeX file describing the document"`
}

// IngestOutput is the output schema for the ingest_pdf tool.
type IngestOutput struct {
	Message       string `json:"message"`
	Source        string `json:"source"`
	IsDuplicate   bool   `json:"is_duplicate"`
	ChunksWritten int    `json:"chunks_written"`
}

// QueryInput is the input schema for the query and retrieve tools.
type QueryInput struct {
	Question string `json:"question" jsonschema:"natural-language question about the indexed documents"`
}

// QueryOutput is the output schema for the query tool.
type QueryOutput struct {
	Response   string            `json:"response"`
	Citations  []domain.Citation `json:"citations"`
	References []string          `json:"references"`
}

// RetrieveOutput is the output schema for the retrieve tool.
type RetrieveOutput struct {
	Queries  []string        `json:"queries"`
	Passages []PassageOutput `json:"passages"`
	Count    int             `json:"count"`
}

// PassageOutput represents a single retrieved passage.
type PassageOutput struct {
	ID      string `json:"id"`
	Source  string `json:"source"`
	Page    int    `json:"page,omitempty"`
	Domain  string `json:"domain,omitempty"`
	Content string `json:"content"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ingest_pdf",
		Description: "Index a PDF file so it can be queried. Re-indexing an unchanged file is reported as a duplicate.",
	}, s.handleIngest)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "query",
		Description: "Answer a question from the indexed documents, citing the source files",
	}, s.handleQuery)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "retrieve",
		Description: "Return the passages most relevant to a question without generating an answer",
	}, s.handleRetrieve)
}

// handleIngest handles the ingest_pdf tool invocation.
func (s *Server) handleIngest(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IngestInput,
) (*mcp.CallToolResult, IngestOutput, error) {
	if strings.TrimSpace(input.Path) == "" {
		return nil, IngestOutput{}, fmt.Errorf("%w: path is required", domain.ErrInvalidInput)
	}

	opts := driving.IngestOptions{Domain: input.Domain}
	if input.BibPath != "" {
		data, err := os.ReadFile(input.BibPath)
		if err != nil {
			return nil, IngestOutput{}, fmt.Errorf("reading bibliography: %w", err)
		}
		opts.Bibliography = data
	}

	result, err := s.ports.Ingest.IngestFile(ctx, input.Path, opts)
	if err != nil {
		return nil, IngestOutput{}, err
	}

	return nil, IngestOutput{
		Message:       result.Message,
		Source:        result.Source,
		IsDuplicate:   result.IsDuplicate,
		ChunksWritten: result.ChunksWritten,
	}, nil
}

// handleQuery handles the query tool invocation.
func (s *Server) handleQuery(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input QueryInput,
) (*mcp.CallToolResult, QueryOutput, error) {
	answer, err := s.ports.Query.Query(ctx, input.Question)
	if err != nil {
		return nil, QueryOutput{}, err
	}

	output := QueryOutput{
		Response:   answer.Response,
		Citations:  answer.Citations,
		References: answer.References,
	}
	if output.Citations == nil {
		output.Citations = []domain.Citation{}
	}
	if output.References == nil {
		output.References = []string{}
	}
	return nil, output, nil
}

// handleRetrieve handles the retrieve tool invocation.
func (s *Server) handleRetrieve(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input QueryInput,
) (*mcp.CallToolResult, RetrieveOutput, error) {
	evidence, err := s.ports.Query.Retrieve(ctx, input.Question)
	if err != nil {
		return nil, RetrieveOutput{}, err
	}

	output := RetrieveOutput{
		Queries:  evidence.Queries,
		Passages: make([]PassageOutput, len(evidence.Docs)),
		Count:    len(evidence.Docs),
	}
	if output.Queries == nil {
		output.Queries = []string{}
	}
	for i, d := range evidence.Docs {
		page, _ := d.Metadata.Page()
		output.Passages[i] = PassageOutput{
			ID:      d.ID,
			Source:  d.Metadata.Source(),
			Page:    page,
			Domain:  d.Metadata.Domain(),
			Content: d.Content,
		}
	}
	return nil, output, nil
}
