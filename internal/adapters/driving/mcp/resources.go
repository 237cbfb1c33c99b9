package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// uriScheme is the custom URI scheme for paperchat resources.
	uriScheme = "paperchat://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "stats",
		Name:        "stats",
		Description: "Ledger record and vector counts for the index",
		MIMEType:    "application/json",
	}, s.handleStatsResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "passages/{query}",
		Name:        "passages",
		Description: "Passages retrieved for a URL-escaped question",
		MIMEType:    "text/plain",
	}, s.handlePassagesResource)
}

// handleStatsResource returns index statistics.
func (s *Server) handleStatsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	text := "{}"
	if s.ports.Stats != nil {
		stats, err := s.ports.Stats.Stats(ctx)
		if err != nil {
			return nil, fmt.Errorf("getting stats: %w", err)
		}
		data, err := json.MarshalIndent(stats, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshalling stats: %w", err)
		}
		text = string(data)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     text,
		}},
	}, nil
}

// handlePassagesResource renders retrieved passages as plain text.
func (s *Server) handlePassagesResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	query := extractQuery(req.Params.URI)
	if query == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	evidence, err := s.ports.Query.Retrieve(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("retrieving passages: %w", err)
	}

	var b strings.Builder
	for i, d := range evidence.Docs {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "[%s] %s", d.ID, d.Metadata.Source())
		if page, ok := d.Metadata.Page(); ok {
			fmt.Fprintf(&b, ", page %d", page)
		}
		b.WriteString("\n")
		b.WriteString(d.Content)
		b.WriteString("\n")
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "text/plain",
			Text:     b.String(),
		}},
	}, nil
}

// extractQuery extracts the question from a URI like paperchat://passages/{query}.
func extractQuery(uri string) string {
	const prefix = uriScheme + "passages/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	q, err := url.PathUnescape(strings.TrimPrefix(uri, prefix))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(q)
}
