// Package mcp provides an MCP (Model Context Protocol) server adapter for paperchat.
// It lets AI assistants index PDFs and ask cited questions about them.
package mcp

import "errors"

// ErrMissingQueryService is returned when the query service is not provided.
var ErrMissingQueryService = errors.New("mcp: query service is required")

// ErrMissingIngestService is returned when the ingestion service is not provided.
var ErrMissingIngestService = errors.New("mcp: ingestion service is required")
