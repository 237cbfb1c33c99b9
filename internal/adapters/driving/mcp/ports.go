package mcp

import (
	"github.com/custodia-labs/paperchat/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Ingest indexes documents on disk.
	Ingest driving.IngestionService

	// Query answers questions and retrieves passages.
	Query driving.QueryService

	// Stats reports index sizes. Optional.
	Stats driving.StatsService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Query == nil {
		return ErrMissingQueryService
	}
	if p.Ingest == nil {
		return ErrMissingIngestService
	}
	return nil
}
