// Package tui provides an interactive chat interface for paperchat.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/paperchat/internal/core/ports/driving"
)

// Ports aggregates the driving port interfaces required by the TUI.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Query answers questions and retrieves evidence.
	Query driving.QueryService

	// Stats reports index sizes for the header. Optional.
	Stats driving.StatsService
}

// NewPorts creates a new Ports aggregate with the given services.
func NewPorts(query driving.QueryService, stats driving.StatsService) *Ports {
	return &Ports{
		Query: query,
		Stats: stats,
	}
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil {
		return ErrInvalidPorts
	}
	if p.Query == nil {
		return ErrMissingQueryService
	}
	return nil
}
