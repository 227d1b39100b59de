package mcp

import (
	"github.com/custodia-labs/rfpkb/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Retrieval ranks records and records answers.
	Retrieval driving.RetrievalService

	// Maintenance sanitises the corpus and serves corpus resources.
	Maintenance driving.MaintenanceService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Retrieval == nil {
		return ErrMissingRetrievalService
	}
	// Maintenance is optional; its tools report ErrMaintenanceDisabled.
	return nil
}
