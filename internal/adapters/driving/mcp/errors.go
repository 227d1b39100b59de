// Package mcp provides an MCP (Model Context Protocol) server adapter for
// rfpkb. It lets AI assistants retrieve answers from the knowledge base,
// record new answers and run corpus maintenance.
package mcp

import "errors"

var (
	// ErrMissingRetrievalService is returned when the retrieval service is not provided.
	ErrMissingRetrievalService = errors.New("mcp: retrieval service is required")

	// ErrMaintenanceDisabled is returned by maintenance tools when no
	// maintenance service was provided.
	ErrMaintenanceDisabled = errors.New("mcp: maintenance service not configured")
)
