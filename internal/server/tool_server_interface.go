// Package server provides the MCP server exposing cratescribe operations as tools.
package server

// ToolServer defines the interface for the MCP server that handles
// crate tool calls from MCP clients.
type ToolServer interface {
	// Initialize registers the tools.
	Initialize() error

	// Start starts the MCP server on stdio and blocks until it exits.
	Start() error

	// Stop gracefully shuts down the MCP server.
	Stop() error
}
