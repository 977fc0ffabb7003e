// Package api provides the HTTP gateway between workflow tools and the
// long-term memory store.
package api

import (
	"github.com/Sakibyash/infinoz-bot1/pkg/eventstream"
	"github.com/Sakibyash/infinoz-bot1/pkg/memory"
)

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8000")
	ListenAddr string

	// Handle is the process-wide memory client construction result
	Handle *memory.Handle

	// TopK bounds the memories retrieved per context request
	TopK int

	// Publisher receives memory-added events (optional)
	Publisher eventstream.Publisher

	// MCP mounts the MCP tools at /mcp
	MCP bool

	// Metrics serves Prometheus metrics at /metrics
	Metrics bool
}
