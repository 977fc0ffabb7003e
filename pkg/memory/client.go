// Package memory defines the long-term memory contract the gateway talks to.
//
// A [Client] stores conversation turns for a user and retrieves the memories
// most relevant to a query. Implementations live in sub-packages:
//
//	[memory]
//	provider = "local"     # self-hosted engine (LLM + embedder + vector store)
//	provider = "platform"  # hosted mem0 platform
package memory

import (
	"context"
	"time"

	"github.com/Sakibyash/infinoz-bot1/pkg/history"
)

// Client is the memory store contract.
type Client interface {
	// Search returns the memories for opts.UserID most relevant to query,
	// most relevant first.
	Search(ctx context.Context, query string, opts SearchOptions) ([]Entry, error)

	// Add stores text for opts.UserID. The returned events describe what the
	// store did with it.
	Add(ctx context.Context, text string, opts AddOptions) ([]Event, error)

	// GetAll lists the memories stored for opts.UserID.
	GetAll(ctx context.Context, opts SearchOptions) ([]Entry, error)

	// History returns the change log of a single memory, oldest first.
	History(ctx context.Context, memoryID string) ([]history.Record, error)

	// Delete removes a single memory.
	Delete(ctx context.Context, memoryID string) error

	// Close releases client resources.
	Close() error
}

// SearchOptions scopes Search and GetAll.
type SearchOptions struct {
	UserID string

	// Limit caps the number of results. Zero lets the backend decide.
	Limit int
}

// AddOptions scopes Add.
type AddOptions struct {
	UserID   string
	Metadata map[string]any
}

// Entry is a stored memory.
type Entry struct {
	ID        string         `json:"id"`
	Memory    string         `json:"memory"`
	UserID    string         `json:"user_id,omitempty"`
	Hash      string         `json:"hash,omitempty"`
	Score     float32        `json:"score,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at,omitzero"`
	UpdatedAt time.Time      `json:"updated_at,omitzero"`
}

// Event describes one change made by Add.
type Event struct {
	ID             string        `json:"id"`
	Memory         string        `json:"memory"`
	PreviousMemory string        `json:"previous_memory,omitempty"`
	Event          history.Event `json:"event"`
}

// Texts returns the memory text of each entry, preserving order.
func Texts(entries []Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Memory)
	}
	return out
}
