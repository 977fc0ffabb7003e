// Package history records every change the memory engine makes to a
// user's memories so individual memories can be audited over time.
package history

import (
	"context"
	"errors"
	"time"
)

// Event is the kind of change applied to a memory.
type Event string

const (
	EventAdd    Event = "ADD"
	EventUpdate Event = "UPDATE"
	EventDelete Event = "DELETE"
	EventNone   Event = "NONE"
)

// ErrNilRecord is returned when Append is called without a record.
var ErrNilRecord = errors.New("cannot append nil history record")

// Record is a single change to a memory.
type Record struct {
	ID        string    `json:"id"`
	MemoryID  string    `json:"memory_id"`
	UserID    string    `json:"user_id,omitempty"`
	OldMemory string    `json:"old_memory,omitempty"`
	NewMemory string    `json:"new_memory,omitempty"`
	Event     Event     `json:"event"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists history records.
type Store interface {
	// Append writes a record. Records are immutable once written.
	Append(ctx context.Context, rec *Record) error

	// List returns the records for a memory, oldest first.
	List(ctx context.Context, memoryID string) ([]Record, error)

	// Close releases any resources held by the store.
	Close() error
}
