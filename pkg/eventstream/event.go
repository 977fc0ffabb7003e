package eventstream

import (
	"time"

	"github.com/google/uuid"

	"github.com/Sakibyash/infinoz-bot1/pkg/memory"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeMemoryAdded is emitted after a conversation turn is stored.
	EventTypeMemoryAdded = "memhandler.memory.added"
)

// MemoryAddedEvent is a transport-neutral event payload for a stored turn.
type MemoryAddedEvent struct {
	SchemaVersion int            `json:"schema_version"`
	EventType     string         `json:"event_type"`
	EventID       string         `json:"event_id"`
	EmittedAt     time.Time      `json:"emitted_at"`
	UserID        string         `json:"user_id"`
	Transcript    string         `json:"transcript"`
	Results       []memory.Event `json:"results"`
}

// NewMemoryAddedEvent stamps a fresh event for a stored turn.
func NewMemoryAddedEvent(userID, transcript string, results []memory.Event) *MemoryAddedEvent {
	if results == nil {
		results = []memory.Event{}
	}

	return &MemoryAddedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeMemoryAdded,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		UserID:        userID,
		Transcript:    transcript,
		Results:       results,
	}
}
