package eventstream

import "context"

// Publisher publishes memory events to an event stream backend.
type Publisher interface {
	PublishMemoryAdded(ctx context.Context, event *MemoryAddedEvent) error
	Close() error
}
