// Package async wraps an eventstream.Publisher in a worker pool so that
// publishing never blocks the gateway's request path.
//
// Events are queued on a bounded channel; when the queue is full the event is
// dropped and ErrQueueFull is returned. Close drains queued events before
// closing the wrapped publisher.
package async

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/Sakibyash/infinoz-bot1/pkg/eventstream"
)

var (
	defaultNumWorkers     uint = 2
	defaultQueueSize      uint = 256
	defaultPublishTimeout      = 10 * time.Second
)

// ErrQueueFull is returned when an event is dropped because the queue is full.
var ErrQueueFull = errors.New("event queue full, event dropped")

// ErrClosed is returned for events published after Close.
var ErrClosed = errors.New("publisher closed")

// Config is the configuration options for the pool.
type Config struct {
	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered event channel (defaults to 256).
	QueueSize uint

	// PublishTimeout bounds each call to the wrapped publisher.
	PublishTimeout time.Duration

	Logger *slog.Logger
}

// Pool publishes events through the wrapped publisher on background workers.
type Pool struct {
	inner   eventstream.Publisher
	config  Config
	queue   chan *eventstream.MemoryAddedEvent
	wg      sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
	logger  *slog.Logger
	onError func(error)
}

var _ eventstream.Publisher = (*Pool)(nil)

// NewPool creates a Pool around inner and starts its workers.
func NewPool(inner eventstream.Publisher, c Config) (*Pool, error) {
	if inner == nil {
		return nil, errors.New("async pool requires a publisher")
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}
	if c.QueueSize == 0 {
		c.QueueSize = defaultQueueSize
	}
	if c.PublishTimeout <= 0 {
		c.PublishTimeout = defaultPublishTimeout
	}
	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.DiscardHandler)
	}

	p := &Pool{
		inner:  inner,
		config: c,
		queue:  make(chan *eventstream.MemoryAddedEvent, c.QueueSize),
		logger: c.Logger,
	}

	p.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go p.worker(i)
	}

	return p, nil
}

// OnError registers a callback for publish failures on the workers.
// It must be called before the first event is published.
func (p *Pool) OnError(fn func(error)) {
	p.onError = fn
}

// PublishMemoryAdded queues event and returns immediately.
func (p *Pool) PublishMemoryAdded(_ context.Context, event *eventstream.MemoryAddedEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrClosed
	}

	select {
	case p.queue <- event:
		p.logger.Debug("event queued", "event_id", event.EventID, "user_id", event.UserID)
		return nil
	default:
		p.logger.Error("event not queued, queue full, event dropped",
			"event_id", event.EventID,
			"user_id", event.UserID,
		)
		return ErrQueueFull
	}
}

// Close stops accepting events, waits for queued events to be published and
// closes the wrapped publisher.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
	return p.inner.Close()
}

func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("event worker started", "worker_id", id)

	for event := range p.queue {
		p.publish(event)
	}

	p.logger.Debug("event worker stopped", "worker_id", id)
}

func (p *Pool) publish(event *eventstream.MemoryAddedEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), p.config.PublishTimeout)
	defer cancel()

	if err := p.inner.PublishMemoryAdded(ctx, event); err != nil {
		p.logger.Error("publishing memory event failed",
			"event_id", event.EventID,
			"user_id", event.UserID,
			"error", err,
		)
		if p.onError != nil {
			p.onError(err)
		}
		return
	}

	p.logger.Debug("memory event published", "event_id", event.EventID)
}
