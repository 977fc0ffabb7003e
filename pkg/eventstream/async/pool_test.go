package async_test

import (
	"context"
	"errors"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Sakibyash/infinoz-bot1/pkg/eventstream"
	"github.com/Sakibyash/infinoz-bot1/pkg/eventstream/async"
)

type recordingPublisher struct {
	mu          sync.Mutex
	events      []*eventstream.MemoryAddedEvent
	err         error
	block       chan struct{}
	closed      bool
	sawDeadline bool
}

func (r *recordingPublisher) PublishMemoryAdded(ctx context.Context, event *eventstream.MemoryAddedEvent) error {
	if r.block != nil {
		<-r.block
	}
	if _, ok := ctx.Deadline(); ok {
		r.mu.Lock()
		r.sawDeadline = true
		r.mu.Unlock()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, event)
	return nil
}

func (r *recordingPublisher) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *recordingPublisher) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

var _ = Describe("Pool", func() {
	event := func(user string) *eventstream.MemoryAddedEvent {
		return eventstream.NewMemoryAddedEvent(user, "User: hi\nAI: hello", nil)
	}

	It("requires a publisher", func() {
		_, err := async.NewPool(nil, async.Config{})
		Expect(err).To(HaveOccurred())
	})

	It("publishes queued events and drains them on Close", func() {
		inner := &recordingPublisher{}
		pool, err := async.NewPool(inner, async.Config{NumWorkers: 2})
		Expect(err).NotTo(HaveOccurred())

		for range 10 {
			Expect(pool.PublishMemoryAdded(context.Background(), event("u1"))).To(Succeed())
		}

		Expect(pool.Close()).To(Succeed())
		Expect(inner.count()).To(Equal(10))
		Expect(inner.closed).To(BeTrue())
		Expect(inner.sawDeadline).To(BeTrue())
	})

	It("rejects nil events", func() {
		pool, err := async.NewPool(&recordingPublisher{}, async.Config{})
		Expect(err).NotTo(HaveOccurred())
		defer pool.Close()

		Expect(pool.PublishMemoryAdded(context.Background(), nil)).To(MatchError(eventstream.ErrNilEvent))
	})

	It("drops events when the queue is full", func() {
		inner := &recordingPublisher{block: make(chan struct{})}
		pool, err := async.NewPool(inner, async.Config{NumWorkers: 1, QueueSize: 1})
		Expect(err).NotTo(HaveOccurred())

		// One event is held by the blocked worker, one fills the queue.
		Expect(pool.PublishMemoryAdded(context.Background(), event("u1"))).To(Succeed())
		Eventually(func() error {
			return pool.PublishMemoryAdded(context.Background(), event("u2"))
		}).Should(MatchError(async.ErrQueueFull))

		close(inner.block)
		Expect(pool.Close()).To(Succeed())
	})

	It("reports worker failures through OnError", func() {
		inner := &recordingPublisher{err: errors.New("broker down")}
		pool, err := async.NewPool(inner, async.Config{NumWorkers: 1})
		Expect(err).NotTo(HaveOccurred())

		var mu sync.Mutex
		var failures []error
		pool.OnError(func(err error) {
			mu.Lock()
			defer mu.Unlock()
			failures = append(failures, err)
		})

		Expect(pool.PublishMemoryAdded(context.Background(), event("u1"))).To(Succeed())
		Expect(pool.Close()).To(Succeed())

		mu.Lock()
		defer mu.Unlock()
		Expect(failures).To(HaveLen(1))
	})

	It("refuses events after Close", func() {
		pool, err := async.NewPool(&recordingPublisher{}, async.Config{})
		Expect(err).NotTo(HaveOccurred())
		Expect(pool.Close()).To(Succeed())
		Expect(pool.Close()).To(Succeed())

		Expect(pool.PublishMemoryAdded(context.Background(), event("u1"))).To(MatchError(async.ErrClosed))
	})
})
