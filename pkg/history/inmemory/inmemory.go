package inmemory

import (
	"context"
	"sync"
	"time"

	"github.com/Sakibyash/infinoz-bot1/pkg/history"
)

// Store implements history.Store using an in-memory map keyed by memory ID.
type Store struct {
	mu      sync.RWMutex
	records map[string][]history.Record
}

// NewStore creates a new in-memory history store.
func NewStore() *Store {
	return &Store{
		records: make(map[string][]history.Record),
	}
}

// Append implements history.Store.
func (s *Store) Append(_ context.Context, rec *history.Record) error {
	if rec == nil {
		return history.ErrNilRecord
	}

	r := *rec
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[r.MemoryID] = append(s.records[r.MemoryID], r)
	return nil
}

// List implements history.Store. The returned slice is a copy.
func (s *Store) List(_ context.Context, memoryID string) ([]history.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recs := s.records[memoryID]
	if len(recs) == 0 {
		return nil, nil
	}

	out := make([]history.Record, len(recs))
	copy(out, recs)
	return out, nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}
