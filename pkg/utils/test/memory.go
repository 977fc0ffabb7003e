package testutils

import (
	"context"
	"sync"

	"github.com/Sakibyash/infinoz-bot1/pkg/history"
	"github.com/Sakibyash/infinoz-bot1/pkg/memory"
)

// AddCall captures one call to MockMemoryClient.Add.
type AddCall struct {
	Text string
	Opts memory.AddOptions
}

// SearchCall captures one call to MockMemoryClient.Search.
type SearchCall struct {
	Query string
	Opts  memory.SearchOptions
}

// MockMemoryClient is a test memory client that records calls and returns
// configurable results.
type MockMemoryClient struct {
	mu sync.Mutex

	SearchResults []memory.Entry
	AddResults    []memory.Event
	AllResults    []memory.Entry
	HistoryResult []history.Record

	Searches []SearchCall
	Adds     []AddCall
	Deleted  []string

	// SearchErr, AddErr and DeleteErr make the matching method fail.
	SearchErr error
	AddErr    error
	DeleteErr error

	Closed bool
}

// NewMockMemoryClient creates a new mock memory client.
func NewMockMemoryClient() *MockMemoryClient {
	return &MockMemoryClient{}
}

// SetMemories makes Search and GetAll return one entry per text.
func (m *MockMemoryClient) SetMemories(texts ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SearchResults = make([]memory.Entry, 0, len(texts))
	for _, t := range texts {
		m.SearchResults = append(m.SearchResults, memory.Entry{ID: "mem-" + t, Memory: t})
	}
	m.AllResults = m.SearchResults
}

func (m *MockMemoryClient) Search(_ context.Context, query string, opts memory.SearchOptions) ([]memory.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Searches = append(m.Searches, SearchCall{Query: query, Opts: opts})
	if m.SearchErr != nil {
		return nil, m.SearchErr
	}
	return m.SearchResults, nil
}

func (m *MockMemoryClient) Add(_ context.Context, text string, opts memory.AddOptions) ([]memory.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Adds = append(m.Adds, AddCall{Text: text, Opts: opts})
	if m.AddErr != nil {
		return nil, m.AddErr
	}
	return m.AddResults, nil
}

func (m *MockMemoryClient) GetAll(_ context.Context, opts memory.SearchOptions) ([]memory.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Searches = append(m.Searches, SearchCall{Opts: opts})
	if m.SearchErr != nil {
		return nil, m.SearchErr
	}
	return m.AllResults, nil
}

func (m *MockMemoryClient) History(_ context.Context, _ string) ([]history.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.HistoryResult, nil
}

func (m *MockMemoryClient) Delete(_ context.Context, memoryID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	m.Deleted = append(m.Deleted, memoryID)
	return nil
}

func (m *MockMemoryClient) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}
