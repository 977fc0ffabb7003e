package testutils

import (
	"context"

	"github.com/Sakibyash/infinoz-bot1/pkg/vector"
)

// MockVectorDriver is a test vector driver that returns canned query results
// and records what it was asked.
type MockVectorDriver struct {
	Documents []vector.Document
	Results   []vector.QueryResult

	// LastFilter is the filter passed to the most recent Query or List.
	LastFilter vector.Filter

	// LastTopK is the topK passed to the most recent Query.
	LastTopK int

	Deleted []string

	// Err is returned by every method when set.
	Err error
}

func NewMockVectorDriver() *MockVectorDriver {
	return &MockVectorDriver{
		Documents: make([]vector.Document, 0),
		Results:   make([]vector.QueryResult, 0),
	}
}

func (m *MockVectorDriver) Add(_ context.Context, docs []vector.Document) error {
	if m.Err != nil {
		return m.Err
	}
	m.Documents = append(m.Documents, docs...)
	return nil
}

func (m *MockVectorDriver) Query(_ context.Context, _ []float32, topK int, filter vector.Filter) ([]vector.QueryResult, error) {
	m.LastFilter = filter
	m.LastTopK = topK
	if m.Err != nil {
		return nil, m.Err
	}
	if topK <= 0 || len(m.Results) < topK {
		return m.Results, nil
	}
	return m.Results[:topK], nil
}

func (m *MockVectorDriver) Get(_ context.Context, ids []string) ([]vector.Document, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]vector.Document, 0, len(ids))
	for _, doc := range m.Documents {
		for _, id := range ids {
			if doc.ID == id {
				out = append(out, doc)
			}
		}
	}
	return out, nil
}

func (m *MockVectorDriver) List(_ context.Context, filter vector.Filter, limit int) ([]vector.Document, error) {
	m.LastFilter = filter
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]vector.Document, 0, len(m.Documents))
	for _, doc := range m.Documents {
		if filter.Matches(doc) {
			out = append(out, doc)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockVectorDriver) Delete(_ context.Context, ids []string) error {
	if m.Err != nil {
		return m.Err
	}
	m.Deleted = append(m.Deleted, ids...)
	return nil
}

func (m *MockVectorDriver) Close() error {
	return nil
}
