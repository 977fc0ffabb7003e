// Package inmemory provides a brute-force vector driver for tests and
// single-process deployments that do not need persistence.
package inmemory

import (
	"context"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/Sakibyash/infinoz-bot1/pkg/vector"
)

// Driver implements vector.Driver using an in-memory map.
type Driver struct {
	mu   sync.RWMutex
	docs map[string]vector.Document
}

// NewDriver creates a new in-memory vector driver.
func NewDriver() *Driver {
	return &Driver{
		docs: make(map[string]vector.Document),
	}
}

func clone(doc vector.Document) vector.Document {
	doc.Embedding = slices.Clone(doc.Embedding)
	doc.Metadata = maps.Clone(doc.Metadata)
	return doc
}

// Add stores documents, replacing any with the same ID.
func (d *Driver) Add(_ context.Context, docs []vector.Document) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now().UTC()
	for _, doc := range docs {
		doc = clone(doc)
		if existing, ok := d.docs[doc.ID]; ok {
			doc.CreatedAt = existing.CreatedAt
		}
		if doc.CreatedAt.IsZero() {
			doc.CreatedAt = now
		}
		if doc.UpdatedAt.IsZero() {
			doc.UpdatedAt = now
		}
		d.docs[doc.ID] = doc
	}

	return nil
}

// Query scores every matching document by cosine similarity.
func (d *Driver) Query(_ context.Context, embedding []float32, topK int, filter vector.Filter) ([]vector.QueryResult, error) {
	if topK <= 0 {
		topK = vector.DefaultTopK
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	results := make([]vector.QueryResult, 0, len(d.docs))
	for _, doc := range d.docs {
		if !filter.Matches(doc) {
			continue
		}
		results = append(results, vector.QueryResult{
			Document: clone(doc),
			Score:    vector.CosineSimilarity(embedding, doc.Embedding),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score == results[j].Score {
			return results[i].ID < results[j].ID
		}
		return results[i].Score > results[j].Score
	})

	if len(results) > topK {
		results = results[:topK]
	}

	return results, nil
}

// Get retrieves documents by their IDs.
func (d *Driver) Get(_ context.Context, ids []string) ([]vector.Document, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var docs []vector.Document
	for _, id := range ids {
		if doc, ok := d.docs[id]; ok {
			docs = append(docs, clone(doc))
		}
	}

	return docs, nil
}

// List returns documents matching filter, newest first.
func (d *Driver) List(_ context.Context, filter vector.Filter, limit int) ([]vector.Document, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var docs []vector.Document
	for _, doc := range d.docs {
		if filter.Matches(doc) {
			docs = append(docs, clone(doc))
		}
	}

	sort.SliceStable(docs, func(i, j int) bool {
		if docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].ID < docs[j].ID
		}
		return docs[i].CreatedAt.After(docs[j].CreatedAt)
	})

	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}

	return docs, nil
}

// Delete removes documents by their IDs.
func (d *Driver) Delete(_ context.Context, ids []string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, id := range ids {
		delete(d.docs, id)
	}

	return nil
}

// Close is a no-op for the in-memory driver.
func (d *Driver) Close() error {
	return nil
}
