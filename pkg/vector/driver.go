// Package vector provides interfaces and implementations for vector storage
// of memory embeddings.
package vector

import (
	"context"
	"time"
)

// Document is a stored memory with its embedding.
type Document struct {
	// ID is the memory ID.
	ID string

	// UserID scopes the document to a single user.
	UserID string

	// Content is the memory text.
	Content string

	// Hash is the md5 of Content.
	Hash string

	// Embedding is the vector representation of Content.
	Embedding []float32

	Metadata  map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}

// QueryResult represents a search result with similarity score.
type QueryResult struct {
	Document

	// Score is the cosine similarity to the query (higher = more similar).
	Score float32
}

// Filter restricts Query and List. An empty UserID matches every user.
type Filter struct {
	UserID string
}

// Matches reports whether doc satisfies the filter.
func (f Filter) Matches(doc Document) bool {
	return f.UserID == "" || f.UserID == doc.UserID
}

// Driver handles storage and retrieval of vector embeddings.
type Driver interface {
	// Add stores documents with their embeddings.
	// If a document with the same ID already exists, implementers should update
	// the document.
	Add(ctx context.Context, docs []Document) error

	// Query finds the topK most similar documents to the given embedding
	// among those matching filter.
	Query(ctx context.Context, embedding []float32, topK int, filter Filter) ([]QueryResult, error)

	// Get retrieves documents by their IDs. Unknown IDs are skipped.
	Get(ctx context.Context, ids []string) ([]Document, error)

	// List returns up to limit documents matching filter, newest first.
	// A limit of zero or less returns every match.
	List(ctx context.Context, filter Filter, limit int) ([]Document, error)

	// Delete removes documents by their IDs.
	Delete(ctx context.Context, ids []string) error

	// Close releases any resources held by the driver.
	Close() error
}

// DefaultTopK is used when Query is called with a non-positive topK.
const DefaultTopK = 10
