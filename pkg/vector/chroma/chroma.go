// Package chroma provides a Chroma vector database driver implementation.
package chroma

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/Sakibyash/infinoz-bot1/pkg/vector"
)

const (
	// DefaultCollectionName is the default collection name for storing memories.
	DefaultCollectionName = "memhandler"

	defaultMaxRetries    = 5
	defaultRetryDelay    = 500 * time.Millisecond
	defaultMaxRetryDelay = 5 * time.Second

	collectionsPath = "/api/v2/tenants/default_tenant/databases/default_database/collections"

	// metadata keys reserved by the driver
	metaUserID    = "user_id"
	metaHash      = "hash"
	metaCreatedAt = "created_at"
	metaUpdatedAt = "updated_at"
	metaExtra     = "metadata"
)

// Driver implements vector.Driver using Chroma's REST API.
type Driver struct {
	client         *resty.Client
	collectionName string
	collectionID   string
	logger         *slog.Logger
}

// Config holds configuration for the Chroma driver.
type Config struct {
	// URL is the Chroma server URL (e.g., "http://localhost:8000").
	URL string

	// CollectionName is the name of the collection to use.
	// Defaults to DefaultCollectionName if empty.
	CollectionName string

	// MaxRetries bounds connection attempts while Chroma is starting up.
	MaxRetries int

	// RetryDelay is the initial delay between attempts. It doubles up to MaxRetryDelay.
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
}

// NewDriver creates a new Chroma vector driver. The collection is created
// with cosine distance if it does not exist yet.
func NewDriver(c Config, logger *slog.Logger) (*Driver, error) {
	if c.URL == "" {
		return nil, errors.New("chroma URL is required")
	}

	collectionName := c.CollectionName
	if collectionName == "" {
		collectionName = DefaultCollectionName
	}

	d := &Driver{
		client: resty.New().
			SetBaseURL(c.URL).
			SetTimeout(60*time.Second).
			SetHeader("Content-Type", "application/json"),
		collectionName: collectionName,
		logger:         logger,
	}

	collectionID, err := d.connect(context.Background(), c)
	if err != nil {
		return nil, fmt.Errorf("getting or creating collection %q: %w", collectionName, err)
	}
	d.collectionID = collectionID

	logger.Info("connected to Chroma",
		"url", c.URL,
		"collection", collectionName,
		"collection_id", collectionID,
	)

	return d, nil
}

// connect retries getOrCreateCollection with exponential backoff.
func (d *Driver) connect(ctx context.Context, c Config) (string, error) {
	maxRetries := c.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	delay := c.RetryDelay
	if delay <= 0 {
		delay = defaultRetryDelay
	}
	maxDelay := c.MaxRetryDelay
	if maxDelay <= 0 {
		maxDelay = defaultMaxRetryDelay
	}

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		id, err := d.getOrCreateCollection(ctx)
		if err == nil {
			return id, nil
		}
		lastErr = err

		if attempt == maxRetries {
			break
		}

		d.logger.Debug("chroma not ready, retrying",
			"attempt", attempt,
			"delay", delay,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}

		delay = min(delay*2, maxDelay)
	}

	return "", fmt.Errorf("%w after %d attempts: %w", vector.ErrConnection, maxRetries, lastErr)
}

// getOrCreateCollection gets an existing collection or creates a new one.
func (d *Driver) getOrCreateCollection(ctx context.Context) (string, error) {
	var collection chromaCollection

	resp, err := d.client.R().
		SetContext(ctx).
		SetResult(&collection).
		Get(collectionsPath + "/" + d.collectionName)
	if err != nil {
		return "", fmt.Errorf("sending get request: %w", err)
	}
	if resp.StatusCode() == http.StatusOK {
		return collection.ID, nil
	}

	resp, err = d.client.R().
		SetContext(ctx).
		SetBody(chromaCreateCollectionRequest{
			Name:        d.collectionName,
			Metadata:    map[string]any{"hnsw:space": "cosine"},
			GetOrCreate: true,
		}).
		SetResult(&collection).
		Post(collectionsPath)
	if err != nil {
		return "", fmt.Errorf("sending create request: %w", err)
	}

	if resp.StatusCode() != http.StatusOK && resp.StatusCode() != http.StatusCreated {
		return "", fmt.Errorf("failed to create collection: status %d: %s", resp.StatusCode(), resp.String())
	}

	return collection.ID, nil
}

func (d *Driver) collectionURL(op string) string {
	return collectionsPath + "/" + d.collectionID + "/" + op
}

func (d *Driver) post(ctx context.Context, op string, body, result any) error {
	req := d.client.R().SetContext(ctx).SetBody(body)
	if result != nil {
		req.SetResult(result)
	}

	resp, err := req.Post(d.collectionURL(op))
	if err != nil {
		return fmt.Errorf("sending %s request: %w", op, err)
	}

	if resp.StatusCode() != http.StatusOK && resp.StatusCode() != http.StatusCreated {
		return fmt.Errorf("failed to %s: status %d: %s", op, resp.StatusCode(), resp.String())
	}

	return nil
}

// toMetadata flattens the document payload into Chroma's scalar metadata.
func toMetadata(doc vector.Document) (map[string]any, error) {
	now := time.Now().UTC()
	createdAt, updatedAt := doc.CreatedAt, doc.UpdatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}

	m := map[string]any{
		metaUserID:    doc.UserID,
		metaHash:      doc.Hash,
		metaCreatedAt: createdAt.Format(time.RFC3339Nano),
		metaUpdatedAt: updatedAt.Format(time.RFC3339Nano),
	}

	if len(doc.Metadata) > 0 {
		b, err := json.Marshal(doc.Metadata)
		if err != nil {
			return nil, err
		}
		m[metaExtra] = string(b)
	}

	return m, nil
}

// fromMetadata restores the payload written by toMetadata.
func fromMetadata(doc *vector.Document, m map[string]any) {
	if m == nil {
		return
	}
	if v, ok := m[metaUserID].(string); ok {
		doc.UserID = v
	}
	if v, ok := m[metaHash].(string); ok {
		doc.Hash = v
	}
	if v, ok := m[metaCreatedAt].(string); ok {
		doc.CreatedAt, _ = time.Parse(time.RFC3339Nano, v)
	}
	if v, ok := m[metaUpdatedAt].(string); ok {
		doc.UpdatedAt, _ = time.Parse(time.RFC3339Nano, v)
	}
	if v, ok := m[metaExtra].(string); ok && v != "" {
		_ = json.Unmarshal([]byte(v), &doc.Metadata)
	}
}

func where(filter vector.Filter) map[string]any {
	if filter.UserID == "" {
		return nil
	}
	return map[string]any{metaUserID: filter.UserID}
}

// Add upserts documents with their embeddings.
func (d *Driver) Add(ctx context.Context, docs []vector.Document) error {
	if len(docs) == 0 {
		return nil
	}

	req := chromaUpsertRequest{
		IDs:        make([]string, len(docs)),
		Embeddings: make([][]float32, len(docs)),
		Metadatas:  make([]map[string]any, len(docs)),
		Documents:  make([]string, len(docs)),
	}

	for i, doc := range docs {
		meta, err := toMetadata(doc)
		if err != nil {
			return fmt.Errorf("encoding metadata for doc %s: %w", doc.ID, err)
		}
		req.IDs[i] = doc.ID
		req.Embeddings[i] = doc.Embedding
		req.Metadatas[i] = meta
		req.Documents[i] = doc.Content
	}

	if err := d.post(ctx, "upsert", req, nil); err != nil {
		return err
	}

	d.logger.Debug("added documents to chroma", "count", len(docs))

	return nil
}

// Query finds the topK most similar documents to the given embedding.
func (d *Driver) Query(ctx context.Context, embedding []float32, topK int, filter vector.Filter) ([]vector.QueryResult, error) {
	if topK <= 0 {
		topK = vector.DefaultTopK
	}

	var queryResp chromaQueryResponse
	err := d.post(ctx, "query", chromaQueryRequest{
		QueryEmbeddings: [][]float32{embedding},
		NResults:        topK,
		Where:           where(filter),
		Include:         []string{"documents", "metadatas", "distances"},
	}, &queryResp)
	if err != nil {
		return nil, err
	}

	// Process first group (we only query with one embedding)
	if len(queryResp.IDs) == 0 || len(queryResp.IDs[0]) == 0 {
		return nil, nil
	}

	ids := queryResp.IDs[0]
	results := make([]vector.QueryResult, 0, len(ids))
	for i, id := range ids {
		result := vector.QueryResult{Document: vector.Document{ID: id}}

		if len(queryResp.Documents) > 0 && i < len(queryResp.Documents[0]) {
			result.Content = queryResp.Documents[0][i]
		}
		if len(queryResp.Metadatas) > 0 && i < len(queryResp.Metadatas[0]) {
			fromMetadata(&result.Document, queryResp.Metadatas[0][i])
		}
		// cosine space distance is 1 - cosine similarity
		if len(queryResp.Distances) > 0 && i < len(queryResp.Distances[0]) {
			result.Score = 1.0 - queryResp.Distances[0][i]
		}

		results = append(results, result)
	}

	d.logger.Debug("queried chroma", "results", len(results), "user_id", filter.UserID)

	return results, nil
}

func (d *Driver) get(ctx context.Context, req chromaGetRequest) ([]vector.Document, error) {
	var getResp chromaGetResponse
	if err := d.post(ctx, "get", req, &getResp); err != nil {
		return nil, err
	}

	docs := make([]vector.Document, len(getResp.IDs))
	for i, id := range getResp.IDs {
		docs[i].ID = id
		if i < len(getResp.Documents) {
			docs[i].Content = getResp.Documents[i]
		}
		if i < len(getResp.Metadatas) {
			fromMetadata(&docs[i], getResp.Metadatas[i])
		}
		if i < len(getResp.Embeddings) {
			docs[i].Embedding = getResp.Embeddings[i]
		}
	}

	return docs, nil
}

// Get retrieves documents by their IDs.
func (d *Driver) Get(ctx context.Context, ids []string) ([]vector.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	return d.get(ctx, chromaGetRequest{
		IDs:     ids,
		Include: []string{"documents", "metadatas", "embeddings"},
	})
}

// List returns documents matching filter, newest first.
func (d *Driver) List(ctx context.Context, filter vector.Filter, limit int) ([]vector.Document, error) {
	docs, err := d.get(ctx, chromaGetRequest{
		Where:   where(filter),
		Include: []string{"documents", "metadatas"},
	})
	if err != nil {
		return nil, err
	}

	// Chroma has no ordering; sort client side before limiting.
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].CreatedAt.After(docs[j].CreatedAt)
	})

	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}

	return docs, nil
}

// Delete removes documents by their IDs.
func (d *Driver) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	if err := d.post(ctx, "delete", chromaDeleteRequest{IDs: ids}, nil); err != nil {
		return err
	}

	d.logger.Debug("deleted documents from chroma", "count", len(ids))

	return nil
}

// Close releases resources held by the driver.
func (d *Driver) Close() error {
	// HTTP client doesn't require explicit cleanup
	return nil
}
