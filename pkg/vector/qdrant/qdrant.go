// Package qdrant provides a Qdrant vector driver over the gRPC client.
package qdrant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sort"
	"strconv"
	"time"

	"github.com/qdrant/go-client/qdrant"

	"github.com/Sakibyash/infinoz-bot1/pkg/vector"
)

const (
	// DefaultCollectionName is the default collection for storing memories.
	DefaultCollectionName = "memhandler"

	defaultPort = 6334

	scrollPageSize = 256

	payloadUserID    = "user_id"
	payloadContent   = "data"
	payloadHash      = "hash"
	payloadCreatedAt = "created_at"
	payloadUpdatedAt = "updated_at"
	payloadMetadata  = "metadata"
)

// Config holds configuration for the Qdrant driver.
type Config struct {
	// Target is "host" or "host:port" of the gRPC endpoint. Port defaults to 6334.
	Target string

	APIKey string
	UseTLS bool

	// CollectionName defaults to DefaultCollectionName.
	CollectionName string

	// Dimensions is required to create the collection.
	Dimensions uint
}

// Driver implements vector.Driver using Qdrant.
type Driver struct {
	client     *qdrant.Client
	collection string
	logger     *slog.Logger
}

// NewDriver connects to Qdrant and ensures the collection exists with cosine
// distance and a keyword index on user_id.
func NewDriver(ctx context.Context, c Config, logger *slog.Logger) (*Driver, error) {
	if c.Target == "" {
		return nil, errors.New("qdrant target is required")
	}
	if c.Dimensions == 0 {
		return nil, errors.New("qdrant embedding dimensions cannot be 0, must be configured")
	}

	host, port, err := splitTarget(c.Target)
	if err != nil {
		return nil, err
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: c.APIKey,
		UseTLS: c.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", vector.ErrConnection, err)
	}

	collection := c.CollectionName
	if collection == "" {
		collection = DefaultCollectionName
	}

	d := &Driver{client: client, collection: collection, logger: logger}
	if err := d.ensureCollection(ctx, c.Dimensions); err != nil {
		client.Close()
		return nil, err
	}

	logger.Info("connected to Qdrant",
		"target", c.Target,
		"collection", collection,
		"dimensions", c.Dimensions,
	)

	return d, nil
}

func splitTarget(target string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(target)
	if err != nil {
		// no port
		return target, defaultPort, nil //nolint:nilerr // bare host
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid qdrant port %q: %w", portStr, err)
	}
	return host, port, nil
}

func (d *Driver) ensureCollection(ctx context.Context, dims uint) error {
	exists, err := d.client.CollectionExists(ctx, d.collection)
	if err != nil {
		return fmt.Errorf("%w: checking collection: %w", vector.ErrConnection, err)
	}
	if exists {
		return nil
	}

	err = d.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: d.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dims),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("creating collection %q: %w", d.collection, err)
	}

	_, err = d.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: d.collection,
		FieldName:      payloadUserID,
		FieldType:      qdrant.PtrOf(qdrant.FieldType_FieldTypeKeyword),
	})
	if err != nil {
		return fmt.Errorf("creating user_id index: %w", err)
	}

	return nil
}

// Add upserts documents with their embeddings.
func (d *Driver) Add(ctx context.Context, docs []vector.Document) error {
	if len(docs) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, 0, len(docs))
	for _, doc := range docs {
		payload, err := toPayload(doc)
		if err != nil {
			return fmt.Errorf("encoding payload for doc %s: %w", doc.ID, err)
		}
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewID(doc.ID),
			Vectors: qdrant.NewVectors(doc.Embedding...),
			Payload: payload,
		})
	}

	_, err := d.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: d.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("upserting points: %w", err)
	}

	d.logger.Debug("added documents to qdrant", "count", len(docs))

	return nil
}

func toFilter(filter vector.Filter) *qdrant.Filter {
	if filter.UserID == "" {
		return nil
	}
	return &qdrant.Filter{
		Must: []*qdrant.Condition{qdrant.NewMatch(payloadUserID, filter.UserID)},
	}
}

// Query finds the topK most similar documents to the given embedding.
// Qdrant returns cosine similarity directly for cosine collections.
func (d *Driver) Query(ctx context.Context, embedding []float32, topK int, filter vector.Filter) ([]vector.QueryResult, error) {
	if topK <= 0 {
		topK = vector.DefaultTopK
	}

	points, err := d.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: d.collection,
		Query:          qdrant.NewQuery(embedding...),
		Filter:         toFilter(filter),
		WithPayload:    qdrant.NewWithPayload(true),
		Limit:          qdrant.PtrOf(uint64(topK)),
	})
	if err != nil {
		return nil, fmt.Errorf("querying points: %w", err)
	}

	results := make([]vector.QueryResult, 0, len(points))
	for _, p := range points {
		doc := fromPayload(p.GetId(), p.GetPayload())
		results = append(results, vector.QueryResult{Document: doc, Score: p.GetScore()})
	}

	d.logger.Debug("queried qdrant", "results", len(results), "user_id", filter.UserID)

	return results, nil
}

func pointIDs(ids []string) []*qdrant.PointId {
	out := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		out[i] = qdrant.NewID(id)
	}
	return out
}

// Get retrieves documents by their IDs.
func (d *Driver) Get(ctx context.Context, ids []string) ([]vector.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	points, err := d.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: d.collection,
		Ids:            pointIDs(ids),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(true),
	})
	if err != nil {
		return nil, fmt.Errorf("getting points: %w", err)
	}

	docs := make([]vector.Document, 0, len(points))
	for _, p := range points {
		doc := fromPayload(p.GetId(), p.GetPayload())
		doc.Embedding = p.GetVectors().GetVector().GetData()
		docs = append(docs, doc)
	}

	return docs, nil
}

// List scrolls documents matching filter and returns them newest first.
func (d *Driver) List(ctx context.Context, filter vector.Filter, limit int) ([]vector.Document, error) {
	req := &qdrant.ScrollPoints{
		CollectionName: d.collection,
		Filter:         toFilter(filter),
		WithPayload:    qdrant.NewWithPayload(true),
		Limit:          qdrant.PtrOf(uint32(scrollPageSize)),
	}

	var docs []vector.Document
	for {
		points, err := d.client.Scroll(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("scrolling points: %w", err)
		}
		if len(points) == 0 {
			break
		}

		for _, p := range points {
			docs = append(docs, fromPayload(p.GetId(), p.GetPayload()))
		}

		// The offset point is included in the next page, so it is dropped here
		// and re-read. A page that only repeats the offset is the end.
		last := points[len(points)-1].GetId()
		if req.Offset != nil && req.Offset.String() == last.String() {
			break
		}
		req.Offset = last
		docs = docs[:len(docs)-1]
	}

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

	_, err := d.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: d.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         qdrant.NewPointsSelector(pointIDs(ids)...),
	})
	if err != nil {
		return fmt.Errorf("deleting points: %w", err)
	}

	d.logger.Debug("deleted documents from qdrant", "count", len(ids))

	return nil
}

// Close closes the gRPC connection.
func (d *Driver) Close() error {
	return d.client.Close()
}

func toPayload(doc vector.Document) (map[string]*qdrant.Value, error) {
	now := time.Now().UTC()
	createdAt, updatedAt := doc.CreatedAt, doc.UpdatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}

	raw := map[string]any{
		payloadUserID:    doc.UserID,
		payloadContent:   doc.Content,
		payloadHash:      doc.Hash,
		payloadCreatedAt: createdAt.Format(time.RFC3339Nano),
		payloadUpdatedAt: updatedAt.Format(time.RFC3339Nano),
	}
	if len(doc.Metadata) > 0 {
		raw[payloadMetadata] = doc.Metadata
	}

	return qdrant.TryValueMap(raw)
}

func fromPayload(id *qdrant.PointId, payload map[string]*qdrant.Value) vector.Document {
	doc := vector.Document{
		ID:      id.GetUuid(),
		UserID:  payload[payloadUserID].GetStringValue(),
		Content: payload[payloadContent].GetStringValue(),
		Hash:    payload[payloadHash].GetStringValue(),
	}
	if doc.ID == "" {
		doc.ID = strconv.FormatUint(id.GetNum(), 10)
	}

	doc.CreatedAt, _ = time.Parse(time.RFC3339Nano, payload[payloadCreatedAt].GetStringValue())
	doc.UpdatedAt, _ = time.Parse(time.RFC3339Nano, payload[payloadUpdatedAt].GetStringValue())

	if meta := payload[payloadMetadata].GetStructValue(); meta != nil {
		doc.Metadata = make(map[string]any, len(meta.GetFields()))
		for k, v := range meta.GetFields() {
			doc.Metadata[k] = valueToAny(v)
		}
	}

	return doc
}

func valueToAny(v *qdrant.Value) any {
	switch k := v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return k.StringValue
	case *qdrant.Value_IntegerValue:
		return k.IntegerValue
	case *qdrant.Value_DoubleValue:
		return k.DoubleValue
	case *qdrant.Value_BoolValue:
		return k.BoolValue
	case *qdrant.Value_StructValue:
		m := make(map[string]any, len(k.StructValue.GetFields()))
		for key, inner := range k.StructValue.GetFields() {
			m[key] = valueToAny(inner)
		}
		return m
	case *qdrant.Value_ListValue:
		out := make([]any, 0, len(k.ListValue.GetValues()))
		for _, inner := range k.ListValue.GetValues() {
			out = append(out, valueToAny(inner))
		}
		return out
	default:
		return nil
	}
}
