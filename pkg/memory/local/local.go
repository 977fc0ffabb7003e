// Package local is the self-hosted memory engine. It extracts facts from a
// conversation turn with an LLM, embeds them, deduplicates against the user's
// existing memories in a vector store and records every change in a history
// store.
package local

import (
	"context"
	"crypto/md5" //nolint:gosec // content fingerprint, not a security boundary
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Sakibyash/infinoz-bot1/pkg/embeddings"
	"github.com/Sakibyash/infinoz-bot1/pkg/history"
	"github.com/Sakibyash/infinoz-bot1/pkg/llm"
	"github.com/Sakibyash/infinoz-bot1/pkg/memory"
	"github.com/Sakibyash/infinoz-bot1/pkg/vector"
)

// DefaultDedupThreshold is the similarity at or above which a new fact is
// considered already known.
const DefaultDedupThreshold = 0.9

// DefaultMatchThreshold is the similarity an existing memory needs before an
// UPDATE or DELETE fact may act on it.
const DefaultMatchThreshold = 0.6

// Config holds the collaborators of the local engine.
type Config struct {
	Embedder embeddings.Embedder
	Vectors  vector.Driver
	History  history.Store

	// LLM extracts facts from each turn. When nil, or when Infer is false,
	// the whole turn is stored as a single memory.
	LLM   llm.Caller
	Infer bool

	// DedupThreshold defaults to DefaultDedupThreshold when zero.
	DedupThreshold float64

	// MatchThreshold defaults to DefaultMatchThreshold when zero.
	MatchThreshold float64

	Logger *slog.Logger

	// Now and NewID are overridable for tests.
	Now   func() time.Time
	NewID func() string
}

// Client implements memory.Client.
type Client struct {
	embedder embeddings.Embedder
	vectors  vector.Driver
	history  history.Store
	llm      llm.Caller
	infer    bool
	dedup    float32
	match    float32
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
}

var _ memory.Client = (*Client)(nil)

// New creates a local memory engine.
func New(cfg Config) (*Client, error) {
	if cfg.Embedder == nil {
		return nil, errors.New("local memory: embedder is required")
	}
	if cfg.Vectors == nil {
		return nil, errors.New("local memory: vector driver is required")
	}
	if cfg.History == nil {
		return nil, errors.New("local memory: history store is required")
	}

	c := &Client{
		embedder: cfg.Embedder,
		vectors:  cfg.Vectors,
		history:  cfg.History,
		llm:      cfg.LLM,
		infer:    cfg.Infer,
		dedup:    float32(cfg.DedupThreshold),
		match:    float32(cfg.MatchThreshold),
		logger:   cfg.Logger,
		now:      cfg.Now,
		newID:    cfg.NewID,
	}

	if c.dedup <= 0 {
		c.dedup = DefaultDedupThreshold
	}
	if c.match <= 0 {
		c.match = DefaultMatchThreshold
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	if c.now == nil {
		c.now = func() time.Time { return time.Now().UTC() }
	}
	if c.newID == nil {
		c.newID = uuid.NewString
	}

	return c, nil
}

// Add extracts facts from text and reconciles each one with the user's
// nearest existing memory.
func (c *Client) Add(ctx context.Context, text string, opts memory.AddOptions) ([]memory.Event, error) {
	if opts.UserID == "" {
		return nil, memory.ErrEmptyUserID
	}

	facts, err := c.extractFacts(ctx, text)
	if err != nil {
		return nil, err
	}

	events := make([]memory.Event, 0, len(facts))
	for _, fact := range facts {
		ev, err := c.apply(ctx, fact, opts)
		if err != nil {
			return events, err
		}
		c.logger.Debug("memory event",
			"user_id", opts.UserID,
			"event", ev.Event,
			"memory_id", ev.ID,
		)
		events = append(events, ev)
	}

	return events, nil
}

func (c *Client) apply(ctx context.Context, fact Fact, opts memory.AddOptions) (memory.Event, error) {
	emb, err := c.embedder.Embed(ctx, fact.Content)
	if err != nil {
		return memory.Event{}, fmt.Errorf("embedding fact: %w", err)
	}

	nearest, err := c.vectors.Query(ctx, emb, 1, vector.Filter{UserID: opts.UserID})
	if err != nil {
		return memory.Event{}, fmt.Errorf("querying nearest memory: %w", err)
	}

	var closest *vector.QueryResult
	if len(nearest) > 0 {
		closest = &nearest[0]
	}

	// UPDATE and DELETE only touch a memory about the same subject.
	related := closest != nil && closest.Score >= c.match

	switch fact.Type {
	case history.EventUpdate:
		if !related {
			return c.insert(ctx, fact.Content, emb, opts)
		}
		return c.update(ctx, closest.Document, fact.Content, emb, opts)

	case history.EventDelete:
		if !related {
			c.logger.Debug("no related memory to delete", "user_id", opts.UserID, "fact", fact.Content)
			return memory.Event{Memory: fact.Content, Event: history.EventNone}, nil
		}
		return c.remove(ctx, closest.Document)

	default:
		if closest != nil && closest.Score >= c.dedup {
			if err := c.record(ctx, closest.ID, opts.UserID, closest.Content, closest.Content, history.EventNone); err != nil {
				return memory.Event{}, err
			}
			return memory.Event{ID: closest.ID, Memory: closest.Content, Event: history.EventNone}, nil
		}
		return c.insert(ctx, fact.Content, emb, opts)
	}
}

func (c *Client) insert(ctx context.Context, content string, emb []float32, opts memory.AddOptions) (memory.Event, error) {
	now := c.now()
	doc := vector.Document{
		ID:        c.newID(),
		UserID:    opts.UserID,
		Content:   content,
		Hash:      hashOf(content),
		Embedding: emb,
		Metadata:  opts.Metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := c.vectors.Add(ctx, []vector.Document{doc}); err != nil {
		return memory.Event{}, fmt.Errorf("storing memory: %w", err)
	}

	if err := c.record(ctx, doc.ID, opts.UserID, "", content, history.EventAdd); err != nil {
		return memory.Event{}, err
	}

	return memory.Event{ID: doc.ID, Memory: content, Event: history.EventAdd}, nil
}

func (c *Client) update(ctx context.Context, existing vector.Document, content string, emb []float32, opts memory.AddOptions) (memory.Event, error) {
	doc := existing
	doc.Content = content
	doc.Hash = hashOf(content)
	doc.Embedding = emb
	doc.UpdatedAt = c.now()
	if opts.Metadata != nil {
		doc.Metadata = opts.Metadata
	}

	if err := c.vectors.Add(ctx, []vector.Document{doc}); err != nil {
		return memory.Event{}, fmt.Errorf("updating memory %s: %w", doc.ID, err)
	}

	if err := c.record(ctx, doc.ID, doc.UserID, existing.Content, content, history.EventUpdate); err != nil {
		return memory.Event{}, err
	}

	return memory.Event{
		ID:             doc.ID,
		Memory:         content,
		PreviousMemory: existing.Content,
		Event:          history.EventUpdate,
	}, nil
}

func (c *Client) remove(ctx context.Context, existing vector.Document) (memory.Event, error) {
	if err := c.vectors.Delete(ctx, []string{existing.ID}); err != nil {
		return memory.Event{}, fmt.Errorf("deleting memory %s: %w", existing.ID, err)
	}

	if err := c.record(ctx, existing.ID, existing.UserID, existing.Content, "", history.EventDelete); err != nil {
		return memory.Event{}, err
	}

	return memory.Event{ID: existing.ID, Memory: existing.Content, Event: history.EventDelete}, nil
}

func (c *Client) record(ctx context.Context, memoryID, userID, oldMemory, newMemory string, event history.Event) error {
	err := c.history.Append(ctx, &history.Record{
		ID:        c.newID(),
		MemoryID:  memoryID,
		UserID:    userID,
		OldMemory: oldMemory,
		NewMemory: newMemory,
		Event:     event,
		CreatedAt: c.now(),
	})
	if err != nil {
		return fmt.Errorf("recording %s history for %s: %w", event, memoryID, err)
	}
	return nil
}

// Search embeds query and returns the user's closest memories, most similar first.
func (c *Client) Search(ctx context.Context, query string, opts memory.SearchOptions) ([]memory.Entry, error) {
	if opts.UserID == "" {
		return nil, memory.ErrEmptyUserID
	}

	emb, err := c.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	results, err := c.vectors.Query(ctx, emb, opts.Limit, vector.Filter{UserID: opts.UserID})
	if err != nil {
		return nil, fmt.Errorf("searching memories: %w", err)
	}

	entries := make([]memory.Entry, 0, len(results))
	for _, r := range results {
		entries = append(entries, toEntry(r.Document, r.Score))
	}

	return entries, nil
}

// GetAll lists the user's memories, newest first.
func (c *Client) GetAll(ctx context.Context, opts memory.SearchOptions) ([]memory.Entry, error) {
	if opts.UserID == "" {
		return nil, memory.ErrEmptyUserID
	}

	docs, err := c.vectors.List(ctx, vector.Filter{UserID: opts.UserID}, opts.Limit)
	if err != nil {
		return nil, fmt.Errorf("listing memories: %w", err)
	}

	entries := make([]memory.Entry, 0, len(docs))
	for _, d := range docs {
		entries = append(entries, toEntry(d, 0))
	}

	return entries, nil
}

// History returns the change log of memoryID, oldest first.
func (c *Client) History(ctx context.Context, memoryID string) ([]history.Record, error) {
	return c.history.List(ctx, memoryID)
}

// Delete removes a memory and records the deletion.
func (c *Client) Delete(ctx context.Context, memoryID string) error {
	docs, err := c.vectors.Get(ctx, []string{memoryID})
	if err != nil {
		return fmt.Errorf("loading memory %s: %w", memoryID, err)
	}
	if len(docs) == 0 {
		return fmt.Errorf("%w: %s", memory.ErrNotFound, memoryID)
	}

	_, err = c.remove(ctx, docs[0])
	return err
}

// Close closes the vector driver, embedder and history store.
func (c *Client) Close() error {
	return errors.Join(
		c.vectors.Close(),
		c.embedder.Close(),
		c.history.Close(),
	)
}

func toEntry(doc vector.Document, score float32) memory.Entry {
	return memory.Entry{
		ID:        doc.ID,
		Memory:    doc.Content,
		UserID:    doc.UserID,
		Hash:      doc.Hash,
		Score:     score,
		Metadata:  doc.Metadata,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
}

func hashOf(content string) string {
	sum := md5.Sum([]byte(content)) //nolint:gosec
	return hex.EncodeToString(sum[:])
}
