// Package platform implements memory.Client against the hosted mem0 REST API.
package platform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/Sakibyash/infinoz-bot1/pkg/history"
	"github.com/Sakibyash/infinoz-bot1/pkg/memory"
)

const (
	DefaultHost       = "https://api.mem0.ai"
	DefaultMaxRetries = 2

	defaultTimeout   = 30 * time.Second
	defaultRetryWait = 500 * time.Millisecond
)

// ErrMissingAPIKey is returned by New when no API key is configured.
var ErrMissingAPIKey = errors.New("mem0 platform API key is required")

// Config holds the platform client settings.
type Config struct {
	Host      string
	APIKey    string
	OrgID     string
	ProjectID string

	// MaxRetries bounds retries of timeouts, 429 and 5xx responses.
	// Negative disables retries; zero uses DefaultMaxRetries.
	MaxRetries int
	RetryWait  time.Duration
	Timeout    time.Duration

	Logger *slog.Logger
}

// Client implements memory.Client over HTTP.
type Client struct {
	http      *resty.Client
	orgID     string
	projectID string
	logger    *slog.Logger
}

var _ memory.Client = (*Client)(nil)

// New creates a platform client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	host := strings.TrimRight(cfg.Host, "/")
	if host == "" {
		host = DefaultHost
	}

	retries := cfg.MaxRetries
	switch {
	case retries == 0:
		retries = DefaultMaxRetries
	case retries < 0:
		retries = 0
	}

	wait := cfg.RetryWait
	if wait <= 0 {
		wait = defaultRetryWait
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	httpClient := resty.New().
		SetBaseURL(host).
		SetTimeout(timeout).
		SetHeader("Authorization", "Token "+cfg.APIKey).
		SetHeader("Content-Type", "application/json").
		SetRetryCount(retries).
		SetRetryWaitTime(wait).
		AddRetryCondition(shouldRetry)

	return &Client{
		http:      httpClient,
		orgID:     cfg.OrgID,
		projectID: cfg.ProjectID,
		logger:    logger,
	}, nil
}

type noReplayKey struct{}

// noReplay marks a request that must not be sent twice once mem0 may have
// acted on it. Only a 429 is retried for such requests.
func noReplay(ctx context.Context) context.Context {
	return context.WithValue(ctx, noReplayKey{}, true)
}

func replayable(r *resty.Response) bool {
	if r == nil || r.Request == nil {
		return true
	}
	blocked, _ := r.Request.Context().Value(noReplayKey{}).(bool)
	return !blocked
}

// shouldRetry retries rate limits for every request, and transport timeouts
// and server errors for requests that are safe to replay.
func shouldRetry(r *resty.Response, err error) bool {
	if err != nil {
		var netErr net.Error
		return replayable(r) && errors.As(err, &netErr) && netErr.Timeout()
	}
	code := r.StatusCode()
	if code == http.StatusTooManyRequests {
		return true
	}
	return code >= http.StatusInternalServerError && replayable(r)
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type addRequest struct {
	Messages  []message      `json:"messages"`
	UserID    string         `json:"user_id"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	OrgID     string         `json:"org_id,omitempty"`
	ProjectID string         `json:"project_id,omitempty"`
}

type searchRequest struct {
	Query     string `json:"query"`
	UserID    string `json:"user_id"`
	Limit     int    `json:"limit,omitempty"`
	OrgID     string `json:"org_id,omitempty"`
	ProjectID string `json:"project_id,omitempty"`
}

type apiMemory struct {
	ID        string         `json:"id"`
	Memory    string         `json:"memory"`
	UserID    string         `json:"user_id"`
	Hash      string         `json:"hash"`
	Score     float64        `json:"score"`
	Metadata  map[string]any `json:"metadata"`
	CreatedAt string         `json:"created_at"`
	UpdatedAt string         `json:"updated_at"`
}

type apiEvent struct {
	ID    string `json:"id"`
	Event string `json:"event"`
	Data  struct {
		Memory string `json:"memory"`
	} `json:"data"`
	Memory         string `json:"memory"`
	PreviousMemory string `json:"previous_memory"`
}

type apiHistory struct {
	ID        string `json:"id"`
	MemoryID  string `json:"memory_id"`
	UserID    string `json:"user_id"`
	OldMemory string `json:"old_memory"`
	NewMemory string `json:"new_memory"`
	Event     string `json:"event"`
	CreatedAt string `json:"created_at"`
}

// Add stores text as a user message.
func (c *Client) Add(ctx context.Context, text string, opts memory.AddOptions) ([]memory.Event, error) {
	if opts.UserID == "" {
		return nil, memory.ErrEmptyUserID
	}

	body, err := c.do(noReplay(ctx), http.MethodPost, "/v1/memories/", addRequest{
		Messages:  []message{{Role: "user", Content: text}},
		UserID:    opts.UserID,
		Metadata:  opts.Metadata,
		OrgID:     c.orgID,
		ProjectID: c.projectID,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("adding memory: %w", err)
	}

	var raw []apiEvent
	if err := decodeList(body, &raw); err != nil {
		return nil, fmt.Errorf("decoding add response: %w", err)
	}

	events := make([]memory.Event, 0, len(raw))
	for _, r := range raw {
		text := r.Memory
		if text == "" {
			text = r.Data.Memory
		}
		events = append(events, memory.Event{
			ID:             r.ID,
			Memory:         text,
			PreviousMemory: r.PreviousMemory,
			Event:          history.Event(strings.ToUpper(r.Event)),
		})
	}

	return events, nil
}

// Search returns the user's most relevant memories for query.
func (c *Client) Search(ctx context.Context, query string, opts memory.SearchOptions) ([]memory.Entry, error) {
	if opts.UserID == "" {
		return nil, memory.ErrEmptyUserID
	}

	body, err := c.do(ctx, http.MethodPost, "/v1/memories/search/", searchRequest{
		Query:     query,
		UserID:    opts.UserID,
		Limit:     opts.Limit,
		OrgID:     c.orgID,
		ProjectID: c.projectID,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("searching memories: %w", err)
	}

	return decodeEntries(body)
}

// GetAll lists the user's memories.
func (c *Client) GetAll(ctx context.Context, opts memory.SearchOptions) ([]memory.Entry, error) {
	if opts.UserID == "" {
		return nil, memory.ErrEmptyUserID
	}

	params := url.Values{"user_id": {opts.UserID}}
	if opts.Limit > 0 {
		params.Set("page_size", strconv.Itoa(opts.Limit))
	}
	c.scope(params)

	body, err := c.do(ctx, http.MethodGet, "/v1/memories/", nil, params)
	if err != nil {
		return nil, fmt.Errorf("listing memories: %w", err)
	}

	entries, err := decodeEntries(body)
	if err != nil {
		return nil, err
	}
	if opts.Limit > 0 && len(entries) > opts.Limit {
		entries = entries[:opts.Limit]
	}
	return entries, nil
}

// History returns the change log of memoryID.
func (c *Client) History(ctx context.Context, memoryID string) ([]history.Record, error) {
	params := url.Values{}
	c.scope(params)

	body, err := c.do(ctx, http.MethodGet, "/v1/memories/"+url.PathEscape(memoryID)+"/history/", nil, params)
	if err != nil {
		return nil, fmt.Errorf("memory history: %w", err)
	}

	var raw []apiHistory
	if err := decodeList(body, &raw); err != nil {
		return nil, fmt.Errorf("decoding history response: %w", err)
	}

	recs := make([]history.Record, 0, len(raw))
	for _, r := range raw {
		recs = append(recs, history.Record{
			ID:        r.ID,
			MemoryID:  r.MemoryID,
			UserID:    r.UserID,
			OldMemory: r.OldMemory,
			NewMemory: r.NewMemory,
			Event:     history.Event(strings.ToUpper(r.Event)),
			CreatedAt: parseTime(r.CreatedAt),
		})
	}

	return recs, nil
}

// Delete removes memoryID.
func (c *Client) Delete(ctx context.Context, memoryID string) error {
	params := url.Values{}
	c.scope(params)

	if _, err := c.do(ctx, http.MethodDelete, "/v1/memories/"+url.PathEscape(memoryID)+"/", nil, params); err != nil {
		return fmt.Errorf("deleting memory %s: %w", memoryID, err)
	}
	return nil
}

// Close is a no-op.
func (c *Client) Close() error {
	return nil
}

func (c *Client) scope(params url.Values) {
	if c.orgID != "" {
		params.Set("org_id", c.orgID)
	}
	if c.projectID != "" {
		params.Set("project_id", c.projectID)
	}
}

func (c *Client) do(ctx context.Context, method, path string, body any, params url.Values) ([]byte, error) {
	req := c.http.R().SetContext(ctx)
	if body != nil {
		req.SetBody(body)
	}
	if len(params) > 0 {
		req.SetQueryParamsFromValues(params)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return nil, err
	}

	switch code := resp.StatusCode(); {
	case code == http.StatusNotFound:
		return nil, memory.ErrNotFound
	case code >= http.StatusBadRequest:
		c.logger.Debug("mem0 platform error",
			"method", method,
			"path", path,
			"status", code,
			"attempts", resp.Request.Attempt,
		)
		return nil, fmt.Errorf("mem0 API error (status %d): %s", code, resp.String())
	}

	return resp.Body(), nil
}

// decodeList accepts either a bare JSON array or an object wrapping the
// array under "results".
func decodeList(body []byte, out any) error {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return nil
	}

	if strings.HasPrefix(trimmed, "{") {
		var wrapped struct {
			Results json.RawMessage `json:"results"`
		}
		if err := json.Unmarshal(body, &wrapped); err != nil {
			return err
		}
		if len(wrapped.Results) == 0 {
			return nil
		}
		return json.Unmarshal(wrapped.Results, out)
	}

	return json.Unmarshal(body, out)
}

func decodeEntries(body []byte) ([]memory.Entry, error) {
	var raw []apiMemory
	if err := decodeList(body, &raw); err != nil {
		return nil, fmt.Errorf("decoding memories: %w", err)
	}

	entries := make([]memory.Entry, 0, len(raw))
	for _, r := range raw {
		entries = append(entries, memory.Entry{
			ID:        r.ID,
			Memory:    r.Memory,
			UserID:    r.UserID,
			Hash:      r.Hash,
			Score:     float32(r.Score),
			Metadata:  r.Metadata,
			CreatedAt: parseTime(r.CreatedAt),
			UpdatedAt: parseTime(r.UpdatedAt),
		})
	}

	return entries, nil
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05",
}

func parseTime(s string) time.Time {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
