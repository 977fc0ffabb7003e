// Package client talks to a running memhandler gateway. It backs the
// "memhandler context", "memhandler remember" and "memhandler memories" commands.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/Sakibyash/infinoz-bot1/api/gateway"
	"github.com/Sakibyash/infinoz-bot1/pkg/history"
	"github.com/Sakibyash/infinoz-bot1/pkg/memory"
)

const defaultTimeout = 30 * time.Second

// APIError is a non-2xx gateway response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("gateway returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("gateway returned status %d: %s", e.StatusCode, e.Message)
}

// Client is a memhandler gateway client.
type Client struct {
	http *resty.Client
}

// New creates a Client for the gateway at target, e.g. "http://localhost:8000".
func New(target string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		http: resty.New().
			SetBaseURL(strings.TrimRight(target, "/")).
			SetTimeout(timeout).
			SetHeader("Accept", "application/json"),
	}
}

// Health calls GET /.
func (c *Client) Health(ctx context.Context) (*gateway.HealthOutput, error) {
	out := &gateway.HealthOutput{}
	resp, err := c.http.R().SetContext(ctx).SetResult(out).Get("/")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return out, nil
}

// GetContext calls POST /get-context and returns the system prompt.
func (c *Client) GetContext(ctx context.Context, userID, message string) (string, error) {
	out := &gateway.ContextOutput{}
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(gateway.ContextInput{UserID: userID, Message: message}).
		SetResult(out).
		Post("/get-context")
	if err := check(resp, err); err != nil {
		return "", err
	}
	return out.SystemPrompt, nil
}

// AddMemory calls POST /add-memory.
func (c *Client) AddMemory(ctx context.Context, in gateway.MemoryInput) (*gateway.AddOutput, error) {
	out := &gateway.AddOutput{}
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(in).
		SetResult(out).
		Post("/add-memory")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return out, nil
}

// ListMemories calls GET /memories.
func (c *Client) ListMemories(ctx context.Context, userID string, limit int) ([]memory.Entry, error) {
	var out struct {
		Count    int            `json:"count"`
		Memories []memory.Entry `json:"memories"`
	}

	req := c.http.R().SetContext(ctx).SetQueryParam("user_id", userID).SetResult(&out)
	if limit > 0 {
		req.SetQueryParam("limit", strconv.Itoa(limit))
	}

	resp, err := req.Get("/memories")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return out.Memories, nil
}

// MemoryHistory calls GET /memories/{id}/history.
func (c *Client) MemoryHistory(ctx context.Context, memoryID string) ([]history.Record, error) {
	var out struct {
		History []history.Record `json:"history"`
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", memoryID).
		SetResult(&out).
		Get("/memories/{id}/history")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return out.History, nil
}

// DeleteMemory calls DELETE /memories/{id}.
func (c *Client) DeleteMemory(ctx context.Context, memoryID string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", memoryID).
		Delete("/memories/{id}")
	return check(resp, err)
}

func check(resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("calling gateway: %w", err)
	}
	if !resp.IsError() {
		return nil
	}

	var body struct {
		Error string `json:"error"`
	}
	apiErr := &APIError{StatusCode: resp.StatusCode()}
	if jsonErr := json.Unmarshal(resp.Body(), &body); jsonErr == nil {
		apiErr.Message = body.Error
	}
	return apiErr
}

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}
