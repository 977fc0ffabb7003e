package memory

import (
	"fmt"
	"sync"
)

// Handle holds the outcome of constructing the process-wide memory client.
// Construction runs once; the result never changes afterwards, so a Handle
// is safe to share between request goroutines.
type Handle struct {
	client Client
	err    error

	closeOnce sync.Once
	closeErr  error
}

// NewHandle runs build and captures either the client or the failure.
// A build that returns neither is treated as a failure.
func NewHandle(build func() (Client, error)) *Handle {
	h := &Handle{}

	c, err := build()
	switch {
	case err != nil:
		h.err = err
	case c == nil:
		h.err = ErrNotConfigured
	default:
		h.client = c
	}

	return h
}

// NewReadyHandle wraps an already-constructed client.
func NewReadyHandle(c Client) *Handle {
	return NewHandle(func() (Client, error) { return c, nil })
}

// Client returns the memory client, or ErrNotConfigured wrapping the
// construction failure.
func (h *Handle) Client() (Client, error) {
	if h == nil {
		return nil, ErrNotConfigured
	}
	if h.client == nil {
		if h.err == ErrNotConfigured { //nolint:errorlint // exact sentinel
			return nil, ErrNotConfigured
		}
		return nil, fmt.Errorf("%w: %w", ErrNotConfigured, h.err)
	}
	return h.client, nil
}

// Ready reports whether the handle holds a client.
func (h *Handle) Ready() bool {
	return h != nil && h.client != nil
}

// Err returns the construction failure, if any.
func (h *Handle) Err() error {
	if h == nil {
		return ErrNotConfigured
	}
	return h.err
}

// Close closes the client once. It is a no-op without a client.
func (h *Handle) Close() error {
	if !h.Ready() {
		return nil
	}
	h.closeOnce.Do(func() {
		h.closeErr = h.client.Close()
	})
	return h.closeErr
}
