package testutils

import (
	"context"
	"sync"

	"github.com/Sakibyash/infinoz-bot1/pkg/llm"
)

// MockLLM returns a fixed reply and records prompts.
type MockLLM struct {
	mu sync.Mutex

	Reply   string
	Err     error
	Prompts []string
}

// Caller adapts the mock to an llm.Caller.
func (m *MockLLM) Caller() llm.Caller {
	return func(_ context.Context, prompt string) (string, error) {
		m.mu.Lock()
		defer m.mu.Unlock()

		m.Prompts = append(m.Prompts, prompt)
		return m.Reply, m.Err
	}
}
