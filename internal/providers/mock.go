package providers

import (
	"context"
	"sync"
	"time"
)

const MockName = "mock"

// Mock is a Provider for testing. Responses are served in order from the
// Responses queue; when the queue is exhausted, ResponseText is returned.
type Mock struct {
	ResponseText string
	Responses    []string
	Err          error
	Latency      time.Duration

	mu      sync.Mutex
	calls   int
	prompts []string
}

// NewMock creates a mock provider that always returns text.
func NewMock(text string) *Mock {
	return &Mock{ResponseText: text}
}

// Name returns "mock".
func (m *Mock) Name() string { return MockName }

// Model returns "mock-model".
func (m *Mock) Model() string { return "mock-model" }

// Generate returns the next queued response, or Err when set.
func (m *Mock) Generate(ctx context.Context, prompt string, image []byte) (string, error) {
	if m.Latency > 0 {
		select {
		case <-time.After(m.Latency):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, prompt)
	call := m.calls
	m.calls++

	if m.Err != nil {
		return "", m.Err
	}
	if call < len(m.Responses) {
		return m.Responses[call], nil
	}
	return m.ResponseText, nil
}

// Calls returns how many times Generate was invoked.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Prompts returns a copy of all prompts seen so far.
func (m *Mock) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.prompts))
	copy(out, m.prompts)
	return out
}

var _ Provider = (*Mock)(nil)
