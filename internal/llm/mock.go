package llm

import (
	"context"
	"sync"
)

// MockClient is a configurable LLM client for testing.
// Set the response fields to control what Complete returns; CompleteFunc
// takes precedence when set, so tests can answer per prompt.
type MockClient struct {
	CompleteResponse string
	CompleteError    error
	CompleteFunc     func(ctx context.Context, prompt string) (string, error)

	// Call tracking for assertions. Guarded by mu because batched
	// completion calls Complete from multiple goroutines.
	mu    sync.Mutex
	calls []string
}

func NewMockClient() *MockClient {
	return &MockClient{
		CompleteResponse: "mock response",
	}
}

func (c *MockClient) Complete(ctx context.Context, prompt string) (string, error) {
	c.mu.Lock()
	c.calls = append(c.calls, prompt)
	c.mu.Unlock()

	if c.CompleteFunc != nil {
		return c.CompleteFunc(ctx, prompt)
	}
	if c.CompleteError != nil {
		return "", c.CompleteError
	}
	return c.CompleteResponse, nil
}

// Calls returns a snapshot of every prompt seen so far.
func (c *MockClient) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.calls))
	copy(out, c.calls)
	return out
}

func (c *MockClient) CallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

// Reset clears all recorded calls and resets responses to defaults.
func (c *MockClient) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CompleteResponse = "mock response"
	c.CompleteError = nil
	c.CompleteFunc = nil
	c.calls = nil
}
