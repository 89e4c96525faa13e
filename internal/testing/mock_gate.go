package testing

import (
	"context"
	"sync"

	"pkdindustries/toolshack/internal/chat"
)

// MockGate admits or rejects generations without probing
type MockGate struct {
	mu    sync.Mutex
	Err   error
	Calls int
}

func (g *MockGate) Await(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Calls++
	return g.Err
}

// MockExplainer returns a fixed explanation and records the errors it saw
type MockExplainer struct {
	mu          sync.Mutex
	Explanation string
	Seen        []error
}

func (e *MockExplainer) Explain(ctx context.Context, err error, _ *chat.Session) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Seen = append(e.Seen, err)
	if e.Explanation == "" {
		return "explained: " + err.Error()
	}
	return e.Explanation
}

// Errors returns the errors passed to Explain
func (e *MockExplainer) Errors() []error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]error(nil), e.Seen...)
}
