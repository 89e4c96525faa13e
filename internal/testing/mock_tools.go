package testing

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"

	"pkdindustries/toolshack/internal/events"
	"pkdindustries/toolshack/internal/tools"
)

// MockTools implements both tools.Connector and tools.Client
type MockTools struct {
	mu sync.Mutex

	Defs    []tools.Definition
	Results map[string]tools.Result
	Errors  map[string]error
	// Notify is emitted to the turn sink during every call
	Notify []events.Event

	ConnectErr error
	ListErr    error

	// Recorded calls (for assertions)
	Calls    []tools.Call
	Connects int
	Closes   int

	sink events.Sink
}

var (
	_ tools.Connector = (*MockTools)(nil)
	_ tools.Client    = (*MockTools)(nil)
)

// NewMockTools creates a tool client without tools
func NewMockTools() *MockTools {
	return &MockTools{
		Results: make(map[string]tools.Result),
		Errors:  make(map[string]error),
	}
}

// WithTool adds a tool that returns result
func (m *MockTools) WithTool(name string, result tools.Result) *MockTools {
	m.Defs = append(m.Defs, tools.Definition{
		Name:        name,
		Description: name + " tool",
		Parameters:  &jsonschema.Schema{Type: "object"},
	})
	m.Results[name] = result
	return m
}

// WithFailingTool adds a tool whose invocation fails with err
func (m *MockTools) WithFailingTool(name string, err error) *MockTools {
	m.WithTool(name, nil)
	m.Errors[name] = err
	return m
}

// WithNotification emits e to the sink whenever a tool runs
func (m *MockTools) WithNotification(e events.Event) *MockTools {
	m.Notify = append(m.Notify, e)
	return m
}

func (m *MockTools) Connect(ctx context.Context, sink events.Sink) (tools.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ConnectErr != nil {
		return nil, m.ConnectErr
	}
	m.Connects++
	m.sink = sink
	return m, nil
}

func (m *MockTools) List(ctx context.Context) ([]tools.Definition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	return append([]tools.Definition(nil), m.Defs...), nil
}

func (m *MockTools) Call(ctx context.Context, call tools.Call) (tools.Result, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, call)
	notify, sink := m.Notify, m.sink
	result, known := m.Results[call.Name]
	err := m.Errors[call.Name]
	m.mu.Unlock()

	for _, e := range notify {
		if sink != nil {
			sink.Emit(ctx, e)
		}
	}
	if err != nil {
		return nil, &tools.ExecutionError{Tool: call.Name, Err: err}
	}
	if !known {
		return nil, &tools.ExecutionError{Tool: call.Name, Err: fmt.Errorf("unknown tool")}
	}
	return result, nil
}

func (m *MockTools) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closes++
	return nil
}

// CallCount returns the number of tool invocations
func (m *MockTools) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
