package testing

import (
	"context"
	"sync"

	"pkdindustries/toolshack/internal/llm"
	"pkdindustries/toolshack/internal/tools"
)

// ModelStep is one scripted generation.
type ModelStep struct {
	Response llm.Response
	Err      error
}

// MockModel implements llm.Client by replaying scripted steps. Once the
// script is exhausted the last step repeats.
type MockModel struct {
	mu       sync.Mutex
	Steps    []ModelStep
	Requests []llm.Request
}

// Verify MockModel implements llm.Client
var _ llm.Client = (*MockModel)(nil)

// NewMockModel creates a model that answers with a fixed text
func NewMockModel() *MockModel {
	return &MockModel{}
}

// WithText appends a plain text answer
func (m *MockModel) WithText(text string) *MockModel {
	m.Steps = append(m.Steps, ModelStep{Response: llm.Response{Text: text}})
	return m
}

// WithToolCalls appends an answer carrying native tool calls
func (m *MockModel) WithToolCalls(text string, calls ...tools.Call) *MockModel {
	m.Steps = append(m.Steps, ModelStep{Response: llm.Response{Text: text, ToolCalls: calls}})
	return m
}

// WithError appends a failed generation
func (m *MockModel) WithError(err error) *MockModel {
	m.Steps = append(m.Steps, ModelStep{Err: err})
	return m
}

func (m *MockModel) Generate(ctx context.Context, req llm.Request) (llm.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requests = append(m.Requests, req)

	if err := ctx.Err(); err != nil {
		return llm.Response{}, &llm.GenerationError{Model: req.Model, Err: err}
	}
	if len(m.Steps) == 0 {
		return llm.Response{Text: "Hello from mock model"}, nil
	}
	i := min(len(m.Requests), len(m.Steps)) - 1
	step := m.Steps[i]
	if step.Err != nil {
		return llm.Response{}, &llm.GenerationError{Model: req.Model, Err: step.Err}
	}
	resp := step.Response
	if len(req.Tools) == 0 {
		resp.ToolCalls = nil
	}
	return resp, nil
}

// Calls returns the number of generations requested
func (m *MockModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}

// LastRequest returns the most recent request
func (m *MockModel) LastRequest() llm.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Requests) == 0 {
		return llm.Request{}
	}
	return m.Requests[len(m.Requests)-1]
}
