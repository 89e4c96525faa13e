// Package tools describes externally implemented tools and the clients that
// list and invoke them.
package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"pkdindustries/toolshack/internal/events"
)

// Definition is a tool offered to the model for one turn.
type Definition struct {
	Name        string
	Description string
	Parameters  *jsonschema.Schema
	Tags        []string
}

// Call is one requested invocation.
type Call struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// Result is what a tool produced. Exactly one of Text, Image or Audio; a nil
// Result means the tool was interrupted and produced nothing.
type Result interface {
	result()
}

type Text struct {
	Value string
}

type Image struct {
	Data     []byte
	MIMEType string
}

type Audio struct {
	Data     []byte
	MIMEType string
}

func (Text) result()  {}
func (Image) result() {}
func (Audio) result() {}

// Client lists and invokes tools for the duration of one turn.
type Client interface {
	List(ctx context.Context) ([]Definition, error)
	Call(ctx context.Context, call Call) (Result, error)
	Close() error
}

// Connector opens a Client whose server notifications go to sink.
type Connector interface {
	Connect(ctx context.Context, sink events.Sink) (Client, error)
}

// ExecutionError wraps a failed invocation.
type ExecutionError struct {
	Tool string
	Err  error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("tool %s failed: %v", e.Tool, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// None is a Connector without tools.
type None struct{}

func (None) Connect(context.Context, events.Sink) (Client, error) { return noneClient{}, nil }

type noneClient struct{}

func (noneClient) List(context.Context) ([]Definition, error) { return nil, nil }
func (noneClient) Call(_ context.Context, call Call) (Result, error) {
	return nil, &ExecutionError{Tool: call.Name, Err: fmt.Errorf("no tools available")}
}
func (noneClient) Close() error { return nil }

// Names returns the tool names of defs in order.
func Names(defs []Definition) []string {
	names := make([]string, len(defs))
	for i, d := range defs {
		names[i] = d.Name
	}
	return names
}

// DisplayName strips a "server__" namespace prefix.
func DisplayName(name string) string {
	if _, after, ok := strings.Cut(name, "__"); ok {
		return after
	}
	return name
}
