// Package llm talks to the language model.
package llm

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"pkdindustries/toolshack/internal/chat"
	"pkdindustries/toolshack/internal/protocol"
	"pkdindustries/toolshack/internal/tools"
)

// Request is one generation call.
type Request struct {
	Messages    []chat.Message
	Model       string
	Temperature *float64
	// Think is empty, "true", "false" or an effort level such as "low".
	Think     string
	KeepAlive time.Duration
	Timeout   time.Duration
	// Tools enables native tool calling when non-empty.
	Tools []protocol.FunctionSchema
}

// Response is the model's answer. ToolCalls is empty unless the request
// carried tools.
type Response struct {
	Text      string
	Thinking  string
	ToolCalls []tools.Call
}

// Client generates responses.
type Client interface {
	Generate(ctx context.Context, req Request) (Response, error)
}

// GenerationError wraps a failure of the model client itself.
type GenerationError struct {
	Model string
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation with %s failed: %v", e.Model, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Temperature is a helper for optional temperatures.
func Temperature(t float64) *float64 { return &t }

// ParseThink turns a configured think setting into the value sent to the
// model: nil, a bool, or an effort level.
func ParseThink(s string) any {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return nil
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}
