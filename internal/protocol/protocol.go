// Package protocol encodes a tool catalog for the model and decodes the tool
// calls it asks for, either through native function calling or through
// fenced blocks embedded in the reply text.
package protocol

import (
	"fmt"

	"pkdindustries/toolshack/internal/tools"
)

type Mode string

const (
	Native   Mode = "native"
	Embedded Mode = "embedded"
)

// Strategy is one way of talking about tools with the model.
type Strategy interface {
	Mode() Mode
	// Preamble is appended to the instructions of the turn.
	Preamble(defs []tools.Definition) string
	// Tools returns the schemas to send along with a request, or nil.
	Tools(defs []tools.Definition) []FunctionSchema
	// Decode extracts the requested calls from a generation.
	Decode(text string, native []tools.Call) ([]tools.Call, error)
	// Display returns the part of text meant for users.
	Display(text string) string
}

// DecodeError reports a tool call block that could not be parsed.
type DecodeError struct {
	// Index is the zero-based position of the block in the response.
	Index int
	Raw   string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("tool call block %d is not valid: %v", e.Index, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// New returns the strategy for mode with prompts in language.
func New(mode Mode, language string) (Strategy, error) {
	switch mode {
	case Native:
		return &NativeStrategy{Language: language}, nil
	case Embedded:
		return &EmbeddedStrategy{Language: language}, nil
	default:
		return nil, fmt.Errorf("unknown tool mode %q", mode)
	}
}
