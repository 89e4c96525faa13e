package protocol

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"pkdindustries/toolshack/internal/tools"
)

var toolBlock = regexp.MustCompile("(?s)```tool(.*?)```")

// spoiler markers some chat surfaces render as hidden text
var spoilers = regexp.MustCompile(`\|\|\s*\|\|`)

// EmbeddedStrategy teaches the model to write tool calls as fenced JSON
// blocks tagged "tool" inside its reply.
type EmbeddedStrategy struct {
	Language string
}

func (s *EmbeddedStrategy) Mode() Mode { return Embedded }

func (s *EmbeddedStrategy) Preamble(defs []tools.Definition) string {
	if len(defs) == 0 {
		return ""
	}
	catalog, err := json.Marshal(CatalogToSchema(defs))
	if err != nil {
		catalog, _ = json.Marshal(tools.Names(defs))
	}
	return embeddedPreamble(s.Language, string(catalog))
}

func (s *EmbeddedStrategy) Tools([]tools.Definition) []FunctionSchema { return nil }

// Decode parses every tool block in source order. A block that is not a JSON
// object with a name fails the whole response.
func (s *EmbeddedStrategy) Decode(text string, _ []tools.Call) ([]tools.Call, error) {
	matches := toolBlock.FindAllStringSubmatch(text, -1)
	calls := make([]tools.Call, 0, len(matches))
	for i, m := range matches {
		raw := strings.TrimSpace(m[1])
		var call tools.Call
		if err := json.Unmarshal([]byte(raw), &call); err != nil {
			return nil, &DecodeError{Index: i, Raw: raw, Err: err}
		}
		if call.Name == "" {
			return nil, &DecodeError{Index: i, Raw: raw, Err: errors.New(`missing "name"`)}
		}
		if call.Arguments == nil {
			call.Arguments = map[string]any{}
		}
		calls = append(calls, call)
	}
	return calls, nil
}

// Display removes tool blocks from text.
func (s *EmbeddedStrategy) Display(text string) string {
	text = toolBlock.ReplaceAllString(text, "")
	text = spoilers.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// Encode renders call the way the preamble asks the model to.
func Encode(call tools.Call) (string, error) {
	b, err := json.MarshalIndent(call, "", "  ")
	if err != nil {
		return "", err
	}
	return "```tool\n" + string(b) + "\n```", nil
}
