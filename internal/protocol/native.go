package protocol

import (
	"pkdindustries/toolshack/internal/tools"
)

// NativeStrategy relies on the model's structured function calling.
type NativeStrategy struct {
	Language string
}

func (s *NativeStrategy) Mode() Mode { return Native }

func (s *NativeStrategy) Preamble(defs []tools.Definition) string {
	if len(defs) == 0 {
		return ""
	}
	return nativePreamble(s.Language)
}

func (s *NativeStrategy) Tools(defs []tools.Definition) []FunctionSchema {
	if len(defs) == 0 {
		return nil
	}
	return CatalogToSchema(defs)
}

func (s *NativeStrategy) Decode(_ string, native []tools.Call) ([]tools.Call, error) {
	calls := make([]tools.Call, 0, len(native))
	for _, c := range native {
		if c.Arguments == nil {
			c.Arguments = map[string]any{}
		}
		calls = append(calls, c)
	}
	return calls, nil
}

func (s *NativeStrategy) Display(text string) string { return text }
