package protocol

import (
	"github.com/google/jsonschema-go/jsonschema"

	"pkdindustries/toolshack/internal/tools"
)

// FunctionSchema is the structured function-call description models accept
// for native tool calling.
type FunctionSchema struct {
	Type     string       `json:"type"`
	Function FunctionSpec `json:"function"`
}

type FunctionSpec struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Parameters  *jsonschema.Schema `json:"parameters"`
}

// CatalogToSchema maps tool definitions to function schemas. Tools without
// a parameter schema get an empty object schema.
func CatalogToSchema(defs []tools.Definition) []FunctionSchema {
	out := make([]FunctionSchema, 0, len(defs))
	for _, d := range defs {
		params := d.Parameters
		if params == nil {
			params = &jsonschema.Schema{Type: "object", Properties: map[string]*jsonschema.Schema{}}
		}
		out = append(out, FunctionSchema{
			Type: "function",
			Function: FunctionSpec{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  params,
			},
		})
	}
	return out
}
