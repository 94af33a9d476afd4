package llm

import "encoding/json"

type SchemaType string

const (
	TypeString SchemaType = "string"
	TypeArray  SchemaType = "array"
	TypeObject SchemaType = "object"
)

// Schema is a provider-neutral description of a structured output.
type Schema struct {
	Type        SchemaType
	Description string
	Properties  map[string]*Schema
	Items       *Schema
	Enum        []string
	Required    []string
}

// JSONSchema renders s as a JSON Schema document.
func (s *Schema) JSONSchema() map[string]any {
	out := map[string]any{"type": string(s.Type)}
	if s.Description != "" {
		out["description"] = s.Description
	}
	if len(s.Enum) > 0 {
		out["enum"] = s.Enum
	}
	if s.Items != nil {
		out["items"] = s.Items.JSONSchema()
	}
	if len(s.Properties) > 0 {
		props := make(map[string]any, len(s.Properties))
		for name, p := range s.Properties {
			props[name] = p.JSONSchema()
		}
		out["properties"] = props
	}
	if len(s.Required) > 0 {
		out["required"] = s.Required
	}
	return out
}

func (s *Schema) String() string {
	b, _ := json.MarshalIndent(s.JSONSchema(), "", "  ")
	return string(b)
}
