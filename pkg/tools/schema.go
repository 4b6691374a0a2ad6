// Package tools provides the closed set of tool adapters the reasoning loop
// and the fallback router dispatch to.
package tools

// Property describes a single argument in a tool's input schema.
type Property struct {
	Type        string               `json:"type"`
	Description string               `json:"description,omitempty"`
	Enum        []string             `json:"enum,omitempty"`
	Items       *Property            `json:"items,omitempty"`
	Properties  map[string]*Property `json:"properties,omitempty"`
}

// InputSchema is the JSON-schema subset advertised to LLM providers.
type InputSchema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required,omitempty"`
}

// ToolDefinition is the provider-facing description of a tool.
type ToolDefinition struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InputSchema InputSchema `json:"input_schema"`
}

// ToMap renders the schema as a plain JSON-schema object, the shape the
// Anthropic and OpenAI SDKs accept.
func (s *InputSchema) ToMap() map[string]any {
	props := make(map[string]any, len(s.Properties))
	for name := range s.Properties {
		p := s.Properties[name]
		props[name] = p.toMap()
	}
	out := map[string]any{
		"type":       s.Type,
		"properties": props,
	}
	if len(s.Required) > 0 {
		out["required"] = s.Required
	}
	return out
}

func (p *Property) toMap() map[string]any {
	out := map[string]any{"type": p.Type}
	if p.Description != "" {
		out["description"] = p.Description
	}
	if len(p.Enum) > 0 {
		out["enum"] = p.Enum
	}
	if p.Items != nil {
		out["items"] = p.Items.toMap()
	}
	if len(p.Properties) > 0 {
		props := make(map[string]any, len(p.Properties))
		for name, child := range p.Properties {
			if child != nil {
				props[name] = child.toMap()
			}
		}
		out["properties"] = props
	}
	return out
}
