package schema

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/glimte/ocpp-envelope/contracts"
)

// DraftURI identifies the JSON Schema dialect the generator emits
const DraftURI = "http://json-schema.org/draft-07/schema#"

// JSONSchemaGenerator renders schemas as JSON Schema documents
type JSONSchemaGenerator struct {
	// Strict emits additionalProperties false for closed objects
	Strict bool
}

// NewJSONSchemaGenerator creates a generator that emits closed objects
func NewJSONSchemaGenerator() *JSONSchemaGenerator {
	return &JSONSchemaGenerator{Strict: true}
}

// Generate renders schema as a draft-07 document with a stable key order
func (g *JSONSchemaGenerator) Generate(schema *Schema) (json.RawMessage, error) {
	if schema == nil {
		return nil, fmt.Errorf("schema cannot be nil")
	}

	w := contracts.NewJSONWriter().Set("$schema", DraftURI)
	if schema.ID != "" {
		w.Set("$id", schema.ID)
	}
	w.Set("title", schema.Name)
	if schema.Description != "" {
		w.Set("description", schema.Description)
	} else {
		w.Set("description", fmt.Sprintf("Schema for %s payload", schema.Name))
	}
	if schema.Version != "" {
		w.Set("version", schema.Version)
	}
	w.Set("type", "object")
	g.writeObject(w, schema.Properties, schema.Required, schema.AdditionalProperties)

	return w.Bytes()
}

// GenerateJSONSchema renders schema with the default generator
func GenerateJSONSchema(schema *Schema) (json.RawMessage, error) {
	return NewJSONSchemaGenerator().Generate(schema)
}

func (g *JSONSchemaGenerator) writeObject(w *contracts.JSONWriter, properties map[string]*PropertyDef, required []string, additional bool) {
	if len(properties) > 0 {
		names := make([]string, 0, len(properties))
		for name := range properties {
			names = append(names, name)
		}
		sort.Strings(names)

		props := contracts.NewJSONWriter()
		for _, name := range names {
			props.Set(name, g.property(properties[name]))
		}
		w.Set("properties", props)
	}
	if len(required) > 0 {
		w.Set("required", required)
	}
	if g.Strict && !additional {
		w.Set("additionalProperties", false)
	}
}

func (g *JSONSchemaGenerator) property(p *PropertyDef) *contracts.JSONWriter {
	w := contracts.NewJSONWriter()
	if p.Description != "" {
		w.Set("description", p.Description)
	}
	if p.Type != "" {
		w.Set("type", p.Type)
	}
	if p.Format != "" {
		w.Set("format", p.Format)
	}
	if p.Pattern != "" {
		w.Set("pattern", p.Pattern)
	}
	if len(p.Enum) > 0 {
		w.Set("enum", p.Enum)
	}
	if p.MinLength != nil {
		w.Set("minLength", *p.MinLength)
	}
	if p.MaxLength != nil {
		w.Set("maxLength", *p.MaxLength)
	}
	if p.Minimum != nil {
		w.Set("minimum", *p.Minimum)
	}
	if p.Maximum != nil {
		w.Set("maximum", *p.Maximum)
	}
	if p.MinItems != nil {
		w.Set("minItems", *p.MinItems)
	}
	if p.MaxItems != nil {
		w.Set("maxItems", *p.MaxItems)
	}
	if p.Items != nil {
		w.Set("items", g.property(p.Items))
	}
	if p.Type == "object" {
		g.writeObject(w, p.Properties, p.Required, p.AdditionalProperties)
	}
	return w
}
