// ABOUTME: Typed argument declarations for tools and their JSON Schema form
// ABOUTME: Schemas are generated from Field lists and compiled once at registration

package tools

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// FieldType is the JSON type of an argument.
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeNumber  FieldType = "number"
	TypeInteger FieldType = "integer"
	TypeBoolean FieldType = "boolean"
)

func (t FieldType) valid() bool {
	switch t {
	case TypeString, TypeNumber, TypeInteger, TypeBoolean:
		return true
	}
	return false
}

// Field declares one named argument.
type Field struct {
	Name        string
	Type        FieldType
	Description string
	Required    bool
	Default     any      // applied when the argument is absent
	Enum        []string // string fields only
	Minimum     *float64 // numeric fields only
	Maximum     *float64
}

// Bound returns a pointer for Field.Minimum and Field.Maximum.
func Bound(v float64) *float64 {
	return &v
}

var toolNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

type propertySchema struct {
	Type        FieldType `json:"type"`
	Description string    `json:"description,omitempty"`
	Enum        []string  `json:"enum,omitempty"`
	Default     any       `json:"default,omitempty"`
	Minimum     *float64  `json:"minimum,omitempty"`
	Maximum     *float64  `json:"maximum,omitempty"`
}

type objectSchema struct {
	Type                 string                    `json:"type"`
	Properties           map[string]propertySchema `json:"properties"`
	Required             []string                  `json:"required,omitempty"`
	AdditionalProperties bool                      `json:"additionalProperties"`
}

// InputSchema renders fields as a JSON Schema object.
func InputSchema(fields []Field) (json.RawMessage, error) {
	s := objectSchema{
		Type:       "object",
		Properties: make(map[string]propertySchema, len(fields)),
	}
	for _, f := range fields {
		s.Properties[f.Name] = propertySchema{
			Type:        f.Type,
			Description: f.Description,
			Enum:        f.Enum,
			Default:     f.Default,
			Minimum:     f.Minimum,
			Maximum:     f.Maximum,
		}
		if f.Required {
			s.Required = append(s.Required, f.Name)
		}
	}
	return json.Marshal(s)
}

// compileSchema compiles a generated input schema.
func compileSchema(name string, raw json.RawMessage) (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}

	loc := name + ".schema.json"
	c := jsonschema.NewCompiler()
	if err := c.AddResource(loc, doc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	schema, err := c.Compile(loc)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

// checkFields rejects declarations that cannot produce a usable schema.
func checkFields(fields []Field) error {
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if f.Name == "" {
			return fmt.Errorf("field with empty name")
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("duplicate field %q", f.Name)
		}
		seen[f.Name] = struct{}{}

		if !f.Type.valid() {
			return fmt.Errorf("field %q has unsupported type %q", f.Name, f.Type)
		}
		if len(f.Enum) > 0 && f.Type != TypeString {
			return fmt.Errorf("field %q: enum is only supported on string fields", f.Name)
		}
		if (f.Minimum != nil || f.Maximum != nil) && f.Type != TypeNumber && f.Type != TypeInteger {
			return fmt.Errorf("field %q: bounds are only supported on numeric fields", f.Name)
		}
		if f.Default != nil {
			if _, err := coerce(f, f.Default); err != nil {
				return fmt.Errorf("field %q: default: %w", f.Name, err)
			}
		}
	}
	return nil
}
