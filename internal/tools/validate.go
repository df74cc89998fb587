// ABOUTME: Argument validation and coercion against a tool's declared fields
// ABOUTME: Checks presence, type, and enum membership, then the compiled schema

package tools

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// ErrInvalidArguments marks argument validation failures.
var ErrInvalidArguments = errors.New("invalid arguments")

func invalidArgs(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArguments, fmt.Sprintf(format, args...))
}

// validateArgs returns a copy of raw with defaults applied and every value
// coerced to its declared Go type (string, float64, int64, bool).
func validateArgs(fields []Field, schema *jsonschema.Schema, raw map[string]any) (Args, error) {
	known := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		known[f.Name] = struct{}{}
	}
	for _, key := range sortedKeys(raw) {
		if _, ok := known[key]; !ok {
			return nil, invalidArgs("unknown argument %q", key)
		}
	}

	out := make(Args, len(fields))
	for _, f := range fields {
		value, present := raw[f.Name]
		if present && value == nil {
			present = false
		}

		if !present {
			if f.Required {
				return nil, invalidArgs("missing required argument %q", f.Name)
			}
			if f.Default == nil {
				continue
			}
			value = f.Default
		}

		coerced, err := coerce(f, value)
		if err != nil {
			return nil, err
		}
		if f.Required && f.Type == TypeString && strings.TrimSpace(coerced.(string)) == "" {
			return nil, invalidArgs("argument %q must not be empty", f.Name)
		}
		out[f.Name] = coerced
	}

	if schema != nil {
		if err := validateSchema(schema, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func coerce(f Field, value any) (any, error) {
	switch f.Type {
	case TypeString:
		s, ok := value.(string)
		if !ok {
			return nil, invalidType(f.Name, f.Type, value)
		}
		if len(f.Enum) > 0 && !slices.Contains(f.Enum, s) {
			return nil, invalidArgs("argument %q must be one of %s, got %q", f.Name, strings.Join(f.Enum, ", "), s)
		}
		return s, nil

	case TypeNumber:
		n, ok := toFloat(value)
		if !ok {
			return nil, invalidType(f.Name, f.Type, value)
		}
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return nil, invalidArgs("argument %q must be a finite number", f.Name)
		}
		return n, nil

	case TypeInteger:
		n, ok := toFloat(value)
		if !ok {
			return nil, invalidType(f.Name, f.Type, value)
		}
		if math.Trunc(n) != n || math.IsInf(n, 0) {
			return nil, invalidArgs("argument %q must be integer", f.Name)
		}
		// float64(math.MaxInt64) rounds up to 2^63
		if n < math.MinInt64 || n >= math.MaxInt64 {
			return nil, invalidArgs("argument %q is outside the integer range", f.Name)
		}
		return int64(n), nil

	case TypeBoolean:
		b, ok := value.(bool)
		if !ok {
			return nil, invalidType(f.Name, f.Type, value)
		}
		return b, nil
	}
	return nil, invalidArgs("argument %q has unsupported type %q", f.Name, f.Type)
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func invalidType(name string, want FieldType, got any) error {
	return invalidArgs("argument %q must be %s, got %s", name, want, jsonTypeName(got))
}

func jsonTypeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, float32, int, int32, int64, json.Number:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// validateSchema runs the compiled schema over the coerced arguments. The
// arguments are round-tripped through JSON so the validator sees the same
// value shapes a decoded request would have.
func validateSchema(schema *jsonschema.Schema, args Args) error {
	data, err := json.Marshal(args)
	if err != nil {
		return invalidArgs("%v", err)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return invalidArgs("%v", err)
	}
	if err := schema.Validate(inst); err != nil {
		return invalidArgs("%s", schemaMessage(err))
	}
	return nil
}

// schemaMessage drops the validator's header line and keeps the violations.
func schemaMessage(err error) string {
	lines := strings.Split(strings.TrimSpace(err.Error()), "\n")
	if len(lines) > 1 {
		lines = lines[1:]
	}
	for i, line := range lines {
		lines[i] = strings.TrimPrefix(strings.TrimSpace(line), "- ")
	}
	return strings.Join(lines, "; ")
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
