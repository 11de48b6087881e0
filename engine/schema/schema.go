// Package schema validates node parameters and deployment configuration
// documents against JSON Schema, and applies schema-declared defaults before
// validation runs.
package schema

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kaptinlin/jsonschema"
)

// Schema is a JSON Schema document expressed as a Go map, matching the way
// trigger/node configuration stores schema objects inline rather than as
// serialized strings.
type Schema map[string]any

// Result reports the outcome of a successful validation.
type Result struct {
	Valid bool
}

// CompiledSchema is a schema that has been checked for structural validity
// and is ready to validate instances against.
type CompiledSchema = jsonschema.Schema

// Compile checks s for structural validity and returns a schema ready to
// validate instances against. A nil receiver compiles to (nil, nil) so
// callers can treat "no schema" as "no constraints" without a branch.
func (s *Schema) Compile() (*CompiledSchema, error) {
	if s == nil {
		return nil, nil
	}
	for _, v := range *s {
		if self, ok := v.(*Schema); ok && self == s {
			return nil, fmt.Errorf("failed to compile schema: circular reference detected")
		}
	}
	raw, err := json.Marshal(map[string]any(*s))
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}
	compiled, err := jsonschema.NewCompiler().Compile(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}
	return compiled, nil
}

// Validate checks value against s. A nil receiver always passes (nil, nil).
// Both a compile failure and a validation failure return a non-nil error
// containing "schema validation failed" and a nil *Result, so callers can
// treat the two failure modes identically.
func (s *Schema) Validate(_ context.Context, value any) (*Result, error) {
	if s == nil {
		return nil, nil
	}
	compiled, err := s.Compile()
	if err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}
	var decoded any
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}
	evalResult := compiled.Validate(decoded)
	if !evalResult.IsValid() {
		return nil, fmt.Errorf("schema validation failed")
	}
	return &Result{Valid: true}, nil
}

// ApplyDefaults returns a copy of input with every schema-declared
// "properties.<key>.default" merged in for keys input doesn't already set.
// A nil receiver returns input unchanged.
func (s *Schema) ApplyDefaults(input map[string]any) (map[string]any, error) {
	if s == nil {
		return input, nil
	}
	result := make(map[string]any, len(input))
	for k, v := range input {
		result[k] = v
	}
	props, _ := (*s)["properties"].(map[string]any)
	for key, raw := range props {
		if _, exists := result[key]; exists {
			continue
		}
		prop, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if def, ok := prop["default"]; ok {
			result[key] = def
		}
	}
	return result, nil
}
