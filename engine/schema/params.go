package schema

import (
	"context"
	"fmt"
	"reflect"
)

// ParamsValidator validates a typed parameter value against an optional
// Schema, scoped to a validatorID used to identify the failing node/task in
// error messages.
type ParamsValidator[T any] struct {
	params T
	schema *Schema
	id     string
}

// NewParamsValidator builds a validator bound to params, schema, and id.
func NewParamsValidator[T any](params T, schema *Schema, id string) *ParamsValidator[T] {
	return &ParamsValidator[T]{params: params, schema: schema, id: id}
}

// Validate reports whether params satisfies schema. A nil schema always
// passes. A nil/zero params value against a non-nil schema is an error,
// since there is nothing to validate the schema's constraints against.
func (v *ParamsValidator[T]) Validate(ctx context.Context) error {
	if v.schema == nil {
		return nil
	}
	if isNilValue(v.params) {
		return fmt.Errorf("parameters are nil but a schema is defined (validator: %s)", v.id)
	}
	if _, err := v.schema.Validate(ctx, v.params); err != nil {
		return fmt.Errorf("validation error (validator: %s): %w", v.id, err)
	}
	return nil
}

func isNilValue(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface, reflect.Chan, reflect.Func:
		return rv.IsNil()
	default:
		return false
	}
}
