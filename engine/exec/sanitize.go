package exec

import (
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
)

// sensitiveParamRe matches the §4.6.6 redaction rule: any parameter key
// containing one of these words, case-insensitive.
var sensitiveParamRe = regexp.MustCompile(`(?i)password|secret|token|key|credential`)

// SanitizeParams redacts sensitive values and drops non-serializable ones
// before a parameter tree is logged (§4.6.6). Nested maps and slices are
// sanitized recursively; sensitive keys are redacted regardless of nesting
// depth.
func SanitizeParams(params map[string]any) map[string]any {
	if params == nil {
		return nil
	}
	out := make(map[string]any, len(params))
	for k, v := range params {
		if sensitiveParamRe.MatchString(k) {
			out[k] = "[REDACTED]"
			continue
		}
		out[k] = sanitizeValue(v)
	}
	return out
}

func sanitizeValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return SanitizeParams(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = sanitizeValue(item)
		}
		return out
	case nil, bool, string, int, int32, int64, float32, float64:
		return val
	default:
		if isJSONSerializable(v) {
			return v
		}
		return fmt.Sprintf("%s(unserializable)", reflect.TypeOf(v))
	}
}

func isJSONSerializable(v any) bool {
	_, err := json.Marshal(v)
	return err == nil
}

// summarizeInputs renders a concise input summary for node_start logging
// (§4.6.3 step 3): the first ≤3 params, scalars inline, strings truncated
// to ≤30 chars, containers rendered as type(N), remainder as "+K more".
func summarizeInputs(inputs map[string]any) map[string]any {
	const maxShown = 3
	const maxStringLen = 30
	if len(inputs) == 0 {
		return map[string]any{}
	}
	keys := make([]string, 0, len(inputs))
	for k := range inputs {
		keys = append(keys, k)
	}
	out := make(map[string]any, maxShown+1)
	shown := 0
	for _, k := range keys {
		if shown >= maxShown {
			break
		}
		out[k] = summarizeValue(inputs[k], maxStringLen)
		shown++
	}
	if remaining := len(keys) - shown; remaining > 0 {
		out["_more"] = fmt.Sprintf("+%d more", remaining)
	}
	return out
}

func summarizeValue(v any, maxStringLen int) any {
	switch val := v.(type) {
	case string:
		if len(val) > maxStringLen {
			return val[:maxStringLen] + "…"
		}
		return val
	case map[string]any:
		return fmt.Sprintf("object(%d)", len(val))
	case []any:
		return fmt.Sprintf("array(%d)", len(val))
	default:
		return val
	}
}
