package core

import (
	"encoding/json"
	"fmt"
	"regexp"
)

// sensitiveKeyRe matches parameter/header keys that must never appear
// unredacted in a LogEntry or NodeExecution snapshot (§4.6.6).
var sensitiveKeyRe = regexp.MustCompile(`(?i)password|secret|token|key|credential`)

// SanitizeParams returns a deep copy of params with:
//   - any key matching /password|secret|token|key|credential/i replaced by "[REDACTED]"
//   - any value that cannot be JSON-serialized replaced by its Go type name
//   - nested maps and slices sanitized recursively
//
// The input is never mutated.
func SanitizeParams(params map[string]any) map[string]any {
	if params == nil {
		return nil
	}
	out := make(map[string]any, len(params))
	for k, v := range params {
		if sensitiveKeyRe.MatchString(k) {
			out[k] = "[REDACTED]"
			continue
		}
		out[k] = sanitizeValue(v)
	}
	return out
}

func sanitizeValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return SanitizeParams(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = sanitizeValue(e)
		}
		return out
	case string, bool, nil,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return t
	default:
		if _, err := json.Marshal(v); err != nil {
			return fmt.Sprintf("%T", v)
		}
		return v
	}
}
