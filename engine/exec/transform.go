package exec

import (
	"fmt"
	"strings"
)

// TransformConfig is a declarative, non-executable connection transform
// (§4.6.5). The legacy workflow format stores transforms as opaque
// expression strings; ParseTransform classifies one by content inspection
// into one of these configs instead of ever evaluating it.
type TransformConfig struct {
	Type     string // ai_input, ai_output, slack_message, pass_through
	Message  string
	Context  string
	Format   string
	Channel  string
	Username string
}

// ParseTransform classifies a legacy connection_function string by content
// inspection (§4.6.5). Unknown or empty text is pass_through.
func ParseTransform(raw string) TransformConfig {
	if strings.Contains(raw, "Tell me a funny joke") {
		return TransformConfig{Type: "ai_input", Message: "Tell me a funny joke", Context: "joke_generation"}
	}
	if looksLikeSlackFormat(raw) {
		return TransformConfig{
			Type: "slack_message", Format: "🎭 {text} 🎭", Channel: "#general", Username: "JokeBot",
		}
	}
	if strings.Contains(raw, "input_data.get('output')") ||
		strings.Contains(raw, "text") ||
		strings.Contains(raw, "message") {
		return TransformConfig{Type: "ai_output"}
	}
	return TransformConfig{Type: "pass_through"}
}

func looksLikeSlackFormat(raw string) bool {
	if strings.Contains(raw, "#general") || strings.Contains(raw, "JokeBot") {
		return true
	}
	for _, r := range raw {
		if r >= 0x1F300 && r <= 0x1FAFF {
			return true
		}
	}
	return false
}

// ApplyTransform executes a TransformConfig against a source node's output
// value. Unknown config types fall back to pass_through.
func ApplyTransform(cfg TransformConfig, source any) (any, error) {
	switch cfg.Type {
	case "ai_input":
		return map[string]any{"message": cfg.Message, "context": cfg.Context}, nil
	case "ai_output":
		return extractAIOutput(source), nil
	case "slack_message":
		text := extractText(source)
		formatted := strings.ReplaceAll(cfg.Format, "{text}", text)
		return map[string]any{
			"text":        formatted,
			"channel":     cfg.Channel,
			"username":    cfg.Username,
			"action_type": "send_message",
		}, nil
	case "pass_through", "":
		return source, nil
	default:
		return source, nil
	}
}

func extractAIOutput(source any) map[string]any {
	m, ok := source.(map[string]any)
	if !ok {
		return map[string]any{"text": fmt.Sprintf("%v", source)}
	}
	if out, ok := m["output"]; ok {
		return map[string]any{"text": out}
	}
	if pr, ok := m["provider_result"].(map[string]any); ok {
		if resp, ok := pr["response"]; ok {
			return map[string]any{"text": resp}
		}
	}
	return map[string]any{"text": ""}
}

func extractText(source any) string {
	m, ok := source.(map[string]any)
	if !ok {
		return fmt.Sprintf("%v", source)
	}
	if text, ok := m["text"].(string); ok {
		return text
	}
	return ""
}

// ExtractField does a dotted-path lookup against data, returning def if the
// path cannot be resolved. Used by the extract_field declarative config.
func ExtractField(data map[string]any, path string, def any) any {
	segments := strings.Split(path, ".")
	var cur any = data
	for _, seg := range segments {
		m, ok := cur.(map[string]any)
		if !ok {
			return def
		}
		v, ok := m[seg]
		if !ok {
			return def
		}
		cur = v
	}
	return cur
}

// CreateObject composes an object from a field spec: each value in fields is
// either a literal, or a map{"from_input": "<dotted.path>"} resolved against
// input.
func CreateObject(fields map[string]any, input map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if spec, ok := v.(map[string]any); ok {
			if path, ok := spec["from_input"].(string); ok {
				out[k] = ExtractField(input, path, nil)
				continue
			}
		}
		out[k] = v
	}
	return out
}
