package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"text/template"

	"github.com/orbitflow/orbitflow/engine/schema"
)

// RenderContext is the data a webhook event's Input templates render against.
type RenderContext struct {
	Payload map[string]any
}

var soleActionRe = regexp.MustCompile(`^\{\{\s*(.+?)\s*\}\}$`)

// RenderTemplate resolves each entry of input against rc. An input value
// that is a single template action (e.g. "{{ .payload.id }}") resolves to
// the underlying typed value rather than a stringified one, so a JSON
// number stays a number. Anything else is rendered through text/template.
func RenderTemplate(ctx context.Context, rc RenderContext, input map[string]string) (map[string]any, error) {
	data := map[string]any{"payload": rc.Payload}
	out := make(map[string]any, len(input))
	for key, tmplStr := range input {
		val, err := renderTemplateValue(ctx, data, tmplStr)
		if err != nil {
			return nil, fmt.Errorf("webhook: failed to render %q: %w", key, err)
		}
		out[key] = val
	}
	return out, nil
}

func renderTemplateValue(_ context.Context, data map[string]any, tmplStr string) (any, error) {
	if m := soleActionRe.FindStringSubmatch(tmplStr); m != nil {
		return evalSoleAction(data, m[1])
	}
	tpl, err := template.New("input").Funcs(template.FuncMap{"toJson": toJSONString}).Parse(tmplStr)
	if err != nil {
		return nil, fmt.Errorf("invalid template: %w", err)
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("template execution failed: %w", err)
	}
	return buf.String(), nil
}

func evalSoleAction(data map[string]any, expr string) (any, error) {
	segments := strings.Split(expr, "|")
	path := strings.TrimSpace(segments[0])
	val, ok := resolveDotPath(data, strings.TrimPrefix(path, "."))
	if !ok {
		val = ""
	}
	for _, fnExpr := range segments[1:] {
		switch strings.TrimSpace(fnExpr) {
		case "toJson":
			val = toJSONString(val)
		default:
			return nil, fmt.Errorf("unknown template function %q", strings.TrimSpace(fnExpr))
		}
	}
	return val, nil
}

func resolveDotPath(data map[string]any, path string) (any, bool) {
	if path == "" {
		return nil, false
	}
	var cur any = data
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		v, ok := m[part]
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

func toJSONString(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// ValidateTemplate validates a rendered template's output against s.
func ValidateTemplate(ctx context.Context, value map[string]any, s *schema.Schema) error {
	_, err := s.Validate(ctx, value)
	return err
}
