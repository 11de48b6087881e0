package workflow

// TriggerSpec is the normalized shape the Deployment Manager extracts from a
// TRIGGER node's configurations (§4.4.2 step 2), ready to be registered into
// the Trigger Index and the per-family dispatcher.
type TriggerSpec struct {
	NodeID        string
	TriggerType   string // CRON, WEBHOOK, GITHUB, SLACK, EMAIL, MANUAL
	IndexKey      string
	TriggerConfig map[string]any
}

// ExtractTriggerSpecs builds one TriggerSpec per TRIGGER node, unwrapping any
// schema-object configuration values (§4.4.2 step 2, §9 "Dynamic dicts as
// schemas"). Index-key derivation per trigger family is left to the caller
// (the deployment manager), since it depends on provider-context resolution
// that has not happened yet at extraction time for GitHub/Slack.
func ExtractTriggerSpecs(c *Config) []TriggerSpec {
	specs := make([]TriggerSpec, 0, len(c.TriggerNodes()))
	for _, n := range c.TriggerNodes() {
		cfg := normalizeConfigurations(n.Configurations)
		specs = append(specs, TriggerSpec{
			NodeID:        n.ID,
			TriggerType:   n.Subtype,
			TriggerConfig: cfg,
		})
	}
	return specs
}

// normalizeConfigurations unwraps "schema object" maps of the shape
// {type, default, required, description, value?} into their resolved scalar
// value, preferring `value`, falling back to `default`, falling back to a
// type-appropriate zero. Plain (non-schema-object) values pass through
// unchanged. Never propagate the schema shell downstream (§9).
func normalizeConfigurations(raw map[string]any) map[string]any {
	if raw == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		out[k] = normalizeConfigValue(v)
	}
	return out
}

func normalizeConfigValue(v any) any {
	m, ok := v.(map[string]any)
	if !ok {
		return v
	}
	typ, hasType := m["type"]
	if !hasType {
		return v
	}
	if val, ok := m["value"]; ok {
		return val
	}
	if def, ok := m["default"]; ok {
		return def
	}
	return zeroForType(typ)
}

func zeroForType(typ any) any {
	t, _ := typ.(string)
	switch t {
	case "string":
		return ""
	case "number", "integer":
		return 0
	case "boolean":
		return false
	case "array":
		return []any{}
	case "object":
		return map[string]any{}
	default:
		return nil
	}
}
