package router

import "strings"

// validateGitHub implements §4.2.1's detailed validation steps 1-5. Step 6
// (fail-open on internal error) is the caller's responsibility.
func validateGitHub(eventType string, payload, cfg map[string]any) (bool, error) {
	eventCfg, ok := eventConfigFor(cfg, eventType)
	if !ok {
		return false, nil
	}

	if eventType == "pull_request" {
		if actions, ok := eventCfg["actions"].([]any); ok && len(actions) > 0 {
			action, _ := payload["action"].(string)
			if !actionAllowed(actions, action) {
				return false, nil
			}
		}
	}

	branch := branchFromPayload(eventType, payload)
	if branch != "" {
		if patterns, ok := cfg["branch_filter"].([]any); ok && len(patterns) > 0 {
			if !matchAnyWildcard(toStrings(patterns), branch) {
				return false, nil
			}
		}
	}

	// Path filter: push events only. PR events skip this filter entirely
	// (fail-open, per the source system's behavior — Open Question #1).
	if eventType == "push" {
		if patterns, ok := cfg["path_filter"].([]any); ok && len(patterns) > 0 {
			changed := changedFilesFromPush(payload)
			if len(changed) > 0 && !anyPathMatches(toStrings(patterns), changed) {
				return false, nil
			}
		}
	}

	if author, ok := cfg["author_filter"].(string); ok && author != "" {
		sender := senderLogin(payload)
		if !matchWildcard(author, sender) {
			return false, nil
		}
	}

	return true, nil
}

// eventConfigFor reports whether eventType is enabled in trigger_config's
// event_config, and returns its sub-config (empty map for the array shape).
func eventConfigFor(cfg map[string]any, eventType string) (map[string]any, bool) {
	raw, ok := cfg["event_config"]
	if !ok {
		return nil, false
	}
	switch v := raw.(type) {
	case []any:
		for _, e := range v {
			if s, ok := e.(string); ok && s == eventType {
				return map[string]any{}, true
			}
		}
		return nil, false
	case map[string]any:
		sub, ok := v[eventType]
		if !ok {
			return nil, false
		}
		if m, ok := sub.(map[string]any); ok {
			return m, true
		}
		return map[string]any{}, true
	default:
		return nil, false
	}
}

func actionAllowed(actions []any, action string) bool {
	for _, a := range actions {
		if s, ok := a.(string); ok && s == action {
			return true
		}
	}
	return false
}

func branchFromPayload(eventType string, payload map[string]any) string {
	switch eventType {
	case "push":
		ref, _ := payload["ref"].(string)
		return strings.TrimPrefix(ref, "refs/heads/")
	case "pull_request":
		if pr, ok := payload["pull_request"].(map[string]any); ok {
			if base, ok := pr["base"].(map[string]any); ok {
				if ref, ok := base["ref"].(string); ok {
					return ref
				}
			}
		}
	}
	return ""
}

func changedFilesFromPush(payload map[string]any) []string {
	commits, ok := payload["commits"].([]any)
	if !ok {
		return nil
	}
	seen := map[string]struct{}{}
	var out []string
	for _, c := range commits {
		commit, ok := c.(map[string]any)
		if !ok {
			continue
		}
		for _, key := range []string{"added", "modified", "removed"} {
			files, ok := commit[key].([]any)
			if !ok {
				continue
			}
			for _, f := range files {
				if s, ok := f.(string); ok {
					if _, dup := seen[s]; !dup {
						seen[s] = struct{}{}
						out = append(out, s)
					}
				}
			}
		}
	}
	return out
}

func anyPathMatches(patterns, files []string) bool {
	for _, f := range files {
		if matchAnyWildcard(patterns, f) {
			return true
		}
	}
	return false
}

func senderLogin(payload map[string]any) string {
	if sender, ok := payload["sender"].(map[string]any); ok {
		if login, ok := sender["login"].(string); ok {
			return login
		}
	}
	return ""
}

func toStrings(vals []any) []string {
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
