package router

import "strings"

// matchWildcard reports whether s matches pattern, where pattern may contain
// at most one '*' wildcard (matching any run of characters). This is the
// restricted glob semantics the branch/author/channel/user filters use —
// not full glob syntax (§4.2.1, §4.2.2).
func matchWildcard(pattern, s string) bool {
	if pattern == "" {
		return false
	}
	if pattern == "*" {
		return true
	}
	idx := strings.IndexByte(pattern, '*')
	if idx < 0 {
		return pattern == s
	}
	prefix, suffix := pattern[:idx], pattern[idx+1:]
	return strings.HasPrefix(s, prefix) && strings.HasSuffix(s, suffix) && len(s) >= len(prefix)+len(suffix)
}

// matchAnyWildcard reports whether s matches any of patterns.
func matchAnyWildcard(patterns []string, s string) bool {
	for _, p := range patterns {
		if matchWildcard(p, s) {
			return true
		}
	}
	return false
}
