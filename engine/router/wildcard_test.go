package router

import "testing"

func TestMatchWildcard(t *testing.T) {
	cases := []struct {
		pattern, s string
		want       bool
	}{
		{"main", "main", true},
		{"main", "develop", false},
		{"release/*", "release/1.0", true},
		{"release/*", "main", false},
		{"*", "anything", true},
		{"", "main", false},
		{"feature-*-done", "feature-123-done", true},
		{"feature-*-done", "feature-123", false},
	}
	for _, c := range cases {
		if got := matchWildcard(c.pattern, c.s); got != c.want {
			t.Errorf("matchWildcard(%q, %q) = %v, want %v", c.pattern, c.s, got, c.want)
		}
	}
}

func TestMatchAnyWildcard(t *testing.T) {
	if !matchAnyWildcard([]string{"dev", "release/*"}, "release/2.0") {
		t.Fatal("expected match")
	}
	if matchAnyWildcard([]string{"dev"}, "main") {
		t.Fatal("expected no match")
	}
}
