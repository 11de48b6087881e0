package config

import "context"

// SourceType identifies which layer a piece of configuration came from.
// Kept as a string (not an iota) so a test double can report an arbitrary
// tag without adding a constant for it.
type SourceType string

const (
	SourceDefault SourceType = "default"
	SourceEnv     SourceType = "env"
	SourceYAML    SourceType = "yaml"
	SourceCLI     SourceType = "cli"
)

// Source is one layer of configuration. Load returns the layer's view of
// the config tree as a nested map keyed by koanf-style dotted paths;
// Watch, when supported, invokes cb whenever the underlying layer changes.
type Source interface {
	Load() (map[string]any, error)
	Watch(ctx context.Context, cb func()) error
	Type() SourceType
	Close() error
}
