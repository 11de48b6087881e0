package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// DefaultProvider supplies the baseline configuration literal.
type DefaultProvider struct{}

func NewDefaultProvider() *DefaultProvider { return &DefaultProvider{} }

func (p *DefaultProvider) Load() (map[string]any, error) { return defaultConfigMap(), nil }
func (p *DefaultProvider) Type() SourceType              { return SourceDefault }
func (p *DefaultProvider) Watch(context.Context, func()) error { return nil }
func (p *DefaultProvider) Close() error                  { return nil }

// EnvProvider marks that the environment should be layered in; the
// actual reads happen in loaderService.Load via envOverlayMap so koanf's
// merge sees the same path-transform regardless of call order.
type EnvProvider struct{}

func NewEnvProvider() *EnvProvider { return &EnvProvider{} }

func (p *EnvProvider) Load() (map[string]any, error)      { return map[string]any{}, nil }
func (p *EnvProvider) Type() SourceType                   { return SourceEnv }
func (p *EnvProvider) Watch(context.Context, func()) error { return nil }
func (p *EnvProvider) Close() error                       { return nil }

// cliFlagKeys maps the short, human-typed flag names the CLI exposes to
// the dotted configuration path they set. A flag not found here is
// assumed to already be a dotted path (e.g. "server.port") and is used
// as-is, which lets callers set arbitrary keys without growing this table.
var cliFlagKeys = map[string]string{
	"host":                          "server.host",
	"port":                          "server.port",
	"cors":                          "server.cors_enabled",
	"max-nesting-depth":             "limits.max_nesting_depth",
	"max-string-length":             "limits.max_string_length",
	"max-message-content-length":    "limits.max_message_content",
	"dispatcher-heartbeat-interval": "runtime.dispatcher_heartbeat_interval",
	"async-token-counter-workers":   "runtime.async_token_counter_workers",
}

// CLIProvider maps command-line flags onto the configuration tree.
type CLIProvider struct{ flags map[string]any }

func NewCLIProvider(flags map[string]any) *CLIProvider { return &CLIProvider{flags: flags} }

func (p *CLIProvider) Load() (map[string]any, error) {
	out := map[string]any{}
	for name, value := range p.flags {
		path, ok := cliFlagKeys[name]
		if !ok {
			path = name
		}
		if err := setNested(out, path, value); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (p *CLIProvider) Type() SourceType                    { return SourceCLI }
func (p *CLIProvider) Watch(context.Context, func()) error { return nil }
func (p *CLIProvider) Close() error                        { return nil }

// YAMLProvider reads (and optionally watches) a YAML file on disk. A
// missing file loads as an empty map rather than an error, so a default
// config path that hasn't been created yet is not a startup failure.
type YAMLProvider struct {
	path string

	mu      sync.Mutex
	watcher *Watcher
}

func NewYAMLProvider(path string) *YAMLProvider { return &YAMLProvider{path: path} }

func (p *YAMLProvider) Load() (map[string]any, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("failed to read YAML file: %w", err)
	}
	var out map[string]any
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to parse YAML file: %w", err)
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

func (p *YAMLProvider) Type() SourceType { return SourceYAML }

// Watch lazily starts one fsnotify-backed Watcher per provider: repeat
// calls register another callback on the same watcher instead of
// double-watching the file.
func (p *YAMLProvider) Watch(ctx context.Context, cb func()) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.watcher == nil {
		w, err := NewWatcher()
		if err != nil {
			return fmt.Errorf("failed to start config watcher: %w", err)
		}
		if err := w.Watch(ctx, p.path); err != nil {
			_ = w.Close()
			return err
		}
		p.watcher = w
	}
	p.watcher.OnChange(cb)
	return nil
}

func (p *YAMLProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.watcher == nil {
		return nil
	}
	err := p.watcher.Close()
	p.watcher = nil
	return err
}

// setNested assigns value at the dotted path within m, creating
// intermediate maps as needed. It fails if an existing non-map value
// sits where a map needs to go, leaving m unchanged.
func setNested(m map[string]any, path string, value any) error {
	if path == "" {
		return nil
	}
	parts := strings.Split(path, ".")
	cur := m
	for i, part := range parts {
		if i == len(parts)-1 {
			cur[part] = value
			return nil
		}
		next, ok := cur[part]
		if !ok {
			nm := map[string]any{}
			cur[part] = nm
			cur = nm
			continue
		}
		nm, ok := next.(map[string]any)
		if !ok {
			return fmt.Errorf("configuration conflict: key %q is not a map", part)
		}
		cur = nm
	}
	return nil
}
