package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/v2"
	"github.com/mitchellh/mapstructure"
)

// Service loads, validates and tracks the provenance of configuration.
// The concrete implementation layers sources through koanf; Manager wraps
// it with the atomic-store/callback/file-watch machinery tests exercise
// separately.
type Service interface {
	Load(ctx context.Context, sources ...Source) (*Config, error)
	Watch(ctx context.Context, callback func(*Config)) error
	Validate(cfg *Config) error
	GetSource(key string) SourceType
}

type loaderService struct {
	validate *validator.Validate
}

// NewService builds the koanf/validator-backed Service implementation.
func NewService() Service {
	return &loaderService{validate: validator.New()}
}

// mapProvider adapts an already-decoded map into koanf's Provider
// interface, so every Source (default literal, CLI flags, parsed YAML,
// env overlay) can be layered through the same koanf.Koanf merge logic.
type mapProvider struct{ m map[string]any }

func (p mapProvider) Read() (map[string]any, error) { return p.m, nil }

func (p mapProvider) ReadBytes() ([]byte, error) {
	return nil, errors.New("config: mapProvider does not support ReadBytes")
}

func (s *loaderService) Load(_ context.Context, sources ...Source) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(mapProvider{m: defaultConfigMap()}, nil); err != nil {
		return nil, fmt.Errorf("failed to load from source: %w", err)
	}
	for _, src := range sources {
		if src == nil {
			continue
		}
		data, err := src.Load()
		if err != nil {
			return nil, fmt.Errorf("failed to load from source: %w", err)
		}
		if src.Type() == SourceEnv {
			data = envOverlayMap()
		}
		if len(data) == 0 {
			continue
		}
		if err := k.Load(mapProvider{m: data}, nil); err != nil {
			return nil, fmt.Errorf("failed to load from source: %w", err)
		}
	}
	cfg, err := decodeConfig(k)
	if err != nil {
		return nil, err
	}
	if err := s.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (s *loaderService) Watch(_ context.Context, callback func(*Config)) error {
	if callback == nil {
		return errors.New("callback cannot be nil")
	}
	// Hot-reload not implemented yet: Manager drives reload via file
	// watchers on individual sources instead of through this method.
	return nil
}

// GetSource always reports SourceDefault: koanf tracks precedence
// internally during the merge, so there is no per-key provenance left to
// report once Load has produced a Config.
func (s *loaderService) GetSource(string) SourceType {
	return SourceDefault
}

func (s *loaderService) Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("configuration cannot be nil")
	}
	var errs []string
	if err := s.validate.Struct(cfg); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			for _, fe := range ve {
				errs = append(errs, formatFieldError(fe))
			}
		} else {
			errs = append(errs, err.Error())
		}
	}
	errs = append(errs, validateDispatcherTiming(cfg)...)
	errs = append(errs, validateMCPProxy(cfg)...)
	errs = append(errs, validateDatabase(cfg)...)
	errs = append(errs, validateTemporal(cfg)...)
	errs = append(errs, validateRedisPort(cfg)...)
	errs = append(errs, validateMode(cfg)...)
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("validation failed: %s", strings.Join(errs, "; "))
}

func formatFieldError(fe validator.FieldError) string {
	return fmt.Sprintf("%s failed %s validation", fe.Namespace(), fe.Tag())
}

func validateDispatcherTiming(cfg *Config) []string {
	r := cfg.Runtime
	var errs []string
	if r.DispatcherHeartbeatInterval > 0 && r.DispatcherHeartbeatTTL > 0 &&
		r.DispatcherHeartbeatTTL <= r.DispatcherHeartbeatInterval {
		errs = append(errs, "dispatcher heartbeat TTL must be greater than heartbeat interval")
	}
	if r.DispatcherHeartbeatTTL > 0 && r.DispatcherStaleThreshold > 0 &&
		r.DispatcherStaleThreshold <= r.DispatcherHeartbeatTTL {
		errs = append(errs, "dispatcher stale threshold must be greater than heartbeat TTL")
	}
	return errs
}

func validateMCPProxy(cfg *Config) []string {
	if cfg.MCPProxy.Mode == mcpProxyModeStandalone && cfg.MCPProxy.Port == 0 {
		return []string{"mcp_proxy.port must be non-zero in standalone mode"}
	}
	return nil
}

func validateDatabase(cfg *Config) []string {
	d := cfg.Database
	if d.ConnString != "" {
		return nil
	}
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host is required when conn_string is not set")
	}
	if d.Port == "" {
		errs = append(errs, "database.port is required when conn_string is not set")
	}
	if d.User == "" {
		errs = append(errs, "database.user is required when conn_string is not set")
	}
	if d.DBName == "" {
		errs = append(errs, "database.dbname is required when conn_string is not set")
	}
	return errs
}

func validateTemporal(cfg *Config) []string {
	if cfg.Temporal.HostPort == "" {
		return []string{"temporal.host_port is required"}
	}
	return nil
}

func validateRedisPort(cfg *Config) []string {
	p := cfg.Redis.Port
	if p == "" {
		return nil
	}
	n, err := strconv.Atoi(p)
	if err != nil {
		return []string{"Redis port must be a valid integer"}
	}
	if n < 1 || n > 65535 {
		return []string{"Redis port must be between 1 and 65535"}
	}
	return nil
}

func validateMode(cfg *Config) []string {
	switch cfg.Mode {
	case "", ModeMemory, ModePersistent, ModeDistributed, ModeStandalone, ModeRemoteTemporal:
		return nil
	default:
		return []string{"mode must be one of memory, persistent, distributed, standalone"}
	}
}

// decodeConfig unmarshals a fully-merged koanf tree into a fresh Config,
// then fills in the handful of fields that live outside the "llm."
// namespace and so don't reach LLMConfig through the tag tree at all.
func decodeConfig(k *koanf.Koanf) (*Config, error) {
	cfg := &Config{}
	err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           cfg,
			WeaklyTypedInput: true,
			DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	if k.Exists("mcp.readiness_timeout") {
		cfg.LLM.MCPReadinessTimeout = k.Duration("mcp.readiness_timeout")
	}
	if k.Exists("mcp.readiness_poll_interval") {
		cfg.LLM.MCPReadinessPollInterval = k.Duration("mcp.readiness_poll_interval")
	}
	cfg.Mode = strings.ToLower(strings.TrimSpace(cfg.Mode))
	return cfg, nil
}

// decodeDefaultConfig builds the Config that backs Default(): the same
// koanf load/decode path every other source goes through, seeded with
// nothing but defaultConfigMap.
func decodeDefaultConfig() (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(mapProvider{m: defaultConfigMap()}, nil); err != nil {
		return nil, fmt.Errorf("failed to load default configuration: %w", err)
	}
	return decodeConfig(k)
}

// transformEnvKey turns an environment variable name into a dotted koanf
// path: the first run of underscores becomes the section separator,
// everything after it keeps its underscores verbatim (SERVER_MAX_REQUEST_SIZE
// -> server.max_request_size, not server.max.request.size).
func transformEnvKey(input string) string {
	parts := strings.FieldsFunc(strings.ToLower(input), func(r rune) bool { return r == '_' })
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	default:
		return parts[0] + "." + strings.Join(parts[1:], "_")
	}
}

// envOverlayMap reads the process environment into a nested map keyed by
// transformEnvKey, so it can be layered on top of defaults/YAML/CLI like
// any other source.
func envOverlayMap() map[string]any {
	out := map[string]any{}
	for _, kv := range os.Environ() {
		idx := strings.IndexByte(kv, '=')
		if idx < 0 {
			continue
		}
		path := transformEnvKey(kv[:idx])
		if path == "" {
			continue
		}
		_ = setNested(out, path, kv[idx+1:])
	}
	return out
}
