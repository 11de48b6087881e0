package config

import "time"

// Deployment modes a component can run under. Distributed maps to a
// remote Temporal cluster (ModeRemoteTemporal) when resolved for the
// workflow engine specifically; every other component treats it literally.
const (
	ModeMemory         = "memory"
	ModePersistent     = "persistent"
	ModeDistributed    = "distributed"
	ModeStandalone     = "standalone"
	ModeRemoteTemporal = "remote_temporal"
)

const mcpProxyModeStandalone = "standalone"

const (
	databaseDriverSQLite   = "sqlite"
	databaseDriverPostgres = "postgres"
)

// Config is the fully-resolved, validated configuration tree for one
// orbitflow process. Every field traces back to a dotted koanf key
// (the mapstructure tag) that the default map, a YAML file, CLI flags,
// or an environment variable can set.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Temporal TemporalConfig `koanf:"temporal"`
	Runtime  RuntimeConfig  `koanf:"runtime"`
	Limits   LimitsConfig   `koanf:"limits"`
	Memory   MemoryConfig   `koanf:"memory"`
	MCPProxy MCPProxyConfig `koanf:"mcp_proxy"`
	Cache    CacheConfig    `koanf:"cache"`
	Redis    RedisConfig    `koanf:"redis"`
	OpenAI   OpenAIConfig   `koanf:"openai"`
	LLM      LLMConfig      `koanf:"llm"`
	Mode     string         `koanf:"mode"`
}

type ServerConfig struct {
	Host        string        `koanf:"host"         validate:"required"`
	Port        int           `koanf:"port"         validate:"min=1,max=65535"`
	CORSEnabled bool          `koanf:"cors_enabled"`
	Timeout     time.Duration `koanf:"timeout"`
}

type DatabaseConfig struct {
	ConnString string `koanf:"conn_string"`
	Host       string `koanf:"host"`
	Port       string `koanf:"port"`
	User       string `koanf:"user"`
	DBName     string `koanf:"dbname"`
	SSLMode    string `koanf:"ssl_mode"`
	Driver     string `koanf:"driver"`
}

type TemporalConfig struct {
	HostPort  string `koanf:"host_port"`
	Namespace string `koanf:"namespace"`
	TaskQueue string `koanf:"task_queue"`
	Mode      string `koanf:"mode"`
}

type RuntimeConfig struct {
	Environment                 string        `koanf:"environment"                     validate:"required,oneof=development staging production"`
	LogLevel                    string        `koanf:"log_level"                       validate:"required,oneof=debug info warn error"`
	DispatcherHeartbeatInterval time.Duration `koanf:"dispatcher_heartbeat_interval"`
	DispatcherHeartbeatTTL      time.Duration `koanf:"dispatcher_heartbeat_ttl"`
	DispatcherStaleThreshold    time.Duration `koanf:"dispatcher_stale_threshold"`
	AsyncTokenCounterWorkers    int           `koanf:"async_token_counter_workers"     validate:"min=1"`
	AsyncTokenCounterBufferSize int           `koanf:"async_token_counter_buffer_size"`
}

type LimitsConfig struct {
	MaxNestingDepth       int `koanf:"max_nesting_depth"        validate:"min=1"`
	MaxStringLength       int `koanf:"max_string_length"        validate:"min=0"`
	MaxMessageContent     int `koanf:"max_message_content"      validate:"min=1"`
	MaxTotalContentSize   int `koanf:"max_total_content_size"`
	MaxTaskContextDepth   int `koanf:"max_task_context_depth"`
	ParentUpdateBatchSize int `koanf:"parent_update_batch_size"`
}

type MemoryConfig struct {
	Prefix     string        `koanf:"prefix"`
	TTL        time.Duration `koanf:"ttl"`
	MaxEntries int           `koanf:"max_entries"`
}

type MCPProxyConfig struct {
	Mode    string `koanf:"mode"`
	Host    string `koanf:"host"`
	Port    int    `koanf:"port"`
	BaseURL string `koanf:"base_url"`
}

type CacheConfig struct {
	Enabled              bool          `koanf:"enabled"`
	TTL                  time.Duration `koanf:"ttl"`
	Prefix               string        `koanf:"prefix"`
	MaxItemSize          int64         `koanf:"max_item_size"`
	CompressionEnabled   bool          `koanf:"compression_enabled"`
	CompressionThreshold int64         `koanf:"compression_threshold"`
	EvictionPolicy       string        `koanf:"eviction_policy"`
	StatsInterval        time.Duration `koanf:"stats_interval"`
	KeyScanCount         int           `koanf:"key_scan_count"`
}

type RedisConfig struct {
	Host string `koanf:"host"`
	Port string `koanf:"port"`
	Mode string `koanf:"mode"`
}

type OpenAIConfig struct {
	APIKey       SensitiveString `koanf:"api_key"`
	DefaultModel string          `koanf:"default_model"`
}

// LLMConfig's MCP readiness fields are deliberately outside the "llm."
// dotted namespace: they come from bare MCP_READINESS_* environment
// variables (see transformEnvKey), so they're populated by hand in
// decodeConfig rather than through the koanf tag tree.
type LLMConfig struct {
	MCPReadinessTimeout      time.Duration `koanf:"-"`
	MCPReadinessPollInterval time.Duration `koanf:"-"`
}

// Default returns the baseline configuration every Load starts from.
// defaultConfigMap is the single source of truth for these values; Default
// decodes it the same way Load decodes every other layer so the two never
// drift apart.
func Default() *Config {
	cfg, err := decodeDefaultConfig()
	if err != nil {
		// defaultConfigMap is a fixed, well-formed literal: a decode failure
		// here means the literal and the struct tags have diverged.
		panic("config: invalid default configuration: " + err.Error())
	}
	return cfg
}

func defaultConfigMap() map[string]any {
	return map[string]any{
		"server": map[string]any{
			"host":         "0.0.0.0",
			"port":         5001,
			"cors_enabled": true,
			"timeout":      "30s",
		},
		"database": map[string]any{
			"host":     "localhost",
			"port":     "5432",
			"user":     "postgres",
			"dbname":   "compozy",
			"ssl_mode": "disable",
		},
		"temporal": map[string]any{
			"host_port":  "localhost:7233",
			"namespace":  "default",
			"task_queue": "compozy-tasks",
		},
		"runtime": map[string]any{
			"environment":                     "development",
			"log_level":                       "info",
			"dispatcher_heartbeat_interval":   "30s",
			"dispatcher_heartbeat_ttl":        "90s",
			"dispatcher_stale_threshold":      "120s",
			"async_token_counter_workers":     4,
			"async_token_counter_buffer_size": 100,
		},
		"limits": map[string]any{
			"max_nesting_depth":        20,
			"max_string_length":        10485760,
			"max_message_content":      10240,
			"max_total_content_size":   102400,
			"max_task_context_depth":   5,
			"parent_update_batch_size": 100,
		},
		"memory": map[string]any{
			"prefix":      "compozy:memory:",
			"ttl":         "24h",
			"max_entries": 10000,
		},
		"mcp_proxy": map[string]any{
			"mode":     mcpProxyModeStandalone,
			"host":     "127.0.0.1",
			"port":     6001,
			"base_url": "",
		},
		"cache": map[string]any{
			"enabled":               true,
			"ttl":                   "24h",
			"prefix":                "compozy:cache:",
			"max_item_size":         1048576,
			"compression_enabled":   true,
			"compression_threshold": 1024,
			"eviction_policy":       "lru",
			"stats_interval":        "5m",
			"key_scan_count":        100,
		},
		"redis": map[string]any{
			"host": "localhost",
			"port": "6379",
		},
		"mode": "",
	}
}

// configEqual reports whether a and b hold identical values. Every field
// reachable from Config is a primitive or a struct of primitives, so a
// plain value comparison is both correct and cheap.
func configEqual(a, b *Config) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// ResolveMode returns componentMode if set, otherwise falls back to the
// process-wide Mode (ModeMemory if neither is set). cfg may be nil.
func ResolveMode(cfg *Config, componentMode string) string {
	if componentMode != "" {
		return componentMode
	}
	if cfg != nil && cfg.Mode != "" {
		return cfg.Mode
	}
	return ModeMemory
}

// EffectiveRedisMode resolves the Redis backend mode for this process.
func (c *Config) EffectiveRedisMode() string {
	if c == nil {
		return ModeMemory
	}
	return ResolveMode(c, c.Redis.Mode)
}

// EffectiveMCPProxyMode resolves the MCP proxy's backend mode.
func (c *Config) EffectiveMCPProxyMode() string {
	if c == nil {
		return ModeMemory
	}
	return ResolveMode(c, c.MCPProxy.Mode)
}

// EffectiveTemporalMode resolves the workflow engine's backend: unlike
// the other components, a Distributed mode maps to a remote Temporal
// cluster rather than being used literally.
func (c *Config) EffectiveTemporalMode() string {
	if c == nil {
		return ModeMemory
	}
	if component := c.Temporal.Mode; component != "" {
		if component == ModeDistributed {
			return ModeRemoteTemporal
		}
		return component
	}
	switch c.Mode {
	case ModeDistributed:
		return ModeRemoteTemporal
	case "":
		return ModeMemory
	default:
		return c.Mode
	}
}

// EffectiveDatabaseDriver picks the SQL driver: an explicit
// Database.Driver always wins, otherwise Distributed mode implies
// Postgres and everything else implies the embedded SQLite.
func (c *Config) EffectiveDatabaseDriver() string {
	if c == nil {
		return databaseDriverSQLite
	}
	if c.Database.Driver != "" {
		return c.Database.Driver
	}
	if c.Mode == ModeDistributed {
		return databaseDriverPostgres
	}
	return databaseDriverSQLite
}
