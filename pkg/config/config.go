package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

//go:generate go run ../../cmd/schema/main.go schema.json

// Config holds the application configuration
type Config struct {
	Server struct {
		Listen  string        `yaml:"listen" json:"listen" jsonschema:"default=:8080,description=HTTP server listen address"`
		Timeout time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=30s,description=HTTP server timeout"`
	} `yaml:"server" json:"server" jsonschema:"description=Server configuration"`

	Scroll ScrollConfig `yaml:"scroll" json:"scroll" jsonschema:"description=Feed assembly and session configuration"`

	Fetch FetchConfig `yaml:"fetch" json:"fetch" jsonschema:"description=Source fetching configuration"`

	ReadSync ReadSyncConfig `yaml:"readsync" json:"readsync" jsonschema:"description=Upstream read-mark sync configuration"`
}

// ScrollConfig holds feed assembly and session settings
type ScrollConfig struct {
	QueriesDir         string        `yaml:"queries_dir" json:"queries_dir" jsonschema:"default=config/queries,description=Directory with per-query YAML definitions"`
	RecipesDir         string        `yaml:"recipes_dir" json:"recipes_dir" jsonschema:"default=config/scroll,description=Directory with per-user scroll recipes"`
	DefaultBatchSize   int           `yaml:"default_batch_size" json:"default_batch_size" jsonschema:"default=30,minimum=1,maximum=100,description=Batch size when a recipe omits one"`
	SessionTTL         time.Duration `yaml:"session_ttl" json:"session_ttl" jsonschema:"default=2h,description=Idle scrolling session expiry"`
	DismissedFile      string        `yaml:"dismissed_file" json:"dismissed_file" jsonschema:"default=var/dismissed.json,description=Dismissed-items store location"`
	DismissedRetention time.Duration `yaml:"dismissed_retention" json:"dismissed_retention" jsonschema:"default=720h,description=How long dismissals stay effective"`
}

// FetchConfig holds source fetching settings
type FetchConfig struct {
	MaxConcurrency int                      `yaml:"max_concurrency" json:"max_concurrency" jsonschema:"default=16,minimum=1,description=Parallel source workers"`
	DefaultTimeout time.Duration            `yaml:"default_timeout" json:"default_timeout" jsonschema:"default=5s,description=Per-source fetch budget"`
	Timeouts       map[string]time.Duration `yaml:"timeouts" json:"timeouts,omitempty" jsonschema:"description=Per source-type timeout overrides"`
	UserAgent      string                   `yaml:"user_agent" json:"user_agent" jsonschema:"default=boonscroll/1.0,description=User agent for source requests"`
}

// ReadSyncConfig holds the read-mark outbox settings
type ReadSyncConfig struct {
	DSN           string        `yaml:"dsn" json:"dsn" jsonschema:"default=file:readsync.db?cache=shared&mode=rwc,description=Outbox database connection string"`
	FlushInterval time.Duration `yaml:"flush_interval" json:"flush_interval" jsonschema:"default=1m,description=Background flush period"`
	MaxAttempts   int           `yaml:"max_attempts" json:"max_attempts" jsonschema:"default=10,minimum=1,description=Deliveries attempted before a mark is dropped"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // file path comes from CLI flag
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// expand environment variables
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// set defaults for server
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = ":8080"
	}
	if cfg.Server.Timeout == 0 {
		cfg.Server.Timeout = 30 * time.Second
	}

	// set defaults for scroll
	if cfg.Scroll.QueriesDir == "" {
		cfg.Scroll.QueriesDir = "config/queries"
	}
	if cfg.Scroll.RecipesDir == "" {
		cfg.Scroll.RecipesDir = "config/scroll"
	}
	if cfg.Scroll.DefaultBatchSize == 0 {
		cfg.Scroll.DefaultBatchSize = 30
	}
	if cfg.Scroll.SessionTTL == 0 {
		cfg.Scroll.SessionTTL = 2 * time.Hour
	}
	if cfg.Scroll.DismissedFile == "" {
		cfg.Scroll.DismissedFile = "var/dismissed.json"
	}
	if cfg.Scroll.DismissedRetention == 0 {
		cfg.Scroll.DismissedRetention = 720 * time.Hour
	}

	// set defaults for fetch
	if cfg.Fetch.MaxConcurrency == 0 {
		cfg.Fetch.MaxConcurrency = 16
	}
	if cfg.Fetch.DefaultTimeout == 0 {
		cfg.Fetch.DefaultTimeout = 5 * time.Second
	}
	if cfg.Fetch.UserAgent == "" {
		cfg.Fetch.UserAgent = "boonscroll/1.0"
	}

	// set defaults for readsync
	if cfg.ReadSync.DSN == "" {
		cfg.ReadSync.DSN = "file:readsync.db?cache=shared&mode=rwc&_txlock=immediate"
	}
	if cfg.ReadSync.FlushInterval == 0 {
		cfg.ReadSync.FlushInterval = time.Minute
	}
	if cfg.ReadSync.MaxAttempts == 0 {
		cfg.ReadSync.MaxAttempts = 10
	}

	// environment knobs beat file values
	applyEnvOverrides(&cfg)

	// validate configuration
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	// verify against embedded schema
	if err := VerifyAgainstEmbeddedSchema(&cfg); err != nil {
		// log warning but don't fail - schema validation is supplementary
		fmt.Printf("warning: schema validation failed: %v\n", err)
	}

	return &cfg, nil
}

// applyEnvOverrides applies the documented environment knobs on top of
// whatever the file set
func applyEnvOverrides(cfg *Config) {
	if v := envInt("DEFAULT_BATCH_SIZE"); v > 0 {
		cfg.Scroll.DefaultBatchSize = v
	}
	if v := envInt("SESSION_TTL_SECONDS"); v > 0 {
		cfg.Scroll.SessionTTL = time.Duration(v) * time.Second
	}
	if v := envInt("MAX_ADAPTER_CONCURRENCY"); v > 0 {
		cfg.Fetch.MaxConcurrency = v
	}
	if v := envInt("DEFAULT_ADAPTER_TIMEOUT_MS"); v > 0 {
		cfg.Fetch.DefaultTimeout = time.Duration(v) * time.Millisecond
	}
	if v := envInt("DISMISSED_RETENTION_DAYS"); v > 0 {
		cfg.Scroll.DismissedRetention = time.Duration(v) * 24 * time.Hour
	}
}

// envInt reads a positive integer knob, 0 when unset or malformed
func envInt(name string) int {
	v := os.Getenv(name)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		fmt.Printf("warning: ignoring %s=%q, not an integer\n", name, v)
		return 0
	}
	return n
}

// validate checks configuration for correctness
func validate(cfg *Config) error {
	// validate server config
	if cfg.Server.Timeout < time.Second {
		return fmt.Errorf("server timeout must be at least 1 second")
	}

	// validate scroll config
	if cfg.Scroll.DefaultBatchSize < 1 || cfg.Scroll.DefaultBatchSize > 100 {
		return fmt.Errorf("scroll.default_batch_size must be between 1 and 100")
	}
	if cfg.Scroll.SessionTTL < time.Minute {
		return fmt.Errorf("scroll.session_ttl must be at least 1 minute")
	}
	if cfg.Scroll.DismissedRetention < time.Hour {
		return fmt.Errorf("scroll.dismissed_retention must be at least 1 hour")
	}

	// validate fetch config
	if cfg.Fetch.MaxConcurrency < 1 {
		return fmt.Errorf("fetch.max_concurrency must be at least 1")
	}
	if cfg.Fetch.DefaultTimeout < 100*time.Millisecond {
		return fmt.Errorf("fetch.default_timeout must be at least 100ms")
	}
	for source, timeout := range cfg.Fetch.Timeouts {
		if timeout <= 0 {
			return fmt.Errorf("fetch.timeouts[%s] must be positive", source)
		}
	}

	// validate readsync config
	if cfg.ReadSync.FlushInterval < time.Second {
		return fmt.Errorf("readsync.flush_interval must be at least 1 second")
	}

	return nil
}

// GetServerConfig returns server configuration
func (c *Config) GetServerConfig() (listen string, timeout time.Duration) {
	return c.Server.Listen, c.Server.Timeout
}

// GetScrollConfig returns feed assembly and session settings
func (c *Config) GetScrollConfig() ScrollConfig {
	return c.Scroll
}

// GetFetchConfig returns source fetching settings
func (c *Config) GetFetchConfig() FetchConfig {
	return c.Fetch
}

// GetReadSyncConfig returns the read-mark outbox settings
func (c *Config) GetReadSyncConfig() ReadSyncConfig {
	return c.ReadSync
}
