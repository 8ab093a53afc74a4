package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		configContent := `
server:
  listen: ":9090"
  timeout: 45s

scroll:
  queries_dir: testdata/queries
  recipes_dir: testdata/scroll
  default_batch_size: 20
  session_ttl: 1h
  dismissed_file: var/test-dismissed.json
  dismissed_retention: 48h

fetch:
  max_concurrency: 8
  default_timeout: 3s
  timeouts:
    weather: 2s
    rss: 10s
  user_agent: test-agent/0.1

readsync:
  dsn: "file:test.db?mode=rwc"
  flush_interval: 30s
  max_attempts: 5
`
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "test-config.yml")
		err := os.WriteFile(configPath, []byte(configContent), 0o644)
		require.NoError(t, err)

		cfg, err := Load(configPath)
		require.NoError(t, err)
		require.NotNil(t, cfg)

		assert.Equal(t, ":9090", cfg.Server.Listen)
		assert.Equal(t, 45*time.Second, cfg.Server.Timeout)

		assert.Equal(t, "testdata/queries", cfg.Scroll.QueriesDir)
		assert.Equal(t, "testdata/scroll", cfg.Scroll.RecipesDir)
		assert.Equal(t, 20, cfg.Scroll.DefaultBatchSize)
		assert.Equal(t, time.Hour, cfg.Scroll.SessionTTL)
		assert.Equal(t, "var/test-dismissed.json", cfg.Scroll.DismissedFile)
		assert.Equal(t, 48*time.Hour, cfg.Scroll.DismissedRetention)

		assert.Equal(t, 8, cfg.Fetch.MaxConcurrency)
		assert.Equal(t, 3*time.Second, cfg.Fetch.DefaultTimeout)
		assert.Equal(t, 2*time.Second, cfg.Fetch.Timeouts["weather"])
		assert.Equal(t, 10*time.Second, cfg.Fetch.Timeouts["rss"])
		assert.Equal(t, "test-agent/0.1", cfg.Fetch.UserAgent)

		assert.Equal(t, "file:test.db?mode=rwc", cfg.ReadSync.DSN)
		assert.Equal(t, 30*time.Second, cfg.ReadSync.FlushInterval)
		assert.Equal(t, 5, cfg.ReadSync.MaxAttempts)
	})

	t.Run("defaults", func(t *testing.T) {
		configContent := `
server:
  listen: ":9090"
`
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "test-config.yml")
		err := os.WriteFile(configPath, []byte(configContent), 0o644)
		require.NoError(t, err)

		cfg, err := Load(configPath)
		require.NoError(t, err)
		require.NotNil(t, cfg)

		assert.Equal(t, ":9090", cfg.Server.Listen)
		assert.Equal(t, 30*time.Second, cfg.Server.Timeout)

		assert.Equal(t, "config/queries", cfg.Scroll.QueriesDir)
		assert.Equal(t, "config/scroll", cfg.Scroll.RecipesDir)
		assert.Equal(t, 30, cfg.Scroll.DefaultBatchSize)
		assert.Equal(t, 2*time.Hour, cfg.Scroll.SessionTTL)
		assert.Equal(t, "var/dismissed.json", cfg.Scroll.DismissedFile)
		assert.Equal(t, 720*time.Hour, cfg.Scroll.DismissedRetention)

		assert.Equal(t, 16, cfg.Fetch.MaxConcurrency)
		assert.Equal(t, 5*time.Second, cfg.Fetch.DefaultTimeout)
		assert.Empty(t, cfg.Fetch.Timeouts)
		assert.Equal(t, "boonscroll/1.0", cfg.Fetch.UserAgent)

		assert.Equal(t, "file:readsync.db?cache=shared&mode=rwc&_txlock=immediate", cfg.ReadSync.DSN)
		assert.Equal(t, time.Minute, cfg.ReadSync.FlushInterval)
		assert.Equal(t, 10, cfg.ReadSync.MaxAttempts)
	})

	t.Run("environment variable expansion", func(t *testing.T) {
		t.Setenv("TEST_USER_AGENT", "custom-agent/2.0")
		configContent := `
fetch:
  user_agent: ${TEST_USER_AGENT}
`
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "test-config.yml")
		err := os.WriteFile(configPath, []byte(configContent), 0o644)
		require.NoError(t, err)

		cfg, err := Load(configPath)
		require.NoError(t, err)
		assert.Equal(t, "custom-agent/2.0", cfg.Fetch.UserAgent)
	})

	t.Run("environment knobs override file values", func(t *testing.T) {
		t.Setenv("DEFAULT_BATCH_SIZE", "50")
		t.Setenv("SESSION_TTL_SECONDS", "600")
		t.Setenv("MAX_ADAPTER_CONCURRENCY", "4")
		t.Setenv("DEFAULT_ADAPTER_TIMEOUT_MS", "2500")
		t.Setenv("DISMISSED_RETENTION_DAYS", "7")

		configContent := `
scroll:
  default_batch_size: 20
  session_ttl: 1h

fetch:
  max_concurrency: 8
  default_timeout: 3s
`
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "test-config.yml")
		err := os.WriteFile(configPath, []byte(configContent), 0o644)
		require.NoError(t, err)

		cfg, err := Load(configPath)
		require.NoError(t, err)

		assert.Equal(t, 50, cfg.Scroll.DefaultBatchSize)
		assert.Equal(t, 10*time.Minute, cfg.Scroll.SessionTTL)
		assert.Equal(t, 4, cfg.Fetch.MaxConcurrency)
		assert.Equal(t, 2500*time.Millisecond, cfg.Fetch.DefaultTimeout)
		assert.Equal(t, 7*24*time.Hour, cfg.Scroll.DismissedRetention)
	})

	t.Run("malformed environment knob is ignored", func(t *testing.T) {
		t.Setenv("DEFAULT_BATCH_SIZE", "lots")

		configContent := `
scroll:
  default_batch_size: 20
`
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "test-config.yml")
		err := os.WriteFile(configPath, []byte(configContent), 0o644)
		require.NoError(t, err)

		cfg, err := Load(configPath)
		require.NoError(t, err)
		assert.Equal(t, 20, cfg.Scroll.DefaultBatchSize)
	})

	t.Run("file not found", func(t *testing.T) {
		cfg, err := Load("/non/existent/file.yml")
		require.Error(t, err)
		assert.Nil(t, cfg)
		assert.Contains(t, err.Error(), "read config file")
	})

	t.Run("invalid yaml", func(t *testing.T) {
		configContent := `
invalid yaml content
  with bad indentation
    and no structure
`
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "invalid.yml")
		err := os.WriteFile(configPath, []byte(configContent), 0o644)
		require.NoError(t, err)

		cfg, err := Load(configPath)
		require.Error(t, err)
		assert.Nil(t, cfg)
		assert.Contains(t, err.Error(), "parse config")
	})
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name    string
		config  string
		wantErr string
	}{
		{
			name:    "server timeout too small",
			config:  "server:\n  timeout: 100ms\n",
			wantErr: "server timeout must be at least 1 second",
		},
		{
			name:    "batch size too large",
			config:  "scroll:\n  default_batch_size: 500\n",
			wantErr: "scroll.default_batch_size must be between 1 and 100",
		},
		{
			name:    "session ttl too small",
			config:  "scroll:\n  session_ttl: 5s\n",
			wantErr: "scroll.session_ttl must be at least 1 minute",
		},
		{
			name:    "dismissed retention too small",
			config:  "scroll:\n  dismissed_retention: 10m\n",
			wantErr: "scroll.dismissed_retention must be at least 1 hour",
		},
		{
			name:    "negative max concurrency",
			config:  "fetch:\n  max_concurrency: -2\n",
			wantErr: "fetch.max_concurrency must be at least 1",
		},
		{
			name:    "fetch timeout too small",
			config:  "fetch:\n  default_timeout: 1ms\n",
			wantErr: "fetch.default_timeout must be at least 100ms",
		},
		{
			name:    "negative per-source timeout",
			config:  "fetch:\n  timeouts:\n    rss: -5s\n",
			wantErr: "fetch.timeouts[rss] must be positive",
		},
		{
			name:    "flush interval too small",
			config:  "readsync:\n  flush_interval: 100ms\n",
			wantErr: "readsync.flush_interval must be at least 1 second",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			configPath := filepath.Join(tmpDir, "test-config.yml")
			err := os.WriteFile(configPath, []byte(tt.config), 0o644)
			require.NoError(t, err)

			cfg, err := Load(configPath)
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_GetServerConfig(t *testing.T) {
	cfg := &Config{}
	cfg.Server.Listen = ":9090"
	cfg.Server.Timeout = 45 * time.Second

	listen, timeout := cfg.GetServerConfig()
	assert.Equal(t, ":9090", listen)
	assert.Equal(t, 45*time.Second, timeout)
}

func TestConfig_SectionAccessors(t *testing.T) {
	cfg := &Config{
		Scroll: ScrollConfig{
			QueriesDir:       "q",
			RecipesDir:       "r",
			DefaultBatchSize: 25,
			SessionTTL:       time.Hour,
		},
		Fetch: FetchConfig{
			MaxConcurrency: 4,
			DefaultTimeout: 2 * time.Second,
			Timeouts:       map[string]time.Duration{"weather": time.Second},
		},
		ReadSync: ReadSyncConfig{
			DSN:           "file:marks.db",
			FlushInterval: 30 * time.Second,
			MaxAttempts:   3,
		},
	}

	assert.Equal(t, cfg.Scroll, cfg.GetScrollConfig())
	assert.Equal(t, cfg.Fetch, cfg.GetFetchConfig())
	assert.Equal(t, cfg.ReadSync, cfg.GetReadSyncConfig())
}
