package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, Validate(cfg))
	assert.Equal(t, 5, cfg.Loader.MaxStallCount)
	assert.Equal(t, 2*time.Second, cfg.Loader.SettleInterval)
	assert.Equal(t, 3*time.Second, cfg.Loader.ClickSettle)
	assert.Equal(t, 30*time.Second, cfg.Browser.StartupTimeout)
	assert.Equal(t, 15*time.Second, cfg.Browser.FallbackTimeout)
	assert.ErrorIs(t, RequireCredentials(cfg), ErrMissingCredentials)
}

func TestLoadFromFile(t *testing.T) {
	clearCredentialEnv(t)

	path := filepath.Join(t.TempDir(), "portalwatch.yaml")
	yaml := `
storage:
  type: jsonl
  path: /tmp/posts.jsonl
loader:
  settle_interval: 500ms
  max_stall_count: 3
browser:
  headless: false
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "jsonl", cfg.Storage.Type)
	assert.Equal(t, "/tmp/posts.jsonl", cfg.Storage.Path)
	assert.Equal(t, 500*time.Millisecond, cfg.Loader.SettleInterval)
	assert.Equal(t, 3, cfg.Loader.MaxStallCount)
	assert.False(t, cfg.Browser.Headless)
	// untouched keys keep their defaults
	assert.Equal(t, 3*time.Second, cfg.Loader.ClickSettle)
	assert.Len(t, cfg.Extractor.Selectors, 5)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadEnvOverrides(t *testing.T) {
	clearCredentialEnv(t)
	t.Setenv("PORTALWATCH_STORAGE_TYPE", "memory")
	t.Setenv("PORTALWATCH_WATCH_INTERVAL", "5m")

	cfg, err := Load(writeEmptyConfig(t))
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Storage.Type)
	assert.Equal(t, 5*time.Minute, cfg.Watch.Interval)
}

func TestLoadLegacyCredentialNames(t *testing.T) {
	clearCredentialEnv(t)
	t.Setenv("USER_ID", "student@example.edu")
	t.Setenv("PASSWORD", "hunter2")

	cfg, err := Load(writeEmptyConfig(t))
	require.NoError(t, err)
	assert.Equal(t, "student@example.edu", cfg.Portal.Email)
	assert.Equal(t, "hunter2", cfg.Portal.Password)
	assert.NoError(t, RequireCredentials(cfg))
}

func TestLoadPrefixedCredentialsWin(t *testing.T) {
	clearCredentialEnv(t)
	t.Setenv("USER_ID", "legacy@example.edu")
	t.Setenv("PORTALWATCH_PORTAL_EMAIL", "new@example.edu")

	cfg, err := Load(writeEmptyConfig(t))
	require.NoError(t, err)
	assert.Equal(t, "new@example.edu", cfg.Portal.Email)
}

func TestLoadEnvFile(t *testing.T) {
	t.Setenv("PORTALWATCH_DOTENV_PROBE", "")
	os.Unsetenv("PORTALWATCH_DOTENV_PROBE")

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("PORTALWATCH_DOTENV_PROBE=loaded\n"), 0o600))

	require.NoError(t, LoadEnvFile(path))
	assert.Equal(t, "loaded", os.Getenv("PORTALWATCH_DOTENV_PROBE"))

	assert.NoError(t, LoadEnvFile(filepath.Join(t.TempDir(), "missing.env")))
}

func TestLoadEnvFileKeepsExisting(t *testing.T) {
	t.Setenv("PORTALWATCH_DOTENV_PROBE", "from-shell")

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("PORTALWATCH_DOTENV_PROBE=from-file\n"), 0o600))

	require.NoError(t, LoadEnvFile(path))
	assert.Equal(t, "from-shell", os.Getenv("PORTALWATCH_DOTENV_PROBE"))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad portal url", func(c *Config) { c.Portal.URL = "ftp://x" }},
		{"empty success selector", func(c *Config) { c.Portal.SuccessSelector = "" }},
		{"bad remote scheme", func(c *Config) { c.Browser.RemoteURL = "file:///tmp/sock" }},
		{"zero startup timeout", func(c *Config) { c.Browser.StartupTimeout = 0 }},
		{"zero stall count", func(c *Config) { c.Loader.MaxStallCount = 0 }},
		{"no selectors", func(c *Config) { c.Extractor.Selectors = nil }},
		{"inverted fallback window", func(c *Config) { c.Extractor.FallbackMinLength = 6000 }},
		{"unknown storage", func(c *Config) { c.Storage.Type = "csv" }},
		{"sqlite without path", func(c *Config) { c.Storage.Path = "" }},
		{"mongodb without uri", func(c *Config) { c.Storage.Type = "mongodb"; c.Storage.URI = "" }},
		{"bad log level", func(c *Config) { c.Logging.Level = "trace" }},
		{"bad metrics port", func(c *Config) { c.Metrics.Enabled = true; c.Metrics.Port = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, Validate(cfg))
		})
	}

	cfg := DefaultConfig()
	cfg.Browser.RemoteURL = "ws://127.0.0.1:9222/devtools/browser/abc"
	cfg.Storage.Type = "memory"
	cfg.Storage.Path = ""
	assert.NoError(t, Validate(cfg))
}

func clearCredentialEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"USER_ID", "PASSWORD", "PORTALWATCH_PORTAL_EMAIL", "PORTALWATCH_PORTAL_PASSWORD"} {
		t.Setenv(k, "")
	}
}

func writeEmptyConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "portalwatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{}\n"), 0o644))
	return path
}
