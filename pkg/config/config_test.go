package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/glorpus-work/biofetch/pkg/errors"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NotNil(t, cfg)

	assert.Equal(t, DefaultHTTPTimeout, cfg.Settings.HTTPTimeout)
	assert.Equal(t, DefaultConnectTimeout, cfg.Settings.ConnectTimeout)
	assert.Equal(t, DefaultRetries, cfg.Settings.Retries)
	assert.Equal(t, "text", cfg.Settings.OutputFormat)
	assert.Equal(t, "info", cfg.Settings.LogLevel)
	assert.NotEmpty(t, cfg.Settings.CacheDir)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Settings.Retries, cfg.Settings.Retries)
}

func TestLoadConfigEmptyPath(t *testing.T) {
	_, err := LoadConfig("")
	assert.ErrorIs(t, err, pkgerrors.ErrEmptyConfigPath)
}

func TestLoadConfigFromReader(t *testing.T) {
	yamlData := `
settings:
  cache_dir: /var/cache/biofetch
  http_timeout: 60s
  retries: 5
  rate_limits:
    rest.uniprot.org: 2.5
  log_level: debug
  output_format: json
`
	cfg, err := LoadConfigFromReader(strings.NewReader(yamlData))
	require.NoError(t, err)

	assert.Equal(t, "/var/cache/biofetch", cfg.Settings.CacheDir)
	assert.Equal(t, 60*time.Second, cfg.Settings.HTTPTimeout)
	assert.Equal(t, 5, cfg.Settings.Retries)
	assert.Equal(t, 2.5, cfg.Settings.RateLimits["rest.uniprot.org"])
	assert.Equal(t, "debug", cfg.Settings.LogLevel)

	// Unset values fall back to defaults.
	assert.Equal(t, DefaultConnectTimeout, cfg.Settings.ConnectTimeout)
}

func TestLoadConfigFromReaderInvalidYAML(t *testing.T) {
	_, err := LoadConfigFromReader(strings.NewReader("settings: ["))
	assert.ErrorIs(t, err, pkgerrors.ErrConfigParse)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults are valid", mutate: func(*Config) {}},
		{name: "negative timeout", mutate: func(c *Config) { c.Settings.HTTPTimeout = -time.Second }, wantErr: true},
		{name: "zero retries", mutate: func(c *Config) { c.Settings.Retries = 0 }, wantErr: true},
		{name: "negative rate limit", mutate: func(c *Config) {
			c.Settings.RateLimits = map[string]float64{"h": -1}
		}, wantErr: true},
		{name: "bad output format", mutate: func(c *Config) { c.Settings.OutputFormat = "xml" }, wantErr: true},
		{name: "bad log level", mutate: func(c *Config) { c.Settings.LogLevel = "trace" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, pkgerrors.ErrConfigValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSaveAndReloadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "config.yaml")

	cfg := DefaultConfig()
	cfg.Settings.CacheDir = "/data/cache"
	cfg.Settings.Retries = 7
	require.NoError(t, cfg.SaveConfig(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.True(t, info.Mode().IsRegular())

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/cache", loaded.Settings.CacheDir)
	assert.Equal(t, 7, loaded.Settings.Retries)
}

func TestSetAndGetValue(t *testing.T) {
	cfg := DefaultConfig()

	require.NoError(t, cfg.SetValue("cache_dir", "/tmp/c"))
	require.NoError(t, cfg.SetValue("http_timeout", "90s"))
	require.NoError(t, cfg.SetValue("retries", "2"))
	require.NoError(t, cfg.SetValue("log_level", "debug"))

	assert.Equal(t, "/tmp/c", cfg.Settings.CacheDir)
	assert.Equal(t, 90*time.Second, cfg.Settings.HTTPTimeout)
	assert.Equal(t, 2, cfg.Settings.Retries)

	got, err := cfg.GetValue("http_timeout")
	require.NoError(t, err)
	assert.Equal(t, "1m30s", got)

	assert.Error(t, cfg.SetValue("retries", "many"))
	assert.Error(t, cfg.SetValue("no_such_key", "x"))
	_, err = cfg.GetValue("no_such_key")
	assert.Error(t, err)
}

func TestToMap(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Settings.CacheDir = "/tmp/c"

	m := cfg.ToMap()
	assert.Equal(t, "/tmp/c", m["cache_dir"])
	assert.Equal(t, "info", m["log_level"])
	assert.Contains(t, m, "http_timeout")
}
