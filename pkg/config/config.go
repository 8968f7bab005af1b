// Package config handles loading, validating and persisting the application
// configuration. Settings come from a YAML file with sensible defaults for
// anything not set, so a missing config file is not an error.
package config

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	pkgerrors "github.com/glorpus-work/biofetch/pkg/errors"
	"github.com/glorpus-work/biofetch/pkg/fsutil"
)

// Config represents the application configuration.
type Config struct {
	Settings Settings `yaml:"settings"`
}

// Settings represents general application settings.
type Settings struct {
	// Cache settings
	CacheDir string `yaml:"cache_dir,omitempty"`

	// Network settings
	HTTPTimeout    time.Duration `yaml:"http_timeout"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	Retries        int           `yaml:"retries"`
	UserAgent      string        `yaml:"user_agent,omitempty"`

	// RateLimits maps host names to requests-per-second limits.
	RateLimits map[string]float64 `yaml:"rate_limits,omitempty"`

	// Credential settings
	SecretsFile string `yaml:"secrets_file,omitempty"`

	// Hook settings
	HooksDir string `yaml:"hooks_dir,omitempty"`

	// Output settings
	OutputFormat string `yaml:"output_format"` // text, json
	LogLevel     string `yaml:"log_level"`     // debug, info, warn, error
}

// Default configuration values.
const (
	// DefaultHTTPTimeout is the default timeout for a whole transfer.
	DefaultHTTPTimeout = 120 * time.Second

	// DefaultConnectTimeout is the default timeout for establishing a
	// connection.
	DefaultConnectTimeout = 30 * time.Second

	// DefaultRetries is the default number of attempts per transfer.
	DefaultRetries = 3

	// YAMLIndent is the number of spaces to use for YAML indentation.
	YAMLIndent = 2
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	configDir, err := fsutil.GetConfigDir()
	if err != nil {
		configDir = "."
	}
	cacheDir, err := fsutil.GetCacheDir()
	if err != nil {
		cacheDir = filepath.Join(os.TempDir(), fsutil.AppName)
	}

	return &Config{
		Settings: Settings{
			CacheDir:       cacheDir,
			HTTPTimeout:    DefaultHTTPTimeout,
			ConnectTimeout: DefaultConnectTimeout,
			Retries:        DefaultRetries,
			SecretsFile:    filepath.Join(configDir, "secrets.yaml"),
			HooksDir:       filepath.Join(configDir, "hooks"),
			OutputFormat:   "text",
			LogLevel:       "info",
		},
	}
}

// LoadConfig loads configuration from a file. A missing file yields the
// default configuration.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, pkgerrors.ErrEmptyConfigPath
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.ErrInvalidConfigPath, err.Error())
	}

	file, err := os.Open(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, pkgerrors.Wrapf(err, "failed to open config file: %s", path)
	}
	defer func() { _ = file.Close() }()

	return LoadConfigFromReader(file)
}

// LoadConfigFromReader loads configuration from an io.Reader.
func LoadConfigFromReader(reader io.Reader) (*Config, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to read config data")
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.ErrConfigParse, err.Error())
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// SaveConfig saves configuration to a file, replacing it atomically.
func (c *Config) SaveConfig(path string) error {
	if path == "" {
		return pkgerrors.ErrEmptyConfigPath
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.ErrInvalidConfigPath, err.Error())
	}

	if err := os.MkdirAll(filepath.Dir(absPath), fsutil.DirModeDefault); err != nil {
		return pkgerrors.Wrap(pkgerrors.ErrConfigDirectory, err.Error())
	}

	return fsutil.ReplaceFile(absPath, func(w io.Writer) error {
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(YAMLIndent)
		if err := encoder.Encode(c); err != nil {
			return pkgerrors.Wrap(pkgerrors.ErrConfigEncode, err.Error())
		}
		return encoder.Close()
	})
}

// ToYAML converts the config to YAML bytes.
func (c *Config) ToYAML() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.ErrConfigEncode, err.Error())
	}
	return data, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c == nil {
		return pkgerrors.ErrConfigValidation
	}

	s := c.Settings
	if s.HTTPTimeout < 0 {
		return pkgerrors.Wrap(pkgerrors.ErrConfigValidation, "http_timeout cannot be negative")
	}
	if s.ConnectTimeout < 0 {
		return pkgerrors.Wrap(pkgerrors.ErrConfigValidation, "connect_timeout cannot be negative")
	}
	if s.Retries < 1 {
		return pkgerrors.Wrap(pkgerrors.ErrConfigValidation, "retries must be at least 1")
	}
	for host, limit := range s.RateLimits {
		if limit <= 0 {
			return pkgerrors.Wrapf(pkgerrors.ErrConfigValidation,
				"rate limit for %s must be positive", host)
		}
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[s.OutputFormat] {
		return pkgerrors.Wrapf(pkgerrors.ErrConfigValidation,
			"invalid output_format %q, must be one of: text, json", s.OutputFormat)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(s.LogLevel)] {
		return pkgerrors.Wrapf(pkgerrors.ErrConfigValidation,
			"invalid log_level %q, must be one of: debug, info, warn, error", s.LogLevel)
	}

	return nil
}

// GetCacheDir returns the base cache directory from settings.
func (c *Config) GetCacheDir() string {
	return c.Settings.CacheDir
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() (string, error) {
	configDir, err := fsutil.GetConfigDir()
	if err != nil {
		return "", pkgerrors.Wrap(err, "failed to get user config directory")
	}
	return filepath.Join(configDir, "config.yaml"), nil
}

// applyDefaults fills in missing values with defaults.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()

	if c.Settings.CacheDir == "" {
		c.Settings.CacheDir = defaults.Settings.CacheDir
	}
	if c.Settings.HTTPTimeout == 0 {
		c.Settings.HTTPTimeout = defaults.Settings.HTTPTimeout
	}
	if c.Settings.ConnectTimeout == 0 {
		c.Settings.ConnectTimeout = defaults.Settings.ConnectTimeout
	}
	if c.Settings.Retries == 0 {
		c.Settings.Retries = defaults.Settings.Retries
	}
	if c.Settings.SecretsFile == "" {
		c.Settings.SecretsFile = defaults.Settings.SecretsFile
	}
	if c.Settings.HooksDir == "" {
		c.Settings.HooksDir = defaults.Settings.HooksDir
	}
	if c.Settings.OutputFormat == "" {
		c.Settings.OutputFormat = defaults.Settings.OutputFormat
	}
	if c.Settings.LogLevel == "" {
		c.Settings.LogLevel = defaults.Settings.LogLevel
	}
}
