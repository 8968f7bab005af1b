package cli

import (
	"fmt"

	"github.com/glorpus-work/biofetch/pkg/config"
	"github.com/glorpus-work/biofetch/pkg/fetch"
)

// These variables are set by the main package from the global flags.
var (
	ConfigPath   *string
	Verbose      *bool
	OutputFormat *string
)

// loadConfig loads the configuration from the --config path or the default
// location, applying CLI flag overrides.
func loadConfig() (*config.Config, error) {
	configPath := ""
	if ConfigPath != nil {
		configPath = *ConfigPath
	}
	if configPath == "" {
		defaultPath, err := config.GetDefaultConfigPath()
		if err != nil {
			return nil, fmt.Errorf("failed to get default config path: %w", err)
		}
		configPath = defaultPath
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if OutputFormat != nil && *OutputFormat != "" {
		cfg.Settings.OutputFormat = *OutputFormat
	}
	if Verbose != nil && *Verbose {
		cfg.Settings.LogLevel = "debug"
	}

	return cfg, nil
}

// loadClient builds a fetch client from the loaded configuration.
func loadClient() (*config.Config, *fetch.Client, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	client, err := fetch.NewFromConfig(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create client: %w", err)
	}
	return cfg, client, nil
}
