package config

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// SetValue sets a configuration value by key.
// Supported keys:
//   - cache_dir: string - path to the cache directory
//   - http_timeout: duration - total transfer timeout
//   - connect_timeout: duration - connection establishment timeout
//   - retries: int - attempts per transfer
//   - user_agent: string - User-Agent header value
//   - secrets_file: string - path to the credentials file
//   - hooks_dir: string - path to the hook scripts directory
//   - output_format: string - output format (text, json)
//   - log_level: string - logging level (debug, info, warn, error)
func (c *Config) SetValue(key, value string) error {
	switch key {
	case "cache_dir":
		c.Settings.CacheDir = value
	case "http_timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration value for %s: %s", key, value)
		}
		c.Settings.HTTPTimeout = d
	case "connect_timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration value for %s: %s", key, value)
		}
		c.Settings.ConnectTimeout = d
	case "retries":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer value for %s: %s", key, value)
		}
		c.Settings.Retries = n
	case "user_agent":
		c.Settings.UserAgent = value
	case "secrets_file":
		c.Settings.SecretsFile = value
	case "hooks_dir":
		c.Settings.HooksDir = value
	case "output_format":
		c.Settings.OutputFormat = value
	case "log_level":
		c.Settings.LogLevel = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}

// GetValue returns a configuration value by key as a string.
func (c *Config) GetValue(key string) (string, error) {
	switch key {
	case "cache_dir":
		return c.Settings.CacheDir, nil
	case "http_timeout":
		return c.Settings.HTTPTimeout.String(), nil
	case "connect_timeout":
		return c.Settings.ConnectTimeout.String(), nil
	case "retries":
		return strconv.Itoa(c.Settings.Retries), nil
	case "user_agent":
		return c.Settings.UserAgent, nil
	case "secrets_file":
		return c.Settings.SecretsFile, nil
	case "hooks_dir":
		return c.Settings.HooksDir, nil
	case "output_format":
		return c.Settings.OutputFormat, nil
	case "log_level":
		return c.Settings.LogLevel, nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
}

// ToMap flattens the settings into yaml-key to string-value pairs for display.
func (c *Config) ToMap() map[string]string {
	result := make(map[string]string)

	settingsValue := reflect.ValueOf(c.Settings)
	settingsType := settingsValue.Type()

	for i := 0; i < settingsValue.NumField(); i++ {
		field := settingsType.Field(i)
		yamlTag := field.Tag.Get("yaml")
		if yamlTag == "" || yamlTag == "-" {
			continue
		}
		yamlKey := strings.Split(yamlTag, ",")[0]

		fieldValue := settingsValue.Field(i)
		var strValue string
		switch v := fieldValue.Interface().(type) {
		case time.Duration:
			strValue = v.String()
		case string:
			strValue = v
		case int:
			strValue = strconv.Itoa(v)
		case map[string]float64:
			strValue = fmt.Sprintf("%v", v)
		default:
			strValue = fmt.Sprintf("%v", v)
		}

		result[yamlKey] = strValue
	}

	return result
}
