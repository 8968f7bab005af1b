package errors

import "fmt"

// Common error types.
var (
	// Request errors.
	ErrEmptyURL       = fmt.Errorf("request URL cannot be empty")
	ErrInvalidURL     = fmt.Errorf("invalid request URL")
	ErrInvalidPath    = fmt.Errorf("invalid path")
	ErrUnknownScheme  = fmt.Errorf("unsupported URL scheme")
	ErrDownloadFailed = fmt.Errorf("download failed")
	ErrEmptyResponse  = fmt.Errorf("empty response body")
	ErrTruncated      = fmt.Errorf("transfer truncated")

	// Cache errors.
	ErrCacheClean     = fmt.Errorf("failed to clean cache")
	ErrCacheInfo      = fmt.Errorf("failed to get cache info")
	ErrCacheDirectory = fmt.Errorf("cache directory cannot be empty")

	// Archive errors.
	ErrUnsupportedArchive = fmt.Errorf("unsupported archive type")
	ErrCorruptArchive     = fmt.Errorf("corrupt archive")
	ErrMemberNotFound     = fmt.Errorf("archive member not found")

	// Config errors.
	ErrEmptyConfigPath   = fmt.Errorf("config file path cannot be empty")
	ErrInvalidConfigPath = fmt.Errorf("invalid config file path")
	ErrConfigParse       = fmt.Errorf("failed to parse config")
	ErrConfigValidation  = fmt.Errorf("invalid configuration")
	ErrConfigEncode      = fmt.Errorf("failed to encode config")
	ErrConfigDirectory   = fmt.Errorf("failed to create config directory")

	// Credential errors.
	ErrMissingCredentials = fmt.Errorf("missing credentials")
	ErrCredentialCanceled = fmt.Errorf("credential entry canceled")

	// Release selection errors.
	ErrNoRelease = fmt.Errorf("no versioned release found")

	// Hook errors.
	ErrHookTypeEmpty = fmt.Errorf("hook type cannot be empty")
	ErrHookExecution = fmt.Errorf("error executing hook")
	ErrHookScript    = fmt.Errorf("hook script error")
	ErrHookVeto      = fmt.Errorf("fetch vetoed by hook")
)

// Wrap wraps an error with additional context.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf wraps an error with additional formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
