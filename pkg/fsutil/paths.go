package fsutil

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	// AppName is the name of the application used in paths.
	AppName = "biofetch"
)

// GetCacheDir returns the platform-specific cache directory for the application.
// On Linux: ~/.cache/biofetch/
// On macOS: ~/Library/Caches/biofetch/
// On Windows: %LOCALAPPDATA%\biofetch\cache\
func GetCacheDir() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cacheDir, AppName), nil
}

// GetConfigDir returns the platform-specific configuration directory for the
// application.
func GetConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, AppName), nil
}

// forbiddenFilenameChars are characters that are not portable across host
// filesystems. They are replaced by SanitizeFilename.
const forbiddenFilenameChars = `/\<>:"?*|`

// SanitizeFilename replaces characters that are unsafe in filenames with
// underscores so that remote names can be embedded into cache file names.
func SanitizeFilename(name string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(forbiddenFilenameChars, r) {
			return '_'
		}
		return r
	}, name)
}
