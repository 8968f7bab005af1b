package hooks

import (
	"os"
	"path/filepath"
	"strings"

	pkgerrors "github.com/glorpus-work/biofetch/pkg/errors"
)

// scriptExtension is the only hook script format currently supported.
const scriptExtension = ".tengo"

// LoadFromDir registers every recognized hook script found in dir. Scripts are
// matched by file name: <hook-type>.tengo. Unknown names and other file types
// are skipped, so the directory can hold notes or disabled scripts.
func LoadFromDir(manager Manager, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return pkgerrors.Wrapf(err, "failed to read hooks directory %s", dir)
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != scriptExtension {
			continue
		}

		hookType := HookType(strings.TrimSuffix(entry.Name(), scriptExtension))
		switch hookType {
		case PreFetch, PostFetch, CacheHit:
		default:
			continue
		}

		scriptPath := filepath.Join(dir, entry.Name())
		content, err := os.ReadFile(scriptPath)
		if err != nil {
			return pkgerrors.Wrapf(err, "error reading hook script %s", scriptPath)
		}

		if err := manager.AddHook(Hook{Type: hookType, Content: string(content)}); err != nil {
			return pkgerrors.Wrapf(err, "error adding hook %s", hookType)
		}
	}

	return nil
}
