package credentials

import (
	"context"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	pkgerrors "github.com/glorpus-work/biofetch/pkg/errors"
)

// FileProvider reads credentials from a YAML secrets file mapping resource
// names to username/password pairs:
//
//	sftp.example.org:
//	  username: alice
//	  password: hunter2
//
// The file is loaded lazily on first use and cached for the provider's
// lifetime. A missing file means no credentials, not an error, so the provider
// composes cleanly in a Chain.
type FileProvider struct {
	Path string

	mu      sync.Mutex
	loaded  bool
	entries map[string]Credentials
}

// NewFileProvider creates a provider backed by the secrets file at path.
func NewFileProvider(path string) *FileProvider {
	return &FileProvider{Path: path}
}

// Get returns the credentials stored for resource. The error for a missing
// entry names the resource and the secrets file so the user knows where to add
// the login.
func (f *FileProvider) Get(_ context.Context, resource string) (Credentials, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.loaded {
		if err := f.load(); err != nil {
			return Credentials{}, err
		}
	}

	creds, ok := f.entries[resource]
	if !ok {
		return Credentials{}, pkgerrors.Wrapf(pkgerrors.ErrMissingCredentials,
			"no entry for %q in secrets file %s", resource, f.Path)
	}
	return creds, nil
}

// Store writes or replaces the credentials for resource and persists the file
// with owner-only permissions.
func (f *FileProvider) Store(resource string, creds Credentials) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.loaded {
		if err := f.load(); err != nil {
			return err
		}
	}

	f.entries[resource] = creds

	data, err := yaml.Marshal(f.entries)
	if err != nil {
		return pkgerrors.Wrap(err, "failed to encode secrets file")
	}
	if err := os.WriteFile(f.Path, data, 0o600); err != nil {
		return pkgerrors.Wrapf(err, "failed to write secrets file %s", f.Path)
	}
	return nil
}

func (f *FileProvider) load() error {
	f.entries = make(map[string]Credentials)
	f.loaded = true

	data, err := os.ReadFile(f.Path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to read secrets file %s", f.Path)
	}

	if err := yaml.Unmarshal(data, &f.entries); err != nil {
		return pkgerrors.Wrapf(err, "failed to parse secrets file %s", f.Path)
	}
	return nil
}
