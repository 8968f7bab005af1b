// Package credentials supplies login secrets for gated resources. Transports
// ask an injected Provider rather than prompting directly, so batch and
// non-interactive environments can swap in file-backed or static providers.
package credentials

import (
	"context"
	"errors"

	pkgerrors "github.com/glorpus-work/biofetch/pkg/errors"
)

// Credentials is one username/password pair.
type Credentials struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Provider resolves the credentials for a named resource (typically the host
// of a gated download, e.g. "sftp.example.org" or "cosmic").
type Provider interface {
	Get(ctx context.Context, resource string) (Credentials, error)
}

// Static is an in-memory provider keyed by resource name.
type Static map[string]Credentials

// Get returns the credentials stored for resource.
func (s Static) Get(_ context.Context, resource string) (Credentials, error) {
	creds, ok := s[resource]
	if !ok {
		return Credentials{}, pkgerrors.Wrapf(pkgerrors.ErrMissingCredentials,
			"no credentials configured for %q", resource)
	}
	return creds, nil
}

// Chain tries each provider in order and returns the first hit. Providers that
// report missing credentials are skipped; any other error aborts the chain.
type Chain []Provider

// Get resolves resource through the chain.
func (c Chain) Get(ctx context.Context, resource string) (Credentials, error) {
	for _, p := range c {
		creds, err := p.Get(ctx, resource)
		if err == nil {
			return creds, nil
		}
		if !errors.Is(err, pkgerrors.ErrMissingCredentials) {
			return Credentials{}, err
		}
	}
	return Credentials{}, pkgerrors.Wrapf(pkgerrors.ErrMissingCredentials,
		"no provider could supply credentials for %q", resource)
}
