package credentials

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	pkgerrors "github.com/glorpus-work/biofetch/pkg/errors"
)

// ConsoleProvider prompts the user interactively for credentials. Entered
// credentials are cached in memory for the provider's lifetime and can
// optionally be persisted to a FileProvider for later runs. An empty username
// cancels the entry.
type ConsoleProvider struct {
	// In and Out default to stdin/stderr when nil.
	In  io.Reader
	Out io.Writer

	// Persist, when set, stores entered credentials for future runs.
	Persist *FileProvider

	mu      sync.Mutex
	entered map[string]Credentials
}

// NewConsoleProvider creates an interactive provider reading from stdin.
func NewConsoleProvider(persist *FileProvider) *ConsoleProvider {
	return &ConsoleProvider{Persist: persist}
}

// Get prompts for the credentials of resource, unless they were already
// entered during this run.
func (c *ConsoleProvider) Get(ctx context.Context, resource string) (Credentials, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if creds, ok := c.entered[resource]; ok {
		return creds, nil
	}

	if err := ctx.Err(); err != nil {
		return Credentials{}, err
	}

	in := c.In
	if in == nil {
		in = os.Stdin
	}
	out := c.Out
	if out == nil {
		out = os.Stderr
	}

	reader := bufio.NewReader(in)

	fmt.Fprintf(out, "Credentials required for %s\n", resource)
	fmt.Fprintf(out, "Username (empty to cancel): ")
	username, err := readLine(reader)
	if err != nil {
		return Credentials{}, pkgerrors.Wrap(err, "failed to read username")
	}
	if username == "" {
		return Credentials{}, pkgerrors.Wrapf(pkgerrors.ErrCredentialCanceled,
			"entry for %q", resource)
	}

	fmt.Fprintf(out, "Password: ")
	password, err := readLine(reader)
	if err != nil {
		return Credentials{}, pkgerrors.Wrap(err, "failed to read password")
	}

	creds := Credentials{Username: username, Password: password}

	if c.entered == nil {
		c.entered = make(map[string]Credentials)
	}
	c.entered[resource] = creds

	if c.Persist != nil {
		if err := c.Persist.Store(resource, creds); err != nil {
			// Persisting is a convenience; the entered credentials still work.
			fmt.Fprintf(out, "warning: could not save credentials: %v\n", err)
		}
	}

	return creds, nil
}

// Forget drops the cached entry for resource so the next Get prompts again.
// Used after an authentication failure to let the user correct a typo.
func (c *ConsoleProvider) Forget(resource string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entered, resource)
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
