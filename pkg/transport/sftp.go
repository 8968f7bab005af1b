package transport

import (
	"context"
	"errors"
	"io"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/glorpus-work/biofetch/internal/logger"
	"github.com/glorpus-work/biofetch/pkg/credentials"
	pkgerrors "github.com/glorpus-work/biofetch/pkg/errors"
	"github.com/glorpus-work/biofetch/pkg/fsutil"
)

// credentialForgetter is implemented by providers that can drop a cached
// entry, forcing a fresh prompt or lookup on the next Get. Used after an
// authentication failure so the user can re-enter a mistyped password.
type credentialForgetter interface {
	Forget(resource string)
}

// SFTPTransport downloads files over SFTP. Credentials come from the injected
// provider; interactive environments can supply a console provider, batch jobs
// a file-backed or static one.
type SFTPTransport struct {
	creds credentials.Provider
}

// NewSFTPTransport creates an SFTP transport using the given credential
// provider. The provider is required: SFTP servers in this domain are gated.
func NewSFTPTransport(creds credentials.Provider) *SFTPTransport {
	return &SFTPTransport{creds: creds}
}

// Fetch retrieves an sftp:// URL into destPath. On an authentication failure
// the cached credentials are forgotten (when the provider supports it) and the
// next attempt asks the provider again, so a mistyped interactive password
// gets a second chance within the retry budget.
func (t *SFTPTransport) Fetch(ctx context.Context, req *Request, destPath string) (*Result, error) {
	host, path, err := parseSFTPURL(req.URL)
	if err != nil {
		return nil, err
	}
	if t.creds == nil {
		return nil, pkgerrors.Wrapf(pkgerrors.ErrMissingCredentials,
			"no credential provider configured for %s (add an entry for %q to the secrets file)",
			req.URL, hostOnly(host))
	}

	if err := fsutil.EnsureFileDir(destPath); err != nil {
		return nil, pkgerrors.Wrap(err, "could not create download directory")
	}

	attempts := req.retries()
	var lastErr error

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			if !req.Silent {
				logger.Warn("retrying sftp download", logger.Fields{
					"url":     req.URL,
					"attempt": attempt + 1,
					"error":   errString(lastErr),
				})
			}
			sleepBackoff(ctx, attempt-1)
		}
		if ctx.Err() != nil {
			break
		}

		n, err := t.attempt(ctx, req, host, path, destPath)
		if err == nil {
			return &Result{StatusCode: 200, BytesWritten: n}, nil
		}
		lastErr = err

		if errors.Is(err, pkgerrors.ErrCredentialCanceled) {
			break
		}
		if isAuthError(err) {
			if f, ok := t.creds.(credentialForgetter); ok {
				f.Forget(hostOnly(host))
			}
		}
	}

	// Attempts only ever write to their own temp file, which they already
	// cleaned up; anything sitting at destPath is a prior valid entry.
	return nil, pkgerrors.Wrapf(pkgerrors.ErrDownloadFailed, "%s: %v", req.URL, lastErr)
}

func (t *SFTPTransport) attempt(ctx context.Context, req *Request, host, path, destPath string) (int64, error) {
	creds, err := t.creds.Get(ctx, hostOnly(host))
	if err != nil {
		return 0, err
	}

	sshConfig := &ssh.ClientConfig{
		User:    creds.Username,
		Auth:    []ssh.AuthMethod{ssh.Password(creds.Password)},
		Timeout: req.connectTimeout(),
		// Data servers in this domain rotate host keys too often to pin them.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint:gosec
	}

	sshConn, err := ssh.Dial("tcp", host, sshConfig)
	if err != nil {
		return 0, pkgerrors.Wrap(err, "ssh dial")
	}
	defer func() { _ = sshConn.Close() }()

	client, err := sftp.NewClient(sshConn)
	if err != nil {
		return 0, pkgerrors.Wrap(err, "sftp session")
	}
	defer func() { _ = client.Close() }()

	src, err := client.Open(path)
	if err != nil {
		return 0, pkgerrors.Wrapf(err, "sftp open %s", path)
	}
	defer func() { _ = src.Close() }()

	tmp, err := os.CreateTemp(filepath.Dir(destPath), "dl-*.tmp")
	if err != nil {
		return 0, pkgerrors.Wrap(err, "could not create temp file")
	}
	tmpPath := tmp.Name()

	counter := &countingWriter{w: tmp, progress: req.Progress}
	_, copyErr := io.Copy(counter, src)
	if closeErr := tmp.Close(); closeErr != nil && copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		removeTmp(tmpPath)
		return counter.n, pkgerrors.Wrap(copyErr, "sftp transfer")
	}

	if err := fsutil.Move(tmpPath, destPath); err != nil {
		removeTmp(tmpPath)
		return counter.n, pkgerrors.Wrap(err, "could not finalize download")
	}

	if !req.Silent {
		logger.Debug("sftp download complete", logger.Fields{
			"url":   req.URL,
			"bytes": counter.n,
		})
	}
	return counter.n, nil
}

func parseSFTPURL(rawURL string) (host, path string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", pkgerrors.Wrapf(pkgerrors.ErrInvalidURL, "%s: %v", rawURL, err)
	}
	if u.Scheme != "sftp" {
		return "", "", pkgerrors.Wrapf(pkgerrors.ErrUnknownScheme, "expected sftp, got %q", u.Scheme)
	}

	host = u.Host
	if _, _, splitErr := net.SplitHostPort(host); splitErr != nil {
		host = net.JoinHostPort(host, "22")
	}

	if u.Path == "" {
		return "", "", pkgerrors.Wrapf(pkgerrors.ErrInvalidURL, "empty path in %s", rawURL)
	}
	return host, u.Path, nil
}

func isAuthError(err error) bool {
	if err == nil {
		return false
	}
	var sshErr *ssh.ServerAuthError
	if errors.As(err, &sshErr) {
		return true
	}
	return strings.Contains(err.Error(), "unable to authenticate")
}
