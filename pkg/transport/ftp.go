package transport

import (
	"context"
	"io"
	"net"
	"net/url"
	"os"
	"path/filepath"

	"github.com/jlaffaye/ftp"

	"github.com/glorpus-work/biofetch/internal/logger"
	"github.com/glorpus-work/biofetch/pkg/credentials"
	pkgerrors "github.com/glorpus-work/biofetch/pkg/errors"
	"github.com/glorpus-work/biofetch/pkg/fsutil"
)

// ftpStatusComplete is the FTP "closing data connection, transfer complete"
// reply code, reported as the result status of a successful FTP transfer.
const ftpStatusComplete = 226

// FTPTransport downloads files over FTP. Servers that require a login get
// their credentials from the provider; everything else uses anonymous access.
type FTPTransport struct {
	creds credentials.Provider
}

// NewFTPTransport creates an FTP transport. creds may be nil for
// anonymous-only use.
func NewFTPTransport(creds credentials.Provider) *FTPTransport {
	return &FTPTransport{creds: creds}
}

// Fetch retrieves an ftp:// URL into destPath, retrying transient failures.
func (t *FTPTransport) Fetch(ctx context.Context, req *Request, destPath string) (*Result, error) {
	host, path, err := parseFTPURL(req.URL)
	if err != nil {
		return nil, err
	}

	if err := fsutil.EnsureFileDir(destPath); err != nil {
		return nil, pkgerrors.Wrap(err, "could not create download directory")
	}

	attempts := req.retries()
	var lastErr error

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			if !req.Silent {
				logger.Warn("retrying ftp download", logger.Fields{
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
			if !req.Silent {
				logger.Debug("ftp download complete", logger.Fields{
					"url":   req.URL,
					"bytes": n,
				})
			}
			return &Result{StatusCode: ftpStatusComplete, BytesWritten: n}, nil
		}
		lastErr = err
	}

	// Attempts only ever write to their own temp file, which they already
	// cleaned up; anything sitting at destPath is a prior valid entry.
	return nil, pkgerrors.Wrapf(pkgerrors.ErrDownloadFailed, "%s: %v", req.URL, lastErr)
}

func (t *FTPTransport) attempt(ctx context.Context, req *Request, host, path, destPath string) (int64, error) {
	conn, err := ftp.Dial(host,
		ftp.DialWithTimeout(req.connectTimeout()),
		ftp.DialWithContext(ctx),
	)
	if err != nil {
		return 0, pkgerrors.Wrap(err, "ftp dial")
	}
	defer func() { _ = conn.Quit() }()

	user, password := "anonymous", "anonymous@"
	if t.creds != nil {
		if c, err := t.creds.Get(ctx, hostOnly(host)); err == nil {
			user, password = c.Username, c.Password
		}
	}
	if err := conn.Login(user, password); err != nil {
		return 0, pkgerrors.Wrap(err, "ftp login")
	}

	resp, err := conn.Retr(path)
	if err != nil {
		return 0, pkgerrors.Wrap(err, "ftp retrieve")
	}
	defer func() { _ = resp.Close() }()

	tmp, err := os.CreateTemp(filepath.Dir(destPath), "dl-*.tmp")
	if err != nil {
		return 0, pkgerrors.Wrap(err, "could not create temp file")
	}
	tmpPath := tmp.Name()

	counter := &countingWriter{w: tmp, progress: req.Progress}
	_, copyErr := io.Copy(counter, resp)
	if closeErr := tmp.Close(); closeErr != nil && copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		removeTmp(tmpPath)
		return counter.n, pkgerrors.Wrap(copyErr, "ftp transfer")
	}
	if counter.n == 0 {
		removeTmp(tmpPath)
		return 0, pkgerrors.Wrapf(pkgerrors.ErrEmptyResponse, "%s", req.URL)
	}

	if err := fsutil.Move(tmpPath, destPath); err != nil {
		removeTmp(tmpPath)
		return counter.n, pkgerrors.Wrap(err, "could not finalize download")
	}
	return counter.n, nil
}

// parseFTPURL extracts host (with port) and path from an FTP URL.
func parseFTPURL(rawURL string) (host, path string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", pkgerrors.Wrapf(pkgerrors.ErrInvalidURL, "%s: %v", rawURL, err)
	}
	if u.Scheme != "ftp" {
		return "", "", pkgerrors.Wrapf(pkgerrors.ErrUnknownScheme, "expected ftp, got %q", u.Scheme)
	}

	host = u.Host
	if _, _, splitErr := net.SplitHostPort(host); splitErr != nil {
		host = net.JoinHostPort(host, "21")
	}

	if u.Path == "" {
		return "", "", pkgerrors.Wrapf(pkgerrors.ErrInvalidURL, "empty path in %s", rawURL)
	}
	return host, u.Path, nil
}

func hostOnly(hostPort string) string {
	if host, _, err := net.SplitHostPort(hostPort); err == nil {
		return host
	}
	return hostPort
}
