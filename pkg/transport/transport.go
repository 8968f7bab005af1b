// Package transport materializes the bytes of one remote resource into a local
// file. It carries the network-facing half of a fetch: request building,
// retries, timeouts, rate limiting and failure diagnostics. HTTP(S), FTP and
// SFTP are supported; the caller picks the transport by URL scheme.
package transport

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

// Default transport settings.
const (
	DefaultTimeout        = 120 * time.Second
	DefaultConnectTimeout = 30 * time.Second
	DefaultRetries        = 3
	DefaultUserAgent      = "biofetch/1.0"

	// diagnosticBodyLimit bounds how much of an error response body is kept
	// for logging.
	diagnosticBodyLimit = 5000
)

// ProgressFunc is called synchronously with the cumulative number of bytes
// written to the target file.
type ProgressFunc func(bytes int64)

// MultipartField is one field of a multipart/form-data request body. When
// Filename is set the field is sent as a file part.
type MultipartField struct {
	Name     string
	Value    []byte
	Filename string
}

// Request describes one transfer. The zero value of every optional field
// selects a sensible default.
type Request struct {
	URL string

	// Query parameters are appended to the URL. Post form fields, Binary and
	// Multipart bodies are mutually exclusive; setting any of them turns the
	// request into a POST.
	Query     url.Values
	Post      url.Values
	Binary    []byte
	Multipart []MultipartField

	Headers http.Header

	// Follow controls whether HTTP redirects are followed.
	Follow bool

	// Compressed asks the server for gzip transport encoding.
	Compressed bool

	ConnectTimeout time.Duration
	Timeout        time.Duration
	Retries        int

	// EmptyAttemptAgain retries a 200 response with an empty body.
	EmptyAttemptAgain bool

	// AcceptTruncated treats a transfer cut short by the peer as complete.
	// Some servers close the connection early on success; enabling this trades
	// an error for possible silent truncation, so it stays off by default.
	AcceptTruncated bool

	// KeepFailed leaves the partial file next to the target path, under
	// FailedSuffix, after a failed transfer instead of deleting it. The
	// suffix keeps the broken file out of the cache slot, so it can never be
	// served as a valid entry later.
	KeepFailed bool

	// BypassURLEncoding appends query parameters without percent-escaping.
	BypassURLEncoding bool

	// Silent suppresses per-transfer progress logging.
	Silent bool

	Progress ProgressFunc
}

// Result reports the outcome of one transfer. StatusCode carries the HTTP
// status, or the FTP completion code (226) for FTP transfers.
type Result struct {
	StatusCode   int
	BytesWritten int64
	Header       http.Header
}

// Transport downloads the resource described by req into destPath. On success
// exactly one file exists at destPath; a failed transfer never writes to
// destPath itself, though with req.KeepFailed the partial file survives at
// destPath + FailedSuffix.
type Transport interface {
	Fetch(ctx context.Context, req *Request, destPath string) (*Result, error)
}

// FailedSuffix marks a partial file kept after a failed transfer. The marker
// keeps it apart from the valid entry at the plain path.
const FailedSuffix = ".failed"

func (r *Request) retries() int {
	if r.Retries <= 0 {
		return DefaultRetries
	}
	return r.Retries
}

func (r *Request) timeout() time.Duration {
	if r.Timeout <= 0 {
		return DefaultTimeout
	}
	return r.Timeout
}

func (r *Request) connectTimeout() time.Duration {
	if r.ConnectTimeout <= 0 {
		return DefaultConnectTimeout
	}
	return r.ConnectTimeout
}
