package fetch

import (
	"net/http"
	"net/url"
	"time"

	"github.com/glorpus-work/biofetch/pkg/archive"
	"github.com/glorpus-work/biofetch/pkg/cache"
	"github.com/glorpus-work/biofetch/pkg/transport"
)

// Request describes one resource fetch. Only URL is required; everything else
// refines how the resource is retrieved, cached and opened.
type Request struct {
	URL string

	// Query parameters are appended to the URL and enter the cache key, as do
	// Post form fields and the Binary payload. Post, Binary and Multipart
	// bodies turn the request into a POST.
	Query     url.Values
	Post      url.Values
	Binary    []byte
	Multipart []transport.MultipartField

	Headers http.Header

	// Follow controls whether HTTP redirects are followed.
	Follow bool

	// Compressed asks the server for gzip transport encoding.
	Compressed bool

	ConnectTimeout time.Duration
	Timeout        time.Duration
	Retries        int

	// Large selects streaming handles over in-memory blobs when opening the
	// fetched file.
	Large bool

	// Raw skips extraction and decoding and exposes the fetched file as an
	// unread handle.
	Raw bool

	// ForceType overrides archive detection by file name.
	ForceType archive.Type

	// Encoding names the charset the remote content is expected to be in.
	// Empty means autodetect (UTF-8 with a Latin-1 fallback).
	Encoding string

	// FilesNeeded restricts which members of a zip or tar.gz archive are
	// opened. Nil opens all of them.
	FilesNeeded []string

	// CachePath overrides the derived cache slot with an explicit file path.
	CachePath string

	EmptyAttemptAgain bool
	AcceptTruncated   bool
	KeepFailed        bool
	BypassURLEncoding bool
	Silent            bool

	Progress transport.ProgressFunc
}

// CacheKey returns the content-addressed key identifying this request in the
// cache. Requests differing in URL, query parameters, form fields or binary
// payload never share a key.
func (r *Request) CacheKey() string {
	return cache.Key(r.URL, r.Query, r.Post, r.Binary)
}

// transportRequest maps the fetch-level request onto the transport layer.
func (r *Request) transportRequest() *transport.Request {
	return &transport.Request{
		URL:               r.URL,
		Query:             r.Query,
		Post:              r.Post,
		Binary:            r.Binary,
		Multipart:         r.Multipart,
		Headers:           r.Headers,
		Follow:            r.Follow,
		Compressed:        r.Compressed,
		ConnectTimeout:    r.ConnectTimeout,
		Timeout:           r.Timeout,
		Retries:           r.Retries,
		EmptyAttemptAgain: r.EmptyAttemptAgain,
		AcceptTruncated:   r.AcceptTruncated,
		KeepFailed:        r.KeepFailed,
		BypassURLEncoding: r.BypassURLEncoding,
		Silent:            r.Silent,
		Progress:          r.Progress,
	}
}
