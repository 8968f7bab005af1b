package transport

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/time/rate"

	"github.com/glorpus-work/biofetch/internal/logger"
	pkgerrors "github.com/glorpus-work/biofetch/pkg/errors"
	"github.com/glorpus-work/biofetch/pkg/fsutil"
)

// HTTPOptions configures the HTTP transport.
type HTTPOptions struct {
	UserAgent string

	// RateLimits maps host names to requests-per-second limits. Hosts without
	// an entry are not rate limited.
	RateLimits map[string]float64
}

// HTTPTransport performs HTTP(S) transfers with retries, per-host rate
// limiting and streaming writes to the target file.
type HTTPTransport struct {
	userAgent string

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limits   map[string]float64
}

// NewHTTPTransport creates an HTTP transport with the given options.
func NewHTTPTransport(opts HTTPOptions) *HTTPTransport {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	return &HTTPTransport{
		userAgent: opts.UserAgent,
		limiters:  make(map[string]*rate.Limiter),
		limits:    opts.RateLimits,
	}
}

// Fetch downloads req into destPath, retrying transient failures. The response
// body streams through a temporary file in destPath's directory and is moved
// into place only on success, so readers never observe a partial download.
func (t *HTTPTransport) Fetch(ctx context.Context, req *Request, destPath string) (*Result, error) {
	fullURL, err := buildURL(req)
	if err != nil {
		return nil, err
	}
	parsed, err := url.Parse(fullURL)
	if err != nil {
		return nil, pkgerrors.Wrapf(pkgerrors.ErrInvalidURL, "%s: %v", req.URL, err)
	}

	if err := fsutil.EnsureFileDir(destPath); err != nil {
		return nil, pkgerrors.Wrap(err, "could not create download directory")
	}

	attempts := req.retries()
	var lastErr error
	var lastResult *Result
	var lastTmp string

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			if !req.Silent {
				logger.Warn("retrying download", logger.Fields{
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

		if lim := t.limiterFor(parsed.Host); lim != nil {
			if err := lim.Wait(ctx); err != nil {
				lastErr = pkgerrors.Wrap(err, "rate limiter wait")
				break
			}
		}

		removeTmp(lastTmp)
		res, tmpPath, attemptErr := t.attempt(ctx, req, fullURL, destPath)
		lastResult, lastTmp = res, tmpPath

		if attemptErr != nil {
			lastErr = attemptErr
			if !retryable(res, attemptErr) {
				break
			}
			continue
		}

		if res.BytesWritten == 0 {
			lastErr = pkgerrors.Wrapf(pkgerrors.ErrEmptyResponse, "%s", req.URL)
			if !req.EmptyAttemptAgain {
				break
			}
			continue
		}

		// Success: move the finished temp file into the cache slot.
		if err := fsutil.Move(tmpPath, destPath); err != nil {
			return res, pkgerrors.Wrap(err, "could not finalize download")
		}
		if err := os.Chmod(destPath, fsutil.FileModeSecure); err != nil {
			return res, pkgerrors.Wrap(err, "could not set permissions")
		}
		if !req.Silent {
			logger.Debug("download complete", logger.Fields{
				"url":    req.URL,
				"bytes":  res.BytesWritten,
				"status": res.StatusCode,
			})
		}
		return res, nil
	}

	t.finishFailed(req, lastTmp, destPath)
	return lastResult, pkgerrors.Wrapf(pkgerrors.ErrDownloadFailed, "%s: %v", req.URL, lastErr)
}

// attempt performs one request/response cycle, streaming the body into a fresh
// temporary file next to destPath.
func (t *HTTPTransport) attempt(ctx context.Context, req *Request, fullURL, destPath string) (*Result, string, error) {
	httpReq, err := t.buildRequest(ctx, req, fullURL)
	if err != nil {
		return nil, "", err
	}

	client := t.newClient(req)
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, "", pkgerrors.Wrap(err, "request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	body := io.Reader(resp.Body)
	if req.Compressed && strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		gz, gzErr := gzip.NewReader(resp.Body)
		if gzErr != nil {
			return nil, "", pkgerrors.Wrap(gzErr, "failed to open gzip response")
		}
		defer func() { _ = gz.Close() }()
		body = gz
	}

	tmp, err := os.CreateTemp(filepath.Dir(destPath), "dl-*.tmp")
	if err != nil {
		return nil, "", pkgerrors.Wrap(err, "could not create temp file")
	}
	tmpPath := tmp.Name()

	counter := &countingWriter{w: tmp, progress: req.Progress}
	_, copyErr := io.Copy(counter, body)

	if syncErr := tmp.Sync(); syncErr != nil && copyErr == nil {
		copyErr = syncErr
	}
	if closeErr := tmp.Close(); closeErr != nil && copyErr == nil {
		copyErr = closeErr
	}

	res := &Result{
		StatusCode:   resp.StatusCode,
		BytesWritten: counter.n,
		Header:       resp.Header,
	}

	if copyErr != nil {
		if isTruncation(copyErr) && counter.n > 0 && req.AcceptTruncated {
			logger.Warn("treating truncated transfer as complete", logger.Fields{
				"url":   req.URL,
				"bytes": counter.n,
			})
		} else if isTruncation(copyErr) {
			return res, tmpPath, pkgerrors.Wrapf(pkgerrors.ErrTruncated,
				"%s after %d bytes", req.URL, counter.n)
		} else {
			return res, tmpPath, pkgerrors.Wrap(copyErr, "could not write response body")
		}
	}

	if resp.StatusCode >= http.StatusBadRequest {
		t.logErrorBody(req.URL, resp.StatusCode, tmpPath)
		return res, tmpPath, pkgerrors.Wrapf(pkgerrors.ErrDownloadFailed,
			"HTTP %d from %s", resp.StatusCode, req.URL)
	}

	return res, tmpPath, nil
}

func (t *HTTPTransport) buildRequest(ctx context.Context, req *Request, fullURL string) (*http.Request, error) {
	method := http.MethodGet
	var body io.Reader
	contentType := ""

	switch {
	case len(req.Multipart) > 0:
		buf := &bytes.Buffer{}
		mw := multipart.NewWriter(buf)
		for _, field := range req.Multipart {
			var (
				w   io.Writer
				err error
			)
			if field.Filename != "" {
				w, err = mw.CreateFormFile(field.Name, field.Filename)
			} else {
				w, err = mw.CreateFormField(field.Name)
			}
			if err != nil {
				return nil, pkgerrors.Wrap(err, "failed to build multipart body")
			}
			if _, err := w.Write(field.Value); err != nil {
				return nil, pkgerrors.Wrap(err, "failed to build multipart body")
			}
		}
		if err := mw.Close(); err != nil {
			return nil, pkgerrors.Wrap(err, "failed to build multipart body")
		}
		method = http.MethodPost
		body = buf
		contentType = mw.FormDataContentType()

	case len(req.Binary) > 0:
		method = http.MethodPost
		body = bytes.NewReader(req.Binary)
		contentType = "application/octet-stream"

	case len(req.Post) > 0:
		method = http.MethodPost
		body = strings.NewReader(req.Post.Encode())
		contentType = "application/x-www-form-urlencoded"
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return nil, pkgerrors.Wrapf(pkgerrors.ErrInvalidURL, "%s: %v", fullURL, err)
	}

	for key, values := range req.Headers {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	if httpReq.Header.Get("User-Agent") == "" {
		httpReq.Header.Set("User-Agent", t.userAgent)
	}
	if contentType != "" && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if req.Compressed {
		httpReq.Header.Set("Accept-Encoding", "gzip")
	}

	return httpReq, nil
}

func (t *HTTPTransport) newClient(req *Request) *http.Client {
	dialer := &net.Dialer{Timeout: req.connectTimeout()}
	client := &http.Client{
		Timeout: req.timeout(),
		Transport: &http.Transport{
			DialContext:       dialer.DialContext,
			ForceAttemptHTTP2: true,
			// Transparent decompression is handled explicitly when the caller
			// asks for compressed transfer.
			DisableCompression: req.Compressed,
		},
	}
	if !req.Follow {
		client.CheckRedirect = func(_ *http.Request, _ []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}
	return client
}

// limiterFor returns the rate limiter for host, creating it on first use.
// Hosts without a configured limit are not limited.
func (t *HTTPTransport) limiterFor(host string) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()

	if lim, ok := t.limiters[host]; ok {
		return lim
	}
	limitPerSec, ok := t.limits[host]
	if !ok || limitPerSec <= 0 {
		return nil
	}
	lim := rate.NewLimiter(rate.Limit(limitPerSec), 1)
	t.limiters[host] = lim
	return lim
}

// logErrorBody logs the first part of an error response body for diagnostics.
func (t *HTTPTransport) logErrorBody(rawURL string, status int, tmpPath string) {
	f, err := os.Open(tmpPath)
	if err != nil {
		return
	}
	defer func() { _ = f.Close() }()

	diag := make([]byte, diagnosticBodyLimit)
	n, _ := io.ReadFull(f, diag)
	if n == 0 {
		return
	}
	logger.Error("server returned error status", logger.Fields{
		"url":    rawURL,
		"status": status,
		"body":   string(diag[:n]),
	})
}

// finishFailed disposes of the last partial download after retries are
// exhausted: it lands next to the target path under FailedSuffix when
// KeepFailed is set, otherwise it is deleted. The suffixed name keeps the
// broken file from ever turning into a cache hit.
func (t *HTTPTransport) finishFailed(req *Request, tmpPath, destPath string) {
	if tmpPath == "" {
		return
	}
	if req.KeepFailed {
		if err := fsutil.Move(tmpPath, destPath+FailedSuffix); err != nil {
			logger.Warn("could not keep failed download", logger.Fields{
				"path":  destPath + FailedSuffix,
				"error": err.Error(),
			})
		}
		return
	}
	removeTmp(tmpPath)
}

// buildURL appends the query parameters to the request URL.
func buildURL(req *Request) (string, error) {
	if req.URL == "" {
		return "", pkgerrors.ErrEmptyURL
	}
	if len(req.Query) == 0 {
		return req.URL, nil
	}

	var qs string
	if req.BypassURLEncoding {
		pairs := make([]string, 0, len(req.Query))
		for k, values := range req.Query {
			for _, v := range values {
				pairs = append(pairs, k+"="+v)
			}
		}
		qs = strings.Join(pairs, "&")
	} else {
		qs = req.Query.Encode()
	}

	sep := "?"
	if strings.Contains(req.URL, "?") {
		sep = "&"
	}
	return req.URL + sep + qs, nil
}

// retryable reports whether an attempt outcome is worth another try: network
// and truncation errors are, as are 5xx and 429 statuses. Other 4xx statuses
// are permanent.
func retryable(res *Result, err error) bool {
	if res == nil {
		return true
	}
	if res.StatusCode >= http.StatusInternalServerError ||
		res.StatusCode == http.StatusTooManyRequests {
		return true
	}
	if res.StatusCode >= http.StatusBadRequest {
		return false
	}
	return err != nil
}

func isTruncation(err error) bool {
	return errors.Is(err, io.ErrUnexpectedEOF) ||
		strings.Contains(err.Error(), "unexpected EOF")
}

type countingWriter struct {
	w        io.Writer
	n        int64
	progress ProgressFunc
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	if c.progress != nil {
		c.progress(c.n)
	}
	return n, err
}

func removeTmp(path string) {
	if path != "" {
		_ = os.Remove(path)
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
