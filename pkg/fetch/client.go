// Package fetch is the public façade of biofetch. A Client resolves a Request
// against the local cache, downloads it over the right transport when needed,
// opens any archive layers and hands back a Result whose shape matches how the
// caller wants to consume the content.
package fetch

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/glorpus-work/biofetch/internal/logger"
	"github.com/glorpus-work/biofetch/pkg/archive"
	"github.com/glorpus-work/biofetch/pkg/cache"
	"github.com/glorpus-work/biofetch/pkg/config"
	"github.com/glorpus-work/biofetch/pkg/credentials"
	pkgerrors "github.com/glorpus-work/biofetch/pkg/errors"
	"github.com/glorpus-work/biofetch/pkg/fsutil"
	"github.com/glorpus-work/biofetch/pkg/hooks"
	"github.com/glorpus-work/biofetch/pkg/transport"
)

// Options configures a Client. Zero-value fields get working defaults; tests
// typically inject their own transports.
type Options struct {
	// CacheDir is the cache root. Empty selects the user cache directory.
	CacheDir string

	// HTTP, FTP and SFTP override the transports for their schemes.
	HTTP transport.Transport
	FTP  transport.Transport
	SFTP transport.Transport

	// Hooks runs scripts at the fetch lifecycle points. Nil disables hooks.
	Hooks hooks.Manager
}

// Client fetches remote resources through a content-addressed local cache.
// Safe for concurrent use; identical in-flight requests share one download.
type Client struct {
	cache      *cache.Manager
	transports map[string]transport.Transport
	hooks      hooks.Manager

	group singleflight.Group

	mu   sync.Mutex
	last *Result
}

// New creates a Client from explicit options.
func New(opts Options) (*Client, error) {
	var cacheManager *cache.Manager
	if opts.CacheDir != "" {
		cacheManager = cache.NewManager(opts.CacheDir)
	} else {
		var err error
		cacheManager, err = cache.NewDefaultManager()
		if err != nil {
			return nil, err
		}
	}

	httpTransport := opts.HTTP
	if httpTransport == nil {
		httpTransport = transport.NewHTTPTransport(transport.HTTPOptions{})
	}
	ftpTransport := opts.FTP
	if ftpTransport == nil {
		ftpTransport = transport.NewFTPTransport(nil)
	}

	transports := map[string]transport.Transport{
		"http":  httpTransport,
		"https": httpTransport,
		"ftp":   ftpTransport,
	}
	if opts.SFTP != nil {
		transports["sftp"] = opts.SFTP
	}

	return &Client{
		cache:      cacheManager,
		transports: transports,
		hooks:      opts.Hooks,
	}, nil
}

// NewFromConfig wires a Client from the application configuration: cache
// directory, user agent, rate limits, secrets file, hook scripts.
func NewFromConfig(cfg *config.Config) (*Client, error) {
	fileCreds := credentials.NewFileProvider(cfg.Settings.SecretsFile)
	consoleCreds := credentials.NewConsoleProvider(fileCreds)
	creds := credentials.Chain{fileCreds, consoleCreds}

	hookManager := hooks.NewManager()
	if cfg.Settings.HooksDir != "" {
		if err := hooks.LoadFromDir(hookManager, cfg.Settings.HooksDir); err != nil {
			return nil, err
		}
	}

	return New(Options{
		CacheDir: cfg.Settings.CacheDir,
		HTTP: transport.NewHTTPTransport(transport.HTTPOptions{
			UserAgent:  cfg.Settings.UserAgent,
			RateLimits: cfg.Settings.RateLimits,
		}),
		FTP:   transport.NewFTPTransport(creds),
		SFTP:  transport.NewSFTPTransport(creds),
		Hooks: hookManager,
	})
}

// Cache exposes the cache manager for management operations.
func (c *Client) Cache() *cache.Manager {
	return c.cache
}

// LastResult returns the most recent result produced under WithPreserve, or
// nil.
func (c *Client) LastResult() *Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// Fetch resolves req and returns its content. The cache is consulted first;
// on a miss the resource is downloaded into its cache slot, then extracted and
// decoded according to the request. On failure the returned Result still
// carries the status and state alongside the error.
func (c *Client) Fetch(ctx context.Context, req *Request) (*Result, error) {
	if req.URL == "" {
		return broken(0, ""), pkgerrors.ErrEmptyURL
	}

	if localPath, ok := localPath(req.URL); ok {
		return c.openLocal(ctx, req, localPath)
	}

	dest, err := c.destPath(req)
	if err != nil {
		return broken(0, ""), err
	}

	s := settingsFrom(ctx)
	if s.cacheDelete {
		c.cache.Invalidate(dest)
	}

	if s.dryRun {
		res := &Result{
			Kind:      KindNone,
			Path:      dest,
			State:     StateUnfetched,
			FromCache: c.cache.IsHit(dest),
		}
		return c.finish(s, req, res)
	}

	if !s.cacheOff && c.cache.IsHit(dest) {
		if s.debug {
			logger.Info("cache hit", logger.Fields{"url": req.URL, "path": dest})
		} else if !req.Silent {
			logger.Debug("cache hit", logger.Fields{"url": req.URL, "path": dest})
		}
		if err := c.runHook(hooks.CacheHit, hooks.HookContext{
			URL:        req.URL,
			DestPath:   dest,
			CacheKey:   req.CacheKey(),
			StatusCode: 200,
			FromCache:  true,
		}); err != nil {
			return broken(200, dest), err
		}
		res, err := c.open(ctx, req, dest, 200, true)
		if err != nil {
			return res, err
		}
		return c.finish(s, req, res)
	}

	status, err := c.download(ctx, req, dest)
	if err != nil {
		return failed(status, dest), err
	}

	res, err := c.open(ctx, req, dest, status, false)
	if err != nil {
		return res, err
	}
	return c.finish(s, req, res)
}

// download retrieves req into dest over the transport matching its scheme.
// Concurrent downloads of the same cache slot are collapsed into one transfer.
func (c *Client) download(ctx context.Context, req *Request, dest string) (int, error) {
	if err := c.runHook(hooks.PreFetch, hooks.HookContext{
		URL:      req.URL,
		DestPath: dest,
		CacheKey: req.CacheKey(),
	}); err != nil {
		return 0, err
	}

	tr, err := c.transportFor(req.URL)
	if err != nil {
		return 0, err
	}

	v, err, _ := c.group.Do(dest, func() (interface{}, error) {
		return tr.Fetch(ctx, req.transportRequest(), dest)
	})

	status := 0
	if tres, ok := v.(*transport.Result); ok && tres != nil {
		status = tres.StatusCode
	}
	if err != nil {
		return status, err
	}
	return status, nil
}

// open turns the file at dest into the Result shape the request asks for.
func (c *Client) open(ctx context.Context, req *Request, dest string, status int, fromCache bool) (*Result, error) {
	res := &Result{
		Status:    status,
		FromCache: fromCache,
		Path:      dest,
		State:     StateExtracting,
	}
	if fromCache {
		res.State = StateCached
	}

	if req.Raw {
		f, err := os.Open(dest)
		if err != nil {
			return broken(status, dest), pkgerrors.Wrap(err, "could not open fetched file")
		}
		res.Kind = KindRawHandle
		res.Handle = f
		res.State = StateReady
		return res, nil
	}

	typ := archive.Sniff(filepath.Base(dest), req.ForceType)
	switch typ {
	case archive.TypeZip:
		members, err := archive.OpenZip(ctx, dest, req.FilesNeeded, req.Large)
		if err != nil {
			return broken(status, dest), err
		}
		res.Kind = KindMultiFile
		res.Members = members

	case archive.TypeTarGz:
		members, err := archive.OpenTarGz(ctx, dest, req.FilesNeeded, req.Large)
		if err != nil {
			return broken(status, dest), err
		}
		res.Kind = KindMultiFile
		res.Members = members

	case archive.TypeGzip, archive.TypePlain, archive.TypeUnset:
		var member *archive.Member
		var err error
		if typ == archive.TypeGzip {
			member, err = archive.OpenGzip(dest, req.Large)
		} else {
			member, err = archive.OpenPlain(dest, req.Large)
		}
		if err != nil {
			return broken(status, dest), err
		}

		if req.Large {
			lines, linesErr := member.DecodedLines(req.Encoding)
			if linesErr != nil {
				_ = member.Close()
				return broken(status, dest), linesErr
			}
			res.Kind = KindLineStream
			res.Lines = lines
		} else {
			res.State = StateDecoding
			data, readErr := member.Bytes()
			_ = member.Close()
			if readErr != nil {
				return broken(status, dest), readErr
			}
			res.Kind = KindSingleBlob
			res.Blob = archive.DecodeText(data, req.Encoding)
		}
	}

	res.State = StateReady
	return res, nil
}

// openLocal serves a filesystem path without touching the network. Local
// files count as immediate cache hits.
func (c *Client) openLocal(ctx context.Context, req *Request, path string) (*Result, error) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return broken(0, path), pkgerrors.Wrapf(pkgerrors.ErrInvalidPath, "%s", path)
	}
	res, err := c.open(ctx, req, path, 200, true)
	if err != nil {
		return res, err
	}
	return c.finish(settingsFrom(ctx), req, res)
}

// finish runs the post-fetch hook and records the result when preservation is
// on.
func (c *Client) finish(s settings, req *Request, res *Result) (*Result, error) {
	if !res.FromCache && res.Kind != KindNone {
		if err := c.runHook(hooks.PostFetch, hooks.HookContext{
			URL:        req.URL,
			DestPath:   res.Path,
			CacheKey:   req.CacheKey(),
			StatusCode: res.Status,
			FromCache:  res.FromCache,
		}); err != nil {
			_ = res.Close()
			return broken(res.Status, res.Path), err
		}
	}

	if s.preserve {
		c.mu.Lock()
		c.last = res
		c.mu.Unlock()
	}
	return res, nil
}

func (c *Client) runHook(hookType hooks.HookType, hctx hooks.HookContext) error {
	if c.hooks == nil {
		return nil
	}
	return c.hooks.Execute(hookType, hctx)
}

// destPath resolves the cache slot for req: the explicit override when given,
// otherwise key plus sanitized remote filename under the cache root.
func (c *Client) destPath(req *Request) (string, error) {
	if req.CachePath != "" {
		if err := fsutil.EnsureFileDir(req.CachePath); err != nil {
			return "", err
		}
		return req.CachePath, nil
	}
	return c.cache.EntryPath(req.CacheKey(), cache.RemoteFilename(req.URL))
}

func (c *Client) transportFor(rawURL string) (transport.Transport, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, pkgerrors.Wrapf(pkgerrors.ErrInvalidURL, "%s: %v", rawURL, err)
	}
	tr, ok := c.transports[strings.ToLower(u.Scheme)]
	if !ok {
		return nil, pkgerrors.Wrapf(pkgerrors.ErrUnknownScheme, "%s", u.Scheme)
	}
	return tr, nil
}

// localPath reports whether rawURL names a local file rather than a remote
// resource, returning the filesystem path.
func localPath(rawURL string) (string, bool) {
	if strings.HasPrefix(rawURL, "file://") {
		return strings.TrimPrefix(rawURL, "file://"), true
	}
	if !strings.Contains(rawURL, "://") {
		return rawURL, true
	}
	return "", false
}

// failed marks a transfer that did not complete.
func failed(status int, path string) *Result {
	res := broken(status, path)
	res.DownloadFailed = true
	return res
}

// broken marks a fetch that failed after (or without) a completed transfer.
func broken(status int, path string) *Result {
	return &Result{
		Kind:   KindNone,
		Status: status,
		Path:   path,
		State:  StateFailed,
	}
}
