package fetch

import "context"

// settings are the per-scope fetch switches carried on a context. Deriving a
// child context flips a switch for everything below it in the call tree and
// nothing else; the parent scope is untouched, so restoration is automatic.
type settings struct {
	cacheOff    bool
	cacheDelete bool
	dryRun      bool
	preserve    bool
	debug       bool
}

type settingsKey struct{}

func settingsFrom(ctx context.Context) settings {
	if s, ok := ctx.Value(settingsKey{}).(settings); ok {
		return s
	}
	return settings{}
}

func withSettings(ctx context.Context, mutate func(*settings)) context.Context {
	s := settingsFrom(ctx)
	mutate(&s)
	return context.WithValue(ctx, settingsKey{}, s)
}

// WithCacheOff returns a context in which fetches bypass cache lookups and
// always hit the network. The downloaded file still lands in the cache slot.
func WithCacheOff(ctx context.Context) context.Context {
	return withSettings(ctx, func(s *settings) { s.cacheOff = true })
}

// WithCacheOn returns a context in which cache lookups are re-enabled,
// reverting an outer WithCacheOff.
func WithCacheOn(ctx context.Context) context.Context {
	return withSettings(ctx, func(s *settings) { s.cacheOff = false })
}

// WithCacheDelete returns a context in which the cache entry for each request
// is invalidated before the fetch, forcing a fresh download.
func WithCacheDelete(ctx context.Context) context.Context {
	return withSettings(ctx, func(s *settings) { s.cacheDelete = true })
}

// WithDryRun returns a context in which fetches resolve the cache path but
// perform no network access and read no data.
func WithDryRun(ctx context.Context) context.Context {
	return withSettings(ctx, func(s *settings) { s.dryRun = true })
}

// WithPreserve returns a context in which the client keeps a reference to the
// last produced result for later inspection.
func WithPreserve(ctx context.Context) context.Context {
	return withSettings(ctx, func(s *settings) { s.preserve = true })
}

// WithDebug returns a context in which cache hits and fetch decisions are
// logged at info level instead of debug.
func WithDebug(ctx context.Context) context.Context {
	return withSettings(ctx, func(s *settings) { s.debug = true })
}
