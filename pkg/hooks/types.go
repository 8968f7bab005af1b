package hooks

// HookType identifies the point in a fetch where a hook runs.
type HookType string

// Supported hook types.
const (
	// PreFetch runs before the network request. It can veto the fetch by
	// setting the err variable.
	PreFetch HookType = "pre-fetch"

	// PostFetch runs after a successful download, before the result is
	// handed to the caller.
	PostFetch HookType = "post-fetch"

	// CacheHit runs when a request is answered from the local cache.
	CacheHit HookType = "cache-hit"
)

// Hook is one script bound to a hook type.
type Hook struct {
	Type    HookType
	Content string
}

// HookContext carries the request details visible to a hook script.
type HookContext struct {
	URL        string
	DestPath   string
	CacheKey   string
	StatusCode int
	FromCache  bool
	Vars       map[string]interface{}
}

// Manager runs hook scripts at the fetch lifecycle points.
type Manager interface {
	// Execute runs the hook of the given type, if one is registered. A
	// pre-fetch hook that sets err vetoes the fetch.
	Execute(hookType HookType, ctx HookContext) error

	// AddHook registers (or replaces) the hook for its type.
	AddHook(hook Hook) error

	// RemoveHook drops the hook of the given type.
	RemoveHook(hookType HookType) error

	// HasHook reports whether a hook of the given type is registered.
	HasHook(hookType HookType) bool
}
