package hooks

import (
	"sync"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"

	pkgerrors "github.com/glorpus-work/biofetch/pkg/errors"
)

// TengoExecutor compiles and runs Tengo hook scripts.
type TengoExecutor struct {
	scripts map[HookType]string
	mutex   sync.RWMutex
}

// NewTengoExecutor creates a new Tengo script executor.
func NewTengoExecutor() *TengoExecutor {
	return &TengoExecutor{
		scripts: make(map[HookType]string),
	}
}

// Execute runs the script registered for hookType, exposing the fetch details
// as script variables. A script that sets the err variable fails the hook; for
// pre-fetch hooks that failure vetoes the fetch.
func (e *TengoExecutor) Execute(hookType HookType, ctx HookContext) error {
	e.mutex.RLock()
	script, exists := e.scripts[hookType]
	e.mutex.RUnlock()
	if !exists {
		return nil
	}

	instance := tengo.NewScript([]byte(script))
	instance.SetImports(stdlib.GetModuleMap("fmt", "os", "text", "times"))

	vars := map[string]interface{}{
		"url":       ctx.URL,
		"destPath":  ctx.DestPath,
		"cacheKey":  ctx.CacheKey,
		"status":    ctx.StatusCode,
		"fromCache": ctx.FromCache,
	}
	for name, value := range vars {
		if err := instance.Add(name, value); err != nil {
			return pkgerrors.Wrapf(pkgerrors.ErrHookExecution,
				"failed to add variable %q to script: %v", name, err)
		}
	}
	for name, value := range ctx.Vars {
		if err := instance.Add(name, value); err != nil {
			return pkgerrors.Wrapf(pkgerrors.ErrHookExecution,
				"failed to add variable %q to script: %v", name, err)
		}
	}

	compiled, err := instance.Run()
	if err != nil {
		return pkgerrors.Wrapf(pkgerrors.ErrHookExecution, "%s: %v", hookType, err)
	}

	if errVar := compiled.Get("err"); errVar != nil {
		switch v := errVar.Value().(type) {
		case error:
			return e.scriptError(hookType, v.Error())
		case string:
			if v != "" {
				return e.scriptError(hookType, v)
			}
		}
	}
	return nil
}

// scriptError maps a script-raised error to the right sentinel: pre-fetch
// scripts veto the fetch, the rest report a script failure.
func (e *TengoExecutor) scriptError(hookType HookType, msg string) error {
	if hookType == PreFetch {
		return pkgerrors.Wrapf(pkgerrors.ErrHookVeto, "%s", msg)
	}
	return pkgerrors.Wrapf(pkgerrors.ErrHookScript, "%s", msg)
}

// AddScript adds or replaces the script for the given hook type.
func (e *TengoExecutor) AddScript(hookType HookType, script string) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.scripts[hookType] = script
}

// RemoveScript removes the script for the given hook type.
func (e *TengoExecutor) RemoveScript(hookType HookType) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	delete(e.scripts, hookType)
}

// HasScript reports whether a script exists for the given hook type.
func (e *TengoExecutor) HasScript(hookType HookType) bool {
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	_, exists := e.scripts[hookType]
	return exists
}
