package hooks

import (
	"sync"

	pkgerrors "github.com/glorpus-work/biofetch/pkg/errors"
)

// DefaultManager is the default implementation of Manager.
type DefaultManager struct {
	executor *TengoExecutor
	mutex    sync.RWMutex
}

// NewManager creates a new hook manager.
func NewManager() *DefaultManager {
	return &DefaultManager{
		executor: NewTengoExecutor(),
	}
}

// Execute runs the hook of the given type with the given context.
func (m *DefaultManager) Execute(hookType HookType, ctx HookContext) error {
	if !m.HasHook(hookType) {
		return nil
	}

	// Copy so scripts never see shared mutable state.
	ctxCopy := ctx
	if ctxCopy.Vars == nil {
		ctxCopy.Vars = make(map[string]interface{})
	}

	return m.executor.Execute(hookType, ctxCopy)
}

// AddHook registers a hook, replacing any existing script of the same type.
func (m *DefaultManager) AddHook(hook Hook) error {
	if hook.Type == "" {
		return pkgerrors.ErrHookTypeEmpty
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.executor.AddScript(hook.Type, hook.Content)
	return nil
}

// RemoveHook removes the hook of the given type.
func (m *DefaultManager) RemoveHook(hookType HookType) error {
	if hookType == "" {
		return pkgerrors.ErrHookTypeEmpty
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.executor.RemoveScript(hookType)
	return nil
}

// HasHook reports whether a hook of the given type is registered.
func (m *DefaultManager) HasHook(hookType HookType) bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return m.executor.HasScript(hookType)
}
