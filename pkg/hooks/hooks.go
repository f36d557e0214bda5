// Package hooks provides the gate mechanism for capability invocations.
// External executables observe and intercept engine lifecycle events; a
// gate hook decides whether a risky step may proceed (exit 0 = allow,
// exit 1 = block). A built-in pattern gate evaluates regex rule files the
// same way for installations without custom hook scripts.
package hooks

import (
	"time"
)

// HookType represents the type of lifecycle hook
type HookType string

// Hook type constants define the engine events that can be hooked
const (
	HookTypeGate     HookType = "gate"
	HookTypePreStep  HookType = "pre_step"
	HookTypePostStep HookType = "post_step"
	HookTypeRunEnd   HookType = "run_end"
)

// Hook represents a discovered hook executable
type Hook struct {
	Name     string   // Filename of the executable
	Path     string   // Full path to the executable
	HookType HookType // Type returned by "hook" command
}

// Manager manages hook discovery and execution
type Manager struct {
	hooks   map[HookType][]*Hook
	timeout time.Duration
}

// DefaultTimeout is the default execution timeout for hooks
const DefaultTimeout = 30 * time.Second

// NewManager creates a new Manager with discovered hooks
func NewManager(opts ...DiscoveryOption) (Manager, error) {
	discovery, err := NewDiscovery(opts...)
	if err != nil {
		return Manager{}, err
	}

	hooks, err := discovery.DiscoverHooks()
	if err != nil {
		return Manager{}, err
	}

	return Manager{
		hooks:   hooks,
		timeout: DefaultTimeout,
	}, nil
}

// SetTimeout sets the execution timeout for hooks
func (m *Manager) SetTimeout(timeout time.Duration) {
	m.timeout = timeout
}

// HasHooks returns true if there are any hooks registered for the given type
func (m Manager) HasHooks(hookType HookType) bool {
	return len(m.hooks[hookType]) > 0
}

// GetHooks returns all hooks registered for the given type
func (m Manager) GetHooks(hookType HookType) []*Hook {
	return m.hooks[hookType]
}
