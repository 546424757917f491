package plugin

import (
	"errors"
	"fmt"
)

// Plugin system errors.
var (
	// ErrNotRegistered is returned when a plugin id is unknown to the registry.
	ErrNotRegistered = errors.New("plugin not registered")

	// ErrDuplicateID is returned when registering an id that is already present.
	ErrDuplicateID = errors.New("plugin id already registered")

	// ErrInvalidType is returned when a descriptor declares an unknown role.
	ErrInvalidType = errors.New("invalid plugin type")

	// ErrNilDescriptor is returned when a nil descriptor is provided.
	ErrNilDescriptor = errors.New("descriptor is nil")

	// ErrNilPlugin is returned when a nil plugin implementation is provided.
	ErrNilPlugin = errors.New("plugin is nil")

	// ErrDependencyNotFound is returned when a declared dependency id is
	// unknown to the registry.
	ErrDependencyNotFound = errors.New("plugin dependency not found")

	// ErrCyclicDependency is returned when the dependency walk revisits a
	// plugin already being processed.
	ErrCyclicDependency = errors.New("cyclic plugin dependency detected")

	// ErrInvalidTransition is returned for a lifecycle operation that is not
	// valid from the plugin's current state.
	ErrInvalidTransition = errors.New("invalid lifecycle transition")

	// ErrFactoryNotFound is returned when no factory is registered for an id.
	ErrFactoryNotFound = errors.New("no factory registered for plugin")

	// ErrDuplicateFactory is returned when a factory id is already taken.
	ErrDuplicateFactory = errors.New("factory already registered")

	// ErrNilFactory is returned when a nil factory is provided.
	ErrNilFactory = errors.New("factory is nil")

	// ErrNoSettings is returned when a plugin touches its settings
	// namespace before a store has been attached.
	ErrNoSettings = errors.New("no settings store attached")
)

// HookError wraps a failure (error or recovered panic) raised inside a
// plugin lifecycle hook. The orchestrator never lets a hook failure escape
// as a panic; it is always reported as a *HookError with registry state
// unchanged.
type HookError struct {
	// Plugin is the plugin id.
	Plugin string
	// Hook is the hook name (initialize, activate, deactivate, shutdown).
	Hook string
	// Err is the underlying failure.
	Err error
}

// Error implements the error interface.
func (e *HookError) Error() string {
	return fmt.Sprintf("plugin %s: %s hook: %v", e.Plugin, e.Hook, e.Err)
}

// Unwrap returns the underlying error.
func (e *HookError) Unwrap() error {
	return e.Err
}

// TransitionError reports a lifecycle operation attempted from a state that
// does not permit it.
type TransitionError struct {
	// Plugin is the plugin id.
	Plugin string
	// Op is the attempted operation.
	Op string
	// From is the state the plugin was in.
	From State
}

// Error implements the error interface.
func (e *TransitionError) Error() string {
	return fmt.Sprintf("plugin %s: cannot %s from state %s", e.Plugin, e.Op, e.From)
}

// Is implements error matching for TransitionError.
func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
