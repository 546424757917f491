package plugin

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Instance pairs a plugin implementation with its lifecycle state and
// effective configuration. Instances are created by the registry; callers
// drive them through the orchestrator, never directly.
type Instance struct {
	uid        string
	descriptor *Descriptor
	impl       Plugin

	// mu guards state, err, and config so accessors are safe from any
	// goroutine. Transitions are additionally serialized by the
	// orchestrator's lock; mu alone never decides a transition.
	mu     sync.RWMutex
	state  State
	err    error
	config map[string]any
}

func newInstance(desc *Descriptor, impl Plugin, config map[string]any) *Instance {
	if config == nil {
		config = map[string]any{}
	}
	return &Instance{
		uid:        uuid.NewString(),
		descriptor: desc,
		impl:       impl,
		state:      StateRegistered,
		config:     config,
	}
}

// UID returns the unique id of this incarnation. A plugin reloaded through
// the orchestrator gets a fresh UID.
func (in *Instance) UID() string { return in.uid }

// ID returns the plugin id.
func (in *Instance) ID() string { return in.descriptor.ID }

// Descriptor returns the plugin descriptor.
func (in *Instance) Descriptor() *Descriptor { return in.descriptor.Clone() }

// Impl returns the plugin implementation.
func (in *Instance) Impl() Plugin { return in.impl }

// State returns the current lifecycle state.
func (in *Instance) State() State {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return in.state
}

// Err returns the last hook failure, or nil.
func (in *Instance) Err() error {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return in.err
}

// Config returns a copy of the effective configuration.
func (in *Instance) Config() map[string]any {
	in.mu.RLock()
	defer in.mu.RUnlock()
	out := make(map[string]any, len(in.config))
	for k, v := range in.config {
		out[k] = v
	}
	return out
}

// setConfig replaces the effective configuration.
func (in *Instance) setConfig(config map[string]any) {
	if config == nil {
		config = map[string]any{}
	}
	in.mu.Lock()
	in.config = config
	in.mu.Unlock()
}

// setState commits a successful transition and clears the last failure.
func (in *Instance) setState(s State) {
	in.mu.Lock()
	in.state = s
	in.err = nil
	in.mu.Unlock()
}

// setErr records a hook failure without touching the state.
func (in *Instance) setErr(err error) {
	in.mu.Lock()
	in.err = err
	in.mu.Unlock()
}

// invoke runs a single lifecycle hook with panic containment. On failure
// the instance state is left untouched and a *HookError is returned.
func (in *Instance) invoke(ctx context.Context, hook string, fn func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &HookError{Plugin: in.ID(), Hook: hook, Err: fmt.Errorf("panic: %v", r)}
		}
		if err != nil {
			in.setErr(err)
		}
	}()
	if hookErr := fn(ctx); hookErr != nil {
		return &HookError{Plugin: in.ID(), Hook: hook, Err: hookErr}
	}
	return nil
}

// initialize transitions Registered -> Initialized.
func (in *Instance) initialize(ctx context.Context) error {
	if from := in.State(); from != StateRegistered {
		return &TransitionError{Plugin: in.ID(), Op: "initialize", From: from}
	}
	if err := in.invoke(ctx, "initialize", in.impl.Initialize); err != nil {
		return err
	}
	in.setState(StateInitialized)
	return nil
}

// activate transitions Initialized or Deactivated -> Active.
func (in *Instance) activate(ctx context.Context) error {
	if from := in.State(); !from.CanActivate() {
		return &TransitionError{Plugin: in.ID(), Op: "activate", From: from}
	}
	if err := in.invoke(ctx, "activate", in.impl.Activate); err != nil {
		return err
	}
	in.setState(StateActive)
	return nil
}

// deactivate transitions Active -> Deactivated.
func (in *Instance) deactivate(ctx context.Context) error {
	if from := in.State(); from != StateActive {
		return &TransitionError{Plugin: in.ID(), Op: "deactivate", From: from}
	}
	if err := in.invoke(ctx, "deactivate", in.impl.Deactivate); err != nil {
		return err
	}
	in.setState(StateDeactivated)
	return nil
}

// shutdown transitions any non-terminal, non-Active state -> ShutDown.
// Idempotent once shut down.
func (in *Instance) shutdown(ctx context.Context) error {
	from := in.State()
	if from == StateShutDown {
		return nil
	}
	if from == StateActive {
		return &TransitionError{Plugin: in.ID(), Op: "shutdown", From: from}
	}
	if err := in.invoke(ctx, "shutdown", in.impl.Shutdown); err != nil {
		return err
	}
	in.setState(StateShutDown)
	return nil
}
