package plugin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// EventType identifies a lifecycle event.
type EventType int

// Lifecycle event types.
const (
	EventInitialized EventType = iota
	EventActivated
	EventDeactivated
	EventShutDown
	EventReloaded
	EventFailed
)

// String returns the event type name.
func (t EventType) String() string {
	switch t {
	case EventInitialized:
		return "initialized"
	case EventActivated:
		return "activated"
	case EventDeactivated:
		return "deactivated"
	case EventShutDown:
		return "shutdown"
	case EventReloaded:
		return "reloaded"
	case EventFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Event is a lifecycle notification.
type Event struct {
	// Type is the event type.
	Type EventType
	// Plugin is the plugin id.
	Plugin string
	// Err is set for EventFailed.
	Err error
}

// EventHandler receives lifecycle events.
type EventHandler func(Event)

// Failure records one plugin's error inside a batch operation.
type Failure struct {
	// ID is the plugin id.
	ID string
	// Err is the plugin's error.
	Err error
}

// BatchResult summarizes a batch lifecycle operation. Batch operations
// continue past individual failures and report them all.
type BatchResult struct {
	// Successful lists the plugin ids that completed, in processing order.
	Successful []string
	// Failed lists the plugin ids that errored, in processing order.
	Failed []string
	// Failures pairs each failed id with its error.
	Failures []Failure
}

// Err returns an aggregate error, or nil when everything succeeded.
func (r *BatchResult) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Failures))
	for _, f := range r.Failures {
		errs = append(errs, fmt.Errorf("%s: %w", f.ID, f.Err))
	}
	return errors.Join(errs...)
}

func (r *BatchResult) success(id string) {
	r.Successful = append(r.Successful, id)
}

func (r *BatchResult) failure(id string, err error) {
	r.Failed = append(r.Failed, id)
	r.Failures = append(r.Failures, Failure{ID: id, Err: err})
}

// Orchestrator drives plugins through their lifecycle. All transitions are
// serialized under a single lock; dependency walks therefore observe a
// consistent registry.
type Orchestrator struct {
	mu       sync.Mutex
	registry *Registry
	catalog  *Catalog
	log      *slog.Logger

	subMu   sync.RWMutex
	subs    map[int]EventHandler
	nextSub int
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithCatalog sets the factory catalog used by Reload.
func WithCatalog(c *Catalog) OrchestratorOption {
	return func(o *Orchestrator) { o.catalog = c }
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		if log != nil {
			o.log = log
		}
	}
}

// NewOrchestrator creates an orchestrator over the registry.
func NewOrchestrator(registry *Registry, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		registry: registry,
		log:      slog.Default(),
		subs:     make(map[int]EventHandler),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Registry returns the underlying registry.
func (o *Orchestrator) Registry() *Registry {
	return o.registry
}

// Subscribe registers a lifecycle event handler and returns an unsubscribe
// function. Handlers run synchronously after the transition completes,
// outside the orchestrator's lock; a panicking handler is contained.
func (o *Orchestrator) Subscribe(h EventHandler) func() {
	o.subMu.Lock()
	id := o.nextSub
	o.nextSub++
	o.subs[id] = h
	o.subMu.Unlock()
	return func() {
		o.subMu.Lock()
		delete(o.subs, id)
		o.subMu.Unlock()
	}
}

func (o *Orchestrator) emit(ev Event) {
	o.subMu.RLock()
	handlers := make([]EventHandler, 0, len(o.subs))
	for _, h := range o.subs {
		handlers = append(handlers, h)
	}
	o.subMu.RUnlock()
	for _, h := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					o.log.Error("event handler panicked", "event", ev.Type.String(), "recover", r)
				}
			}()
			h(ev)
		}()
	}
}

// Initialize runs the initialize hook, moving the plugin from Registered to
// Initialized.
func (o *Orchestrator) Initialize(ctx context.Context, id string) error {
	inst, err := o.registry.Get(id)
	if err != nil {
		return err
	}

	o.mu.Lock()
	err = inst.initialize(ctx)
	o.mu.Unlock()

	if err != nil {
		o.log.Error("plugin initialize failed", "plugin", id, "error", err)
		o.emit(Event{Type: EventFailed, Plugin: id, Err: err})
		return err
	}
	o.log.Debug("plugin initialized", "plugin", id)
	o.emit(Event{Type: EventInitialized, Plugin: id})
	return nil
}

// Activate moves the plugin to Active, recursively activating its declared
// dependencies first. Activating an already active plugin is a no-op. A
// missing dependency or a dependency cycle fails the call with the target's
// state unchanged.
func (o *Orchestrator) Activate(ctx context.Context, id string) error {
	o.mu.Lock()
	activated, err := o.activateLocked(ctx, id, map[string]bool{})
	o.mu.Unlock()

	if err != nil {
		o.log.Error("plugin activate failed", "plugin", id, "error", err)
		o.emit(Event{Type: EventFailed, Plugin: id, Err: err})
		return err
	}
	for _, done := range activated {
		o.log.Debug("plugin activated", "plugin", done)
		o.emit(Event{Type: EventActivated, Plugin: done})
	}
	return nil
}

// activateLocked performs the recursive dependency walk. inProgress holds
// the ids on the current walk path for cycle detection. It returns the ids
// activated by this call, dependencies first.
func (o *Orchestrator) activateLocked(ctx context.Context, id string, inProgress map[string]bool) ([]string, error) {
	inst, err := o.registry.Get(id)
	if err != nil {
		return nil, err
	}
	if inst.State() == StateActive {
		return nil, nil
	}
	if inProgress[id] {
		return nil, fmt.Errorf("%w: %s", ErrCyclicDependency, id)
	}
	inProgress[id] = true
	defer delete(inProgress, id)

	var activated []string
	for _, dep := range inst.descriptor.Dependencies {
		if !o.registry.Has(dep) {
			return nil, fmt.Errorf("%w: %s (required by %s)", ErrDependencyNotFound, dep, id)
		}
		done, err := o.activateLocked(ctx, dep, inProgress)
		if err != nil {
			return nil, fmt.Errorf("activating dependency %s of %s: %w", dep, id, err)
		}
		activated = append(activated, done...)
	}

	if err := inst.activate(ctx); err != nil {
		return nil, err
	}
	return append(activated, id), nil
}

// Deactivate moves the plugin to Deactivated, first deactivating every
// active plugin that depends on it, dependents before dependees. If any
// dependent fails to deactivate the call aborts and the target stays
// Active.
func (o *Orchestrator) Deactivate(ctx context.Context, id string) error {
	o.mu.Lock()
	deactivated, err := o.deactivateLocked(ctx, id, map[string]bool{})
	o.mu.Unlock()

	if err != nil {
		o.log.Error("plugin deactivate failed", "plugin", id, "error", err)
		o.emit(Event{Type: EventFailed, Plugin: id, Err: err})
		return err
	}
	for _, done := range deactivated {
		o.log.Debug("plugin deactivated", "plugin", done)
		o.emit(Event{Type: EventDeactivated, Plugin: done})
	}
	return nil
}

// deactivateLocked performs the recursive dependents-first walk. It returns
// the ids deactivated by this call, dependents first.
func (o *Orchestrator) deactivateLocked(ctx context.Context, id string, inProgress map[string]bool) ([]string, error) {
	inst, err := o.registry.Get(id)
	if err != nil {
		return nil, err
	}
	if inst.State() != StateActive {
		return nil, &TransitionError{Plugin: id, Op: "deactivate", From: inst.State()}
	}
	if inProgress[id] {
		return nil, fmt.Errorf("%w: %s", ErrCyclicDependency, id)
	}
	inProgress[id] = true
	defer delete(inProgress, id)

	var deactivated []string
	for _, dependent := range o.registry.Dependents(id) {
		dep, err := o.registry.Get(dependent)
		if err != nil {
			return nil, err
		}
		if dep.State() != StateActive {
			continue
		}
		done, err := o.deactivateLocked(ctx, dependent, inProgress)
		if err != nil {
			return nil, fmt.Errorf("deactivating dependent %s of %s: %w", dependent, id, err)
		}
		deactivated = append(deactivated, done...)
	}

	if err := inst.deactivate(ctx); err != nil {
		return nil, err
	}
	return append(deactivated, id), nil
}

// Shutdown runs the shutdown hook, moving the plugin to its terminal state.
// Active plugins must be deactivated first; a plugin already shut down is a
// no-op.
func (o *Orchestrator) Shutdown(ctx context.Context, id string) error {
	inst, err := o.registry.Get(id)
	if err != nil {
		return err
	}

	o.mu.Lock()
	already := inst.State() == StateShutDown
	if !already {
		err = inst.shutdown(ctx)
	}
	o.mu.Unlock()

	if err != nil {
		o.log.Error("plugin shutdown failed", "plugin", id, "error", err)
		o.emit(Event{Type: EventFailed, Plugin: id, Err: err})
		return err
	}
	if !already {
		o.log.Debug("plugin shut down", "plugin", id)
		o.emit(Event{Type: EventShutDown, Plugin: id})
	}
	return nil
}

// Reload replaces a plugin's incarnation with a fresh one from the catalog,
// applying newConfig over the stored settings. The plugin is deactivated
// (cascading to dependents), shut down, rebuilt, initialized, and, when it
// was active before, activated again. A nil newConfig keeps the stored
// configuration.
func (o *Orchestrator) Reload(ctx context.Context, id string, newConfig map[string]any) error {
	if o.catalog == nil {
		return fmt.Errorf("reload %s: %w", id, ErrFactoryNotFound)
	}
	factory, err := o.catalog.Get(id)
	if err != nil {
		return fmt.Errorf("reload %s: %w", id, err)
	}

	inst, err := o.registry.Get(id)
	if err != nil {
		return err
	}

	wasActive := inst.State() == StateActive
	if wasActive {
		if err := o.Deactivate(ctx, id); err != nil {
			return fmt.Errorf("reload %s: deactivate: %w", id, err)
		}
	}
	if err := o.Shutdown(ctx, id); err != nil {
		return fmt.Errorf("reload %s: shutdown: %w", id, err)
	}
	if err := o.registry.Unregister(id); err != nil {
		return fmt.Errorf("reload %s: unregister: %w", id, err)
	}

	impl := factory()
	fresh, err := o.registry.Register(DescriptorFor(impl), impl)
	if err != nil {
		return fmt.Errorf("reload %s: register: %w", id, err)
	}
	if newConfig != nil {
		o.mu.Lock()
		config := fresh.Config()
		for k, v := range newConfig {
			config[k] = v
		}
		fresh.setConfig(config)
		o.mu.Unlock()
	}

	if err := o.Initialize(ctx, id); err != nil {
		return fmt.Errorf("reload %s: initialize: %w", id, err)
	}
	if wasActive {
		if err := o.Activate(ctx, id); err != nil {
			return fmt.Errorf("reload %s: activate: %w", id, err)
		}
	}

	o.log.Info("plugin reloaded", "plugin", id, "uid", fresh.UID())
	o.emit(Event{Type: EventReloaded, Plugin: id})
	return nil
}

// InitializeAll initializes every plugin still in Registered, in
// registration order, continuing past failures.
func (o *Orchestrator) InitializeAll(ctx context.Context) *BatchResult {
	result := &BatchResult{}
	for _, id := range o.registry.IDs() {
		inst, err := o.registry.Get(id)
		if err != nil || inst.State() != StateRegistered {
			continue
		}
		if err := o.Initialize(ctx, id); err != nil {
			result.failure(id, err)
			continue
		}
		result.success(id)
	}
	return result
}

// ActivateEnabled activates the plugins named in the settings store's
// enabled list, in list order, initializing any still in Registered first.
// Unregistered ids and individual failures are reported, never fatal.
func (o *Orchestrator) ActivateEnabled(ctx context.Context) *BatchResult {
	result := &BatchResult{}
	store := o.registry.Settings()
	if store == nil {
		return result
	}
	for _, id := range store.EnabledPlugins() {
		inst, err := o.registry.Get(id)
		if err != nil {
			result.failure(id, err)
			continue
		}
		if inst.State() == StateRegistered {
			if err := o.Initialize(ctx, id); err != nil {
				result.failure(id, err)
				continue
			}
		}
		if err := o.Activate(ctx, id); err != nil {
			result.failure(id, err)
			continue
		}
		result.success(id)
	}
	return result
}

// DeactivateAll deactivates every active plugin in reverse registration
// order, continuing past failures. Dependents-first cascading means most
// plugins are already deactivated by the time the walk reaches them.
func (o *Orchestrator) DeactivateAll(ctx context.Context) *BatchResult {
	result := &BatchResult{}
	ids := o.registry.IDs()
	for i := len(ids) - 1; i >= 0; i-- {
		inst, err := o.registry.Get(ids[i])
		if err != nil || inst.State() != StateActive {
			continue
		}
		if err := o.Deactivate(ctx, ids[i]); err != nil {
			result.failure(ids[i], err)
			continue
		}
		result.success(ids[i])
	}
	return result
}

// ShutdownAll winds down every plugin: active plugins are deactivated in
// reverse registration order, then everything not yet terminal is shut
// down. One plugin's failure never blocks the rest; all failures are
// collected in the result.
func (o *Orchestrator) ShutdownAll(ctx context.Context) *BatchResult {
	result := &BatchResult{}
	blocked := map[string]bool{}
	for _, f := range o.DeactivateAll(ctx).Failures {
		result.failure(f.ID, f.Err)
		blocked[f.ID] = true
	}
	for _, id := range o.registry.IDs() {
		inst, err := o.registry.Get(id)
		if err != nil || inst.State() == StateShutDown {
			continue
		}
		if inst.State() == StateActive {
			if !blocked[id] {
				result.failure(id, &TransitionError{Plugin: id, Op: "shutdown", From: StateActive})
			}
			continue
		}
		if err := o.Shutdown(ctx, id); err != nil {
			result.failure(id, err)
			continue
		}
		result.success(id)
	}
	return result
}
