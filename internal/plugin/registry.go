package plugin

import (
	"fmt"
	"sync"

	"github.com/docorg/docorg/internal/settings"
)

// Registry holds registered plugin instances. Registration validates the
// descriptor, seeds the instance's effective configuration from the schema
// defaults overlaid with stored settings, and injects the settings store
// into plugins that want it.
//
// The registry is safe for concurrent use. Lifecycle transitions go through
// the Orchestrator; the registry only stores and looks up.
type Registry struct {
	mu    sync.RWMutex
	store *settings.Store

	instances map[string]*Instance
	order     []string
}

// NewRegistry creates a registry bound to the settings store.
// The store may be nil; plugins then run on schema defaults alone.
func NewRegistry(store *settings.Store) *Registry {
	return &Registry{
		store:     store,
		instances: make(map[string]*Instance),
	}
}

// Register adds a plugin under its descriptor. The descriptor must validate
// and its id must be free; on any failure the registry is unchanged.
func (r *Registry) Register(desc *Descriptor, impl Plugin) (*Instance, error) {
	if desc == nil {
		return nil, ErrNilDescriptor
	}
	if impl == nil {
		return nil, ErrNilPlugin
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.instances[desc.ID]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateID, desc.ID)
	}

	inst := newInstance(desc.Clone(), impl, r.seedConfig(desc))
	if aware, ok := impl.(SettingsAware); ok && r.store != nil {
		aware.AttachSettings(r.store)
	}

	r.instances[desc.ID] = inst
	r.order = append(r.order, desc.ID)
	return inst, nil
}

// RegisterPlugin registers an implementation under a descriptor synthesized
// from its own metadata.
func (r *Registry) RegisterPlugin(impl Plugin) (*Instance, error) {
	if impl == nil {
		return nil, ErrNilPlugin
	}
	return r.Register(DescriptorFor(impl), impl)
}

// seedConfig layers stored plugin settings over the schema defaults.
// Caller holds the lock.
func (r *Registry) seedConfig(desc *Descriptor) map[string]any {
	config := map[string]any{}
	if desc.ConfigSchema != nil {
		config = desc.ConfigSchema.Defaults()
	}
	if r.store != nil {
		for k, v := range r.store.PluginSettings(desc.ID) {
			config[k] = v
		}
	}
	return config
}

// Unregister removes a plugin. Only plugins that are Deactivated or
// ShutDown may be removed.
func (r *Registry) Unregister(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	inst, ok := r.instances[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotRegistered, id)
	}
	switch inst.State() {
	case StateDeactivated, StateShutDown:
	default:
		return &TransitionError{Plugin: id, Op: "unregister", From: inst.State()}
	}

	delete(r.instances, id)
	for i, ordered := range r.order {
		if ordered == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// Get returns the instance for an id.
func (r *Registry) Get(id string) (*Instance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inst, ok := r.instances[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotRegistered, id)
	}
	return inst, nil
}

// Has reports whether an id is registered.
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.instances[id]
	return ok
}

// List returns all instances in registration order.
func (r *Registry) List() []*Instance {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Instance, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.instances[id])
	}
	return out
}

// ListByType returns instances of the given role, in registration order.
func (r *Registry) ListByType(t Type) []*Instance {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Instance
	for _, id := range r.order {
		if inst := r.instances[id]; inst.descriptor.Type == t {
			out = append(out, inst)
		}
	}
	return out
}

// ListActive returns instances currently in StateActive, in registration
// order.
func (r *Registry) ListActive() []*Instance {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Instance
	for _, id := range r.order {
		if inst := r.instances[id]; inst.State() == StateActive {
			out = append(out, inst)
		}
	}
	return out
}

// IDs returns all registered ids in registration order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.instances)
}

// Settings returns the registry's settings store, or nil.
func (r *Registry) Settings() *settings.Store {
	return r.store
}

// dependents returns the ids of registered plugins that declare id as a
// dependency, in registration order. Caller holds the lock.
func (r *Registry) dependents(id string) []string {
	var out []string
	for _, candidate := range r.order {
		inst := r.instances[candidate]
		for _, dep := range inst.descriptor.Dependencies {
			if dep == id {
				out = append(out, candidate)
				break
			}
		}
	}
	return out
}

// Dependents returns the ids of registered plugins that depend on id.
func (r *Registry) Dependents(id string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.dependents(id)
}
