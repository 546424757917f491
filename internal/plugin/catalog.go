package plugin

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Factory builds a fresh plugin incarnation.
type Factory func() Plugin

// Catalog maps plugin ids to factories. Reload and discovery draw new
// incarnations from here instead of reflecting over loaded code.
type Catalog struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{factories: make(map[string]Factory)}
}

// Register adds a factory under an id.
func (c *Catalog) Register(id string, factory Factory) error {
	if factory == nil {
		return ErrNilFactory
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.factories[id]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateFactory, id)
	}
	c.factories[id] = factory
	return nil
}

// MustRegister registers a factory and panics on error. For package init
// wiring of built-in plugins.
func (c *Catalog) MustRegister(id string, factory Factory) {
	if err := c.Register(id, factory); err != nil {
		panic(err)
	}
}

// Get returns the factory for an id.
func (c *Catalog) Get(id string) (Factory, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	factory, ok := c.factories[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFactoryNotFound, id)
	}
	return factory, nil
}

// Has reports whether a factory exists for an id.
func (c *Catalog) Has(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.factories[id]
	return ok
}

// IDs returns the registered factory ids, sorted.
func (c *Catalog) IDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]string, 0, len(c.factories))
	for id := range c.factories {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of registered factories.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.factories)
}

// DiscoveryFailure records one plugin that could not be loaded.
type DiscoveryFailure struct {
	// Path is the descriptor file path, if discovery was file-driven.
	Path string
	// ID is the plugin id, when known.
	ID string
	// Err is the load error.
	Err error
}

// DiscoveryResult summarizes a discovery run.
type DiscoveryResult struct {
	// Found is the number of candidate plugins seen.
	Found int
	// Loaded lists the ids registered successfully.
	Loaded []string
	// Failures lists the candidates that could not be registered.
	Failures []DiscoveryFailure
}

// Failed returns the number of failed candidates.
func (r *DiscoveryResult) Failed() int {
	return len(r.Failures)
}

// Discoverer registers catalog plugins into a registry, optionally driven
// by descriptor files found under a plugin directory. One bad plugin never
// aborts the run; every failure is collected in the result.
type Discoverer struct {
	catalog *Catalog
	root    string
	log     *slog.Logger
}

// DiscovererOption configures a Discoverer.
type DiscovererOption func(*Discoverer)

// WithRoot sets the plugin directory to scan for descriptor files. Without
// a root the discoverer registers every catalog factory directly.
func WithRoot(root string) DiscovererOption {
	return func(d *Discoverer) { d.root = root }
}

// WithDiscoveryLogger sets the logger.
func WithDiscoveryLogger(log *slog.Logger) DiscovererOption {
	return func(d *Discoverer) {
		if log != nil {
			d.log = log
		}
	}
}

// NewDiscoverer creates a discoverer over the catalog.
func NewDiscoverer(catalog *Catalog, opts ...DiscovererOption) *Discoverer {
	d := &Discoverer{
		catalog: catalog,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Discover registers plugins into the registry. With a root directory it
// scans immediate subdirectories for descriptor files and pairs each with
// its catalog factory; without one it registers every catalog factory under
// a descriptor synthesized from the implementation.
func (d *Discoverer) Discover(registry *Registry) (*DiscoveryResult, error) {
	if d.root != "" {
		return d.discoverDir(registry)
	}
	return d.discoverCatalog(registry), nil
}

func (d *Discoverer) discoverCatalog(registry *Registry) *DiscoveryResult {
	result := &DiscoveryResult{}
	for _, id := range d.catalog.IDs() {
		result.Found++
		factory, err := d.catalog.Get(id)
		if err != nil {
			result.Failures = append(result.Failures, DiscoveryFailure{ID: id, Err: err})
			continue
		}
		impl := factory()
		if _, err := registry.Register(DescriptorFor(impl), impl); err != nil {
			d.log.Warn("plugin rejected", "plugin", id, "error", err)
			result.Failures = append(result.Failures, DiscoveryFailure{ID: id, Err: err})
			continue
		}
		d.log.Debug("plugin registered", "plugin", id)
		result.Loaded = append(result.Loaded, id)
	}
	return result
}

func (d *Discoverer) discoverDir(registry *Registry) (*DiscoveryResult, error) {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &DiscoveryResult{}, nil
		}
		return nil, fmt.Errorf("reading plugin directory %s: %w", d.root, err)
	}

	result := &DiscoveryResult{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		descPath := filepath.Join(d.root, entry.Name(), DescriptorFileName)
		if _, err := os.Stat(descPath); err != nil {
			continue
		}
		result.Found++

		desc, err := LoadDescriptor(descPath)
		if err != nil {
			d.log.Warn("plugin descriptor rejected", "path", descPath, "error", err)
			result.Failures = append(result.Failures, DiscoveryFailure{Path: descPath, Err: err})
			continue
		}
		factory, err := d.catalog.Get(desc.ID)
		if err != nil {
			d.log.Warn("plugin has no factory", "plugin", desc.ID, "path", descPath)
			result.Failures = append(result.Failures, DiscoveryFailure{Path: descPath, ID: desc.ID, Err: err})
			continue
		}
		if _, err := registry.Register(desc, factory()); err != nil {
			d.log.Warn("plugin rejected", "plugin", desc.ID, "error", err)
			result.Failures = append(result.Failures, DiscoveryFailure{Path: descPath, ID: desc.ID, Err: err})
			continue
		}
		d.log.Debug("plugin registered", "plugin", desc.ID, "path", descPath)
		result.Loaded = append(result.Loaded, desc.ID)
	}
	return result, nil
}
