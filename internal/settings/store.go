package settings

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// enabledPluginsPath is the dot path to the ordered enabled-plugin id list.
const enabledPluginsPath = "plugins.enabled_plugins"

// pluginSettingsPath is the dot path prefix for per-plugin namespaces.
const pluginSettingsPath = "plugins.plugin_settings"

// Store is the hierarchical settings store.
// Construct with New, then call Load to merge the settings file over the
// built-in defaults.
type Store struct {
	mu sync.RWMutex

	// Nested settings tree
	tree map[string]any

	// Default tree used for construction and section resets
	defaults map[string]any

	// Settings file location
	path string

	// Structured logger
	log *slog.Logger

	// Live-reload watcher (nil unless enabled)
	watcher *fileWatcher

	enableWatcher bool
	closed        bool

	// dirty is set by tree mutations and cleared by Save; Close only
	// flushes when there is something unsaved, so query-only usage never
	// rewrites the file.
	dirty bool

	notifier *notifier
}

// Option configures a Store.
type Option func(*Store)

// WithPath sets the settings file location.
func WithPath(path string) Option {
	return func(s *Store) {
		s.path = path
	}
}

// WithDefaults replaces the built-in default tree.
func WithDefaults(defaults map[string]any) Option {
	return func(s *Store) {
		if defaults != nil {
			s.defaults = defaults
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Store) {
		if log != nil {
			s.log = log
		}
	}
}

// WithWatcher enables live reload when the settings file changes on disk.
func WithWatcher(enable bool) Option {
	return func(s *Store) {
		s.enableWatcher = enable
	}
}

// New creates a new Store seeded from the default tree.
func New(opts ...Option) *Store {
	s := &Store{
		defaults: Defaults(),
		path:     DefaultPath(),
		log:      slog.Default(),
		notifier: newNotifier(),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.tree = cloneMap(s.defaults)
	return s
}

// Load merge-loads the settings file over the current tree.
// A missing file is not an error; the defaults remain in effect.
// If the watcher is enabled, Load starts watching the file.
func (s *Store) Load() error {
	if err := s.loadFile(s.path); err != nil {
		return err
	}

	if s.enableWatcher && s.watcher == nil {
		w, err := newFileWatcher(s.path, s.handleFileChange, s.log)
		if err != nil {
			return fmt.Errorf("starting settings watcher: %w", err)
		}
		s.mu.Lock()
		s.watcher = w
		s.mu.Unlock()
	}

	return nil
}

// loadFile reads and merges a JSON settings document.
func (s *Store) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			s.log.Debug("settings file not found, using defaults", "path", path)
			return nil
		}
		return fmt.Errorf("reading settings file: %w", err)
	}

	var loaded map[string]any
	if err := json.Unmarshal(data, &loaded); err != nil {
		return fmt.Errorf("parsing settings file %s: %w", path, err)
	}

	s.MergeLoad(loaded)
	s.log.Debug("settings loaded", "path", path)
	return nil
}

// MergeLoad recursively merges a tree into the store.
// Maps merge recursively; any other value replaces the existing one.
// Keys absent from the incoming tree are preserved, so defaults introduced
// by newer code survive older settings files.
func (s *Store) MergeLoad(tree map[string]any) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.tree = deepMerge(s.tree, tree)
	s.mu.Unlock()

	s.notifier.notify(Change{Type: ChangeReload})
}

// Reload re-reads the settings file and merges it over the current tree.
func (s *Store) Reload() error {
	return s.loadFile(s.path)
}

// handleFileChange is the watcher callback.
func (s *Store) handleFileChange() {
	if err := s.Reload(); err != nil {
		s.log.Warn("settings reload failed", "path", s.path, "error", err)
	}
}

// Save writes the entire tree to the settings file as indented JSON.
// The tree is snapshotted under the lock; file I/O happens lock-free using
// write-to-temp-then-rename so readers never observe a partial file.
func (s *Store) Save() error {
	s.mu.RLock()
	if s.path == "" {
		s.mu.RUnlock()
		return ErrNoPath
	}
	path := s.path
	snapshot := cloneMap(s.tree)
	s.mu.RUnlock()

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating settings directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".settings-*.json")
	if err != nil {
		return fmt.Errorf("creating temp settings file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing settings file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing settings file: %w", err)
	}

	s.mu.Lock()
	s.dirty = false
	s.mu.Unlock()

	s.log.Debug("settings saved", "path", path)
	return nil
}

// Close stops the watcher and flushes unsaved changes to disk. A store
// that was only read from leaves the settings file untouched.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	w := s.watcher
	s.watcher = nil
	dirty := s.dirty
	s.mu.Unlock()

	if w != nil {
		w.stop()
	}
	if !dirty {
		return nil
	}
	return s.Save()
}

// Path returns the settings file location.
func (s *Store) Path() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.path
}

// Get returns the value at the given dot path, or def if any segment is
// missing or a non-map value is hit mid-path. Get never fails.
func (s *Store) Get(path string, def any) any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := getPath(s.tree, path)
	if !ok {
		return def
	}
	return cloneValue(v)
}

// Set sets a value at the given dot path, creating intermediate maps as
// needed. The terminal segment is overwritten regardless of its prior type;
// a scalar occupying an intermediate segment is an error, never replaced.
func (s *Store) Set(path string, value any) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	old, _ := getPath(s.tree, path)
	if err := setPath(s.tree, path, value); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", err, path)
	}
	s.dirty = true
	s.mu.Unlock()

	s.notifier.notify(Change{Path: path, Type: ChangeSet, OldValue: old, NewValue: value})
	return nil
}

// Delete removes the value at the given dot path.
// Returns true if the terminal key existed and was removed.
func (s *Store) Delete(path string) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	old, _ := getPath(s.tree, path)
	deleted := deletePath(s.tree, path)
	if deleted {
		s.dirty = true
	}
	s.mu.Unlock()

	if deleted {
		s.notifier.notify(Change{Path: path, Type: ChangeDelete, OldValue: old})
	}
	return deleted
}

// GetString returns a string value, or def on a missing key or type mismatch.
func (s *Store) GetString(path, def string) string {
	if v, ok := s.Get(path, nil).(string); ok {
		return v
	}
	return def
}

// GetInt returns an integer value, or def on a missing key or type mismatch.
// JSON numbers decode as float64 and are accepted.
func (s *Store) GetInt(path string, def int) int {
	switch v := s.Get(path, nil).(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return def
	}
}

// GetFloat returns a float64 value, or def on a missing key or type mismatch.
func (s *Store) GetFloat(path string, def float64) float64 {
	switch v := s.Get(path, nil).(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return def
	}
}

// GetBool returns a boolean value, or def on a missing key or type mismatch.
func (s *Store) GetBool(path string, def bool) bool {
	if v, ok := s.Get(path, nil).(bool); ok {
		return v
	}
	return def
}

// GetStringSlice returns a string slice value, or def on a missing key or
// type mismatch. JSON arrays decode as []any and are converted.
func (s *Store) GetStringSlice(path string, def []string) []string {
	switch v := s.Get(path, nil).(type) {
	case []string:
		return v
	case []any:
		result := make([]string, 0, len(v))
		for _, item := range v {
			str, ok := item.(string)
			if !ok {
				return def
			}
			result = append(result, str)
		}
		return result
	default:
		return def
	}
}

// Section returns a deep copy of a top-level section.
func (s *Store) Section(name string) (map[string]any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sec, ok := s.tree[name].(map[string]any)
	if !ok {
		return nil, false
	}
	return cloneMap(sec), true
}

// Sections returns the top-level section names in sorted order.
func (s *Store) Sections() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.tree))
	for name := range s.tree {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns a deep copy of the entire tree.
func (s *Store) All() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneMap(s.tree)
}

// ResetSection restores a top-level section to its defaults.
// Returns true if the section exists in the default tree.
func (s *Store) ResetSection(name string) bool {
	s.mu.Lock()
	def, ok := s.defaults[name].(map[string]any)
	if !ok {
		s.mu.Unlock()
		return false
	}
	s.tree[name] = cloneMap(def)
	s.dirty = true
	s.mu.Unlock()

	s.notifier.notify(Change{Path: name, Type: ChangeReload})
	return true
}

// Reset restores the entire tree to the defaults.
func (s *Store) Reset() {
	s.mu.Lock()
	s.tree = cloneMap(s.defaults)
	s.dirty = true
	s.mu.Unlock()

	s.notifier.notify(Change{Type: ChangeReload})
}

// PluginSetting returns a setting from a plugin's namespace.
func (s *Store) PluginSetting(pluginID, key string, def any) any {
	return s.Get(pluginSettingsPath+"."+pluginID+"."+key, def)
}

// SetPluginSetting sets a setting in a plugin's namespace.
func (s *Store) SetPluginSetting(pluginID, key string, value any) error {
	return s.Set(pluginSettingsPath+"."+pluginID+"."+key, value)
}

// PluginSettings returns a deep copy of a plugin's entire namespace.
// Returns an empty map if the plugin has no stored settings.
func (s *Store) PluginSettings(pluginID string) map[string]any {
	if m, ok := s.Get(pluginSettingsPath+"."+pluginID, nil).(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

// EnabledPlugins returns the ordered list of enabled plugin ids.
func (s *Store) EnabledPlugins() []string {
	return s.GetStringSlice(enabledPluginsPath, nil)
}

// IsPluginEnabled reports whether a plugin id is in the enabled list.
func (s *Store) IsPluginEnabled(pluginID string) bool {
	for _, id := range s.EnabledPlugins() {
		if id == pluginID {
			return true
		}
	}
	return false
}

// EnablePlugin appends a plugin id to the enabled list if absent.
func (s *Store) EnablePlugin(pluginID string) error {
	enabled := s.EnabledPlugins()
	for _, id := range enabled {
		if id == pluginID {
			return nil
		}
	}
	return s.Set(enabledPluginsPath, append(enabled, pluginID))
}

// DisablePlugin removes a plugin id from the enabled list.
func (s *Store) DisablePlugin(pluginID string) error {
	enabled := s.EnabledPlugins()
	kept := make([]string, 0, len(enabled))
	for _, id := range enabled {
		if id != pluginID {
			kept = append(kept, id)
		}
	}
	if len(kept) == len(enabled) {
		return nil
	}
	return s.Set(enabledPluginsPath, kept)
}

// Subscribe registers an observer for all settings changes.
func (s *Store) Subscribe(observer Observer) *Subscription {
	return s.notifier.subscribe("", observer)
}

// SubscribePath registers an observer for changes at or below a dot path.
func (s *Store) SubscribePath(path string, observer Observer) *Subscription {
	return s.notifier.subscribe(path, observer)
}
