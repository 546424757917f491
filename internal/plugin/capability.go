package plugin

import (
	"context"
	"path/filepath"
	"strings"
	"sync"

	"github.com/docorg/docorg/internal/settings"
)

// Metadata is the descriptive snapshot every plugin exposes.
type Metadata struct {
	ID           string   `json:"id"`
	Type         Type     `json:"type"`
	Name         string   `json:"name"`
	Version      string   `json:"version"`
	Dependencies []string `json:"dependencies,omitempty"`
	Enabled      bool     `json:"enabled"`
}

// Plugin is the shared capability contract. All four roles implement it;
// the orchestrator depends on nothing else.
//
// Lifecycle hooks receive a context but must not call back into the
// orchestrator synchronously; lifecycle reentrancy is disallowed.
type Plugin interface {
	// Metadata returns the plugin's descriptive snapshot.
	Metadata() Metadata

	// Dependencies returns the plugin ids that must be active before
	// this plugin can activate.
	Dependencies() []string

	// ConfigSchema declares the plugin's settings namespace.
	// May return nil when the plugin has no settings.
	ConfigSchema() *ConfigSchema

	// Initialize prepares the plugin after registration.
	Initialize(ctx context.Context) error

	// Activate enables the plugin. All dependencies are active when called.
	Activate(ctx context.Context) error

	// Deactivate disables the plugin. No active plugin depends on it
	// when called.
	Deactivate(ctx context.Context) error

	// Shutdown releases resources. Called at most once; must be safe to
	// call after a failed Initialize.
	Shutdown(ctx context.Context) error
}

// SettingsAware is implemented by plugins that want the shared settings
// store. The registry injects the handle at registration time.
type SettingsAware interface {
	AttachSettings(store *settings.Store)
}

// Parser extracts content and metadata from files.
type Parser interface {
	Plugin

	// CanParse reports whether the plugin handles the file, by extension,
	// case-insensitively.
	CanParse(path string) bool

	// Parse extracts content and metadata. It never panics past its own
	// boundary; failures are reported inside the result.
	Parse(ctx context.Context, path string) *ParseResult
}

// ParseResult is the structured outcome of a parse operation.
type ParseResult struct {
	// Content is the extracted text content.
	Content string `json:"content"`

	// Metadata holds file metadata (title, author, page count, ...).
	Metadata map[string]any `json:"metadata"`

	// Success indicates whether parsing succeeded.
	Success bool `json:"success"`

	// Error describes the failure when Success is false.
	Error string `json:"error,omitempty"`
}

// ParseFailure builds a failed parse result.
func ParseFailure(msg string) *ParseResult {
	return &ParseResult{Metadata: map[string]any{}, Error: msg}
}

// MatchExtension reports whether the path's extension is in the list,
// case-insensitively. Extensions include the leading dot (".pdf").
func MatchExtension(path string, extensions []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return false
	}
	for _, e := range extensions {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}

// Analyzer derives structure from extracted content.
type Analyzer interface {
	Plugin

	// Analyze produces a structured analysis of the text.
	Analyze(ctx context.Context, text, contentType string) (*Analysis, error)

	// Models lists the model names the analyzer can use.
	Models() []string

	// SetModel selects a model by name. Returns false if unknown.
	SetModel(name string) bool
}

// Analysis is the structured outcome of content analysis.
type Analysis struct {
	// Category is the suggested document category.
	Category string `json:"category,omitempty"`

	// Keywords are extracted keywords or tags.
	Keywords []string `json:"keywords,omitempty"`

	// Summary is a short content summary.
	Summary string `json:"summary,omitempty"`

	// Fields holds analyzer-specific structured output.
	Fields map[string]any `json:"fields,omitempty"`
}

// Organizer moves analyzed items into a target layout.
type Organizer interface {
	Plugin

	// Organize processes the request. When the request carries a progress
	// channel, the operation writes events to it and closes it on return.
	Organize(ctx context.Context, req OrganizeRequest) (*OrganizeResult, error)
}

// AnalyzedItem pairs a file with its analysis.
type AnalyzedItem struct {
	// Path is the source file path.
	Path string `json:"path"`

	// Analysis is the item's analysis, if any.
	Analysis *Analysis `json:"analysis,omitempty"`

	// Metadata holds parser metadata for the item.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// OrganizeRequest describes an organize operation.
type OrganizeRequest struct {
	// Items are the analyzed items to organize.
	Items []AnalyzedItem

	// TargetDir is the destination root.
	TargetDir string

	// Progress, if non-nil, receives progress events. The operation
	// closes it when finished, successfully or not.
	Progress chan<- Progress

	// Options holds organizer-specific options.
	Options map[string]any
}

// OrganizeResult is the structured outcome of an organize operation.
type OrganizeResult struct {
	// Organized is the number of items placed.
	Organized int `json:"organized"`

	// Skipped is the number of items left untouched.
	Skipped int `json:"skipped"`

	// Moves maps source paths to destination paths.
	Moves map[string]string `json:"moves,omitempty"`
}

// Utility is a plugin with no role-specific surface beyond the shared
// contract.
type Utility interface {
	Plugin
}

// Base provides embeddable defaults for the shared contract surface.
// Concrete plugins embed Base, set the metadata fields, and override the
// hooks they care about.
type Base struct {
	// PluginID is the unique plugin identifier.
	PluginID string

	// PluginType is the capability role.
	PluginType Type

	// PluginName is the human-readable name.
	PluginName string

	// PluginVersion is the semver version string.
	PluginVersion string

	// Requires lists dependency plugin ids.
	Requires []string

	mu      sync.RWMutex
	store   *settings.Store
	enabled bool
}

// Metadata returns the plugin's descriptive snapshot.
func (b *Base) Metadata() Metadata {
	return Metadata{
		ID:           b.PluginID,
		Type:         b.PluginType,
		Name:         b.PluginName,
		Version:      b.PluginVersion,
		Dependencies: append([]string(nil), b.Requires...),
		Enabled:      b.Enabled(),
	}
}

// Dependencies returns the declared dependency ids.
func (b *Base) Dependencies() []string {
	return append([]string(nil), b.Requires...)
}

// ConfigSchema returns nil; plugins with settings override it.
func (b *Base) ConfigSchema() *ConfigSchema {
	return nil
}

// Initialize is a no-op.
func (b *Base) Initialize(ctx context.Context) error {
	return nil
}

// Activate marks the plugin enabled.
func (b *Base) Activate(ctx context.Context) error {
	b.mu.Lock()
	b.enabled = true
	b.mu.Unlock()
	return nil
}

// Deactivate marks the plugin disabled.
func (b *Base) Deactivate(ctx context.Context) error {
	b.mu.Lock()
	b.enabled = false
	b.mu.Unlock()
	return nil
}

// Shutdown is a no-op.
func (b *Base) Shutdown(ctx context.Context) error {
	return nil
}

// Enabled reports whether the plugin is currently active.
func (b *Base) Enabled() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.enabled
}

// AttachSettings stores the shared settings handle.
// The registry calls this at registration time.
func (b *Base) AttachSettings(store *settings.Store) {
	b.mu.Lock()
	b.store = store
	b.mu.Unlock()
}

// Settings returns the shared settings store, or nil before registration.
func (b *Base) Settings() *settings.Store {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.store
}

// Setting reads a key from the plugin's own settings namespace.
func (b *Base) Setting(key string, def any) any {
	store := b.Settings()
	if store == nil {
		return def
	}
	return store.PluginSetting(b.PluginID, key, def)
}

// SetSetting writes a key in the plugin's own settings namespace.
func (b *Base) SetSetting(key string, value any) error {
	store := b.Settings()
	if store == nil {
		return ErrNoSettings
	}
	return store.SetPluginSetting(b.PluginID, key, value)
}
