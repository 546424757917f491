package plugin

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

// DescriptorFileName is the descriptor file inside a plugin directory.
const DescriptorFileName = "plugin.json"

// Descriptor describes a plugin's static metadata. It is immutable after
// registration; the registry and orchestrator only ever read it.
type Descriptor struct {
	// ID is the unique plugin identifier (e.g. "pdf_parser").
	ID string `json:"id"`

	// Type is the capability role.
	Type Type `json:"type"`

	// Name is the human-readable name.
	Name string `json:"name"`

	// Version is a semver string (e.g. "1.2.0").
	Version string `json:"version"`

	// Dependencies lists plugin ids that must be active before this
	// plugin can activate. Order is preserved; duplicates are invalid.
	Dependencies []string `json:"dependencies,omitempty"`

	// ConfigSchema declares the plugin's settings namespace.
	ConfigSchema *ConfigSchema `json:"configSchema,omitempty"`
}

// Descriptor validation errors.
var (
	ErrMissingID      = errors.New("descriptor: id is required")
	ErrInvalidID      = errors.New("descriptor: id must be lowercase alphanumeric with underscores or hyphens")
	ErrMissingVersion = errors.New("descriptor: version is required")
	ErrInvalidVersion = errors.New("descriptor: version must be valid semver")
	ErrSelfDependency = errors.New("descriptor: plugin cannot depend on itself")
	ErrDuplicateDep   = errors.New("descriptor: duplicate dependency id")
)

// idPattern validates plugin ids.
var idPattern = regexp.MustCompile(`^[a-z][a-z0-9_-]*[a-z0-9]$|^[a-z]$`)

// semverPattern validates version strings (simplified semver).
var semverPattern = regexp.MustCompile(`^\d+\.\d+\.\d+(-[a-zA-Z0-9.-]+)?(\+[a-zA-Z0-9.-]+)?$`)

// LoadDescriptor loads and validates a descriptor from a JSON file.
func LoadDescriptor(path string) (*Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read descriptor: %w", err)
	}

	var d Descriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to parse descriptor: %w", err)
	}

	if err := d.Validate(); err != nil {
		return nil, err
	}

	return &d, nil
}

// LoadDescriptorFromDir loads a descriptor from a plugin directory.
// Looks for plugin.json in the directory.
func LoadDescriptorFromDir(dir string) (*Descriptor, error) {
	return LoadDescriptor(filepath.Join(dir, DescriptorFileName))
}

// DescriptorFor synthesizes a descriptor from a plugin's own metadata.
// Used by catalog-only discovery where no plugin.json exists on disk.
func DescriptorFor(p Plugin) *Descriptor {
	md := p.Metadata()
	return &Descriptor{
		ID:           md.ID,
		Type:         md.Type,
		Name:         md.Name,
		Version:      md.Version,
		Dependencies: append([]string(nil), p.Dependencies()...),
		ConfigSchema: p.ConfigSchema(),
	}
}

// Validate checks that the descriptor is well formed.
func (d *Descriptor) Validate() error {
	if d.ID == "" {
		return ErrMissingID
	}
	if !idPattern.MatchString(d.ID) {
		return fmt.Errorf("%w: %s", ErrInvalidID, d.ID)
	}

	if !d.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidType, string(d.Type))
	}

	if d.Version == "" {
		return ErrMissingVersion
	}
	if !semverPattern.MatchString(d.Version) {
		return fmt.Errorf("%w: %s", ErrInvalidVersion, d.Version)
	}

	seen := make(map[string]bool, len(d.Dependencies))
	for _, dep := range d.Dependencies {
		if dep == d.ID {
			return fmt.Errorf("%w: %s", ErrSelfDependency, d.ID)
		}
		if !idPattern.MatchString(dep) {
			return fmt.Errorf("%w: dependency %s", ErrInvalidID, dep)
		}
		if seen[dep] {
			return fmt.Errorf("%w: %s", ErrDuplicateDep, dep)
		}
		seen[dep] = true
	}

	return nil
}

// Clone creates a deep copy of the descriptor.
func (d *Descriptor) Clone() *Descriptor {
	clone := *d
	if d.Dependencies != nil {
		clone.Dependencies = append([]string(nil), d.Dependencies...)
	}
	if d.ConfigSchema != nil {
		clone.ConfigSchema = d.ConfigSchema.Clone()
	}
	return &clone
}

// String returns a string representation of the descriptor.
func (d *Descriptor) String() string {
	name := d.Name
	if name == "" {
		name = d.ID
	}
	return fmt.Sprintf("%s v%s (%s)", name, d.Version, d.Type)
}
