package plugin

// ConfigSchema is a JSON-Schema-like description of a plugin's settings
// namespace. The core passes it through to configuration UIs and
// validators without interpreting it beyond property defaults.
type ConfigSchema struct {
	// Type is the JSON type, typically "object".
	Type string `json:"type,omitempty"`

	// Properties defines the plugin's settings keys.
	Properties map[string]*SchemaProperty `json:"properties,omitempty"`

	// Required lists required property names.
	Required []string `json:"required,omitempty"`
}

// SchemaProperty describes a single settings key.
type SchemaProperty struct {
	// Type is string, number, integer, boolean, array, or object.
	Type string `json:"type,omitempty"`

	// Default is the default value.
	Default any `json:"default,omitempty"`

	// Description documents the property.
	Description string `json:"description,omitempty"`

	// Enum lists allowed values.
	Enum []string `json:"enum,omitempty"`

	// Minimum for numeric types.
	Minimum *float64 `json:"minimum,omitempty"`

	// Maximum for numeric types.
	Maximum *float64 `json:"maximum,omitempty"`
}

// Defaults returns the default value for every property that has one.
func (s *ConfigSchema) Defaults() map[string]any {
	defaults := make(map[string]any)
	if s == nil {
		return defaults
	}
	for key, prop := range s.Properties {
		if prop != nil && prop.Default != nil {
			defaults[key] = prop.Default
		}
	}
	return defaults
}

// Clone creates a deep copy of the schema.
func (s *ConfigSchema) Clone() *ConfigSchema {
	if s == nil {
		return nil
	}

	clone := &ConfigSchema{Type: s.Type}
	if s.Required != nil {
		clone.Required = append([]string(nil), s.Required...)
	}
	if s.Properties != nil {
		clone.Properties = make(map[string]*SchemaProperty, len(s.Properties))
		for key, prop := range s.Properties {
			if prop == nil {
				clone.Properties[key] = nil
				continue
			}
			p := *prop
			if prop.Enum != nil {
				p.Enum = append([]string(nil), prop.Enum...)
			}
			clone.Properties[key] = &p
		}
	}
	return clone
}
