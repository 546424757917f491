package plugin

// Type identifies a plugin's capability role.
type Type string

// Recognized plugin roles.
const (
	// TypeParser - extracts content and metadata from files.
	TypeParser Type = "parser"

	// TypeAnalyzer - derives structure from extracted content.
	TypeAnalyzer Type = "analyzer"

	// TypeOrganizer - moves analyzed items into a target layout.
	TypeOrganizer Type = "organizer"

	// TypeUtility - supporting functionality with no role-specific surface.
	TypeUtility Type = "utility"
)

// Valid returns true if t is one of the recognized roles.
func (t Type) Valid() bool {
	switch t {
	case TypeParser, TypeAnalyzer, TypeOrganizer, TypeUtility:
		return true
	default:
		return false
	}
}

// String returns the role name.
func (t Type) String() string {
	return string(t)
}

// Types returns all recognized roles in a stable order.
func Types() []Type {
	return []Type{TypeParser, TypeAnalyzer, TypeOrganizer, TypeUtility}
}
