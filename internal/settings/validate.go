package settings

import "fmt"

// validThemes are the allowed general.theme values.
var validThemes = map[string]bool{
	"light":  true,
	"dark":   true,
	"system": true,
}

// validAIServices are the allowed ai.service values.
var validAIServices = map[string]bool{
	"gemini": true,
	"openai": true,
	"local":  true,
}

// validLoggingLevels are the allowed advanced.logging_level values.
var validLoggingLevels = map[string]bool{
	"DEBUG":    true,
	"INFO":     true,
	"WARNING":  true,
	"ERROR":    true,
	"CRITICAL": true,
}

// validDuplicateModes are the allowed files.handle_duplicates values.
var validDuplicateModes = map[string]bool{
	"ask":         true,
	"keep_both":   true,
	"keep_newest": true,
	"keep_oldest": true,
}

// Validate runs section rules over every known section.
// Returns violations keyed by section name; sections with no violations
// are absent from the result. The tree is never mutated.
func (s *Store) Validate() map[string][]string {
	result := make(map[string][]string)
	for _, name := range []string{"general", "files", "batch_processing", "ai", "advanced"} {
		if errs := s.ValidateSection(name); len(errs) > 0 {
			result[name] = errs
		}
	}
	return result
}

// ValidateSection runs section-specific rules and returns human-readable
// violations. An unknown or missing section yields no violations.
func (s *Store) ValidateSection(name string) []string {
	section, ok := s.Section(name)
	if !ok {
		return nil
	}

	switch name {
	case "general":
		return validateGeneral(section)
	case "files":
		return validateFiles(section)
	case "batch_processing":
		return validateBatchProcessing(section)
	case "ai":
		return validateAI(section)
	case "advanced":
		return validateAdvanced(section)
	default:
		return nil
	}
}

func validateGeneral(section map[string]any) []string {
	var errs []string
	if v, ok := section["theme"]; ok {
		if theme, isStr := v.(string); !isStr || !validThemes[theme] {
			errs = append(errs, "invalid theme value: must be 'light', 'dark', or 'system'")
		}
	}
	if v, ok := section["language"]; ok {
		if _, isStr := v.(string); !isStr {
			errs = append(errs, "invalid language value: must be a string")
		}
	}
	if v, ok := section["debug_mode"]; ok {
		if _, isBool := v.(bool); !isBool {
			errs = append(errs, "invalid debug_mode value: must be a boolean")
		}
	}
	return errs
}

func validateFiles(section map[string]any) []string {
	var errs []string
	if v, ok := section["handle_duplicates"]; ok {
		if mode, isStr := v.(string); !isStr || !validDuplicateModes[mode] {
			errs = append(errs, "invalid handle_duplicates value: must be 'ask', 'keep_both', 'keep_newest', or 'keep_oldest'")
		}
	}
	for _, key := range []string{"create_category_folders", "copy_instead_of_move", "generate_summaries", "include_metadata"} {
		if v, ok := section[key]; ok {
			if _, isBool := v.(bool); !isBool {
				errs = append(errs, fmt.Sprintf("invalid %s value: must be a boolean", key))
			}
		}
	}
	return errs
}

func validateBatchProcessing(section map[string]any) []string {
	var errs []string
	if v, ok := section["batch_size"]; ok {
		if n, isNum := asInt(v); !isNum || n <= 0 {
			errs = append(errs, "invalid batch_size value: must be a positive integer")
		}
	}
	if v, ok := section["batch_delay"]; ok {
		if f, isNum := asFloat(v); !isNum || f < 0 {
			errs = append(errs, "invalid batch_delay value: must be a non-negative number")
		}
	}
	if v, ok := section["max_workers"]; ok {
		if n, isNum := asInt(v); !isNum || n <= 0 {
			errs = append(errs, "invalid max_workers value: must be a positive integer")
		}
	}
	for _, key := range []string{"memory_limit_percent", "cpu_limit_percent"} {
		if v, ok := section[key]; ok {
			if n, isNum := asInt(v); !isNum || n < 1 || n > 100 {
				errs = append(errs, fmt.Sprintf("invalid %s value: must be an integer between 1 and 100", key))
			}
		}
	}
	return errs
}

func validateAI(section map[string]any) []string {
	var errs []string
	if v, ok := section["service"]; ok {
		if svc, isStr := v.(string); !isStr || !validAIServices[svc] {
			errs = append(errs, "invalid service value: must be 'gemini', 'openai', or 'local'")
		}
	}
	if v, ok := section["temperature"]; ok {
		if f, isNum := asFloat(v); !isNum || f < 0 || f > 1 {
			errs = append(errs, "invalid temperature value: must be a number between 0 and 1")
		}
	}
	if v, ok := section["max_tokens"]; ok {
		if n, isNum := asInt(v); !isNum || n <= 0 {
			errs = append(errs, "invalid max_tokens value: must be a positive integer")
		}
	}
	return errs
}

func validateAdvanced(section map[string]any) []string {
	var errs []string
	if v, ok := section["logging_level"]; ok {
		if level, isStr := v.(string); !isStr || !validLoggingLevels[level] {
			errs = append(errs, "invalid logging_level value: must be 'DEBUG', 'INFO', 'WARNING', 'ERROR', or 'CRITICAL'")
		}
	}
	if v, ok := section["max_cache_size_mb"]; ok {
		if n, isNum := asInt(v); !isNum || n <= 0 {
			errs = append(errs, "invalid max_cache_size_mb value: must be a positive integer")
		}
	}
	return errs
}

// asInt accepts the integer shapes a JSON round-trip can produce.
// Floats with a fractional part are not integers.
func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n == float64(int(n)) {
			return int(n), true
		}
		return 0, false
	default:
		return 0, false
	}
}

// asFloat accepts any numeric shape.
func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
