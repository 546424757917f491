package settings

import (
	"os"
	"path/filepath"
)

// DefaultFileName is the settings file name inside the config directory.
const DefaultFileName = "settings.json"

// DefaultPath returns the default settings file location.
func DefaultPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "docorg", DefaultFileName)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "docorg", DefaultFileName)
}

// Defaults returns the built-in default settings tree.
// The returned map is freshly allocated on every call.
func Defaults() map[string]any {
	home, _ := os.UserHomeDir()
	dataDir := filepath.Join(home, ".docorg")

	return map[string]any{
		"general": map[string]any{
			"theme":        "system",
			"language":     "en",
			"debug_mode":   false,
			"auto_update":  true,
			"save_session": true,
		},
		"files": map[string]any{
			"default_source_dir":      filepath.Join(home, "Documents"),
			"default_target_dir":      filepath.Join(home, "Documents", "Organized"),
			"create_category_folders": true,
			"copy_instead_of_move":    true,
			"handle_duplicates":       "ask",
			"generate_summaries":      true,
			"include_metadata":        true,
		},
		"batch_processing": map[string]any{
			"batch_size":           10,
			"batch_delay":          0.5,
			"max_workers":          4,
			"adaptive_resources":   true,
			"memory_limit_percent": 75,
			"cpu_limit_percent":    80,
		},
		"ai": map[string]any{
			"service":                 "gemini",
			"gemini_model":            "gemini-1.5-pro",
			"openai_model":            "gpt-4-turbo",
			"max_requests_per_minute": 50,
			"max_tokens":              8192,
			"temperature":             0.7,
			"generate_tags":           true,
			"suggest_categories":      true,
			"content_summary_length":  "medium",
		},
		"plugins": map[string]any{
			"plugin_directory": "plugins",
			"enabled_plugins":  []any{},
			"plugin_settings":  map[string]any{},
		},
		"advanced": map[string]any{
			"logging_level":       "INFO",
			"cache_dir":           filepath.Join(dataDir, "cache"),
			"max_cache_size_mb":   1024,
			"clear_cache_on_exit": false,
			"database_path":       filepath.Join(dataDir, "database.db"),
		},
	}
}
