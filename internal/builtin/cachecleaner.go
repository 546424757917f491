package builtin

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/docorg/docorg/internal/plugin"
)

const cacheCleanerID = "cache_cleaner"

// CacheCleaner removes stale files from the application cache directory.
// It sweeps once on activation and again on shutdown when configured to.
type CacheCleaner struct {
	plugin.Base
}

// NewCacheCleaner creates a cache cleaner plugin.
func NewCacheCleaner() *CacheCleaner {
	return &CacheCleaner{
		Base: plugin.Base{
			PluginID:      cacheCleanerID,
			PluginType:    plugin.TypeUtility,
			PluginName:    "Cache Cleaner",
			PluginVersion: "1.0.0",
		},
	}
}

// ConfigSchema declares the cleaner's settings.
func (c *CacheCleaner) ConfigSchema() *plugin.ConfigSchema {
	return &plugin.ConfigSchema{
		Type: "object",
		Properties: map[string]*plugin.SchemaProperty{
			"max_age_days": {
				Type:        "integer",
				Default:     30,
				Description: "remove cache entries older than this many days",
				Minimum:     ptrFloat(1),
			},
			"clean_on_shutdown": {
				Type:        "boolean",
				Default:     true,
				Description: "sweep the cache again during shutdown",
			},
		},
	}
}

// Activate sweeps the cache, then marks the plugin enabled.
func (c *CacheCleaner) Activate(ctx context.Context) error {
	if _, err := c.Sweep(ctx); err != nil {
		return err
	}
	return c.Base.Activate(ctx)
}

// Shutdown sweeps the cache one last time when configured to.
func (c *CacheCleaner) Shutdown(ctx context.Context) error {
	if on, _ := c.Setting("clean_on_shutdown", true).(bool); on {
		if _, err := c.Sweep(ctx); err != nil {
			return err
		}
	}
	return c.Base.Shutdown(ctx)
}

// Sweep removes cache files older than the configured age and returns how
// many were removed. A missing cache directory is not an error.
func (c *CacheCleaner) Sweep(ctx context.Context) (int, error) {
	dir := c.cacheDir()
	if dir == "" {
		return 0, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading cache dir %s: %w", dir, err)
	}

	cutoff := time.Now().Add(-c.maxAge())
	removed := 0
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, entry.Name())); err == nil {
			removed++
		}
	}
	return removed, nil
}

func (c *CacheCleaner) cacheDir() string {
	store := c.Settings()
	if store == nil {
		return ""
	}
	return store.GetString("advanced.cache_dir", "")
}

func (c *CacheCleaner) maxAge() time.Duration {
	days := 30
	switch v := c.Setting("max_age_days", 30).(type) {
	case int:
		days = v
	case float64:
		days = int(v)
	}
	if days < 1 {
		days = 1
	}
	return time.Duration(days) * 24 * time.Hour
}
