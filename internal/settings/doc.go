// Package settings provides the hierarchical settings store shared by the
// application core and every plugin.
//
// Settings form a nested key/value tree addressed by dot-separated paths
// (e.g. "ai.temperature" or "plugins.plugin_settings.pdf_parser.ocr_enabled").
// The store is seeded from built-in defaults and merge-loaded from a single
// JSON document, so settings files written by older versions keep working
// when newer code introduces new default keys.
//
// # Quick Start
//
//	store := settings.New(settings.WithPath(path))
//	if err := store.Load(); err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	width := store.GetInt("files.thumbnail_size", 256)
//	_ = store.Set("ai.temperature", 0.4)
//	_ = store.Save()
//
// # Plugin Settings
//
// Each plugin owns a namespace under plugins.plugin_settings.<id>. The
// convenience accessors PluginSetting and SetPluginSetting operate inside
// that namespace, and the enabled-plugin list lives at
// plugins.enabled_plugins.
//
// # Concurrency
//
// The store is safe for concurrent use. Reads take a shared lock; writes are
// serialized. Save snapshots the tree under the lock and performs file I/O
// without holding it. Change observers are invoked outside all locks.
package settings
