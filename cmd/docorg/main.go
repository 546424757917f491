// Package main is the entry point for the docorg plugin host.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/docorg/docorg/internal/builtin"
	"github.com/docorg/docorg/internal/plugin"
	"github.com/docorg/docorg/internal/settings"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

type options struct {
	SettingsPath string
	PluginDir    string
	LogLevel     string
	List         bool
	Validate     bool
	Watch        bool
}

func main() {
	os.Exit(run())
}

func run() int {
	opts := parseFlags()
	log := newLogger(opts.LogLevel)

	store, err := openStore(opts, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load settings: %v\n", err)
		return 1
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("closing settings store", "error", err)
		}
	}()

	if opts.Validate {
		return validateSettings(store)
	}

	registry := plugin.NewRegistry(store)
	discoverer := plugin.NewDiscoverer(builtin.Catalog,
		plugin.WithRoot(pluginDir(opts, store)),
		plugin.WithDiscoveryLogger(log),
	)
	discovered, err := discoverer.Discover(registry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: plugin discovery failed: %v\n", err)
		return 1
	}
	for _, f := range discovered.Failures {
		log.Warn("plugin not loaded", "path", f.Path, "plugin", f.ID, "error", f.Err)
	}

	orch := plugin.NewOrchestrator(registry,
		plugin.WithCatalog(builtin.Catalog),
		plugin.WithLogger(log),
	)

	if opts.List {
		return listPlugins(registry)
	}

	ctx := context.Background()
	if result := orch.InitializeAll(ctx); result.Err() != nil {
		log.Warn("some plugins failed to initialize", "failed", result.Failed)
	}
	if result := orch.ActivateEnabled(ctx); result.Err() != nil {
		log.Warn("some plugins failed to activate", "failed", result.Failed)
	}
	log.Info("plugin host ready",
		"registered", registry.Count(),
		"active", len(registry.ListActive()),
	)

	// Wait for a shutdown signal
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	<-signals

	log.Info("shutting down")
	if result := orch.ShutdownAll(ctx); result.Err() != nil {
		log.Error("shutdown finished with failures", "failed", result.Failed, "error", result.Err())
		return 1
	}
	return 0
}

func openStore(opts options, log *slog.Logger) (*settings.Store, error) {
	storeOpts := []settings.Option{settings.WithLogger(log)}
	if opts.SettingsPath != "" {
		storeOpts = append(storeOpts, settings.WithPath(opts.SettingsPath))
	}
	if opts.Watch {
		storeOpts = append(storeOpts, settings.WithWatcher(true))
	}
	store := settings.New(storeOpts...)
	if err := store.Load(); err != nil {
		return nil, err
	}
	return store, nil
}

func pluginDir(opts options, store *settings.Store) string {
	if opts.PluginDir != "" {
		return opts.PluginDir
	}
	return store.GetString("plugins.plugin_directory", "")
}

func validateSettings(store *settings.Store) int {
	problems := store.Validate()
	if len(problems) == 0 {
		fmt.Println("settings OK")
		return 0
	}
	for section, issues := range problems {
		for _, issue := range issues {
			fmt.Fprintf(os.Stderr, "%s: %s\n", section, issue)
		}
	}
	return 1
}

func listPlugins(registry *plugin.Registry) int {
	for _, inst := range registry.List() {
		desc := inst.Descriptor()
		enabled := ""
		if store := registry.Settings(); store != nil && store.IsPluginEnabled(desc.ID) {
			enabled = " (enabled)"
		}
		fmt.Printf("%-24s %-10s %-8s %s%s\n", desc.ID, desc.Type, desc.Version, desc.Name, enabled)
	}
	return 0
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func parseFlags() options {
	var opts options
	var showVersion bool

	flag.StringVar(&opts.SettingsPath, "settings", "", "Path to settings file")
	flag.StringVar(&opts.SettingsPath, "s", "", "Path to settings file (shorthand)")
	flag.StringVar(&opts.PluginDir, "plugins", "", "Plugin directory to scan for descriptors")
	flag.StringVar(&opts.PluginDir, "p", "", "Plugin directory (shorthand)")
	flag.StringVar(&opts.LogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.BoolVar(&opts.List, "list", false, "List registered plugins and exit")
	flag.BoolVar(&opts.Validate, "validate", false, "Validate settings and exit")
	flag.BoolVar(&opts.Watch, "watch", false, "Reload settings when the file changes on disk")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "docorg - document organizer plugin host\n\n")
		fmt.Fprintf(os.Stderr, "Usage: docorg [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  docorg                      Run with default settings\n")
		fmt.Fprintf(os.Stderr, "  docorg -list                Show registered plugins\n")
		fmt.Fprintf(os.Stderr, "  docorg -s ./settings.json   Use a specific settings file\n")
		fmt.Fprintf(os.Stderr, "  docorg -validate            Check the settings file\n")
	}

	flag.Parse()

	if showVersion {
		fmt.Printf("docorg %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		os.Exit(0)
	}

	switch opts.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		fmt.Fprintf(os.Stderr, "Error: invalid log level %q (must be debug, info, warn, or error)\n", opts.LogLevel)
		os.Exit(1)
	}

	return opts
}
