// Package plugin provides the plugin system for the document organizer.
//
// Plugins are in-process, trusted components implementing one of four
// capability roles: parser, analyzer, organizer, or utility. The package
// supplies the pieces the host application wires together:
//
//   - Descriptor: immutable plugin metadata (id, role, version, dependencies)
//   - Plugin / Parser / Analyzer / Organizer: the capability contract
//   - Base: embeddable defaults for the shared contract surface
//   - Registry: owns live instances and injects the settings store
//   - Orchestrator: lifecycle state machine and dependency resolver
//   - Catalog / Discoverer: explicit factory map and directory discovery
//
// # Quick Start
//
//	store := settings.New(settings.WithPath(path))
//	_ = store.Load()
//
//	catalog := plugin.NewCatalog()
//	_ = catalog.Register("pdf_parser", newPDFParser)
//
//	registry := plugin.NewRegistry(store)
//	disc := plugin.NewDiscoverer(catalog, plugin.WithRoot(pluginDir))
//	result, _ := disc.Discover(registry)
//
//	orch := plugin.NewOrchestrator(registry, plugin.WithCatalog(catalog))
//	orch.InitializeAll(ctx)
//	orch.ActivateEnabled(ctx)
//	defer orch.ShutdownAll(ctx)
//
// # Plugin Lifecycle
//
// Every instance moves through these states:
//
//	StateRegistered -> Initialize -> StateInitialized
//	StateInitialized -> Activate -> StateActive
//	StateActive -> Deactivate -> StateDeactivated
//	StateDeactivated -> Activate -> StateActive
//	any state except StateActive -> Shutdown -> StateShutDown
//
// StateShutDown is terminal. Reactivation from StateDeactivated does not
// re-run Initialize.
//
// # Dependencies
//
// A descriptor declares the plugin ids that must be Active before the
// plugin itself can activate. The orchestrator activates dependencies
// recursively, detects cycles, and deactivates dependents before their
// dependencies. A failure anywhere in the walk leaves every involved
// plugin in its prior state.
//
// # Hooks and Failure Containment
//
// Lifecycle hooks (Initialize, Activate, Deactivate, Shutdown) are invoked
// at a recovery boundary: a panic inside a hook never escapes the
// orchestrator; it is converted to a *HookError and reported like any other
// hook failure. Batch operations aggregate per-plugin failures instead of
// stopping at the first one.
package plugin
