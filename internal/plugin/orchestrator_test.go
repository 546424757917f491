package plugin

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
)

// harness wires a registry and orchestrator over a set of fakes sharing
// one trace.
type harness struct {
	t        *testing.T
	trace    *trace
	registry *Registry
	orch     *Orchestrator
	fakes    map[string]*fakePlugin
}

func newHarness(t *testing.T, opts ...OrchestratorOption) *harness {
	t.Helper()
	registry := NewRegistry(nil)
	return &harness{
		t:        t,
		trace:    &trace{},
		registry: registry,
		orch:     NewOrchestrator(registry, opts...),
		fakes:    map[string]*fakePlugin{},
	}
}

func (h *harness) add(id string, deps ...string) *fakePlugin {
	h.t.Helper()
	f := newFake(id, deps...)
	f.trace = h.trace
	if _, err := h.registry.RegisterPlugin(f); err != nil {
		h.t.Fatalf("RegisterPlugin(%s) error = %v", id, err)
	}
	h.fakes[id] = f
	return f
}

func (h *harness) initAll() {
	h.t.Helper()
	if result := h.orch.InitializeAll(context.Background()); result.Err() != nil {
		h.t.Fatalf("InitializeAll() error = %v", result.Err())
	}
}

func (h *harness) state(id string) State {
	h.t.Helper()
	inst, err := h.registry.Get(id)
	if err != nil {
		h.t.Fatalf("Get(%s) error = %v", id, err)
	}
	return inst.State()
}

func TestLifecycleHappyPath(t *testing.T) {
	h := newHarness(t)
	h.add("worker")
	ctx := context.Background()

	if err := h.orch.Initialize(ctx, "worker"); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if got := h.state("worker"); got != StateInitialized {
		t.Fatalf("state = %v, want Initialized", got)
	}

	if err := h.orch.Activate(ctx, "worker"); err != nil {
		t.Fatalf("Activate() error = %v", err)
	}
	if got := h.state("worker"); got != StateActive {
		t.Fatalf("state = %v, want Active", got)
	}
	if !h.fakes["worker"].Enabled() {
		t.Error("plugin not enabled after activate")
	}

	if err := h.orch.Deactivate(ctx, "worker"); err != nil {
		t.Fatalf("Deactivate() error = %v", err)
	}
	if got := h.state("worker"); got != StateDeactivated {
		t.Fatalf("state = %v, want Deactivated", got)
	}

	// Re-activation from Deactivated skips Initialize.
	if err := h.orch.Activate(ctx, "worker"); err != nil {
		t.Fatalf("re-Activate() error = %v", err)
	}
	if err := h.orch.Deactivate(ctx, "worker"); err != nil {
		t.Fatalf("Deactivate() error = %v", err)
	}
	if err := h.orch.Shutdown(ctx, "worker"); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if got := h.state("worker"); got != StateShutDown {
		t.Fatalf("state = %v, want ShutDown", got)
	}

	want := []string{
		"initialize:worker",
		"activate:worker",
		"deactivate:worker",
		"activate:worker",
		"deactivate:worker",
		"shutdown:worker",
	}
	if got := h.trace.all(); !reflect.DeepEqual(got, want) {
		t.Errorf("hook trace = %v, want %v", got, want)
	}
}

func TestInvalidTransitions(t *testing.T) {
	h := newHarness(t)
	h.add("worker")
	ctx := context.Background()

	// Activate before Initialize.
	if err := h.orch.Activate(ctx, "worker"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Activate() from Registered error = %v, want ErrInvalidTransition", err)
	}
	// Deactivate before Activate.
	if err := h.orch.Deactivate(ctx, "worker"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Deactivate() from Registered error = %v, want ErrInvalidTransition", err)
	}

	h.initAll()
	if err := h.orch.Activate(ctx, "worker"); err != nil {
		t.Fatalf("Activate() error = %v", err)
	}
	// Shutdown while Active.
	if err := h.orch.Shutdown(ctx, "worker"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Shutdown() from Active error = %v, want ErrInvalidTransition", err)
	}
	// Initialize twice.
	if err := h.orch.Initialize(ctx, "worker"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Initialize() from Active error = %v, want ErrInvalidTransition", err)
	}

	// Double Activate is a harmless no-op.
	if err := h.orch.Activate(ctx, "worker"); err != nil {
		t.Errorf("Activate() while Active error = %v, want nil", err)
	}

	if err := h.orch.Deactivate(ctx, "worker"); err != nil {
		t.Fatalf("Deactivate() error = %v", err)
	}
	if err := h.orch.Shutdown(ctx, "worker"); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	// Shutdown twice is idempotent.
	if err := h.orch.Shutdown(ctx, "worker"); err != nil {
		t.Errorf("second Shutdown() error = %v, want nil", err)
	}
	// ShutDown is terminal.
	if err := h.orch.Activate(ctx, "worker"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Activate() after shutdown error = %v, want ErrInvalidTransition", err)
	}
}

func TestUnknownPlugin(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	for name, op := range map[string]func() error{
		"Initialize": func() error { return h.orch.Initialize(ctx, "ghost") },
		"Activate":   func() error { return h.orch.Activate(ctx, "ghost") },
		"Deactivate": func() error { return h.orch.Deactivate(ctx, "ghost") },
		"Shutdown":   func() error { return h.orch.Shutdown(ctx, "ghost") },
	} {
		if err := op(); !errors.Is(err, ErrNotRegistered) {
			t.Errorf("%s(ghost) error = %v, want ErrNotRegistered", name, err)
		}
	}
}

func TestActivateDependenciesFirst(t *testing.T) {
	h := newHarness(t)
	h.add("organizer1", "pdf_parser")
	h.add("pdf_parser")
	h.initAll()
	h.trace.events = nil

	if err := h.orch.Activate(context.Background(), "organizer1"); err != nil {
		t.Fatalf("Activate() error = %v", err)
	}

	want := []string{"activate:pdf_parser", "activate:organizer1"}
	if got := h.trace.all(); !reflect.DeepEqual(got, want) {
		t.Errorf("activation order = %v, want %v", got, want)
	}
	if h.state("pdf_parser") != StateActive {
		t.Error("dependency is not Active")
	}
}

func TestActivateDiamondDependency(t *testing.T) {
	h := newHarness(t)
	h.add("app", "left", "right")
	h.add("left", "core")
	h.add("right", "core")
	h.add("core")
	h.initAll()
	h.trace.events = nil

	if err := h.orch.Activate(context.Background(), "app"); err != nil {
		t.Fatalf("Activate() error = %v", err)
	}

	// core activates exactly once, before both sides.
	want := []string{"activate:core", "activate:left", "activate:right", "activate:app"}
	if got := h.trace.all(); !reflect.DeepEqual(got, want) {
		t.Errorf("activation order = %v, want %v", got, want)
	}
}

func TestActivateMissingDependency(t *testing.T) {
	h := newHarness(t)
	h.add("organizer1", "pdf_parser")
	h.initAll()

	err := h.orch.Activate(context.Background(), "organizer1")
	if !errors.Is(err, ErrDependencyNotFound) {
		t.Fatalf("Activate() error = %v, want ErrDependencyNotFound", err)
	}
	if got := h.state("organizer1"); got != StateInitialized {
		t.Errorf("state = %v after failed activate, want Initialized", got)
	}
}

func TestActivateCycle(t *testing.T) {
	h := newHarness(t)
	h.add("a", "b")
	h.add("b", "a")
	h.initAll()

	err := h.orch.Activate(context.Background(), "a")
	if !errors.Is(err, ErrCyclicDependency) {
		t.Fatalf("Activate() error = %v, want ErrCyclicDependency", err)
	}
	if h.state("a") != StateInitialized || h.state("b") != StateInitialized {
		t.Error("cycle participants must stay Initialized")
	}
}

func TestActivateFailingDependencyHaltsWalk(t *testing.T) {
	h := newHarness(t)
	h.add("app", "core")
	core := h.add("core")
	core.activateErr = errors.New("core is broken")
	h.initAll()

	err := h.orch.Activate(context.Background(), "app")
	if err == nil {
		t.Fatal("Activate() error = nil, want dependency failure")
	}
	var hookErr *HookError
	if !errors.As(err, &hookErr) || hookErr.Plugin != "core" {
		t.Errorf("error = %v, want HookError from core", err)
	}
	if h.state("app") != StateInitialized {
		t.Errorf("app state = %v, want Initialized", h.state("app"))
	}
	if h.state("core") != StateInitialized {
		t.Errorf("core state = %v, want Initialized", h.state("core"))
	}
}

func TestDeactivateCascadesToDependents(t *testing.T) {
	h := newHarness(t)
	h.add("pdf_parser")
	h.add("organizer1", "pdf_parser")
	h.initAll()
	ctx := context.Background()

	if err := h.orch.Activate(ctx, "organizer1"); err != nil {
		t.Fatalf("Activate() error = %v", err)
	}
	h.trace.events = nil

	if err := h.orch.Deactivate(ctx, "pdf_parser"); err != nil {
		t.Fatalf("Deactivate() error = %v", err)
	}

	// Dependents go down before the dependency.
	want := []string{"deactivate:organizer1", "deactivate:pdf_parser"}
	if got := h.trace.all(); !reflect.DeepEqual(got, want) {
		t.Errorf("deactivation order = %v, want %v", got, want)
	}
	if h.state("organizer1") != StateDeactivated || h.state("pdf_parser") != StateDeactivated {
		t.Error("both plugins must end Deactivated")
	}
}

func TestDeactivateAbortsWhenDependentFails(t *testing.T) {
	h := newHarness(t)
	h.add("core")
	dependent := h.add("viewer", "core")
	dependent.deactivateErr = errors.New("refusing to stop")
	h.initAll()
	ctx := context.Background()

	if err := h.orch.Activate(ctx, "viewer"); err != nil {
		t.Fatalf("Activate() error = %v", err)
	}

	err := h.orch.Deactivate(ctx, "core")
	if err == nil {
		t.Fatal("Deactivate() error = nil, want dependent failure")
	}
	// The target never went down.
	if h.state("core") != StateActive {
		t.Errorf("core state = %v, want Active", h.state("core"))
	}
}

func TestHookPanicIsContained(t *testing.T) {
	h := newHarness(t)
	fake := h.add("volatile")
	fake.panicIn = "activate"
	h.initAll()

	err := h.orch.Activate(context.Background(), "volatile")
	var hookErr *HookError
	if !errors.As(err, &hookErr) {
		t.Fatalf("Activate() error = %v, want *HookError", err)
	}
	if hookErr.Plugin != "volatile" || hookErr.Hook != "activate" {
		t.Errorf("HookError = %+v, want volatile/activate", hookErr)
	}
	if got := h.state("volatile"); got != StateInitialized {
		t.Errorf("state = %v after panic, want Initialized", got)
	}
}

func TestShutdownAllContinuesOnError(t *testing.T) {
	h := newHarness(t)
	h.add("first")
	stubborn := h.add("stubborn")
	stubborn.shutdownErr = errors.New("will not die")
	h.add("last")
	h.initAll()
	ctx := context.Background()

	for _, id := range []string{"first", "stubborn", "last"} {
		if err := h.orch.Activate(ctx, id); err != nil {
			t.Fatalf("Activate(%s) error = %v", id, err)
		}
	}

	result := h.orch.ShutdownAll(ctx)

	if len(result.Failures) != 1 {
		t.Fatalf("Failures = %v, want exactly one", result.Failures)
	}
	if result.Failures[0].ID != "stubborn" {
		t.Errorf("failed id = %s, want stubborn", result.Failures[0].ID)
	}
	if h.state("first") != StateShutDown || h.state("last") != StateShutDown {
		t.Error("healthy plugins must still shut down")
	}
	// The failed plugin was deactivated but not shut down.
	if h.state("stubborn") != StateDeactivated {
		t.Errorf("stubborn state = %v, want Deactivated", h.state("stubborn"))
	}
	if result.Err() == nil {
		t.Error("Err() = nil, want aggregate error")
	}
}

func TestShutdownAllFromMixedStates(t *testing.T) {
	h := newHarness(t)
	h.add("registered_only")
	h.add("active_one")
	h.add("initialized_only")
	ctx := context.Background()

	if err := h.orch.Initialize(ctx, "active_one"); err != nil {
		t.Fatal(err)
	}
	if err := h.orch.Initialize(ctx, "initialized_only"); err != nil {
		t.Fatal(err)
	}
	if err := h.orch.Activate(ctx, "active_one"); err != nil {
		t.Fatal(err)
	}

	result := h.orch.ShutdownAll(ctx)
	if result.Err() != nil {
		t.Fatalf("ShutdownAll() error = %v", result.Err())
	}
	for _, id := range []string{"registered_only", "active_one", "initialized_only"} {
		if h.state(id) != StateShutDown {
			t.Errorf("%s state = %v, want ShutDown", id, h.state(id))
		}
	}
}

func TestDeactivateAllReverseOrder(t *testing.T) {
	h := newHarness(t)
	h.add("one")
	h.add("two")
	h.add("three")
	h.initAll()
	ctx := context.Background()

	for _, id := range []string{"one", "two", "three"} {
		if err := h.orch.Activate(ctx, id); err != nil {
			t.Fatalf("Activate(%s) error = %v", id, err)
		}
	}
	h.trace.events = nil

	if result := h.orch.DeactivateAll(ctx); result.Err() != nil {
		t.Fatalf("DeactivateAll() error = %v", result.Err())
	}

	want := []string{"deactivate:three", "deactivate:two", "deactivate:one"}
	if got := h.trace.all(); !reflect.DeepEqual(got, want) {
		t.Errorf("deactivation order = %v, want %v", got, want)
	}
}

func TestActivateEnabled(t *testing.T) {
	store := newTestSettings(t)
	registry := NewRegistry(store)
	orch := NewOrchestrator(registry)
	tr := &trace{}

	for _, id := range []string{"pdf_parser", "organizer1"} {
		f := newFake(id)
		f.trace = tr
		if _, err := registry.RegisterPlugin(f); err != nil {
			t.Fatalf("RegisterPlugin(%s) error = %v", id, err)
		}
	}
	if err := store.EnablePlugin("pdf_parser"); err != nil {
		t.Fatal(err)
	}
	if err := store.EnablePlugin("missing_plugin"); err != nil {
		t.Fatal(err)
	}

	result := orch.ActivateEnabled(context.Background())

	if !reflect.DeepEqual(result.Successful, []string{"pdf_parser"}) {
		t.Errorf("Successful = %v, want [pdf_parser]", result.Successful)
	}
	if len(result.Failures) != 1 || !errors.Is(result.Failures[0].Err, ErrNotRegistered) {
		t.Errorf("Failures = %v, want one ErrNotRegistered", result.Failures)
	}

	inst, _ := registry.Get("pdf_parser")
	if inst.State() != StateActive {
		t.Errorf("pdf_parser state = %v, want Active", inst.State())
	}
	// organizer1 was registered but not enabled.
	other, _ := registry.Get("organizer1")
	if other.State() != StateRegistered {
		t.Errorf("organizer1 state = %v, want Registered", other.State())
	}
}

func TestOrchestratorEvents(t *testing.T) {
	h := newHarness(t)
	h.add("worker")
	ctx := context.Background()

	var events []Event
	unsubscribe := h.orch.Subscribe(func(ev Event) {
		events = append(events, ev)
	})

	if err := h.orch.Initialize(ctx, "worker"); err != nil {
		t.Fatal(err)
	}
	if err := h.orch.Activate(ctx, "worker"); err != nil {
		t.Fatal(err)
	}

	if len(events) != 2 {
		t.Fatalf("saw %d events, want 2: %v", len(events), events)
	}
	if events[0].Type != EventInitialized || events[1].Type != EventActivated {
		t.Errorf("events = %v, want initialized then activated", events)
	}
	if events[0].Type.String() != "initialized" || events[1].Type.String() != "activated" {
		t.Errorf("event names = %s, %s", events[0].Type, events[1].Type)
	}

	unsubscribe()
	if err := h.orch.Deactivate(ctx, "worker"); err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 {
		t.Errorf("saw %d events after unsubscribe, want 2", len(events))
	}
}

func TestEventHandlerPanicIsContained(t *testing.T) {
	h := newHarness(t)
	h.add("worker")

	h.orch.Subscribe(func(ev Event) {
		panic("observer bug")
	})

	if err := h.orch.Initialize(context.Background(), "worker"); err != nil {
		t.Fatalf("Initialize() error = %v, handler panics must not propagate", err)
	}
}

func TestFailedEventCarriesError(t *testing.T) {
	h := newHarness(t)
	fake := h.add("worker")
	fake.initErr = errors.New("bad start")

	var failed []Event
	h.orch.Subscribe(func(ev Event) {
		if ev.Type == EventFailed {
			failed = append(failed, ev)
		}
	})

	if err := h.orch.Initialize(context.Background(), "worker"); err == nil {
		t.Fatal("Initialize() error = nil, want failure")
	}
	if len(failed) != 1 || failed[0].Plugin != "worker" || failed[0].Err == nil {
		t.Errorf("failed events = %v, want one for worker with an error", failed)
	}
}

func TestConcurrentListingDuringTransitions(t *testing.T) {
	h := newHarness(t)
	h.add("worker")
	h.add("bystander")
	h.initAll()
	ctx := context.Background()

	// One goroutine cycles the lifecycle while another lists and inspects
	// instances, the way a UI thread polls during background activation.
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		defer close(done)
		for i := 0; i < 500; i++ {
			if err := h.orch.Activate(ctx, "worker"); err != nil {
				h.t.Errorf("Activate() error = %v", err)
				return
			}
			if err := h.orch.Deactivate(ctx, "worker"); err != nil {
				h.t.Errorf("Deactivate() error = %v", err)
				return
			}
		}
	}()

	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
			}
			h.registry.ListActive()
			h.registry.ListByType(TypeUtility)
			inst, err := h.registry.Get("worker")
			if err != nil {
				h.t.Errorf("Get() error = %v", err)
				return
			}
			_ = inst.State()
			_ = inst.Err()
			_ = inst.Config()
		}
	}()

	wg.Wait()

	if got := h.state("worker"); got != StateDeactivated {
		t.Errorf("state = %v after cycling, want Deactivated", got)
	}
}

func TestReloadReplacesIncarnation(t *testing.T) {
	catalog := NewCatalog()
	if err := catalog.Register("worker", func() Plugin { return newFake("worker") }); err != nil {
		t.Fatalf("catalog.Register() error = %v", err)
	}

	registry := NewRegistry(newTestSettings(t))
	orch := NewOrchestrator(registry, WithCatalog(catalog))
	ctx := context.Background()

	if _, err := registry.RegisterPlugin(newFake("worker")); err != nil {
		t.Fatal(err)
	}
	if err := orch.Initialize(ctx, "worker"); err != nil {
		t.Fatal(err)
	}
	if err := orch.Activate(ctx, "worker"); err != nil {
		t.Fatal(err)
	}
	before, _ := registry.Get("worker")

	if err := orch.Reload(ctx, "worker", map[string]any{"dpi": 600}); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}

	after, err := registry.Get("worker")
	if err != nil {
		t.Fatalf("Get() after reload error = %v", err)
	}
	if after.UID() == before.UID() {
		t.Error("reload kept the old incarnation UID")
	}
	// Active before, active again after.
	if after.State() != StateActive {
		t.Errorf("state = %v after reload, want Active", after.State())
	}
	if after.Config()["dpi"] != 600 {
		t.Errorf("config[dpi] = %v, want 600", after.Config()["dpi"])
	}
}

func TestReloadInactiveStaysInactive(t *testing.T) {
	catalog := NewCatalog()
	if err := catalog.Register("worker", func() Plugin { return newFake("worker") }); err != nil {
		t.Fatal(err)
	}
	registry := NewRegistry(nil)
	orch := NewOrchestrator(registry, WithCatalog(catalog))
	ctx := context.Background()

	if _, err := registry.RegisterPlugin(newFake("worker")); err != nil {
		t.Fatal(err)
	}
	if err := orch.Initialize(ctx, "worker"); err != nil {
		t.Fatal(err)
	}

	if err := orch.Reload(ctx, "worker", nil); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	inst, _ := registry.Get("worker")
	if inst.State() != StateInitialized {
		t.Errorf("state = %v after reload, want Initialized", inst.State())
	}
}

func TestReloadWithoutFactory(t *testing.T) {
	registry := NewRegistry(nil)
	orch := NewOrchestrator(registry, WithCatalog(NewCatalog()))

	if _, err := registry.RegisterPlugin(newFake("worker")); err != nil {
		t.Fatal(err)
	}
	err := orch.Reload(context.Background(), "worker", nil)
	if !errors.Is(err, ErrFactoryNotFound) {
		t.Errorf("Reload() error = %v, want ErrFactoryNotFound", err)
	}
}
