package plugin

import (
	"context"
	"errors"
	"testing"
)

func TestMatchExtension(t *testing.T) {
	exts := []string{".pdf", ".DOCX"}

	tests := []struct {
		path string
		want bool
	}{
		{"report.pdf", true},
		{"REPORT.PDF", true},
		{"letter.docx", true},
		{"notes.txt", false},
		{"no_extension", false},
		{"dir.pdf/file", false},
	}
	for _, tt := range tests {
		if got := MatchExtension(tt.path, exts); got != tt.want {
			t.Errorf("MatchExtension(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestBaseMetadata(t *testing.T) {
	f := newFake("worker", "core")

	md := f.Metadata()
	if md.ID != "worker" || md.Type != TypeUtility || md.Version != "1.0.0" {
		t.Errorf("Metadata() = %+v", md)
	}
	if len(md.Dependencies) != 1 || md.Dependencies[0] != "core" {
		t.Errorf("Dependencies = %v, want [core]", md.Dependencies)
	}
	if md.Enabled {
		t.Error("Enabled = true before activation")
	}

	ctx := context.Background()
	if err := f.Activate(ctx); err != nil {
		t.Fatal(err)
	}
	if !f.Metadata().Enabled {
		t.Error("Enabled = false after Activate")
	}
	if err := f.Deactivate(ctx); err != nil {
		t.Fatal(err)
	}
	if f.Metadata().Enabled {
		t.Error("Enabled = true after Deactivate")
	}
}

func TestBaseSettingsBeforeAttach(t *testing.T) {
	f := newFake("worker")

	if got := f.Setting("anything", "fallback"); got != "fallback" {
		t.Errorf("Setting() = %v before attach, want fallback", got)
	}
	if err := f.SetSetting("anything", 1); !errors.Is(err, ErrNoSettings) {
		t.Errorf("SetSetting() error = %v, want ErrNoSettings", err)
	}
}

func TestBaseSettingsRoundTrip(t *testing.T) {
	store := newTestSettings(t)
	f := newFake("worker")
	f.AttachSettings(store)

	if err := f.SetSetting("dpi", 300); err != nil {
		t.Fatalf("SetSetting() error = %v", err)
	}
	if got := f.Setting("dpi", 0); got != 300 {
		t.Errorf("Setting(dpi) = %v, want 300", got)
	}
	// Settings land in the plugin's own namespace.
	if got := store.PluginSetting("worker", "dpi", 0); got != 300 {
		t.Errorf("store namespace has %v, want 300", got)
	}
}

func TestNotifyProgress(t *testing.T) {
	// Nil channel never blocks or panics.
	NotifyProgress(nil, Progress{Stage: "parsing"})

	ch := make(chan Progress, 1)
	NotifyProgress(ch, Progress{Stage: "parsing", Current: 1, Total: 2})
	// Channel full; event is dropped instead of blocking.
	NotifyProgress(ch, Progress{Stage: "parsing", Current: 2, Total: 2})

	ev := <-ch
	if ev.Current != 1 {
		t.Errorf("received Current = %d, want 1", ev.Current)
	}
	select {
	case extra := <-ch:
		t.Errorf("unexpected extra event %+v", extra)
	default:
	}
}
