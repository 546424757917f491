package settings

import (
	"errors"
	"reflect"
	"testing"
)

func TestGetPath(t *testing.T) {
	data := map[string]any{
		"general": map[string]any{
			"theme": "dark",
			"nested": map[string]any{
				"depth": 3,
			},
		},
		"count": 7,
	}

	tests := []struct {
		name   string
		path   string
		want   any
		wantOK bool
	}{
		{"top level", "count", 7, true},
		{"nested", "general.theme", "dark", true},
		{"deep", "general.nested.depth", 3, true},
		{"whole branch", "general.nested", map[string]any{"depth": 3}, true},
		{"missing key", "general.missing", nil, false},
		{"missing branch", "nothing.here", nil, false},
		{"through scalar", "count.deeper", nil, false},
		{"empty path", "", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := getPath(data, tt.path)
			if ok != tt.wantOK {
				t.Fatalf("getPath(%q) ok = %v, want %v", tt.path, ok, tt.wantOK)
			}
			if ok && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("getPath(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestSetPathCreatesIntermediates(t *testing.T) {
	data := map[string]any{}
	if err := setPath(data, "a.b.c", 42); err != nil {
		t.Fatalf("setPath() error = %v", err)
	}

	got, ok := getPath(data, "a.b.c")
	if !ok || got != 42 {
		t.Errorf("getPath(a.b.c) = %v, %v, want 42, true", got, ok)
	}
}

func TestSetPathScalarIntermediate(t *testing.T) {
	data := map[string]any{"a": map[string]any{"b": "scalar"}}

	err := setPath(data, "a.b.c", 1)
	if !errors.Is(err, ErrInvalidPath) {
		t.Fatalf("setPath() error = %v, want ErrInvalidPath", err)
	}

	// The scalar must be untouched.
	if got, _ := getPath(data, "a.b"); got != "scalar" {
		t.Errorf("a.b = %v, want scalar", got)
	}
}

func TestSetPathOverwritesLeaf(t *testing.T) {
	data := map[string]any{"a": map[string]any{"b": 1}}
	if err := setPath(data, "a.b", 2); err != nil {
		t.Fatalf("setPath() error = %v", err)
	}
	if got, _ := getPath(data, "a.b"); got != 2 {
		t.Errorf("a.b = %v, want 2", got)
	}
}

func TestDeletePath(t *testing.T) {
	data := map[string]any{
		"a": map[string]any{"b": 1, "c": 2},
	}

	if !deletePath(data, "a.b") {
		t.Fatal("deletePath(a.b) = false, want true")
	}
	if _, ok := getPath(data, "a.b"); ok {
		t.Error("a.b still present after delete")
	}
	if got, _ := getPath(data, "a.c"); got != 2 {
		t.Errorf("a.c = %v, want 2 (sibling must survive)", got)
	}
	if deletePath(data, "a.missing") {
		t.Error("deletePath(a.missing) = true, want false")
	}
	if deletePath(data, "") {
		t.Error("deletePath(\"\") = true, want false")
	}
}

func TestDeepMergePreservesDefaults(t *testing.T) {
	dst := map[string]any{
		"a": map[string]any{"x": 1, "y": 2},
	}
	src := map[string]any{
		"a": map[string]any{"y": 99},
	}

	got := deepMerge(dst, src)

	want := map[string]any{
		"a": map[string]any{"x": 1, "y": 99},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("deepMerge() = %v, want %v", got, want)
	}
}

func TestDeepMergeScalarReplacesBranch(t *testing.T) {
	dst := map[string]any{"a": map[string]any{"x": 1}}
	src := map[string]any{"a": "flat"}

	got := deepMerge(dst, src)
	if got["a"] != "flat" {
		t.Errorf("a = %v, want flat", got["a"])
	}
}

func TestDeepMergeDoesNotAliasSource(t *testing.T) {
	src := map[string]any{"a": map[string]any{"x": 1}}
	got := deepMerge(map[string]any{}, src)

	if err := setPath(got, "a.x", 2); err != nil {
		t.Fatalf("setPath() error = %v", err)
	}
	if v, _ := getPath(src, "a.x"); v != 1 {
		t.Errorf("source mutated through merge result: a.x = %v", v)
	}
}
