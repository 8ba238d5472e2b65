package loader

import (
	"errors"
	"strings"
	"testing"
)

func TestYAMLLoader_Load(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/inkwell.yaml", `
editor:
  undoLevels: 25
rtc:
  script: collab.lua
  callTimeout: 2s
plugins:
  enabled: [lists]
`)

	config, err := NewYAMLLoaderWithFS(memfs, "/inkwell.yaml").Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	checks := map[string]any{
		"editor.undoLevels": int64(25),
		"rtc.script":        "collab.lua",
		"rtc.callTimeout":   "2s",
	}
	for path, want := range checks {
		if got, ok := Lookup(config, path); !ok || got != want {
			t.Errorf("%s = %v (%T), want %v", path, got, got, want)
		}
	}

	enabled, _ := Lookup(config, "plugins.enabled")
	if list, ok := enabled.([]any); !ok || len(list) != 1 || list[0] != "lists" {
		t.Errorf("plugins.enabled = %#v", enabled)
	}
}

func TestYAMLLoader_Empty(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/empty.yml", "# nothing here\n")

	config, err := NewYAMLLoaderWithFS(memfs, "/empty.yml").Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if config == nil || len(config) != 0 {
		t.Errorf("Load() = %v, want empty map", config)
	}
}

func TestYAMLLoader_Invalid(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/bad.yaml", "editor: [unclosed\n")

	_, err := NewYAMLLoaderWithFS(memfs, "/bad.yaml").Load()
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected *ParseError, got %T (%v)", err, err)
	}
	if parseErr.Path != "/bad.yaml" {
		t.Errorf("Path = %q", parseErr.Path)
	}
}

func TestYAMLLoader_NonStringKey(t *testing.T) {
	_, err := (&YAMLLoader{}).LoadFromReader(strings.NewReader("editor:\n  1: one\n"))
	if err == nil {
		t.Fatal("expected error for non-string mapping key")
	}
}
