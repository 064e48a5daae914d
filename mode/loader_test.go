package mode

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeModes(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFileParsesBothGroupForms(t *testing.T) {
	path := writeModes(t, t.TempDir(), "modes.yaml", `
modes:
  - slug: docs
    name: Docs Writer
    role: You write documentation.
    groups:
      - read
      - edit:
          pattern: '\.md$'
          description: Markdown files only
    when_to_use: For documentation work.
    custom_instructions: Keep prose short.
`)

	modes, err := LoadFile(path, SourceGlobal)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(modes) != 1 {
		t.Fatalf("len(modes) = %d, want 1", len(modes))
	}

	m := modes[0]
	if m.Slug != "docs" {
		t.Errorf("Slug = %q, want %q", m.Slug, "docs")
	}
	if m.WhenToUse != "For documentation work." {
		t.Errorf("WhenToUse = %q", m.WhenToUse)
	}
	if m.CustomInstructions != "Keep prose short." {
		t.Errorf("CustomInstructions = %q", m.CustomInstructions)
	}

	read, ok := m.Group(CategoryRead)
	if !ok {
		t.Fatal("read group missing")
	}
	if read.Restricted() {
		t.Error("bare read group should be unrestricted")
	}

	edit, ok := m.Group(CategoryEdit)
	if !ok {
		t.Fatal("edit group missing")
	}
	if edit.Pattern != `\.md$` {
		t.Errorf("edit pattern = %q, want %q", edit.Pattern, `\.md$`)
	}
	if edit.Description != "Markdown files only" {
		t.Errorf("edit description = %q", edit.Description)
	}
}

func TestLoadFileMissingReturnsNil(t *testing.T) {
	modes, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"), SourceGlobal)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if modes != nil {
		t.Errorf("modes = %v, want nil", modes)
	}
}

func TestLoadFileRejectsWholeFileOnBadMode(t *testing.T) {
	path := writeModes(t, t.TempDir(), "modes.yaml", `
modes:
  - slug: good
    name: Good
    role: fine
    groups: [read]
  - slug: bad
    name: Bad
    role: broken
    groups:
      - edit:
          pattern: '[unclosed'
`)

	_, err := LoadFile(path, SourceProject)
	if err == nil {
		t.Fatal("LoadFile should fail when any mode is invalid")
	}
	if !strings.Contains(err.Error(), "invalid pattern") {
		t.Errorf("error = %q, want pattern failure", err.Error())
	}
}

func TestLoadFileRejectsMalformedGroupEntry(t *testing.T) {
	path := writeModes(t, t.TempDir(), "modes.yaml", `
modes:
  - slug: odd
    name: Odd
    role: r
    groups:
      - [read, edit]
`)

	if _, err := LoadFile(path, SourceGlobal); err == nil {
		t.Fatal("LoadFile should reject sequence group entries")
	}
}

func TestBuildRegistryMergesScopes(t *testing.T) {
	dir := t.TempDir()
	globalPath := writeModes(t, dir, "global.yaml", `
modes:
  - slug: code
    name: Custom Code
    role: Overridden code persona.
    groups: [read, edit]
  - slug: docs
    name: Docs
    role: Global docs persona.
    groups: [read]
`)
	projectPath := writeModes(t, dir, "project.yaml", `
modes:
  - slug: docs
    name: Project Docs
    role: Project docs persona.
    groups: [read, browser]
`)

	reg, err := BuildRegistry(globalPath, nil, projectPath)
	if err != nil {
		t.Fatalf("BuildRegistry: %v", err)
	}

	code, ok := reg.Get("code")
	if !ok {
		t.Fatal("code missing")
	}
	if code.Source != SourceGlobal || code.Name != "Custom Code" {
		t.Errorf("code = %q from %q, want Custom Code from global", code.Name, code.Source)
	}

	docs, ok := reg.Get("docs")
	if !ok {
		t.Fatal("docs missing")
	}
	if docs.Source != SourceProject || docs.Name != "Project Docs" {
		t.Errorf("docs = %q from %q, want Project Docs from project", docs.Name, docs.Source)
	}

	// Builtins that were not overridden survive the merge
	if _, ok := reg.Get("ask"); !ok {
		t.Error("builtin ask mode missing from merged registry")
	}
}

func TestBuildRegistryPropagatesScopeErrors(t *testing.T) {
	dir := t.TempDir()
	globalPath := writeModes(t, dir, "global.yaml", "modes: [unclosed\n")

	if _, err := BuildRegistry(globalPath, nil, filepath.Join(dir, "none.yaml")); err == nil {
		t.Fatal("BuildRegistry should fail on malformed global file")
	}
}

func TestWatcherReportsWrites(t *testing.T) {
	dir := t.TempDir()
	path := writeModes(t, dir, "modes.yaml", "modes: []\n")

	w := NewWatcher([]string{path}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := os.WriteFile(path, []byte("modes: []\n# touched\n"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case got, ok := <-w.Events():
		if !ok {
			t.Fatal("events channel closed unexpectedly")
		}
		if got != path {
			t.Errorf("event path = %q, want %q", got, path)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for watcher event")
	}
}

func TestWatcherStopsOnCancel(t *testing.T) {
	dir := t.TempDir()
	path := writeModes(t, dir, "modes.yaml", "modes: []\n")

	w := NewWatcher([]string{path}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	cancel()

	select {
	case _, ok := <-w.Events():
		if ok {
			// A late event may arrive before close; drain until closed.
			for range w.Events() {
			}
		}
	case <-time.After(3 * time.Second):
		t.Fatal("events channel not closed after cancel")
	}
}
