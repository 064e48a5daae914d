package mode

import (
	"strings"
	"testing"
)

func validDef() Definition {
	return Definition{
		Slug: "docs",
		Name: "Docs Writer",
		Role: "You write documentation.",
		Groups: []GroupDef{
			{Category: "read"},
			{Category: "edit", Pattern: `\.md$`, Description: "Markdown files only"},
		},
	}
}

func TestNewValidMode(t *testing.T) {
	m, err := New(validDef(), SourceGlobal)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if m.Slug != "docs" {
		t.Errorf("Slug = %q, want %q", m.Slug, "docs")
	}
	if m.Source != SourceGlobal {
		t.Errorf("Source = %q, want %q", m.Source, SourceGlobal)
	}
	if len(m.Groups) != 2 {
		t.Fatalf("len(Groups) = %d, want 2", len(m.Groups))
	}
	if !m.HasCategory(CategoryEdit) {
		t.Error("mode should enable edit")
	}
	if m.HasCategory(CategoryCommand) {
		t.Error("mode should not enable command")
	}
}

func TestNewRejectsInvalidDefinitions(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Definition)
		errPart string
	}{
		{
			name:    "empty slug",
			mutate:  func(d *Definition) { d.Slug = "" },
			errPart: "slug is required",
		},
		{
			name:    "uppercase slug",
			mutate:  func(d *Definition) { d.Slug = "Docs" },
			errPart: "invalid mode slug",
		},
		{
			name:    "slug with spaces",
			mutate:  func(d *Definition) { d.Slug = "my docs" },
			errPart: "invalid mode slug",
		},
		{
			name:    "slug starting with hyphen",
			mutate:  func(d *Definition) { d.Slug = "-docs" },
			errPart: "invalid mode slug",
		},
		{
			name:    "missing name",
			mutate:  func(d *Definition) { d.Name = "" },
			errPart: "name is required",
		},
		{
			name:    "missing role",
			mutate:  func(d *Definition) { d.Role = "" },
			errPart: "role is required",
		},
		{
			name: "unknown category",
			mutate: func(d *Definition) {
				d.Groups = append(d.Groups, GroupDef{Category: "superpowers"})
			},
			errPart: "unknown category",
		},
		{
			name: "duplicate category",
			mutate: func(d *Definition) {
				d.Groups = append(d.Groups, GroupDef{Category: "read"})
			},
			errPart: "duplicate category",
		},
		{
			name: "uncompilable pattern",
			mutate: func(d *Definition) {
				d.Groups[1].Pattern = `[unclosed`
			},
			errPart: "invalid pattern",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := validDef()
			tt.mutate(&def)
			_, err := New(def, SourceGlobal)
			if err == nil {
				t.Fatal("New should fail")
			}
			if !strings.Contains(err.Error(), tt.errPart) {
				t.Errorf("error = %q, want to contain %q", err.Error(), tt.errPart)
			}
		})
	}
}

func TestGroupMatchesSearchSemantics(t *testing.T) {
	m, err := New(validDef(), SourceGlobal)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	g, ok := m.Group(CategoryEdit)
	if !ok {
		t.Fatal("edit group missing")
	}
	if !g.Restricted() {
		t.Fatal("edit group should be restricted")
	}

	tests := []struct {
		path string
		want bool
	}{
		{"README.md", true},
		{"docs/guide.md", true},
		{"app.py", false},
		{"md/app.go", false}, // pattern is anchored to the suffix, not a substring of the dir
	}
	for _, tt := range tests {
		if got := g.Matches(tt.path); got != tt.want {
			t.Errorf("Matches(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestUnrestrictedGroupMatchesEverything(t *testing.T) {
	m, err := New(Definition{
		Slug: "free", Name: "Free", Role: "r",
		Groups: []GroupDef{{Category: "edit"}},
	}, SourceBuiltin)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	g, _ := m.Group(CategoryEdit)
	if g.Restricted() {
		t.Error("group without pattern should not be restricted")
	}
	if !g.Matches("anything/at/all.py") {
		t.Error("unrestricted group should match any path")
	}
}

func TestBuiltinsAreValidAndDistinct(t *testing.T) {
	modes := Builtins()
	if len(modes) == 0 {
		t.Fatal("no builtin modes")
	}

	seen := make(map[string]bool)
	for _, m := range modes {
		if seen[m.Slug] {
			t.Errorf("duplicate builtin slug %q", m.Slug)
		}
		seen[m.Slug] = true
		if m.Source != SourceBuiltin {
			t.Errorf("builtin %q has source %q", m.Slug, m.Source)
		}
	}

	for _, slug := range []string{"code", "architect", "ask", "debug", "orchestrator"} {
		if !seen[slug] {
			t.Errorf("missing builtin mode %q", slug)
		}
	}
}

func TestArchitectEditRestrictedToMarkdown(t *testing.T) {
	var architect *Mode
	for _, m := range Builtins() {
		if m.Slug == "architect" {
			architect = m
		}
	}
	if architect == nil {
		t.Fatal("architect builtin missing")
	}

	g, ok := architect.Group(CategoryEdit)
	if !ok {
		t.Fatal("architect should enable edit")
	}
	if !g.Matches("PLAN.md") {
		t.Error("architect should be able to edit markdown")
	}
	if g.Matches("main.go") {
		t.Error("architect should not be able to edit Go files")
	}
}
