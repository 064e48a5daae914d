// Package mode defines persona modes: named bundles of role text, a
// tool-category allow-list, and optional file-edit restrictions.
//
// Modes come from three scopes — builtin defaults, the global modes.yaml,
// and a project-local .moded/modes.yaml — merged by slug with narrower
// scopes winning. The merged result lives in a Registry that is only ever
// replaced wholesale, never mutated in place.
package mode

import (
	"fmt"
	"regexp"
)

// Category is one of the fixed tool groupings a mode may enable.
type Category string

const (
	CategoryRead        Category = "read"
	CategoryEdit        Category = "edit"
	CategoryBrowser     Category = "browser"
	CategoryCommand     Category = "command"
	CategoryIntegration Category = "integration"
	CategoryDelegation  Category = "delegation"
)

// ValidCategories is the closed set of recognized category identifiers.
var ValidCategories = map[Category]bool{
	CategoryRead:        true,
	CategoryEdit:        true,
	CategoryBrowser:     true,
	CategoryCommand:     true,
	CategoryIntegration: true,
	CategoryDelegation:  true,
}

// Source identifies where a mode definition came from.
type Source string

const (
	SourceBuiltin Source = "builtin"
	SourceGlobal  Source = "global"
	SourceProject Source = "project"
)

// validSlugRegex matches allowed mode slugs: lowercase alphanumerics
// with interior hyphens, starting with a letter or digit.
var validSlugRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// GroupDef is the raw, unvalidated form of a group entry as it appears
// in a mode definition file.
type GroupDef struct {
	Category    string `yaml:"category"`
	Pattern     string `yaml:"pattern,omitempty"`
	Description string `yaml:"description,omitempty"`
}

// Definition is the raw, unvalidated form of a mode. New turns a
// Definition into a Mode, compiling patterns and enforcing invariants.
type Definition struct {
	Slug               string     `yaml:"slug"`
	Name               string     `yaml:"name"`
	Role               string     `yaml:"role"`
	Groups             []GroupDef `yaml:"groups"`
	WhenToUse          string     `yaml:"when_to_use,omitempty"`
	CustomInstructions string     `yaml:"custom_instructions,omitempty"`
}

// Group is a validated category entry, with its file-match pattern
// compiled at construction time.
type Group struct {
	Category    Category
	Pattern     string
	Description string

	re *regexp.Regexp
}

// Restricted reports whether this group carries a file-match pattern.
func (g *Group) Restricted() bool {
	return g.re != nil
}

// Matches reports whether the given path satisfies the group's pattern.
// Matching uses search semantics: the pattern may match anywhere in the
// path. A group without a pattern matches every path.
func (g *Group) Matches(path string) bool {
	if g.re == nil {
		return true
	}
	return g.re.MatchString(path)
}

// Mode is a validated persona definition.
type Mode struct {
	Slug               string
	Name               string
	Role               string
	Groups             []Group
	WhenToUse          string
	CustomInstructions string
	Source             Source
}

// New validates a Definition and compiles its patterns. The whole mode is
// rejected on the first invalid field — a mode with a bad pattern never
// enters a registry.
func New(def Definition, source Source) (*Mode, error) {
	if def.Slug == "" {
		return nil, fmt.Errorf("mode slug is required")
	}
	if !validSlugRegex.MatchString(def.Slug) {
		return nil, fmt.Errorf("invalid mode slug %q (use lowercase letters, digits, hyphens)", def.Slug)
	}
	if def.Name == "" {
		return nil, fmt.Errorf("mode %q: name is required", def.Slug)
	}
	if def.Role == "" {
		return nil, fmt.Errorf("mode %q: role is required", def.Slug)
	}

	seen := make(map[Category]bool, len(def.Groups))
	groups := make([]Group, 0, len(def.Groups))
	for _, gd := range def.Groups {
		cat := Category(gd.Category)
		if !ValidCategories[cat] {
			return nil, fmt.Errorf("mode %q: unknown category %q", def.Slug, gd.Category)
		}
		if seen[cat] {
			return nil, fmt.Errorf("mode %q: duplicate category %q", def.Slug, gd.Category)
		}
		seen[cat] = true

		g := Group{
			Category:    cat,
			Pattern:     gd.Pattern,
			Description: gd.Description,
		}
		if gd.Pattern != "" {
			re, err := regexp.Compile(gd.Pattern)
			if err != nil {
				return nil, fmt.Errorf("mode %q: category %q: invalid pattern %q: %w", def.Slug, gd.Category, gd.Pattern, err)
			}
			g.re = re
		}
		groups = append(groups, g)
	}

	return &Mode{
		Slug:               def.Slug,
		Name:               def.Name,
		Role:               def.Role,
		Groups:             groups,
		WhenToUse:          def.WhenToUse,
		CustomInstructions: def.CustomInstructions,
		Source:             source,
	}, nil
}

// Group returns the group entry for the given category, if enabled.
func (m *Mode) Group(cat Category) (*Group, bool) {
	for i := range m.Groups {
		if m.Groups[i].Category == cat {
			return &m.Groups[i], true
		}
	}
	return nil, false
}

// HasCategory reports whether the mode enables the given category.
func (m *Mode) HasCategory(cat Category) bool {
	_, ok := m.Group(cat)
	return ok
}
