package mode

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// modesDoc is the top-level shape of a modes.yaml file.
type modesDoc struct {
	Modes []modeEntry `yaml:"modes"`
}

// modeEntry mirrors Definition but accepts the compact group syntax.
type modeEntry struct {
	Slug               string       `yaml:"slug"`
	Name               string       `yaml:"name"`
	Role               string       `yaml:"role"`
	Groups             []groupEntry `yaml:"groups"`
	WhenToUse          string       `yaml:"when_to_use"`
	CustomInstructions string       `yaml:"custom_instructions"`
}

// groupEntry accepts either a bare category name or a single-key mapping
// from category to restriction options:
//
//	groups:
//	  - read
//	  - edit:
//	      pattern: '\.md$'
//	      description: Markdown files only
type groupEntry struct {
	def GroupDef
}

// UnmarshalYAML implements yaml.Unmarshaler for groupEntry.
func (g *groupEntry) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var cat string
		if err := value.Decode(&cat); err != nil {
			return err
		}
		g.def = GroupDef{Category: cat}
		return nil
	case yaml.MappingNode:
		if len(value.Content) != 2 {
			return fmt.Errorf("line %d: group entry must have exactly one category key", value.Line)
		}
		var cat string
		if err := value.Content[0].Decode(&cat); err != nil {
			return err
		}
		var opts struct {
			Pattern     string `yaml:"pattern"`
			Description string `yaml:"description"`
		}
		if err := value.Content[1].Decode(&opts); err != nil {
			return err
		}
		g.def = GroupDef{Category: cat, Pattern: opts.Pattern, Description: opts.Description}
		return nil
	default:
		return fmt.Errorf("line %d: group entry must be a category name or a single-key mapping", value.Line)
	}
}

// LoadFile reads and validates a modes.yaml file, tagging each mode with
// the given source. Returns nil, nil if the file does not exist. Any
// invalid mode rejects the whole file so a half-loaded scope never merges.
func LoadFile(path string, source Source) ([]*Mode, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read modes file %s: %w", path, err)
	}

	var doc modesDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse modes file %s: %w", path, err)
	}

	modes := make([]*Mode, 0, len(doc.Modes))
	for i, entry := range doc.Modes {
		def := Definition{
			Slug:               entry.Slug,
			Name:               entry.Name,
			Role:               entry.Role,
			WhenToUse:          entry.WhenToUse,
			CustomInstructions: entry.CustomInstructions,
		}
		for _, ge := range entry.Groups {
			def.Groups = append(def.Groups, ge.def)
		}

		m, err := New(def, source)
		if err != nil {
			return nil, fmt.Errorf("%s: mode %d: %w", path, i, err)
		}
		modes = append(modes, m)
	}

	return modes, nil
}

// LoadLayers assembles the precedence-ordered mode layers: builtin
// defaults, then the global file and any extra global files, then the
// project file. Later layers override earlier ones when merged.
func LoadLayers(globalPath string, extraGlobal []string, projectPath string) ([][]*Mode, error) {
	layers := [][]*Mode{Builtins()}

	global, err := LoadFile(globalPath, SourceGlobal)
	if err != nil {
		return nil, err
	}
	layers = append(layers, global)

	for _, path := range extraGlobal {
		extra, err := LoadFile(path, SourceGlobal)
		if err != nil {
			return nil, err
		}
		layers = append(layers, extra)
	}

	project, err := LoadFile(projectPath, SourceProject)
	if err != nil {
		return nil, err
	}
	layers = append(layers, project)

	return layers, nil
}

// BuildRegistry loads all scopes and merges them into a fresh registry.
func BuildRegistry(globalPath string, extraGlobal []string, projectPath string) (*Registry, error) {
	layers, err := LoadLayers(globalPath, extraGlobal, projectPath)
	if err != nil {
		return nil, err
	}
	return NewRegistry(Merge(layers...)), nil
}
