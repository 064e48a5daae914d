package mcp

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/modelab/moded/mode"
	"github.com/modelab/moded/policy"
)

const resourceScheme = "mode://"

// ResourceHandler serves the mode catalogue over the resources surface.
// Every registered mode is exposed three ways: the full record, the
// configuration view, and the rendered system prompt.
type ResourceHandler struct {
	registry *mode.Registry
}

// NewResourceHandler creates a resource handler over the registry.
func NewResourceHandler(registry *mode.Registry) *ResourceHandler {
	return &ResourceHandler{registry: registry}
}

// List returns the resource catalogue for the current registry contents,
// sorted by URI.
func (h *ResourceHandler) List() []Resource {
	modes := h.registry.All()
	resources := make([]Resource, 0, len(modes)*3)
	for _, m := range modes {
		base := resourceScheme + m.Slug
		resources = append(resources,
			Resource{
				URI:         base,
				Name:        fmt.Sprintf("%s mode", m.Name),
				Description: fmt.Sprintf("Full definition of the %s mode", m.Name),
				MimeType:    "application/json",
			},
			Resource{
				URI:         base + "/config",
				Name:        fmt.Sprintf("%s mode configuration", m.Name),
				Description: fmt.Sprintf("Configuration view of the %s mode", m.Name),
				MimeType:    "application/json",
			},
			Resource{
				URI:         base + "/system_prompt",
				Name:        fmt.Sprintf("%s mode system prompt", m.Name),
				Description: fmt.Sprintf("Rendered system prompt for the %s mode", m.Name),
				MimeType:    "text/plain",
			},
		)
	}
	sort.Slice(resources, func(i, j int) bool { return resources[i].URI < resources[j].URI })
	return resources
}

// Read resolves a mode:// URI to its content block. Malformed URIs,
// unknown slugs, and unknown subresources are validation failures.
func (h *ResourceHandler) Read(uri string) (ResourceContent, error) {
	slug, sub, err := parseModeURI(uri)
	if err != nil {
		return ResourceContent{}, err
	}

	m, ok := h.registry.Get(slug)
	if !ok {
		return ResourceContent{}, &ValidationError{
			Reason: fmt.Sprintf("unknown mode %q", slug),
			Data:   map[string]any{"available_modes": h.registry.Slugs()},
		}
	}

	switch sub {
	case "":
		text, err := marshalModeJSON(fullModeView(m))
		if err != nil {
			return ResourceContent{}, err
		}
		return ResourceContent{URI: uri, MimeType: "application/json", Text: text}, nil
	case "config":
		text, err := marshalModeJSON(configModeView(m))
		if err != nil {
			return ResourceContent{}, err
		}
		return ResourceContent{URI: uri, MimeType: "application/json", Text: text}, nil
	case "system_prompt":
		return ResourceContent{URI: uri, MimeType: "text/plain", Text: policy.ModePrompt(m)}, nil
	default:
		return ResourceContent{}, Validationf("unknown subresource %q (use config or system_prompt)", sub)
	}
}

// parseModeURI splits a mode:// URI into slug and optional subresource.
func parseModeURI(uri string) (slug, sub string, err error) {
	rest, ok := strings.CutPrefix(uri, resourceScheme)
	if !ok {
		return "", "", Validationf("invalid resource URI %q (expected mode://<slug>)", uri)
	}
	slug, sub, _ = strings.Cut(rest, "/")
	if slug == "" {
		return "", "", Validationf("invalid resource URI %q (missing mode slug)", uri)
	}
	return slug, sub, nil
}

type groupView struct {
	Category    string `json:"category"`
	Pattern     string `json:"pattern,omitempty"`
	Description string `json:"description,omitempty"`
}

func groupViews(m *mode.Mode) []groupView {
	views := make([]groupView, 0, len(m.Groups))
	for _, g := range m.Groups {
		views = append(views, groupView{
			Category:    string(g.Category),
			Pattern:     g.Pattern,
			Description: g.Description,
		})
	}
	return views
}

func fullModeView(m *mode.Mode) map[string]any {
	return map[string]any{
		"slug":                m.Slug,
		"name":                m.Name,
		"role":                m.Role,
		"groups":              groupViews(m),
		"when_to_use":         m.WhenToUse,
		"custom_instructions": m.CustomInstructions,
		"source":              string(m.Source),
	}
}

func configModeView(m *mode.Mode) map[string]any {
	return map[string]any{
		"slug":        m.Slug,
		"name":        m.Name,
		"source":      string(m.Source),
		"groups":      groupViews(m),
		"when_to_use": m.WhenToUse,
	}
}

func marshalModeJSON(view map[string]any) (string, error) {
	data, err := json.MarshalIndent(view, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling mode view: %w", err)
	}
	return string(data), nil
}
