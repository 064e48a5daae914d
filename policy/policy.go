// Package policy decides whether a task may use a named tool, and whether
// it may touch a given file, under the task's current mode. It is the
// single choke point for those decisions: callers must consult
// ValidateToolUse before invoking any tool on a task's behalf.
package policy

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/modelab/moded/logger"
	"github.com/modelab/moded/mode"
	"github.com/modelab/moded/task"
)

// Decision tags carried back to the client alongside a denial.
const (
	CodeToolRestriction = "TOOL_RESTRICTION_ERROR"
	CodeFileRestriction = "FILE_RESTRICTION_ERROR"
)

// toolCategories maps the tool vocabulary to mode categories. A tool
// missing from this table is denied under every mode.
var toolCategories = map[string]mode.Category{
	"read_file":                  mode.CategoryRead,
	"search_files":               mode.CategoryRead,
	"list_files":                 mode.CategoryRead,
	"list_code_definition_names": mode.CategoryRead,

	"write_to_file":      mode.CategoryEdit,
	"apply_diff":         mode.CategoryEdit,
	"insert_content":     mode.CategoryEdit,
	"search_and_replace": mode.CategoryEdit,

	"browser_action": mode.CategoryBrowser,

	"execute_command": mode.CategoryCommand,

	"use_mcp_tool":        mode.CategoryIntegration,
	"access_mcp_resource": mode.CategoryIntegration,

	"switch_mode": mode.CategoryDelegation,
	"new_task":    mode.CategoryDelegation,
}

// alwaysAllowed tools are available in every mode: asking the user a
// question, reporting completion, and maintaining the plan are never
// policy-restricted.
var alwaysAllowed = map[string]bool{
	"ask_followup_question": true,
	"attempt_completion":    true,
	"update_todo_list":      true,
}

// fileMutatingTools take a target path that must additionally pass the
// mode's edit restriction.
var fileMutatingTools = map[string]bool{
	"write_to_file":      true,
	"apply_diff":         true,
	"insert_content":     true,
	"search_and_replace": true,
}

// Decision is the result of a policy check.
type Decision struct {
	Allowed bool
	Reason  string
	Code    string
}

// Engine answers policy questions against the mode registry.
type Engine struct {
	registry *mode.Registry
	log      *slog.Logger
}

// NewEngine creates a policy engine over the given registry.
func NewEngine(registry *mode.Registry) *Engine {
	return &Engine{
		registry: registry,
		log:      logger.WithComponent("policy"),
	}
}

// CanUseTool reports whether the task's current mode permits the named
// tool. Unknown modes fail open (the registry may have been reloaded out
// from under a long-lived task); unknown tools fail closed.
func (e *Engine) CanUseTool(t *task.Task, toolName string) bool {
	if alwaysAllowed[toolName] {
		return true
	}

	m, ok := e.registry.Get(t.ModeSlug)
	if !ok {
		e.log.Warn("task references unknown mode, allowing tool", "mode", t.ModeSlug, "tool", toolName)
		return true
	}

	cat, ok := toolCategories[toolName]
	if !ok {
		return false
	}
	return m.HasCategory(cat)
}

// CanEditFile reports whether the task's mode permits editing the given
// path: the edit category must be enabled and, if restricted, the path
// must match the restriction pattern.
func (e *Engine) CanEditFile(t *task.Task, path string) bool {
	m, ok := e.registry.Get(t.ModeSlug)
	if !ok {
		e.log.Warn("task references unknown mode, allowing edit", "mode", t.ModeSlug, "path", path)
		return true
	}

	g, ok := m.Group(mode.CategoryEdit)
	if !ok {
		return false
	}
	return g.Matches(path)
}

// ValidateToolUse applies CanUseTool and, for file-mutating tools with a
// path argument, CanEditFile. It returns an allow decision or a denial
// carrying a human-readable reason and a restriction tag.
func (e *Engine) ValidateToolUse(t *task.Task, toolName string, args map[string]any) Decision {
	if !e.CanUseTool(t, toolName) {
		return Decision{
			Allowed: false,
			Reason:  fmt.Sprintf("Tool %q is not allowed in %s mode", toolName, e.displayName(t.ModeSlug)),
			Code:    CodeToolRestriction,
		}
	}

	if fileMutatingTools[toolName] {
		if path := pathArg(args); path != "" && !e.CanEditFile(t, path) {
			return Decision{
				Allowed: false,
				Reason: fmt.Sprintf("File %q cannot be edited in %s mode (restricted to pattern %q)",
					path, e.displayName(t.ModeSlug), e.editPattern(t.ModeSlug)),
				Code: CodeFileRestriction,
			}
		}
	}

	return Decision{Allowed: true}
}

// SystemPrompt renders the effective system prompt for the task's mode.
// Returns the empty string if the mode is no longer registered.
func (e *Engine) SystemPrompt(t *task.Task) string {
	m, ok := e.registry.Get(t.ModeSlug)
	if !ok {
		return ""
	}
	return ModePrompt(m)
}

// ModePrompt renders a mode's system prompt: role text, then custom
// instructions and usage guidance when present, then the enabled
// categories with their restrictions.
func ModePrompt(m *mode.Mode) string {
	var b strings.Builder
	b.WriteString(m.Role)

	if m.CustomInstructions != "" {
		b.WriteString("\n\n## Custom Instructions\n\n")
		b.WriteString(m.CustomInstructions)
	}
	if m.WhenToUse != "" {
		b.WriteString("\n\n## When To Use\n\n")
		b.WriteString(m.WhenToUse)
	}

	b.WriteString("\n\n## Enabled Tool Categories\n")
	for _, g := range m.Groups {
		b.WriteString("\n- ")
		b.WriteString(string(g.Category))
		if g.Restricted() {
			fmt.Fprintf(&b, " (restricted to %q", g.Pattern)
			if g.Description != "" {
				fmt.Fprintf(&b, ": %s", g.Description)
			}
			b.WriteString(")")
		}
	}
	b.WriteString("\n")

	return b.String()
}

// displayName resolves a slug to the mode's display name, falling back to
// the slug when the mode is unknown.
func (e *Engine) displayName(slug string) string {
	if m, ok := e.registry.Get(slug); ok {
		return m.Name
	}
	return slug
}

// editPattern returns the mode's edit restriction pattern, if any.
func (e *Engine) editPattern(slug string) string {
	m, ok := e.registry.Get(slug)
	if !ok {
		return ""
	}
	if g, ok := m.Group(mode.CategoryEdit); ok {
		return g.Pattern
	}
	return ""
}

// pathArg extracts the file path from tool arguments. Tools use either
// "path" or "file_path" depending on vintage.
func pathArg(args map[string]any) string {
	if p, ok := args["path"].(string); ok {
		return p
	}
	if p, ok := args["file_path"].(string); ok {
		return p
	}
	return ""
}
