package mcp

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/modelab/moded/logger"
	"github.com/modelab/moded/mode"
	"github.com/modelab/moded/policy"
	"github.com/modelab/moded/session"
	"github.com/modelab/moded/task"
)

// ToolHandler implements the seven task-and-mode tools. Tools that act
// on a task resolve it through the session manager; tools that change
// policy-relevant state go through the policy engine before acting.
type ToolHandler struct {
	registry *mode.Registry
	sessions *session.Manager
	engine   *policy.Engine
	log      *slog.Logger
}

// NewToolHandler creates a tool handler over the shared core components.
func NewToolHandler(registry *mode.Registry, sessions *session.Manager, engine *policy.Engine) *ToolHandler {
	return &ToolHandler{
		registry: registry,
		sessions: sessions,
		engine:   engine,
		log:      logger.WithComponent("tools"),
	}
}

// Definitions returns the tool catalogue for tools/list.
func (h *ToolHandler) Definitions() []ToolDefinition {
	return []ToolDefinition{
		{
			Name:        "list_modes",
			Description: "List all registered modes, optionally filtered by source",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"source": {
						Type:        "string",
						Description: "Only return modes from this source",
						Enum:        []string{"builtin", "global", "project"},
					},
				},
			},
		},
		{
			Name:        "get_mode_info",
			Description: "Describe one mode, optionally with its rendered system prompt",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"mode_slug":             {Type: "string", Description: "Slug of the mode to describe"},
					"include_system_prompt": {Type: "boolean", Description: "Include the rendered system prompt"},
				},
				Required: []string{"mode_slug"},
			},
		},
		{
			Name:        "create_task",
			Description: "Create a task in the given mode and bind it to a new session",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"mode_slug":         {Type: "string", Description: "Mode the task starts in"},
					"message":           {Type: "string", Description: "Optional initial user message"},
					"parent_session_id": {Type: "string", Description: "Create the task as a child of this session's task"},
				},
				Required: []string{"mode_slug"},
			},
		},
		{
			Name:        "switch_mode",
			Description: "Switch a task to a different mode, recording an audit message",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"session_id":    {Type: "string", Description: "Session owning the task"},
					"new_mode_slug": {Type: "string", Description: "Slug of the mode to switch to"},
				},
				Required: []string{"session_id", "new_mode_slug"},
			},
		},
		{
			Name:        "get_task_info",
			Description: "Describe a task's state, optionally with messages and hierarchy",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"session_id":        {Type: "string", Description: "Session owning the task"},
					"task_id":           {Type: "string", Description: "Task ID, as an alternative to session_id"},
					"include_messages":  {Type: "boolean", Description: "Include the task's message log"},
					"include_hierarchy": {Type: "boolean", Description: "Include parent and child task IDs"},
				},
			},
		},
		{
			Name:        "validate_tool_use",
			Description: "Check whether the task's current mode permits a tool use",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"session_id": {Type: "string", Description: "Session owning the task"},
					"tool_name":  {Type: "string", Description: "Name of the tool to check"},
					"file_path":  {Type: "string", Description: "Target path, for file-mutating tools"},
				},
				Required: []string{"session_id", "tool_name"},
			},
		},
		{
			Name:        "complete_task",
			Description: "Move a task to a terminal state",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"session_id": {Type: "string", Description: "Session owning the task"},
					"status":     {Type: "string", Description: "Terminal state", Enum: []string{"completed", "failed", "cancelled"}},
				},
				Required: []string{"session_id", "status"},
			},
		},
	}
}

// Call dispatches a tool invocation by name. Unknown names are
// validation failures carrying the available tool list.
func (h *ToolHandler) Call(name string, args map[string]any) (*ToolCallResult, error) {
	if args == nil {
		args = map[string]any{}
	}

	switch name {
	case "list_modes":
		return h.listModes(args)
	case "get_mode_info":
		return h.getModeInfo(args)
	case "create_task":
		return h.createTask(args)
	case "switch_mode":
		return h.switchMode(args)
	case "get_task_info":
		return h.getTaskInfo(args)
	case "validate_tool_use":
		return h.validateToolUse(args)
	case "complete_task":
		return h.completeTask(args)
	default:
		return nil, &ValidationError{
			Reason: fmt.Sprintf("unknown tool %q", name),
			Data:   map[string]any{"available_tools": h.toolNames()},
		}
	}
}

func (h *ToolHandler) toolNames() []string {
	defs := h.Definitions()
	names := make([]string, len(defs))
	for i, d := range defs {
		names[i] = d.Name
	}
	return names
}

func (h *ToolHandler) listModes(args map[string]any) (*ToolCallResult, error) {
	var modes []*mode.Mode
	if src, ok, err := optionalString(args, "source"); err != nil {
		return nil, err
	} else if ok {
		switch mode.Source(src) {
		case mode.SourceBuiltin, mode.SourceGlobal, mode.SourceProject:
		default:
			return nil, Validationf("unknown source %q (use builtin, global, or project)", src)
		}
		modes = h.registry.BySource(mode.Source(src))
	} else {
		modes = h.registry.All()
	}

	summaries := make([]map[string]any, 0, len(modes))
	for _, m := range modes {
		summaries = append(summaries, map[string]any{
			"slug":        m.Slug,
			"name":        m.Name,
			"source":      string(m.Source),
			"when_to_use": m.WhenToUse,
		})
	}
	return textResult(map[string]any{"modes": summaries, "count": len(summaries)})
}

func (h *ToolHandler) getModeInfo(args map[string]any) (*ToolCallResult, error) {
	slug, err := requireString(args, "mode_slug")
	if err != nil {
		return nil, err
	}
	m, err := h.lookupMode(slug)
	if err != nil {
		return nil, err
	}

	info := fullModeView(m)
	if include, _, err := optionalBool(args, "include_system_prompt"); err != nil {
		return nil, err
	} else if include {
		info["system_prompt"] = policy.ModePrompt(m)
	}
	return textResult(info)
}

func (h *ToolHandler) createTask(args map[string]any) (*ToolCallResult, error) {
	slug, err := requireString(args, "mode_slug")
	if err != nil {
		return nil, err
	}
	// Validate the mode before creating anything: a bad slug must leave
	// no task behind.
	if _, err := h.lookupMode(slug); err != nil {
		return nil, err
	}

	var t *task.Task
	if parentID, ok, err := optionalString(args, "parent_session_id"); err != nil {
		return nil, err
	} else if ok {
		parent, err := h.resolveSession(parentID)
		if err != nil {
			return nil, err
		}
		if dec := h.engine.ValidateToolUse(parent.Task, "new_task", nil); !dec.Allowed {
			return nil, restrictionError(dec)
		}
		t = task.NewChild(parent.Task, slug)
	} else {
		t = task.New(slug)
	}

	if msg, ok, err := optionalString(args, "message"); err != nil {
		return nil, err
	} else if ok {
		t.AppendMessage("user", msg, nil)
	}

	sess, err := h.sessions.Create(t)
	if err != nil {
		return nil, Validationf("creating session: %v", err)
	}

	h.log.Info("task created", "taskID", t.ID, "sessionID", sess.ID, "mode", slug)
	return textResult(map[string]any{
		"session_id": sess.ID,
		"task_id":    t.ID,
		"mode_slug":  t.ModeSlug,
		"state":      string(t.State),
	})
}

func (h *ToolHandler) switchMode(args map[string]any) (*ToolCallResult, error) {
	sessionID, err := requireString(args, "session_id")
	if err != nil {
		return nil, err
	}
	newSlug, err := requireString(args, "new_mode_slug")
	if err != nil {
		return nil, err
	}

	sess, err := h.resolveSession(sessionID)
	if err != nil {
		return nil, err
	}
	if _, err := h.lookupMode(newSlug); err != nil {
		return nil, err
	}
	if dec := h.engine.ValidateToolUse(sess.Task, "switch_mode", nil); !dec.Allowed {
		return nil, restrictionError(dec)
	}

	previous := sess.Task.ModeSlug
	if err := sess.Task.SwitchMode(newSlug); err != nil {
		return nil, Validationf("%v", err)
	}

	h.log.Info("mode switched", "taskID", sess.Task.ID, "from", previous, "to", newSlug)
	return textResult(map[string]any{
		"task_id":       sess.Task.ID,
		"previous_mode": previous,
		"current_mode":  sess.Task.ModeSlug,
		"state":         string(sess.Task.State),
	})
}

func (h *ToolHandler) getTaskInfo(args map[string]any) (*ToolCallResult, error) {
	var sess *session.Session
	if sessionID, ok, err := optionalString(args, "session_id"); err != nil {
		return nil, err
	} else if ok {
		sess, err = h.resolveSession(sessionID)
		if err != nil {
			return nil, err
		}
	} else if taskID, ok, err := optionalString(args, "task_id"); err != nil {
		return nil, err
	} else if ok {
		found, ok := h.sessions.GetByTask(taskID)
		if !ok {
			return nil, &Error{Code: CodeTaskNotFound, Message: fmt.Sprintf("task %s not found", taskID)}
		}
		sess = found
	} else {
		return nil, Validationf("missing required argument %q", "session_id")
	}

	t := sess.Task
	info := map[string]any{
		"task_id":       t.ID,
		"session_id":    sess.ID,
		"mode_slug":     t.ModeSlug,
		"state":         string(t.State),
		"created_at":    t.CreatedAt.Format(time.RFC3339),
		"message_count": len(t.Messages),
	}
	if t.CompletedAt != nil {
		info["completed_at"] = t.CompletedAt.Format(time.RFC3339)
	}

	if include, _, err := optionalBool(args, "include_messages"); err != nil {
		return nil, err
	} else if include {
		info["messages"] = t.Messages
	}
	if include, _, err := optionalBool(args, "include_hierarchy"); err != nil {
		return nil, err
	} else if include {
		hierarchy := map[string]any{"child_task_ids": t.ChildIDs}
		if t.ParentID != "" {
			hierarchy["parent_task_id"] = t.ParentID
		}
		info["hierarchy"] = hierarchy
	}
	return textResult(info)
}

func (h *ToolHandler) validateToolUse(args map[string]any) (*ToolCallResult, error) {
	sessionID, err := requireString(args, "session_id")
	if err != nil {
		return nil, err
	}
	toolName, err := requireString(args, "tool_name")
	if err != nil {
		return nil, err
	}

	sess, err := h.resolveSession(sessionID)
	if err != nil {
		return nil, err
	}

	toolArgs := map[string]any{}
	if path, ok, err := optionalString(args, "file_path"); err != nil {
		return nil, err
	} else if ok {
		toolArgs["path"] = path
	}

	dec := h.engine.ValidateToolUse(sess.Task, toolName, toolArgs)
	result := map[string]any{
		"tool_name": toolName,
		"allowed":   dec.Allowed,
	}
	if !dec.Allowed {
		result["reason"] = dec.Reason
		result["code"] = dec.Code
	}
	return textResult(result)
}

func (h *ToolHandler) completeTask(args map[string]any) (*ToolCallResult, error) {
	sessionID, err := requireString(args, "session_id")
	if err != nil {
		return nil, err
	}
	status, err := requireString(args, "status")
	if err != nil {
		return nil, err
	}

	state, err := task.ParseTerminal(status)
	if err != nil {
		return nil, Validationf("%v", err)
	}

	sess, err := h.resolveSession(sessionID)
	if err != nil {
		return nil, err
	}
	if err := sess.Task.Complete(state); err != nil {
		return nil, Validationf("%v", err)
	}

	h.log.Info("task completed", "taskID", sess.Task.ID, "status", status)
	result := map[string]any{
		"task_id": sess.Task.ID,
		"state":   string(sess.Task.State),
	}
	if sess.Task.CompletedAt != nil {
		result["completed_at"] = sess.Task.CompletedAt.Format(time.RFC3339)
	}
	return textResult(result)
}

// lookupMode resolves a slug or fails with MODE_NOT_FOUND carrying the
// available slugs.
func (h *ToolHandler) lookupMode(slug string) (*mode.Mode, error) {
	m, ok := h.registry.Get(slug)
	if !ok {
		return nil, &Error{
			Code:    CodeModeNotFound,
			Message: fmt.Sprintf("mode %q not found", slug),
			Data:    map[string]any{"available_modes": h.registry.Slugs()},
		}
	}
	return m, nil
}

// resolveSession resolves a session ID, distinguishing an unknown ID
// from one that expired and was evicted by this very lookup.
func (h *ToolHandler) resolveSession(id string) (*session.Session, error) {
	sess, res := h.sessions.Lookup(id)
	switch res {
	case session.Found:
		return sess, nil
	case session.ExpiredOnLookup:
		return nil, &Error{Code: CodeSessionExpired, Message: fmt.Sprintf("session %s has expired", id)}
	default:
		return nil, Validationf("unknown session %q", id)
	}
}

// restrictionError converts a policy denial to its wire error.
func restrictionError(dec policy.Decision) *Error {
	code := CodeToolRestriction
	if dec.Code == policy.CodeFileRestriction {
		code = CodeFileRestriction
	}
	return &Error{Code: code, Message: dec.Reason}
}

// textResult wraps a payload as a single JSON text content block.
func textResult(v any) (*ToolCallResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling tool result: %w", err)
	}
	return &ToolCallResult{Content: []ContentItem{{Type: "text", Text: string(data)}}}, nil
}

// requireString extracts a required string argument.
func requireString(args map[string]any, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", Validationf("missing required argument %q", key)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", Validationf("argument %q must be a non-empty string", key)
	}
	return s, nil
}

// optionalString extracts an optional string argument. The second return
// reports presence.
func optionalString(args map[string]any, key string) (string, bool, error) {
	v, ok := args[key]
	if !ok {
		return "", false, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", false, Validationf("argument %q must be a string", key)
	}
	return s, true, nil
}

// optionalBool extracts an optional boolean argument.
func optionalBool(args map[string]any, key string) (bool, bool, error) {
	v, ok := args[key]
	if !ok {
		return false, false, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, false, Validationf("argument %q must be a boolean", key)
	}
	return b, true, nil
}
