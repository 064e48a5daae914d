// Package task models a stateful unit of work bound to one mode at a time,
// with an append-only message log and a terminal lifecycle.
package task

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// State is a task lifecycle state.
type State string

const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

// transitions defines the lifecycle graph. Terminal states have no
// outgoing edges; nothing ever leaves them.
var transitions = map[State][]State{
	StatePending: {StateRunning},
	StateRunning: {StateCompleted, StateFailed, StateCancelled},
}

// ParseTerminal parses a user-supplied terminal status string.
func ParseTerminal(s string) (State, error) {
	switch State(s) {
	case StateCompleted, StateFailed, StateCancelled:
		return State(s), nil
	default:
		return "", fmt.Errorf("invalid status %q (use completed, failed, or cancelled)", s)
	}
}

// Terminal reports whether the state has no outgoing transitions.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// Message is one entry in a task's append-only log.
type Message struct {
	Role      string         `json:"role"`
	Content   string         `json:"content"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Task is a conversation and lifecycle record bound to one mode slug.
// Tasks are only touched from the request path, so they carry no lock;
// the session manager's table lock serializes access to them.
type Task struct {
	ID          string
	ModeSlug    string
	State       State
	Messages    []Message
	ParentID    string
	ChildIDs    []string
	Metadata    map[string]any
	CreatedAt   time.Time
	CompletedAt *time.Time
}

// New creates a pending task bound to the given mode slug.
func New(modeSlug string) *Task {
	return &Task{
		ID:        uuid.New().String(),
		ModeSlug:  modeSlug,
		State:     StatePending,
		Metadata:  make(map[string]any),
		CreatedAt: time.Now(),
	}
}

// NewChild creates a pending sub-task delegated from a parent task.
func NewChild(parent *Task, modeSlug string) *Task {
	child := New(modeSlug)
	child.ParentID = parent.ID
	parent.ChildIDs = append(parent.ChildIDs, child.ID)
	return child
}

// AppendMessage adds an entry to the task's log.
func (t *Task) AppendMessage(role, content string, metadata map[string]any) {
	t.Messages = append(t.Messages, Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
		Metadata:  metadata,
	})
}

// Transition moves the task to a new state, enforcing the lifecycle
// graph. Completed-at is stamped on the terminal transition.
func (t *Task) Transition(to State) error {
	for _, allowed := range transitions[t.State] {
		if allowed == to {
			t.State = to
			if to.Terminal() {
				now := time.Now()
				t.CompletedAt = &now
			}
			return nil
		}
	}
	return fmt.Errorf("invalid transition %s → %s", t.State, to)
}

// Start moves a pending task to running. Starting an already-running
// task is a no-op so callers don't have to check first.
func (t *Task) Start() error {
	if t.State == StateRunning {
		return nil
	}
	return t.Transition(StateRunning)
}

// Complete drives the task to the given terminal state, passing through
// running if it is still pending so the observed state sequence is always
// a prefix of pending → running → terminal.
func (t *Task) Complete(status State) error {
	if !status.Terminal() {
		return fmt.Errorf("status %q is not terminal", status)
	}
	if t.State == StatePending {
		if err := t.Transition(StateRunning); err != nil {
			return err
		}
	}
	return t.Transition(status)
}

// SwitchMode changes the task's mode in place and appends an audit
// message naming both slugs. Terminal tasks cannot switch.
func (t *Task) SwitchMode(newSlug string) error {
	if t.State.Terminal() {
		return fmt.Errorf("task %s is %s; cannot switch mode", t.ID, t.State)
	}
	oldSlug := t.ModeSlug
	t.ModeSlug = newSlug
	t.AppendMessage("system",
		fmt.Sprintf("Mode switched from %q to %q", oldSlug, newSlug),
		map[string]any{"old_mode": oldSlug, "new_mode": newSlug},
	)
	return nil
}
