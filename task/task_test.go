package task

import (
	"strings"
	"testing"
)

func TestNewTaskIsPending(t *testing.T) {
	tk := New("code")
	if tk.State != StatePending {
		t.Errorf("State = %q, want %q", tk.State, StatePending)
	}
	if tk.ID == "" {
		t.Error("ID should be set")
	}
	if tk.ModeSlug != "code" {
		t.Errorf("ModeSlug = %q, want %q", tk.ModeSlug, "code")
	}
	if tk.CompletedAt != nil {
		t.Error("CompletedAt should be nil before terminal transition")
	}
}

func TestLifecycleHappyPath(t *testing.T) {
	tk := New("code")
	if err := tk.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if tk.State != StateRunning {
		t.Errorf("State = %q, want running", tk.State)
	}

	// Start again is a no-op
	if err := tk.Start(); err != nil {
		t.Errorf("second Start: %v", err)
	}

	if err := tk.Complete(StateCompleted); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if tk.State != StateCompleted {
		t.Errorf("State = %q, want completed", tk.State)
	}
	if tk.CompletedAt == nil {
		t.Error("CompletedAt should be stamped on terminal transition")
	}
}

func TestCompleteFromPendingPassesThroughRunning(t *testing.T) {
	tk := New("code")
	if err := tk.Complete(StateFailed); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if tk.State != StateFailed {
		t.Errorf("State = %q, want failed", tk.State)
	}
}

func TestTerminalStatesAreFinal(t *testing.T) {
	for _, terminal := range []State{StateCompleted, StateFailed, StateCancelled} {
		t.Run(string(terminal), func(t *testing.T) {
			tk := New("code")
			if err := tk.Complete(terminal); err != nil {
				t.Fatalf("Complete: %v", err)
			}

			if err := tk.Transition(StateRunning); err == nil {
				t.Error("transition out of terminal state should fail")
			}
			if err := tk.Complete(StateCancelled); err == nil {
				t.Error("second Complete should fail")
			}
			if err := tk.Start(); err == nil {
				t.Error("Start on terminal task should fail")
			}
		})
	}
}

func TestCompleteRejectsNonTerminalStatus(t *testing.T) {
	tk := New("code")
	if err := tk.Complete(StateRunning); err == nil {
		t.Error("Complete(running) should fail")
	}
}

func TestParseTerminal(t *testing.T) {
	tests := []struct {
		in      string
		want    State
		wantErr bool
	}{
		{"completed", StateCompleted, false},
		{"failed", StateFailed, false},
		{"cancelled", StateCancelled, false},
		{"running", "", true},
		{"done", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParseTerminal(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseTerminal(%q) should fail", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseTerminal(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseTerminal(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSwitchModeAppendsAudit(t *testing.T) {
	tk := New("code")
	if err := tk.SwitchMode("ask"); err != nil {
		t.Fatalf("SwitchMode: %v", err)
	}
	if tk.ModeSlug != "ask" {
		t.Errorf("ModeSlug = %q, want %q", tk.ModeSlug, "ask")
	}
	if len(tk.Messages) != 1 {
		t.Fatalf("len(Messages) = %d, want 1", len(tk.Messages))
	}

	audit := tk.Messages[0]
	if audit.Role != "system" {
		t.Errorf("audit role = %q, want system", audit.Role)
	}
	for _, slug := range []string{"code", "ask"} {
		if !strings.Contains(audit.Content, slug) {
			t.Errorf("audit message %q should mention %q", audit.Content, slug)
		}
	}
	if audit.Metadata["old_mode"] != "code" || audit.Metadata["new_mode"] != "ask" {
		t.Errorf("audit metadata = %v", audit.Metadata)
	}
}

func TestSwitchModeRejectedOnTerminalTask(t *testing.T) {
	tk := New("code")
	if err := tk.Complete(StateCancelled); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if err := tk.SwitchMode("ask"); err == nil {
		t.Error("SwitchMode on terminal task should fail")
	}
	if tk.ModeSlug != "code" {
		t.Errorf("ModeSlug mutated to %q on failed switch", tk.ModeSlug)
	}
}

func TestNewChildLinksHierarchy(t *testing.T) {
	parent := New("orchestrator")
	child := NewChild(parent, "code")

	if child.ParentID != parent.ID {
		t.Errorf("child.ParentID = %q, want %q", child.ParentID, parent.ID)
	}
	if len(parent.ChildIDs) != 1 || parent.ChildIDs[0] != child.ID {
		t.Errorf("parent.ChildIDs = %v, want [%s]", parent.ChildIDs, child.ID)
	}
}

func TestAppendMessageOrdering(t *testing.T) {
	tk := New("code")
	tk.AppendMessage("user", "first", nil)
	tk.AppendMessage("assistant", "second", nil)

	if len(tk.Messages) != 2 {
		t.Fatalf("len(Messages) = %d, want 2", len(tk.Messages))
	}
	if tk.Messages[0].Content != "first" || tk.Messages[1].Content != "second" {
		t.Error("messages out of order")
	}
	if tk.Messages[0].Timestamp.After(tk.Messages[1].Timestamp) {
		t.Error("timestamps should be non-decreasing")
	}
}
