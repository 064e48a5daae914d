package session

import (
	"strings"
	"testing"
	"time"

	"github.com/modelab/moded/task"
)

func TestNewSessionHasPrefixedID(t *testing.T) {
	sess := newSession(task.New("code"))
	if !strings.HasPrefix(sess.ID, IDPrefix) {
		t.Errorf("ID = %q, want prefix %q", sess.ID, IDPrefix)
	}
	if len(sess.ID) <= len(IDPrefix) {
		t.Error("ID should have a random suffix")
	}
}

func TestSessionIDsAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		sess := newSession(task.New("code"))
		if seen[sess.ID] {
			t.Fatalf("duplicate session ID %q", sess.ID)
		}
		seen[sess.ID] = true
	}
}

func TestTouchNeverDecreases(t *testing.T) {
	sess := newSession(task.New("code"))

	before := sess.LastAccessedAt
	sess.Touch()
	if sess.LastAccessedAt.Before(before) {
		t.Error("Touch moved LastAccessedAt backwards")
	}

	// Repeated touches stay monotonic
	prev := sess.LastAccessedAt
	for i := 0; i < 10; i++ {
		sess.Touch()
		if sess.LastAccessedAt.Before(prev) {
			t.Fatal("Touch moved LastAccessedAt backwards")
		}
		prev = sess.LastAccessedAt
	}
}

func TestExpiredMonotoneInIdleTime(t *testing.T) {
	sess := newSession(task.New("code"))
	sess.LastAccessedAt = time.Now().Add(-time.Second)

	if sess.Expired(time.Minute) {
		t.Error("session idle 1s should not be expired with 1m timeout")
	}
	if !sess.Expired(time.Millisecond) {
		t.Error("session idle 1s should be expired with 1ms timeout")
	}
}
