// Package session manages externally-addressable handles to tasks.
//
// # Overview
//
// Each session owns exactly one task and expires after a period of
// inactivity. Expiry is enforced two ways: lazily on lookup (an expired
// session is evicted instead of returned) and proactively by a background
// sweep loop that scans the table every interval. Both paths converge on
// the same outcome, so a race between them is harmless.
//
// # Lifecycle
//
// 1. Create: a session is created together with its task and issued a
// handle of the form sess-<uuid>.
//
// 2. Lookup: every successful Get advances the session's last-accessed
// time, so active sessions never expire.
//
// 3. Removal: by explicit Destroy, by the sweep loop once idle time
// exceeds the timeout, or in bulk by CleanupAll at shutdown. The owned
// task is garbage-collected with its session; tasks are never deleted
// directly.
package session

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/modelab/moded/task"
)

// IDPrefix is the fixed prefix on every session handle.
const IDPrefix = "sess-"

// Session is an externally-addressable handle wrapping one task.
type Session struct {
	ID             string
	Task           *task.Task
	CreatedAt      time.Time
	LastAccessedAt time.Time
	Metadata       map[string]any
}

// newSession wraps a task in a fresh session handle.
func newSession(t *task.Task) *Session {
	now := time.Now()
	return &Session{
		ID:             fmt.Sprintf("%s%s", IDPrefix, uuid.New().String()),
		Task:           t,
		CreatedAt:      now,
		LastAccessedAt: now,
		Metadata:       make(map[string]any),
	}
}

// Touch advances the last-accessed time. It never moves backwards.
func (s *Session) Touch() {
	if now := time.Now(); now.After(s.LastAccessedAt) {
		s.LastAccessedAt = now
	}
}

// IdleTime returns how long the session has gone without access.
func (s *Session) IdleTime() time.Duration {
	return time.Since(s.LastAccessedAt)
}

// Age returns how long the session has existed.
func (s *Session) Age() time.Duration {
	return time.Since(s.CreatedAt)
}

// Expired reports whether the session's idle time exceeds the timeout.
func (s *Session) Expired(timeout time.Duration) bool {
	return s.IdleTime() > timeout
}
