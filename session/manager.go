package session

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/modelab/moded/logger"
	"github.com/modelab/moded/task"
)

// Manager owns the table of live sessions and the background sweep loop
// that evicts idle ones. The table lock is the only synchronization
// between the request path and the sweeper.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	byTask   map[string]string // task ID → session ID

	timeout       time.Duration
	sweepInterval time.Duration

	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	log *slog.Logger
}

// Stats is an observational snapshot of the session table. Idle and age
// fields are only meaningful when Count > 0.
type Stats struct {
	Count   int
	MinIdle time.Duration
	MaxIdle time.Duration
	AvgIdle time.Duration
	MinAge  time.Duration
	MaxAge  time.Duration
}

// NewManager creates a session manager with the given idle timeout and
// sweep interval. Start must be called to launch the sweep loop.
func NewManager(timeout, sweepInterval time.Duration) *Manager {
	return &Manager{
		sessions:      make(map[string]*Session),
		byTask:        make(map[string]string),
		timeout:       timeout,
		sweepInterval: sweepInterval,
		log:           logger.WithComponent("sessions"),
	}
}

// Start launches the background sweep loop. Calling Start on a running
// manager is a no-op.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}
	m.running = true
	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})

	go m.sweepLoop(m.stopCh, m.doneCh)
	m.log.Info("sweep loop started", "timeout", m.timeout, "interval", m.sweepInterval)
}

// Stop cancels the sweep loop and blocks until it has fully exited.
// Calling Stop on a stopped manager is a no-op.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	stopCh, doneCh := m.stopCh, m.doneCh
	m.mu.Unlock()

	close(stopCh)
	<-doneCh
	m.log.Info("sweep loop stopped")
}

// sweepLoop wakes every interval and evicts expired sessions until asked
// to stop. One cancellation check per iteration.
func (m *Manager) sweepLoop(stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(m.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			if n := m.sweep(); n > 0 {
				m.log.Info("evicted idle sessions", "count", n)
			}
		}
	}
}

// sweep evicts every session whose idle time exceeds the timeout.
func (m *Manager) sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	evicted := 0
	for id, sess := range m.sessions {
		if sess.Expired(m.timeout) {
			m.removeLocked(id, sess)
			evicted++
		}
	}
	return evicted
}

// Create wraps the task in a new session and registers it in both tables.
// A task can be bound to at most one live session.
func (m *Manager) Create(t *task.Task) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.byTask[t.ID]; ok {
		return nil, fmt.Errorf("task %s already bound to session %s", t.ID, existing)
	}

	sess := newSession(t)
	m.sessions[sess.ID] = sess
	m.byTask[t.ID] = sess.ID

	logger.WithSession(sess.ID).Debug("session created", "taskID", t.ID, "mode", t.ModeSlug)
	return sess, nil
}

// LookupResult distinguishes why a session lookup came back empty.
type LookupResult int

const (
	// Found means the session is live and was touched.
	Found LookupResult = iota
	// NotFound means the ID is unknown (never existed, or already swept).
	NotFound
	// ExpiredOnLookup means the session was present but idle past the
	// timeout, and was evicted by this lookup.
	ExpiredOnLookup
)

// Lookup returns the session for an ID, touching it. An expired session
// is evicted on the spot and reported as ExpiredOnLookup; it is never
// returned to the caller.
func (m *Manager) Lookup(id string) (*Session, LookupResult) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[id]
	if !ok {
		return nil, NotFound
	}
	if sess.Expired(m.timeout) {
		m.removeLocked(id, sess)
		logger.WithSession(id).Debug("session expired on lookup", "idle", sess.IdleTime())
		return nil, ExpiredOnLookup
	}

	sess.Touch()
	return sess, Found
}

// Get is Lookup without the eviction detail.
func (m *Manager) Get(id string) (*Session, bool) {
	sess, res := m.Lookup(id)
	return sess, res == Found
}

// GetByTask resolves the session owning a task. Expiry and touch
// semantics are identical to Get.
func (m *Manager) GetByTask(taskID string) (*Session, bool) {
	m.mu.Lock()
	id, ok := m.byTask[taskID]
	m.mu.Unlock()
	if !ok {
		return nil, false
	}
	return m.Get(id)
}

// Destroy removes a session from both tables. Returns false if it was
// already absent.
func (m *Manager) Destroy(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[id]
	if !ok {
		return false
	}
	m.removeLocked(id, sess)
	logger.WithSession(id).Debug("session destroyed")
	return true
}

// CleanupAll evicts every session. Used at shutdown.
func (m *Manager) CleanupAll() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := len(m.sessions)
	m.sessions = make(map[string]*Session)
	m.byTask = make(map[string]string)
	if n > 0 {
		m.log.Info("cleaned up all sessions", "count", n)
	}
	return n
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Stats returns an observational snapshot of the session table.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := Stats{Count: len(m.sessions)}
	if stats.Count == 0 {
		return stats
	}

	var totalIdle time.Duration
	first := true
	for _, sess := range m.sessions {
		idle, age := sess.IdleTime(), sess.Age()
		totalIdle += idle
		if first {
			stats.MinIdle, stats.MaxIdle = idle, idle
			stats.MinAge, stats.MaxAge = age, age
			first = false
			continue
		}
		if idle < stats.MinIdle {
			stats.MinIdle = idle
		}
		if idle > stats.MaxIdle {
			stats.MaxIdle = idle
		}
		if age < stats.MinAge {
			stats.MinAge = age
		}
		if age > stats.MaxAge {
			stats.MaxAge = age
		}
	}
	stats.AvgIdle = totalIdle / time.Duration(stats.Count)
	return stats
}

// removeLocked deletes a session from both tables. Caller holds mu.
func (m *Manager) removeLocked(id string, sess *Session) {
	delete(m.sessions, id)
	delete(m.byTask, sess.Task.ID)
}
