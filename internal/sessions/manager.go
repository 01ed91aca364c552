package sessions

import (
	"cmp"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/mrzor/endpoint-sec/internal/event"
)

// Manager manages session lock state.
// It provides command-query separation for state access.
type Manager struct {
	mu       sync.RWMutex
	sessions map[uint32]*State   // graphical session id -> state
	issues   map[uint32][]string // graphical session id -> inconsistencies
}

// NewManager creates a new session manager.
func NewManager() *Manager {
	return &Manager{
		sessions: make(map[uint32]*State),
		issues:   make(map[uint32][]string),
	}
}

// Get retrieves the state of a session (query).
func (m *Manager) Get(id uint32) (State, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return State{}, false
	}
	return *s, true
}

// Locked returns the sessions currently locked, ordered by id (query).
func (m *Manager) Locked() []State {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var locked []State
	for _, s := range m.sessions {
		if s.Locked {
			locked = append(locked, *s)
		}
	}
	slices.SortFunc(locked, func(a, b State) int { return cmp.Compare(a.SessionID, b.SessionID) })
	return locked
}

// GetIssues retrieves the inconsistencies seen for a session (query).
// Returns nil if there are none.
func (m *Manager) GetIssues(id uint32) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.issues[id])
}

// Observe applies ev if it is a lock or unlock event (command) and returns
// the resulting state. Other kinds are ignored and yield false.
// It must be called inside ev's delivery scope.
func (m *Manager) Observe(at time.Time, ev event.Event) (State, bool) {
	var (
		id     uint32
		user   string
		locked bool
	)
	switch e := ev.(type) {
	case event.EventLwSessionLock:
		id, user, locked = e.GraphicalSessionID(), string(e.Username()), true
	case event.EventLwSessionUnlock:
		id, user, locked = e.GraphicalSessionID(), string(e.Username()), false
	default:
		return State{}, false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s, seen := m.sessions[id]
	if !seen {
		s = &State{SessionID: id}
		m.sessions[id] = s
		if !locked {
			m.issues[id] = append(m.issues[id], fmt.Sprintf("unlock by %q without a prior lock", user))
		}
	} else if s.Locked == locked {
		m.issues[id] = append(m.issues[id], fmt.Sprintf("repeated %s by %q", ev.Kind(), user))
	}
	if seen && s.Username != "" && s.Username != user {
		m.issues[id] = append(m.issues[id], fmt.Sprintf("user changed from %q to %q", s.Username, user))
	}

	s.Username = user
	s.Locked = locked
	s.Since = at
	s.Transitions++
	return *s, true
}

// Delete removes all data for a session (command).
func (m *Manager) Delete(id uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	delete(m.issues, id)
}

// Len returns the number of tracked sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
