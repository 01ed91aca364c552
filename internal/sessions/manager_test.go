package sessions

import (
	"sync"
	"testing"
	"time"

	"github.com/mrzor/endpoint-sec/internal/essys"
	"github.com/mrzor/endpoint-sec/internal/event"
	"github.com/mrzor/endpoint-sec/internal/scope"
)

var t0 = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

// observe delivers a lock (or unlock) event to m inside its own scope.
func observe(t *testing.T, m *Manager, at time.Time, lock bool, user string, id uint32) (State, bool) {
	t.Helper()

	var buf []byte
	if lock {
		b := essys.NewBuilder(essys.EVENT_TYPE_NOTIFY_LW_SESSION_LOCK)
		u := b.String(user)
		buf = b.Finish(essys.MessageHeader{}, &essys.EventLwSessionLock{Username: u, GraphicalSessionID: id})
	} else {
		b := essys.NewBuilder(essys.EVENT_TYPE_NOTIFY_LW_SESSION_UNLOCK)
		u := b.String(user)
		buf = b.Finish(essys.MessageHeader{}, &essys.EventLwSessionUnlock{Username: u, GraphicalSessionID: id})
	}

	var (
		st State
		ok bool
	)
	err := scope.New().Do(buf, func(ref scope.Ref) error {
		ev, known := event.NewMessage(ref).Event()
		if !known {
			t.Fatal("lock events must decode")
		}
		st, ok = m.Observe(at, ev)
		return nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	return st, ok
}

func TestManager_LockThenUnlock(t *testing.T) {
	m := NewManager()

	st, ok := observe(t, m, t0, true, "alice", 257)
	if !ok {
		t.Fatal("Observe() ignored a lock event")
	}
	if !st.Locked || st.Username != "alice" || st.Transitions != 1 {
		t.Errorf("after lock: %+v", st)
	}

	st, _ = observe(t, m, t0.Add(time.Minute), false, "alice", 257)
	if st.Locked {
		t.Error("session still locked after unlock")
	}
	if !st.Since.Equal(t0.Add(time.Minute)) {
		t.Errorf("Since = %v, want %v", st.Since, t0.Add(time.Minute))
	}
	if st.Transitions != 2 {
		t.Errorf("Transitions = %d, want 2", st.Transitions)
	}

	if issues := m.GetIssues(257); issues != nil {
		t.Errorf("GetIssues() = %v, want none", issues)
	}
}

func TestManager_IgnoresOtherKinds(t *testing.T) {
	m := NewManager()

	buf := essys.NewBuilder(essys.EVENT_TYPE_NOTIFY_SETUID).Finish(essys.MessageHeader{}, &essys.EventSetuid{UID: 0})
	s := scope.New()
	ev, _ := event.NewMessage(s.Enter(buf)).Event()
	_, ok := m.Observe(t0, ev)
	s.End()

	if ok {
		t.Error("Observe() accepted a setuid event")
	}
	if m.Len() != 0 {
		t.Errorf("Len() = %d, want 0", m.Len())
	}
}

func TestManager_Get(t *testing.T) {
	m := NewManager()

	if _, ok := m.Get(1); ok {
		t.Error("Get() found a session never observed")
	}

	observe(t, m, t0, true, "bob", 1)
	st, ok := m.Get(1)
	if !ok {
		t.Fatal("Get() lost an observed session")
	}
	if st.Username != "bob" {
		t.Errorf("Username = %q, want bob", st.Username)
	}
}

func TestManager_Locked(t *testing.T) {
	m := NewManager()

	observe(t, m, t0, true, "carol", 9)
	observe(t, m, t0, true, "alice", 3)
	observe(t, m, t0, true, "bob", 5)
	observe(t, m, t0, false, "bob", 5)

	locked := m.Locked()
	if len(locked) != 2 {
		t.Fatalf("Locked() = %v, want 2 sessions", locked)
	}
	if locked[0].SessionID != 3 || locked[1].SessionID != 9 {
		t.Errorf("Locked() order = [%d %d], want [3 9]", locked[0].SessionID, locked[1].SessionID)
	}
}

func TestManager_Issues(t *testing.T) {
	m := NewManager()

	observe(t, m, t0, false, "alice", 4)
	observe(t, m, t0, false, "alice", 4)
	observe(t, m, t0, true, "mallory", 4)

	issues := m.GetIssues(4)
	want := []string{
		`unlock by "alice" without a prior lock`,
		`repeated lw_session_unlock by "alice"`,
		`user changed from "alice" to "mallory"`,
	}
	if len(issues) != len(want) {
		t.Fatalf("GetIssues() = %v, want %v", issues, want)
	}
	for i := range want {
		if issues[i] != want[i] {
			t.Errorf("issues[%d] = %q, want %q", i, issues[i], want[i])
		}
	}
}

func TestManager_Delete(t *testing.T) {
	m := NewManager()

	observe(t, m, t0, false, "alice", 4)
	m.Delete(4)

	if _, ok := m.Get(4); ok {
		t.Error("Get() found a deleted session")
	}
	if m.GetIssues(4) != nil {
		t.Error("GetIssues() kept issues of a deleted session")
	}
}

func TestManager_Concurrent(t *testing.T) {
	m := NewManager()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(id uint32) {
			defer wg.Done()
			observe(t, m, t0, true, "user", id)
			_ = m.Locked()
		}(uint32(i))
	}
	wg.Wait()

	if m.Len() != 16 {
		t.Errorf("Len() = %d, want 16", m.Len())
	}
}
