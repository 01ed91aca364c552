package sessions

import "time"

// State is the lock state of one graphical session.
type State struct {
	SessionID uint32
	Username  string
	Locked    bool
	// Since is when the session entered its current state.
	Since time.Time
	// Transitions counts lock and unlock events applied.
	Transitions int
}
