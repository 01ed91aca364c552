// Package sessions tracks the screen lock state of graphical login sessions.
//
// State is built from lw_session_lock and lw_session_unlock events and
// keyed by graphical session id. Everything stored is an owned copy; no
// view outlives its delivery.
//
// Manager provides command-query separation:
//
// Queries (read-only):
//   - Get(id) - Retrieve a session's state
//   - Locked() - Sessions currently locked
//   - GetIssues(id) - Retrieve inconsistencies seen for a session
//
// Commands (mutations):
//   - Observe(at, ev) - Apply a lock or unlock event
//   - Delete(id) - Forget a session
//
// Thread-safe with RWMutex for concurrent access.
package sessions
