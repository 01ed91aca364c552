package event

import (
	"github.com/mrzor/endpoint-sec/internal/descriptor"
	"github.com/mrzor/endpoint-sec/internal/essys"
)

// EventLwSessionLock is LoginWindow locking the screen of a session.
type EventLwSessionLock struct{ view }

// Username is the short name of the session's user.
// The bytes alias the message buffer: copy them to keep them past the
// callback.
func (e EventLwSessionLock) Username() []byte {
	return e.str(at[essys.EventLwSessionLock](e.view).Username)
}

// GraphicalSessionID identifies the graphical session.
func (e EventLwSessionLock) GraphicalSessionID() uint32 {
	return at[essys.EventLwSessionLock](e.view).GraphicalSessionID
}

var lwSessionLockDesc = descriptor.New("EventLwSessionLock", descriptor.ClassShareable,
	descriptor.Fn("username", EventLwSessionLock.Username),
	descriptor.Fn("graphical_session_id", EventLwSessionLock.GraphicalSessionID),
)

func (e EventLwSessionLock) Kind() Kind                      { return KindLwSessionLock }
func (e EventLwSessionLock) String() string                  { return lwSessionLockDesc.Format(e) }
func (e EventLwSessionLock) Equal(o EventLwSessionLock) bool { return lwSessionLockDesc.Equal(e, o) }
func (e EventLwSessionLock) Hash() uint64                    { return lwSessionLockDesc.Hash(e) }
func (e EventLwSessionLock) Fields() map[string]any          { return lwSessionLockDesc.Map(e) }
func (e EventLwSessionLock) nested() descriptor.Nested       { return lwSessionLockDesc.Bind(e) }

// EventLwSessionUnlock is LoginWindow unlocking the screen of a session.
type EventLwSessionUnlock struct{ view }

// Username is the short name of the session's user.
// The bytes alias the message buffer: copy them to keep them past the
// callback.
func (e EventLwSessionUnlock) Username() []byte {
	return e.str(at[essys.EventLwSessionUnlock](e.view).Username)
}

// GraphicalSessionID identifies the graphical session.
func (e EventLwSessionUnlock) GraphicalSessionID() uint32 {
	return at[essys.EventLwSessionUnlock](e.view).GraphicalSessionID
}

var lwSessionUnlockDesc = descriptor.New("EventLwSessionUnlock", descriptor.ClassShareable,
	descriptor.Fn("username", EventLwSessionUnlock.Username),
	descriptor.Fn("graphical_session_id", EventLwSessionUnlock.GraphicalSessionID),
)

func (e EventLwSessionUnlock) Kind() Kind                        { return KindLwSessionUnlock }
func (e EventLwSessionUnlock) String() string                    { return lwSessionUnlockDesc.Format(e) }
func (e EventLwSessionUnlock) Equal(o EventLwSessionUnlock) bool { return lwSessionUnlockDesc.Equal(e, o) }
func (e EventLwSessionUnlock) Hash() uint64                      { return lwSessionUnlockDesc.Hash(e) }
func (e EventLwSessionUnlock) Fields() map[string]any            { return lwSessionUnlockDesc.Map(e) }
func (e EventLwSessionUnlock) nested() descriptor.Nested         { return lwSessionUnlockDesc.Bind(e) }
