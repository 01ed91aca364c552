package event

import (
	"github.com/mrzor/endpoint-sec/internal/descriptor"
	"github.com/mrzor/endpoint-sec/internal/essys"
)

// EventSetuid is a process calling setuid().
type EventSetuid struct{ view }

// UID is the argument to the setuid() call.
func (e EventSetuid) UID() uint32 { return at[essys.EventSetuid](e.view).UID }

var setuidDesc = descriptor.New("EventSetuid", descriptor.ClassShareable,
	descriptor.Fn("uid", EventSetuid.UID),
)

func (e EventSetuid) Kind() Kind                { return KindSetuid }
func (e EventSetuid) String() string            { return setuidDesc.Format(e) }
func (e EventSetuid) Equal(o EventSetuid) bool  { return setuidDesc.Equal(e, o) }
func (e EventSetuid) Hash() uint64              { return setuidDesc.Hash(e) }
func (e EventSetuid) Fields() map[string]any    { return setuidDesc.Map(e) }
func (e EventSetuid) nested() descriptor.Nested { return setuidDesc.Bind(e) }

// EventSetgid is a process calling setgid().
type EventSetgid struct{ view }

// GID is the argument to the setgid() call.
func (e EventSetgid) GID() uint32 { return at[essys.EventSetgid](e.view).GID }

var setgidDesc = descriptor.New("EventSetgid", descriptor.ClassShareable,
	descriptor.Fn("gid", EventSetgid.GID),
)

func (e EventSetgid) Kind() Kind                { return KindSetgid }
func (e EventSetgid) String() string            { return setgidDesc.Format(e) }
func (e EventSetgid) Equal(o EventSetgid) bool  { return setgidDesc.Equal(e, o) }
func (e EventSetgid) Hash() uint64              { return setgidDesc.Hash(e) }
func (e EventSetgid) Fields() map[string]any    { return setgidDesc.Map(e) }
func (e EventSetgid) nested() descriptor.Nested { return setgidDesc.Bind(e) }

// EventSeteuid is a process calling seteuid().
type EventSeteuid struct{ view }

// Euid is the argument to the seteuid() call.
func (e EventSeteuid) Euid() uint32 { return at[essys.EventSeteuid](e.view).Euid }

var seteuidDesc = descriptor.New("EventSeteuid", descriptor.ClassShareable,
	descriptor.Fn("euid", EventSeteuid.Euid),
)

func (e EventSeteuid) Kind() Kind                { return KindSeteuid }
func (e EventSeteuid) String() string            { return seteuidDesc.Format(e) }
func (e EventSeteuid) Equal(o EventSeteuid) bool { return seteuidDesc.Equal(e, o) }
func (e EventSeteuid) Hash() uint64              { return seteuidDesc.Hash(e) }
func (e EventSeteuid) Fields() map[string]any    { return seteuidDesc.Map(e) }
func (e EventSeteuid) nested() descriptor.Nested { return seteuidDesc.Bind(e) }

// EventSetegid is a process calling setegid().
type EventSetegid struct{ view }

// Egid is the argument to the setegid() call.
func (e EventSetegid) Egid() uint32 { return at[essys.EventSetegid](e.view).Egid }

var setegidDesc = descriptor.New("EventSetegid", descriptor.ClassShareable,
	descriptor.Fn("egid", EventSetegid.Egid),
)

func (e EventSetegid) Kind() Kind                { return KindSetegid }
func (e EventSetegid) String() string            { return setegidDesc.Format(e) }
func (e EventSetegid) Equal(o EventSetegid) bool { return setegidDesc.Equal(e, o) }
func (e EventSetegid) Hash() uint64              { return setegidDesc.Hash(e) }
func (e EventSetegid) Fields() map[string]any    { return setegidDesc.Map(e) }
func (e EventSetegid) nested() descriptor.Nested { return setegidDesc.Bind(e) }
