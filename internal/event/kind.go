package event

import (
	"fmt"
	"slices"

	"github.com/mrzor/endpoint-sec/internal/descriptor"
	"github.com/mrzor/endpoint-sec/internal/essys"
	"github.com/mrzor/endpoint-sec/internal/scope"
)

// Kind identifies the event union member of a message.
type Kind uint32

// Known kinds.
const (
	KindExit            = Kind(essys.EVENT_TYPE_NOTIFY_EXIT)
	KindSetExtAttr      = Kind(essys.EVENT_TYPE_NOTIFY_SETEXTATTR)
	KindDeleteExtAttr   = Kind(essys.EVENT_TYPE_NOTIFY_DELETEEXTATTR)
	KindSetMode         = Kind(essys.EVENT_TYPE_NOTIFY_SETMODE)
	KindSetuid          = Kind(essys.EVENT_TYPE_NOTIFY_SETUID)
	KindSetgid          = Kind(essys.EVENT_TYPE_NOTIFY_SETGID)
	KindSeteuid         = Kind(essys.EVENT_TYPE_NOTIFY_SETEUID)
	KindSetegid         = Kind(essys.EVENT_TYPE_NOTIFY_SETEGID)
	KindLwSessionLock   = Kind(essys.EVENT_TYPE_NOTIFY_LW_SESSION_LOCK)
	KindLwSessionUnlock = Kind(essys.EVENT_TYPE_NOTIFY_LW_SESSION_UNLOCK)
)

func (k Kind) String() string {
	if e, ok := registry[k]; ok {
		return e.Name
	}
	return fmt.Sprintf("unknown(%d)", uint32(k))
}

// ActionType tells whether the producer waits for a verdict.
type ActionType uint32

// Action types.
const (
	ActionAuth   = ActionType(essys.ACTION_TYPE_AUTH)
	ActionNotify = ActionType(essys.ACTION_TYPE_NOTIFY)
)

func (a ActionType) String() string {
	switch a {
	case ActionAuth:
		return "auth"
	case ActionNotify:
		return "notify"
	default:
		return fmt.Sprintf("unknown(%d)", uint32(a))
	}
}

// Event is implemented by every event view.
type Event interface {
	Kind() Kind
	String() string
	Hash() uint64
	// Fields returns an owned copy of the declared projections.
	Fields() map[string]any

	nested() descriptor.Nested
}

// Entry is the registration of one event kind.
type Entry struct {
	Kind Kind
	// Name is the short kind name, e.g. "setgid".
	Name string
	// Type is the view type name used in debug output, e.g. "EventSetgid".
	Type string
	// Fields lists the descriptor's field names in their published order.
	Fields []string
	Class  descriptor.Class

	decode func(view) Event
	equal  func(a, b Event) bool
}

var registry = map[Kind]Entry{}

func register[V Event](kind Kind, name string, d *descriptor.Descriptor[V], wrap func(view) V) {
	if _, dup := registry[kind]; dup {
		panic(fmt.Sprintf("event: kind %d registered twice", uint32(kind)))
	}
	registry[kind] = Entry{
		Kind:   kind,
		Name:   name,
		Type:   d.Name(),
		Fields: d.Names(),
		Class:  d.Class(),
		decode: func(v view) Event { return wrap(v) },
		equal: func(a, b Event) bool {
			x, ok := a.(V)
			if !ok {
				return false
			}
			y, ok := b.(V)
			return ok && d.Equal(x, y)
		},
	}
}

func init() {
	register(KindExit, "exit", exitDesc, func(v view) EventExit { return EventExit{v} })
	register(KindSetExtAttr, "setextattr", setExtAttrDesc, func(v view) EventSetExtAttr { return EventSetExtAttr{v} })
	register(KindDeleteExtAttr, "deleteextattr", deleteExtAttrDesc, func(v view) EventDeleteExtAttr { return EventDeleteExtAttr{v} })
	register(KindSetMode, "setmode", setModeDesc, func(v view) EventSetMode { return EventSetMode{v} })
	register(KindSetuid, "setuid", setuidDesc, func(v view) EventSetuid { return EventSetuid{v} })
	register(KindSetgid, "setgid", setgidDesc, func(v view) EventSetgid { return EventSetgid{v} })
	register(KindSeteuid, "seteuid", seteuidDesc, func(v view) EventSeteuid { return EventSeteuid{v} })
	register(KindSetegid, "setegid", setegidDesc, func(v view) EventSetegid { return EventSetegid{v} })
	register(KindLwSessionLock, "lw_session_lock", lwSessionLockDesc, func(v view) EventLwSessionLock { return EventLwSessionLock{v} })
	register(KindLwSessionUnlock, "lw_session_unlock", lwSessionUnlockDesc, func(v view) EventLwSessionUnlock { return EventLwSessionUnlock{v} })
}

// Lookup returns the registration of kind.
func Lookup(kind Kind) (Entry, bool) {
	e, ok := registry[kind]
	return e, ok
}

// Kinds returns every registered kind in ascending order.
func Kinds() []Kind {
	kinds := make([]Kind, 0, len(registry))
	for k := range registry {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}

// ParseKind maps a short kind name back to its Kind.
func ParseKind(name string) (Kind, bool) {
	for k, e := range registry {
		if e.Name == name {
			return k, true
		}
	}
	return 0, false
}

// Equal compares two events of any kind by their declared fields.
func Equal(a, b Event) bool {
	if a.Kind() != b.Kind() {
		return false
	}
	e, ok := registry[a.Kind()]
	return ok && e.equal(a, b)
}

// view is the common part of every view: a generation-stamped borrow and
// the offset of the record inside the message buffer.
type view struct {
	ref scope.Ref
	off uint64
}

// at returns the checked message buffer and reinterprets the record at
// v.off as a T.
func at[T any](v view) *T {
	return essys.At[T](v.ref.Bytes(), v.off)
}

// str resolves a string token against the checked message buffer.
func (v view) str(t essys.StringToken) []byte {
	return t.Bytes(v.ref.Bytes())
}

// child returns a view of a record at off sharing v's scope.
func (v view) child(off uint64) view {
	return view{ref: v.ref, off: off}
}
