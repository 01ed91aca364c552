// Package essys mirrors the producer's C-compatible event records.
//
// Every struct here matches the producer's layout byte for byte: native
// endianness, 8-byte alignment, all padding spelled out. Pointers in the C
// structs are carried as offsets from the start of the message buffer so a
// record stays meaningful after it is copied into a ring buffer.
package essys

import (
	"unsafe"
)

// EventType is the discriminant selecting the event union member.
type EventType uint32

// Event type constants matching the producer's es_event_type_t subset.
//
//nolint:revive,staticcheck // ALL_CAPS naming matches C/kernel conventions
const (
	EVENT_TYPE_NOTIFY_EXIT              EventType = 1
	EVENT_TYPE_NOTIFY_SETEXTATTR        EventType = 2
	EVENT_TYPE_NOTIFY_DELETEEXTATTR     EventType = 3
	EVENT_TYPE_NOTIFY_SETMODE           EventType = 4
	EVENT_TYPE_NOTIFY_SETUID            EventType = 5
	EVENT_TYPE_NOTIFY_SETGID            EventType = 6
	EVENT_TYPE_NOTIFY_SETEUID           EventType = 7
	EVENT_TYPE_NOTIFY_SETEGID           EventType = 8
	EVENT_TYPE_NOTIFY_LW_SESSION_LOCK   EventType = 9
	EVENT_TYPE_NOTIFY_LW_SESSION_UNLOCK EventType = 10
)

// ActionType tells whether the producer waits for a verdict.
type ActionType uint32

//nolint:revive,staticcheck // ALL_CAPS naming matches C/kernel conventions
const (
	ACTION_TYPE_AUTH   ActionType = 0
	ACTION_TYPE_NOTIFY ActionType = 1
)

// StringToken matches es_string_token_t. Data is an offset, not a pointer.
type StringToken struct {
	Length uint64
	Offset uint64
}

// Stat matches the subset of struct stat carried in es_file_t.
type Stat struct {
	Dev   int32
	Mode  uint16
	Nlink uint16
	Ino   uint64
	UID   uint32 //nolint:revive // Matches C struct field naming
	GID   uint32 //nolint:revive // Matches C struct field naming
	Rdev  int32
	_     uint32 // Padding to align Size
	Size  int64
}

// File matches es_file_t.
type File struct {
	Path          StringToken
	PathTruncated uint8
	_             [7]byte // Padding to align Stat
	Stat          Stat
}

// Process matches the subset of es_process_t the views expose.
type Process struct {
	Pid              int32
	Euid             uint32
	Egid             uint32
	Ppid             int32
	OriginalPpid     int32
	GroupID          int32
	SessionID        int32
	IsPlatformBinary uint8
	IsESClient       uint8
	_                [2]byte // Padding
	Executable       uint64  // Offset of a File
	SigningID        StringToken
	TeamID           StringToken
}

// MessageHeader matches the fixed prefix of es_message_t.
// The event union starts right after it, at MessageHeaderSize.
type MessageHeader struct {
	Version      uint32
	ActionType   ActionType
	Time         int64 // Wall clock, nanoseconds since the Unix epoch
	MachTime     uint64
	SeqNum       uint64
	GlobalSeqNum uint64
	Process      uint64 // Offset of a Process
	EventType    EventType
	_            uint32 // Padding to keep the union 8-byte aligned
}

// MessageHeaderSize is the offset of the event union within a message.
const MessageHeaderSize = uint64(unsafe.Sizeof(MessageHeader{}))

// EventExit matches es_event_exit_t.
type EventExit struct {
	Stat     int32
	_        uint32
	Reserved [64]byte
}

// EventSetExtAttr matches es_event_setextattr_t.
type EventSetExtAttr struct {
	Target   uint64 // Offset of a File
	Extattr  StringToken
	Reserved [64]byte
}

// EventDeleteExtAttr matches es_event_deleteextattr_t.
type EventDeleteExtAttr struct {
	Target   uint64 // Offset of a File
	Extattr  StringToken
	Reserved [64]byte
}

// EventSetMode matches es_event_setmode_t.
type EventSetMode struct {
	Mode     uint32
	_        uint32
	Target   uint64 // Offset of a File
	Reserved [64]byte
}

// EventSetuid matches es_event_setuid_t.
type EventSetuid struct {
	UID      uint32 //nolint:revive // Matches C struct field naming
	_        uint32
	Reserved [64]byte
}

// EventSetgid matches es_event_setgid_t.
type EventSetgid struct {
	GID      uint32 //nolint:revive // Matches C struct field naming
	_        uint32
	Reserved [64]byte
}

// EventSeteuid matches es_event_seteuid_t.
type EventSeteuid struct {
	Euid     uint32
	_        uint32
	Reserved [64]byte
}

// EventSetegid matches es_event_setegid_t.
type EventSetegid struct {
	Egid     uint32
	_        uint32
	Reserved [64]byte
}

// EventLwSessionLock matches es_event_lw_session_lock_t.
type EventLwSessionLock struct {
	Username           StringToken
	GraphicalSessionID uint32
	_                  uint32
	Reserved           [64]byte
}

// EventLwSessionUnlock matches es_event_lw_session_unlock_t.
type EventLwSessionUnlock struct {
	Username           StringToken
	GraphicalSessionID uint32
	_                  uint32
	Reserved           [64]byte
}

// EventSize returns the size of the union member selected by t,
// or false when t is not a known discriminant.
func EventSize(t EventType) (uint64, bool) {
	var size uintptr
	switch t {
	case EVENT_TYPE_NOTIFY_EXIT:
		size = unsafe.Sizeof(EventExit{})
	case EVENT_TYPE_NOTIFY_SETEXTATTR:
		size = unsafe.Sizeof(EventSetExtAttr{})
	case EVENT_TYPE_NOTIFY_DELETEEXTATTR:
		size = unsafe.Sizeof(EventDeleteExtAttr{})
	case EVENT_TYPE_NOTIFY_SETMODE:
		size = unsafe.Sizeof(EventSetMode{})
	case EVENT_TYPE_NOTIFY_SETUID:
		size = unsafe.Sizeof(EventSetuid{})
	case EVENT_TYPE_NOTIFY_SETGID:
		size = unsafe.Sizeof(EventSetgid{})
	case EVENT_TYPE_NOTIFY_SETEUID:
		size = unsafe.Sizeof(EventSeteuid{})
	case EVENT_TYPE_NOTIFY_SETEGID:
		size = unsafe.Sizeof(EventSetegid{})
	case EVENT_TYPE_NOTIFY_LW_SESSION_LOCK:
		size = unsafe.Sizeof(EventLwSessionLock{})
	case EVENT_TYPE_NOTIFY_LW_SESSION_UNLOCK:
		size = unsafe.Sizeof(EventLwSessionUnlock{})
	default:
		return 0, false
	}
	return uint64(size), true
}

// At reinterprets buf[off:] as a *T without copying.
// A record that does not fit in buf panics with a bounds error rather than
// reading past the slice.
func At[T any](buf []byte, off uint64) *T {
	size := uint64(unsafe.Sizeof(*new(T)))
	rec := buf[off : off+size : off+size]
	//nolint:gosec // Unsafe required for C struct interop
	return (*T)(unsafe.Pointer(unsafe.SliceData(rec)))
}

// Bytes resolves the token against the message buffer.
// The result aliases buf and must not be modified.
func (t StringToken) Bytes(buf []byte) []byte {
	if t.Length == 0 {
		return nil
	}
	end := t.Offset + t.Length
	return buf[t.Offset:end:end]
}
