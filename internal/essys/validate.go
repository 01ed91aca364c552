package essys

import (
	"errors"
	"fmt"
	"unsafe"
)

// ErrOutOfBounds is wrapped by Validate for references that do not resolve
// inside the message buffer.
var ErrOutOfBounds = errors.New("reference outside the message")

// Validate checks every reference a view can follow from the message in buf:
// the process record and its executable, the event's target file and all
// string tokens. Records are also checked for 8-byte alignment. The union
// itself is assumed to fit; callers check EventSize first. Discriminants
// this package does not know have only their header references checked.
func Validate(buf []byte) error {
	n := uint64(len(buf))
	hdr := At[MessageHeader](buf, 0)

	if hdr.Process != 0 {
		if err := checkProcess(buf, n, hdr.Process); err != nil {
			return fmt.Errorf("process: %w", err)
		}
	}

	off := MessageHeaderSize
	var err error
	switch hdr.EventType {
	case EVENT_TYPE_NOTIFY_SETEXTATTR:
		ev := At[EventSetExtAttr](buf, off)
		err = errors.Join(checkFile(buf, n, ev.Target), checkToken(n, ev.Extattr))
	case EVENT_TYPE_NOTIFY_DELETEEXTATTR:
		ev := At[EventDeleteExtAttr](buf, off)
		err = errors.Join(checkFile(buf, n, ev.Target), checkToken(n, ev.Extattr))
	case EVENT_TYPE_NOTIFY_SETMODE:
		err = checkFile(buf, n, At[EventSetMode](buf, off).Target)
	case EVENT_TYPE_NOTIFY_LW_SESSION_LOCK:
		err = checkToken(n, At[EventLwSessionLock](buf, off).Username)
	case EVENT_TYPE_NOTIFY_LW_SESSION_UNLOCK:
		err = checkToken(n, At[EventLwSessionUnlock](buf, off).Username)
	}
	if err != nil {
		return fmt.Errorf("event type %d: %w", hdr.EventType, err)
	}
	return nil
}

func checkProcess(buf []byte, n, off uint64) error {
	if err := checkRecord(n, off, uint64(unsafe.Sizeof(Process{}))); err != nil {
		return err
	}
	p := At[Process](buf, off)
	return errors.Join(
		checkFile(buf, n, p.Executable),
		checkToken(n, p.SigningID),
		checkToken(n, p.TeamID),
	)
}

func checkFile(buf []byte, n, off uint64) error {
	if err := checkRecord(n, off, uint64(unsafe.Sizeof(File{}))); err != nil {
		return fmt.Errorf("file: %w", err)
	}
	if err := checkToken(n, At[File](buf, off).Path); err != nil {
		return fmt.Errorf("file path: %w", err)
	}
	return nil
}

func checkRecord(n, off, size uint64) error {
	switch {
	case off < MessageHeaderSize:
		return fmt.Errorf("%w: record at %d overlaps the header", ErrOutOfBounds, off)
	case off%8 != 0:
		return fmt.Errorf("%w: record at %d is not 8-byte aligned", ErrOutOfBounds, off)
	case off > n || size > n-off:
		return fmt.Errorf("%w: record of %d bytes at %d, message has %d", ErrOutOfBounds, size, off, n)
	}
	return nil
}

func checkToken(n uint64, t StringToken) error {
	if t.Length == 0 {
		return nil
	}
	if t.Offset > n || t.Length > n-t.Offset {
		return fmt.Errorf("%w: string of %d bytes at %d, message has %d", ErrOutOfBounds, t.Length, t.Offset, n)
	}
	return nil
}
