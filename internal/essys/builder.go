package essys

import (
	"encoding/binary"
	"fmt"
)

// Builder lays out a message buffer the way the producer does: header and
// event union first, then strings, files and the process record, each
// 8-byte aligned. Replay tooling and tests use it to produce well-formed
// records.
type Builder struct {
	buf       []byte
	eventType EventType
}

// NewBuilder reserves room for the header and the union member selected by t.
// Unknown discriminants reserve the header only.
func NewBuilder(t EventType) *Builder {
	size, _ := EventSize(t)
	return &Builder{
		buf:       make([]byte, MessageHeaderSize+size),
		eventType: t,
	}
}

func (b *Builder) align() {
	for len(b.buf)%8 != 0 {
		b.buf = append(b.buf, 0)
	}
}

// String appends s (NUL-terminated, like the producer) and returns its token.
func (b *Builder) String(s string) StringToken {
	if s == "" {
		return StringToken{}
	}
	b.align()
	off := uint64(len(b.buf))
	b.buf = append(b.buf, s...)
	b.buf = append(b.buf, 0)
	return StringToken{Length: uint64(len(s)), Offset: off}
}

// File appends f and returns its offset.
func (b *Builder) File(f File) uint64 {
	return b.put(&f)
}

// Process appends p and returns its offset.
func (b *Builder) Process(p Process) uint64 {
	return b.put(&p)
}

func (b *Builder) put(v any) uint64 {
	b.align()
	off := uint64(len(b.buf))
	b.buf = append(b.buf, make([]byte, binary.Size(v))...)
	b.encodeAt(off, v)
	return off
}

func (b *Builder) encodeAt(off uint64, v any) {
	if _, err := binary.Encode(b.buf[off:], binary.NativeEndian, v); err != nil {
		panic(fmt.Sprintf("essys: encoding %T: %v", v, err))
	}
}

// Finish writes the header and the event union and returns the message.
// hdr.EventType is overwritten with the builder's discriminant. event must
// point to the union member matching that discriminant, or be nil.
func (b *Builder) Finish(hdr MessageHeader, event any) []byte {
	hdr.EventType = b.eventType
	b.encodeAt(0, &hdr)
	if event != nil {
		b.encodeAt(MessageHeaderSize, event)
	}

	// Fresh allocation keeps the base 8-byte aligned.
	out := make([]byte, len(b.buf))
	copy(out, b.buf)
	return out
}
