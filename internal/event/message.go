package event

import (
	"time"

	"github.com/mrzor/endpoint-sec/internal/descriptor"
	"github.com/mrzor/endpoint-sec/internal/essys"
	"github.com/mrzor/endpoint-sec/internal/scope"
)

// Message is the envelope delivered for every event: header fields, the
// process that caused it and the event union.
type Message struct{ view }

// NewMessage binds a message view to the buffer borrowed by ref.
// The buffer must hold a message produced by a trusted producer.
func NewMessage(ref scope.Ref) Message {
	return Message{view{ref: ref}}
}

func (m Message) header() *essys.MessageHeader { return at[essys.MessageHeader](m.view) }

// Version is the producer's message format version.
func (m Message) Version() uint32 { return m.header().Version }

// Time is the wall clock time the event happened.
func (m Message) Time() time.Time { return time.Unix(0, m.header().Time) }

// MachTime is the monotonic time the event happened.
func (m Message) MachTime() uint64 { return m.header().MachTime }

// SeqNum is the per-client, per-kind sequence number. Gaps mean drops.
func (m Message) SeqNum() uint64 { return m.header().SeqNum }

// GlobalSeqNum is the per-client sequence number across all kinds.
func (m Message) GlobalSeqNum() uint64 { return m.header().GlobalSeqNum }

func (m Message) ActionType() ActionType { return ActionType(m.header().ActionType) }

// EventType is the raw discriminant, including kinds this package does
// not know.
func (m Message) EventType() Kind { return Kind(m.header().EventType) }

// Process returns the process that caused the message, if the producer
// attached one.
func (m Message) Process() (Process, bool) {
	off := m.header().Process
	if off == 0 {
		return Process{}, false
	}
	return Process{m.child(off)}, true
}

// Event decodes the union member selected by the discriminant.
// Kinds unknown to this package (a newer producer) yield false.
func (m Message) Event() (Event, bool) {
	e, ok := registry[m.EventType()]
	if !ok {
		m.ref.Check()
		return nil, false
	}
	return e.decode(m.child(essys.MessageHeaderSize)), true
}

var messageDesc = descriptor.New("Message", descriptor.ClassShareable,
	descriptor.Fn("version", Message.Version),
	descriptor.Fn("time", Message.Time),
	descriptor.Fn("mach_time", Message.MachTime),
	descriptor.Fn("seq_num", Message.SeqNum),
	descriptor.Fn("global_seq_num", Message.GlobalSeqNum),
	descriptor.Fn("action_type", Message.ActionType),
	descriptor.Fn("process", func(m Message) any {
		p, ok := m.Process()
		if !ok {
			return nil
		}
		return processDesc.Bind(p)
	}),
	descriptor.Fn("event_type", Message.EventType),
	descriptor.Fn("event", func(m Message) any {
		ev, ok := m.Event()
		if !ok {
			return nil
		}
		return ev.nested()
	}),
)

func (m Message) String() string         { return messageDesc.Format(m) }
func (m Message) Equal(o Message) bool   { return messageDesc.Equal(m, o) }
func (m Message) Hash() uint64           { return messageDesc.Hash(m) }
func (m Message) Fields() map[string]any { return messageDesc.Map(m) }
