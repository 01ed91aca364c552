package eventstream

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"

	"github.com/cilium/ebpf/ringbuf"

	"github.com/mrzor/endpoint-sec/internal/essys"
	"github.com/mrzor/endpoint-sec/internal/event"
	"github.com/mrzor/endpoint-sec/internal/scope"
)

// ErrShortRecord is returned by Dispatch for records too small to hold the
// header or the event their discriminant selects.
var ErrShortRecord = errors.New("record shorter than its layout")

// RecordReader is the part of *ringbuf.Reader the stream needs.
// ReadInto may reuse the record's buffer on every call.
type RecordReader interface {
	ReadInto(rec *ringbuf.Record) error
}

// Handler receives every delivered message. Views reachable from m are only
// valid until HandleMessage returns.
type Handler interface {
	HandleMessage(ctx context.Context, m event.Message) error
}

// Stats counts what the stream has seen since it was created.
type Stats struct {
	Delivered     uint64
	Malformed     uint64
	HandlerErrors uint64
}

// Stream reads records from a ring buffer and delivers them one at a time.
type Stream struct {
	reader  RecordReader
	handler Handler
	scope   *scope.Scope
	stopCh  chan struct{}
	done    chan struct{}

	delivered     atomic.Uint64
	malformed     atomic.Uint64
	handlerErrors atomic.Uint64
}

// New creates a new Stream with the given ringbuffer reader and handler.
func New(reader RecordReader, handler Handler) *Stream {
	return &Stream{
		reader:  reader,
		handler: handler,
		scope:   scope.New(),
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start begins reading events from the ringbuffer in a goroutine.
// It returns immediately and processes events in the background until
// the context is cancelled, Stop is called or the reader is closed.
func (s *Stream) Start(ctx context.Context) error {
	go s.processEvents(ctx)
	return nil
}

// Stop signals the event processing goroutine to stop. A goroutine blocked
// in ReadInto only notices once the reader is closed or yields a record.
func (s *Stream) Stop() error {
	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}
	return nil
}

// Done is closed when the processing goroutine has exited.
func (s *Stream) Done() <-chan struct{} {
	return s.done
}

// Stats returns a snapshot of the stream counters.
func (s *Stream) Stats() Stats {
	return Stats{
		Delivered:     s.delivered.Load(),
		Malformed:     s.malformed.Load(),
		HandlerErrors: s.handlerErrors.Load(),
	}
}

func (s *Stream) processEvents(ctx context.Context) {
	defer close(s.done)

	var record ringbuf.Record
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		default:
			if err := s.reader.ReadInto(&record); err != nil {
				if errors.Is(err, ringbuf.ErrClosed) {
					return
				}
				log.Printf("reading from ring buffer: %v", err)
				continue
			}

			if err := s.Dispatch(ctx, record.RawSample); err != nil {
				log.Printf("dispatching record: %v", err)
			}
		}
	}
}

// Dispatch validates raw and delivers it to the handler inside a fresh
// scope. raw is borrowed: it is not retained once Dispatch returns, and the
// scope ends even if the handler panics.
func (s *Stream) Dispatch(ctx context.Context, raw []byte) error {
	if err := validate(raw); err != nil {
		s.malformed.Add(1)
		return err
	}

	err := s.scope.Do(raw, func(ref scope.Ref) error {
		return s.handler.HandleMessage(ctx, event.NewMessage(ref))
	})
	if err != nil {
		s.handlerErrors.Add(1)
		return fmt.Errorf("handling message: %w", err)
	}
	s.delivered.Add(1)
	return nil
}

func validate(raw []byte) error {
	if uint64(len(raw)) < essys.MessageHeaderSize {
		return fmt.Errorf("%w: %d bytes, header needs %d", ErrShortRecord, len(raw), essys.MessageHeaderSize)
	}
	hdr := essys.At[essys.MessageHeader](raw, 0)
	size, ok := essys.EventSize(hdr.EventType)
	if !ok {
		// Newer producer: the header is readable, the union is not.
		return essys.Validate(raw)
	}
	if need := essys.MessageHeaderSize + size; uint64(len(raw)) < need {
		return fmt.Errorf("%w: %d bytes, event type %d needs %d", ErrShortRecord, len(raw), hdr.EventType, need)
	}
	return essys.Validate(raw)
}
