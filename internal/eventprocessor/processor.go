package eventprocessor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/mrzor/endpoint-sec/internal/attributes"
	"github.com/mrzor/endpoint-sec/internal/dedup"
	"github.com/mrzor/endpoint-sec/internal/event"
	"github.com/mrzor/endpoint-sec/internal/sessions"
)

// Delivery is one message as handed to sinks. Message and Event are views
// valid only until HandleEvent returns; Env is an owned projection.
type Delivery struct {
	Message event.Message
	Event   event.Event
	Entry   event.Entry
	Env     attributes.Env
}

// Sink consumes processed events. Sinks of shareable kinds may be called
// concurrently with each other for the same delivery.
type Sink interface {
	HandleEvent(ctx context.Context, d Delivery) error
}

// Options configures a Processor. Zero values disable the feature.
type Options struct {
	// Kinds restricts processing to these kinds. Empty means all kinds.
	Kinds    []event.Kind
	Filter   *attributes.Filter
	Dedup    *dedup.Window
	Sessions *sessions.Manager
}

// Counts is a snapshot of the processor counters.
type Counts struct {
	// Delivered counts events handed to sinks, by kind name.
	Delivered map[string]uint64
	Unknown   uint64
	Skipped   uint64
	Filtered  uint64
	Duplicate uint64
	// Gaps counts messages missing according to the global sequence number.
	Gaps uint64
}

// Processor routes messages from the stream to sinks.
// It decodes the event, applies kind selection, filter and dedup, updates
// session state and fans the delivery out.
type Processor struct {
	opts  Options
	kinds map[event.Kind]bool
	sinks []Sink

	delivered map[event.Kind]*atomic.Uint64
	unknown   atomic.Uint64
	skipped   atomic.Uint64
	filtered  atomic.Uint64
	duplicate atomic.Uint64
	gaps      atomic.Uint64

	// Written only from HandleMessage, which the stream calls serially.
	lastGlobalSeq uint64
	seenAny       bool
}

// NewProcessor creates a new event processor.
func NewProcessor(opts Options, sinks ...Sink) *Processor {
	p := &Processor{
		opts:      opts,
		sinks:     sinks,
		delivered: make(map[event.Kind]*atomic.Uint64),
	}
	for _, k := range event.Kinds() {
		p.delivered[k] = new(atomic.Uint64)
	}
	if len(opts.Kinds) > 0 {
		p.kinds = make(map[event.Kind]bool, len(opts.Kinds))
		for _, k := range opts.Kinds {
			p.kinds[k] = true
		}
	}
	return p
}

// HandleMessage processes one delivered message. Every sink has returned by
// the time HandleMessage does.
func (p *Processor) HandleMessage(ctx context.Context, m event.Message) error {
	p.trackSequence(m.GlobalSeqNum())

	ev, ok := m.Event()
	if !ok {
		p.unknown.Add(1)
		return nil
	}
	kind := ev.Kind()
	if p.kinds != nil && !p.kinds[kind] {
		p.skipped.Add(1)
		return nil
	}

	env := attributes.NewEnv(m)
	keep, err := p.opts.Filter.Match(env)
	if err != nil {
		return fmt.Errorf("filtering %s: %w", kind, err)
	}
	if !keep {
		p.filtered.Add(1)
		return nil
	}

	// Session state sees every transition, including ones dedup suppresses.
	if p.opts.Sessions != nil {
		p.opts.Sessions.Observe(m.Time(), ev)
	}

	if p.opts.Dedup != nil && p.opts.Dedup.Seen(m, ev) {
		p.duplicate.Add(1)
		return nil
	}

	entry, _ := event.Lookup(kind)
	d := Delivery{Message: m, Event: ev, Entry: entry, Env: env}
	p.delivered[kind].Add(1)
	return p.fanOut(ctx, d)
}

func (p *Processor) trackSequence(seq uint64) {
	if p.seenAny && seq > p.lastGlobalSeq+1 {
		missing := seq - p.lastGlobalSeq - 1
		p.gaps.Add(missing)
		log.Printf("global sequence gap: %d messages missing before %d", missing, seq)
	}
	if !p.seenAny || seq > p.lastGlobalSeq {
		p.lastGlobalSeq = seq
	}
	p.seenAny = true
}

// fanOut calls every sink. Shareable kinds run their sinks concurrently;
// the others run them one after another on this goroutine.
func (p *Processor) fanOut(ctx context.Context, d Delivery) error {
	if len(p.sinks) == 0 {
		return nil
	}

	if !d.Entry.Class.Shareable || len(p.sinks) == 1 {
		var errs []error
		for _, s := range p.sinks {
			if err := s.HandleEvent(ctx, d); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}

	errs := make([]error, len(p.sinks))
	var wg sync.WaitGroup
	for i, s := range p.sinks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = s.HandleEvent(ctx, d)
		}()
	}
	wg.Wait()
	return errors.Join(errs...)
}

// Counts returns a snapshot of the processor counters.
func (p *Processor) Counts() Counts {
	c := Counts{
		Delivered: make(map[string]uint64, len(p.delivered)),
		Unknown:   p.unknown.Load(),
		Skipped:   p.skipped.Load(),
		Filtered:  p.filtered.Load(),
		Duplicate: p.duplicate.Load(),
		Gaps:      p.gaps.Load(),
	}
	for k, n := range p.delivered {
		if v := n.Load(); v > 0 {
			c.Delivered[k.String()] = v
		}
	}
	return c
}

// Summary renders the counters on one line, kinds sorted by name.
func (c Counts) Summary() string {
	names := make([]string, 0, len(c.Delivered))
	for name := range c.Delivered {
		names = append(names, name)
	}
	sort.Strings(names)

	s := ""
	for _, name := range names {
		s += fmt.Sprintf("%s=%d ", name, c.Delivered[name])
	}
	return s + fmt.Sprintf("unknown=%d skipped=%d filtered=%d duplicate=%d gaps=%d",
		c.Unknown, c.Skipped, c.Filtered, c.Duplicate, c.Gaps)
}
