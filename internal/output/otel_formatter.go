package output

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/mrzor/endpoint-sec/internal/attributes"
	"github.com/mrzor/endpoint-sec/internal/event"
	"github.com/mrzor/endpoint-sec/internal/eventprocessor"
	"github.com/mrzor/endpoint-sec/internal/sessions"
	"github.com/mrzor/endpoint-sec/internal/timesync"
)

// AttributePrefix prefixes the attributes projected from the event.
const AttributePrefix = "es."

// OTELFormatter formats events as OpenTelemetry spans.
type OTELFormatter struct {
	tracer   trace.Tracer
	clock    *timesync.Converter
	custom   *attributes.Evaluator
	traceIDs *attributes.TraceIDEvaluator
	sessions *sessions.Manager
}

// NewOTELFormatter creates a new OTELFormatter. custom, traceIDs and
// sessionMgr may be nil.
func NewOTELFormatter(
	tracer trace.Tracer,
	clock *timesync.Converter,
	custom *attributes.Evaluator,
	traceIDs *attributes.TraceIDEvaluator,
	sessionMgr *sessions.Manager,
) *OTELFormatter {
	return &OTELFormatter{
		tracer:   tracer,
		clock:    clock,
		custom:   custom,
		traceIDs: traceIDs,
		sessions: sessionMgr,
	}
}

// HandleEvent emits one span for the delivered event. The span is named
// after the kind and starts and ends at the message time.
func (f *OTELFormatter) HandleEvent(ctx context.Context, d eventprocessor.Delivery) error {
	at := f.timestamp(d.Message)

	attrs := d.Env.KeyValues(AttributePrefix)
	var diagnostics []string

	if f.traceIDs != nil {
		traceID, warnings, err := f.traceIDs.EvaluateAndValidate(d.Env)
		switch {
		case err != nil:
			diagnostics = append(diagnostics, err.Error())
		case traceID.IsValid():
			ctx = trace.ContextWithRemoteSpanContext(ctx, remoteParent(traceID, d.Event))
		}
		attrs = append(attrs, warnings...)
	}

	if f.custom != nil {
		custom, err := f.custom.EvaluateCustomAttributes(d.Env)
		if err != nil {
			diagnostics = append(diagnostics, err.Error())
		}
		attrs = append(attrs, custom...)
	}

	for i, issue := range f.sessionIssues(d.Event) {
		attrs = append(attrs, attribute.String(fmt.Sprintf("_tracing_warning_%d", i), issue))
	}
	for i, msg := range diagnostics {
		attrs = append(attrs, attribute.String(fmt.Sprintf("_tracing_error_%d", i), msg))
	}

	_, span := f.tracer.Start(ctx, "es."+d.Entry.Name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithTimestamp(at),
		trace.WithAttributes(attrs...),
	)
	span.End(trace.WithTimestamp(at))
	return nil
}

// timestamp prefers the message wall-clock time and falls back to mach_time.
func (f *OTELFormatter) timestamp(m event.Message) time.Time {
	if t := m.Time(); t.UnixNano() != 0 || f.clock == nil {
		return t
	}
	return f.clock.MachToWallClock(m.MachTime())
}

func (f *OTELFormatter) sessionIssues(ev event.Event) []string {
	if f.sessions == nil {
		return nil
	}
	switch e := ev.(type) {
	case event.EventLwSessionLock:
		return f.sessions.GetIssues(e.GraphicalSessionID())
	case event.EventLwSessionUnlock:
		return f.sessions.GetIssues(e.GraphicalSessionID())
	}
	return nil
}

// remoteParent builds the synthetic parent carrying a computed trace ID.
// Its span ID is derived from the event hash so it is never zero.
func remoteParent(traceID trace.TraceID, ev event.Event) trace.SpanContext {
	var spanID trace.SpanID
	binary.BigEndian.PutUint64(spanID[:], ev.Hash()|1)
	return trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
		Remote:     true,
	})
}
