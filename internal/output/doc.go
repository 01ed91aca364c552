// Package output provides the sinks turning processed events into output.
//
// OTELFormatter is a pure formatting layer that:
//   - Receives deliveries from the event processor
//   - Creates one OpenTelemetry span per event
//   - Sets span attributes from the owned attribute environment
//
// It does NOT:
//   - Read the ring buffer
//   - Filter or deduplicate events
//   - Keep views past the delivery
//
// Printer writes each message's debug string as one line.
package output
