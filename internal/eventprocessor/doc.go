// Package eventprocessor coordinates event processing and routes endpoint
// security messages to sinks.
//
// Architecture:
//
//	┌─────────────────────────────────────────┐
//	│      ring buffer (eventstream)          │
//	└─────────────────┬───────────────────────┘
//	                  │ Message view, valid inside the delivery scope
//	                  ▼
//	┌─────────────────────────────────────────┐
//	│   eventprocessor                        │
//	│   - Decodes the event by kind           │
//	│   - Kind selection, filter, dedup       │
//	│   - Session lock tracking               │
//	└─────────┬───────────────────────────────┘
//	          │
//	          ├──→ output.OTELFormatter ──→ one span per event
//	          │
//	          ├──→ output.Printer ────────→ debug lines on stdout
//	          │
//	          └──→ detect.Detector ───────→ Sigma rule matches
//
// Sinks for a shareable kind run concurrently; HandleMessage waits for all
// of them, so no view outlives the delivery scope.
package eventprocessor
