// Package event exposes producer messages as typed, zero-copy views.
//
// Control flow for one delivery:
//
//	┌───────────────────────────────┐
//	│  dispatcher (ring buffer)     │  owns the buffer
//	└───────────────┬───────────────┘
//	                │ scope.Enter(buf)
//	                ▼
//	┌───────────────────────────────┐
//	│  event.NewMessage(ref)        │  header accessors, Process()
//	└───────────────┬───────────────┘
//	                │ Message.Event()
//	                ▼
//	┌───────────────────────────────┐
//	│  EventSetgid, EventSetExtAttr │  one view per kind
//	│  ...                          │  nested File / Stat / Process views
//	└───────────────┬───────────────┘
//	                │ scope.End()
//	                ▼
//	          views are dead
//
// Views never copy the record. Each accessor re-checks the scope
// generation, decodes one field and returns either a value, a byte slice
// aliasing the buffer, or a nested view sharing the parent's scope. Copy
// byte slices (or use Fields) to keep anything past the callback.
//
// Value semantics come from each type's descriptor (see package
// descriptor). The published field orders are listed in the registry and
// must not change: hashes depend on them.
package event
