// Package attributes evaluates user expressions against events.
//
// Expressions use the expr language and see one Env per delivered message:
//
//	kind     short kind name, e.g. "setgid"
//	event    the event's declared fields, e.g. event.gid, event.target.path
//	process  the instigating process, e.g. process.executable.path
//	message  header fields, e.g. message.seq_num
//
// Three users:
//   - Evaluator: custom span attributes
//   - Filter: boolean predicate deciding whether an event is kept
//   - TraceIDEvaluator: groups events into traces (32 hex chars)
//
// Invalid trace IDs are hashed with SHA-256 to produce valid IDs.
package attributes
