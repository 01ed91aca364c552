// Package eventstream is the dispatcher: it owns the record buffer read from
// the ring buffer, opens a delivery scope around each record and hands the
// handler a Message view borrowed from that buffer.
//
// The reader reuses its buffer on the next ReadInto, so nothing derived from
// a delivered Message may be used once HandleMessage returns. Views check
// this themselves and panic with *scope.Violation.
package eventstream
