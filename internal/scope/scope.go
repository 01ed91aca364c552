// Package scope bounds the validity of views to a single delivery callback.
//
// The dispatcher owns the message buffer and may reuse it as soon as the
// callback returns. A Scope is opened with Enter right before the callback
// and closed with End right after; every Ref handed out in between carries
// the scope's generation, and each access compares it with the current one.
// Using a view after End is a contract violation and panics with *Violation.
//
// The generation is read atomically, so checking a Ref never races with End
// and views may be read from several goroutines during the window.
package scope

import (
	"fmt"
	"sync/atomic"
)

// Scope is the validity window of one delivery at a time.
// An odd generation means a window is open.
type Scope struct {
	gen atomic.Uint64
}

// New returns a closed scope.
func New() *Scope {
	return &Scope{}
}

// Enter opens a window over buf and returns the root reference to it.
// Enter panics if a window is already open.
func (s *Scope) Enter(buf []byte) Ref {
	for {
		gen := s.gen.Load()
		if gen%2 == 1 {
			panic(&Violation{Generation: gen, Current: gen, Reason: "scope entered twice"})
		}
		if s.gen.CompareAndSwap(gen, gen+1) {
			return Ref{scope: s, gen: gen + 1, buf: buf}
		}
	}
}

// End closes the current window. Refs obtained from it become unusable.
func (s *Scope) End() {
	for {
		gen := s.gen.Load()
		if gen%2 == 0 {
			panic(&Violation{Generation: gen, Current: gen, Reason: "scope ended while closed"})
		}
		if s.gen.CompareAndSwap(gen, gen+1) {
			return
		}
	}
}

// Active reports whether a window is open.
func (s *Scope) Active() bool {
	return s.gen.Load()%2 == 1
}

// Generation returns the current generation counter.
func (s *Scope) Generation() uint64 {
	return s.gen.Load()
}

// Do opens a window over buf for the duration of fn.
func (s *Scope) Do(buf []byte, fn func(Ref) error) error {
	ref := s.Enter(buf)
	defer s.End()
	return fn(ref)
}

// Ref is a generation-stamped borrow of a message buffer.
// The zero Ref is never valid.
type Ref struct {
	scope *Scope
	gen   uint64
	buf   []byte
}

// Valid reports whether the window that produced r is still open.
func (r Ref) Valid() bool {
	return r.scope != nil && r.scope.gen.Load() == r.gen
}

// Check panics with *Violation if r outlived its window.
func (r Ref) Check() {
	if !r.Valid() {
		panic(r.violation())
	}
}

// Bytes returns the borrowed buffer after checking the generation.
// The slice aliases dispatcher memory: do not modify it, and do not keep it
// past the callback.
func (r Ref) Bytes() []byte {
	r.Check()
	return r.buf
}

// Generation returns the stamp r was issued with.
func (r Ref) Generation() uint64 {
	return r.gen
}

func (r Ref) violation() *Violation {
	if r.scope == nil {
		return &Violation{Reason: "view has no scope"}
	}
	return &Violation{
		Generation: r.gen,
		Current:    r.scope.gen.Load(),
		Reason:     "view used after its delivery scope ended",
	}
}

// Violation is the panic value for views used outside their scope.
type Violation struct {
	Generation uint64
	Current    uint64
	Reason     string
}

func (v *Violation) Error() string {
	return fmt.Sprintf("scope: %s (generation %d, current %d)", v.Reason, v.Generation, v.Current)
}
