// Package dedup suppresses repeated events within a bounded window.
//
// Events are keyed by kind, the hash of the process that caused them and the
// hash of the event itself, so the same event from two processes is never a
// duplicate. Equal events always share a key; on a key hit the stored debug
// rendering is compared as well, so a hash collision is never reported as a
// duplicate.
package dedup

import (
	"fmt"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru"

	"github.com/mrzor/endpoint-sec/internal/event"
)

type key struct {
	kind    event.Kind
	process uint64
	hash    uint64
}

// Window remembers the most recent distinct events, evicting the least
// recently seen.
type Window struct {
	cache      *lru.Cache
	duplicates atomic.Uint64
	collisions atomic.Uint64
}

// New creates a window holding up to size distinct events.
func New(size int) (*Window, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("creating dedup window: %w", err)
	}
	return &Window{cache: cache}, nil
}

// Seen records ev, delivered in m, and reports whether an equal event from
// an equal process is already in the window. It must be called inside the
// delivery scope; the window keeps only owned copies.
func (w *Window) Seen(m event.Message, ev event.Event) bool {
	k := key{kind: ev.Kind(), hash: ev.Hash()}
	debug := ev.String()
	if proc, ok := m.Process(); ok {
		k.process = proc.Hash()
		debug = proc.String() + " " + debug
	}

	prev, found, _ := w.cache.PeekOrAdd(k, debug)
	if !found {
		return false
	}
	if prev.(string) != debug {
		w.collisions.Add(1)
		w.cache.Add(k, debug)
		return false
	}
	w.cache.Get(k) // refresh recency
	w.duplicates.Add(1)
	return true
}

// Duplicates returns how many events Seen reported as repeats.
func (w *Window) Duplicates() uint64 {
	return w.duplicates.Load()
}

// Collisions returns how many hash collisions between distinct events were seen.
func (w *Window) Collisions() uint64 {
	return w.collisions.Load()
}

// Len returns the number of distinct events currently remembered.
func (w *Window) Len() int {
	return w.cache.Len()
}
