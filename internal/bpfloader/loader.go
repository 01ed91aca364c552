// Package bpfloader opens the ring buffer map pinned by the event producer.
package bpfloader

import (
	"errors"
	"fmt"

	"github.com/cilium/ebpf"
	"github.com/cilium/ebpf/ringbuf"
)

// Loader owns the pinned map and the reader attached to it.
type Loader struct {
	m  *ebpf.Map
	rd *ringbuf.Reader
}

// Open loads the map pinned at path and attaches a ring buffer reader.
func Open(path string) (*Loader, error) {
	m, err := ebpf.LoadPinnedMap(path, nil)
	if err != nil {
		return nil, fmt.Errorf("loading pinned map %s: %w", path, err)
	}
	if m.Type() != ebpf.RingBuf {
		_ = m.Close() //nolint:errcheck // Best-effort cleanup in error path
		return nil, fmt.Errorf("pinned map %s is a %s, want %s", path, m.Type(), ebpf.RingBuf)
	}

	rd, err := ringbuf.NewReader(m)
	if err != nil {
		_ = m.Close() //nolint:errcheck // Best-effort cleanup in error path
		return nil, fmt.Errorf("opening ring buffer: %w", err)
	}
	return &Loader{m: m, rd: rd}, nil
}

// Reader returns the ring buffer reader. It stays owned by the Loader.
func (l *Loader) Reader() *ringbuf.Reader { return l.rd }

// Size returns the ring buffer size in bytes.
func (l *Loader) Size() int { return l.rd.BufferSize() }

// Close closes the reader, which unblocks any pending read, then the map.
// Closing twice is a no-op.
func (l *Loader) Close() error {
	var errs []error

	if l.rd != nil {
		if err := l.rd.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing ring buffer reader: %w", err))
		}
		l.rd = nil
	}
	if l.m != nil {
		if err := l.m.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing map: %w", err))
		}
		l.m = nil
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during cleanup: %w", errors.Join(errs...))
	}
	return nil
}
