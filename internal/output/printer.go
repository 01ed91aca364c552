package output

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/mrzor/endpoint-sec/internal/eventprocessor"
)

// Printer writes one debug line per message.
type Printer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewPrinter creates a printer writing to w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// HandleEvent implements eventprocessor.Sink.
func (p *Printer) HandleEvent(_ context.Context, d eventprocessor.Delivery) error {
	line := d.Message.String()

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, err := fmt.Fprintln(p.w, line); err != nil {
		return fmt.Errorf("writing event: %w", err)
	}
	return nil
}
