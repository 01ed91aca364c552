package detect

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Reloader watches the rules directory and reloads the detector on change.
type Reloader struct {
	watcher  *fsnotify.Watcher
	detector *Detector
	delay    time.Duration
	reloaded chan struct{}
}

// NewReloader creates a file watcher on the detector's rules directory.
func NewReloader(d *Detector) (*Reloader, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := watcher.Add(d.Dir()); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %q: %w", d.Dir(), err)
	}

	return &Reloader{
		watcher:  watcher,
		detector: d,
		delay:    500 * time.Millisecond,
		reloaded: make(chan struct{}, 1),
	}, nil
}

// Reloaded signals after each reload attempt.
func (r *Reloader) Reloaded() <-chan struct{} { return r.reloaded }

// Run watches for file changes and reloads rules. Blocks until ctx is cancelled.
func (r *Reloader) Run(ctx context.Context) error {
	defer r.watcher.Close()

	// Debounce: wait after the last change before reloading
	var debounce *time.Timer

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return nil

		case event, ok := <-r.watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(r.delay, r.reload)
			}

		case err, ok := <-r.watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("rules watcher error: %v", err)
		}
	}
}

func (r *Reloader) reload() {
	if err := r.detector.Load(); err != nil {
		log.Printf("hot-reload: %v", err)
	} else {
		log.Printf("hot-reload: %d rules active", r.detector.Len())
	}
	select {
	case r.reloaded <- struct{}{}:
	default:
	}
}
