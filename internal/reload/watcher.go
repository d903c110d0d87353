// Package reload reports configuration changes to long-running commands:
// edits of the configuration file, detected by polling its content, and
// SIGHUP.
package reload

import (
	"bytes"
	"context"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/zeebo/blake3"
)

// DefaultPollInterval is used when NewWatcher is given no interval.
const DefaultPollInterval = 5 * time.Second

// Source tells what triggered an Event.
type Source string

const (
	SourceFile   Source = "file"
	SourceSignal Source = "signal"
)

// Event is one reload request.
type Event struct {
	Source Source
	Path   string
}

// Watcher polls a configuration file and listens for SIGHUP. A rewrite
// that leaves the content unchanged, a touch for instance, is not
// reported.
type Watcher struct {
	path     string
	interval time.Duration
	events   chan Event
	stop     chan struct{}
	stopped  chan struct{}

	started   atomic.Bool
	startOnce sync.Once
	stopOnce  sync.Once
}

// NewWatcher returns a watcher for path. A non-positive interval means
// DefaultPollInterval.
func NewWatcher(path string, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Watcher{
		path:     path,
		interval: interval,
		events:   make(chan Event, 1),
		stop:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

// Start begins watching. Only the first call has an effect.
func (w *Watcher) Start(ctx context.Context) {
	w.startOnce.Do(func() {
		w.started.Store(true)
		go w.run(ctx)
	})
}

// Events returns the channel of reload requests. Requests arriving while
// one is pending are coalesced.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Stop stops the watcher and waits for it. Safe to call multiple times and
// before Start.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stop)
	})
	if w.started.Load() {
		<-w.stopped
	}
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.stopped)

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	last := w.digest()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case <-hup:
			w.emit(SourceSignal)
		case <-ticker.C:
			current := w.digest()
			if current == nil || bytes.Equal(current, last) {
				continue
			}
			last = current
			w.emit(SourceFile)
		}
	}
}

func (w *Watcher) emit(src Source) {
	select {
	case w.events <- Event{Source: src, Path: w.path}:
	default:
	}
}

// digest hashes the file content, or returns nil when it cannot be read.
func (w *Watcher) digest() []byte {
	raw, err := os.ReadFile(w.path)
	if err != nil {
		return nil
	}
	sum := blake3.Sum256(raw)
	return sum[:]
}
