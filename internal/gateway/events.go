package gateway

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/flemzord/codeshift/internal/translate"
)

const eventWriteTimeout = 5 * time.Second

// Event types.
const (
	EventFileStarted = "file_started"
	EventWindowDone  = "window_done"
	EventFileDone    = "file_done"
)

// Event is the JSON form of a driver event sent to websocket clients.
type Event struct {
	Type        string        `json:"type"`
	Time        time.Time     `json:"time"`
	File        string        `json:"file"`
	Destination string        `json:"destination,omitempty"`
	Window      int           `json:"window,omitempty"`
	Start       int           `json:"start,omitempty"`
	End         int           `json:"end,omitempty"`
	State       string        `json:"state,omitempty"`
	Skipped     bool          `json:"skipped,omitempty"`
	Lines       int           `json:"lines,omitempty"`
	Attempts    int           `json:"attempts,omitempty"`
	Duration    time.Duration `json:"duration_ns,omitempty"`
	Error       string        `json:"error,omitempty"`
}

// Hub fans driver events out to subscribers. A slow subscriber loses
// events rather than stalling translation.
type Hub struct {
	buffer  int
	dropped atomic.Int64

	mu   sync.Mutex
	subs map[chan Event]struct{}
}

var _ translate.Observer = (*Hub)(nil)

// NewHub returns a Hub queueing up to buffer events per subscriber.
func NewHub(buffer int) *Hub {
	return &Hub{buffer: buffer, subs: make(map[chan Event]struct{})}
}

// Subscribe registers a subscriber. The returned function unsubscribes
// and closes the channel.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, h.buffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Subscribers returns the number of current subscribers.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Dropped returns the number of events dropped for slow subscribers.
func (h *Hub) Dropped() int64 { return h.dropped.Load() }

// Publish delivers ev to every subscriber without blocking.
func (h *Hub) Publish(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
			h.dropped.Add(1)
		}
	}
}

// FileStarted implements translate.Observer.
func (h *Hub) FileStarted(e translate.FileEvent) {
	h.Publish(Event{Type: EventFileStarted, Time: time.Now(), File: e.File, Destination: e.Destination})
}

// WindowDone implements translate.Observer.
func (h *Hub) WindowDone(e translate.WindowEvent) {
	h.Publish(Event{
		Type:     EventWindowDone,
		Time:     time.Now(),
		File:     e.File,
		Window:   e.Index,
		Start:    e.Start,
		End:      e.End,
		State:    e.State.String(),
		Skipped:  e.Skipped,
		Lines:    e.Lines,
		Attempts: e.Attempts,
		Duration: e.Duration,
		Error:    errString(e.Err),
	})
}

// FileDone implements translate.Observer.
func (h *Hub) FileDone(e translate.FileEvent) {
	h.Publish(Event{
		Type:        EventFileDone,
		Time:        time.Now(),
		File:        e.File,
		Destination: e.Destination,
		Window:      e.Result.Windows,
		Lines:       e.Result.Lines,
		Duration:    e.Result.Duration,
		Error:       errString(e.Err),
	})
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// handleEvents streams events to a websocket client until it disconnects
// or the gateway stops.
func (g *Gateway) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		g.logger.Warn("websocket accept failed", "error", err)
		return
	}
	defer func() { _ = conn.CloseNow() }()

	events, unsubscribe := g.hub.Subscribe()
	defer unsubscribe()

	// Clients only listen; CloseRead handles their control frames.
	ctx := conn.CloseRead(r.Context())
	for {
		select {
		case <-ctx.Done():
			return
		case <-g.done():
			_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
			return
		case ev := <-events:
			wctx, cancel := context.WithTimeout(ctx, eventWriteTimeout)
			err := wsjson.Write(wctx, conn, ev)
			cancel()
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					g.logger.Debug("websocket write failed", "error", err)
				}
				return
			}
		}
	}
}
