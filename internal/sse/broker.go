// Package sse broadcasts storage events to the UI over Server-Sent Events.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// RefreshEvent is the payload-less signal telling consumers to re-read all
// cached lists.
const RefreshEvent = "storage-refresh"

// StatusEvent carries the capability status after it changes.
const StatusEvent = "storage-status"

// Event represents an SSE event to broadcast.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Broker manages SSE client connections and broadcasts events.
//
// A single goroutine owns the client set and the refresh throttle state;
// public methods talk to it over channels.
type Broker struct {
	refreshMin time.Duration

	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	refreshCh     chan struct{}
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
	sent    atomic.Int64
}

// NewBroker creates a broker that emits at most one storage-refresh per
// throttle interval. A refresh requested inside the interval is delivered
// when it ends.
func NewBroker(refreshThrottle time.Duration) *Broker {
	if refreshThrottle < 0 {
		refreshThrottle = 0
	}
	b := &Broker{
		refreshMin:    refreshThrottle,
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		refreshCh:     make(chan struct{}, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	var lastRefresh time.Time
	var trailing *time.Timer
	var trailingC <-chan time.Time

	broadcast := func(event Event) {
		payload, err := json.Marshal(event.Data)
		if err != nil {
			return
		}
		raw := []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", event.Type, payload))
		for ch := range clients {
			select {
			case ch <- raw:
			default:
				// Slow client; drop rather than stall the loop.
			}
		}
	}
	refresh := func(now time.Time) {
		lastRefresh = now
		b.sent.Add(1)
		broadcast(Event{Type: RefreshEvent, Data: struct{}{}})
	}

	for {
		select {
		case <-b.stopCh:
			if trailing != nil {
				trailing.Stop()
			}
			for ch := range clients {
				close(ch)
			}
			return

		case ch := <-b.subscribeCh:
			clients[ch] = struct{}{}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			broadcast(event)

		case <-b.refreshCh:
			if trailingC != nil {
				continue
			}
			now := time.Now()
			if wait := b.refreshMin - now.Sub(lastRefresh); wait > 0 {
				trailing = time.NewTimer(wait)
				trailingC = trailing.C
				continue
			}
			refresh(now)

		case now := <-trailingC:
			trailing, trailingC = nil, nil
			refresh(now)

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close gracefully stops broker loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a new client and returns its channel of encoded SSE frames.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}
	select {
	case b.subscribeCh <- ch:
	case <-b.stopped:
		close(ch)
	}
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}
	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}
	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends an event to all connected clients.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PublishRefresh requests a storage-refresh broadcast.
func (b *Broker) PublishRefresh() {
	if b.closed.Load() {
		return
	}
	select {
	case b.refreshCh <- struct{}{}:
	case <-b.stopped:
	default:
		// A refresh is already queued; it covers this one.
	}
}

// RefreshesSent returns how many storage-refresh events were broadcast.
func (b *Broker) RefreshesSent() int64 {
	return b.sent.Load()
}

// ServeHTTP is the SSE endpoint handler (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
