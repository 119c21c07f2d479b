// Package notify implements the change-notification layer: a process-wide
// broadcast that tells every subscriber "server-visible state changed,
// re-fetch". Events carry no description of what changed; consumers must be
// idempotent because every mutation fans out to every listener.
package notify

import (
	"log"
	"sync"
)

const (
	// EventChanged is the undifferentiated "something changed" signal fired
	// after any mutating store operation.
	EventChanged = "server-update"
	// EventAuth signals that the active session account changed.
	EventAuth = "auth-change"
	// EventJoinStream asks clients to open the live stream view.
	EventJoinStream = "join-stream"
	// EventOpenApp asks clients to open an embedded mini-app.
	EventOpenApp = "open-app"
)

type Event struct {
	Type     string `json:"type"`
	StreamID string `json:"stream_id,omitempty"`
	URL      string `json:"url,omitempty"`
	Title    string `json:"title,omitempty"`
}

type subscriber struct {
	id int
	ch chan Event
}

// Notifier fans events out to all current subscribers. Delivery order across
// subscribers is unspecified; a slow subscriber is skipped, never waited on.
type Notifier struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan Event
}

func New() *Notifier {
	return &Notifier{subs: make(map[int]chan Event)}
}

// Changed fires the fire-and-forget global change signal.
func (n *Notifier) Changed() {
	n.Publish(Event{Type: EventChanged})
}

// AuthChanged signals that the active account changed.
func (n *Notifier) AuthChanged() {
	n.Publish(Event{Type: EventAuth})
}

// JoinStream broadcasts a request to open the given live stream.
func (n *Notifier) JoinStream(streamID string) {
	n.Publish(Event{Type: EventJoinStream, StreamID: streamID})
}

// OpenApp broadcasts a request to open an external mini-app.
func (n *Notifier) OpenApp(url, title string) {
	n.Publish(Event{Type: EventOpenApp, URL: url, Title: title})
}

func (n *Notifier) Publish(ev Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for id, ch := range n.subs {
		select {
		case ch <- ev:
		default:
			log.Printf("notify: subscriber %d full, dropping %s", id, ev.Type)
		}
	}
}

// Subscribe registers a listener. The returned function removes it; calling
// it more than once is safe.
func (n *Notifier) Subscribe() (<-chan Event, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.nextID++
	id := n.nextID
	ch := make(chan Event, 256)
	n.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.subs, id)
			n.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Listen runs cb on every event until the returned cancel is called. cb is
// invoked from a dedicated goroutine, one event at a time.
func (n *Notifier) Listen(cb func(Event)) func() {
	ch, cancel := n.Subscribe()
	go func() {
		for ev := range ch {
			cb(ev)
		}
	}()
	return cancel
}
