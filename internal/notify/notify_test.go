package notify

import (
	"testing"
	"time"
)

func TestPublishReachesAllSubscribers(t *testing.T) {
	n := New()

	ch1, cancel1 := n.Subscribe()
	defer cancel1()
	ch2, cancel2 := n.Subscribe()
	defer cancel2()

	n.Changed()

	for i, ch := range []<-chan Event{ch1, ch2} {
		select {
		case ev := <-ch:
			if ev.Type != EventChanged {
				t.Fatalf("subscriber %d got %q, want %q", i, ev.Type, EventChanged)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d got no event", i)
		}
	}
}

func TestCancelStopsDelivery(t *testing.T) {
	n := New()

	ch, cancel := n.Subscribe()
	cancel()
	cancel() // double cancel is safe

	n.Changed()

	// The channel is closed; receiving yields the zero value immediately.
	if ev, ok := <-ch; ok {
		t.Fatalf("received %+v on cancelled subscription", ev)
	}
}

func TestEventPayloads(t *testing.T) {
	n := New()
	ch, cancel := n.Subscribe()
	defer cancel()

	n.JoinStream("global_stream")
	ev := <-ch
	if ev.Type != EventJoinStream || ev.StreamID != "global_stream" {
		t.Fatalf("JoinStream event = %+v", ev)
	}

	n.OpenApp("https://example.com/app", "Mini App")
	ev = <-ch
	if ev.Type != EventOpenApp || ev.URL != "https://example.com/app" || ev.Title != "Mini App" {
		t.Fatalf("OpenApp event = %+v", ev)
	}

	n.AuthChanged()
	ev = <-ch
	if ev.Type != EventAuth {
		t.Fatalf("AuthChanged event = %+v", ev)
	}
}

func TestSlowSubscriberIsSkippedNotWaitedOn(t *testing.T) {
	n := New()

	ch, cancel := n.Subscribe()
	defer cancel()

	// Overflow the buffer; Publish must never block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 600; i++ {
			n.Changed()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("Publish blocked on a slow subscriber")
	}

	// Drain what was buffered; the rest was dropped.
	drained := 0
	for {
		select {
		case <-ch:
			drained++
		default:
			if drained == 0 {
				t.Fatalf("nothing buffered at all")
			}
			return
		}
	}
}

func TestHubTracksConnectedClients(t *testing.T) {
	n := New()
	h := NewHub(n, nil)
	go h.Run()

	client := &Client{uid: "alice", send: make(chan Event, 1)}
	h.register <- client

	waitForClients(t, h, 1)
	uids := h.ConnectedUIDs()
	if len(uids) != 1 || uids[0] != "alice" {
		t.Fatalf("ConnectedUIDs = %v, want [alice]", uids)
	}

	h.unregister <- client
	waitForClients(t, h, 0)
	if got := h.ConnectedUIDs(); len(got) != 0 {
		t.Fatalf("ConnectedUIDs after disconnect = %v, want empty", got)
	}
}

func waitForClients(t *testing.T, h *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for h.count() != want {
		if time.Now().After(deadline) {
			t.Fatalf("client count = %d, want %d", h.count(), want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestListenRunsCallback(t *testing.T) {
	n := New()

	got := make(chan Event, 1)
	cancel := n.Listen(func(ev Event) { got <- ev })
	defer cancel()

	n.Changed()

	select {
	case ev := <-got:
		if ev.Type != EventChanged {
			t.Fatalf("callback event = %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatalf("callback never ran")
	}
}
