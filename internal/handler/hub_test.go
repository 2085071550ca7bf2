package handler

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/freeeve/factory-arena/internal/arena"
)

func newTestConn(spectator string) *WSConn {
	return &WSConn{
		conn:      nil, // no real connection for hub tests
		spectator: spectator,
		send:      make(chan []byte, 256),
	}
}

func receive(t *testing.T, c *WSConn) WSEvent {
	t.Helper()
	select {
	case msg := <-c.send:
		var event WSEvent
		if err := json.Unmarshal(msg, &event); err != nil {
			t.Fatalf("unmarshal event: %v", err)
		}
		return event
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
	return WSEvent{}
}

func TestHubRegisterUnregister(t *testing.T) {
	hub := NewHub()
	c := newTestConn("spectator-1")

	hub.Register(c)
	if hub.ConnectionCount() != 1 {
		t.Errorf("expected 1 connection, got %d", hub.ConnectionCount())
	}

	hub.Unregister(c)
	if hub.ConnectionCount() != 0 {
		t.Errorf("expected 0 connections, got %d", hub.ConnectionCount())
	}

	// A second Unregister must not close the queue twice.
	hub.Unregister(c)
}

func TestHubSubscribeUnsubscribe(t *testing.T) {
	hub := NewHub()
	c := newTestConn("spectator-1")
	hub.Register(c)
	defer hub.Unregister(c)

	hub.Subscribe(c, "a_vs_b")
	if hub.SubscriberCount("a_vs_b") != 1 {
		t.Errorf("expected 1 subscriber, got %d", hub.SubscriberCount("a_vs_b"))
	}

	hub.Unsubscribe(c, "a_vs_b")
	if hub.SubscriberCount("a_vs_b") != 0 {
		t.Errorf("expected 0 subscribers, got %d", hub.SubscriberCount("a_vs_b"))
	}
}

func TestHubBroadcast(t *testing.T) {
	hub := NewHub()
	c1 := newTestConn("spectator-1")
	c2 := newTestConn("spectator-2")
	c3 := newTestConn("spectator-3") // not subscribed

	for _, c := range []*WSConn{c1, c2, c3} {
		hub.Register(c)
		defer hub.Unregister(c)
	}
	hub.Subscribe(c1, "a_vs_b")
	hub.Subscribe(c2, "a_vs_b")

	hub.Broadcast("a_vs_b", WSEvent{Type: EventStandings, Pairing: "a_vs_b"})

	for _, c := range []*WSConn{c1, c2} {
		if ev := receive(t, c); ev.Type != EventStandings {
			t.Errorf("expected standings, got %s", ev.Type)
		}
	}

	select {
	case <-c3.send:
		t.Error("c3 should not have received broadcast")
	default:
	}
}

func TestHubBroadcastDropsWhenFull(t *testing.T) {
	hub := NewHub()
	c := &WSConn{spectator: "slow", send: make(chan []byte, 1)}
	hub.Register(c)
	defer hub.Unregister(c)
	hub.Subscribe(c, "p")

	hub.Broadcast("p", WSEvent{Type: "one"})
	hub.Broadcast("p", WSEvent{Type: "two"})

	if ev := receive(t, c); ev.Type != "one" {
		t.Errorf("expected first event kept, got %s", ev.Type)
	}
	select {
	case <-c.send:
		t.Error("second event should have been dropped")
	default:
	}
}

func TestHubUnregisterCleansUpSubscriptions(t *testing.T) {
	hub := NewHub()
	c := newTestConn("spectator-1")
	hub.Register(c)
	hub.Subscribe(c, "p1")
	hub.Subscribe(c, "p2")

	hub.Unregister(c)

	if hub.SubscriberCount("p1") != 0 || hub.SubscriberCount("p2") != 0 {
		t.Error("expected no subscribers after unregister")
	}
}

func TestHubConcurrentAccess(t *testing.T) {
	hub := NewHub()
	var wg sync.WaitGroup

	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := newTestConn("spectator")
			hub.Register(c)
			hub.Subscribe(c, "p")
			hub.Broadcast("p", WSEvent{Type: "test", Pairing: "p"})
			hub.Unsubscribe(c, "p")
			hub.Unregister(c)
		}()
	}

	wg.Wait()
	if hub.ConnectionCount() != 0 {
		t.Errorf("expected 0 connections after concurrent test, got %d", hub.ConnectionCount())
	}
}

func TestFeed(t *testing.T) {
	hub := NewHub()
	feed := NewFeed(hub, [2]string{"alpha", "beta"})
	if feed.Pairing() != "alpha_vs_beta" {
		t.Fatalf("Pairing = %q", feed.Pairing())
	}

	c := newTestConn("spectator-1")
	hub.Register(c)
	defer hub.Unregister(c)
	hub.Subscribe(c, feed.Pairing())

	var _ arena.Reporter = feed
	var _ arena.Recorder = feed

	feed.Report(arena.Snapshot{Games: 3})
	ev := receive(t, c)
	if ev.Type != EventStandings || ev.Pairing != "alpha_vs_beta" {
		t.Errorf("event = %+v", ev)
	}
	data, _ := ev.Data.(map[string]any)
	if data["games"] != float64(3) {
		t.Errorf("games = %v, want 3", data["games"])
	}

	if err := feed.Record(context.Background(), arena.Outcome{MatchID: "m-1"}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	ev = receive(t, c)
	if ev.Type != EventMatchCompleted {
		t.Errorf("expected match_completed, got %s", ev.Type)
	}
	data, _ = ev.Data.(map[string]any)
	if data["match_id"] != "m-1" {
		t.Errorf("match_id = %v", data["match_id"])
	}
}
