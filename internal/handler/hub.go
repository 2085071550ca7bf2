package handler

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/factory-arena/internal/arena"
)

// Event types sent over WebSocket.
const (
	EventConnected      = "connected"
	EventStandings      = "standings"
	EventMatchCompleted = "match_completed"
)

// WSEvent is the envelope for all WebSocket messages.
type WSEvent struct {
	Type    string `json:"type"`
	Pairing string `json:"pairing"`
	Data    any    `json:"data"`
}

// ClientMessage is the envelope for messages sent from the client.
type ClientMessage struct {
	Action  string `json:"action"` // "subscribe" or "unsubscribe"
	Pairing string `json:"pairing"`
}

// WSConn wraps a WebSocket connection with its spectator and outgoing queue.
type WSConn struct {
	conn      *websocket.Conn
	spectator string
	send      chan []byte
}

// Hub manages spectator connections and their pairing subscriptions.
type Hub struct {
	mu          sync.RWMutex
	connections map[*WSConn]bool
	pairings    map[string]map[*WSConn]bool
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		connections: make(map[*WSConn]bool),
		pairings:    make(map[string]map[*WSConn]bool),
	}
}

// Register adds a connection to the hub.
func (h *Hub) Register(c *WSConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connections[c] = true
}

// Unregister removes a connection from the hub and all its subscriptions.
func (h *Hub) Unregister(c *WSConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.connections[c] {
		return
	}
	delete(h.connections, c)
	for id, conns := range h.pairings {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.pairings, id)
		}
	}
	close(c.send)
}

// Subscribe adds a connection to a pairing's channel.
func (h *Hub) Subscribe(c *WSConn, pairing string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.pairings[pairing] == nil {
		h.pairings[pairing] = make(map[*WSConn]bool)
	}
	h.pairings[pairing][c] = true
}

// Unsubscribe removes a connection from a pairing's channel.
func (h *Hub) Unsubscribe(c *WSConn, pairing string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.pairings[pairing]; ok {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.pairings, pairing)
		}
	}
}

// Broadcast sends an event to every connection subscribed to a pairing.
// Slow connections miss events rather than stall the arena.
func (h *Hub) Broadcast(pairing string, event WSEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("pairing", pairing).Msg("Failed to marshal WebSocket event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.pairings[pairing] {
		select {
		case c.send <- data:
		default:
			log.Warn().Str("spectator", c.spectator).Str("pairing", pairing).Msg("Dropping WebSocket message, buffer full")
		}
	}
}

// ConnectionCount returns the total number of active connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// SubscriberCount returns the number of connections subscribed to a pairing.
func (h *Hub) SubscriberCount(pairing string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.pairings[pairing])
}

// Feed publishes one arena's progress to the hub. It is both an
// arena.Reporter (standings after every match) and an arena.Recorder (each
// match outcome).
type Feed struct {
	hub     *Hub
	pairing string
}

// NewFeed creates a Feed for the named pairing.
func NewFeed(hub *Hub, names [2]string) *Feed {
	return &Feed{hub: hub, pairing: arena.PairingID(names)}
}

// Pairing returns the pairing id the feed publishes on.
func (f *Feed) Pairing() string { return f.pairing }

func (f *Feed) Report(snap arena.Snapshot) {
	f.hub.Broadcast(f.pairing, WSEvent{Type: EventStandings, Pairing: f.pairing, Data: snap})
}

func (f *Feed) Record(_ context.Context, o arena.Outcome) error {
	f.hub.Broadcast(f.pairing, WSEvent{Type: EventMatchCompleted, Pairing: f.pairing, Data: o})
	return nil
}
