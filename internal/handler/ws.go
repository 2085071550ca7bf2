package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/factory-arena/internal/arena"
	"github.com/freeeve/factory-arena/internal/auth"
)

const (
	writeWait   = 10 * time.Second
	pongWait    = 60 * time.Second
	pingPeriod  = 54 * time.Second // Must be less than pongWait
	maxMsgSize  = 4096
	sendBufSize = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// StandingsSource provides the current standings of the running arena.
type StandingsSource interface {
	Snapshot() arena.Snapshot
}

// WSHandler streams arena progress to spectators.
type WSHandler struct {
	hub       *Hub
	jwtMgr    *auth.JWTManager
	standings StandingsSource
	pairing   string
}

// NewWSHandler creates a WSHandler. New connections are subscribed to
// pairing and greeted with the current standings.
func NewWSHandler(hub *Hub, jwtMgr *auth.JWTManager, standings StandingsSource, pairing string) *WSHandler {
	return &WSHandler{hub: hub, jwtMgr: jwtMgr, standings: standings, pairing: pairing}
}

// ServeWS handles GET /api/v1/ws. Auth via ?token= query parameter
// (WebSocket can't send headers).
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		writeError(w, http.StatusUnauthorized, "missing token parameter")
		return
	}

	claims, err := h.jwtMgr.ValidateToken(tokenStr)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid or expired token")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := &WSConn{
		conn:      conn,
		spectator: claims.Spectator,
		send:      make(chan []byte, sendBufSize),
	}
	h.hub.Register(client)
	h.hub.Subscribe(client, h.pairing)

	welcome, _ := json.Marshal(WSEvent{
		Type:    EventConnected,
		Pairing: h.pairing,
		Data:    h.standings.Snapshot(),
	})
	client.send <- welcome

	go h.writePump(client)
	go h.readPump(client)

	log.Info().Str("spectator", claims.Spectator).Int("total", h.hub.ConnectionCount()).Msg("WebSocket client connected")
}

// readPump reads subscription changes from the WebSocket connection.
func (h *WSHandler) readPump(c *WSConn) {
	defer func() {
		h.hub.Unregister(c)
		c.conn.Close()
		log.Info().Str("spectator", c.spectator).Msg("WebSocket client disconnected")
	}()

	c.conn.SetReadLimit(maxMsgSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("spectator", c.spectator).Msg("WebSocket unexpected close")
			}
			break
		}

		var msg ClientMessage
		if err := json.Unmarshal(message, &msg); err != nil || msg.Pairing == "" {
			continue
		}

		switch msg.Action {
		case "subscribe":
			h.hub.Subscribe(c, msg.Pairing)
		case "unsubscribe":
			h.hub.Unsubscribe(c, msg.Pairing)
		}
	}
}

// writePump writes queued events to the WebSocket connection, one event per
// frame.
func (h *WSHandler) writePump(c *WSConn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
