package handler

import (
	"net/http"

	"github.com/freeeve/factory-arena/internal/auth"
	"github.com/freeeve/factory-arena/internal/logger"
	"github.com/freeeve/factory-arena/internal/middleware"
)

// StandingsHandler serves the arena standings as JSON.
type StandingsHandler struct {
	standings StandingsSource
}

// NewStandingsHandler creates a StandingsHandler.
func NewStandingsHandler(standings StandingsSource) *StandingsHandler {
	return &StandingsHandler{standings: standings}
}

// Get handles GET /api/v1/standings.
func (h *StandingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.standings == nil {
		writeError(w, http.StatusServiceUnavailable, "arena not running")
		return
	}
	snap := h.standings.Snapshot()
	l := logger.ForRequest(r.Context())
	l.Debug().Str("spectator", auth.SpectatorFromContext(r.Context())).Int("games", snap.Games).Msg("Standings requested")
	writeJSON(w, http.StatusOK, snap)
}

// NewRouter wires the status server: a public health check, JWT-protected
// standings, and the WebSocket progress stream.
func NewRouter(jwtMgr *auth.JWTManager, standings *StandingsHandler, ws *WSHandler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	api := http.NewServeMux()
	api.HandleFunc("GET /standings", standings.Get)
	mux.Handle("/api/v1/", http.StripPrefix("/api/v1", auth.Middleware(jwtMgr)(api)))

	// WebSocket (auth via query param, not middleware)
	mux.HandleFunc("GET /api/v1/ws", ws.ServeWS)

	return middleware.Chain(mux, middleware.Logger, middleware.CORS("*"), middleware.JSON)
}
