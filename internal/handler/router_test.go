package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/freeeve/factory-arena/internal/arena"
	"github.com/freeeve/factory-arena/internal/auth"
)

const testSecret = "test-secret"

func newTestServer(t *testing.T) (*httptest.Server, *Hub, *arena.Standings) {
	t.Helper()
	names := [2]string{"alpha", "beta"}
	standings := arena.NewStandings(names)
	hub := NewHub()
	jwtMgr := auth.NewJWTManager(testSecret)

	router := NewRouter(jwtMgr,
		NewStandingsHandler(standings),
		NewWSHandler(hub, jwtMgr, standings, arena.PairingID(names)))
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, hub, standings
}

func token(t *testing.T) string {
	t.Helper()
	tok, err := auth.NewJWTManager(testSecret).GenerateToken("watcher", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	return tok
}

func TestHealthz(t *testing.T) {
	srv, _, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}

func TestStandingsRequiresToken(t *testing.T) {
	srv, _, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/api/v1/standings")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", resp.StatusCode)
	}
}

func TestStandings(t *testing.T) {
	srv, _, standings := newTestServer(t)
	standings.Add(0)
	standings.Add(-1)

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/v1/standings", nil)
	req.Header.Set("Authorization", "Bearer "+token(t))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	var snap arena.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.Games != 2 || snap.Draws != 1 || snap.Points != [2]float64{1.5, 0.5} {
		t.Errorf("snapshot = %+v", snap)
	}
	if snap.Names != [2]string{"alpha", "beta"} {
		t.Errorf("names = %v", snap.Names)
	}
}

func TestStandingsNotRunning(t *testing.T) {
	rec := httptest.NewRecorder()
	NewStandingsHandler(nil).Get(rec, httptest.NewRequest(http.MethodGet, "/standings", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}

func wsURL(srv *httptest.Server, tok string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws?token=" + tok
}

func TestServeWSRejectsBadToken(t *testing.T) {
	srv, _, _ := newTestServer(t)
	for _, tok := range []string{"", "garbage"} {
		_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, tok), nil)
		if err == nil {
			t.Fatalf("dial with token %q succeeded", tok)
		}
		if resp == nil || resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("token %q: response = %v, want 401", tok, resp)
		}
	}
}

func TestServeWSStreamsStandings(t *testing.T) {
	srv, hub, standings := newTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, token(t)), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var ev WSEvent
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read welcome: %v", err)
	}
	if ev.Type != EventConnected || ev.Pairing != "alpha_vs_beta" {
		t.Errorf("welcome = %+v", ev)
	}

	feed := NewFeed(hub, [2]string{"alpha", "beta"})
	feed.Report(standings.Add(0))

	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read standings: %v", err)
	}
	if ev.Type != EventStandings {
		t.Errorf("expected standings, got %s", ev.Type)
	}
	data, _ := ev.Data.(map[string]any)
	if data["games"] != float64(1) {
		t.Errorf("games = %v, want 1", data["games"])
	}
}
