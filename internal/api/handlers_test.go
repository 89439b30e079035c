package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"pong-arena/internal/config"
	"pong-arena/internal/lobby"
	"pong-arena/internal/notify"
	"pong-arena/internal/tournament"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()

	hub := notify.NewHub()
	l := lobby.New(config.DefaultMatchmaking(), config.DefaultGame())
	t.Cleanup(l.Shutdown)
	tm := tournament.NewManager(l, hub, tournament.WithRandSeed(1))

	s := NewServer(config.DefaultServer(), l, tm, hub)
	t.Cleanup(func() { s.limiter.Stop() })

	ts := httptest.NewServer(s.Router())
	t.Cleanup(ts.Close)
	return s, ts
}

func postJSON(t *testing.T, url, identity string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if identity != "" {
		req.Header.Set(identityHeader, identity)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request %s: %v", url, err)
	}
	return resp
}

func getAs(t *testing.T, url, identity string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if identity != "" {
		req.Header.Set(identityHeader, identity)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request %s: %v", url, err)
	}
	return resp
}

func TestHealthEndpoint(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, expected 200", resp.StatusCode)
	}
}

func TestTournamentLifecycleOverHTTP(t *testing.T) {
	_, ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/tournaments", "alice", map[string]any{
		"name":         "Summer Cup",
		"participants": []string{"alice", "bob"},
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, expected 201", resp.StatusCode)
	}
	var created struct {
		ID   string `json:"id"`
		Slug string `json:"slug"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if created.Slug != "summer-cup" {
		t.Errorf("slug = %q, expected summer-cup", created.Slug)
	}

	// Participants cannot view the bracket before setting an alias.
	view := getAs(t, ts.URL+"/api/tournaments/"+created.ID, "alice")
	view.Body.Close()
	if view.StatusCode != http.StatusForbidden {
		t.Errorf("pre-alias view status = %d, expected 403", view.StatusCode)
	}

	alias := postJSON(t, ts.URL+"/api/tournaments/"+created.ID+"/alias", "alice",
		map[string]string{"alias": "ace"})
	alias.Body.Close()
	if alias.StatusCode != http.StatusOK {
		t.Fatalf("alias status = %d, expected 200", alias.StatusCode)
	}

	view = getAs(t, ts.URL+"/api/tournaments/"+created.ID, "alice")
	defer view.Body.Close()
	if view.StatusCode != http.StatusOK {
		t.Fatalf("post-alias view status = %d, expected 200", view.StatusCode)
	}
	var bracket tournament.BracketView
	if err := json.NewDecoder(view.Body).Decode(&bracket); err != nil {
		t.Fatalf("decode bracket: %v", err)
	}
	if len(bracket.Rounds) != 1 || len(bracket.Rounds[0]) != 1 {
		t.Fatalf("unexpected bracket shape: %+v", bracket.Rounds)
	}
	recordID := bracket.Rounds[0][0].ID

	// An outsider cannot start the match.
	start := postJSON(t, ts.URL+"/api/tournaments/matches/"+recordID+"/start", "mallory", nil)
	start.Body.Close()
	if start.StatusCode != http.StatusForbidden {
		t.Errorf("outsider start status = %d, expected 403", start.StatusCode)
	}

	start = postJSON(t, ts.URL+"/api/tournaments/matches/"+recordID+"/start", "alice", nil)
	defer start.Body.Close()
	if start.StatusCode != http.StatusOK {
		t.Fatalf("start status = %d, expected 200", start.StatusCode)
	}
	var started struct {
		GameID string `json:"game_id"`
	}
	if err := json.NewDecoder(start.Body).Decode(&started); err != nil {
		t.Fatalf("decode start response: %v", err)
	}
	if started.GameID == "" {
		t.Fatal("start returned empty game id")
	}

	result := postJSON(t, ts.URL+"/api/tournaments/matches/"+recordID+"/result", "alice",
		map[string]string{"winner": "bob"})
	result.Body.Close()
	if result.StatusCode != http.StatusNoContent {
		t.Errorf("result status = %d, expected 204", result.StatusCode)
	}

	// The slot is resolved; a fresh start request must be refused.
	again := postJSON(t, ts.URL+"/api/tournaments/matches/"+recordID+"/start", "alice", nil)
	again.Body.Close()
	if again.StatusCode != http.StatusConflict {
		t.Errorf("post-result start status = %d, expected 409", again.StatusCode)
	}
}

func TestUnknownTournamentReturns404(t *testing.T) {
	_, ts := newTestServer(t)

	resp := getAs(t, ts.URL+"/api/tournaments/nope", "alice")
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, expected 404", resp.StatusCode)
	}
}

func TestCreateTournamentValidation(t *testing.T) {
	_, ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/tournaments", "alice", map[string]any{
		"name":         "lonely",
		"participants": []string{"alice"},
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("single-player create status = %d, expected 400", resp.StatusCode)
	}

	resp = postJSON(t, ts.URL+"/api/tournaments", "alice", map[string]any{
		"participants": []string{"alice", "bob"},
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("nameless create status = %d, expected 400", resp.StatusCode)
	}
}
