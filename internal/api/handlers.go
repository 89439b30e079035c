package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"pong-arena/internal/tournament"
)

// The requester's identity rides in this header. The reverse proxy in
// front of this service resolves sessions and stamps it.
const identityHeader = "X-Player-ID"

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleCreateTournament(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name         string   `json:"name"`
		Participants []string `json:"participants"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		writeError(w, "tournament name required", http.StatusBadRequest)
		return
	}

	t, err := s.tournaments.Create(req.Name, req.Participants)
	if err != nil {
		writeError(w, err.Error(), tournamentStatus(err))
		return
	}
	tournamentsCreated.Inc()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"id":     t.ID,
		"name":   t.Name,
		"slug":   t.Slug,
		"active": t.Active,
	})
}

func (s *Server) handleGetTournament(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "tournamentID")
	requester := r.Header.Get(identityHeader)

	view, err := s.tournaments.View(id, requester)
	if err != nil {
		writeError(w, err.Error(), tournamentStatus(err))
		return
	}
	writeJSON(w, view)
}

func (s *Server) handleSetAlias(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "tournamentID")
	requester := r.Header.Get(identityHeader)

	var req struct {
		Alias string `json:"alias"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Alias == "" {
		writeError(w, "alias required", http.StatusBadRequest)
		return
	}

	if err := s.tournaments.SetAlias(id, requester, req.Alias); err != nil {
		writeError(w, err.Error(), tournamentStatus(err))
		return
	}
	writeJSON(w, map[string]string{"alias": req.Alias})
}

func (s *Server) handleStartMatch(w http.ResponseWriter, r *http.Request) {
	recordID := chi.URLParam(r, "recordID")
	requester := r.Header.Get(identityHeader)

	gameID, err := s.tournaments.StartMatch(recordID, requester)
	if err != nil {
		writeError(w, err.Error(), tournamentStatus(err))
		return
	}
	writeJSON(w, map[string]string{"game_id": gameID})
}

func (s *Server) handleReportResult(w http.ResponseWriter, r *http.Request) {
	recordID := chi.URLParam(r, "recordID")

	var req struct {
		Winner string `json:"winner"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Winner == "" {
		writeError(w, "winner required", http.StatusBadRequest)
		return
	}

	if err := s.tournaments.ReportResult(recordID, req.Winner); err != nil {
		writeError(w, err.Error(), tournamentStatus(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// tournamentStatus maps manager errors onto HTTP status codes.
func tournamentStatus(err error) int {
	switch {
	case errors.Is(err, tournament.ErrTournamentNotFound),
		errors.Is(err, tournament.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, tournament.ErrNotParticipant),
		errors.Is(err, tournament.ErrAliasRequired):
		return http.StatusForbidden
	case errors.Is(err, tournament.ErrRecordResolved):
		return http.StatusConflict
	case errors.Is(err, tournament.ErrNotEnoughPlayers),
		errors.Is(err, tournament.ErrInvalidWinner):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
