package api

import (
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// newRouter assembles middleware and routes. Rate limiting runs before
// CORS so floods are rejected as cheaply as possible.
func (s *Server) newRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(s.limiter.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Post("/tournaments", s.handleCreateTournament)
		r.Get("/tournaments/{tournamentID}", s.handleGetTournament)
		r.Post("/tournaments/{tournamentID}/alias", s.handleSetAlias)
		r.Post("/tournaments/matches/{recordID}/start", s.handleStartMatch)
		r.Post("/tournaments/matches/{recordID}/result", s.handleReportResult)
	})

	r.Get("/ws/lobby", s.handleLobbyWS)
	r.Get("/ws/game/{gameID}", s.handleGameWS)
	r.Get("/ws/tournaments", s.handleTournamentFeedWS)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", MetricsHandler())

	return r
}

// originAllowed accepts non-browser clients (no Origin header), any
// localhost origin, and the configured list.
func (s *Server) originAllowed(origin string) bool {
	if origin == "" {
		return true
	}
	if strings.HasPrefix(origin, "http://localhost") || strings.HasPrefix(origin, "http://127.0.0.1") {
		return true
	}
	for _, allowed := range s.cfg.AllowedOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}
