// Package api is the HTTP and WebSocket surface: REST tournament
// endpoints, the lobby and game sockets, the tournament event feed,
// health and Prometheus metrics.
package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"pong-arena/internal/config"
	"pong-arena/internal/lobby"
	"pong-arena/internal/notify"
	"pong-arena/internal/tournament"
)

// Server wires the lobby, tournament manager and notification hub into
// an HTTP handler. Construction is side-effect free apart from the rate
// limiter's cleanup goroutine; nothing listens until Start.
type Server struct {
	cfg         config.ServerConfig
	lobby       *lobby.Lobby
	tournaments *tournament.Manager
	hub         *notify.Hub

	router  *chi.Mux
	limiter *IPRateLimiter
}

// NewServer builds the server and its router.
func NewServer(cfg config.ServerConfig, l *lobby.Lobby, tm *tournament.Manager, hub *notify.Hub) *Server {
	s := &Server{
		cfg:         cfg,
		lobby:       l,
		tournaments: tm,
		hub:         hub,
		limiter:     NewIPRateLimiter(DefaultRateLimitConfig),
	}
	s.router = s.newRouter()
	return s
}

// Router returns the HTTP handler, for use with httptest in tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start serves HTTP until ctx is canceled, then drains connections.
func (s *Server) Start(ctx context.Context) error {
	go s.gaugeLoop(ctx)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", s.cfg.Port),
		Handler: s.router,
	}

	errChan := make(chan error, 1)
	go func() {
		log.Printf("api: listening on %s", srv.Addr)
		errChan <- srv.ListenAndServe()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.limiter.Stop()
	return srv.Shutdown(shutdownCtx)
}

// gaugeLoop samples the lobby gauges every few seconds.
func (s *Server) gaugeLoop(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sampleGauges()
		}
	}
}
