// Package dashboard exposes the daemon's HTTP surface: the navigation
// decision endpoint, the command API, and the websocket event feed.
package dashboard

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/tobyns/focusgate/internal/breaks"
	"github.com/tobyns/focusgate/internal/config"
	"github.com/tobyns/focusgate/internal/engine"
	"github.com/tobyns/focusgate/internal/session"
	"github.com/tobyns/focusgate/internal/state"
)

const (
	readTimeout  = 15 * time.Second
	writeTimeout = 15 * time.Second
)

// Server represents the daemon HTTP server.
type Server struct {
	config     *config.Config
	rec        *state.Records
	engine     *engine.Engine
	breaks     *breaks.Registry
	session    *session.Manager
	pomodoro   *session.Pomodoro
	hub        *Hub
	httpServer *http.Server
}

// NewServer creates a new daemon server.
func NewServer(cfg *config.Config, rec *state.Records, eng *engine.Engine, reg *breaks.Registry, mgr *session.Manager, pom *session.Pomodoro, hub *Hub) *Server {
	return &Server{
		config:   cfg,
		rec:      rec,
		engine:   eng,
		breaks:   reg,
		session:  mgr,
		pomodoro: pom,
		hub:      hub,
	}
}

// Hub returns the event hub so other components can broadcast through it.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start starts the HTTP server. Blocks until shutdown.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("127.0.0.1:%d", s.config.Port), // Bind to localhost only
		Handler:      s.routes(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	fmt.Printf("Daemon listening on http://localhost:%d\n", s.config.Port)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/healthz", s.withCORS(s.handleHealthz))
	mux.HandleFunc("/api/status", s.withCORS(s.handleStatus))
	mux.HandleFunc("/api/decide", s.withCORS(s.handleDecide))
	mux.HandleFunc("/api/command", s.withCORS(s.handleCommand))

	// WebSocket for block events and session transitions
	mux.HandleFunc("/ws/events", s.hub.handleEvents)

	return mux
}

// Stop stops the HTTP server.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.hub.Close()

	if s.httpServer == nil {
		return nil
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	return nil
}

// allowedOrigin is the only browser origin accepted for cross-origin calls.
func (s *Server) allowedOrigin() string {
	return fmt.Sprintf("http://localhost:%d", s.config.Port)
}

// withCORS wraps a handler with CORS headers. Extension and CLI clients send
// no Origin header; browser pages may only call from localhost.
func (s *Server) withCORS(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != s.allowedOrigin() && origin != "" {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		if origin == s.allowedOrigin() {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		h(w, r)
	}
}
