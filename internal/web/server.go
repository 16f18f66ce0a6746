// Package web provides the HerbWise HTTP server and middleware.
package web

import (
	"errors"
	"net/http"

	"github.com/cyryl1/herb-wise-frontend/internal/log"
	"github.com/cyryl1/herb-wise-frontend/internal/session"
	"github.com/cyryl1/herb-wise-frontend/internal/web/handlers"
)

// Server is the HerbWise HTTP front end.
type Server struct {
	mux    *http.ServeMux
	logger log.Logger
	isDev  bool
}

// ServerConfig contains configuration for creating a Server.
type ServerConfig struct {
	Logger    log.Logger         // Optional: nil disables request logging inside handlers
	Store     *session.Store     // Required: conversation persistence
	Assistant handlers.Assistant // Required: herb-identification backend client
	IsDev     bool               // Optional: relaxes CSP for local debugging
}

// NewServer creates a server with all routes configured. Returns an
// error if required configuration is missing.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Store == nil {
		return nil, errors.New("store is required")
	}
	if cfg.Assistant == nil {
		return nil, errors.New("assistant is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NewNop()
	}

	pages := handlers.NewPages(cfg.Store, cfg.Logger)
	chat := handlers.NewChat(cfg.Store, cfg.Assistant, cfg.Logger)
	sessions := handlers.NewSessions(cfg.Store, cfg.Logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", pages.Identify)
	mux.HandleFunc("GET /dashboard", pages.Dashboard)
	mux.HandleFunc("POST /chat/send", chat.Send)
	mux.HandleFunc("GET /sessions", sessions.List)
	mux.HandleFunc("DELETE /sessions/{id}", sessions.Delete)
	mux.HandleFunc("GET /events", sessions.Events)

	return &Server{mux: mux, logger: cfg.Logger, isDev: cfg.IsDev}, nil
}

// ServeHTTP implements http.Handler with the middleware stack applied:
// recovery catches panics from every layer below, logging tracks all
// requests.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.setSecurityHeaders(w)

	var handler http.Handler = s.mux
	handler = LoggingMiddleware(s.logger)(handler)
	handler = RecoveryMiddleware(s.logger)(handler)
	handler.ServeHTTP(w, r)
}

func (s *Server) setSecurityHeaders(w http.ResponseWriter) {
	// The pages inline their scripts and styles, so unsafe-inline stays.
	csp := "default-src 'self'; script-src 'self' 'unsafe-inline'"
	if s.isDev {
		csp += " 'unsafe-eval'"
	}
	csp += "; style-src 'self' 'unsafe-inline'; connect-src 'self'; img-src 'self' data:"
	w.Header().Set("Content-Security-Policy", csp)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
}

// Handler returns the server as an http.Handler for mounting.
func (s *Server) Handler() http.Handler {
	return s
}
