// Package web provides the HTTP server for the facematch demo.
package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/mljr/facematch/pkg/config"
	"github.com/mljr/facematch/pkg/logging"
	"github.com/mljr/facematch/pkg/session"
	"github.com/mljr/facematch/pkg/storage"
	"github.com/mljr/facematch/pkg/web/handlers"
	"github.com/mljr/facematch/pkg/web/middleware"
)

// Server is the facematch web server.
type Server struct {
	config     *config.Config
	router     *chi.Mux
	httpServer *http.Server
	manager    *session.Manager
}

// NewServer wires the router, middleware and handlers.
func NewServer(cfg *config.Config, detector handlers.Detector, tracker *handlers.StatusTracker,
	history *storage.HistoryStore) *Server {
	r := chi.NewRouter()

	manager := session.NewManager(time.Duration(cfg.Server.SessionTTL) * time.Minute)

	s := &Server{
		config:  cfg,
		router:  r,
		manager: manager,
	}

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(time.Minute))
	r.Use(middleware.CORS())

	s.setupRoutes(detector, tracker, history)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start runs the HTTP server until it is shut down.
func (s *Server) Start() error {
	logging.Component("web").Infof("listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server and the session sweeper.
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Component("web").Info("shutting down")

	s.manager.Stop()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// Router returns the chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}
