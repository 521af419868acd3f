package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mljr/facematch/pkg/storage"
	"github.com/mljr/facematch/pkg/web/handlers"
	"github.com/mljr/facematch/pkg/web/static"
)

func (s *Server) setupRoutes(detector handlers.Detector, tracker *handlers.StatusTracker,
	history *storage.HistoryStore) {
	statusHandler := handlers.NewStatusHandler(tracker, detector.Threshold())
	sessionsHandler := handlers.NewSessionsHandler(s.manager, detector, tracker, history,
		s.config.Server.MaxUploadBytes)
	historyHandler := handlers.NewHistoryHandler(history)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", handlers.HealthCheck)
		r.Get("/status", statusHandler.Get)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", sessionsHandler.Create)
			r.Get("/{id}", sessionsHandler.Get)
			r.Delete("/{id}", sessionsHandler.Delete)
			r.Post("/{id}/reference", sessionsHandler.UploadReference)
			r.Post("/{id}/capture", sessionsHandler.Capture)
			r.Post("/{id}/compare", sessionsHandler.Compare)
			r.Post("/{id}/reset", sessionsHandler.Reset)
			r.Get("/{id}/image/{side}", sessionsHandler.Image)
		})

		r.Get("/history", historyHandler.List)
		r.Delete("/history", historyHandler.Clear)
	})

	s.router.Get("/", serveIndex)
	s.router.Get("/index.html", serveIndex)
}

// serveIndex serves the embedded demo page.
func serveIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(static.Index())
}
