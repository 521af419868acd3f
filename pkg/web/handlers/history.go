package handlers

import (
	"net/http"

	"github.com/mljr/facematch/pkg/logging"
	"github.com/mljr/facematch/pkg/storage"
)

// HistoryHandler serves past comparison results.
type HistoryHandler struct {
	store *storage.HistoryStore
}

// NewHistoryHandler creates a history handler.
func NewHistoryHandler(store *storage.HistoryStore) *HistoryHandler {
	return &HistoryHandler{store: store}
}

// List handles GET /api/v1/history, newest first.
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	records, err := h.store.List()
	if err != nil {
		logging.Component("web").WithError(err).Error("failed to load history")
		respondError(w, http.StatusInternalServerError, CodeBadRequest, "failed to load history")
		return
	}

	// Stored oldest first, served newest first.
	reversed := make([]storage.Record, len(records))
	for i, rec := range records {
		reversed[len(records)-1-i] = rec
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"count":   len(reversed),
		"results": reversed,
	})
}

// Clear handles DELETE /api/v1/history.
func (h *HistoryHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Clear(); err != nil {
		logging.Component("web").WithError(err).Error("failed to clear history")
		respondError(w, http.StatusInternalServerError, CodeBadRequest, "failed to clear history")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}
