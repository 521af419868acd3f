package handlers

import (
	"net/http"
	"sync"
)

// ModelState tracks where model loading stands. The API stays up while
// models load, and stays up reporting failure when they never will.
type ModelState string

const (
	ModelsLoading ModelState = "loading"
	ModelsReady   ModelState = "ready"
	ModelsFailed  ModelState = "failed"
)

// StatusTracker is the shared model-loading state between the loader
// goroutine and the handlers.
type StatusTracker struct {
	mu    sync.RWMutex
	state ModelState
	err   string
}

// NewStatusTracker starts in the loading state.
func NewStatusTracker() *StatusTracker {
	return &StatusTracker{state: ModelsLoading}
}

// SetReady marks the models as loaded.
func (t *StatusTracker) SetReady() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = ModelsReady
	t.err = ""
}

// SetFailed marks model loading as permanently failed.
func (t *StatusTracker) SetFailed(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = ModelsFailed
	if err != nil {
		t.err = err.Error()
	}
}

// State returns the current model state and any failure message.
func (t *StatusTracker) State() (ModelState, string) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state, t.err
}

// StatusHandler reports service readiness to the UI.
type StatusHandler struct {
	tracker   *StatusTracker
	threshold float64
}

// NewStatusHandler creates a status handler.
func NewStatusHandler(tracker *StatusTracker, threshold float64) *StatusHandler {
	return &StatusHandler{tracker: tracker, threshold: threshold}
}

// Get handles GET /api/v1/status.
func (h *StatusHandler) Get(w http.ResponseWriter, r *http.Request) {
	state, errMsg := h.tracker.State()

	resp := map[string]any{
		"state":     state,
		"threshold": h.threshold,
	}
	if errMsg != "" {
		resp["error"] = errMsg
	}
	respondJSON(w, http.StatusOK, resp)
}
