package handlers

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mljr/facematch/pkg/logging"
	"github.com/mljr/facematch/pkg/recognition"
	"github.com/mljr/facematch/pkg/session"
	"github.com/mljr/facematch/pkg/storage"
)

// SessionsHandler owns the comparison session endpoints.
type SessionsHandler struct {
	manager        *session.Manager
	detector       Detector
	tracker        *StatusTracker
	history        *storage.HistoryStore
	maxUploadBytes int64
}

// NewSessionsHandler creates a sessions handler.
func NewSessionsHandler(manager *session.Manager, detector Detector, tracker *StatusTracker,
	history *storage.HistoryStore, maxUploadBytes int64) *SessionsHandler {
	return &SessionsHandler{
		manager:        manager,
		detector:       detector,
		tracker:        tracker,
		history:        history,
		maxUploadBytes: maxUploadBytes,
	}
}

// Create handles POST /api/v1/sessions.
func (h *SessionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	s := h.manager.Create()
	respondJSON(w, http.StatusCreated, s.Snapshot())
}

// Get handles GET /api/v1/sessions/{id}.
func (h *SessionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, s.Snapshot())
}

// Delete handles DELETE /api/v1/sessions/{id}.
func (h *SessionsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.manager.Delete(id); err != nil {
		respondError(w, http.StatusNotFound, CodeSessionNotFound, "session not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"deleted": id})
}

// Reset handles POST /api/v1/sessions/{id}/reset. It clears both
// images, both descriptors and the result unconditionally.
func (h *SessionsHandler) Reset(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.Reset()
	respondJSON(w, http.StatusOK, s.Snapshot())
}

// UploadReference handles POST /api/v1/sessions/{id}/reference with a
// multipart "image" field.
func (h *SessionsHandler) UploadReference(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if !h.modelsReady(w) {
		return
	}

	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		respondError(w, http.StatusBadRequest, CodeBadRequest, "failed to parse multipart form")
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		respondError(w, http.StatusBadRequest, CodeBadRequest, "image field is required")
		return
	}
	defer file.Close()

	imageData, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes))
	if err != nil {
		respondError(w, http.StatusBadRequest, CodeBadRequest, "failed to read image")
		return
	}

	h.detectAndStore(w, s, session.SideReference, imageData)
}

// captureInput is the wire shape of a browser-captured frame.
type captureInput struct {
	Payload string `json:"payload"` // base64-encoded JPEG
}

// Capture handles POST /api/v1/sessions/{id}/capture with a JSON
// base64 payload produced by the browser's canvas.
func (h *SessionsHandler) Capture(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if !h.modelsReady(w) {
		return
	}

	var input captureInput
	if err := json.NewDecoder(io.LimitReader(r.Body, h.maxUploadBytes)).Decode(&input); err != nil {
		respondError(w, http.StatusBadRequest, CodeBadRequest, "invalid request body")
		return
	}

	imageData, err := base64.StdEncoding.DecodeString(input.Payload)
	if err != nil || len(imageData) == 0 {
		respondError(w, http.StatusBadRequest, CodeBadRequest, "payload must be base64 image data")
		return
	}

	h.detectAndStore(w, s, session.SideCapture, imageData)
}

// Compare handles POST /api/v1/sessions/{id}/compare.
func (h *SessionsHandler) Compare(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if !h.modelsReady(w) {
		return
	}

	result, err := s.Compare(h.detector.Threshold())
	if err != nil {
		switch {
		case errors.Is(err, session.ErrMissingReference):
			respondError(w, http.StatusConflict, CodeMissingRef, err.Error())
		case errors.Is(err, session.ErrMissingCapture):
			respondError(w, http.StatusConflict, CodeMissingCapture, err.Error())
		default:
			respondError(w, http.StatusInternalServerError, CodeBadRequest, err.Error())
		}
		return
	}

	if h.history != nil {
		rec := storage.Record{
			Time:       time.Now(),
			SessionID:  s.ID,
			Distance:   result.Distance,
			Similarity: result.Similarity,
			Match:      result.Match,
		}
		if err := h.history.Append(rec); err != nil {
			logging.Component("web").WithError(err).Warn("failed to record comparison")
		}
	}

	respondJSON(w, http.StatusOK, result)
}

// Image handles GET /api/v1/sessions/{id}/image/{side}, serving the
// stored source image for preview.
func (h *SessionsHandler) Image(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	side := session.Side(chi.URLParam(r, "side"))
	if side != session.SideReference && side != session.SideCapture {
		respondError(w, http.StatusBadRequest, CodeBadRequest, "side must be reference or capture")
		return
	}

	data := s.Image(side)
	if data == nil {
		respondError(w, http.StatusNotFound, CodeBadRequest, "no image stored for this side")
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// session resolves the {id} URL parameter, answering 404 on miss.
func (h *SessionsHandler) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	id := chi.URLParam(r, "id")
	s, err := h.manager.Get(id)
	if err != nil {
		respondError(w, http.StatusNotFound, CodeSessionNotFound, "session not found")
		return nil, false
	}
	return s, true
}

// modelsReady rejects detection requests while models are not loaded.
func (h *SessionsHandler) modelsReady(w http.ResponseWriter) bool {
	if !h.detector.IsLoaded() {
		respondError(w, http.StatusServiceUnavailable, CodeModelsNotReady, "face recognition models are not loaded")
		return false
	}
	return true
}

// detectAndStore runs detection on one side's image and stores the
// resulting descriptor in the session.
func (h *SessionsHandler) detectAndStore(w http.ResponseWriter, s *session.Session, side session.Side, imageData []byte) {
	face, err := h.detector.DetectBestFace(imageData)
	if err != nil {
		switch {
		case errors.Is(err, recognition.ErrNoFaceDetected):
			respondError(w, http.StatusUnprocessableEntity, CodeNoFace, "no face detected in the image")
		case errors.Is(err, recognition.ErrModelNotLoaded):
			respondError(w, http.StatusServiceUnavailable, CodeModelsNotReady, "face recognition models are not loaded")
		default:
			logging.Component("web").WithError(err).Error("face detection failed")
			respondError(w, http.StatusInternalServerError, CodeDetectionFailed, "face detection failed")
		}
		return
	}

	s.SetFace(side, face.Descriptor, imageData)

	respondJSON(w, http.StatusOK, map[string]any{
		"session": s.Snapshot(),
		"face": map[string]any{
			"x":      face.BoundingBox.X,
			"y":      face.BoundingBox.Y,
			"width":  face.BoundingBox.Width,
			"height": face.BoundingBox.Height,
		},
	})
}
