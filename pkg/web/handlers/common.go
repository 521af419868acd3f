// Package handlers implements the facematch JSON API.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/mljr/facematch/pkg/recognition"
)

// Error codes surfaced to the UI so it can pick a message per failure.
const (
	CodeBadRequest      = "BAD_REQUEST"
	CodeSessionNotFound = "SESSION_NOT_FOUND"
	CodeModelsNotReady  = "MODELS_NOT_READY"
	CodeNoFace          = "NO_FACE"
	CodeDetectionFailed = "DETECTION_FAILED"
	CodeMissingRef      = "MISSING_REFERENCE"
	CodeMissingCapture  = "MISSING_CAPTURE"
)

// Detector is the recognition capability the handlers need.
// *recognition.Recognizer satisfies it; tests substitute a fake.
type Detector interface {
	IsLoaded() bool
	DetectBestFace(imageData []byte) (*recognition.Face, error)
	Compare(ref, probe recognition.Descriptor) recognition.Result
	Threshold() float64
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// respondError sends a JSON error with a machine-readable code.
func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
		"code":  code,
	})
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
