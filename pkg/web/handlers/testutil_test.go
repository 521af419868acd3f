package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mljr/facematch/pkg/recognition"
	"github.com/mljr/facematch/pkg/session"
	"github.com/mljr/facematch/pkg/storage"
)

// mockDetector is a Detector returning canned results.
type mockDetector struct {
	loaded     bool
	threshold  float64
	detectFunc func(data []byte) (*recognition.Face, error)
}

func (m *mockDetector) IsLoaded() bool { return m.loaded }

func (m *mockDetector) Threshold() float64 {
	if m.threshold == 0 {
		return 0.5
	}
	return m.threshold
}

func (m *mockDetector) DetectBestFace(data []byte) (*recognition.Face, error) {
	if m.detectFunc != nil {
		return m.detectFunc(data)
	}
	return &recognition.Face{
		BoundingBox: recognition.Rectangle{X: 0, Y: 0, Width: 100, Height: 100},
	}, nil
}

func (m *mockDetector) Compare(ref, probe recognition.Descriptor) recognition.Result {
	return recognition.Score(ref, probe, m.Threshold())
}

// descriptorFace builds a detection result whose descriptor has v in
// its first dimension.
func descriptorFace(v float32) *recognition.Face {
	f := &recognition.Face{
		BoundingBox: recognition.Rectangle{Width: 100, Height: 100},
	}
	f.Descriptor[0] = v
	return f
}

func newTestManager(t *testing.T) *session.Manager {
	t.Helper()
	m := session.NewManager(time.Hour)
	t.Cleanup(m.Stop)
	return m
}

func newTestHistory(t *testing.T) *storage.HistoryStore {
	t.Helper()
	hs, err := storage.NewHistoryStore(filepath.Join(t.TempDir(), "history.json"), 50, false)
	if err != nil {
		t.Fatalf("failed to create history store: %v", err)
	}
	return hs
}

func readyTracker() *StatusTracker {
	tr := NewStatusTracker()
	tr.SetReady()
	return tr
}

// requestWithChiParams attaches chi URL parameters to a request.
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// parseJSONResponse parses a JSON response body into the target type.
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code.
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertErrorCode checks the machine-readable error code of a response.
func assertErrorCode(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["code"] != expected {
		t.Errorf("expected error code %q, got %q (error: %q)", expected, result["code"], result["error"])
	}
}
