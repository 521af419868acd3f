package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mljr/facematch/pkg/config"
	"github.com/mljr/facematch/pkg/recognition"
	"github.com/mljr/facematch/pkg/session"
	"github.com/mljr/facematch/pkg/storage"
	"github.com/mljr/facematch/pkg/web/handlers"
)

// routeDetector is a Detector stub for routing tests.
type routeDetector struct {
	loaded bool
}

func (d *routeDetector) IsLoaded() bool     { return d.loaded }
func (d *routeDetector) Threshold() float64 { return 0.5 }

func (d *routeDetector) DetectBestFace(data []byte) (*recognition.Face, error) {
	return &recognition.Face{
		BoundingBox: recognition.Rectangle{Width: 64, Height: 64},
	}, nil
}

func (d *routeDetector) Compare(ref, probe recognition.Descriptor) recognition.Result {
	return recognition.Score(ref, probe, 0.5)
}

func newTestServer(t *testing.T, loaded bool) *Server {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Storage.DataDir = t.TempDir()

	history, err := storage.NewHistoryStore(filepath.Join(cfg.Storage.DataDir, "history.json"), 50, false)
	if err != nil {
		t.Fatalf("failed to create history store: %v", err)
	}

	tracker := handlers.NewStatusTracker()
	if loaded {
		tracker.SetReady()
	}

	srv := NewServer(cfg, &routeDetector{loaded: loaded}, tracker, history)
	t.Cleanup(func() {
		_ = srv.Shutdown(context.Background())
	})
	return srv
}

func TestHealthRoute(t *testing.T) {
	srv := newTestServer(t, true)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestIndexRoute(t *testing.T) {
	srv := newTestServer(t, true)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("expected html content type, got %s", ct)
	}
	if !strings.Contains(rec.Body.String(), "facematch") {
		t.Error("expected the demo page body")
	}
}

func TestSessionLifecycleThroughRouter(t *testing.T) {
	srv := newTestServer(t, true)

	// Create.
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d", rec.Code)
	}

	var snap session.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("failed to parse session: %v", err)
	}

	// Capture a frame through the real route.
	payload, _ := json.Marshal(map[string]string{"payload": "aGVsbG8="})
	req = httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+snap.ID+"/capture", bytes.NewReader(payload))
	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("capture: expected 200, got %d\n%s", rec.Code, rec.Body.String())
	}

	// Compare should name the missing reference.
	req = httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+snap.ID+"/compare", nil)
	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusConflict {
		t.Fatalf("compare: expected 409, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "MISSING_REFERENCE") {
		t.Errorf("expected MISSING_REFERENCE code, body: %s", rec.Body.String())
	}

	// Delete.
	req = httptest.NewRequest(http.MethodDelete, "/api/v1/sessions/"+snap.ID, nil)
	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", rec.Code)
	}
}

func TestDetectionRoutesUnavailableWhileLoading(t *testing.T) {
	srv := newTestServer(t, false)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	var snap session.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("failed to parse session: %v", err)
	}

	payload, _ := json.Marshal(map[string]string{"payload": "aGVsbG8="})
	req = httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+snap.ID+"/capture", bytes.NewReader(payload))
	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 while models load, got %d", rec.Code)
	}
}
