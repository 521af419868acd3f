package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mljr/facematch/pkg/storage"
)

func TestHistoryList(t *testing.T) {
	store := newTestHistory(t)
	for _, d := range []float64{0.1, 0.7} {
		if err := store.Append(storage.Record{
			Time:       time.Now(),
			SessionID:  "s",
			Distance:   d,
			Similarity: (1 - d) * 100,
			Match:      d < 0.5,
		}); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	h := NewHistoryHandler(store)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/history", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)

	assertStatusCode(t, rec, http.StatusOK)

	var resp struct {
		Count   int              `json:"count"`
		Results []storage.Record `json:"results"`
	}
	parseJSONResponse(t, rec, &resp)
	if resp.Count != 2 {
		t.Fatalf("expected 2 results, got %d", resp.Count)
	}
	// Newest first.
	if resp.Results[0].Distance != 0.7 {
		t.Errorf("expected newest record first, got distance %f", resp.Results[0].Distance)
	}
}

func TestHistoryListEmpty(t *testing.T) {
	h := NewHistoryHandler(newTestHistory(t))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/history", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)

	assertStatusCode(t, rec, http.StatusOK)

	var resp struct {
		Count int `json:"count"`
	}
	parseJSONResponse(t, rec, &resp)
	if resp.Count != 0 {
		t.Errorf("expected empty history, got %d", resp.Count)
	}
}

func TestHistoryClear(t *testing.T) {
	store := newTestHistory(t)
	if err := store.Append(storage.Record{SessionID: "s", Distance: 0.2}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	h := NewHistoryHandler(store)
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/history", nil)
	rec := httptest.NewRecorder()
	h.Clear(rec, req)

	assertStatusCode(t, rec, http.StatusOK)

	records, err := store.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected cleared history, got %d records", len(records))
	}
}
