package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/Furulango/handseg/internal/store"
)

// newTestStore creates a Store with a temporary database.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})
	return s
}

func seedRuns(t *testing.T, s *store.Store) {
	t.Helper()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	runs := []*store.Run{
		{ID: "run-old", Filename: "a.png", Hands: 1, Status: store.RunStatusOK, CreatedAt: base},
		{
			ID: "run-new", Filename: "b.png", Hands: 2, PalmSteps: 40, Status: store.RunStatusOK,
			Zones:     []store.Zone{{Name: "Hand zone 1", Area: 900, Pixels: 880, Mean: 131.5}},
			CreatedAt: base.Add(time.Minute),
		},
		{ID: "run-bad", Filename: "c.png", Status: store.RunStatusFailed, Error: "cannot decode image", CreatedAt: base.Add(-time.Minute)},
	}
	for _, r := range runs {
		if err := s.Runs().Create(r); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}
	}
}

func TestRunsHandler_List(t *testing.T) {
	s := newTestStore(t)
	seedRuns(t, s)
	handler := NewRunsHandler(s)

	tests := []struct {
		name    string
		url     string
		wantIDs []string
	}{
		{"all newest first", "/api/runs", []string{"run-new", "run-old", "run-bad"}},
		{"limited", "/api/runs?limit=1", []string{"run-new"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.url, nil))

			if rec.Code != http.StatusOK {
				t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("expected Content-Type application/json, got %s", ct)
			}

			var response listRunsResponse
			if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if len(response.Runs) != len(tt.wantIDs) {
				t.Fatalf("expected %d runs, got %d", len(tt.wantIDs), len(response.Runs))
			}
			for i, id := range tt.wantIDs {
				if response.Runs[i].ID != id {
					t.Errorf("run %d: expected %s, got %s", i, id, response.Runs[i].ID)
				}
			}
		})
	}

	t.Run("invalid limit", func(t *testing.T) {
		for _, url := range []string{"/api/runs?limit=abc", "/api/runs?limit=0"} {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
			if rec.Code != http.StatusBadRequest {
				t.Errorf("%s: expected status %d, got %d", url, http.StatusBadRequest, rec.Code)
			}
		}
	})

	t.Run("empty store", func(t *testing.T) {
		rec := httptest.NewRecorder()
		NewRunsHandler(newTestStore(t)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/runs", nil))

		var response listRunsResponse
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if response.Runs == nil || len(response.Runs) != 0 {
			t.Errorf("expected an empty list, got %v", response.Runs)
		}
	})
}

func TestRunsHandler_Get(t *testing.T) {
	s := newTestStore(t)
	seedRuns(t, s)
	handler := NewRunsHandler(s)

	t.Run("with zones", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/runs/run-new", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}

		var response runResponse
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if response.Hands != 2 || response.PalmSteps != 40 {
			t.Errorf("unexpected run %+v", response)
		}
		if len(response.Zones) != 1 || response.Zones[0].Mean != 131.5 {
			t.Errorf("unexpected zones %+v", response.Zones)
		}
		if response.CreatedAt != "2026-03-01T12:01:00Z" {
			t.Errorf("unexpected created_at %s", response.CreatedAt)
		}
	})

	t.Run("failed run carries its error", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/runs/run-bad", nil))

		var response runResponse
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if response.Status != "failed" || response.Error == "" {
			t.Errorf("unexpected run %+v", response)
		}
	})

	t.Run("not found", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/runs/missing", nil))

		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
		}
		var response errorResponse
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil || response.Error == "" {
			t.Errorf("expected an error body, got %v", err)
		}
	})
}

func TestRunsHandler_Delete(t *testing.T) {
	s := newTestStore(t)
	seedRuns(t, s)
	handler := NewRunsHandler(s)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/runs/run-old", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/runs/run-old", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d on second delete, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestRunsHandler_MethodNotAllowed(t *testing.T) {
	handler := NewRunsHandler(newTestStore(t))

	tests := []struct {
		method string
		url    string
	}{
		{http.MethodPost, "/api/runs"},
		{http.MethodDelete, "/api/runs"},
		{http.MethodPut, "/api/runs/x"},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.url, nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s %s: expected status %d, got %d", tt.method, tt.url, http.StatusMethodNotAllowed, rec.Code)
		}
	}
}
