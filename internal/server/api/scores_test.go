package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/ayusman/signvision/internal/store"
)

// newTestStore creates a new Store with a temporary database for testing.
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

func TestScoreHandler_List(t *testing.T) {
	s := newTestStore(t)
	handler := NewScoreHandler(s.PeakScores(), nil)

	if _, err := s.PeakScores().Max("b", 88); err != nil {
		t.Fatalf("failed to seed score: %v", err)
	}
	if _, err := s.PeakScores().Max("a", 92.5); err != nil {
		t.Fatalf("failed to seed score: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/scores", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", ct)
	}

	var response listScoresResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(response.Scores) != 2 {
		t.Fatalf("expected 2 scores, got %d", len(response.Scores))
	}
	if response.Scores[0].Sign != "a" || response.Scores[0].Confidence != 92.5 {
		t.Errorf("unexpected first score: %+v", response.Scores[0])
	}
}

func TestScoreHandler_Get(t *testing.T) {
	s := newTestStore(t)
	handler := NewScoreHandler(s.PeakScores(), nil)
	if _, err := s.PeakScores().Max("lettera", 91); err != nil {
		t.Fatalf("failed to seed score: %v", err)
	}

	tests := []struct {
		name     string
		path     string
		wantSign string
		wantConf float64
		wantCode int
	}{
		{name: "normalizes key", path: "/api/scores/Letter%20A", wantSign: "lettera", wantConf: 91, wantCode: http.StatusOK},
		{name: "unrecorded sign is zero", path: "/api/scores/B", wantSign: "b", wantConf: 0, wantCode: http.StatusOK},
		{name: "punctuation only", path: "/api/scores/%3F%21", wantCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("expected status %d, got %d", tt.wantCode, rec.Code)
			}
			if tt.wantCode != http.StatusOK {
				return
			}
			var response scoreResponse
			if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if response.Sign != tt.wantSign || response.Confidence != tt.wantConf {
				t.Errorf("got %+v, want %s at %v", response, tt.wantSign, tt.wantConf)
			}
		})
	}
}

func TestScoreHandler_Delete(t *testing.T) {
	s := newTestStore(t)
	var deleted []string
	handler := NewScoreHandler(s.PeakScores(), func(key string) { deleted = append(deleted, key) })
	if _, err := s.PeakScores().Max("a", 70); err != nil {
		t.Fatalf("failed to seed score: %v", err)
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/scores/A", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, rec.Code)
	}
	if len(deleted) != 1 || deleted[0] != "a" {
		t.Errorf("onDelete calls = %v, want [a]", deleted)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/scores/A", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d for second delete, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestScoreHandler_MethodNotAllowed(t *testing.T) {
	handler := NewScoreHandler(newTestStore(t).PeakScores(), nil)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/scores"},
		{http.MethodDelete, "/api/scores"},
		{http.MethodPut, "/api/scores/a"},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s %s: expected status %d, got %d", tt.method, tt.path, http.StatusMethodNotAllowed, rec.Code)
		}
	}
}
