package upload

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
)

const exportJSON = `{
	"source": "watch",
	"sessions": [
		{
			"id": "s1",
			"type": "running",
			"start": "2026-04-01T07:00:00Z",
			"end": "2026-04-01T07:30:00Z",
			"avg_heart_rate": 142,
			"active_calories": 310
		},
		{
			"id": "s2",
			"type": "cycling",
			"start": "2026-04-02T18:00:00Z",
			"end": "2026-04-02T18:45:00Z"
		}
	]
}`

func newTestUploader(t *testing.T, serverURL string) (*Uploader, string) {
	t.Helper()

	exportDir := t.TempDir()
	state, err := OpenStateDB(t.TempDir())
	if err != nil {
		t.Fatalf("OpenStateDB: %v", err)
	}
	t.Cleanup(func() { state.Close() })

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	client := NewClient(serverURL, "test-key")
	return New(client, state, exportDir, false, log), exportDir
}

func TestRunSendsSessionsAndSkipsOnRerun(t *testing.T) {
	var posts atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/ingest/cardio" {
			t.Errorf("path = %q, want /api/v1/ingest/cardio", r.URL.Path)
		}
		if r.Header.Get("X-API-Key") != "test-key" {
			t.Error("missing API key header")
		}

		var payload cardioPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		if payload.ID == nil {
			t.Error("expected derived session ID")
		}

		posts.Add(1)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"id": payload.ID, "inserted": true, "suppressed": false})
	}))
	defer srv.Close()

	u, exportDir := newTestUploader(t, srv.URL)
	if err := os.WriteFile(filepath.Join(exportDir, "2026-04.json"), []byte(exportJSON), 0o644); err != nil {
		t.Fatalf("writing export file: %v", err)
	}

	stats, err := u.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.FilesSynced != 1 || stats.SessionsSent != 2 {
		t.Fatalf("stats = %+v, want 1 file and 2 sessions", stats)
	}
	if got := posts.Load(); got != 2 {
		t.Fatalf("posts = %d, want 2", got)
	}

	// Second run skips the unchanged file entirely.
	stats, err = u.Run()
	if err != nil {
		t.Fatalf("rerun: %v", err)
	}
	if stats.FilesSkipped != 1 {
		t.Errorf("FilesSkipped = %d, want 1", stats.FilesSkipped)
	}
	if got := posts.Load(); got != 2 {
		t.Errorf("posts after rerun = %d, want 2", got)
	}
}

func TestRunCountsDuplicatesAndSuppressed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"00000000-0000-0000-0000-000000000001","inserted":false,"suppressed":true}`))
	}))
	defer srv.Close()

	u, exportDir := newTestUploader(t, srv.URL)
	if err := os.WriteFile(filepath.Join(exportDir, "2026-04.json"), []byte(exportJSON), 0o644); err != nil {
		t.Fatalf("writing export file: %v", err)
	}

	stats, err := u.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.SessionsDuplicate != 2 || stats.SessionsSuppressed != 2 {
		t.Errorf("stats = %+v, want 2 duplicates and 2 suppressed", stats)
	}
}

func TestRunLeavesFailedFileUnsynced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"db down"}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	u, exportDir := newTestUploader(t, srv.URL)
	if err := os.WriteFile(filepath.Join(exportDir, "2026-04.json"), []byte(exportJSON), 0o644); err != nil {
		t.Fatalf("writing export file: %v", err)
	}

	stats, err := u.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.FilesErrored != 1 || stats.FilesSynced != 0 {
		t.Errorf("stats = %+v, want 1 errored and 0 synced", stats)
	}
}
