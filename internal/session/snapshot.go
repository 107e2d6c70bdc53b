package session

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/meltforce/ironlog/internal/models"
)

// SnapshotStore is a local SQLite database holding the live-workout
// snapshot for crash recovery, the clean-shutdown flag, and the discard
// windows used to suppress cardio auto-import.
type SnapshotStore struct {
	db *sql.DB
}

// OpenSnapshotStore opens (or creates) the snapshot database at
// dir/session.db.
func OpenSnapshotStore(dir string) (*SnapshotStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating snapshot dir %s: %w", dir, err)
	}

	dbPath := filepath.Join(dir, "session.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot db: %w", err)
	}

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS live_workout (
			id         INTEGER PRIMARY KEY CHECK (id = 1),
			payload    TEXT NOT NULL,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS discard_windows (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			start_time TIMESTAMP NOT NULL,
			end_time   TIMESTAMP NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating snapshot tables: %w", err)
		}
	}

	return &SnapshotStore{db: db}, nil
}

// SaveLive persists the live workout snapshot. A nil workout clears it.
func (s *SnapshotStore) SaveLive(w *models.CurrentWorkout) error {
	if w == nil {
		_, err := s.db.Exec(`DELETE FROM live_workout WHERE id = 1`)
		return err
	}
	payload, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("encoding live workout: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT OR REPLACE INTO live_workout (id, payload, updated_at) VALUES (1, ?, CURRENT_TIMESTAMP)`,
		string(payload),
	)
	return err
}

// LoadLive returns the persisted live workout, or nil when none exists.
func (s *SnapshotStore) LoadLive() (*models.CurrentWorkout, error) {
	var payload string
	err := s.db.QueryRow(`SELECT payload FROM live_workout WHERE id = 1`).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var w models.CurrentWorkout
	if err := json.Unmarshal([]byte(payload), &w); err != nil {
		return nil, fmt.Errorf("decoding live workout: %w", err)
	}
	return &w, nil
}

// MarkCleanShutdown records whether the process is shutting down in an
// orderly fashion. Set to false on startup and true on graceful exit; a
// stale false on the next boot means the app was force quit.
func (s *SnapshotStore) MarkCleanShutdown(clean bool) error {
	value := "0"
	if clean {
		value = "1"
	}
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO meta (key, value) VALUES ('clean_shutdown', ?)`,
		value,
	)
	return err
}

// WasCleanShutdown reports whether the previous run exited cleanly. A fresh
// database counts as clean.
func (s *SnapshotStore) WasCleanShutdown() (bool, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM meta WHERE key = 'clean_shutdown'`).Scan(&value)
	if err == sql.ErrNoRows {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return value == "1", nil
}

// AddDiscardWindow records a start-to-discard time window.
func (s *SnapshotStore) AddDiscardWindow(start, end time.Time) error {
	_, err := s.db.Exec(
		`INSERT INTO discard_windows (start_time, end_time) VALUES (?, ?)`,
		start.UTC().Format(time.RFC3339), end.UTC().Format(time.RFC3339),
	)
	return err
}

// InDiscardWindow reports whether the given time range overlaps any
// recorded discard window.
func (s *SnapshotStore) InDiscardWindow(start, end time.Time) (bool, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM discard_windows WHERE start_time <= ? AND end_time >= ?`,
		end.UTC().Format(time.RFC3339), start.UTC().Format(time.RFC3339),
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Close closes the snapshot database.
func (s *SnapshotStore) Close() error {
	return s.db.Close()
}
