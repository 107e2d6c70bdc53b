package upload

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Stats tracks sync progress.
type Stats struct {
	FilesTotal   int
	FilesSynced  int
	FilesSkipped int
	FilesErrored int

	SessionsSent       int
	SessionsDuplicate  int
	SessionsSuppressed int
}

// Uploader walks an export directory, converts cardio export files to the
// ingest API format, and POSTs them to the IronLog server.
type Uploader struct {
	client    *Client
	state     *StateDB
	exportDir string
	dryRun    bool
	log       *slog.Logger
	stats     Stats
}

// New creates a new Uploader.
func New(client *Client, state *StateDB, exportDir string, dryRun bool, log *slog.Logger) *Uploader {
	return &Uploader{
		client:    client,
		state:     state,
		exportDir: exportDir,
		dryRun:    dryRun,
		log:       log,
	}
}

// Run executes the sync pipeline over all .json export files.
func (u *Uploader) Run() (*Stats, error) {
	files, err := filepath.Glob(filepath.Join(u.exportDir, "*.json"))
	if err != nil {
		return &u.stats, fmt.Errorf("listing export files: %w", err)
	}

	for _, f := range files {
		u.stats.FilesTotal++

		relPath, _ := filepath.Rel(u.exportDir, f)
		info, err := os.Stat(f)
		if err != nil {
			u.log.Warn("stat failed", "file", f, "error", err)
			u.stats.FilesErrored++
			continue
		}

		hash, err := HashFile(f)
		if err != nil {
			u.log.Warn("hash failed", "file", f, "error", err)
			u.stats.FilesErrored++
			continue
		}

		synced, err := u.state.IsSynced(relPath, info.Size(), hash)
		if err != nil {
			u.log.Warn("state check failed", "file", f, "error", err)
			u.stats.FilesErrored++
			continue
		}
		if synced {
			u.stats.FilesSkipped++
			continue
		}

		if err := u.syncFile(f, relPath); err != nil {
			u.log.Warn("sync failed", "file", f, "error", err)
			u.stats.FilesErrored++
			continue
		}

		if err := u.state.MarkSynced(relPath, info.Size(), hash); err != nil {
			u.log.Warn("failed to mark synced", "file", relPath, "error", err)
		}
		u.stats.FilesSynced++
	}

	return &u.stats, nil
}

// syncFile parses one export file and sends every session in it. The file is
// only marked synced if all sessions went through, so a partial failure is
// retried on the next run (duplicates are rejected server-side by session ID).
func (u *Uploader) syncFile(path, relPath string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	var file exportFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	source := file.Source
	if source == "" {
		source = "export"
	}

	sent := 0
	for _, s := range file.Sessions {
		payload, err := convertSession(s, source)
		if err != nil {
			u.log.Warn("skipping session", "file", relPath, "error", err)
			continue
		}

		if u.dryRun {
			u.log.Info("dry-run: would send session",
				"file", relPath,
				"start", payload.StartTime,
				"source", payload.Source,
			)
			sent++
			continue
		}

		result, err := u.client.SendCardio(payload)
		if err != nil {
			return fmt.Errorf("sending session from %s: %w", relPath, err)
		}

		sent++
		if !result.Inserted {
			u.stats.SessionsDuplicate++
		}
		if result.Suppressed {
			u.stats.SessionsSuppressed++
		}
	}

	u.stats.SessionsSent += sent
	u.log.Info("synced file", "file", relPath, "sessions", sent)
	return nil
}
