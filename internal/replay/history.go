package replay

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// HistoryDB tracks which recordings have been replayed so re-runs can be
// skipped, and keeps their results for quick review.
type HistoryDB struct {
	db *sql.DB
}

// OpenHistoryDB opens (or creates) the SQLite history database at
// dir/history.db.
func OpenHistoryDB(dir string) (*HistoryDB, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating history dir %s: %w", dir, err)
	}

	dbPath := filepath.Join(dir, "history.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening history db: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS replayed_files (
		path        TEXT PRIMARY KEY,
		hash        TEXT NOT NULL,
		exercise    TEXT NOT NULL,
		total_reps  INTEGER NOT NULL,
		total_points INTEGER NOT NULL,
		avg_form_score REAL NOT NULL,
		replayed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating history table: %w", err)
	}

	return &HistoryDB{db: db}, nil
}

// IsReplayed checks whether a file with the same content hash was already
// replayed.
func (h *HistoryDB) IsReplayed(relPath, hash string) (bool, error) {
	var count int
	err := h.db.QueryRow(
		`SELECT COUNT(*) FROM replayed_files WHERE path = ? AND hash = ?`,
		relPath, hash,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Record stores (or replaces) the replay result for a file.
func (h *HistoryDB) Record(relPath, hash, exercise string, totalReps, totalPoints int, avgForm float64) error {
	_, err := h.db.Exec(
		`INSERT OR REPLACE INTO replayed_files (path, hash, exercise, total_reps, total_points, avg_form_score)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		relPath, hash, exercise, totalReps, totalPoints, avgForm,
	)
	return err
}

// HistoryEntry is one past replay.
type HistoryEntry struct {
	Path         string
	Exercise     string
	TotalReps    int
	TotalPoints  int
	AvgFormScore float64
	ReplayedAt   time.Time
}

// Recent returns the latest n replays, newest first.
func (h *HistoryDB) Recent(n int) ([]HistoryEntry, error) {
	rows, err := h.db.Query(
		`SELECT path, exercise, total_reps, total_points, avg_form_score, replayed_at
		 FROM replayed_files
		 ORDER BY replayed_at DESC
		 LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(&e.Path, &e.Exercise, &e.TotalReps, &e.TotalPoints, &e.AvgFormScore, &e.ReplayedAt); err != nil {
			return nil, fmt.Errorf("scanning history entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close closes the history database.
func (h *HistoryDB) Close() error {
	return h.db.Close()
}

// HashFile computes the SHA-256 hash of a file.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
