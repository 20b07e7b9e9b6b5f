// Package importer loads historical session CSV files into the database.
// The accepted format matches the export package's session CSV, so data
// exported from one instance (or from the replay tool) can be imported into
// another.
package importer

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/claude/rehabreps/internal/models"
	"github.com/claude/rehabreps/internal/storage"
	"github.com/google/uuid"
)

// Stats accumulates counts across an import run.
type Stats struct {
	FilesProcessed   int
	FilesSkipped     int
	FilesErrored     int
	SessionsInserted int
}

// Importer walks a directory of session CSV files and inserts their rows.
type Importer struct {
	db     *storage.DB
	log    *slog.Logger
	dryRun bool
}

func New(db *storage.DB, log *slog.Logger, dryRun bool) *Importer {
	return &Importer{db: db, log: log, dryRun: dryRun}
}

// Import processes every .csv file under dir. Files that fail to parse are
// counted and skipped; the run continues.
func (imp *Importer) Import(ctx context.Context, dir string) (*Stats, error) {
	stats := &Stats{}

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".csv") {
			if !d.IsDir() {
				stats.FilesSkipped++
			}
			return nil
		}

		rows, err := imp.importFile(ctx, path)
		if err != nil {
			imp.log.Error("import file failed", "path", path, "error", err)
			stats.FilesErrored++
			return nil
		}
		stats.FilesProcessed++
		stats.SessionsInserted += rows
		return nil
	})
	if err != nil {
		return stats, fmt.Errorf("walking %s: %w", dir, err)
	}
	return stats, nil
}

func (imp *Importer) importFile(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	rows, err := ParseSessionsCSV(f)
	if err != nil {
		return 0, err
	}

	imp.log.Info("parsed session csv", "path", path, "sessions", len(rows))
	if imp.dryRun {
		return len(rows), nil
	}

	inserted := 0
	for _, row := range rows {
		if err := imp.db.SaveSession(ctx, row, nil); err != nil {
			return inserted, fmt.Errorf("saving session %s: %w", row.ID, err)
		}
		inserted++
	}
	return inserted, nil
}

var sessionColumns = []string{
	"timestamp", "exercise", "reps", "avg_form_score", "duration_sec", "total_points",
}

// ParseSessionsCSV reads session rows from the export CSV format. Session
// IDs are derived deterministically from timestamp and exercise, so
// re-importing the same file is idempotent.
func ParseSessionsCSV(r io.Reader) ([]models.SessionRow, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading csv header: %w", err)
	}
	col := map[string]int{}
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	for _, want := range sessionColumns {
		if _, ok := col[want]; !ok {
			return nil, fmt.Errorf("csv missing column %q", want)
		}
	}

	var rows []models.SessionRow
	line := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		startedAt, err := time.Parse(time.RFC3339, record[col["timestamp"]])
		if err != nil {
			return nil, fmt.Errorf("line %d: parsing timestamp: %w", line, err)
		}
		exercise := record[col["exercise"]]
		if exercise == "" {
			return nil, fmt.Errorf("line %d: empty exercise", line)
		}
		reps, err := strconv.Atoi(record[col["reps"]])
		if err != nil {
			return nil, fmt.Errorf("line %d: parsing reps: %w", line, err)
		}
		avgForm, err := strconv.ParseFloat(record[col["avg_form_score"]], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: parsing avg_form_score: %w", line, err)
		}
		duration, err := strconv.ParseFloat(record[col["duration_sec"]], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: parsing duration_sec: %w", line, err)
		}
		points, err := strconv.Atoi(record[col["total_points"]])
		if err != nil {
			return nil, fmt.Errorf("line %d: parsing total_points: %w", line, err)
		}

		id := uuid.NewSHA1(uuid.NameSpaceOID,
			[]byte(startedAt.Format(time.RFC3339)+"|"+exercise))

		rows = append(rows, models.SessionRow{
			ID:           id,
			Exercise:     exercise,
			StartedAt:    startedAt,
			FinishedAt:   startedAt.Add(time.Duration(duration * float64(time.Second))),
			DurationSec:  duration,
			TotalReps:    reps,
			TotalPoints:  points,
			AvgFormScore: avgForm,
		})
	}
	return rows, nil
}
