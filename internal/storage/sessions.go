package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/claude/rehabreps/internal/models"
	"github.com/google/uuid"
)

// SaveSession inserts a finalized session and its repetitions in one
// transaction. Re-saving the same session ID is a no-op.
func (db *DB) SaveSession(ctx context.Context, row models.SessionRow, reps []models.RepRow) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`INSERT INTO sessions (id, exercise, started_at, finished_at, duration_sec,
		 total_reps, perfect_reps, good_reps, okay_reps, poor_reps,
		 total_points, avg_form_score, frames_seen, frames_skipped, reps_discarded)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		 ON CONFLICT DO NOTHING`,
		row.ID, row.Exercise, row.StartedAt, row.FinishedAt, row.DurationSec,
		row.TotalReps, row.PerfectReps, row.GoodReps, row.OkayReps, row.PoorReps,
		row.TotalPoints, row.AvgFormScore, row.FramesSeen, row.FramesSkipped, row.RepsDiscarded)
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Already persisted; keep the original rows.
		return tx.Commit(ctx)
	}

	if len(reps) > 0 {
		query := `INSERT INTO session_reps (session_id, rep_number, start_offset_sec, end_offset_sec,
		 peak_angle, min_angle, range_of_motion, mean_confidence, quality, points) VALUES `
		args := make([]any, 0, len(reps)*10)
		valueStrings := make([]string, 0, len(reps))

		for i, r := range reps {
			base := i * 10
			valueStrings = append(valueStrings, fmt.Sprintf(
				"($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d)",
				base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8, base+9, base+10,
			))
			args = append(args, r.SessionID, r.RepNumber, r.StartOffsetSec, r.EndOffsetSec,
				r.PeakAngle, r.MinAngle, r.RangeOfMotion, r.MeanConfidence, r.Quality, r.Points)
		}

		query += strings.Join(valueStrings, ",") + " ON CONFLICT DO NOTHING"

		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("inserting session reps: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing session: %w", err)
	}
	return nil
}

// SessionDetail is a stored session with its per-rep rows.
type SessionDetail struct {
	models.SessionRow
	Reps []models.RepRow `json:"reps"`
}

// QuerySessions retrieves finished sessions in a time range, newest first.
// An empty exercise matches all exercises.
func (db *DB) QuerySessions(ctx context.Context, start, end time.Time, exercise string) ([]models.SessionRow, error) {
	query := `SELECT id, exercise, started_at, finished_at, duration_sec,
	 total_reps, perfect_reps, good_reps, okay_reps, poor_reps,
	 total_points, avg_form_score, frames_seen, frames_skipped, reps_discarded
	 FROM sessions
	 WHERE started_at >= $1 AND started_at < $2`
	args := []any{start, end}
	if exercise != "" {
		query += ` AND exercise = $3`
		args = append(args, exercise)
	}
	query += ` ORDER BY started_at DESC`

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	var result []models.SessionRow
	for rows.Next() {
		var s models.SessionRow
		if err := scanSessionRow(rows.Scan, &s); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

// GetSession retrieves a single stored session by ID with its repetitions.
func (db *DB) GetSession(ctx context.Context, id uuid.UUID) (*SessionDetail, error) {
	row := db.Pool.QueryRow(ctx,
		`SELECT id, exercise, started_at, finished_at, duration_sec,
		 total_reps, perfect_reps, good_reps, okay_reps, poor_reps,
		 total_points, avg_form_score, frames_seen, frames_skipped, reps_discarded
		 FROM sessions
		 WHERE id = $1`, id)

	var s models.SessionRow
	if err := scanSessionRow(row.Scan, &s); err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}

	detail := &SessionDetail{SessionRow: s}

	repRows, err := db.Pool.Query(ctx,
		`SELECT session_id, rep_number, start_offset_sec, end_offset_sec,
		 peak_angle, min_angle, range_of_motion, mean_confidence, quality, points
		 FROM session_reps
		 WHERE session_id = $1
		 ORDER BY rep_number ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("querying session reps: %w", err)
	}
	defer repRows.Close()

	for repRows.Next() {
		var r models.RepRow
		if err := repRows.Scan(&r.SessionID, &r.RepNumber, &r.StartOffsetSec, &r.EndOffsetSec,
			&r.PeakAngle, &r.MinAngle, &r.RangeOfMotion, &r.MeanConfidence, &r.Quality, &r.Points); err != nil {
			return nil, fmt.Errorf("scanning session rep: %w", err)
		}
		detail.Reps = append(detail.Reps, r)
	}

	return detail, repRows.Err()
}

// Exercises returns the distinct exercise names present in stored sessions.
func (db *DB) Exercises(ctx context.Context) ([]string, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT DISTINCT exercise FROM sessions ORDER BY exercise ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying exercises: %w", err)
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning exercise: %w", err)
		}
		result = append(result, name)
	}
	return result, rows.Err()
}

func scanSessionRow(scan func(dest ...any) error, s *models.SessionRow) error {
	return scan(&s.ID, &s.Exercise, &s.StartedAt, &s.FinishedAt, &s.DurationSec,
		&s.TotalReps, &s.PerfectReps, &s.GoodReps, &s.OkayReps, &s.PoorReps,
		&s.TotalPoints, &s.AvgFormScore, &s.FramesSeen, &s.FramesSkipped, &s.RepsDiscarded)
}
