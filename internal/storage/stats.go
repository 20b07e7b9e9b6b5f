package storage

import (
	"context"
	"fmt"
	"time"
)

// DataStats holds aggregate statistics about all stored sessions.
type DataStats struct {
	TotalSessions   int64          `json:"total_sessions"`
	TotalReps       int64          `json:"total_reps"`
	TotalPoints     int64          `json:"total_points"`
	EarliestSession *time.Time     `json:"earliest_session"`
	LatestSession   *time.Time     `json:"latest_session"`
	ByExercise      []ExerciseStat `json:"by_exercise"`
}

// ExerciseStat holds summary stats for a single exercise.
type ExerciseStat struct {
	Exercise     string  `json:"exercise"`
	Count        int64   `json:"count"`
	TotalReps    int64   `json:"total_reps"`
	AvgFormScore float64 `json:"avg_form_score"`
}

// GetDataStats returns aggregate statistics across all stored sessions.
func (db *DB) GetDataStats(ctx context.Context) (*DataStats, error) {
	stats := &DataStats{}

	err := db.Pool.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(total_reps), 0), COALESCE(SUM(total_points), 0),
		 MIN(started_at), MAX(started_at)
		 FROM sessions`,
	).Scan(&stats.TotalSessions, &stats.TotalReps, &stats.TotalPoints,
		&stats.EarliestSession, &stats.LatestSession)
	if err != nil {
		return nil, fmt.Errorf("counting sessions: %w", err)
	}

	rows, err := db.Pool.Query(ctx,
		`SELECT exercise, COUNT(*), COALESCE(SUM(total_reps), 0), COALESCE(AVG(avg_form_score), 0)
		 FROM sessions
		 GROUP BY exercise
		 ORDER BY COUNT(*) DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying sessions by exercise: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s ExerciseStat
		if err := rows.Scan(&s.Exercise, &s.Count, &s.TotalReps, &s.AvgFormScore); err != nil {
			return nil, fmt.Errorf("scanning exercise stat: %w", err)
		}
		stats.ByExercise = append(stats.ByExercise, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return stats, nil
}
