// Package analytics computes progress metrics over stored session rows.
// All functions are pure; callers fetch rows from storage and pass them in.
package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/claude/rehabreps/internal/models"
)

// BestSession identifies the highest-scoring stored session.
type BestSession struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
	Reps      int       `json:"reps"`
	FormScore float64   `json:"form_score"`
	Duration  float64   `json:"duration_sec"`
}

// WeeklyStats summarizes the trailing seven days.
type WeeklyStats struct {
	Sessions     int     `json:"sessions_this_week"`
	Reps         int     `json:"reps_this_week"`
	AvgFormScore float64 `json:"avg_form_this_week"`
}

// ProgressMetrics is the full progress report for one exercise (or all).
type ProgressMetrics struct {
	TotalSessions    int          `json:"total_sessions"`
	TotalReps        int          `json:"total_reps"`
	TotalPoints      int          `json:"total_points"`
	AvgFormScore     float64      `json:"avg_form_score"`
	AvgDurationSec   float64      `json:"avg_duration_sec"`
	BestSession      *BestSession `json:"best_session,omitempty"`
	ImprovementAreas []string     `json:"improvement_areas"`
	Weekly           WeeklyStats  `json:"weekly_stats"`
}

// PeriodStats summarizes one time window for period comparison.
type PeriodStats struct {
	Sessions     int     `json:"sessions"`
	Reps         int     `json:"reps"`
	Points       int     `json:"points"`
	AvgFormScore float64 `json:"avg_form_score"`
}

// Comparison contrasts two periods of the same exercise.
type Comparison struct {
	Current       PeriodStats `json:"current"`
	Previous      PeriodStats `json:"previous"`
	FormDelta     float64     `json:"form_delta"`
	RepsDelta     int         `json:"reps_delta"`
	SessionsDelta int         `json:"sessions_delta"`
}

// Progress computes the metrics report over the given rows. Returns nil when
// there are no rows. The now argument anchors the trailing-week window.
func Progress(rows []models.SessionRow, now time.Time) *ProgressMetrics {
	if len(rows) == 0 {
		return nil
	}

	sorted := append([]models.SessionRow(nil), rows...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].StartedAt.Before(sorted[j].StartedAt)
	})

	m := &ProgressMetrics{TotalSessions: len(sorted)}
	var formSum, durSum float64
	best := sorted[0]
	for _, r := range sorted {
		m.TotalReps += r.TotalReps
		m.TotalPoints += r.TotalPoints
		formSum += r.AvgFormScore
		durSum += r.DurationSec
		if r.AvgFormScore > best.AvgFormScore {
			best = r
		}
	}
	m.AvgFormScore = formSum / float64(len(sorted))
	m.AvgDurationSec = durSum / float64(len(sorted))
	m.BestSession = &BestSession{
		ID:        best.ID.String(),
		StartedAt: best.StartedAt,
		Reps:      best.TotalReps,
		FormScore: best.AvgFormScore,
		Duration:  best.DurationSec,
	}
	m.ImprovementAreas = improvementAreas(sorted)
	m.Weekly = weeklyStats(sorted, now)
	return m
}

// improvementAreas flags patterns worth attention: erratic recent form,
// low overall form, long gaps between sessions, and very short sessions.
func improvementAreas(sorted []models.SessionRow) []string {
	areas := []string{}

	if len(sorted) >= 3 {
		recent := sorted[len(sorted)-3:]
		if stddev(recent, func(r models.SessionRow) float64 { return r.AvgFormScore }) > 2.0 {
			areas = append(areas, "Form consistency - scores vary significantly")
		}
	}

	var formSum float64
	for _, r := range sorted {
		formSum += r.AvgFormScore
	}
	if formSum/float64(len(sorted)) < 7.0 {
		areas = append(areas, "Form quality - aim for higher accuracy")
	}

	if len(sorted) >= 2 {
		var gapSum time.Duration
		for i := 1; i < len(sorted); i++ {
			gapSum += sorted[i].StartedAt.Sub(sorted[i-1].StartedAt)
		}
		avgGap := gapSum / time.Duration(len(sorted)-1)
		if avgGap > 48*time.Hour {
			areas = append(areas, "Session frequency - try to exercise more regularly")
		}
	}

	if len(sorted) >= 3 {
		for _, r := range sorted[len(sorted)-3:] {
			if r.DurationSec < 30 {
				areas = append(areas, "Session duration - longer sessions may improve results")
				break
			}
		}
	}

	return areas
}

func weeklyStats(rows []models.SessionRow, now time.Time) WeeklyStats {
	weekAgo := now.Add(-7 * 24 * time.Hour)
	var w WeeklyStats
	var formSum float64
	for _, r := range rows {
		if r.StartedAt.Before(weekAgo) {
			continue
		}
		w.Sessions++
		w.Reps += r.TotalReps
		formSum += r.AvgFormScore
	}
	if w.Sessions > 0 {
		w.AvgFormScore = formSum / float64(w.Sessions)
	}
	return w
}

// Summarize reduces a set of rows to period totals.
func Summarize(rows []models.SessionRow) PeriodStats {
	var p PeriodStats
	var formSum float64
	for _, r := range rows {
		p.Sessions++
		p.Reps += r.TotalReps
		p.Points += r.TotalPoints
		formSum += r.AvgFormScore
	}
	if p.Sessions > 0 {
		p.AvgFormScore = formSum / float64(p.Sessions)
	}
	return p
}

// ComparePeriods contrasts a current window against a previous one.
func ComparePeriods(current, previous []models.SessionRow) Comparison {
	cur := Summarize(current)
	prev := Summarize(previous)
	return Comparison{
		Current:       cur,
		Previous:      prev,
		FormDelta:     cur.AvgFormScore - prev.AvgFormScore,
		RepsDelta:     cur.Reps - prev.Reps,
		SessionsDelta: cur.Sessions - prev.Sessions,
	}
}

// stddev is the sample standard deviation of f over rows.
func stddev(rows []models.SessionRow, f func(models.SessionRow) float64) float64 {
	n := len(rows)
	if n < 2 {
		return 0
	}
	var sum float64
	for _, r := range rows {
		sum += f(r)
	}
	mean := sum / float64(n)
	var sq float64
	for _, r := range rows {
		d := f(r) - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(n-1))
}
