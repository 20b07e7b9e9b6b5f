package analytics

import (
	"math"
	"testing"
	"time"

	"github.com/claude/rehabreps/internal/models"
	"github.com/google/uuid"
)

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func row(daysAgo int, reps int, form float64, durSec float64) models.SessionRow {
	return models.SessionRow{
		ID:           uuid.New(),
		Exercise:     "ArmRaise",
		StartedAt:    now.Add(-time.Duration(daysAgo) * 24 * time.Hour),
		TotalReps:    reps,
		TotalPoints:  reps * 7,
		AvgFormScore: form,
		DurationSec:  durSec,
	}
}

// TestProgressEmpty verifies that no rows yields a nil report rather than
// zero-filled metrics.
func TestProgressEmpty(t *testing.T) {
	if got := Progress(nil, now); got != nil {
		t.Errorf("Progress(nil) = %+v, want nil", got)
	}
}

// TestProgressTotals verifies rep/point totals, averages, and best-session
// selection.
func TestProgressTotals(t *testing.T) {
	rows := []models.SessionRow{
		row(3, 10, 6.0, 120),
		row(2, 12, 8.0, 150),
		row(1, 8, 7.0, 90),
	}
	m := Progress(rows, now)
	if m == nil {
		t.Fatal("nil metrics")
	}
	if m.TotalSessions != 3 {
		t.Errorf("total sessions = %d, want 3", m.TotalSessions)
	}
	if m.TotalReps != 30 {
		t.Errorf("total reps = %d, want 30", m.TotalReps)
	}
	if m.AvgFormScore != 7.0 {
		t.Errorf("avg form = %f, want 7.0", m.AvgFormScore)
	}
	if m.AvgDurationSec != 120 {
		t.Errorf("avg duration = %f, want 120", m.AvgDurationSec)
	}
	if m.BestSession == nil || m.BestSession.FormScore != 8.0 {
		t.Errorf("best session = %+v, want form 8.0", m.BestSession)
	}
}

// TestProgressWeeklyWindow verifies old sessions fall outside the trailing
// seven-day window.
func TestProgressWeeklyWindow(t *testing.T) {
	rows := []models.SessionRow{
		row(10, 20, 9.0, 300), // outside the week
		row(2, 10, 8.0, 120),
		row(1, 12, 6.0, 150),
	}
	m := Progress(rows, now)
	if m.Weekly.Sessions != 2 {
		t.Errorf("weekly sessions = %d, want 2", m.Weekly.Sessions)
	}
	if m.Weekly.Reps != 22 {
		t.Errorf("weekly reps = %d, want 22", m.Weekly.Reps)
	}
	if m.Weekly.AvgFormScore != 7.0 {
		t.Errorf("weekly avg form = %f, want 7.0", m.Weekly.AvgFormScore)
	}
}

// TestImprovementAreasLowForm verifies the low-form hint triggers below the
// 7.0 average threshold and not above it.
func TestImprovementAreasLowForm(t *testing.T) {
	low := Progress([]models.SessionRow{row(2, 10, 5.0, 120), row(1, 10, 5.5, 120)}, now)
	if !contains(low.ImprovementAreas, "Form quality - aim for higher accuracy") {
		t.Errorf("missing form quality hint in %v", low.ImprovementAreas)
	}

	high := Progress([]models.SessionRow{row(2, 10, 9.0, 120), row(1, 10, 9.5, 120)}, now)
	if contains(high.ImprovementAreas, "Form quality - aim for higher accuracy") {
		t.Errorf("unexpected form quality hint in %v", high.ImprovementAreas)
	}
}

// TestImprovementAreasFrequency verifies long average gaps between sessions
// trigger the frequency hint.
func TestImprovementAreasFrequency(t *testing.T) {
	rows := []models.SessionRow{row(9, 10, 8.0, 120), row(3, 10, 8.0, 120)}
	m := Progress(rows, now)
	if !contains(m.ImprovementAreas, "Session frequency - try to exercise more regularly") {
		t.Errorf("missing frequency hint in %v", m.ImprovementAreas)
	}
}

// TestImprovementAreasErraticForm verifies a high recent form spread
// triggers the consistency hint.
func TestImprovementAreasErraticForm(t *testing.T) {
	rows := []models.SessionRow{
		row(3, 10, 3.0, 120),
		row(2, 10, 9.0, 120),
		row(1, 10, 4.0, 120),
	}
	m := Progress(rows, now)
	if !contains(m.ImprovementAreas, "Form consistency - scores vary significantly") {
		t.Errorf("missing consistency hint in %v", m.ImprovementAreas)
	}
}

// TestImprovementAreasShortSessions verifies recent sub-30s sessions trigger
// the duration hint.
func TestImprovementAreasShortSessions(t *testing.T) {
	rows := []models.SessionRow{
		row(3, 10, 8.0, 120),
		row(2, 10, 8.0, 20),
		row(1, 10, 8.0, 110),
	}
	m := Progress(rows, now)
	if !contains(m.ImprovementAreas, "Session duration - longer sessions may improve results") {
		t.Errorf("missing duration hint in %v", m.ImprovementAreas)
	}
}

// TestComparePeriods verifies deltas between two windows.
func TestComparePeriods(t *testing.T) {
	current := []models.SessionRow{row(1, 12, 8.0, 120), row(2, 10, 9.0, 130)}
	previous := []models.SessionRow{row(8, 8, 6.0, 100)}

	c := ComparePeriods(current, previous)
	if c.Current.Sessions != 2 || c.Previous.Sessions != 1 {
		t.Errorf("sessions = %d/%d, want 2/1", c.Current.Sessions, c.Previous.Sessions)
	}
	if c.RepsDelta != 14 {
		t.Errorf("reps delta = %d, want 14", c.RepsDelta)
	}
	if math.Abs(c.FormDelta-2.5) > 1e-9 {
		t.Errorf("form delta = %f, want 2.5", c.FormDelta)
	}
	if c.SessionsDelta != 1 {
		t.Errorf("sessions delta = %d, want 1", c.SessionsDelta)
	}
}

// TestSummarizeEmpty verifies an empty window summarizes to zeros without
// dividing by zero.
func TestSummarizeEmpty(t *testing.T) {
	p := Summarize(nil)
	if p.Sessions != 0 || p.AvgFormScore != 0 {
		t.Errorf("empty summary = %+v, want zeros", p)
	}
}

func contains(areas []string, s string) bool {
	for _, a := range areas {
		if a == s {
			return true
		}
	}
	return false
}
