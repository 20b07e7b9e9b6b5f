// Package export renders stored sessions as CSV for download and offline
// analysis.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/claude/rehabreps/internal/models"
)

var sessionHeader = []string{
	"timestamp", "exercise", "reps", "avg_form_score", "duration_sec", "total_points",
}

var repHeader = []string{
	"rep_number", "start_offset_sec", "end_offset_sec",
	"peak_angle", "min_angle", "range_of_motion", "mean_confidence", "quality", "points",
}

// Sessions writes one CSV line per stored session.
func Sessions(w io.Writer, rows []models.SessionRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(sessionHeader); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for _, r := range rows {
		record := []string{
			r.StartedAt.Format(time.RFC3339),
			r.Exercise,
			strconv.Itoa(r.TotalReps),
			strconv.FormatFloat(r.AvgFormScore, 'f', 2, 64),
			strconv.FormatFloat(r.DurationSec, 'f', 2, 64),
			strconv.Itoa(r.TotalPoints),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Reps writes one CSV line per repetition of a single session.
func Reps(w io.Writer, reps []models.RepRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(repHeader); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for _, r := range reps {
		record := []string{
			strconv.Itoa(r.RepNumber),
			strconv.FormatFloat(r.StartOffsetSec, 'f', 3, 64),
			strconv.FormatFloat(r.EndOffsetSec, 'f', 3, 64),
			strconv.FormatFloat(r.PeakAngle, 'f', 1, 64),
			strconv.FormatFloat(r.MinAngle, 'f', 1, 64),
			strconv.FormatFloat(r.RangeOfMotion, 'f', 1, 64),
			strconv.FormatFloat(r.MeanConfidence, 'f', 2, 64),
			r.Quality,
			strconv.Itoa(r.Points),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
