package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionRow is a finalized session summary ready for insertion into the
// sessions table.
type SessionRow struct {
	ID            uuid.UUID `json:"id"`
	Exercise      string    `json:"exercise"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
	DurationSec   float64   `json:"duration_sec"`
	TotalReps     int       `json:"total_reps"`
	PerfectReps   int       `json:"perfect_reps"`
	GoodReps      int       `json:"good_reps"`
	OkayReps      int       `json:"okay_reps"`
	PoorReps      int       `json:"poor_reps"`
	TotalPoints   int       `json:"total_points"`
	AvgFormScore  float64   `json:"avg_form_score"`
	FramesSeen    int       `json:"frames_seen"`
	FramesSkipped int       `json:"frames_skipped"`
	RepsDiscarded int       `json:"reps_discarded"`
}

// RepRow is a scored repetition ready for insertion into the session_reps table.
type RepRow struct {
	SessionID      uuid.UUID `json:"session_id"`
	RepNumber      int       `json:"rep_number"`
	StartOffsetSec float64   `json:"start_offset_sec"`
	EndOffsetSec   float64   `json:"end_offset_sec"`
	PeakAngle      float64   `json:"peak_angle"`
	MinAngle       float64   `json:"min_angle"`
	RangeOfMotion  float64   `json:"range_of_motion"`
	MeanConfidence float64   `json:"mean_confidence"`
	Quality        string    `json:"quality"`
	Points         int       `json:"points"`
}
