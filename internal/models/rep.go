package models

// AngleSample is the joint angle derived from one LandmarkSample.
// Confidence is the minimum visibility among the three contributing landmarks.
type AngleSample struct {
	Timestamp    float64 `json:"timestamp"`
	AngleDegrees float64 `json:"angle_degrees"`
	Confidence   float64 `json:"confidence"`
}

// Quality is the categorical form score for a completed repetition.
type Quality string

const (
	QualityPerfect Quality = "Perfect"
	QualityGood    Quality = "Good"
	QualityOkay    Quality = "Okay"
	QualityPoor    Quality = "Poor"
)

// RepetitionEvent describes one completed movement cycle. Emitted exactly
// once per cycle by the detector; immutable afterwards.
type RepetitionEvent struct {
	StartTime      float64 `json:"start_time"`
	EndTime        float64 `json:"end_time"`
	PeakAngle      float64 `json:"peak_angle"`
	MinAngle       float64 `json:"min_angle"`
	RangeOfMotion  float64 `json:"range_of_motion"`
	MeanConfidence float64 `json:"mean_confidence"`
	SampleCount    int     `json:"sample_count"`
}

// Duration returns the rep duration in seconds.
func (e RepetitionEvent) Duration() float64 {
	return e.EndTime - e.StartTime
}

// ScoredRepetition is a RepetitionEvent with its quality classification.
type ScoredRepetition struct {
	RepetitionEvent
	Quality Quality `json:"quality"`
	Points  int     `json:"points"`
}

// SessionSummary accumulates scored repetitions for one session. Mutated only
// by the session aggregator; read-only once Finalized is set.
type SessionSummary struct {
	Exercise      string             `json:"exercise"`
	Reps          []ScoredRepetition `json:"reps"`
	Counts        map[Quality]int    `json:"counts"`
	TotalReps     int                `json:"total_reps"`
	TotalPoints   int                `json:"total_points"`
	ElapsedSec    float64            `json:"elapsed_sec"`
	FramesSeen    int                `json:"frames_seen"`
	FramesSkipped int                `json:"frames_skipped"`
	RepsDiscarded int                `json:"reps_discarded"`
	Finalized     bool               `json:"finalized"`
}

// AvgFormScore is the mean points per counted rep, the 0-10 form score used
// by progress analytics. Zero when no reps were recorded.
func (s SessionSummary) AvgFormScore() float64 {
	if s.TotalReps == 0 {
		return 0
	}
	return float64(s.TotalPoints) / float64(s.TotalReps)
}
