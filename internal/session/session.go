package session

import (
	"errors"
	"sync"
	"time"

	"github.com/claude/rehabreps/internal/engine"
	"github.com/claude/rehabreps/internal/models"
	"github.com/claude/rehabreps/internal/profile"
	"github.com/google/uuid"
)

// ErrSessionClosed reports an operation on a finalized or cancelled session.
// This is a usage error surfaced to the caller; the summary is not mutated.
var ErrSessionClosed = errors.New("session is closed")

// Update is a live event pushed to session subscribers.
type Update struct {
	Type    string                   `json:"type"` // "rep", "finalized", "cancelled"
	Rep     *models.ScoredRepetition `json:"rep,omitempty"`
	Summary *models.SessionSummary   `json:"summary,omitempty"`
}

// Session owns all mutable state for one exercise session: the detector
// state, the running summary, and the subscriber set for live updates.
// Frames are processed strictly in arrival order under the session mutex;
// independent sessions share nothing.
type Session struct {
	ID        uuid.UUID
	Profile   *profile.ExerciseProfile
	StartedAt time.Time

	mu      sync.Mutex
	state   engine.State
	summary models.SessionSummary
	firstTS float64
	lastTS  float64
	hasTS   bool
	closed  bool

	subMu sync.Mutex
	subs  map[chan Update]struct{}
}

// New creates a session for the given exercise profile.
func New(p *profile.ExerciseProfile) *Session {
	return &Session{
		ID:        uuid.New(),
		Profile:   p,
		StartedAt: time.Now(),
		state:     engine.NewState(),
		summary: models.SessionSummary{
			Exercise: p.Name,
			Counts:   map[models.Quality]int{},
		},
		subs: map[chan Update]struct{}{},
	}
}

// ProcessFrame runs one landmark sample through the full pipeline: angle
// extraction, detector step, and (on rep completion) scoring and recording.
// Low-confidence frames are skipped without touching detector state. Returns
// the scored repetition when the frame completed one.
func (s *Session) ProcessFrame(sample models.LandmarkSample) (*models.ScoredRepetition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrSessionClosed
	}

	s.summary.FramesSeen++

	angle, err := engine.ExtractAngle(s.Profile, sample)
	if err != nil {
		// ErrLowConfidence: no usable angle this frame.
		s.summary.FramesSkipped++
		return nil, nil
	}

	if !s.hasTS {
		s.firstTS = angle.Timestamp
		s.hasTS = true
	}
	s.lastTS = angle.Timestamp

	var event *models.RepetitionEvent
	s.state, event = engine.Step(s.Profile, s.state, angle)
	s.summary.RepsDiscarded = s.state.Discarded

	if event == nil {
		return nil, nil
	}

	scored := engine.Score(s.Profile, *event)
	s.record(scored)
	s.publish(Update{Type: "rep", Rep: &scored})
	return &scored, nil
}

// Record appends an externally scored repetition to the session summary.
// Fails with ErrSessionClosed after Finalize or Cancel.
func (s *Session) Record(rep models.ScoredRepetition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	s.record(rep)
	return nil
}

// record assumes s.mu is held.
func (s *Session) record(rep models.ScoredRepetition) {
	s.summary.Reps = append(s.summary.Reps, rep)
	s.summary.Counts[rep.Quality]++
	s.summary.TotalReps++
	s.summary.TotalPoints += rep.Points
}

// Finalize closes the session and returns the frozen summary. Elapsed time
// spans the first to the last repetition when reps exist, otherwise the
// first to the last processed sample. Further Record, ProcessFrame, or
// Finalize calls fail with ErrSessionClosed.
func (s *Session) Finalize() (models.SessionSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return models.SessionSummary{}, ErrSessionClosed
	}
	s.closed = true
	s.summary.ElapsedSec = s.elapsed()
	s.summary.Finalized = true

	out := s.snapshotLocked()
	s.publish(Update{Type: "finalized", Summary: &out})
	s.closeSubs()
	return out, nil
}

// Cancel discards the session. A repetition in progress is not counted; the
// returned summary is partial (not finalized) and is not persisted.
func (s *Session) Cancel() models.SessionSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return s.snapshotLocked()
	}
	s.closed = true
	s.state = engine.NewState()
	s.summary.ElapsedSec = s.elapsed()

	out := s.snapshotLocked()
	s.publish(Update{Type: "cancelled", Summary: &out})
	s.closeSubs()
	return out
}

// Snapshot returns a copy of the live summary plus the detector phase.
func (s *Session) Snapshot() LiveSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	sum := s.snapshotLocked()
	if !s.closed {
		sum.ElapsedSec = s.elapsed()
	}
	return LiveSnapshot{
		ID:        s.ID,
		StartedAt: s.StartedAt,
		Detector:  s.state.Snapshot(),
		Summary:   sum,
		Closed:    s.closed,
	}
}

// LiveSnapshot is the displayable view of an active session.
type LiveSnapshot struct {
	ID        uuid.UUID             `json:"id"`
	StartedAt time.Time             `json:"started_at"`
	Detector  engine.Snapshot       `json:"detector"`
	Summary   models.SessionSummary `json:"summary"`
	Closed    bool                  `json:"closed"`
}

func (s *Session) elapsed() float64 {
	if n := len(s.summary.Reps); n > 0 {
		return s.summary.Reps[n-1].EndTime - s.summary.Reps[0].StartTime
	}
	if s.hasTS {
		return s.lastTS - s.firstTS
	}
	return 0
}

// snapshotLocked deep-copies the summary so callers cannot alias the
// session's mutable slices and maps. Assumes s.mu is held.
func (s *Session) snapshotLocked() models.SessionSummary {
	out := s.summary
	out.Reps = append([]models.ScoredRepetition(nil), s.summary.Reps...)
	out.Counts = make(map[models.Quality]int, len(s.summary.Counts))
	for q, n := range s.summary.Counts {
		out.Counts[q] = n
	}
	return out
}

// Subscribe registers a live update channel. The returned cancel func must
// be called when the consumer goes away. Slow consumers miss updates rather
// than blocking frame processing.
func (s *Session) Subscribe() (<-chan Update, func()) {
	ch := make(chan Update, 16)

	s.subMu.Lock()
	if s.subs == nil {
		// Session already closed; hand back a closed channel.
		s.subMu.Unlock()
		close(ch)
		return ch, func() {}
	}
	s.subs[ch] = struct{}{}
	s.subMu.Unlock()

	return ch, func() {
		s.subMu.Lock()
		if s.subs != nil {
			if _, ok := s.subs[ch]; ok {
				delete(s.subs, ch)
				close(ch)
			}
		}
		s.subMu.Unlock()
	}
}

func (s *Session) publish(u Update) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for ch := range s.subs {
		select {
		case ch <- u:
		default:
		}
	}
}

func (s *Session) closeSubs() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for ch := range s.subs {
		close(ch)
	}
	s.subs = nil
}

// Rows converts a finalized summary into storage rows. Rep offsets are kept
// relative to the session's first sample timestamp.
func Rows(id uuid.UUID, startedAt time.Time, sum models.SessionSummary) (models.SessionRow, []models.RepRow) {
	row := models.SessionRow{
		ID:            id,
		Exercise:      sum.Exercise,
		StartedAt:     startedAt,
		FinishedAt:    startedAt.Add(time.Duration(sum.ElapsedSec * float64(time.Second))),
		DurationSec:   sum.ElapsedSec,
		TotalReps:     sum.TotalReps,
		PerfectReps:   sum.Counts[models.QualityPerfect],
		GoodReps:      sum.Counts[models.QualityGood],
		OkayReps:      sum.Counts[models.QualityOkay],
		PoorReps:      sum.Counts[models.QualityPoor],
		TotalPoints:   sum.TotalPoints,
		AvgFormScore:  sum.AvgFormScore(),
		FramesSeen:    sum.FramesSeen,
		FramesSkipped: sum.FramesSkipped,
		RepsDiscarded: sum.RepsDiscarded,
	}

	reps := make([]models.RepRow, len(sum.Reps))
	for i, r := range sum.Reps {
		reps[i] = models.RepRow{
			SessionID:      id,
			RepNumber:      i + 1,
			StartOffsetSec: r.StartTime,
			EndOffsetSec:   r.EndTime,
			PeakAngle:      r.PeakAngle,
			MinAngle:       r.MinAngle,
			RangeOfMotion:  r.RangeOfMotion,
			MeanConfidence: r.MeanConfidence,
			Quality:        string(r.Quality),
			Points:         r.Points,
		}
	}
	return row, reps
}
