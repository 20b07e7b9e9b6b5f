package engine

import (
	"github.com/claude/rehabreps/internal/models"
	"github.com/claude/rehabreps/internal/profile"
)

// Phase is the detector's position within a movement cycle.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseAscending
	PhasePeak
	PhaseDescending
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "Idle"
	case PhaseAscending:
		return "Ascending"
	case PhasePeak:
		return "Peak"
	case PhaseDescending:
		return "Descending"
	}
	return "Unknown"
}

// State is the repetition detector's per-session state. It is a plain value:
// Step returns a new State rather than mutating, so a sequence of angle
// samples can be replayed against it without any live stream.
//
// Raw angles drive band crossings (debounced) and the tracked extrema; the
// moving average over the rolling window only drives slope-based peak
// detection, so emitted peak angles are exact sample values.
type State struct {
	Phase Phase

	// Candidate repetition tracking. StartTime is the first sample that left
	// the rest band; MinAngle includes the resting samples just before it.
	StartTime float64
	PeakAngle float64
	MinAngle  float64

	confSum     float64
	sampleCount int

	// Debounce counters for rest-band exit and re-entry.
	aboveCount int
	belowCount int

	// Pending values accumulated while debouncing the Idle exit.
	pendingStart float64

	// Running minimum observed while resting, seeding MinAngle.
	idleMin    float64
	hasIdleMin bool

	// Rolling window of recent raw angles for smoothing.
	window       []float64
	prevSmoothed float64
	hasPrev      bool

	// Discarded counts candidate reps dropped for implausible duration.
	Discarded int
}

// NewState returns the initial detector state for a session.
func NewState() State {
	return State{Phase: PhaseIdle}
}

// Step advances the detector by one valid angle sample. It returns the new
// state and, when the sample closes a plausible movement cycle, the completed
// RepetitionEvent. Step never fails: every state has a transition for every
// input, and implausible candidates are dropped into the Discarded counter.
func Step(p *profile.ExerciseProfile, st State, s models.AngleSample) (State, *models.RepetitionEvent) {
	raw := s.AngleDegrees
	smoothed := st.pushWindow(raw, p.SmoothWindow)

	inRest := raw >= p.RestMin && raw <= p.RestMax

	switch st.Phase {
	case PhaseIdle:
		if inRest {
			if !st.hasIdleMin || raw < st.idleMin {
				st.idleMin = raw
				st.hasIdleMin = true
			}
		}
		if raw > p.RestMax {
			if st.aboveCount == 0 {
				st.pendingStart = s.Timestamp
				st.PeakAngle = raw
				st.MinAngle = raw
				st.confSum = 0
				st.sampleCount = 0
			}
			st.aboveCount++
			st.track(raw, s.Confidence)
			if st.aboveCount >= p.DebounceSamples {
				st.Phase = PhaseAscending
				st.StartTime = st.pendingStart
				if st.hasIdleMin && st.idleMin < st.MinAngle {
					st.MinAngle = st.idleMin
				}
				st.aboveCount = 0
			}
		} else {
			st.aboveCount = 0
		}

	case PhaseAscending:
		st.track(raw, s.Confidence)
		switch {
		case raw >= p.ExtendedThreshold:
			st.Phase = PhasePeak
		case st.hasPrev && smoothed <= st.prevSmoothed && st.sampleCount > p.SmoothWindow:
			// Smoothed rate of change crossed to non-positive: local maximum
			// reached below the extended threshold.
			st.Phase = PhasePeak
		}

	case PhasePeak:
		st.track(raw, s.Confidence)
		if raw < st.PeakAngle-p.HysteresisDeg {
			st.Phase = PhaseDescending
		}

	case PhaseDescending:
		st.track(raw, s.Confidence)
		if inRest {
			st.belowCount++
			if st.belowCount >= p.DebounceSamples {
				event := st.complete(p, s.Timestamp)
				st = st.resetToIdle(raw)
				return withSmoothing(st, smoothed), event
			}
		} else {
			st.belowCount = 0
		}
	}

	return withSmoothing(st, smoothed), nil
}

// track folds a sample into the candidate rep's extrema and confidence.
func (st *State) track(raw, conf float64) {
	if raw > st.PeakAngle {
		st.PeakAngle = raw
	}
	if raw < st.MinAngle {
		st.MinAngle = raw
	}
	st.confSum += conf
	st.sampleCount++
}

// complete builds the RepetitionEvent for the current candidate, or nil when
// its duration is implausible (the candidate is counted in Discarded).
func (st *State) complete(p *profile.ExerciseProfile, endTime float64) *models.RepetitionEvent {
	duration := endTime - st.StartTime
	if duration < p.MinDuration || duration > p.MaxDuration {
		st.Discarded++
		return nil
	}

	mean := 0.0
	if st.sampleCount > 0 {
		mean = st.confSum / float64(st.sampleCount)
	}
	rom := st.PeakAngle - st.MinAngle
	if rom < 0 {
		rom = 0
	}
	return &models.RepetitionEvent{
		StartTime:      st.StartTime,
		EndTime:        endTime,
		PeakAngle:      st.PeakAngle,
		MinAngle:       st.MinAngle,
		RangeOfMotion:  rom,
		MeanConfidence: mean,
		SampleCount:    st.sampleCount,
	}
}

// resetToIdle clears candidate tracking after a completed or discarded rep.
// The current resting angle seeds the next rep's minimum.
func (st State) resetToIdle(raw float64) State {
	return State{
		Phase:      PhaseIdle,
		idleMin:    raw,
		hasIdleMin: true,
		window:     st.window,
		Discarded:  st.Discarded,
	}
}

// pushWindow appends raw to the rolling window (copy-on-write, bounded by
// size) and returns the window mean.
func (st *State) pushWindow(raw float64, size int) float64 {
	if size < 1 {
		size = 1
	}
	w := make([]float64, 0, size)
	if len(st.window) >= size {
		w = append(w, st.window[len(st.window)-size+1:]...)
	} else {
		w = append(w, st.window...)
	}
	w = append(w, raw)
	st.window = w

	sum := 0.0
	for _, v := range w {
		sum += v
	}
	return sum / float64(len(w))
}

func withSmoothing(st State, smoothed float64) State {
	st.prevSmoothed = smoothed
	st.hasPrev = true
	return st
}

// Snapshot is a read-only view of the detector for live display.
type Snapshot struct {
	Phase     string  `json:"phase"`
	PeakAngle float64 `json:"peak_angle,omitempty"`
	MinAngle  float64 `json:"min_angle,omitempty"`
	Discarded int     `json:"discarded"`
}

// Snapshot returns the displayable view of the state.
func (st State) Snapshot() Snapshot {
	snap := Snapshot{Phase: st.Phase.String(), Discarded: st.Discarded}
	if st.Phase != PhaseIdle {
		snap.PeakAngle = st.PeakAngle
		snap.MinAngle = st.MinAngle
	}
	return snap
}
