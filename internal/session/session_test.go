package session

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"os"
	"testing"

	"github.com/claude/rehabreps/internal/models"
	"github.com/claude/rehabreps/internal/profile"
)

func testProfile(t *testing.T) *profile.ExerciseProfile {
	t.Helper()
	p, ok := profile.Builtins()["ArmRaise"]
	if !ok {
		t.Fatal("ArmRaise builtin missing")
	}
	return p
}

// frameAt builds a LandmarkSample whose elbow-shoulder-hip angle equals deg.
// The shoulder sits at the vertex with the hip straight below it; the elbow
// is rotated deg degrees away from the hip ray.
func frameAt(ts, deg, vis float64) models.LandmarkSample {
	rad := deg * math.Pi / 180
	return models.LandmarkSample{
		Timestamp: ts,
		Landmarks: map[models.LandmarkID]models.Landmark{
			models.LandmarkRightShoulder: {X: 0.5, Y: 0.5, Visibility: vis},
			models.LandmarkRightHip:      {X: 0.5, Y: 0.8, Visibility: vis},
			models.LandmarkRightElbow: {
				X:          0.5 + 0.2*math.Sin(rad),
				Y:          0.5 + 0.2*math.Cos(rad),
				Visibility: vis,
			},
		},
	}
}

func scored(q models.Quality, points int, start, end float64) models.ScoredRepetition {
	return models.ScoredRepetition{
		RepetitionEvent: models.RepetitionEvent{
			StartTime:     start,
			EndTime:       end,
			PeakAngle:     170,
			MinAngle:      10,
			RangeOfMotion: 160,
		},
		Quality: q,
		Points:  points,
	}
}

// TestProcessFramePipeline runs the full pipeline on synthetic landmark
// frames tracing one arm raise and verifies exactly one scored rep comes out.
func TestProcessFramePipeline(t *testing.T) {
	s := New(testProfile(t))
	angles := []float64{10, 15, 80, 160, 172, 165, 140, 60, 15, 12}

	var reps []models.ScoredRepetition
	for i, a := range angles {
		rep, err := s.ProcessFrame(frameAt(float64(i)*0.1, a, 0.9))
		if err != nil {
			t.Fatalf("frame %d: unexpected error: %v", i, err)
		}
		if rep != nil {
			reps = append(reps, *rep)
		}
	}

	if len(reps) != 1 {
		t.Fatalf("reps = %d, want 1", len(reps))
	}
	// Geometry introduces sub-degree error; the peak must stay in the
	// Perfect band around 172.
	if math.Abs(reps[0].PeakAngle-172) > 1 {
		t.Errorf("peak = %f, want ~172", reps[0].PeakAngle)
	}
	if reps[0].Quality != models.QualityPerfect {
		t.Errorf("quality = %s, want Perfect", reps[0].Quality)
	}

	snap := s.Snapshot()
	if snap.Summary.TotalReps != 1 {
		t.Errorf("total reps = %d, want 1", snap.Summary.TotalReps)
	}
	if snap.Summary.FramesSeen != len(angles) {
		t.Errorf("frames seen = %d, want %d", snap.Summary.FramesSeen, len(angles))
	}
}

// TestLowConfidenceFramesSkipped verifies an occluded frame mid-rep is
// skipped (counted) without corrupting detector tracking.
func TestLowConfidenceFramesSkipped(t *testing.T) {
	s := New(testProfile(t))
	angles := []float64{10, 15, 80, 160, 172, 165, 140, 60, 15, 12}

	for i, a := range angles {
		vis := 0.9
		if i == 5 {
			vis = 0.2 // occlusion flicker
		}
		if _, err := s.ProcessFrame(frameAt(float64(i)*0.1, a, vis)); err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
	}

	snap := s.Snapshot()
	if snap.Summary.FramesSkipped != 1 {
		t.Errorf("frames skipped = %d, want 1", snap.Summary.FramesSkipped)
	}
	if snap.Summary.TotalReps != 1 {
		t.Errorf("total reps = %d, want 1", snap.Summary.TotalReps)
	}
}

// TestRunningTotalNoDrift verifies the invariant that the running points
// total always equals the sum over recorded reps.
func TestRunningTotalNoDrift(t *testing.T) {
	s := New(testProfile(t))
	reps := []models.ScoredRepetition{
		scored(models.QualityPerfect, 10, 0, 1),
		scored(models.QualityGood, 7, 2, 3),
		scored(models.QualityOkay, 5, 4, 5),
		scored(models.QualityPoor, 0, 6, 7),
		scored(models.QualityPerfect, 10, 8, 9),
	}

	sum := 0
	for i, r := range reps {
		if err := s.Record(r); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
		sum += r.Points

		snap := s.Snapshot()
		if snap.Summary.TotalPoints != sum {
			t.Errorf("after rep %d: total = %d, want %d", i+1, snap.Summary.TotalPoints, sum)
		}
	}

	snap := s.Snapshot()
	if snap.Summary.Counts[models.QualityPerfect] != 2 {
		t.Errorf("perfect count = %d, want 2", snap.Summary.Counts[models.QualityPerfect])
	}
	if snap.Summary.Counts[models.QualityPoor] != 1 {
		t.Errorf("poor count = %d, want 1", snap.Summary.Counts[models.QualityPoor])
	}
}

// TestRecordAfterFinalize verifies that record after finalize fails with
// ErrSessionClosed and leaves the summary untouched.
func TestRecordAfterFinalize(t *testing.T) {
	s := New(testProfile(t))
	if err := s.Record(scored(models.QualityGood, 7, 0, 1)); err != nil {
		t.Fatalf("record: %v", err)
	}

	sum, err := s.Finalize()
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if !sum.Finalized {
		t.Error("summary not marked finalized")
	}

	err = s.Record(scored(models.QualityPerfect, 10, 2, 3))
	if !errors.Is(err, ErrSessionClosed) {
		t.Errorf("err = %v, want ErrSessionClosed", err)
	}

	snap := s.Snapshot()
	if snap.Summary.TotalReps != 1 {
		t.Errorf("total reps mutated after close: %d, want 1", snap.Summary.TotalReps)
	}
	if snap.Summary.TotalPoints != 7 {
		t.Errorf("total points mutated after close: %d, want 7", snap.Summary.TotalPoints)
	}
}

// TestDoubleFinalize verifies a second finalize fails with ErrSessionClosed.
func TestDoubleFinalize(t *testing.T) {
	s := New(testProfile(t))
	if _, err := s.Finalize(); err != nil {
		t.Fatalf("first finalize: %v", err)
	}
	if _, err := s.Finalize(); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("second finalize err = %v, want ErrSessionClosed", err)
	}
}

// TestCancelMidRep verifies that cancelling with a repetition in progress
// yields a partial summary without counting the unfinished rep.
func TestCancelMidRep(t *testing.T) {
	s := New(testProfile(t))
	// Rise out of the rest band but never come back.
	for i, a := range []float64{10, 15, 80, 160, 172} {
		if _, err := s.ProcessFrame(frameAt(float64(i)*0.1, a, 0.9)); err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
	}

	sum := s.Cancel()
	if sum.Finalized {
		t.Error("cancelled summary must not be finalized")
	}
	if sum.TotalReps != 0 {
		t.Errorf("total reps = %d, want 0 (rep in progress not counted)", sum.TotalReps)
	}

	if _, err := s.ProcessFrame(frameAt(1.0, 10, 0.9)); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("process after cancel err = %v, want ErrSessionClosed", err)
	}
}

// TestSubscribeReceivesRep verifies a subscriber sees the scored rep pushed
// during frame processing.
func TestSubscribeReceivesRep(t *testing.T) {
	s := New(testProfile(t))
	ch, cancel := s.Subscribe()
	defer cancel()

	for i, a := range []float64{10, 15, 80, 160, 172, 165, 140, 60, 15, 12} {
		if _, err := s.ProcessFrame(frameAt(float64(i)*0.1, a, 0.9)); err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
	}

	select {
	case u := <-ch:
		if u.Type != "rep" {
			t.Errorf("update type = %q, want rep", u.Type)
		}
		if u.Rep == nil {
			t.Fatal("update missing rep")
		}
	default:
		t.Fatal("no update received")
	}
}

// TestRowsConversion verifies the storage row conversion preserves counts
// and computes the average form score.
func TestRowsConversion(t *testing.T) {
	s := New(testProfile(t))
	_ = s.Record(scored(models.QualityPerfect, 10, 0, 1))
	_ = s.Record(scored(models.QualityOkay, 5, 2, 3))
	sum, err := s.Finalize()
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}

	row, reps := Rows(s.ID, s.StartedAt, sum)
	if row.TotalReps != 2 || row.TotalPoints != 15 {
		t.Errorf("row totals = %d reps / %d pts, want 2 / 15", row.TotalReps, row.TotalPoints)
	}
	if row.AvgFormScore != 7.5 {
		t.Errorf("avg form = %f, want 7.5", row.AvgFormScore)
	}
	if len(reps) != 2 {
		t.Fatalf("rep rows = %d, want 2", len(reps))
	}
	if reps[0].RepNumber != 1 || reps[1].RepNumber != 2 {
		t.Errorf("rep numbers = %d,%d, want 1,2", reps[0].RepNumber, reps[1].RepNumber)
	}
	if reps[0].Quality != "Perfect" {
		t.Errorf("rep1 quality = %q, want Perfect", reps[0].Quality)
	}
}

// --- manager tests ---

type fakeStore struct {
	rows []models.SessionRow
	reps [][]models.RepRow
}

func (f *fakeStore) SaveSession(_ context.Context, row models.SessionRow, reps []models.RepRow) error {
	f.rows = append(f.rows, row)
	f.reps = append(f.reps, reps)
	return nil
}

func testManager(store Store) *Manager {
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewManager(profile.NewRegistry(), store, log)
}

// TestManagerLifecycle walks start → frames → finalize and verifies the
// summary is persisted and the session removed from the registry.
func TestManagerLifecycle(t *testing.T) {
	store := &fakeStore{}
	m := testManager(store)

	s, err := m.Start("ArmRaise")
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	for i, a := range []float64{10, 15, 80, 160, 172, 165, 140, 60, 15, 12} {
		if _, err := s.ProcessFrame(frameAt(float64(i)*0.1, a, 0.9)); err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
	}

	sum, err := m.Finalize(context.Background(), s.ID)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if sum.TotalReps != 1 {
		t.Errorf("total reps = %d, want 1", sum.TotalReps)
	}

	if len(store.rows) != 1 {
		t.Fatalf("persisted rows = %d, want 1", len(store.rows))
	}
	if store.rows[0].Exercise != "ArmRaise" {
		t.Errorf("persisted exercise = %q, want ArmRaise", store.rows[0].Exercise)
	}

	if _, err := m.Get(s.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("get after finalize err = %v, want ErrSessionNotFound", err)
	}
}

// TestManagerUnknownExercise verifies that starting an unregistered exercise
// fails with ErrUnknownExercise.
func TestManagerUnknownExercise(t *testing.T) {
	m := testManager(nil)
	if _, err := m.Start("Backflip"); !errors.Is(err, ErrUnknownExercise) {
		t.Errorf("err = %v, want ErrUnknownExercise", err)
	}
}

// TestManagerCancelNotPersisted verifies cancelled sessions never reach the
// store.
func TestManagerCancelNotPersisted(t *testing.T) {
	store := &fakeStore{}
	m := testManager(store)

	s, err := m.Start("KneeBend")
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	sum, err := m.Cancel(s.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if sum.Finalized {
		t.Error("cancelled summary must not be finalized")
	}
	if len(store.rows) != 0 {
		t.Errorf("persisted rows = %d, want 0", len(store.rows))
	}
}

// TestManagerIndependentSessions verifies two concurrent sessions do not
// share counters.
func TestManagerIndependentSessions(t *testing.T) {
	m := testManager(nil)
	a, err := m.Start("ArmRaise")
	if err != nil {
		t.Fatalf("start a: %v", err)
	}
	b, err := m.Start("ArmRaise")
	if err != nil {
		t.Fatalf("start b: %v", err)
	}

	for i, angle := range []float64{10, 15, 80, 160, 172, 165, 140, 60, 15, 12} {
		if _, err := a.ProcessFrame(frameAt(float64(i)*0.1, angle, 0.9)); err != nil {
			t.Fatalf("a frame %d: %v", i, err)
		}
	}

	if snap := b.Snapshot(); snap.Summary.TotalReps != 0 || snap.Summary.FramesSeen != 0 {
		t.Errorf("session b leaked state: %+v", snap.Summary)
	}
	if snap := a.Snapshot(); snap.Summary.TotalReps != 1 {
		t.Errorf("session a reps = %d, want 1", snap.Summary.TotalReps)
	}

	if got := len(m.List()); got != 2 {
		t.Errorf("active sessions = %d, want 2", got)
	}
}
