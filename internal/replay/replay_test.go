package replay

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/claude/rehabreps/internal/profile"
)

// frameLine renders one JSONL frame whose elbow-shoulder-hip angle equals deg.
func frameLine(ts, deg float64) string {
	rad := deg * math.Pi / 180
	return fmt.Sprintf(
		`{"timestamp": %f, "landmarks": {"14": {"x": %f, "y": %f, "visibility": 0.9}, "12": {"x": 0.5, "y": 0.5, "visibility": 0.9}, "24": {"x": 0.5, "y": 0.8, "visibility": 0.9}}}`,
		ts, 0.5+0.2*math.Sin(rad), 0.5+0.2*math.Cos(rad))
}

func recording() string {
	angles := []float64{10, 15, 80, 160, 172, 165, 140, 60, 15, 12}
	lines := make([]string, len(angles))
	for i, a := range angles {
		lines[i] = frameLine(float64(i)*0.1, a)
	}
	return strings.Join(lines, "\n") + "\n"
}

// TestReadFrames verifies JSONL parsing including blank line handling.
func TestReadFrames(t *testing.T) {
	input := frameLine(0, 10) + "\n\n" + frameLine(0.1, 15) + "\n"
	frames, err := ReadFrames(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(frames) != 2 {
		t.Fatalf("frames = %d, want 2", len(frames))
	}
	if frames[1].Timestamp != 0.1 {
		t.Errorf("timestamp = %f, want 0.1", frames[1].Timestamp)
	}
}

// TestReadFramesBadLine verifies the error names the offending line.
func TestReadFramesBadLine(t *testing.T) {
	input := frameLine(0, 10) + "\nnot json\n"
	_, err := ReadFrames(strings.NewReader(input))
	if err == nil {
		t.Fatal("expected error for bad line")
	}
	if !strings.Contains(err.Error(), "line 2") {
		t.Errorf("error %q does not name line 2", err)
	}
}

// TestRunRecording replays a full arm raise and checks the summary.
func TestRunRecording(t *testing.T) {
	p, ok := profile.Builtins()["ArmRaise"]
	if !ok {
		t.Fatal("ArmRaise builtin missing")
	}

	frames, err := ReadFrames(strings.NewReader(recording()))
	if err != nil {
		t.Fatalf("reading frames: %v", err)
	}

	result, err := Run(p, frames)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Summary.TotalReps != 1 {
		t.Errorf("total reps = %d, want 1", result.Summary.TotalReps)
	}
	if !result.Summary.Finalized {
		t.Error("summary not finalized")
	}
	if len(result.Reps) != 1 {
		t.Fatalf("reps = %d, want 1", len(result.Reps))
	}
	if result.Reps[0].Points != 10 {
		t.Errorf("points = %d, want 10", result.Reps[0].Points)
	}
}

// TestHistoryRoundTrip verifies replayed files are recorded and found again.
func TestHistoryRoundTrip(t *testing.T) {
	h, err := OpenHistoryDB(t.TempDir())
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	defer h.Close()

	seen, err := h.IsReplayed("rec.jsonl", "abc123")
	if err != nil {
		t.Fatalf("is replayed: %v", err)
	}
	if seen {
		t.Error("fresh file reported as replayed")
	}

	if err := h.Record("rec.jsonl", "abc123", "ArmRaise", 5, 42, 8.4); err != nil {
		t.Fatalf("record: %v", err)
	}

	seen, err = h.IsReplayed("rec.jsonl", "abc123")
	if err != nil {
		t.Fatalf("is replayed: %v", err)
	}
	if !seen {
		t.Error("recorded file not reported as replayed")
	}

	// Content change invalidates the match.
	seen, err = h.IsReplayed("rec.jsonl", "different")
	if err != nil {
		t.Fatalf("is replayed: %v", err)
	}
	if seen {
		t.Error("changed file reported as replayed")
	}

	entries, err := h.Recent(10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	if entries[0].Exercise != "ArmRaise" || entries[0].TotalPoints != 42 {
		t.Errorf("entry = %+v", entries[0])
	}
}
