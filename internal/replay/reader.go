// Package replay runs recorded landmark streams through the detection
// pipeline offline and keeps a local history of replayed files.
package replay

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/claude/rehabreps/internal/models"
	"github.com/claude/rehabreps/internal/profile"
	"github.com/claude/rehabreps/internal/session"
	"github.com/google/uuid"
)

// ReadFrames parses a JSONL stream of landmark samples, one frame per line.
// Blank lines are skipped.
func ReadFrames(r io.Reader) ([]models.LandmarkSample, error) {
	var frames []models.LandmarkSample

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var frame models.LandmarkSample
		if err := json.Unmarshal([]byte(line), &frame); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		frames = append(frames, frame)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading frames: %w", err)
	}
	return frames, nil
}

// Result is the outcome of replaying one recording.
type Result struct {
	ID        uuid.UUID
	StartedAt time.Time
	Summary   models.SessionSummary
	Reps      []models.ScoredRepetition
}

// Run feeds frames through a fresh session and finalizes it.
func Run(p *profile.ExerciseProfile, frames []models.LandmarkSample) (*Result, error) {
	sess := session.New(p)
	for i, frame := range frames {
		if _, err := sess.ProcessFrame(frame); err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
	}
	summary, err := sess.Finalize()
	if err != nil {
		return nil, fmt.Errorf("finalizing replay: %w", err)
	}
	return &Result{
		ID:        sess.ID,
		StartedAt: sess.StartedAt,
		Summary:   summary,
		Reps:      summary.Reps,
	}, nil
}

// RepRows converts a replay result to per-rep rows for CSV export.
func RepRows(result *Result) []models.RepRow {
	_, reps := session.Rows(result.ID, result.StartedAt, result.Summary)
	return reps
}
