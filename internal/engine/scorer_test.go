package engine

import (
	"testing"

	"github.com/claude/rehabreps/internal/models"
)

func repEvent(peak, min, conf float64) models.RepetitionEvent {
	return models.RepetitionEvent{
		StartTime:      1.0,
		EndTime:        2.5,
		PeakAngle:      peak,
		MinAngle:       min,
		RangeOfMotion:  peak - min,
		MeanConfidence: conf,
		SampleCount:    15,
	}
}

// TestScorePerfect verifies the reference scenario: peak 172 against ideal
// 170±10 with a matching ROM classifies Perfect with full points.
func TestScorePerfect(t *testing.T) {
	p := armRaise(t)
	scored := Score(p, repEvent(172, 10, 0.9))

	if scored.Quality != models.QualityPerfect {
		t.Errorf("quality = %s, want Perfect", scored.Quality)
	}
	if scored.Points != 10 {
		t.Errorf("points = %d, want 10", scored.Points)
	}
}

// TestScoreBands walks a peak angle through each deviation band.
func TestScoreBands(t *testing.T) {
	p := armRaise(t)
	cases := []struct {
		name string
		peak float64
		want models.Quality
	}{
		{"inside perfect band", 165, models.QualityPerfect},
		{"inside good band", 150, models.QualityGood},
		{"inside okay band", 130, models.QualityOkay},
		{"outside all bands", 110, models.QualityPoor},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			// Keep ROM deviation inside the peak's band so the peak decides.
			ev := repEvent(tc.peak, tc.peak-p.IdealROM, 0.9)
			scored := Score(p, ev)
			if scored.Quality != tc.want {
				t.Errorf("peak %g: quality = %s, want %s", tc.peak, scored.Quality, tc.want)
			}
		})
	}
}

// TestScoreWorstOfPeakAndROM verifies that a perfect peak with a truncated
// range of motion drops the label to the ROM's band.
func TestScoreWorstOfPeakAndROM(t *testing.T) {
	p := armRaise(t)
	// Peak 170 is ideal, but starting from 30 cuts ROM to 140 (deviation 20).
	scored := Score(p, repEvent(170, 30, 0.9))

	if scored.Quality != models.QualityGood {
		t.Errorf("quality = %s, want Good", scored.Quality)
	}
	if scored.Points != 7 {
		t.Errorf("points = %d, want 7", scored.Points)
	}
}

// TestScoreLowConfidenceCap verifies that an otherwise perfect rep with an
// unreliable measurement is capped at Okay.
func TestScoreLowConfidenceCap(t *testing.T) {
	p := armRaise(t)
	scored := Score(p, repEvent(172, 10, 0.4))

	if scored.Quality != models.QualityOkay {
		t.Errorf("quality = %s, want Okay (confidence cap)", scored.Quality)
	}
	if scored.Points != 5 {
		t.Errorf("points = %d, want 5", scored.Points)
	}
}

// TestScoreLowConfidenceDoesNotLiftPoor verifies the cap never upgrades a
// Poor rep.
func TestScoreLowConfidencePoorStaysPoor(t *testing.T) {
	p := armRaise(t)
	scored := Score(p, repEvent(100, 60, 0.4))

	if scored.Quality != models.QualityPoor {
		t.Errorf("quality = %s, want Poor", scored.Quality)
	}
	if scored.Points != 0 {
		t.Errorf("points = %d, want 0", scored.Points)
	}
}

// TestScoreIdempotent verifies that scoring the same event twice yields the
// identical result, independent of call order.
func TestScoreIdempotent(t *testing.T) {
	p := armRaise(t)
	ev := repEvent(158, 12, 0.85)

	first := Score(p, ev)
	Score(p, repEvent(100, 50, 0.3)) // unrelated rep in between
	second := Score(p, ev)

	if first != second {
		t.Errorf("scoring not idempotent: %+v vs %+v", first, second)
	}
}
