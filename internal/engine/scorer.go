package engine

import (
	"math"

	"github.com/claude/rehabreps/internal/models"
	"github.com/claude/rehabreps/internal/profile"
)

// Score classifies a completed repetition against the profile's reference
// bands. Pure and order-independent: identical inputs always produce the
// identical ScoredRepetition.
//
// The deviation of the peak angle from the ideal peak and of the range of
// motion from the ideal ROM are both measured; the worse of the two selects
// the band. A mean confidence below the profile's floor caps the label at
// Okay, since the measurement itself is unreliable.
func Score(p *profile.ExerciseProfile, event models.RepetitionEvent) models.ScoredRepetition {
	dev := math.Abs(event.PeakAngle - p.IdealPeak)
	if romDev := math.Abs(event.RangeOfMotion - p.IdealROM); romDev > dev {
		dev = romDev
	}

	var quality models.Quality
	switch {
	case dev <= p.PerfectDev:
		quality = models.QualityPerfect
	case dev <= p.GoodDev:
		quality = models.QualityGood
	case dev <= p.OkayDev:
		quality = models.QualityOkay
	default:
		quality = models.QualityPoor
	}

	if event.MeanConfidence < p.ScoreConfFloor && quality != models.QualityPoor {
		if quality == models.QualityPerfect || quality == models.QualityGood {
			quality = models.QualityOkay
		}
	}

	return models.ScoredRepetition{
		RepetitionEvent: event,
		Quality:         quality,
		Points:          p.Points(quality),
	}
}
