package engine

import (
	"errors"
	"math"

	"github.com/claude/rehabreps/internal/models"
	"github.com/claude/rehabreps/internal/profile"
)

// ErrLowConfidence reports that a frame's contributing landmarks are missing
// or below the profile's visibility floor. The frame carries no usable angle;
// callers skip it and leave detector state untouched.
var ErrLowConfidence = errors.New("landmark confidence too low")

// ExtractAngle computes the joint angle for the profile's landmark triple
// from one frame. The middle landmark is the vertex. The returned sample's
// confidence is the minimum visibility among the three landmarks.
func ExtractAngle(p *profile.ExerciseProfile, sample models.LandmarkSample) (models.AngleSample, error) {
	a, okA := sample.Get(p.Landmarks[0])
	b, okB := sample.Get(p.Landmarks[1])
	c, okC := sample.Get(p.Landmarks[2])
	if !okA || !okB || !okC {
		return models.AngleSample{}, ErrLowConfidence
	}

	conf := math.Min(a.Visibility, math.Min(b.Visibility, c.Visibility))
	if conf < p.MinConfidence {
		return models.AngleSample{}, ErrLowConfidence
	}

	return models.AngleSample{
		Timestamp:    sample.Timestamp,
		AngleDegrees: vertexAngle(a, b, c),
		Confidence:   conf,
	}, nil
}

// vertexAngle returns the angle at b formed by the rays b→a and b→c,
// normalized to [0,180] degrees.
func vertexAngle(a, b, c models.Landmark) float64 {
	angle := math.Atan2(c.Y-b.Y, c.X-b.X) - math.Atan2(a.Y-b.Y, a.X-b.X)
	deg := math.Abs(angle * 180 / math.Pi)
	if deg > 180 {
		deg = 360 - deg
	}
	return deg
}
