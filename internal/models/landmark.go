package models

// LandmarkID identifies an anatomical point in the MediaPipe pose topology.
// Only the landmarks referenced by exercise profiles are named here; samples
// may carry any subset of the 33 indices.
type LandmarkID int

const (
	LandmarkNose          LandmarkID = 0
	LandmarkLeftShoulder  LandmarkID = 11
	LandmarkRightShoulder LandmarkID = 12
	LandmarkLeftElbow     LandmarkID = 13
	LandmarkRightElbow    LandmarkID = 14
	LandmarkLeftWrist     LandmarkID = 15
	LandmarkRightWrist    LandmarkID = 16
	LandmarkLeftHip       LandmarkID = 23
	LandmarkRightHip      LandmarkID = 24
	LandmarkLeftKnee      LandmarkID = 25
	LandmarkRightKnee     LandmarkID = 26
	LandmarkLeftAnkle     LandmarkID = 27
	LandmarkRightAnkle    LandmarkID = 28
)

// Landmark is a single body point estimate in normalized image coordinates.
// Z is depth relative to the hip midpoint and may be zero for 2-D estimators.
// Visibility is the estimator's confidence in [0,1].
type Landmark struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z,omitempty"`
	Visibility float64 `json:"visibility"`
}

// LandmarkSample is one frame of pose estimator output: a timestamp in
// seconds (monotonic within a session) and the detected landmarks keyed by
// pose index. Immutable once created.
type LandmarkSample struct {
	Timestamp float64                 `json:"timestamp"`
	Landmarks map[LandmarkID]Landmark `json:"landmarks"`
}

// Get returns the landmark for id and whether it was present in the frame.
func (s LandmarkSample) Get(id LandmarkID) (Landmark, bool) {
	lm, ok := s.Landmarks[id]
	return lm, ok
}
