package profile

import (
	"fmt"
	"os"
	"sort"

	"github.com/claude/rehabreps/internal/models"
	"gopkg.in/yaml.v3"
)

// Default tunables applied when a profile omits them. Smoothing window and
// hysteresis are empirical; adjust per deployment rather than per exercise.
const (
	DefaultDebounceSamples = 2
	DefaultSmoothWindow    = 3
	DefaultHysteresisDeg   = 5.0
	DefaultMinConfidence   = 0.5
	DefaultScoreConfFloor  = 0.6
)

// Default points per quality label, from the original scoring scheme.
const (
	PointsPerfect = 10
	PointsGood    = 7
	PointsOkay    = 5
	PointsPoor    = 0
)

// ExerciseProfile is the static reference configuration for one exercise
// type. Read-only after load; shared safely across sessions.
type ExerciseProfile struct {
	Name string `yaml:"name"`

	// Landmarks is the tracked angle's landmark triple; the middle entry is
	// the vertex.
	Landmarks [3]models.LandmarkID `yaml:"landmarks"`

	// Rest band: the angle range of the neutral position.
	RestMin float64 `yaml:"rest_min"`
	RestMax float64 `yaml:"rest_max"`

	// ExtendedThreshold is the angle beyond which the movement counts as
	// fully extended.
	ExtendedThreshold float64 `yaml:"extended_threshold"`

	// Scoring reference: ideal peak angle and ideal range of motion, with
	// concentric deviation bands. Deviation within PerfectDev scores Perfect,
	// within GoodDev Good, within OkayDev Okay, beyond that Poor.
	IdealPeak  float64 `yaml:"ideal_peak"`
	IdealROM   float64 `yaml:"ideal_rom"`
	PerfectDev float64 `yaml:"perfect_dev"`
	GoodDev    float64 `yaml:"good_dev"`
	OkayDev    float64 `yaml:"okay_dev"`

	// Plausible rep duration bounds in seconds. Candidates outside the range
	// are discarded as noise.
	MinDuration float64 `yaml:"min_duration"`
	MaxDuration float64 `yaml:"max_duration"`

	// MinConfidence is the per-landmark visibility floor below which a frame
	// is skipped. ScoreConfFloor caps a rep's label at Okay when its mean
	// confidence falls below it.
	MinConfidence  float64 `yaml:"min_confidence"`
	ScoreConfFloor float64 `yaml:"score_conf_floor"`

	// Detector tunables.
	DebounceSamples int     `yaml:"debounce_samples"`
	SmoothWindow    int     `yaml:"smooth_window"`
	HysteresisDeg   float64 `yaml:"hysteresis_deg"`
}

// Points returns the gamification point value for a quality label.
func (p *ExerciseProfile) Points(q models.Quality) int {
	switch q {
	case models.QualityPerfect:
		return PointsPerfect
	case models.QualityGood:
		return PointsGood
	case models.QualityOkay:
		return PointsOkay
	default:
		return PointsPoor
	}
}

// applyDefaults fills zero-valued tunables.
func (p *ExerciseProfile) applyDefaults() {
	if p.DebounceSamples == 0 {
		p.DebounceSamples = DefaultDebounceSamples
	}
	if p.SmoothWindow == 0 {
		p.SmoothWindow = DefaultSmoothWindow
	}
	if p.HysteresisDeg == 0 {
		p.HysteresisDeg = DefaultHysteresisDeg
	}
	if p.MinConfidence == 0 {
		p.MinConfidence = DefaultMinConfidence
	}
	if p.ScoreConfFloor == 0 {
		p.ScoreConfFloor = DefaultScoreConfFloor
	}
}

// Validate checks that the profile's bands and bounds are coherent.
func (p *ExerciseProfile) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("profile name is required")
	}
	if p.RestMin >= p.RestMax {
		return fmt.Errorf("%s: rest band [%g,%g] is empty", p.Name, p.RestMin, p.RestMax)
	}
	if p.ExtendedThreshold <= p.RestMax {
		return fmt.Errorf("%s: extended_threshold %g must exceed rest band upper bound %g",
			p.Name, p.ExtendedThreshold, p.RestMax)
	}
	if p.PerfectDev <= 0 || p.GoodDev < p.PerfectDev || p.OkayDev < p.GoodDev {
		return fmt.Errorf("%s: deviation bands must satisfy 0 < perfect <= good <= okay", p.Name)
	}
	if p.MinDuration < 0 || p.MaxDuration <= p.MinDuration {
		return fmt.Errorf("%s: duration bounds [%g,%g] are invalid", p.Name, p.MinDuration, p.MaxDuration)
	}
	if p.MinConfidence < 0 || p.MinConfidence > 1 {
		return fmt.Errorf("%s: min_confidence %g outside [0,1]", p.Name, p.MinConfidence)
	}
	return nil
}

// Builtins returns the built-in exercise profiles keyed by name.
func Builtins() map[string]*ExerciseProfile {
	profiles := []*ExerciseProfile{
		{
			Name:              "ArmRaise",
			Landmarks:         [3]models.LandmarkID{models.LandmarkRightElbow, models.LandmarkRightShoulder, models.LandmarkRightHip},
			RestMin:           0,
			RestMax:           20,
			ExtendedThreshold: 150,
			IdealPeak:         170,
			IdealROM:          160,
			PerfectDev:        10,
			GoodDev:           25,
			OkayDev:           45,
			MinDuration:       0.5,
			MaxDuration:       10,
		},
		{
			Name:              "KneeBend",
			Landmarks:         [3]models.LandmarkID{models.LandmarkRightHip, models.LandmarkRightKnee, models.LandmarkRightAnkle},
			RestMin:           0,
			RestMax:           25,
			ExtendedThreshold: 90,
			IdealPeak:         110,
			IdealROM:          100,
			PerfectDev:        10,
			GoodDev:           20,
			OkayDev:           35,
			MinDuration:       0.8,
			MaxDuration:       12,
		},
		{
			Name:              "ShoulderRoll",
			Landmarks:         [3]models.LandmarkID{models.LandmarkRightElbow, models.LandmarkRightShoulder, models.LandmarkRightHip},
			RestMin:           0,
			RestMax:           15,
			ExtendedThreshold: 70,
			IdealPeak:         90,
			IdealROM:          85,
			PerfectDev:        8,
			GoodDev:           18,
			OkayDev:           30,
			MinDuration:       0.4,
			MaxDuration:       6,
		},
	}

	out := make(map[string]*ExerciseProfile, len(profiles))
	for _, p := range profiles {
		p.applyDefaults()
		out[p.Name] = p
	}
	return out
}

// Registry holds the loaded exercise profiles.
type Registry struct {
	profiles map[string]*ExerciseProfile
}

// NewRegistry returns a registry containing only the built-in profiles.
func NewRegistry() *Registry {
	return &Registry{profiles: Builtins()}
}

// Load reads profile definitions from a YAML file and merges them over the
// registry's current contents. New names are added; matching names are
// replaced wholesale.
func (r *Registry) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading profiles file: %w", err)
	}

	var doc struct {
		Profiles []*ExerciseProfile `yaml:"profiles"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parsing profiles file: %w", err)
	}

	for _, p := range doc.Profiles {
		p.applyDefaults()
		if err := p.Validate(); err != nil {
			return fmt.Errorf("profile validation: %w", err)
		}
		r.profiles[p.Name] = p
	}
	return nil
}

// ByName returns the profile for an exercise name.
func (r *Registry) ByName(name string) (*ExerciseProfile, bool) {
	p, ok := r.profiles[name]
	return p, ok
}

// Names returns the registered exercise names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.profiles))
	for name := range r.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns every registered profile.
func (r *Registry) All() []*ExerciseProfile {
	out := make([]*ExerciseProfile, 0, len(r.profiles))
	for _, p := range r.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
