package pattern

import (
	"errors"
	"math"
)

// Fingerprint is the derived feature record produced by one capture session.
// The concrete types are VoiceFingerprint, GestureFingerprint,
// RhythmFingerprint, ColorFingerprint, EmojiPath, ShapePattern and
// TapFingerprint; no other type implements it.
type Fingerprint interface {
	Modality() Modality
	sealed()
}

var (
	// ErrInsufficientData is returned by extractors when the capture ended
	// before the modality's minimum sample, point or key count.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrNoTemplate is returned when verifying against a missing template.
	ErrNoTemplate = errors.New("no stored template")

	// ErrModalityMismatch is returned when the fresh and stored
	// fingerprints belong to different modalities.
	ErrModalityMismatch = errors.New("modality mismatch")

	// ErrInvalidInput is returned when a direct-entry submission is malformed.
	ErrInvalidInput = errors.New("invalid input")
)

// insufficient wraps ErrInsufficientData with a user-facing reason.
func insufficient(reason string) error {
	return &reasonError{kind: ErrInsufficientData, reason: reason}
}

func invalid(reason string) error {
	return &reasonError{kind: ErrInvalidInput, reason: reason}
}

// Reason extracts the user-facing reason carried by an extractor or
// submission error, falling back to the full message.
func Reason(err error) string {
	if err == nil {
		return ""
	}
	var r *reasonError
	if errors.As(err, &r) {
		return r.reason
	}
	return err.Error()
}

type reasonError struct {
	kind   error
	reason string
}

func (e *reasonError) Error() string { return e.kind.Error() + ": " + e.reason }
func (e *reasonError) Unwrap() error { return e.kind }

// Tolerances holds every threshold used by the verifiers. Relative bounds are
// fractions of the stored value and are compared with strict less-than.
type Tolerances struct {
	VoiceDuration float64 `toml:"voice_duration" json:"voice_duration" yaml:"voice_duration"`
	VoiceVolume   float64 `toml:"voice_volume" json:"voice_volume" yaml:"voice_volume"`
	VoiceRhythm   float64 `toml:"voice_rhythm" json:"voice_rhythm" yaml:"voice_rhythm"`
	VoicePeaks    int     `toml:"voice_peaks" json:"voice_peaks" yaml:"voice_peaks"`
	VoiceMinVotes int     `toml:"voice_min_votes" json:"voice_min_votes" yaml:"voice_min_votes"`

	GesturePoints   float64 `toml:"gesture_points" json:"gesture_points" yaml:"gesture_points"`
	GestureDuration float64 `toml:"gesture_duration" json:"gesture_duration" yaml:"gesture_duration"`
	GestureDistance float64 `toml:"gesture_distance" json:"gesture_distance" yaml:"gesture_distance"`
	GestureSpeed    float64 `toml:"gesture_speed" json:"gesture_speed" yaml:"gesture_speed"`
	GestureMinVotes int     `toml:"gesture_min_votes" json:"gesture_min_votes" yaml:"gesture_min_votes"`

	RhythmInterval float64 `toml:"rhythm_interval" json:"rhythm_interval" yaml:"rhythm_interval"`
	RhythmStdDev   float64 `toml:"rhythm_stddev" json:"rhythm_stddev" yaml:"rhythm_stddev"`
	RhythmMinVotes int     `toml:"rhythm_min_votes" json:"rhythm_min_votes" yaml:"rhythm_min_votes"`

	// ColorMeanDelta is an absolute bound on the 0-255 scale, inclusive.
	ColorMeanDelta float64 `toml:"color_mean_delta" json:"color_mean_delta" yaml:"color_mean_delta"`

	// ShapeCells is the per-axis grid distance allowed, inclusive.
	ShapeCells int `toml:"shape_cells" json:"shape_cells" yaml:"shape_cells"`

	TapInterval  float64 `toml:"tap_interval" json:"tap_interval" yaml:"tap_interval"`
	TapMatchRate float64 `toml:"tap_match_rate" json:"tap_match_rate" yaml:"tap_match_rate"`
	TapDuration  float64 `toml:"tap_duration" json:"tap_duration" yaml:"tap_duration"`
}

// DefaultTolerances returns the stock matching thresholds.
func DefaultTolerances() Tolerances {
	return Tolerances{
		VoiceDuration: 0.3,
		VoiceVolume:   0.3,
		VoiceRhythm:   0.4,
		VoicePeaks:    2,
		VoiceMinVotes: 3,

		GesturePoints:   0.4,
		GestureDuration: 0.4,
		GestureDistance: 0.4,
		GestureSpeed:    0.5,
		GestureMinVotes: 3,

		RhythmInterval: 0.3,
		RhythmStdDev:   0.4,
		RhythmMinVotes: 2,

		ColorMeanDelta: 15,
		ShapeCells:     1,

		TapInterval:  0.4,
		TapMatchRate: 0.7,
		TapDuration:  0.3,
	}
}

// withinRelative reports |fresh-stored|/stored < tol. A stored value of zero
// never matches: the ratio is undefined and the check fails closed.
func withinRelative(fresh, stored, tol float64) bool {
	if stored == 0 || math.IsNaN(stored) || math.IsNaN(fresh) {
		return false
	}
	return math.Abs(fresh-stored)/math.Abs(stored) < tol
}

// votes counts the true values in checks.
func votes(checks ...bool) int {
	n := 0
	for _, c := range checks {
		if c {
			n++
		}
	}
	return n
}
