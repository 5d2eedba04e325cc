package pattern

import (
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
)

const (
	MinTaps = 4
	MaxTaps = 8

	// TapWindow is how long a tap capture stays open.
	TapWindow = 5 * time.Second
)

// TapFingerprint summarizes a short tapped rhythm. Times are milliseconds
// relative to the first tap.
type TapFingerprint struct {
	Taps          int       `json:"taps"`
	Intervals     []float64 `json:"intervals"`
	AvgInterval   float64   `json:"avgInterval"`
	TotalDuration float64   `json:"totalDuration"`
}

func (TapFingerprint) Modality() Modality { return ModalityTap }
func (TapFingerprint) sealed()            {}

// ExtractTap derives a TapFingerprint from tap times in arrival order.
func ExtractTap(taps []time.Time) (TapFingerprint, error) {
	switch {
	case len(taps) < MinTaps:
		return TapFingerprint{}, insufficient("not enough taps (minimum 4)")
	case len(taps) > MaxTaps:
		return TapFingerprint{}, insufficient("too many taps (maximum 8)")
	}

	intervals := make([]float64, len(taps)-1)
	for i := 1; i < len(taps); i++ {
		intervals[i-1] = millis(taps[i].Sub(taps[i-1]))
	}

	return TapFingerprint{
		Taps:          len(taps),
		Intervals:     intervals,
		AvgInterval:   floats.Sum(intervals) / float64(len(intervals)),
		TotalDuration: millis(taps[len(taps)-1].Sub(taps[0])),
	}, nil
}

// VerifyTap requires the same tap count, a high enough share of intervals
// within tolerance of their stored counterpart and a similar total duration.
// A stored interval of zero never matches.
func VerifyTap(fresh, stored TapFingerprint, tol Tolerances) bool {
	if fresh.Taps != stored.Taps || len(fresh.Intervals) == 0 ||
		len(fresh.Intervals) != len(stored.Intervals) {
		return false
	}

	matching := 0
	for i, iv := range fresh.Intervals {
		s := stored.Intervals[i]
		if s > 0 && math.Abs(iv-s) <= s*tol.TapInterval {
			matching++
		}
	}
	rate := float64(matching) / float64(len(fresh.Intervals))

	return rate >= tol.TapMatchRate &&
		withinRelative(fresh.TotalDuration, stored.TotalDuration, tol.TapDuration)
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
