package pattern

import (
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"
)

// RhythmLength is the number of key-downs a rhythm capture collects.
const RhythmLength = 8

// SpaceGlyph stands in for the space key when a sequence is displayed.
const SpaceGlyph = "␣"

// KeyEvent is one key-down from the capture port.
type KeyEvent struct {
	Key string
	At  time.Time
}

// RhythmFingerprint summarizes keystroke timing over a fixed phrase.
type RhythmFingerprint struct {
	Length         int     `json:"length"`
	AvgInterval    float64 `json:"avgInterval"`
	StdDevInterval float64 `json:"stdDevInterval"`
	KeySequence    string  `json:"keySequence"`
}

func (RhythmFingerprint) Modality() Modality { return ModalityRhythm }
func (RhythmFingerprint) sealed()            {}

// ExtractRhythm derives a RhythmFingerprint from the first RhythmLength key
// events; later events are ignored. The first key has no predecessor, so the
// statistics cover the RhythmLength-1 gaps between keys.
func ExtractRhythm(keys []KeyEvent) (RhythmFingerprint, error) {
	if len(keys) < RhythmLength {
		return RhythmFingerprint{}, insufficient("phrase too short")
	}
	keys = keys[:RhythmLength]

	intervals := make([]float64, 0, RhythmLength-1)
	var seq strings.Builder
	for i, k := range keys {
		seq.WriteString(k.Key)
		if i > 0 {
			intervals = append(intervals, float64(k.At.Sub(keys[i-1].At))/float64(time.Millisecond))
		}
	}
	mean, std := stat.PopMeanStdDev(intervals, nil)

	return RhythmFingerprint{
		Length:         len(keys),
		AvgInterval:    mean,
		StdDevInterval: std,
		KeySequence:    seq.String(),
	}, nil
}

// VerifyRhythm requires an identical key sequence and enough agreeing checks
// among sequence, mean interval and spread.
func VerifyRhythm(fresh, stored RhythmFingerprint, tol Tolerances) bool {
	seq := fresh.KeySequence == stored.KeySequence
	if !seq {
		return false
	}
	score := votes(
		seq,
		withinRelative(fresh.AvgInterval, stored.AvgInterval, tol.RhythmInterval),
		withinRelative(fresh.StdDevInterval, stored.StdDevInterval, tol.RhythmStdDev),
	)
	return score >= tol.RhythmMinVotes
}

// DisplayKey maps a key identifier to its on-screen form.
func DisplayKey(key string) string {
	if key == " " {
		return SpaceGlyph
	}
	return key
}

// DisplaySequence renders keys for display. Matching always uses the raw
// identifiers.
func DisplaySequence(keys []string) string {
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(DisplayKey(k))
	}
	return b.String()
}
