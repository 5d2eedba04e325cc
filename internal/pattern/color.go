package pattern

import (
	"fmt"
	"math"
	"math/rand/v2"
)

// ColorFingerprint is a mixed RGB color.
type ColorFingerprint struct {
	Red   int `json:"red"`
	Green int `json:"green"`
	Blue  int `json:"blue"`
}

func (ColorFingerprint) Modality() Modality { return ModalityColor }
func (ColorFingerprint) sealed()            {}

// NewColor builds a color, clamping each channel to [0,255].
func NewColor(r, g, b int) ColorFingerprint {
	return ColorFingerprint{Red: clampChannel(r), Green: clampChannel(g), Blue: clampChannel(b)}
}

// RandomColor draws a color from rng.
func RandomColor(rng *rand.Rand) ColorFingerprint {
	return ColorFingerprint{Red: rng.IntN(256), Green: rng.IntN(256), Blue: rng.IntN(256)}
}

// Hex renders the color as #rrggbb.
func (c ColorFingerprint) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.Red, c.Green, c.Blue)
}

// ColorDistance is the mean absolute per-channel difference.
func ColorDistance(a, b ColorFingerprint) float64 {
	d := math.Abs(float64(a.Red-b.Red)) +
		math.Abs(float64(a.Green-b.Green)) +
		math.Abs(float64(a.Blue-b.Blue))
	return d / 3
}

// VerifyColor matches when the mean channel difference is within
// tol.ColorMeanDelta, inclusive.
func VerifyColor(fresh, stored ColorFingerprint, tol Tolerances) bool {
	return ColorDistance(fresh, stored) <= tol.ColorMeanDelta
}

func clampChannel(v int) int {
	return min(max(v, 0), 255)
}
