package capture

import (
	"math/rand/v2"

	"github.com/Zeini-23025/Sesame-ouvre-toi/internal/pattern"
)

// ColorMixer holds the current RGB selection. It starts at mid-grey.
type ColorMixer struct {
	color pattern.ColorFingerprint
}

// NewColorMixer returns a mixer at (128, 128, 128).
func NewColorMixer() *ColorMixer {
	return &ColorMixer{color: pattern.NewColor(128, 128, 128)}
}

func (*ColorMixer) Modality() pattern.Modality { return pattern.ModalityColor }

// Set moves the sliders; out-of-range channels are clamped.
func (c *ColorMixer) Set(r, g, b int) {
	c.color = pattern.NewColor(r, g, b)
}

// Randomize picks a color from rng.
func (c *ColorMixer) Randomize(rng *rand.Rand) {
	c.color = pattern.RandomColor(rng)
}

// Color returns the current selection.
func (c *ColorMixer) Color() pattern.ColorFingerprint {
	return c.color
}

func (c *ColorMixer) Finish() (pattern.Fingerprint, error) {
	return c.color, nil
}
