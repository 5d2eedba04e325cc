package capture

import (
	"time"

	"github.com/Zeini-23025/Sesame-ouvre-toi/internal/pattern"
)

const maxGesturePoints = 4096

// GestureTrace records pointer samples between pointer-down and pointer-up.
// Sample times are stored as offsets from pointer-down.
type GestureTrace struct {
	points []pattern.Point
	start  time.Time
	down   bool
}

// NewGestureTrace returns an empty trace.
func NewGestureTrace() *GestureTrace {
	return &GestureTrace{}
}

func (*GestureTrace) Modality() pattern.Modality { return pattern.ModalityGesture }

// Down starts a new trace at (x, y), discarding any earlier one.
func (g *GestureTrace) Down(x, y float64, at time.Time) {
	g.points = append(g.points[:0], pattern.Point{X: x, Y: y})
	g.start = at
	g.down = true
}

// Move appends a sample while the pointer is down.
func (g *GestureTrace) Move(x, y float64, at time.Time) bool {
	if !g.down || len(g.points) >= maxGesturePoints {
		return false
	}
	g.points = append(g.points, pattern.Point{X: x, Y: y, At: at.Sub(g.start)})
	return true
}

// Up ends the trace. It reports whether a trace was in progress.
func (g *GestureTrace) Up() bool {
	was := g.down
	g.down = false
	return was
}

func (g *GestureTrace) Finish() (pattern.Fingerprint, error) {
	fp, err := pattern.ExtractGesture(g.points)
	if err != nil {
		return nil, err
	}
	return fp, nil
}
