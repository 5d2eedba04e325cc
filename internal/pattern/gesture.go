package pattern

import (
	"math"
	"time"
)

// MinGesturePoints is the minimum number of pointer samples in a gesture.
const MinGesturePoints = 10

// Point is one pointer sample. At is the offset from pointer-down.
type Point struct {
	X  float64
	Y  float64
	At time.Duration
}

// Directions counts path segments by dominant axis.
type Directions struct {
	Up    int `json:"up"`
	Down  int `json:"down"`
	Left  int `json:"left"`
	Right int `json:"right"`
}

// GestureFingerprint summarizes a free-form pointer trace.
type GestureFingerprint struct {
	PointCount    int        `json:"pointCount"`
	DurationMs    float64    `json:"durationMs"`
	TotalDistance float64    `json:"totalDistance"`
	AvgSpeed      float64    `json:"avgSpeed"`
	Directions    Directions `json:"directionHistogram"`
}

func (GestureFingerprint) Modality() Modality { return ModalityGesture }
func (GestureFingerprint) sealed()            {}

// ExtractGesture derives a GestureFingerprint from a pointer trace. The
// duration is the offset of the last point; a zero duration yields zero speed.
func ExtractGesture(points []Point) (GestureFingerprint, error) {
	if len(points) < MinGesturePoints {
		return GestureFingerprint{}, insufficient("gesture too short")
	}

	var dist float64
	var dirs Directions
	for i := 1; i < len(points); i++ {
		dx := points[i].X - points[i-1].X
		dy := points[i].Y - points[i-1].Y
		dist += math.Hypot(dx, dy)

		switch {
		case math.Abs(dx) > math.Abs(dy) && dx > 0:
			dirs.Right++
		case math.Abs(dx) > math.Abs(dy):
			dirs.Left++
		case dy > 0:
			dirs.Down++
		default:
			dirs.Up++
		}
	}

	durMs := float64(points[len(points)-1].At) / float64(time.Millisecond)
	var speed float64
	if durMs > 0 {
		speed = dist / (durMs / 1000)
	}

	return GestureFingerprint{
		PointCount:    len(points),
		DurationMs:    durMs,
		TotalDistance: dist,
		AvgSpeed:      speed,
		Directions:    dirs,
	}, nil
}

// VerifyGesture scores point count, duration, distance and speed. The
// direction histogram is recorded but not scored.
func VerifyGesture(fresh, stored GestureFingerprint, tol Tolerances) bool {
	score := votes(
		withinRelative(float64(fresh.PointCount), float64(stored.PointCount), tol.GesturePoints),
		withinRelative(fresh.DurationMs, stored.DurationMs, tol.GestureDuration),
		withinRelative(fresh.TotalDistance, stored.TotalDistance, tol.GestureDistance),
		withinRelative(fresh.AvgSpeed, stored.AvgSpeed, tol.GestureSpeed),
	)
	return score >= tol.GestureMinVotes
}
