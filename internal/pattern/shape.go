package pattern

import (
	"fmt"
	"slices"
)

// ShapeType is one of the placeable shapes.
type ShapeType string

const (
	ShapeCircle   ShapeType = "circle"
	ShapeSquare   ShapeType = "square"
	ShapeTriangle ShapeType = "triangle"
)

// ShapeTypes lists the palette in display order.
var ShapeTypes = []ShapeType{ShapeCircle, ShapeSquare, ShapeTriangle}

const (
	// GridSize is the side length of the shape grid.
	GridSize = 8

	MinShapes = 3
)

// Valid reports whether t is a known shape.
func (t ShapeType) Valid() bool {
	return slices.Contains(ShapeTypes, t)
}

// Shape is one placement on the grid.
type Shape struct {
	Type ShapeType `json:"type"`
	X    int       `json:"x"`
	Y    int       `json:"y"`
}

func (s Shape) String() string {
	return fmt.Sprintf("%s:%d:%d", s.Type, s.X, s.Y)
}

// ShapePattern is a set of placements, at most one per cell.
type ShapePattern []Shape

func (ShapePattern) Modality() Modality { return ModalityShape }
func (ShapePattern) sealed()            {}

// ValidateShape checks the type and grid bounds of a single placement.
func ValidateShape(s Shape) error {
	if !s.Type.Valid() {
		return invalid(fmt.Sprintf("unknown shape %q", s.Type))
	}
	if s.X < 0 || s.X >= GridSize || s.Y < 0 || s.Y >= GridSize {
		return invalid(fmt.Sprintf("cell (%d,%d) outside the grid", s.X, s.Y))
	}
	return nil
}

// NewShapePattern validates a submitted placement list and returns a copy.
func NewShapePattern(shapes []Shape) (ShapePattern, error) {
	if len(shapes) < MinShapes {
		return nil, invalid("place at least 3 shapes")
	}
	cells := make(map[[2]int]struct{}, len(shapes))
	for _, s := range shapes {
		if err := ValidateShape(s); err != nil {
			return nil, err
		}
		cell := [2]int{s.X, s.Y}
		if _, taken := cells[cell]; taken {
			return nil, invalid("position already occupied")
		}
		cells[cell] = struct{}{}
	}
	return ShapePattern(slices.Clone(shapes)), nil
}

// VerifyShape requires equal counts and that every fresh shape finds a
// stored shape of the same type within tol.ShapeCells on both axes. A stored
// shape may satisfy several fresh shapes.
func VerifyShape(fresh, stored ShapePattern, tol Tolerances) bool {
	if len(stored) == 0 || len(fresh) != len(stored) {
		return false
	}
	for _, f := range fresh {
		if !slices.ContainsFunc(stored, func(s Shape) bool {
			return s.Type == f.Type && absInt(s.X-f.X) <= tol.ShapeCells && absInt(s.Y-f.Y) <= tol.ShapeCells
		}) {
			return false
		}
	}
	return true
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
