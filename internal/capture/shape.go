package capture

import (
	"slices"

	"github.com/Zeini-23025/Sesame-ouvre-toi/internal/pattern"
)

// ShapeBoard holds placements on the grid in placement order.
type ShapeBoard struct {
	shapes []pattern.Shape
}

// NewShapeBoard returns an empty board.
func NewShapeBoard() *ShapeBoard {
	return &ShapeBoard{}
}

func (*ShapeBoard) Modality() pattern.Modality { return pattern.ModalityShape }

// Place puts s on the board. An occupied cell returns ErrCellOccupied.
func (b *ShapeBoard) Place(s pattern.Shape) error {
	if err := pattern.ValidateShape(s); err != nil {
		return err
	}
	if b.At(s.X, s.Y) >= 0 {
		return ErrCellOccupied
	}
	b.shapes = append(b.shapes, s)
	return nil
}

// At returns the index of the shape at (x, y), or -1.
func (b *ShapeBoard) At(x, y int) int {
	return slices.IndexFunc(b.shapes, func(s pattern.Shape) bool {
		return s.X == x && s.Y == y
	})
}

// Remove takes the shape off (x, y) and reports whether there was one.
func (b *ShapeBoard) Remove(x, y int) bool {
	i := b.At(x, y)
	if i < 0 {
		return false
	}
	b.shapes = slices.Delete(b.shapes, i, i+1)
	return true
}

// Clear removes every shape.
func (b *ShapeBoard) Clear() {
	b.shapes = b.shapes[:0]
}

// Shapes returns a copy of the placements.
func (b *ShapeBoard) Shapes() []pattern.Shape {
	return slices.Clone(b.shapes)
}

func (b *ShapeBoard) Finish() (pattern.Fingerprint, error) {
	p, err := pattern.NewShapePattern(b.shapes)
	if err != nil {
		return nil, err
	}
	return p, nil
}
