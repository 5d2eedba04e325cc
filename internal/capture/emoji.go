package capture

import (
	"math/rand/v2"
	"slices"

	"github.com/Zeini-23025/Sesame-ouvre-toi/internal/pattern"
)

// EmojiBoard is a shuffled grid plus the path selected from it.
type EmojiBoard struct {
	grid []string
	path []string
}

// NewEmojiBoard deals a fresh grid from rng.
func NewEmojiBoard(rng *rand.Rand) *EmojiBoard {
	return &EmojiBoard{grid: pattern.NewEmojiGrid(rng)}
}

func (*EmojiBoard) Modality() pattern.Modality { return pattern.ModalityEmoji }

// Grid returns a copy of the grid.
func (e *EmojiBoard) Grid() []string {
	return slices.Clone(e.grid)
}

// Path returns a copy of the current selection.
func (e *EmojiBoard) Path() []string {
	return slices.Clone(e.path)
}

// Select appends the glyph at grid index i.
func (e *EmojiBoard) Select(i int) error {
	if i < 0 || i >= len(e.grid) {
		return ErrOutOfRange
	}
	glyph := e.grid[i]
	if slices.Contains(e.path, glyph) {
		return ErrAlreadySelected
	}
	if len(e.path) >= pattern.MaxEmojiPath {
		return ErrPathFull
	}
	e.path = append(e.path, glyph)
	return nil
}

// RemoveLast drops the most recent selection.
func (e *EmojiBoard) RemoveLast() {
	if len(e.path) > 0 {
		e.path = e.path[:len(e.path)-1]
	}
}

// Clear empties the selection.
func (e *EmojiBoard) Clear() {
	e.path = e.path[:0]
}

// Shuffle deals a new grid and clears the selection.
func (e *EmojiBoard) Shuffle(rng *rand.Rand) {
	e.grid = pattern.NewEmojiGrid(rng)
	e.Clear()
}

func (e *EmojiBoard) Finish() (pattern.Fingerprint, error) {
	path, err := pattern.NewEmojiPath(e.path)
	if err != nil {
		return nil, err
	}
	return path, nil
}
