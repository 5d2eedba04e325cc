package pattern

import (
	"math/rand/v2"
	"slices"

	"github.com/rivo/uniseg"
)

const (
	// EmojiGridSize is the number of cells offered per capture.
	EmojiGridSize = 36

	MinEmojiPath = 4
	MaxEmojiPath = 8
)

// EmojiSets is the themed glyph pool the grid is drawn from.
var EmojiSets = map[string][]string{
	"animals": {"🦁", "🐯", "🐻", "🐼", "🐨", "🐸", "🐵", "🦊", "🐺", "🐮", "🐷", "🐭", "🐹", "🐰", "🦝", "🦘", "🦒", "🦓"},
	"food":    {"🍕", "🍔", "🍟", "🌭", "🍿", "🧇", "🥐", "🥨", "🥯", "🍩", "🍪", "🎂", "🧁", "🍰", "🍫", "🍬", "🍭", "🍮"},
	"space":   {"🌟", "⭐", "🌙", "☀️", "🪐", "🌍", "🌎", "🌏", "🚀", "🛸", "🛰️", "☄️", "💫", "✨", "⚡", "🌈", "🔥", "❄️"},
	"nature":  {"🌸", "🌺", "🌻", "🌷", "🌹", "🏵️", "🌼", "🌲", "🌳", "🌴", "🌵", "🍀", "🍁", "🍂", "🍃", "🌿", "☘️", "🌾"},
}

// emojiSetOrder fixes pool order so a seeded shuffle is reproducible.
var emojiSetOrder = []string{"animals", "food", "space", "nature"}

// EmojiPool returns every glyph in a stable order.
func EmojiPool() []string {
	var pool []string
	for _, name := range emojiSetOrder {
		pool = append(pool, EmojiSets[name]...)
	}
	return pool
}

// NewEmojiGrid shuffles the pool with rng and returns the first
// EmojiGridSize glyphs.
func NewEmojiGrid(rng *rand.Rand) []string {
	pool := EmojiPool()
	rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	return pool[:EmojiGridSize]
}

// EmojiPath is an ordered sequence of distinct glyphs.
type EmojiPath []string

func (EmojiPath) Modality() Modality { return ModalityEmoji }
func (EmojiPath) sealed()            {}

// NewEmojiPath validates a submitted selection and returns a copy of it.
func NewEmojiPath(glyphs []string) (EmojiPath, error) {
	if len(glyphs) < MinEmojiPath {
		return nil, invalid("select at least 4 emojis")
	}
	if len(glyphs) > MaxEmojiPath {
		return nil, invalid("maximum 8 emojis")
	}
	seen := make(map[string]struct{}, len(glyphs))
	for _, g := range glyphs {
		if uniseg.GraphemeClusterCount(g) != 1 {
			return nil, invalid("not a single emoji: " + g)
		}
		if _, dup := seen[g]; dup {
			return nil, invalid("already selected this emoji")
		}
		seen[g] = struct{}{}
	}
	return EmojiPath(slices.Clone(glyphs)), nil
}

// VerifyEmoji matches only the identical ordered sequence.
func VerifyEmoji(fresh, stored EmojiPath) bool {
	return len(stored) > 0 && slices.Equal(fresh, stored)
}
