package capture

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zeini-23025/Sesame-ouvre-toi/internal/pattern"
)

var epoch = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func rng() *rand.Rand {
	return rand.New(rand.NewPCG(1, 2))
}

func TestNewCoversEveryModality(t *testing.T) {
	for _, m := range pattern.All {
		b, err := New(m, Params{Rand: rng(), Now: epoch})
		require.NoError(t, err, m)
		assert.Equal(t, m, b.Modality())
	}
	_, err := New("smell", Params{Rand: rng(), Now: epoch})
	assert.ErrorIs(t, err, pattern.ErrUnknownModality)

	_, err = New(pattern.ModalityEmoji, Params{Now: epoch})
	assert.Error(t, err)
}

func TestNewTapWindowDuration(t *testing.T) {
	b, err := New(pattern.ModalityTap, Params{Now: epoch, TapWindow: time.Second})
	require.NoError(t, err)
	w := b.(*TapWindow)
	assert.True(t, w.Tap(epoch.Add(900*time.Millisecond)))
	assert.False(t, w.Tap(epoch.Add(1100*time.Millisecond)))
}

// =============================================================================
// Voice
// =============================================================================

func TestVoiceRecorder(t *testing.T) {
	v := NewVoiceRecorder()
	assert.False(t, v.Add(pattern.AudioFrame{Volume: 0.5}), "idle recorder drops frames")

	v.Start()
	for i := 0; i < 12; i++ {
		vol := 0.2
		if i%3 == 0 {
			vol = 0.4
		}
		assert.True(t, v.Add(pattern.AudioFrame{At: epoch.Add(time.Duration(i) * 16 * time.Millisecond), Volume: vol}))
	}
	v.Stop()
	assert.False(t, v.Add(pattern.AudioFrame{Volume: 0.5}))
	assert.Equal(t, 12, v.Len())

	fp, err := v.Finish()
	require.NoError(t, err)
	assert.Equal(t, 12, fp.(pattern.VoiceFingerprint).DurationSamples)
}

func TestVoiceRecorderSilence(t *testing.T) {
	v := NewVoiceRecorder()
	v.Start()
	for i := 0; i < 20; i++ {
		v.Add(pattern.AudioFrame{Volume: 0.001})
	}
	_, err := v.Finish()
	assert.ErrorIs(t, err, pattern.ErrInsufficientData)
	assert.Equal(t, "no sound detected", pattern.Reason(err))
}

func TestVoiceRecorderStartDiscards(t *testing.T) {
	v := NewVoiceRecorder()
	v.Start()
	v.Add(pattern.AudioFrame{Volume: 0.3})
	v.Start()
	assert.Zero(t, v.Len())
	assert.True(t, v.Recording())
}

// =============================================================================
// Gesture
// =============================================================================

func TestGestureTrace(t *testing.T) {
	g := NewGestureTrace()
	assert.False(t, g.Move(1, 1, epoch), "move before down is ignored")

	g.Down(0, 0, epoch)
	for i := 1; i < 10; i++ {
		g.Move(float64(i*10), 0, epoch.Add(time.Duration(i)*10*time.Millisecond))
	}
	assert.True(t, g.Up())
	assert.False(t, g.Move(200, 0, epoch.Add(time.Second)))

	fp, err := g.Finish()
	require.NoError(t, err)
	gf := fp.(pattern.GestureFingerprint)
	assert.Equal(t, 10, gf.PointCount)
	assert.InDelta(t, 90, gf.DurationMs, 1e-9)
	assert.InDelta(t, 90, gf.TotalDistance, 1e-9)
	assert.Equal(t, 9, gf.Directions.Right)
}

func TestGestureTraceTooShort(t *testing.T) {
	g := NewGestureTrace()
	g.Down(0, 0, epoch)
	g.Move(5, 5, epoch.Add(time.Millisecond))
	g.Up()
	_, err := g.Finish()
	assert.ErrorIs(t, err, pattern.ErrInsufficientData)
}

// =============================================================================
// Rhythm
// =============================================================================

func TestKeyRhythm(t *testing.T) {
	k := NewKeyRhythm()
	phrase := []string{"o", "p", "e", "n", " ", "s", "e", "s"}
	for i, key := range phrase {
		done := k.Press(key, epoch.Add(time.Duration(i)*150*time.Millisecond))
		assert.Equal(t, i == len(phrase)-1, done)
	}
	assert.True(t, k.Press("x", epoch.Add(5*time.Second)), "extra keys are ignored")
	assert.Equal(t, "open␣ses", pattern.DisplaySequence(k.Typed()))

	fp, err := k.Finish()
	require.NoError(t, err)
	rf := fp.(pattern.RhythmFingerprint)
	assert.Equal(t, "open ses", rf.KeySequence)
	assert.InDelta(t, 150, rf.AvgInterval, 1e-9)
}

// =============================================================================
// Tap
// =============================================================================

func TestTapWindow(t *testing.T) {
	w := NewTapWindow(epoch, pattern.TapWindow)
	assert.False(t, w.Tap(epoch.Add(-time.Millisecond)))
	for _, ms := range []int{500, 800, 1400, 1700} {
		assert.True(t, w.Tap(epoch.Add(time.Duration(ms)*time.Millisecond)))
	}
	assert.False(t, w.Tap(epoch.Add(6*time.Second)), "tap after the window")
	assert.Equal(t, []time.Duration{0, 300 * time.Millisecond, 900 * time.Millisecond, 1200 * time.Millisecond}, w.Offsets())

	fp, err := w.Finish()
	require.NoError(t, err)
	assert.Equal(t, 4, fp.(pattern.TapFingerprint).Taps)
	assert.False(t, w.Tap(epoch.Add(2*time.Second)), "finished window is closed")
}

func TestTapWindowTooMany(t *testing.T) {
	w := NewTapWindow(epoch, pattern.TapWindow)
	for i := 0; i < 9; i++ {
		w.Tap(epoch.Add(time.Duration(i) * 100 * time.Millisecond))
	}
	_, err := w.Finish()
	assert.Equal(t, "too many taps (maximum 8)", pattern.Reason(err))
}

// =============================================================================
// Color
// =============================================================================

func TestColorMixer(t *testing.T) {
	c := NewColorMixer()
	assert.Equal(t, pattern.NewColor(128, 128, 128), c.Color())

	c.Set(300, -4, 17)
	fp, err := c.Finish()
	require.NoError(t, err)
	assert.Equal(t, pattern.ColorFingerprint{Red: 255, Green: 0, Blue: 17}, fp)

	c.Randomize(rng())
	assert.Equal(t, pattern.RandomColor(rng()), c.Color())
}

// =============================================================================
// Emoji
// =============================================================================

func TestEmojiBoard(t *testing.T) {
	b := NewEmojiBoard(rng())
	grid := b.Grid()
	require.Len(t, grid, pattern.EmojiGridSize)
	assert.Equal(t, pattern.NewEmojiGrid(rng()), grid)

	for i := 0; i < 4; i++ {
		require.NoError(t, b.Select(i))
	}
	assert.ErrorIs(t, b.Select(0), ErrAlreadySelected)
	assert.ErrorIs(t, b.Select(99), ErrOutOfRange)

	b.RemoveLast()
	assert.Equal(t, grid[:3], b.Path())
	_, err := b.Finish()
	assert.ErrorIs(t, err, pattern.ErrInvalidInput)

	require.NoError(t, b.Select(3))
	fp, err := b.Finish()
	require.NoError(t, err)
	assert.Equal(t, pattern.EmojiPath(grid[:4]), fp)
}

func TestEmojiBoardFull(t *testing.T) {
	b := NewEmojiBoard(rng())
	for i := 0; i < pattern.MaxEmojiPath; i++ {
		require.NoError(t, b.Select(i))
	}
	assert.ErrorIs(t, b.Select(pattern.MaxEmojiPath), ErrPathFull)
	assert.Len(t, b.Path(), pattern.MaxEmojiPath)
}

func TestEmojiBoardShuffleClears(t *testing.T) {
	b := NewEmojiBoard(rng())
	before := b.Grid()
	require.NoError(t, b.Select(0))

	b.Shuffle(rand.New(rand.NewPCG(7, 7)))
	assert.Empty(t, b.Path())
	assert.NotEqual(t, before, b.Grid())

	require.NoError(t, b.Select(1))
	b.Clear()
	assert.Empty(t, b.Path())
}

// =============================================================================
// Shape
// =============================================================================

func TestShapeBoard(t *testing.T) {
	b := NewShapeBoard()
	require.NoError(t, b.Place(pattern.Shape{Type: pattern.ShapeCircle, X: 1, Y: 1}))
	require.NoError(t, b.Place(pattern.Shape{Type: pattern.ShapeSquare, X: 2, Y: 2}))
	assert.ErrorIs(t, b.Place(pattern.Shape{Type: pattern.ShapeTriangle, X: 1, Y: 1}), ErrCellOccupied)
	assert.ErrorIs(t, b.Place(pattern.Shape{Type: pattern.ShapeTriangle, X: 8, Y: 0}), pattern.ErrInvalidInput)

	_, err := b.Finish()
	assert.Equal(t, "place at least 3 shapes", pattern.Reason(err))

	require.NoError(t, b.Place(pattern.Shape{Type: pattern.ShapeTriangle, X: 3, Y: 4}))
	fp, err := b.Finish()
	require.NoError(t, err)
	assert.Len(t, fp.(pattern.ShapePattern), 3)

	assert.True(t, b.Remove(2, 2))
	assert.False(t, b.Remove(2, 2))
	assert.Equal(t, -1, b.At(2, 2))
	assert.Len(t, b.Shapes(), 2)

	b.Clear()
	assert.Empty(t, b.Shapes())
}
