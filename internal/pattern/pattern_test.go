package pattern

import (
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Helpers
// =============================================================================

func framesFrom(volumes ...float64) []AudioFrame {
	base := time.Unix(1700000000, 0)
	frames := make([]AudioFrame, len(volumes))
	for i, v := range volumes {
		frames[i] = AudioFrame{At: base.Add(time.Duration(i) * 16 * time.Millisecond), Volume: v}
	}
	return frames
}

func keysAt(seq string, gapsMs ...int) []KeyEvent {
	base := time.Unix(1700000000, 0)
	at := base
	var out []KeyEvent
	for i, r := range []rune(seq) {
		if i > 0 {
			at = at.Add(time.Duration(gapsMs[(i-1)%len(gapsMs)]) * time.Millisecond)
		}
		out = append(out, KeyEvent{Key: string(r), At: at})
	}
	return out
}

// =============================================================================
// Modality
// =============================================================================

func TestParseModality(t *testing.T) {
	m, err := ParseModality(" Voice ")
	require.NoError(t, err)
	assert.Equal(t, ModalityVoice, m)

	_, err = ParseModality("retina")
	assert.ErrorIs(t, err, ErrUnknownModality)
}

func TestStoreKeys(t *testing.T) {
	assert.Equal(t, "auth_voice", ModalityVoice.StoreKey())
	assert.Equal(t, "auth_emoji", ModalityEmoji.StoreKey())
	assert.Equal(t, "auth_pattern", ModalityTap.StoreKey())

	seen := map[string]bool{}
	for _, m := range All {
		assert.False(t, seen[m.StoreKey()], "duplicate key for %s", m)
		seen[m.StoreKey()] = true
	}
}

// =============================================================================
// Voice
// =============================================================================

func TestFrameVolume(t *testing.T) {
	assert.Equal(t, 0.0, FrameVolume(nil))

	silent := make([]byte, AnalysisWindow/2)
	for i := range silent {
		silent[i] = 128
	}
	assert.Equal(t, 0.0, FrameVolume(silent))

	full := []byte{0, 0, 0, 0}
	assert.InDelta(t, 1.0, FrameVolume(full), 1e-9)
}

func TestExtractVoice(t *testing.T) {
	fp, err := ExtractVoice(framesFrom(0, 0.2, 0.5, 0.2, 0.005, 0.3, 0.6, 0.3, 0, 0.2))
	require.NoError(t, err)

	// active: 0.2 0.5 0.2 0.3 0.6 0.3 0.2
	assert.Equal(t, 7, fp.DurationSamples)
	assert.InDelta(t, 2.3/7, fp.AvgVolume, 1e-9)
	assert.InDelta(t, 0.6, fp.MaxVolume, 1e-9)
	assert.InDelta(t, (0.3+0.3+0.1+0.3+0.3+0.1)/6, fp.Rhythm, 1e-9)
	assert.Equal(t, 2, fp.PeakCount)
}

func TestExtractVoiceInsufficient(t *testing.T) {
	_, err := ExtractVoice(framesFrom(0.5, 0.5, 0.5))
	assert.ErrorIs(t, err, ErrInsufficientData)
	assert.Equal(t, "recording too short", Reason(err))

	_, err = ExtractVoice(framesFrom(0, 0, 0, 0, 0, 0, 0, 0.5, 0.5, 0.5, 0.5))
	assert.ErrorIs(t, err, ErrInsufficientData)
	assert.Equal(t, "no sound detected", Reason(err))
}

func TestExtractVoiceDeterministic(t *testing.T) {
	frames := framesFrom(0.1, 0.4, 0.2, 0.7, 0.3, 0.05, 0.6, 0.2, 0.1, 0.3)
	snapshot := append([]AudioFrame(nil), frames...)

	a, err := ExtractVoice(frames)
	require.NoError(t, err)
	b, err := ExtractVoice(frames)
	require.NoError(t, err)

	ea, _ := Encode(a)
	eb, _ := Encode(b)
	assert.Equal(t, ea, eb)
	assert.Equal(t, snapshot, frames)
}

func TestVerifyVoiceVote(t *testing.T) {
	tol := DefaultTolerances()
	stored := VoiceFingerprint{DurationSamples: 100, AvgVolume: 0.2, MaxVolume: 0.5, Rhythm: 0.05, PeakCount: 10}

	threeOfFour := stored
	threeOfFour.Rhythm = 0.5 // rhythm fails
	assert.True(t, VerifyVoice(threeOfFour, stored, tol))

	twoOfFour := threeOfFour
	twoOfFour.PeakCount = 20 // peaks fail as well
	assert.False(t, VerifyVoice(twoOfFour, stored, tol))

	assert.True(t, VerifyVoice(stored, stored, tol))
}

func TestVerifyVoiceZeroStoredDenominator(t *testing.T) {
	tol := DefaultTolerances()
	stored := VoiceFingerprint{DurationSamples: 100, AvgVolume: 0.2, Rhythm: 0, PeakCount: 3}
	fresh := VoiceFingerprint{DurationSamples: 100, AvgVolume: 0.2, Rhythm: 0, PeakCount: 30}

	// duration and volume pass, rhythm divides by zero and fails, peaks fail.
	assert.False(t, VerifyVoice(fresh, stored, tol))
}

// =============================================================================
// Gesture
// =============================================================================

func TestExtractGesture(t *testing.T) {
	var pts []Point
	for i := 0; i < 5; i++ {
		pts = append(pts, Point{X: float64(i * 10), Y: 0, At: time.Duration(i*100) * time.Millisecond})
	}
	for i := 1; i <= 5; i++ {
		pts = append(pts, Point{X: 40, Y: float64(i * 10), At: time.Duration(400+i*100) * time.Millisecond})
	}

	fp, err := ExtractGesture(pts)
	require.NoError(t, err)
	assert.Equal(t, 10, fp.PointCount)
	assert.InDelta(t, 900, fp.DurationMs, 1e-9)
	assert.InDelta(t, 90, fp.TotalDistance, 1e-9)
	assert.InDelta(t, 100, fp.AvgSpeed, 1e-9)
	assert.Equal(t, Directions{Right: 4, Down: 5}, fp.Directions)
}

func TestExtractGestureEdgeCases(t *testing.T) {
	_, err := ExtractGesture(make([]Point, 9))
	assert.ErrorIs(t, err, ErrInsufficientData)

	// Ten stationary points at t=0: no distance, no duration, no speed.
	fp, err := ExtractGesture(make([]Point, 10))
	require.NoError(t, err)
	assert.Equal(t, 0.0, fp.AvgSpeed)
	assert.Equal(t, 9, fp.Directions.Up)
}

func TestVerifyGestureVote(t *testing.T) {
	tol := DefaultTolerances()
	stored := GestureFingerprint{PointCount: 50, DurationMs: 1000, TotalDistance: 400, AvgSpeed: 400}

	three := stored
	three.AvgSpeed = 1000
	assert.True(t, VerifyGesture(three, stored, tol))

	two := three
	two.TotalDistance = 1000
	assert.False(t, VerifyGesture(two, stored, tol))
}

// =============================================================================
// Rhythm
// =============================================================================

func TestExtractRhythm(t *testing.T) {
	keys := keysAt("sesame o", 100, 200)
	fp, err := ExtractRhythm(keys)
	require.NoError(t, err)

	assert.Equal(t, RhythmLength, fp.Length)
	assert.Equal(t, "sesame o", fp.KeySequence)
	// gaps: 100 200 100 200 100 200 100
	assert.InDelta(t, 1000.0/7, fp.AvgInterval, 1e-9)
	assert.Greater(t, fp.StdDevInterval, 0.0)
}

func TestExtractRhythmUsesFirstEight(t *testing.T) {
	fp, err := ExtractRhythm(keysAt("abcdefghij", 100))
	require.NoError(t, err)
	assert.Equal(t, "abcdefgh", fp.KeySequence)
	assert.InDelta(t, 100, fp.AvgInterval, 1e-9)
	assert.Equal(t, 0.0, fp.StdDevInterval)

	_, err = ExtractRhythm(keysAt("abc", 100))
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestVerifyRhythmSequenceGate(t *testing.T) {
	tol := DefaultTolerances()
	stored := RhythmFingerprint{Length: 8, AvgInterval: 150, StdDevInterval: 40, KeySequence: "opensesa"}

	assert.True(t, VerifyRhythm(stored, stored, tol))

	oneOff := stored
	oneOff.KeySequence = "opensesx"
	assert.False(t, VerifyRhythm(oneOff, stored, tol))

	slow := stored
	slow.AvgInterval = 400
	assert.True(t, VerifyRhythm(slow, stored, tol), "sequence plus spread is two of three")

	slow.StdDevInterval = 200
	assert.False(t, VerifyRhythm(slow, stored, tol))
}

func TestDisplaySequence(t *testing.T) {
	assert.Equal(t, "a␣b", DisplaySequence([]string{"a", " ", "b"}))
}

// =============================================================================
// Tap
// =============================================================================

func TestExtractTap(t *testing.T) {
	base := time.Unix(1700000000, 0)
	taps := []time.Time{base, base.Add(300 * time.Millisecond), base.Add(500 * time.Millisecond), base.Add(1100 * time.Millisecond)}

	fp, err := ExtractTap(taps)
	require.NoError(t, err)
	assert.Equal(t, 4, fp.Taps)
	assert.Equal(t, []float64{300, 200, 600}, fp.Intervals)
	assert.InDelta(t, 1100.0/3, fp.AvgInterval, 1e-9)
	assert.InDelta(t, 1100, fp.TotalDuration, 1e-9)

	_, err = ExtractTap(taps[:3])
	assert.ErrorIs(t, err, ErrInsufficientData)

	many := make([]time.Time, 9)
	_, err = ExtractTap(many)
	assert.ErrorIs(t, err, ErrInsufficientData)
	assert.Contains(t, Reason(err), "too many")
}

func TestVerifyTap(t *testing.T) {
	tol := DefaultTolerances()
	stored := TapFingerprint{Taps: 4, Intervals: []float64{300, 200, 600}, TotalDuration: 1100}

	assert.True(t, VerifyTap(stored, stored, tol))

	near := TapFingerprint{Taps: 4, Intervals: []float64{330, 250, 550}, TotalDuration: 1130}
	assert.True(t, VerifyTap(near, stored, tol))

	// One of three intervals off: 2/3 < 0.7.
	oneOff := TapFingerprint{Taps: 4, Intervals: []float64{300, 500, 600}, TotalDuration: 1100}
	assert.False(t, VerifyTap(oneOff, stored, tol))

	wrongCount := TapFingerprint{Taps: 5, Intervals: []float64{300, 200, 600, 100}, TotalDuration: 1200}
	assert.False(t, VerifyTap(wrongCount, stored, tol))
}

// =============================================================================
// Color
// =============================================================================

func TestVerifyColor(t *testing.T) {
	tol := DefaultTolerances()
	stored := NewColor(128, 128, 128)

	assert.True(t, VerifyColor(NewColor(140, 135, 120), stored, tol))
	assert.True(t, VerifyColor(NewColor(143, 143, 143), stored, tol), "mean diff of exactly 15 matches")
	assert.False(t, VerifyColor(NewColor(144, 144, 144), stored, tol))
}

func TestVerifyColorMatchesMeanRule(t *testing.T) {
	tol := DefaultTolerances()
	rng := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 500; i++ {
		a, b := RandomColor(rng), RandomColor(rng)
		assert.Equal(t, ColorDistance(a, b) <= 15, VerifyColor(a, b, tol))
	}
}

func TestNewColorClamps(t *testing.T) {
	c := NewColor(-5, 300, 17)
	assert.Equal(t, ColorFingerprint{Red: 0, Green: 255, Blue: 17}, c)
	assert.Equal(t, "#00ff11", c.Hex())
}

// =============================================================================
// Emoji
// =============================================================================

func TestNewEmojiGridReproducible(t *testing.T) {
	a := NewEmojiGrid(rand.New(rand.NewPCG(42, 7)))
	b := NewEmojiGrid(rand.New(rand.NewPCG(42, 7)))
	c := NewEmojiGrid(rand.New(rand.NewPCG(43, 7)))

	assert.Len(t, a, EmojiGridSize)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	seen := map[string]bool{}
	for _, g := range a {
		assert.False(t, seen[g], "duplicate %s", g)
		seen[g] = true
	}
}

func TestEmojiPoolGlyphsAreSingleGraphemes(t *testing.T) {
	pool := EmojiPool()
	assert.Len(t, pool, 72)
	_, err := NewEmojiPath(pool[:MaxEmojiPath])
	assert.NoError(t, err)
	for i := 0; i+MinEmojiPath <= len(pool); i += MinEmojiPath {
		_, err := NewEmojiPath(pool[i : i+MinEmojiPath])
		assert.NoError(t, err, "glyphs %v", pool[i:i+MinEmojiPath])
	}
}

func TestNewEmojiPathValidation(t *testing.T) {
	_, err := NewEmojiPath([]string{"🦁", "🍕", "🌟"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = NewEmojiPath([]string{"🦁", "🍕", "🌟", "🦁"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, "already selected this emoji", Reason(err))

	_, err = NewEmojiPath([]string{"🦁", "🍕", "🌟", "ab"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = NewEmojiPath([]string{"1", "2", "3", "4", "5", "6", "7", "8", "9"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestVerifyEmojiOrderMatters(t *testing.T) {
	stored := EmojiPath{"🦁", "🍕", "🌟"}
	assert.False(t, VerifyEmoji(EmojiPath{"🍕", "🦁", "🌟"}, stored))
	assert.True(t, VerifyEmoji(EmojiPath{"🦁", "🍕", "🌟"}, stored))
	assert.False(t, VerifyEmoji(EmojiPath{"🦁", "🍕"}, stored))
}

// =============================================================================
// Shape
// =============================================================================

func TestVerifyShapeTolerance(t *testing.T) {
	tol := DefaultTolerances()
	stored := ShapePattern{{Type: ShapeCircle, X: 2, Y: 2}}

	assert.True(t, VerifyShape(ShapePattern{{Type: ShapeCircle, X: 3, Y: 3}}, stored, tol))
	assert.False(t, VerifyShape(ShapePattern{{Type: ShapeCircle, X: 4, Y: 4}}, stored, tol))
	assert.False(t, VerifyShape(ShapePattern{{Type: ShapeSquare, X: 2, Y: 2}}, stored, tol))
}

func TestVerifyShapeNotOneToOne(t *testing.T) {
	tol := DefaultTolerances()
	stored := ShapePattern{
		{Type: ShapeCircle, X: 2, Y: 2},
		{Type: ShapeSquare, X: 6, Y: 6},
		{Type: ShapeTriangle, X: 0, Y: 7},
	}
	fresh := ShapePattern{
		{Type: ShapeCircle, X: 2, Y: 2},
		{Type: ShapeCircle, X: 3, Y: 2},
		{Type: ShapeTriangle, X: 0, Y: 7},
	}
	assert.True(t, VerifyShape(fresh, stored, tol))
	assert.False(t, VerifyShape(fresh[:2], stored, tol))
}

func TestNewShapePatternValidation(t *testing.T) {
	_, err := NewShapePattern([]Shape{{ShapeCircle, 0, 0}, {ShapeSquare, 1, 1}})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = NewShapePattern([]Shape{{ShapeCircle, 0, 0}, {ShapeSquare, 0, 0}, {ShapeTriangle, 2, 2}})
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, "position already occupied", Reason(err))

	_, err = NewShapePattern([]Shape{{ShapeCircle, 0, 0}, {ShapeSquare, 8, 0}, {ShapeTriangle, 2, 2}})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = NewShapePattern([]Shape{{"hexagon", 0, 0}, {ShapeSquare, 1, 0}, {ShapeTriangle, 2, 2}})
	assert.ErrorIs(t, err, ErrInvalidInput)

	p, err := NewShapePattern([]Shape{{ShapeCircle, 0, 0}, {ShapeSquare, 1, 0}, {ShapeTriangle, 2, 2}})
	require.NoError(t, err)
	assert.Len(t, p, 3)
}

// =============================================================================
// Dispatch
// =============================================================================

func TestVerifyDispatch(t *testing.T) {
	tol := DefaultTolerances()

	ok, err := Verify(NewColor(1, 2, 3), nil, tol)
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrNoTemplate)

	ok, err = Verify(NewColor(1, 2, 3), EmojiPath{"🦁", "🍕", "🌟", "🌙"}, tol)
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrModalityMismatch)

	ok, err = Verify(NewColor(1, 2, 3), NewColor(4, 5, 6), tol)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestReasonFallsBack(t *testing.T) {
	assert.Equal(t, "", Reason(nil))
	assert.Equal(t, "boom", Reason(errors.New("boom")))
}
