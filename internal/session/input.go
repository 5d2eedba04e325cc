package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Zeini-23025/Sesame-ouvre-toi/internal/capture"
	"github.com/Zeini-23025/Sesame-ouvre-toi/internal/pattern"
)

// bufferAs returns the active buffer as T, or ErrInvalidTransition when the
// controller is not capturing that kind of input.
func bufferAs[T capture.Buffer](c *Controller, op string) (T, error) {
	var zero T
	if c.phase != PhaseCapturing || c.buffer == nil {
		return zero, c.invalid(op)
	}
	b, ok := c.buffer.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s during %s capture", ErrInvalidTransition, op, c.modality)
	}
	return b, nil
}

// withBuffer runs fn against the active buffer of type T.
func withBuffer[T capture.Buffer](c *Controller, op string, fn func(T) error) error {
	return c.update(func() error {
		b, err := bufferAs[T](c, op)
		if err != nil {
			return err
		}
		return fn(b)
	})
}

// editNotice turns a rejected board edit into a transient notice. Other
// errors are returned to the caller.
func (c *Controller) editNotice(err error) error {
	switch {
	case err == nil:
		c.changed = true
		return nil
	case errors.Is(err, capture.ErrCellOccupied),
		errors.Is(err, capture.ErrAlreadySelected),
		errors.Is(err, capture.ErrPathFull):
		c.setNotice(Status{Kind: StatusWarning, Text: capitalize(err.Error()), Err: err})
		return nil
	default:
		return err
	}
}

// =============================================================================
// Voice
// =============================================================================

// StartVoice begins recording. The recording stops on its own after the
// voice cutoff.
func (c *Controller) StartVoice() error {
	return withBuffer(c, "start voice", func(v *capture.VoiceRecorder) error {
		v.Start()
		c.setStatus(Status{Kind: StatusInfo, Text: "Speak your magic phrase..."})
		c.capLog.Debug("recording started")

		// A restarted recording replaces the previous cutoff.
		c.cancelTimers()
		c.after(c.timings.VoiceCutoff, c.completeAsync)
		return nil
	})
}

// AudioFrame feeds one analysed frame to a running recording. Frames outside
// a recording are dropped.
func (c *Controller) AudioFrame(f pattern.AudioFrame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, err := bufferAs[*capture.VoiceRecorder](c, "audio frame")
	if err != nil {
		return err
	}
	v.Add(f)
	return nil
}

// StopVoice ends the recording early and extracts it.
func (c *Controller) StopVoice(ctx context.Context) error {
	return withBuffer(c, "stop voice", func(v *capture.VoiceRecorder) error {
		if !v.Recording() {
			return c.invalid("stop voice without recording")
		}
		v.Stop()
		c.capLog.Debug("recording stopped", "frames", v.Len())
		c.complete(ctx)
		return nil
	})
}

// Recording reports whether a voice capture is running.
func (c *Controller) Recording() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, err := bufferAs[*capture.VoiceRecorder](c, "recording")
	return err == nil && v.Recording()
}

// =============================================================================
// Gesture
// =============================================================================

// PointerDown starts a gesture trace.
func (c *Controller) PointerDown(x, y float64, at time.Time) error {
	return withBuffer(c, "pointer down", func(g *capture.GestureTrace) error {
		g.Down(x, y, at)
		return nil
	})
}

// PointerMove adds a sample while the pointer is held. Moves without a held
// pointer are ignored.
func (c *Controller) PointerMove(x, y float64, at time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	g, err := bufferAs[*capture.GestureTrace](c, "pointer move")
	if err != nil {
		return err
	}
	g.Move(x, y, at)
	return nil
}

// PointerUp ends the trace and extracts it.
func (c *Controller) PointerUp(ctx context.Context) error {
	return withBuffer(c, "pointer up", func(g *capture.GestureTrace) error {
		if !g.Up() {
			return nil
		}
		c.complete(ctx)
		return nil
	})
}

// =============================================================================
// Rhythm
// =============================================================================

// KeyDown records a key press. The eighth key triggers extraction.
func (c *Controller) KeyDown(ctx context.Context, key string, at time.Time) error {
	return withBuffer(c, "key down", func(k *capture.KeyRhythm) error {
		c.changed = true
		if k.Press(key, at) {
			c.complete(ctx)
		}
		return nil
	})
}

// TypedKeys returns the keys typed so far in display form.
func (c *Controller) TypedKeys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	k, err := bufferAs[*capture.KeyRhythm](c, "typed keys")
	if err != nil {
		return nil
	}
	return k.Typed()
}

// =============================================================================
// Tap
// =============================================================================

// Tap records a tap inside the open window. The window closes, and the taps
// are extracted, when the tap window delay elapses.
func (c *Controller) Tap(at time.Time) error {
	return withBuffer(c, "tap", func(w *capture.TapWindow) error {
		if w.Tap(at) {
			c.changed = true
		}
		return nil
	})
}

// TapCount returns the taps recorded in the open window.
func (c *Controller) TapCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	w, err := bufferAs[*capture.TapWindow](c, "tap count")
	if err != nil {
		return 0
	}
	return w.Count()
}

// =============================================================================
// Color
// =============================================================================

// SetColor moves the color sliders.
func (c *Controller) SetColor(r, g, b int) error {
	return withBuffer(c, "set color", func(m *capture.ColorMixer) error {
		m.Set(r, g, b)
		c.changed = true
		return nil
	})
}

// RandomizeColor picks a random color.
func (c *Controller) RandomizeColor() error {
	return withBuffer(c, "randomize color", func(m *capture.ColorMixer) error {
		m.Randomize(c.rng)
		c.changed = true
		return nil
	})
}

// SubmitColor extracts the current color.
func (c *Controller) SubmitColor(ctx context.Context) error {
	return withBuffer(c, "submit color", func(*capture.ColorMixer) error {
		c.complete(ctx)
		return nil
	})
}

// Color returns the current color selection.
func (c *Controller) Color() (pattern.ColorFingerprint, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, err := bufferAs[*capture.ColorMixer](c, "color")
	if err != nil {
		return pattern.ColorFingerprint{}, false
	}
	return m.Color(), true
}

// =============================================================================
// Emoji
// =============================================================================

// SelectEmoji appends the glyph at grid index i to the path. Repeats and a
// full path show a notice instead.
func (c *Controller) SelectEmoji(i int) error {
	return withBuffer(c, "select emoji", func(b *capture.EmojiBoard) error {
		return c.editNotice(b.Select(i))
	})
}

// RemoveLastEmoji drops the most recent selection.
func (c *Controller) RemoveLastEmoji() error {
	return withBuffer(c, "remove emoji", func(b *capture.EmojiBoard) error {
		b.RemoveLast()
		c.changed = true
		return nil
	})
}

// ClearEmoji empties the path.
func (c *Controller) ClearEmoji() error {
	return withBuffer(c, "clear emoji", func(b *capture.EmojiBoard) error {
		b.Clear()
		c.changed = true
		return nil
	})
}

// ShuffleEmoji deals a new grid and clears the path.
func (c *Controller) ShuffleEmoji() error {
	return withBuffer(c, "shuffle emoji", func(b *capture.EmojiBoard) error {
		b.Shuffle(c.rng)
		c.changed = true
		return nil
	})
}

// SubmitEmoji extracts the selected path.
func (c *Controller) SubmitEmoji(ctx context.Context) error {
	return withBuffer(c, "submit emoji", func(*capture.EmojiBoard) error {
		c.complete(ctx)
		return nil
	})
}

// EmojiGrid returns the grid of the active emoji capture.
func (c *Controller) EmojiGrid() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, err := bufferAs[*capture.EmojiBoard](c, "emoji grid")
	if err != nil {
		return nil
	}
	return b.Grid()
}

// EmojiPath returns the current selection.
func (c *Controller) EmojiPath() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, err := bufferAs[*capture.EmojiBoard](c, "emoji path")
	if err != nil {
		return nil
	}
	return b.Path()
}

// =============================================================================
// Shape
// =============================================================================

// PlaceShape puts a shape on the grid. An occupied cell shows a notice.
func (c *Controller) PlaceShape(s pattern.Shape) error {
	return withBuffer(c, "place shape", func(b *capture.ShapeBoard) error {
		return c.editNotice(b.Place(s))
	})
}

// RemoveShape takes the shape off a cell.
func (c *Controller) RemoveShape(x, y int) error {
	return withBuffer(c, "remove shape", func(b *capture.ShapeBoard) error {
		if b.Remove(x, y) {
			c.changed = true
		}
		return nil
	})
}

// ClearShapes empties the board.
func (c *Controller) ClearShapes() error {
	return withBuffer(c, "clear shapes", func(b *capture.ShapeBoard) error {
		b.Clear()
		c.changed = true
		return nil
	})
}

// SubmitShapes extracts the placements.
func (c *Controller) SubmitShapes(ctx context.Context) error {
	return withBuffer(c, "submit shapes", func(*capture.ShapeBoard) error {
		c.complete(ctx)
		return nil
	})
}

// Shapes returns the current placements.
func (c *Controller) Shapes() []pattern.Shape {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, err := bufferAs[*capture.ShapeBoard](c, "shapes")
	if err != nil {
		return nil
	}
	return b.Shapes()
}
