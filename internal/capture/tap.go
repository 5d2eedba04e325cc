package capture

import (
	"time"

	"github.com/Zeini-23025/Sesame-ouvre-toi/internal/pattern"
)

// TapWindow accepts taps for a fixed window after it opens. Taps beyond
// MaxTaps are kept so that Finish can report them as too many.
type TapWindow struct {
	opened time.Time
	window time.Duration
	taps   []time.Time
	closed bool
}

// NewTapWindow opens a window at now lasting window.
func NewTapWindow(now time.Time, window time.Duration) *TapWindow {
	return &TapWindow{opened: now, window: window}
}

func (*TapWindow) Modality() pattern.Modality { return pattern.ModalityTap }

// Tap records a tap. Taps before the window opens, after it elapses or once it
// is closed are ignored.
func (t *TapWindow) Tap(at time.Time) bool {
	if t.closed || at.Before(t.opened) || at.Sub(t.opened) > t.window {
		return false
	}
	t.taps = append(t.taps, at)
	return true
}

// Close stops accepting taps.
func (t *TapWindow) Close() {
	t.closed = true
}

// Count returns the number of taps so far.
func (t *TapWindow) Count() int {
	return len(t.taps)
}

// Offsets returns tap times relative to the first tap.
func (t *TapWindow) Offsets() []time.Duration {
	out := make([]time.Duration, len(t.taps))
	for i, at := range t.taps {
		out[i] = at.Sub(t.taps[0])
	}
	return out
}

func (t *TapWindow) Finish() (pattern.Fingerprint, error) {
	t.closed = true
	fp, err := pattern.ExtractTap(t.taps)
	if err != nil {
		return nil, err
	}
	return fp, nil
}
