// Package capture holds the raw input of one capture session.
//
// A buffer is created when the session controller enters a Capturing state
// and discarded when it leaves; raw samples never outlive the session. Each
// buffer turns its accumulated input into a fingerprint with Finish. Buffers
// are not safe for concurrent use; the controller serializes access.
package capture

import (
	"errors"
	"math/rand/v2"
	"time"

	"github.com/Zeini-23025/Sesame-ouvre-toi/internal/pattern"
)

// Transient editing notices. They reject a single edit and leave the buffer
// unchanged.
var (
	ErrCellOccupied    = errors.New("position already occupied")
	ErrAlreadySelected = errors.New("already selected this emoji")
	ErrPathFull        = errors.New("maximum 8 emojis")
	ErrOutOfRange      = errors.New("index out of range")
)

// Buffer accumulates input for one modality.
type Buffer interface {
	Modality() pattern.Modality

	// Finish extracts a fingerprint from everything recorded so far.
	Finish() (pattern.Fingerprint, error)
}

// Params configures a new buffer.
type Params struct {
	// Rand deals the emoji grid.
	Rand *rand.Rand

	// Now opens the tap window.
	Now time.Time

	// TapWindow defaults to pattern.TapWindow.
	TapWindow time.Duration
}

// New returns an empty buffer for m.
func New(m pattern.Modality, p Params) (Buffer, error) {
	switch m {
	case pattern.ModalityVoice:
		return NewVoiceRecorder(), nil
	case pattern.ModalityGesture:
		return NewGestureTrace(), nil
	case pattern.ModalityRhythm:
		return NewKeyRhythm(), nil
	case pattern.ModalityTap:
		window := p.TapWindow
		if window <= 0 {
			window = pattern.TapWindow
		}
		return NewTapWindow(p.Now, window), nil
	case pattern.ModalityColor:
		return NewColorMixer(), nil
	case pattern.ModalityEmoji:
		if p.Rand == nil {
			return nil, errors.New("emoji board needs a random source")
		}
		return NewEmojiBoard(p.Rand), nil
	case pattern.ModalityShape:
		return NewShapeBoard(), nil
	}
	return nil, pattern.ErrUnknownModality
}
