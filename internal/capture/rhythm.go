package capture

import (
	"time"

	"github.com/Zeini-23025/Sesame-ouvre-toi/internal/pattern"
)

// KeyRhythm records key-downs until the phrase is complete.
type KeyRhythm struct {
	keys []pattern.KeyEvent
}

// NewKeyRhythm returns an empty recorder.
func NewKeyRhythm() *KeyRhythm {
	return &KeyRhythm{keys: make([]pattern.KeyEvent, 0, pattern.RhythmLength)}
}

func (*KeyRhythm) Modality() pattern.Modality { return pattern.ModalityRhythm }

// Press records a key-down and reports whether the phrase is now complete.
// Keys after completion are ignored.
func (k *KeyRhythm) Press(key string, at time.Time) bool {
	if k.Complete() {
		return true
	}
	k.keys = append(k.keys, pattern.KeyEvent{Key: key, At: at})
	return k.Complete()
}

// Complete reports whether RhythmLength keys have been recorded.
func (k *KeyRhythm) Complete() bool {
	return len(k.keys) >= pattern.RhythmLength
}

// Typed returns the recorded keys in display form.
func (k *KeyRhythm) Typed() []string {
	out := make([]string, len(k.keys))
	for i, e := range k.keys {
		out[i] = pattern.DisplayKey(e.Key)
	}
	return out
}

func (k *KeyRhythm) Finish() (pattern.Fingerprint, error) {
	fp, err := pattern.ExtractRhythm(k.keys)
	if err != nil {
		return nil, err
	}
	return fp, nil
}
