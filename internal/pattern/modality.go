// Package pattern implements feature extraction and tolerance verification
// for every unlock modality.
//
// Each modality contributes three things: a fingerprint record (the compact,
// derived features that get stored), an extractor that turns raw capture data
// into that record, and a verifier that decides whether a freshly captured
// fingerprint matches the enrolled one. Extractors and verifiers are pure
// functions: identical input always yields identical output and inputs are
// never modified.
//
// Matching is approximate and heuristic. Nothing in this package provides
// cryptographic guarantees.
package pattern

import (
	"errors"
	"fmt"
	"strings"
)

// Modality identifies one unlock method.
type Modality string

const (
	ModalityVoice   Modality = "voice"
	ModalityGesture Modality = "gesture"
	ModalityRhythm  Modality = "rhythm"
	ModalityColor   Modality = "color"
	ModalityEmoji   Modality = "emoji"
	ModalityShape   Modality = "shape"
	ModalityTap     Modality = "tap"
)

// All lists every modality in presentation order.
var All = []Modality{
	ModalityVoice,
	ModalityEmoji,
	ModalityColor,
	ModalityShape,
	ModalityGesture,
	ModalityRhythm,
	ModalityTap,
}

// ErrUnknownModality is returned when parsing an unrecognized modality name.
var ErrUnknownModality = errors.New("unknown modality")

// ParseModality parses a modality name (case-insensitive).
func ParseModality(s string) (Modality, error) {
	m := Modality(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownModality, s)
	}
	return m, nil
}

// Valid reports whether m is one of the known modalities.
func (m Modality) Valid() bool {
	switch m {
	case ModalityVoice, ModalityGesture, ModalityRhythm, ModalityColor,
		ModalityEmoji, ModalityShape, ModalityTap:
		return true
	}
	return false
}

// StoreKey returns the persistence key holding this modality's template.
// The tap modality keeps the historical "auth_pattern" key.
func (m Modality) StoreKey() string {
	if m == ModalityTap {
		return "auth_pattern"
	}
	return "auth_" + string(m)
}

// Title returns the human-facing name of the modality.
func (m Modality) Title() string {
	switch m {
	case ModalityVoice:
		return "Enchanted Voice"
	case ModalityGesture:
		return "Secret Gesture"
	case ModalityRhythm:
		return "Typing Rhythm"
	case ModalityColor:
		return "Color Blender"
	case ModalityEmoji:
		return "Emoji Path Lock"
	case ModalityShape:
		return "Shape Builder"
	case ModalityTap:
		return "Tap Pattern"
	default:
		return string(m)
	}
}

func (m Modality) String() string {
	return string(m)
}
