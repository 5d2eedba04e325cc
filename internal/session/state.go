package session

import (
	"slices"

	"github.com/Zeini-23025/Sesame-ouvre-toi/internal/pattern"
)

// Mode is the purpose of the current session.
type Mode string

const (
	ModeWelcome  Mode = "welcome"
	ModeRegister Mode = "register"
	ModeLogin    Mode = "login"
)

// Phase is the controller's state.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseSelecting Phase = "selecting"
	PhaseCapturing Phase = "capturing"
	PhaseSucceeded Phase = "succeeded"
	PhaseFailed    Phase = "failed"
)

// StatusKind classifies a status line for presentation.
type StatusKind string

const (
	StatusNone    StatusKind = ""
	StatusInfo    StatusKind = "info"
	StatusSuccess StatusKind = "success"
	StatusWarning StatusKind = "warning"
	StatusError   StatusKind = "error"
)

// Status is a user-facing message. Err names the outcome for programmatic
// checks and is nil for plain prompts.
type Status struct {
	Kind StatusKind
	Text string
	Err  error
}

// State is an immutable snapshot of the controller.
type State struct {
	Phase    Phase
	Mode     Mode
	Modality pattern.Modality

	// Status is the message for the current state.
	Status Status

	// Notice is a transient message about a rejected edit. It clears on
	// its own after a short delay.
	Notice Status

	// SessionID identifies the active capture for log correlation.
	SessionID string

	// Offered lists the modalities selectable in the Selecting phase.
	Offered []pattern.Modality

	// Enrolled lists modalities with a template, in presentation order.
	Enrolled []pattern.Modality

	// Recording is true while a voice capture is running.
	Recording bool
}

// Offers reports whether m is selectable.
func (s State) Offers(m pattern.Modality) bool {
	return slices.Contains(s.Offered, m)
}
