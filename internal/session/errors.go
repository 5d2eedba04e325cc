package session

import "errors"

var (
	// ErrInvalidTransition is returned when an input is not valid in the
	// current phase.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrNotOffered is returned when selecting a modality or mode that the
	// current state does not offer.
	ErrNotOffered = errors.New("not offered")

	// ErrCaptureDenied marks a capture port that refused access.
	ErrCaptureDenied = errors.New("capture denied")

	// ErrVerificationFailed marks a fingerprint that did not match.
	ErrVerificationFailed = errors.New("verification failed")

	// ErrPersistence marks a failed pattern store operation.
	ErrPersistence = errors.New("persistence error")
)
