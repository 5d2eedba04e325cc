package pattern

import "fmt"

// Verify dispatches to the verifier for fresh's modality. A nil stored
// template yields ErrNoTemplate; differing variants yield ErrModalityMismatch.
func Verify(fresh, stored Fingerprint, tol Tolerances) (bool, error) {
	if stored == nil {
		return false, ErrNoTemplate
	}

	switch f := fresh.(type) {
	case VoiceFingerprint:
		return verifyAs(f, stored, func(a, b VoiceFingerprint) bool { return VerifyVoice(a, b, tol) })
	case GestureFingerprint:
		return verifyAs(f, stored, func(a, b GestureFingerprint) bool { return VerifyGesture(a, b, tol) })
	case RhythmFingerprint:
		return verifyAs(f, stored, func(a, b RhythmFingerprint) bool { return VerifyRhythm(a, b, tol) })
	case TapFingerprint:
		return verifyAs(f, stored, func(a, b TapFingerprint) bool { return VerifyTap(a, b, tol) })
	case ColorFingerprint:
		return verifyAs(f, stored, func(a, b ColorFingerprint) bool { return VerifyColor(a, b, tol) })
	case EmojiPath:
		return verifyAs(f, stored, VerifyEmoji)
	case ShapePattern:
		return verifyAs(f, stored, func(a, b ShapePattern) bool { return VerifyShape(a, b, tol) })
	default:
		return false, fmt.Errorf("%w: fresh %T", ErrModalityMismatch, fresh)
	}
}

func verifyAs[T Fingerprint](fresh T, stored Fingerprint, match func(T, T) bool) (bool, error) {
	s, ok := stored.(T)
	if !ok {
		return false, fmt.Errorf("%w: %s vs %T", ErrModalityMismatch, fresh.Modality(), stored)
	}
	return match(fresh, s), nil
}
