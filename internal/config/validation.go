package config

import (
	"fmt"
	"strings"

	"github.com/Zeini-23025/Sesame-ouvre-toi/internal/pattern"
	"github.com/Zeini-23025/Sesame-ouvre-toi/internal/store"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Fields returns the offending field names.
func (e ValidationErrors) Fields() []string {
	fields := make([]string, len(e))
	for i, err := range e {
		fields[i] = err.Field
	}
	return fields
}

// ValidateConfig performs comprehensive validation of the configuration.
func ValidateConfig(c *Config) error {
	var errs ValidationErrors

	if c.Version < 1 || c.Version > Version {
		errs = append(errs, ValidationError{
			Field:   "version",
			Message: fmt.Sprintf("unsupported version %d (current: %d)", c.Version, Version),
		})
	}

	errs = append(errs, validateStorage(&c.Storage)...)
	errs = append(errs, validateSession(&c.Session)...)
	errs = append(errs, validateTolerances(&c.Tolerances)...)
	errs = append(errs, validateModalities(&c.Modalities)...)
	errs = append(errs, validateLogging(&c.Logging)...)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateStorage(s *StorageConfig) ValidationErrors {
	var errs ValidationErrors

	switch s.Backend {
	case store.BackendMemory:
	case store.BackendSQLite:
		if s.Path == "" {
			errs = append(errs, ValidationError{Field: "storage.path", Message: "path is required for sqlite"})
		}
	case store.BackendBadger:
		if s.Path == "" && !s.InMemory {
			errs = append(errs, ValidationError{Field: "storage.path", Message: "path is required for on-disk badger"})
		}
	case store.BackendFile:
		if s.Path == "" {
			errs = append(errs, ValidationError{Field: "storage.path", Message: "path is required for the file store"})
		}
	default:
		errs = append(errs, ValidationError{
			Field:   "storage.backend",
			Message: fmt.Sprintf("invalid backend: %s (valid: memory, sqlite, badger, file)", s.Backend),
		})
	}

	if s.Seal && s.SecretFile == "" && s.Path == "" {
		errs = append(errs, ValidationError{Field: "storage.secret_file", Message: "secret file is required when sealing"})
	}

	return errs
}

func validateSession(s *SessionConfig) ValidationErrors {
	var errs ValidationErrors

	positive := []struct {
		field string
		value int
	}{
		{"session.voice_cutoff_ms", s.VoiceCutoffMs},
		{"session.tap_window_ms", s.TapWindowMs},
		{"session.enrolled_delay_ms", s.EnrolledDelayMs},
		{"session.success_delay_ms", s.SuccessDelayMs},
		{"session.mismatch_delay_ms", s.MismatchDelayMs},
		{"session.retry_delay_ms", s.RetryDelayMs},
		{"session.notice_delay_ms", s.NoticeDelayMs},
	}
	for _, p := range positive {
		if p.value <= 0 {
			errs = append(errs, ValidationError{Field: p.field, Message: "must be positive"})
		}
	}

	return errs
}

func validateTolerances(t *pattern.Tolerances) ValidationErrors {
	var errs ValidationErrors

	relative := []struct {
		field string
		value float64
	}{
		{"tolerances.voice_duration", t.VoiceDuration},
		{"tolerances.voice_volume", t.VoiceVolume},
		{"tolerances.voice_rhythm", t.VoiceRhythm},
		{"tolerances.gesture_points", t.GesturePoints},
		{"tolerances.gesture_duration", t.GestureDuration},
		{"tolerances.gesture_distance", t.GestureDistance},
		{"tolerances.gesture_speed", t.GestureSpeed},
		{"tolerances.rhythm_interval", t.RhythmInterval},
		{"tolerances.rhythm_stddev", t.RhythmStdDev},
		{"tolerances.tap_interval", t.TapInterval},
		{"tolerances.tap_duration", t.TapDuration},
	}
	for _, r := range relative {
		if r.value <= 0 {
			errs = append(errs, ValidationError{Field: r.field, Message: "must be positive"})
		}
	}

	if t.TapMatchRate <= 0 || t.TapMatchRate > 1 {
		errs = append(errs, ValidationError{Field: "tolerances.tap_match_rate", Message: "must be in (0, 1]"})
	}
	if t.ColorMeanDelta < 0 || t.ColorMeanDelta > 255 {
		errs = append(errs, ValidationError{Field: "tolerances.color_mean_delta", Message: "must be in [0, 255]"})
	}
	if t.ShapeCells < 0 || t.ShapeCells >= pattern.GridSize {
		errs = append(errs, ValidationError{Field: "tolerances.shape_cells", Message: fmt.Sprintf("must be in [0, %d)", pattern.GridSize)})
	}
	if t.VoicePeaks < 0 {
		errs = append(errs, ValidationError{Field: "tolerances.voice_peaks", Message: "cannot be negative"})
	}

	votes := []struct {
		field string
		value int
		max   int
	}{
		{"tolerances.voice_min_votes", t.VoiceMinVotes, 4},
		{"tolerances.gesture_min_votes", t.GestureMinVotes, 4},
		{"tolerances.rhythm_min_votes", t.RhythmMinVotes, 3},
	}
	for _, v := range votes {
		if v.value < 1 || v.value > v.max {
			errs = append(errs, ValidationError{Field: v.field, Message: fmt.Sprintf("must be between 1 and %d", v.max)})
		}
	}

	return errs
}

func validateModalities(m *ModalitiesConfig) ValidationErrors {
	var errs ValidationErrors

	if len(m.Enabled) == 0 {
		errs = append(errs, ValidationError{Field: "modalities.enabled", Message: "at least one modality must be enabled"})
	}
	for _, name := range m.Enabled {
		if _, err := pattern.ParseModality(name); err != nil {
			errs = append(errs, ValidationError{Field: "modalities.enabled", Message: err.Error()})
		}
	}

	return errs
}

func validateLogging(l *LoggingConfig) ValidationErrors {
	var errs ValidationErrors

	switch l.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("invalid log level: %s (valid: debug, info, warn, error)", l.Level),
		})
	}

	switch l.Format {
	case "text", "json":
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("invalid log format: %s (valid: text, json)", l.Format),
		})
	}

	switch l.Output {
	case "stdout", "stderr":
	case "file":
		if l.FilePath == "" {
			errs = append(errs, ValidationError{
				Field:   "logging.file_path",
				Message: "file path is required when output is 'file'",
			})
		}
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.output",
			Message: fmt.Sprintf("invalid log output: %s (valid: stdout, stderr, file)", l.Output),
		})
	}

	if l.MaxSizeMB < 1 {
		errs = append(errs, ValidationError{Field: "logging.max_size_mb", Message: "max size must be at least 1 MB"})
	}
	if l.MaxBackups < 0 {
		errs = append(errs, ValidationError{Field: "logging.max_backups", Message: "max backups cannot be negative"})
	}

	return errs
}
