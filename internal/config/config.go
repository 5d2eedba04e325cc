// Package config handles configuration loading, validation, and management for
// the sesame unlock engine.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/Zeini-23025/Sesame-ouvre-toi/internal/logging"
	"github.com/Zeini-23025/Sesame-ouvre-toi/internal/pattern"
	"github.com/Zeini-23025/Sesame-ouvre-toi/internal/store"
)

// Version is the current configuration schema version.
const Version = 1

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "SESAME_"

// Config holds the complete engine configuration.
type Config struct {
	// Version is the configuration schema version.
	Version int `toml:"version" json:"version" yaml:"version"`

	// Storage selects the pattern store backend.
	Storage StorageConfig `toml:"storage" json:"storage" yaml:"storage" envPrefix:"STORAGE_"`

	// Session holds capture bounds and transient-state delays.
	Session SessionConfig `toml:"session" json:"session" yaml:"session" envPrefix:"SESSION_"`

	// Tolerances are the verifier thresholds.
	Tolerances pattern.Tolerances `toml:"tolerances" json:"tolerances" yaml:"tolerances"`

	// Modalities lists which unlock methods are offered.
	Modalities ModalitiesConfig `toml:"modalities" json:"modalities" yaml:"modalities" envPrefix:"MODALITIES_"`

	// Logging configuration.
	Logging LoggingConfig `toml:"logging" json:"logging" yaml:"logging" envPrefix:"LOG_"`

	// Metrics configuration.
	Metrics MetricsConfig `toml:"metrics" json:"metrics" yaml:"metrics" envPrefix:"METRICS_"`
}

// StorageConfig holds persistence configuration.
type StorageConfig struct {
	// Backend is "memory", "sqlite", "badger" or "file".
	Backend string `toml:"backend" json:"backend" yaml:"backend" env:"BACKEND"`

	// Path is the SQLite file, or the Badger or file-store directory.
	Path string `toml:"path" json:"path" yaml:"path" env:"PATH"`

	// InMemory keeps Badger data off disk.
	InMemory bool `toml:"in_memory" json:"in_memory" yaml:"in_memory" env:"IN_MEMORY"`

	// Seal appends an integrity tag to every stored pattern.
	Seal bool `toml:"seal" json:"seal" yaml:"seal" env:"SEAL"`

	// SecretFile holds the seal secret. Created on first use.
	SecretFile string `toml:"secret_file" json:"secret_file" yaml:"secret_file" env:"SECRET_FILE"`
}

// SessionConfig holds capture and display timings in milliseconds.
type SessionConfig struct {
	// VoiceCutoffMs stops a voice recording automatically.
	VoiceCutoffMs int `toml:"voice_cutoff_ms" json:"voice_cutoff_ms" yaml:"voice_cutoff_ms" env:"VOICE_CUTOFF_MS"`

	// TapWindowMs is how long a tap capture stays open.
	TapWindowMs int `toml:"tap_window_ms" json:"tap_window_ms" yaml:"tap_window_ms" env:"TAP_WINDOW_MS"`

	// EnrolledDelayMs is how long the enrollment confirmation is shown.
	EnrolledDelayMs int `toml:"enrolled_delay_ms" json:"enrolled_delay_ms" yaml:"enrolled_delay_ms" env:"ENROLLED_DELAY_MS"`

	// SuccessDelayMs is how long the unlock celebration is shown.
	SuccessDelayMs int `toml:"success_delay_ms" json:"success_delay_ms" yaml:"success_delay_ms" env:"SUCCESS_DELAY_MS"`

	// MismatchDelayMs is shown after a failed verification.
	MismatchDelayMs int `toml:"mismatch_delay_ms" json:"mismatch_delay_ms" yaml:"mismatch_delay_ms" env:"MISMATCH_DELAY_MS"`

	// RetryDelayMs is shown after an incomplete capture.
	RetryDelayMs int `toml:"retry_delay_ms" json:"retry_delay_ms" yaml:"retry_delay_ms" env:"RETRY_DELAY_MS"`

	// NoticeDelayMs clears short warnings such as an occupied cell.
	NoticeDelayMs int `toml:"notice_delay_ms" json:"notice_delay_ms" yaml:"notice_delay_ms" env:"NOTICE_DELAY_MS"`

	// Seed fixes the emoji grid and color randomizer. Zero draws a fresh seed.
	Seed uint64 `toml:"seed" json:"seed" yaml:"seed" env:"SEED"`
}

// ModalitiesConfig selects offered modalities.
type ModalitiesConfig struct {
	Enabled []string `toml:"enabled" json:"enabled" yaml:"enabled" env:"ENABLED" envSeparator:","`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level: "debug", "info", "warn", "error".
	Level string `toml:"level" json:"level" yaml:"level" env:"LEVEL"`

	// Format is the log format: "text" or "json".
	Format string `toml:"format" json:"format" yaml:"format" env:"FORMAT"`

	// Output is "stdout", "stderr" or "file".
	Output string `toml:"output" json:"output" yaml:"output" env:"OUTPUT"`

	// FilePath is the path to the log file (when Output is "file").
	FilePath string `toml:"file_path" json:"file_path" yaml:"file_path" env:"PATH"`

	// MaxSizeMB is the maximum log file size before rotation.
	MaxSizeMB int `toml:"max_size_mb" json:"max_size_mb" yaml:"max_size_mb" env:"MAX_SIZE_MB"`

	// MaxBackups is the number of old log files to keep.
	MaxBackups int `toml:"max_backups" json:"max_backups" yaml:"max_backups" env:"MAX_BACKUPS"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool `toml:"enabled" json:"enabled" yaml:"enabled" env:"ENABLED"`

	// Output receives the metrics on exit: "stderr" or a file path. A path
	// ending in .json gets a JSON snapshot instead of the text exposition.
	Output string `toml:"output" json:"output" yaml:"output" env:"OUTPUT"`
}

// DefaultConfig returns a configuration with the stock timings and
// tolerances and a SQLite store under the platform data directory.
func DefaultConfig() *Config {
	dataDir := DataDir()
	return &Config{
		Version: Version,
		Storage: StorageConfig{
			Backend:    store.BackendSQLite,
			Path:       filepath.Join(dataDir, "patterns.db"),
			SecretFile: filepath.Join(dataDir, "seal.key"),
		},
		Session: SessionConfig{
			VoiceCutoffMs:   4000,
			TapWindowMs:     int(pattern.TapWindow / time.Millisecond),
			EnrolledDelayMs: 2000,
			SuccessDelayMs:  3500,
			MismatchDelayMs: 2500,
			RetryDelayMs:    2000,
			NoticeDelayMs:   2000,
		},
		Tolerances: pattern.DefaultTolerances(),
		Modalities: ModalitiesConfig{
			Enabled: modalityNames(pattern.All),
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     "stderr",
			FilePath:   filepath.Join(PlatformLogDir(), "sesame.log"),
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Metrics: MetricsConfig{
			Output: "stderr",
		},
	}
}

// ConfigPath returns the default configuration file path.
func ConfigPath() string {
	return filepath.Join(PlatformConfigDir(), "config.toml")
}

// DataDir returns the base data directory, honouring SESAME_DATA_DIR.
func DataDir() string {
	if envDir := os.Getenv(EnvPrefix + "DATA_DIR"); envDir != "" {
		return envDir
	}
	return PlatformDataDir()
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	return ValidateConfig(c)
}

// ApplyEnvOverrides applies SESAME_* environment variables on top of the
// current values. Unset variables leave fields untouched.
func (c *Config) ApplyEnvOverrides() error {
	return c.applyEnv(nil)
}

func (c *Config) applyEnv(environ map[string]string) error {
	opts := env.Options{Prefix: EnvPrefix}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(c, opts); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Modalities.Enabled = slices.Clone(c.Modalities.Enabled)
	return &clone
}

// EnabledModalities returns the configured modalities in presentation order.
// Unknown names are skipped; Validate reports them.
func (c *Config) EnabledModalities() []pattern.Modality {
	var out []pattern.Modality
	for _, m := range pattern.All {
		if slices.Contains(c.Modalities.Enabled, string(m)) {
			out = append(out, m)
		}
	}
	return out
}

// StoreOptions converts the storage section for store.Open.
func (c *Config) StoreOptions() store.Options {
	return store.Options{
		Backend:    c.Storage.Backend,
		Path:       c.Storage.Path,
		InMemory:   c.Storage.InMemory,
		Seal:       c.Storage.Seal,
		SecretFile: c.Storage.SecretFile,
	}
}

// LoggerConfig converts the logging section for logging.New. Level and
// format were checked by Validate; unknown values fall back to info/text.
func (c *Config) LoggerConfig() *logging.Config {
	lc := logging.DefaultConfig()
	if level, err := logging.ParseLevel(c.Logging.Level); err == nil {
		lc.Level = level
	}
	if format, err := logging.ParseFormat(c.Logging.Format); err == nil {
		lc.Format = format
	}
	lc.Output = c.Logging.Output
	lc.FilePath = c.Logging.FilePath
	lc.MaxSize = int64(c.Logging.MaxSizeMB)
	lc.MaxBackups = c.Logging.MaxBackups
	return lc
}

// EnsureDirectories creates the directories the configuration points at.
func (c *Config) EnsureDirectories() error {
	dirs := []string{filepath.Dir(c.Storage.SecretFile)}
	if c.Storage.Backend == store.BackendSQLite {
		dirs = append(dirs, filepath.Dir(c.Storage.Path))
	}
	if (c.Storage.Backend == store.BackendBadger && !c.Storage.InMemory) || c.Storage.Backend == store.BackendFile {
		dirs = append(dirs, c.Storage.Path)
	}
	if c.Logging.Output == "file" {
		dirs = append(dirs, filepath.Dir(c.Logging.FilePath))
	}

	for _, dir := range dirs {
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

func ms(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}

// VoiceCutoff returns the voice auto-stop delay.
func (s SessionConfig) VoiceCutoff() time.Duration { return ms(s.VoiceCutoffMs) }

// TapWindow returns the tap capture window.
func (s SessionConfig) TapWindow() time.Duration { return ms(s.TapWindowMs) }

func (s SessionConfig) EnrolledDelay() time.Duration { return ms(s.EnrolledDelayMs) }
func (s SessionConfig) SuccessDelay() time.Duration  { return ms(s.SuccessDelayMs) }
func (s SessionConfig) MismatchDelay() time.Duration { return ms(s.MismatchDelayMs) }
func (s SessionConfig) RetryDelay() time.Duration    { return ms(s.RetryDelayMs) }
func (s SessionConfig) NoticeDelay() time.Duration   { return ms(s.NoticeDelayMs) }

func modalityNames(mods []pattern.Modality) []string {
	names := make([]string, len(mods))
	for i, m := range mods {
		names[i] = string(m)
	}
	return names
}
