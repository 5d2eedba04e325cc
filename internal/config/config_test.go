package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zeini-23025/Sesame-ouvre-toi/internal/logging"
	"github.com/Zeini-23025/Sesame-ouvre-toi/internal/pattern"
	"github.com/Zeini-23025/Sesame-ouvre-toi/internal/store"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("SESAME_DATA_DIR", dir)
	return dir
}

// =============================================================================
// Defaults
// =============================================================================

func TestDefaultConfigIsValid(t *testing.T) {
	dir := isolate(t)
	cfg := DefaultConfig()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, Version, cfg.Version)
	assert.Equal(t, store.BackendSQLite, cfg.Storage.Backend)
	assert.Equal(t, filepath.Join(dir, "patterns.db"), cfg.Storage.Path)
	assert.Equal(t, 4*time.Second, cfg.Session.VoiceCutoff())
	assert.Equal(t, 5*time.Second, cfg.Session.TapWindow())
	assert.Equal(t, 3500*time.Millisecond, cfg.Session.SuccessDelay())
	assert.Equal(t, pattern.DefaultTolerances(), cfg.Tolerances)
	assert.Equal(t, pattern.All, cfg.EnabledModalities())
}

func TestCloneIsDeep(t *testing.T) {
	isolate(t)
	cfg := DefaultConfig()
	clone := cfg.Clone()
	clone.Modalities.Enabled[0] = "changed"
	assert.Equal(t, "voice", cfg.Modalities.Enabled[0])
}

func TestEnabledModalitiesKeepsPresentationOrder(t *testing.T) {
	isolate(t)
	cfg := DefaultConfig()
	cfg.Modalities.Enabled = []string{"shape", "voice"}
	assert.Equal(t, []pattern.Modality{pattern.ModalityVoice, pattern.ModalityShape}, cfg.EnabledModalities())
}

func TestLoggerConfig(t *testing.T) {
	isolate(t)
	cfg := DefaultConfig()
	cfg.Logging.Level = "debug"
	cfg.Logging.Format = "json"
	cfg.Logging.Output = "file"
	cfg.Logging.FilePath = "/tmp/sesame.log"

	lc := cfg.LoggerConfig()
	assert.Equal(t, logging.LevelDebug, lc.Level)
	assert.Equal(t, logging.FormatJSON, lc.Format)
	assert.Equal(t, "file", lc.Output)
	assert.Equal(t, "/tmp/sesame.log", lc.FilePath)
	assert.Equal(t, int64(10), lc.MaxSize)
	assert.Equal(t, 3, lc.MaxBackups)
	assert.Equal(t, "sesame", lc.Component)
}

// =============================================================================
// Validation
// =============================================================================

func TestValidateRejects(t *testing.T) {
	isolate(t)

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"version", func(c *Config) { c.Version = 99 }, "version"},
		{"backend", func(c *Config) { c.Storage.Backend = "etcd" }, "storage.backend"},
		{"sqlite path", func(c *Config) { c.Storage.Path = "" }, "storage.path"},
		{"file path", func(c *Config) { c.Storage.Backend = store.BackendFile; c.Storage.Path = "" }, "storage.path"},
		{"voice cutoff", func(c *Config) { c.Session.VoiceCutoffMs = 0 }, "session.voice_cutoff_ms"},
		{"tap match rate", func(c *Config) { c.Tolerances.TapMatchRate = 1.5 }, "tolerances.tap_match_rate"},
		{"votes", func(c *Config) { c.Tolerances.VoiceMinVotes = 5 }, "tolerances.voice_min_votes"},
		{"shape cells", func(c *Config) { c.Tolerances.ShapeCells = 8 }, "tolerances.shape_cells"},
		{"modality", func(c *Config) { c.Modalities.Enabled = []string{"retina"} }, "modalities.enabled"},
		{"no modalities", func(c *Config) { c.Modalities.Enabled = nil }, "modalities.enabled"},
		{"log level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"log file", func(c *Config) { c.Logging.Output = "file"; c.Logging.FilePath = "" }, "logging.file_path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			var verrs ValidationErrors
			require.ErrorAs(t, err, &verrs)
			assert.Contains(t, verrs.Fields(), tt.field)
		})
	}
}

func TestBadgerInMemoryNeedsNoPath(t *testing.T) {
	isolate(t)
	cfg := DefaultConfig()
	cfg.Storage.Backend = store.BackendBadger
	cfg.Storage.Path = ""
	cfg.Storage.InMemory = true
	assert.NoError(t, cfg.Validate())
}

// =============================================================================
// Loading
// =============================================================================

func TestLoadFormats(t *testing.T) {
	dir := isolate(t)

	files := map[string]string{
		"config.toml": `
version = 1
[storage]
backend = "badger"
path = "` + filepath.ToSlash(filepath.Join(dir, "bdb")) + `"
[tolerances]
color_mean_delta = 20.0
[modalities]
enabled = ["color", "shape"]
`,
		"config.json": `{"version":1,"storage":{"backend":"badger","path":"` + filepath.ToSlash(filepath.Join(dir, "bdb")) + `"},"tolerances":{"color_mean_delta":20},"modalities":{"enabled":["color","shape"]}}`,
		"config.yaml": `
version: 1
storage:
  backend: badger
  path: ` + filepath.ToSlash(filepath.Join(dir, "bdb")) + `
tolerances:
  color_mean_delta: 20
modalities:
  enabled: [color, shape]
`,
	}

	for name, body := range files {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, os.WriteFile(path, []byte(body), 0600))

			cfg, err := NewLoader(path).Load()
			require.NoError(t, err)
			assert.Equal(t, store.BackendBadger, cfg.Storage.Backend)
			assert.Equal(t, 20.0, cfg.Tolerances.ColorMeanDelta)
			// Unset tolerances keep their defaults.
			assert.Equal(t, 0.3, cfg.Tolerances.VoiceDuration)
			assert.Equal(t, []pattern.Modality{pattern.ModalityColor, pattern.ModalityShape}, cfg.EnabledModalities())
		})
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	dir := isolate(t)
	cfg, err := NewLoader(filepath.Join(dir, "absent.toml")).Load()
	require.NoError(t, err)
	assert.Equal(t, store.BackendSQLite, cfg.Storage.Backend)
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[logging]\nlevel = \"loud\"\n"), 0600))

	_, err := NewLoader(path).Load()
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	dir := isolate(t)
	t.Setenv("SESAME_STORAGE_BACKEND", "memory")
	t.Setenv("SESAME_LOG_LEVEL", "debug")
	t.Setenv("SESAME_SESSION_VOICE_CUTOFF_MS", "3000")
	t.Setenv("SESAME_MODALITIES_ENABLED", "emoji,color")

	cfg, err := NewLoader(filepath.Join(dir, "absent.toml")).Load()
	require.NoError(t, err)
	assert.Equal(t, store.BackendMemory, cfg.Storage.Backend)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 3*time.Second, cfg.Session.VoiceCutoff())
	assert.Equal(t, []string{"emoji", "color"}, cfg.Modalities.Enabled)
}

func TestApplyEnvLeavesUnsetFields(t *testing.T) {
	isolate(t)
	cfg := DefaultConfig()
	require.NoError(t, cfg.applyEnv(map[string]string{"SESAME_STORAGE_SEAL": "true"}))
	assert.True(t, cfg.Storage.Seal)
	assert.Equal(t, "info", cfg.Logging.Level)

	err := cfg.applyEnv(map[string]string{"SESAME_SESSION_SEED": "not-a-number"})
	assert.Error(t, err)
}

// =============================================================================
// Saving
// =============================================================================

func TestSaveConfigRoundTrip(t *testing.T) {
	dir := isolate(t)

	for _, ext := range []string{".toml", ".json", ".yaml"} {
		t.Run(ext, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Storage.Backend = store.BackendMemory
			cfg.Session.Seed = 42
			cfg.Tolerances.ShapeCells = 2

			path := filepath.Join(dir, "saved"+ext)
			require.NoError(t, SaveConfig(cfg, path))

			info, err := os.Stat(path)
			require.NoError(t, err)
			assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

			loaded, err := NewLoader(path).Load()
			require.NoError(t, err)
			assert.Equal(t, cfg, loaded)
		})
	}
}

func TestResolvePath(t *testing.T) {
	isolate(t)
	assert.Equal(t, "custom.yaml", ResolvePath("custom.yaml"))

	p := ResolvePath("")
	assert.NotEmpty(t, p)
	assert.True(t, strings.HasPrefix(filepath.Base(p), "config."), p)
}

// =============================================================================
// Watching
// =============================================================================

func TestLoaderWatchReloads(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.toml")
	cfg := DefaultConfig()
	require.NoError(t, SaveConfig(cfg, path))

	loader := NewLoader(path)
	_, err := loader.Load()
	require.NoError(t, err)

	changed := make(chan *Config, 4)
	loader.OnChange(func(c *Config) { changed <- c })
	require.NoError(t, loader.Watch())
	defer loader.Close()

	cfg.Tolerances.ColorMeanDelta = 30
	require.NoError(t, SaveConfig(cfg, path))

	select {
	case got := <-changed:
		assert.Equal(t, 30.0, got.Tolerances.ColorMeanDelta)
		assert.Equal(t, 30.0, loader.Config().Tolerances.ColorMeanDelta)
	case <-time.After(5 * time.Second):
		t.Fatal("config change not observed")
	}
}

func TestLoaderWatchKeepsConfigOnInvalidEdit(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, SaveConfig(DefaultConfig(), path))

	loader := NewLoader(path)
	_, err := loader.Load()
	require.NoError(t, err)
	require.NoError(t, loader.Watch())
	defer loader.Close()

	require.NoError(t, os.WriteFile(path, []byte("[logging]\nlevel = \"loud\"\n"), 0600))

	select {
	case err := <-loader.Errors():
		assert.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("reload error not reported")
	}
	assert.Equal(t, "info", loader.Config().Logging.Level)
}
