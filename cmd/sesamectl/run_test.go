package main

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zeini-23025/Sesame-ouvre-toi/internal/config"
	"github.com/Zeini-23025/Sesame-ouvre-toi/internal/pattern"
	"github.com/Zeini-23025/Sesame-ouvre-toi/internal/session"
)

func replay(t *testing.T, cfgPath, script string) string {
	t.Helper()
	out, _, err := runWithInput(t, cfgPath, script, "run", "--replay")
	require.NoError(t, err, out)
	return out
}

// =============================================================================
// Replayed sessions
// =============================================================================

const rhythmKeys = `key s; wait 120ms; key e; wait 180ms; key s; wait 150ms; key a; wait 210ms
key m; wait 130ms; key e; wait 170ms; key space; wait 140ms; key !
`

func TestRunRhythmEnrollAndLogin(t *testing.T) {
	cfg := setupTestEnv(t)

	out := replay(t, cfg, "register\nselect rhythm\n"+rhythmKeys+
		"wait 2s\nback\nlogin\nselect rhythm\n"+rhythmKeys)
	assert.Contains(t, out, "[register] choose:")
	assert.Contains(t, out, "Typing rhythm saved!")
	assert.Contains(t, out, "[login] choose: rhythm")
	assert.Contains(t, out, "SESAME OPEN!")

	out, _, err := runCmd(t, cfg, "inspect", "rhythm")
	require.NoError(t, err)
	assert.Contains(t, out, "sesame␣!")
}

func TestRunEmojiWithFixedSeed(t *testing.T) {
	cfg := setupTestEnv(t)
	t.Setenv("SESAME_SESSION_SEED", "7")

	out := replay(t, cfg, "register\nselect emoji\ngrid\nemoji 0 1 2 3\nemoji 1\nsubmit\n")
	assert.Contains(t, out, " 0 ")
	assert.Contains(t, out, "35 ")
	assert.Contains(t, out, "Already selected this emoji")
	assert.Contains(t, out, "Emoji path saved!")

	inspected, _, err := runCmd(t, cfg, "inspect", "emoji")
	require.NoError(t, err)
	lines := strings.Split(inspected, "\n")
	require.Greater(t, len(lines), 1)
	glyphs := strings.Fields(lines[1])
	require.Len(t, glyphs, 4)

	// The same seed deals the same first grid, so glyphs and indices agree.
	out = replay(t, cfg, "login\nselect emoji\nemoji "+strings.Join(glyphs, " ")+"\nsubmit\n")
	assert.Contains(t, out, "SESAME OPEN!")

	out = replay(t, cfg, "login\nselect emoji\nemoji 3 2 1 0\nsubmit\n")
	assert.Contains(t, out, "Pattern incorrect. Ali Baba does not recognize you!")
	assert.NotContains(t, out, "SESAME OPEN!")
}

func TestRunTapWindow(t *testing.T) {
	cfg := setupTestEnv(t)
	taps := "tap; wait 300ms; tap; wait 450ms; tap; wait 300ms; tap\n"

	out := replay(t, cfg, "register\nselect tap\n"+taps+"state\nwait 5s\n"+
		"wait 2s\nback\nlogin\nselect tap\n"+taps+"wait 5s\n")
	assert.Contains(t, out, "taps: 4")
	assert.Contains(t, out, "Tap pattern saved!")
	assert.Contains(t, out, "SESAME OPEN!")
}

func TestRunVoiceAndGesture(t *testing.T) {
	cfg := setupTestEnv(t)
	voice := "record\nframe 0.5 0.2 0.2 0.2 0.5 0.2 0.2 0.2 0.5 0.2 0.2 0.2\nstop\n"

	var gesture strings.Builder
	gesture.WriteString("down 0 0\n")
	for i := 1; i <= 12; i++ {
		fmt.Fprintf(&gesture, "move %d %d; wait 15ms\n", i*5, i*3)
	}
	gesture.WriteString("up\n")

	out := replay(t, cfg, "register\nselect voice\n"+voice+
		"wait 2s\nselect gesture\n"+gesture.String()+
		"wait 2s\nback\nlogin\nselect voice\n"+voice)
	assert.Contains(t, out, "Speak your magic phrase...")
	assert.Contains(t, out, "Voice pattern saved!")
	assert.Contains(t, out, "Gesture saved!")
	assert.Contains(t, out, "[login] choose: voice, gesture")
	assert.Contains(t, out, "SESAME OPEN!")
}

func TestRunShapeEditing(t *testing.T) {
	cfg := setupTestEnv(t)

	out := replay(t, cfg, `register
select shape
place circle:1:1 square:1:1
place square:2:2 triangle:3:3
remove 3 3; place triangle:4:4
state
submit
`)
	assert.Contains(t, out, "Position already occupied")
	assert.Contains(t, out, "circle:1:1")
	assert.Contains(t, out, "triangle:4:4")
	assert.NotContains(t, out, "triangle:3:3")
	assert.Contains(t, out, "Your shape pattern has been saved!")
}

func TestRunCaptureDenied(t *testing.T) {
	cfg := setupTestEnv(t)
	out := replay(t, cfg, "register\nselect voice\ndeny\n")
	assert.Contains(t, out, "Microphone access denied")
}

// =============================================================================
// Event errors
// =============================================================================

func TestRunReplayStopsAtFailingEvent(t *testing.T) {
	cfg := setupTestEnv(t)

	_, _, err := runWithInput(t, cfg, "# comment\nselect color\n", "run", "--replay")
	assert.ErrorIs(t, err, session.ErrInvalidTransition)
	assert.ErrorContains(t, err, "line 2")

	_, _, err = runWithInput(t, cfg, "register; flap\n", "run", "--replay")
	assert.ErrorContains(t, err, `unknown event "flap"`)

	_, _, err = runWithInput(t, cfg, "register\nselect emoji\nemoji 🦄\n", "run", "--replay")
	assert.ErrorContains(t, err, "not on the grid")
}

func TestRunLiveReportsErrorsAndContinues(t *testing.T) {
	cfg := setupTestEnv(t)

	out, _, err := runWithInput(t, cfg, "select color\nregister\nselect color\ncolor 1 2 3\nsubmit\nquit\nlogin\n", "run")
	require.NoError(t, err)
	assert.Contains(t, out, "error:")
	assert.Contains(t, out, "Your unique color has been saved!")
	assert.NotContains(t, out, "[login]")
}

func TestKeyName(t *testing.T) {
	assert.Equal(t, " ", keyName("space"))
	assert.Equal(t, "Enter", keyName("enter"))
	assert.Equal(t, "s", keyName("s"))
}

// =============================================================================
// Configuration reload
// =============================================================================

func openTestApp(t *testing.T, cfgPath string) *app {
	t.Helper()
	cmd := &cobra.Command{}
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	a, err := (&rootOptions{configPath: cfgPath}).open(cmd)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func TestApplyConfig(t *testing.T) {
	a := openTestApp(t, setupTestEnv(t))
	require.NoError(t, a.ctl.BeginRegistration())

	cfg := config.DefaultConfig()
	cfg.Modalities.Enabled = []string{"color", "tap"}
	a.applyConfig(cfg)
	assert.Equal(t, []pattern.Modality{pattern.ModalityColor, pattern.ModalityTap}, a.ctl.State().Offered)
}

func TestWatchConfigAppliesEdits(t *testing.T) {
	cfgPath := setupTestEnv(t)
	require.NoError(t, config.SaveConfig(config.DefaultConfig(), cfgPath))

	a := openTestApp(t, cfgPath)
	stop, err := a.watchConfig(cfgPath)
	require.NoError(t, err)
	defer stop()

	require.NoError(t, a.ctl.BeginRegistration())
	require.Equal(t, pattern.All, a.ctl.State().Offered)

	edited := config.DefaultConfig()
	edited.Modalities.Enabled = []string{"shape"}
	require.NoError(t, config.SaveConfig(edited, cfgPath))

	require.Eventually(t, func() bool {
		return slices.Equal(a.ctl.State().Offered, []pattern.Modality{pattern.ModalityShape})
	}, 5*time.Second, 20*time.Millisecond)
}
