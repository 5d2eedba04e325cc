package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/Zeini-23025/Sesame-ouvre-toi/internal/config"
	"github.com/Zeini-23025/Sesame-ouvre-toi/internal/pattern"
	"github.com/Zeini-23025/Sesame-ouvre-toi/internal/session"
)

func newRunCmd(opts *rootOptions) *cobra.Command {
	var (
		script string
		replay bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Drive a session from an event stream",
		Long: `Read input events, one per line or separated by ';', and feed them to
a session controller. Every state change is printed as it happens.

Session:
  register | login | back | reset
  select <modality>           voice, gesture, rhythm, tap, color, emoji, shape
  deny [reason]               report a refused capture port
  wait <duration>             for example 150ms or 2s
  state                       print the current state
  quit

Voice:    record | frame <volume>... | stop
Gesture:  down <x> <y> | move <x> <y> | up
Rhythm:   key <name>          'space' is the space bar
Tap:      tap
Color:    color <r> <g> <b> | randomize | submit
Emoji:    grid | emoji <index|glyph>... | undo | shuffle | clear | submit
Shape:    place <type:x:y>... | remove <x> <y> | clear | submit

Events are timestamped when read. With --replay the controller runs on a
simulated clock that only 'wait' advances, so a recorded script replays
identically, and the first failing event stops the run. Without it the
configuration file is watched and edits to tolerances and enabled
modalities apply to the running session.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if script != "" {
				f, err := os.Open(script)
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			var fake *session.FakeClock
			if replay {
				fake = session.NewFakeClock(time.Now())
				opts.clock = fake
			}

			return opts.withApp(cmd, func(a *app) error {
				if !replay {
					stop, err := a.watchConfig(opts.configPath)
					if err != nil {
						fmt.Fprintln(a.errOut, a.styles.warn.Render("Not watching configuration: "+err.Error()))
					} else {
						defer stop()
					}
				}
				return newDriver(a, fake).run(in, replay)
			})
		},
	}

	cmd.Flags().StringVar(&script, "script", "", "read events from a file instead of stdin")
	cmd.Flags().BoolVar(&replay, "replay", false, "run on a simulated clock and stop at the first failing event")
	return cmd
}

// watchConfig applies edits of the configuration file to the running
// controller. The returned function stops watching.
func (a *app) watchConfig(path string) (func(), error) {
	l := config.NewLoader(config.ResolvePath(path))
	if _, err := l.Load(); err != nil {
		return nil, err
	}
	l.OnChange(a.applyConfig)
	if err := l.Watch(); err != nil {
		l.Close()
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		for {
			select {
			case err := <-l.Errors():
				a.log.Warn("config reload failed", "path", l.Path(), "error", err)
			case <-done:
				return
			}
		}
	}()

	return func() {
		close(done)
		l.Close()
	}, nil
}

// applyConfig pushes the settings that may change mid-session.
func (a *app) applyConfig(cfg *config.Config) {
	a.ctl.SetTolerances(cfg.Tolerances)
	a.ctl.SetModalities(cfg.EnabledModalities())
	a.log.Info("configuration reloaded")
}

// driver turns text events into controller calls and prints each change.
type driver struct {
	a     *app
	clock session.Clock
	fake  *session.FakeClock

	mu   sync.Mutex
	last session.State
}

func newDriver(a *app, fake *session.FakeClock) *driver {
	d := &driver{a: a, clock: session.SystemClock(), fake: fake}
	if fake != nil {
		d.clock = fake
	}
	d.last = a.ctl.State()
	return d
}

func (d *driver) run(in io.Reader, strict bool) error {
	unsubscribe := d.a.ctl.Subscribe(d.show)
	defer unsubscribe()

	sc := bufio.NewScanner(in)
	for n := 1; sc.Scan(); n++ {
		if err := d.a.ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(sc.Text())
		if strings.HasPrefix(line, "#") {
			continue
		}
		for _, ev := range strings.Split(line, ";") {
			fields := strings.Fields(ev)
			if len(fields) == 0 {
				continue
			}
			if fields[0] == "quit" {
				return nil
			}
			if err := d.exec(fields); err != nil {
				if strict {
					return fmt.Errorf("line %d: %s: %w", n, strings.Join(fields, " "), err)
				}
				d.println(d.a.styles.fail.Render("error: " + err.Error()))
			}
		}
	}
	return sc.Err()
}

func (d *driver) exec(f []string) error {
	ctl := d.a.ctl
	ctx := d.a.ctx
	op, args := f[0], f[1:]

	switch op {
	case "register":
		return ctl.BeginRegistration()
	case "login":
		return ctl.BeginLogin()
	case "select":
		if err := need(args, 1); err != nil {
			return err
		}
		m, err := pattern.ParseModality(args[0])
		if err != nil {
			return err
		}
		return ctl.Select(m)
	case "back":
		return ctl.Back()
	case "reset":
		ctl.Reset(ctx)
		return nil
	case "deny":
		return ctl.ReportCaptureDenied(strings.Join(args, " "))
	case "wait":
		if err := need(args, 1); err != nil {
			return err
		}
		dur, err := time.ParseDuration(args[0])
		if err != nil {
			return err
		}
		return d.wait(dur)
	case "state":
		d.println(d.describeState())
		return nil

	case "record":
		return ctl.StartVoice()
	case "frame":
		if len(args) == 0 {
			return errors.New("want at least one volume")
		}
		for _, arg := range args {
			v, err := strconv.ParseFloat(arg, 64)
			if err != nil {
				return fmt.Errorf("volume %q: %w", arg, err)
			}
			if err := ctl.AudioFrame(pattern.AudioFrame{At: d.clock.Now(), Volume: v}); err != nil {
				return err
			}
		}
		return nil
	case "stop":
		return ctl.StopVoice(ctx)

	case "down", "move":
		x, y, err := point(args)
		if err != nil {
			return err
		}
		if op == "down" {
			return ctl.PointerDown(x, y, d.clock.Now())
		}
		return ctl.PointerMove(x, y, d.clock.Now())
	case "up":
		return ctl.PointerUp(ctx)

	case "key":
		if err := need(args, 1); err != nil {
			return err
		}
		return ctl.KeyDown(ctx, keyName(args[0]), d.clock.Now())

	case "tap":
		return ctl.Tap(d.clock.Now())

	case "color":
		if err := need(args, 3); err != nil {
			return err
		}
		rgb, err := parseRGB(args)
		if err != nil {
			return err
		}
		return ctl.SetColor(rgb[0], rgb[1], rgb[2])
	case "randomize":
		return ctl.RandomizeColor()

	case "grid":
		return d.printGrid()
	case "emoji":
		if len(args) == 0 {
			return errors.New("want at least one emoji")
		}
		for _, arg := range args {
			if err := d.selectEmoji(arg); err != nil {
				return err
			}
		}
		return nil
	case "undo":
		return ctl.RemoveLastEmoji()
	case "shuffle":
		return ctl.ShuffleEmoji()

	case "place":
		if len(args) == 0 {
			return errors.New("want at least one shape")
		}
		for _, arg := range args {
			s, err := parseShape(arg)
			if err != nil {
				return err
			}
			if err := ctl.PlaceShape(s); err != nil {
				return err
			}
		}
		return nil
	case "remove":
		if err := need(args, 2); err != nil {
			return err
		}
		x, errX := strconv.Atoi(args[0])
		y, errY := strconv.Atoi(args[1])
		if errX != nil || errY != nil {
			return fmt.Errorf("cell %s %s: coordinates must be integers", args[0], args[1])
		}
		return ctl.RemoveShape(x, y)

	case "clear":
		switch ctl.State().Modality {
		case pattern.ModalityEmoji:
			return ctl.ClearEmoji()
		case pattern.ModalityShape:
			return ctl.ClearShapes()
		}
		return fmt.Errorf("%w: nothing to clear", session.ErrInvalidTransition)
	case "submit":
		switch ctl.State().Modality {
		case pattern.ModalityColor:
			return ctl.SubmitColor(ctx)
		case pattern.ModalityEmoji:
			return ctl.SubmitEmoji(ctx)
		case pattern.ModalityShape:
			return ctl.SubmitShapes(ctx)
		case pattern.ModalityVoice:
			return ctl.StopVoice(ctx)
		case pattern.ModalityGesture:
			return ctl.PointerUp(ctx)
		}
		return fmt.Errorf("%w: nothing to submit", session.ErrInvalidTransition)
	}
	return fmt.Errorf("unknown event %q", op)
}

func (d *driver) wait(dur time.Duration) error {
	if d.fake != nil {
		d.fake.Advance(dur)
		return nil
	}
	select {
	case <-time.After(dur):
		return nil
	case <-d.a.ctx.Done():
		return d.a.ctx.Err()
	}
}

// selectEmoji picks by grid index or by glyph.
func (d *driver) selectEmoji(arg string) error {
	if i, err := strconv.Atoi(arg); err == nil {
		return d.a.ctl.SelectEmoji(i)
	}
	i := slices.Index(d.a.ctl.EmojiGrid(), arg)
	if i < 0 {
		return fmt.Errorf("%s is not on the grid (shuffle deals a new one)", arg)
	}
	return d.a.ctl.SelectEmoji(i)
}

func (d *driver) printGrid() error {
	grid := d.a.ctl.EmojiGrid()
	if grid == nil {
		return fmt.Errorf("%w: no emoji capture", session.ErrInvalidTransition)
	}
	const perRow = 6
	var rows []string
	for start := 0; start < len(grid); start += perRow {
		var cells []string
		for i := start; i < min(start+perRow, len(grid)); i++ {
			cells = append(cells, fmt.Sprintf("%2d %s", i, grid[i]))
		}
		rows = append(rows, strings.Join(cells, "  "))
	}
	d.println(strings.Join(rows, "\n"))
	return nil
}

// show prints what changed since the previous snapshot.
func (d *driver) show(s session.State) {
	d.mu.Lock()
	defer d.mu.Unlock()
	prev := d.last
	d.last = s

	st := d.a.styles
	if s.Phase != prev.Phase || s.Mode != prev.Mode || s.Modality != prev.Modality {
		fmt.Fprintln(d.a.out, st.dim.Render(heading(s)))
	}
	if (s.Status.Kind != prev.Status.Kind || s.Status.Text != prev.Status.Text) && s.Status.Text != "" {
		fmt.Fprintln(d.a.out, st.status(s.Status))
	}
	if s.Notice.Text != prev.Notice.Text && s.Notice.Text != "" {
		fmt.Fprintln(d.a.out, st.warn.Render(s.Notice.Text))
	}
}

func (d *driver) println(s string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprintln(d.a.out, s)
}

func (d *driver) describeState() string {
	ctl := d.a.ctl
	s := ctl.State()
	parts := []string{heading(s)}
	if s.Status.Text != "" {
		parts = append(parts, "status: "+s.Status.Text)
	}
	switch s.Modality {
	case pattern.ModalityVoice:
		parts = append(parts, fmt.Sprintf("recording: %t", s.Recording))
	case pattern.ModalityRhythm:
		parts = append(parts, "typed: "+pattern.DisplaySequence(ctl.TypedKeys()))
	case pattern.ModalityTap:
		parts = append(parts, fmt.Sprintf("taps: %d", ctl.TapCount()))
	case pattern.ModalityColor:
		if c, ok := ctl.Color(); ok {
			parts = append(parts, "color: "+c.Hex())
		}
	case pattern.ModalityEmoji:
		parts = append(parts, "path: "+strings.Join(ctl.EmojiPath(), " "))
	case pattern.ModalityShape:
		var shapes []string
		for _, sh := range ctl.Shapes() {
			shapes = append(shapes, sh.String())
		}
		parts = append(parts, "shapes: "+strings.Join(shapes, " "))
	}
	return strings.Join(parts, "\n  ")
}

func heading(s session.State) string {
	switch s.Phase {
	case session.PhaseSelecting:
		names := make([]string, len(s.Offered))
		for i, m := range s.Offered {
			names[i] = string(m)
		}
		if len(names) == 0 {
			names = []string{"nothing"}
		}
		return fmt.Sprintf("[%s] choose: %s", s.Mode, strings.Join(names, ", "))
	case session.PhaseCapturing, session.PhaseSucceeded, session.PhaseFailed:
		return fmt.Sprintf("[%s %s] %s", s.Mode, s.Modality, s.Phase)
	}
	return "[" + string(s.Phase) + "]"
}

func need(args []string, n int) error {
	if len(args) != n {
		return fmt.Errorf("want %d argument(s), got %d", n, len(args))
	}
	return nil
}

func point(args []string) (x, y float64, err error) {
	if err := need(args, 2); err != nil {
		return 0, 0, err
	}
	x, errX := strconv.ParseFloat(args[0], 64)
	y, errY := strconv.ParseFloat(args[1], 64)
	if errX != nil || errY != nil {
		return 0, 0, fmt.Errorf("point %s %s: coordinates must be numbers", args[0], args[1])
	}
	return x, y, nil
}

// keyName maps typed names to key identifiers.
func keyName(name string) string {
	switch strings.ToLower(name) {
	case "space":
		return " "
	case "tab":
		return "Tab"
	case "enter", "return":
		return "Enter"
	}
	return name
}
