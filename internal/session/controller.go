// Package session implements the unlock session state machine.
//
// A Controller walks the user from the welcome screen through modality
// selection and capture to an outcome:
//
//	Idle ──BeginRegistration──▶ Selecting(register) ──Select──▶ Capturing
//	Idle ──BeginLogin─────────▶ Selecting(login)    ──Select──▶ Capturing
//	Capturing ──enrolled──▶ Capturing ──delay──▶ Selecting(register)
//	Capturing ──match─────▶ Succeeded ──delay──▶ Idle
//	Capturing ──no match──▶ Failed    ──delay──▶ Capturing
//
// Inputs are pushed by the host. Every delayed transition is tied to the
// state that scheduled it and is dropped once that state is left. The host
// observes snapshots through State and Subscribe; outcomes never surface as
// errors. Errors are returned only for calls that make no sense in the
// current state.
package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Zeini-23025/Sesame-ouvre-toi/internal/capture"
	"github.com/Zeini-23025/Sesame-ouvre-toi/internal/config"
	"github.com/Zeini-23025/Sesame-ouvre-toi/internal/logging"
	"github.com/Zeini-23025/Sesame-ouvre-toi/internal/metrics"
	"github.com/Zeini-23025/Sesame-ouvre-toi/internal/pattern"
	"github.com/Zeini-23025/Sesame-ouvre-toi/internal/store"
)

// Timings holds the controller's delays.
type Timings struct {
	VoiceCutoff time.Duration
	TapWindow   time.Duration
	Enrolled    time.Duration
	Success     time.Duration
	Mismatch    time.Duration
	Retry       time.Duration
	Notice      time.Duration
}

// DefaultTimings returns the stock delays.
func DefaultTimings() Timings {
	return Timings{
		VoiceCutoff: 4 * time.Second,
		TapWindow:   pattern.TapWindow,
		Enrolled:    2 * time.Second,
		Success:     3500 * time.Millisecond,
		Mismatch:    2500 * time.Millisecond,
		Retry:       2 * time.Second,
		Notice:      2 * time.Second,
	}
}

// Options configures a Controller. Store is required; everything else has a
// default.
type Options struct {
	Store      store.Store
	Clock      Clock
	Rand       *rand.Rand
	Logger     *logging.Logger
	Metrics    *metrics.Sesame
	Timings    Timings
	Tolerances pattern.Tolerances

	// Modalities lists the enabled modalities. Empty means all.
	Modalities []pattern.Modality

	// StoreTimeout bounds store calls made from timer callbacks.
	StoreTimeout time.Duration
}

// OptionsFromConfig builds Options from a loaded configuration. The caller
// supplies the store.
func OptionsFromConfig(cfg *config.Config, st store.Store, logger *logging.Logger) Options {
	s := cfg.Session
	opts := Options{
		Store:  st,
		Logger: logger,
		Timings: Timings{
			VoiceCutoff: s.VoiceCutoff(),
			TapWindow:   s.TapWindow(),
			Enrolled:    s.EnrolledDelay(),
			Success:     s.SuccessDelay(),
			Mismatch:    s.MismatchDelay(),
			Retry:       s.RetryDelay(),
			Notice:      s.NoticeDelay(),
		},
		Tolerances: cfg.Tolerances,
		Modalities: cfg.EnabledModalities(),
	}
	if s.Seed != 0 {
		opts.Rand = rand.New(rand.NewPCG(s.Seed, s.Seed))
	}
	return opts
}

// Controller is the session state machine. It is safe for concurrent use;
// host calls and timer callbacks are serialized on one mutex.
type Controller struct {
	mu sync.Mutex

	store        store.Store
	clock        Clock
	rng          *rand.Rand
	log          *logging.Logger
	metrics      *metrics.Sesame
	timings      Timings
	tol          pattern.Tolerances
	enabled      []pattern.Modality
	storeTimeout time.Duration

	templates map[pattern.Modality]pattern.Fingerprint

	phase     Phase
	mode      Mode
	modality  pattern.Modality
	status    Status
	notice    Status
	sessionID string
	buffer    capture.Buffer
	capLog    *logging.Logger

	// gen changes on every transition; timers scheduled under an older
	// generation do nothing when they fire.
	gen    uint64
	timers []Timer

	noticeToken uint64
	noticeTimer Timer

	changed   bool
	listeners map[int]func(State)
	nextID    int
}

// New creates a Controller in the Idle phase with no templates loaded.
func New(opts Options) (*Controller, error) {
	if opts.Store == nil {
		return nil, errors.New("session: store is required")
	}

	c := &Controller{
		store:        opts.Store,
		clock:        opts.Clock,
		rng:          opts.Rand,
		log:          opts.Logger,
		metrics:      opts.Metrics,
		timings:      opts.Timings,
		tol:          opts.Tolerances,
		enabled:      opts.Modalities,
		storeTimeout: opts.StoreTimeout,
		templates:    make(map[pattern.Modality]pattern.Fingerprint),
		phase:        PhaseIdle,
		mode:         ModeWelcome,
		listeners:    make(map[int]func(State)),
	}
	if c.clock == nil {
		c.clock = SystemClock()
	}
	if c.rng == nil {
		c.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if c.log == nil {
		c.log = logging.Discard()
	}
	c.log = c.log.WithComponent("session")
	if c.metrics == nil {
		c.metrics = metrics.NewSesame(nil)
	}
	if c.timings == (Timings{}) {
		c.timings = DefaultTimings()
	}
	if c.tol == (pattern.Tolerances{}) {
		c.tol = pattern.DefaultTolerances()
	}
	if len(c.enabled) == 0 {
		c.enabled = pattern.All
	}
	if c.storeTimeout <= 0 {
		c.storeTimeout = 5 * time.Second
	}
	return c, nil
}

// Load reads every modality's template from the store, replacing what is
// held in memory. Missing, unreadable and malformed records leave the
// modality unenrolled. Failures are logged; the
// returned error joins them, wrapped in ErrPersistence, and the controller
// stays usable.
func (c *Controller) Load(ctx context.Context) error {
	return c.update(func() error {
		var errs []error
		for _, m := range pattern.All {
			data, err := c.store.Get(ctx, m.StoreKey())
			if errors.Is(err, store.ErrNotFound) {
				delete(c.templates, m)
				continue
			}
			if err != nil {
				delete(c.templates, m)
				c.metrics.StoreErrorsTotal.Inc()
				c.log.Warn("load template failed", "modality", m, "error", err)
				errs = append(errs, fmt.Errorf("load %s: %w", m, err))
				continue
			}
			fp, err := pattern.Decode(m, data)
			if err != nil {
				delete(c.templates, m)
				c.log.Warn("discarding unreadable template", "modality", m, "error", err)
				errs = append(errs, fmt.Errorf("decode %s: %w", m, err))
				continue
			}
			c.templates[m] = fp
		}
		c.metrics.EnrolledModalities.Set(int64(len(c.templates)))
		c.changed = true
		if len(errs) > 0 {
			return fmt.Errorf("%w: %w", ErrPersistence, errors.Join(errs...))
		}
		return nil
	})
}

// State returns the current snapshot.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

// Subscribe registers fn to receive a snapshot after every change. fn runs
// outside the controller lock and may call back into the controller. The
// returned function unregisters it.
func (c *Controller) Subscribe(fn func(State)) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners, id)
	}
}

// Enrolled lists the modalities with a template, in presentation order.
func (c *Controller) Enrolled() []pattern.Modality {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enrolled()
}

// BeginRegistration moves Idle to Selecting(register). It is offered only
// while no modality is enrolled.
func (c *Controller) BeginRegistration() error {
	return c.update(func() error {
		if c.phase != PhaseIdle {
			return c.invalid("begin registration")
		}
		if len(c.templates) > 0 {
			return fmt.Errorf("%w: registration is closed once a pattern is enrolled", ErrNotOffered)
		}
		c.enterSelecting(ModeRegister)
		return nil
	})
}

// BeginLogin moves Idle to Selecting(login). It is offered only when at
// least one enabled modality is enrolled.
func (c *Controller) BeginLogin() error {
	return c.update(func() error {
		if c.phase != PhaseIdle {
			return c.invalid("begin login")
		}
		if len(c.templates) == 0 {
			return fmt.Errorf("%w: no pattern enrolled", ErrNotOffered)
		}
		if len(c.offeredFor(ModeLogin)) == 0 {
			return fmt.Errorf("%w: no enrolled pattern is enabled", ErrNotOffered)
		}
		c.enterSelecting(ModeLogin)
		return nil
	})
}

// SetTolerances replaces the verifier thresholds for later captures. The
// zero value restores the defaults.
func (c *Controller) SetTolerances(tol pattern.Tolerances) {
	_ = c.update(func() error {
		if tol == (pattern.Tolerances{}) {
			tol = pattern.DefaultTolerances()
		}
		c.tol = tol
		c.log.Info("tolerances updated")
		return nil
	})
}

// SetModalities replaces the enabled modalities. Empty enables all. A
// running capture is left to finish.
func (c *Controller) SetModalities(mods []pattern.Modality) {
	_ = c.update(func() error {
		if len(mods) == 0 {
			mods = pattern.All
		}
		c.enabled = slices.Clone(mods)
		c.changed = true
		c.log.Info("modalities updated", "enabled", c.enabled)
		return nil
	})
}

// Select starts a capture for m.
func (c *Controller) Select(m pattern.Modality) error {
	return c.update(func() error {
		if c.phase != PhaseSelecting {
			return c.invalid("select")
		}
		if !slices.Contains(c.offered(), m) {
			return fmt.Errorf("%w: %s", ErrNotOffered, m)
		}
		return c.enterCapturing(m)
	})
}

// Back leaves the current step: Selecting returns to Idle, Capturing and
// Failed return to Selecting in the same mode.
func (c *Controller) Back() error {
	return c.update(func() error {
		switch c.phase {
		case PhaseSelecting:
			c.enterIdle(Status{})
		case PhaseCapturing, PhaseFailed:
			c.enterSelecting(c.mode)
		default:
			return c.invalid("back")
		}
		return nil
	})
}

// Reset deletes every stored template and returns to Idle. Store failures
// are logged and otherwise ignored.
func (c *Controller) Reset(ctx context.Context) {
	_ = c.update(func() error {
		for _, m := range pattern.All {
			if err := c.store.Delete(ctx, m.StoreKey()); err != nil {
				c.metrics.StoreErrorsTotal.Inc()
				c.log.Warn("delete template failed", "modality", m, "error", err)
			}
		}
		clear(c.templates)
		c.metrics.ResetsTotal.Inc()
		c.metrics.EnrolledModalities.Set(0)
		c.log.Info("all templates deleted")
		c.enterIdle(Status{Kind: StatusInfo, Text: "All patterns deleted"})
		return nil
	})
}

// ReportCaptureDenied records that the host could not open the capture port
// for the current modality, for example a refused microphone. The capture
// stays open so the user can retry.
func (c *Controller) ReportCaptureDenied(reason string) error {
	return c.update(func() error {
		if c.phase != PhaseCapturing || c.buffer == nil {
			return c.invalid("report capture denied")
		}
		if v, ok := c.buffer.(*capture.VoiceRecorder); ok {
			v.Stop()
			c.cancelTimers()
		}
		if reason == "" {
			reason = "capture access denied"
			if c.modality == pattern.ModalityVoice {
				reason = "microphone access denied"
			}
		}
		c.capLog.Warn("capture denied", "reason", reason)
		c.setStatus(Status{Kind: StatusError, Text: capitalize(reason), Err: ErrCaptureDenied})
		return nil
	})
}

// update runs fn under the lock and notifies subscribers if it changed
// anything.
func (c *Controller) update(fn func() error) error {
	c.mu.Lock()
	c.changed = false
	err := fn()
	var (
		snap      State
		listeners []func(State)
	)
	if c.changed {
		snap = c.snapshot()
		for _, id := range sortedIDs(c.listeners) {
			listeners = append(listeners, c.listeners[id])
		}
	}
	c.mu.Unlock()

	for _, l := range listeners {
		l(snap)
	}
	return err
}

func sortedIDs(m map[int]func(State)) []int {
	ids := make([]int, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (c *Controller) snapshot() State {
	s := State{
		Phase:     c.phase,
		Mode:      c.mode,
		Modality:  c.modality,
		Status:    c.status,
		Notice:    c.notice,
		SessionID: c.sessionID,
		Enrolled:  c.enrolled(),
	}
	if c.phase == PhaseSelecting {
		s.Offered = c.offered()
	}
	if v, ok := c.buffer.(*capture.VoiceRecorder); ok {
		s.Recording = v.Recording()
	}
	return s
}

func (c *Controller) enrolled() []pattern.Modality {
	var out []pattern.Modality
	for _, m := range pattern.All {
		if _, ok := c.templates[m]; ok {
			out = append(out, m)
		}
	}
	return out
}

func (c *Controller) offered() []pattern.Modality {
	return c.offeredFor(c.mode)
}

// offeredFor lists the selectable modalities: enabled and enrolled ones for
// login, enabled ones without a template for registration.
func (c *Controller) offeredFor(mode Mode) []pattern.Modality {
	var out []pattern.Modality
	for _, m := range pattern.All {
		if !slices.Contains(c.enabled, m) {
			continue
		}
		_, has := c.templates[m]
		if (mode == ModeLogin && has) || (mode == ModeRegister && !has) {
			out = append(out, m)
		}
	}
	return out
}

func (c *Controller) invalid(op string) error {
	return fmt.Errorf("%w: %s while %s", ErrInvalidTransition, op, c.phase)
}

// transition cancels everything scheduled by the current state and clears
// the transient notice.
func (c *Controller) transition(phase Phase, mode Mode, m pattern.Modality) {
	c.cancelTimers()
	c.clearNotice()

	c.phase = phase
	c.mode = mode
	c.modality = m
	c.changed = true
}

// cancelTimers stops every pending timer and invalidates callbacks that are
// already running.
func (c *Controller) cancelTimers() {
	for _, t := range c.timers {
		t.Stop()
	}
	c.timers = c.timers[:0]
	c.gen++
}

func (c *Controller) enterIdle(status Status) {
	c.transition(PhaseIdle, ModeWelcome, "")
	c.dropCapture()
	c.status = status
}

func (c *Controller) enterSelecting(mode Mode) {
	c.transition(PhaseSelecting, mode, "")
	c.dropCapture()
	c.status = Status{}
}

func (c *Controller) enterCapturing(m pattern.Modality) error {
	buf, err := capture.New(m, capture.Params{
		Rand:      c.rng,
		Now:       c.clock.Now(),
		TapWindow: c.timings.TapWindow,
	})
	if err != nil {
		return fmt.Errorf("open capture: %w", err)
	}

	c.transition(PhaseCapturing, c.mode, m)
	c.buffer = buf
	c.sessionID = uuid.NewString()
	c.capLog = c.log.WithSessionID(c.sessionID)
	c.status = Status{Kind: StatusInfo, Text: prompt(m)}
	c.capLog.Info("capture started", "modality", m, "mode", c.mode)

	if m == pattern.ModalityTap {
		c.after(c.timings.TapWindow, c.completeAsync)
	}
	return nil
}

func (c *Controller) enterFailed(status Status, delay time.Duration) {
	m := c.modality
	c.transition(PhaseFailed, c.mode, m)
	c.buffer = nil
	c.status = status
	c.after(delay, func() {
		if err := c.enterCapturing(m); err != nil {
			c.log.Error("restart capture failed", "modality", m, "error", err)
			c.enterSelecting(c.mode)
		}
	})
}

func (c *Controller) dropCapture() {
	c.modality = ""
	c.buffer = nil
	c.sessionID = ""
	c.capLog = nil
}

// after schedules fn under the current generation.
func (c *Controller) after(d time.Duration, fn func()) {
	gen := c.gen
	c.timers = append(c.timers, c.clock.AfterFunc(d, func() {
		_ = c.update(func() error {
			if c.gen != gen {
				return nil
			}
			fn()
			return nil
		})
	}))
}

// completeAsync finishes a capture from a timer callback, where no caller
// context is available.
func (c *Controller) completeAsync() {
	ctx, cancel := context.WithTimeout(context.Background(), c.storeTimeout)
	defer cancel()
	c.complete(ctx)
}

func (c *Controller) setStatus(s Status) {
	c.status = s
	c.changed = true
}

// setNotice shows a transient message that clears after the notice delay
// unless replaced first.
func (c *Controller) setNotice(s Status) {
	c.clearNotice()
	c.notice = s
	c.changed = true

	token := c.noticeToken
	c.noticeTimer = c.clock.AfterFunc(c.timings.Notice, func() {
		_ = c.update(func() error {
			if c.noticeToken == token {
				c.notice = Status{}
				c.changed = true
			}
			return nil
		})
	})
}

func (c *Controller) clearNotice() {
	c.noticeToken++
	if c.noticeTimer != nil {
		c.noticeTimer.Stop()
		c.noticeTimer = nil
	}
	if c.notice != (Status{}) {
		c.notice = Status{}
		c.changed = true
	}
}

// complete extracts the current buffer and acts on the result.
func (c *Controller) complete(ctx context.Context) {
	if c.phase != PhaseCapturing || c.buffer == nil {
		return
	}
	m := c.modality

	start := time.Now()
	fp, err := c.buffer.Finish()
	c.metrics.ObserveExtraction(m, start)

	switch {
	case errors.Is(err, pattern.ErrInvalidInput):
		c.setNotice(Status{Kind: StatusError, Text: capitalize(pattern.Reason(err)), Err: err})
		return
	case err != nil:
		c.capLog.Info("capture insufficient", "modality", m, "reason", pattern.Reason(err))
		if c.mode == ModeLogin {
			c.metrics.Attempt(m, metrics.ResultInsufficient)
		}
		c.enterFailed(Status{Kind: StatusError, Text: capitalize(pattern.Reason(err)), Err: err}, c.timings.Retry)
		return
	}

	if c.mode == ModeRegister {
		c.enroll(ctx, m, fp)
		return
	}
	c.verify(m, fp)
}

func (c *Controller) enroll(ctx context.Context, m pattern.Modality, fp pattern.Fingerprint) {
	c.templates[m] = fp
	c.metrics.EnrollmentsTotal.Inc()
	c.metrics.EnrolledModalities.Set(int64(len(c.templates)))

	status := Status{Kind: StatusSuccess, Text: savedMessage(m)}
	if err := c.persist(ctx, m, fp); err != nil {
		c.metrics.StoreErrorsTotal.Inc()
		c.capLog.Error("persist template failed", "modality", m, "error", err)
		status = Status{Kind: StatusWarning, Text: "Error saving pattern", Err: err}
	} else {
		c.capLog.Info("template enrolled", "modality", m)
	}

	// Stay in Capturing with the confirmation, then offer the remaining
	// modalities.
	c.transition(PhaseCapturing, ModeRegister, m)
	c.buffer = nil
	c.status = status
	c.after(c.timings.Enrolled, func() {
		c.enterSelecting(ModeRegister)
	})
}

func (c *Controller) persist(ctx context.Context, m pattern.Modality, fp pattern.Fingerprint) error {
	data, err := pattern.Encode(fp)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	if err := c.store.Set(ctx, m.StoreKey(), data); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return nil
}

func (c *Controller) verify(m pattern.Modality, fp pattern.Fingerprint) {
	ok, err := pattern.Verify(fp, c.templates[m], c.tol)
	switch {
	case errors.Is(err, pattern.ErrNoTemplate):
		c.metrics.Attempt(m, metrics.ResultNoTemplate)
		c.capLog.Warn("no template for login", "modality", m)
		c.enterFailed(Status{
			Kind: StatusError,
			Text: fmt.Sprintf("No %s pattern registered", m),
			Err:  err,
		}, c.timings.Retry)
	case err != nil:
		c.capLog.Error("verify failed", "modality", m, "error", err)
		c.enterFailed(Status{Kind: StatusError, Text: "Verification error", Err: err}, c.timings.Retry)
	case ok:
		c.metrics.Attempt(m, metrics.ResultSuccess)
		c.capLog.Info("unlocked", "modality", m)
		c.transition(PhaseSucceeded, ModeLogin, m)
		c.buffer = nil
		c.status = Status{Kind: StatusSuccess, Text: "SESAME OPEN!"}
		c.after(c.timings.Success, func() {
			c.enterIdle(Status{})
		})
	default:
		c.metrics.Attempt(m, metrics.ResultMismatch)
		c.capLog.Info("pattern mismatch", "modality", m)
		c.enterFailed(Status{
			Kind: StatusError,
			Text: mismatchMessage(m),
			Err:  ErrVerificationFailed,
		}, c.timings.Mismatch)
	}
}

func prompt(m pattern.Modality) string {
	switch m {
	case pattern.ModalityVoice:
		return "Press record and speak your magic phrase"
	case pattern.ModalityGesture:
		return "Draw your secret gesture (hold the button)"
	case pattern.ModalityRhythm:
		return "Type your secret phrase (8 keys)"
	case pattern.ModalityTap:
		return "Create your tap rhythm (tap anywhere 4-8 times in 5 seconds)"
	case pattern.ModalityColor:
		return "Mix your secret color"
	case pattern.ModalityEmoji:
		return "Select 4 to 8 emojis in order"
	case pattern.ModalityShape:
		return "Place at least 3 shapes on the grid"
	}
	return ""
}

func savedMessage(m pattern.Modality) string {
	switch m {
	case pattern.ModalityVoice:
		return "Voice pattern saved!"
	case pattern.ModalityGesture:
		return "Gesture saved!"
	case pattern.ModalityRhythm:
		return "Typing rhythm saved!"
	case pattern.ModalityTap:
		return "Tap pattern saved!"
	case pattern.ModalityColor:
		return "Your unique color has been saved!"
	case pattern.ModalityEmoji:
		return "Emoji path saved!"
	case pattern.ModalityShape:
		return "Your shape pattern has been saved!"
	}
	return "Pattern saved!"
}

func mismatchMessage(m pattern.Modality) string {
	switch m {
	case pattern.ModalityColor:
		return "Color incorrect. Ali Baba does not recognize this shade!"
	case pattern.ModalityShape:
		return "Shape pattern incorrect. Ali Baba does not recognize this design!"
	}
	return "Pattern incorrect. Ali Baba does not recognize you!"
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
