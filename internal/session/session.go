// Package session ties a controller reader, the mapping wizard, a game and
// the actuator together. All of that state is owned by a single goroutine,
// Run; the exported methods hand work to it.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/soar/remopad/internal/actuator"
	"github.com/soar/remopad/internal/controller"
	"github.com/soar/remopad/internal/gamepad"
	"github.com/soar/remopad/internal/ruleset"
	"github.com/soar/remopad/internal/settings"
	"github.com/soar/remopad/internal/wakelock"
	"github.com/soar/remopad/internal/wizard"
)

const (
	// FrameInterval is how often the controller is sampled.
	FrameInterval = 16 * time.Millisecond
	// LookupRetryInterval is the default wait before reading the stored
	// mappings again after a failed read.
	LookupRetryInterval = 5 * time.Second
)

var (
	ErrNoController      = errors.New("no controller connected")
	ErrMappingInProgress = errors.New("controller mapping in progress")
	ErrGameRunning       = errors.New("game already running")
	ErrNoWizard          = errors.New("mapping wizard not running")
	ErrMappingUnknown    = errors.New("controller mapping could not be read")
	ErrClosed            = errors.New("session closed")
)

// Reader is a source of raw controller input.
type Reader interface {
	CurrentState() gamepad.RawState
	Changes() <-chan gamepad.RawState
	Events() <-chan gamepad.Event
}

// ConfigSource returns the game configuration to use for the next start.
type ConfigSource func(ctx context.Context) (ruleset.Config, error)

// StaticConfig returns a ConfigSource that always yields c.
func StaticConfig(c map[string]string) ConfigSource {
	return func(context.Context) (ruleset.Config, error) {
		return ruleset.Config(c).Merge(nil), nil
	}
}

// LayeredConfig returns a ConfigSource that reads a base configuration with
// fetch on every start and applies local on top of it.
func LayeredConfig(fetch func(ctx context.Context) (map[string]string, error), local map[string]string) ConfigSource {
	return func(ctx context.Context) (ruleset.Config, error) {
		base, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		return ruleset.Config(base).Merge(local), nil
	}
}

// Options are the collaborators of a Session.
type Options struct {
	Reader     Reader
	Settings   settings.Provider
	Actuator   actuator.Actuator
	WakeLock   wakelock.Lock
	Publisher  Publisher
	GameConfig ConfigSource
	// Clock defaults to time.Now.
	Clock func() time.Time
	// FrameInterval defaults to FrameInterval.
	FrameInterval time.Duration
	// LookupRetry defaults to LookupRetryInterval.
	LookupRetry time.Duration
	Log         *zap.Logger
}

// Session is one operator's controller and game.
type Session struct {
	id         uuid.UUID
	reader     Reader
	manager    *controller.Manager
	store      settings.Provider
	act        actuator.Actuator
	lock       *wakelock.Guard
	pub        Publisher
	gameConfig ConfigSource
	clock      func() time.Time
	frameEvery time.Duration
	retryEvery time.Duration
	log        *zap.Logger

	cmds chan func(ctx context.Context)
	done chan struct{}

	// owned by Run
	connected  bool
	platform   string
	device     string
	visible    bool
	retryAt    time.Time // zero unless the last mapping lookup failed
	wiz        *wizard.Wizard
	game       *ruleset.Game
	gameTicker *time.Ticker
}

// New creates a session. Run must be called to process input.
func New(opts Options) *Session {
	s := &Session{
		id:         uuid.New(),
		reader:     opts.Reader,
		store:      opts.Settings,
		act:        opts.Actuator,
		pub:        opts.Publisher,
		gameConfig: opts.GameConfig,
		clock:      opts.Clock,
		frameEvery: opts.FrameInterval,
		retryEvery: opts.LookupRetry,
		cmds:       make(chan func(ctx context.Context)),
		done:       make(chan struct{}),
		visible:    true,
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	if s.frameEvery <= 0 {
		s.frameEvery = FrameInterval
	}
	if s.retryEvery <= 0 {
		s.retryEvery = LookupRetryInterval
	}
	if s.pub == nil {
		s.pub = PublisherFunc(func(Event) {})
	}
	if s.gameConfig == nil {
		s.gameConfig = StaticConfig(nil)
	}
	lock := opts.WakeLock
	if lock == nil {
		lock = wakelock.Nop{}
	}

	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	s.log = log.Named("session").With(zap.String("session", s.id.String()))
	s.manager = controller.NewManager(opts.Reader, s.log)
	s.lock = wakelock.NewGuard(lock, s.log)
	return s
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id.String()
}

// Run processes controller input, game ticks and commands until ctx is
// cancelled. A running game is stopped on the way out.
func (s *Session) Run(ctx context.Context) error {
	defer close(s.done)

	frame := time.NewTicker(s.frameEvery)
	defer frame.Stop()

	s.log.Info("Session started")
	for {
		var tick <-chan time.Time
		if s.gameTicker != nil {
			tick = s.gameTicker.C
		}
		var completions <-chan error
		if s.game != nil {
			completions = s.game.Completions()
		}

		select {
		case <-ctx.Done():
			s.stopGame()
			s.log.Info("Session stopped")
			return nil
		case ev := <-s.reader.Events():
			s.handleEvent(ctx, ev)
		case st := <-s.reader.Changes():
			s.publish(Event{Type: EventInput, State: &st})
		case <-frame.C:
			s.frame(ctx)
		case <-tick:
			s.tick()
		case err := <-completions:
			s.game.Complete(err, s.clock())
		case fn := <-s.cmds:
			fn(ctx)
		}
	}
}

// do runs fn on the session goroutine and waits for its result.
func (s *Session) do(ctx context.Context, fn func(runCtx context.Context) error) error {
	errc := make(chan error, 1)
	select {
	case s.cmds <- func(runCtx context.Context) { errc <- fn(runCtx) }:
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// StartGame starts a game with the configuration from the ConfigSource.
func (s *Session) StartGame(ctx context.Context) error {
	return s.do(ctx, s.startGame)
}

// StopGame stops the running game, if any.
func (s *Session) StopGame(ctx context.Context) error {
	return s.do(ctx, func(context.Context) error {
		s.stopGame()
		return nil
	})
}

// SkipSlot marks the slot the wizard is asking for as absent.
func (s *Session) SkipSlot(ctx context.Context) error {
	return s.do(ctx, func(runCtx context.Context) error {
		if s.wiz == nil {
			return ErrNoWizard
		}
		s.wiz.Skip()
		s.publishWizard()
		s.finishWizard(runCtx)
		return nil
	})
}

// SetVisible records whether the operator can see the application. The
// wake lock is given up while hidden.
func (s *Session) SetVisible(ctx context.Context, visible bool) error {
	return s.do(ctx, func(context.Context) error {
		s.visible = visible
		if err := s.lock.SetVisible(visible); err != nil {
			s.log.Warn("Wake lock update failed", zap.Error(err))
		}
		return nil
	})
}

// Status returns a snapshot of the session.
func (s *Session) Status(ctx context.Context) (Status, error) {
	var st Status
	err := s.do(ctx, func(context.Context) error {
		st = s.status()
		return nil
	})
	return st, err
}

func (s *Session) status() Status {
	st := Status{
		ID:       s.ID(),
		Phase:    s.phase(),
		Platform: s.platform,
		Device:   s.device,
		Wizard:   s.wizardStatus(),
		WakeLock: s.lock.Held(),
		Visible:  s.visible,
	}
	if st.Phase == PhaseReady || st.Phase == PhasePlaying {
		st.Mapping = s.manager.Mapping().String()
	}
	if st.Phase == PhasePlaying {
		st.Game = &GameStatus{
			Ruleset:     s.game.Kind().String(),
			Desired:     s.manager.DesiredSlots(),
			RemainingMS: s.game.Remaining(s.clock()).Milliseconds(),
		}
	}
	return st
}

func (s *Session) phase() Phase {
	switch {
	case !s.connected:
		return PhaseDisconnected
	case !s.retryAt.IsZero():
		return PhaseLookupFailed
	case s.wiz != nil:
		return PhaseMapping
	case s.game != nil && s.game.Running():
		return PhasePlaying
	}
	return PhaseReady
}

func (s *Session) handleEvent(ctx context.Context, ev gamepad.Event) {
	switch ev.Kind {
	case gamepad.Connected:
		if s.connected {
			return
		}
		s.connected = true
		s.platform, s.device = ev.State.Platform, ev.State.Device
		s.log.Info("Controller connected",
			zap.String("platform", s.platform), zap.String("device", s.device))
		s.publish(Event{Type: EventConnected, State: &ev.State})
		s.resolveMapping(ctx)

	case gamepad.Disconnected:
		if !s.connected {
			return
		}
		s.stopGame()
		s.wiz = nil
		s.retryAt = time.Time{}
		s.manager.Reset()
		s.connected = false
		s.log.Info("Controller disconnected", zap.String("device", s.device))
		s.platform, s.device = "", ""
		s.publish(Event{Type: EventDisconnected})
	}
}

func (s *Session) resolveMapping(ctx context.Context) {
	table, err := s.store.Section(ctx, gamepad.SettingsSection)
	if err != nil {
		s.retryAt = s.clock().Add(s.retryEvery)
		s.log.Warn("Reading gamepad mappings failed", zap.Error(err))
		s.publishError(fmt.Errorf("%w: %w", ErrMappingUnknown, err))
		return
	}
	s.retryAt = time.Time{}

	err = s.manager.ResolveMapping(s.platform, s.device, table)
	var unmapped *controller.UnmappedDeviceError
	switch {
	case err == nil:
		s.publish(Event{Type: EventMapped, Mapping: s.manager.Mapping().String()})
	case errors.As(err, &unmapped):
		s.log.Info("No mapping for controller, starting wizard", zap.String("key", unmapped.Key))
		s.wiz = wizard.New(gamepad.Capture(s.reader.CurrentState()))
		s.publishWizard()
	default:
		s.log.Error("Resolving mapping failed", zap.Error(err))
		s.publishError(err)
	}
}

// frame samples the controller: the wizard sees every frame while mapping,
// otherwise the manager counts press edges.
func (s *Session) frame(ctx context.Context) {
	if !s.connected {
		return
	}
	if !s.retryAt.IsZero() {
		if !s.clock().Before(s.retryAt) {
			s.resolveMapping(ctx)
		}
		return
	}
	if s.wiz == nil {
		s.manager.Sample()
		return
	}

	before := s.wiz.State().Phase
	done, _ := s.wiz.Progress()
	s.wiz.Observe(s.clock(), gamepad.Capture(s.reader.CurrentState()))
	after, _ := s.wiz.Progress()
	if s.wiz.State().Phase != before || after != done {
		s.publishWizard()
	}
	s.finishWizard(ctx)
}

func (s *Session) finishWizard(ctx context.Context) {
	if s.wiz == nil || !s.wiz.Done() {
		return
	}
	if err := s.wiz.Save(ctx, s.store, s.platform, s.device); err != nil {
		s.log.Error("Saving gamepad mapping failed", zap.Error(err))
		s.publishError(err)
	}
	mapping := s.wiz.Mapping()
	s.wiz = nil
	s.manager.Load(mapping)
	s.log.Info("Controller mapped", zap.Stringer("mapping", mapping))
	s.publish(Event{Type: EventMapped, Mapping: mapping.String()})
}

func (s *Session) startGame(ctx context.Context) error {
	switch s.phase() {
	case PhaseDisconnected:
		return ErrNoController
	case PhaseMapping:
		return ErrMappingInProgress
	case PhaseLookupFailed:
		return ErrMappingUnknown
	case PhasePlaying:
		return ErrGameRunning
	}

	cfg, err := s.gameConfig(ctx)
	if err != nil {
		return fmt.Errorf("game config: %w", err)
	}
	g, err := ruleset.NewGame(cfg, s.manager, s.act, s.log, ruleset.WithReporter(s.onReport))
	if err != nil {
		return err
	}
	if err := g.Start(ctx, s.clock()); err != nil {
		return err
	}

	s.game = g
	s.gameTicker = time.NewTicker(g.Period())
	if err := s.lock.Want(); err != nil {
		s.log.Warn("Wake lock unavailable", zap.Error(err))
	}
	return nil
}

func (s *Session) stopGame() {
	if s.game != nil {
		s.game.Stop()
	}
	s.gameEnded()
}

func (s *Session) gameEnded() {
	if s.gameTicker != nil {
		s.gameTicker.Stop()
		s.gameTicker = nil
	}
	if err := s.lock.Unwant(); err != nil {
		s.log.Warn("Wake lock release failed", zap.Error(err))
	}
}

func (s *Session) tick() {
	if !s.game.Tick(s.clock()) {
		s.gameEnded()
	}
}

func (s *Session) onReport(r ruleset.Report) {
	ev := Event{Ruleset: r.Ruleset.String()}
	switch r.Kind {
	case ruleset.ReportStarted:
		ev.Type = EventGameStarted
		ev.Desired = r.Desired
	case ruleset.ReportStatus:
		ev.Type = EventCompliance
		ev.Status = r.Status.String()
		if r.ShowTimer {
			ms := r.Remaining.Milliseconds()
			ev.RemainingMS = &ms
		}
	case ruleset.ReportDesired:
		ev.Type = EventDesired
		ev.Desired = r.Desired
	case ruleset.ReportPunishing:
		ev.Type = EventPunishing
		ev.Command = r.Command.String()
	case ruleset.ReportPunished:
		ev.Type = EventPunished
		if r.Err != nil {
			ev.Error = r.Err.Error()
		}
	case ruleset.ReportStopped:
		ev.Type = EventGameStopped
	default:
		return
	}
	s.publish(ev)
}

func (s *Session) wizardStatus() *WizardStatus {
	if s.wiz == nil {
		return nil
	}
	done, total := s.wiz.Progress()
	ws := &WizardStatus{Phase: s.wiz.State().Phase.String(), Done: done, Total: total}
	if slot, ok := s.wiz.CurrentSlot(); ok {
		ws.Slot, ws.SlotName = slot, gamepad.SlotNames[slot]
	}
	return ws
}

func (s *Session) publishWizard() {
	s.publish(Event{Type: EventWizard, Wizard: s.wizardStatus()})
}

func (s *Session) publishError(err error) {
	s.publish(Event{Type: EventError, Error: err.Error()})
}

func (s *Session) publish(ev Event) {
	ev.Session = s.ID()
	ev.Timestamp = millis(s.clock())
	s.pub.Publish(ev)
}
