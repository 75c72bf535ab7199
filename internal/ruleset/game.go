// Package ruleset runs compliance games: a strategy picks which buttons must
// be held, the controller reports how well the operator follows, and a
// punisher fires the actuator when they do not.
package ruleset

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/soar/remopad/internal/actuator"
	"github.com/soar/remopad/internal/controller"
)

// Controller is the part of the controller manager a game drives.
type Controller interface {
	CheckCompliance() controller.Status
	Button(slot int) (*controller.Button, bool)
	IsCompatible(candidate *controller.Button) bool
	SetDesired(slots []int) error
	DesiredSlots() []int
	Activations(slot int) (int, bool)
}

// ReportKind tells what a Report carries.
type ReportKind int

const (
	ReportStarted ReportKind = iota
	ReportStatus
	ReportDesired
	ReportPunishing
	ReportPunished
	ReportStopped
)

func (k ReportKind) String() string {
	switch k {
	case ReportStarted:
		return "started"
	case ReportStatus:
		return "status"
	case ReportDesired:
		return "desired"
	case ReportPunishing:
		return "punishing"
	case ReportPunished:
		return "punished"
	case ReportStopped:
		return "stopped"
	}
	return fmt.Sprintf("report(%d)", int(k))
}

// Report is a notification about game progress.
type Report struct {
	Kind    ReportKind
	Ruleset Kind
	Status  controller.Status
	Desired []int
	// Remaining is set on status reports when the timer is shown.
	Remaining time.Duration
	ShowTimer bool
	Command   actuator.Command
	Err       error
}

// Option configures a Game.
type Option func(*Game)

// WithReporter sets the callback that receives progress reports. It is
// called synchronously from Start, Tick, Stop and Complete.
func WithReporter(fn func(Report)) Option {
	return func(g *Game) { g.report = fn }
}

// WithRand sets the random source used for picks and jitter.
func WithRand(r *rand.Rand) Option {
	return func(g *Game) { g.rand = r }
}

// Game is one configured ruleset bound to a controller and an actuator.
// It has no goroutine of its own: the owner calls Tick every Period and
// feeds punishment results from Completions back through Complete.
type Game struct {
	kind     Kind
	strategy Strategy
	cfg      Config
	ctrl     Controller
	act      actuator.Actuator
	log      *zap.Logger
	report   func(Report)
	rand     *rand.Rand

	ctx      context.Context
	settings Settings
	punisher *punisher
	running  bool
	end      time.Time
}

// NewGame builds a game for the ruleset named in cfg.
func NewGame(cfg Config, ctrl Controller, act actuator.Actuator, log *zap.Logger, opts ...Option) (*Game, error) {
	kind, strategy, err := Lookup(cfg[keyRuleset])
	if err != nil {
		return nil, err
	}
	g := &Game{
		kind:     kind,
		strategy: strategy,
		cfg:      cfg,
		ctrl:     ctrl,
		act:      act,
		log:      log.Named("game").With(zap.Stringer("ruleset", kind)),
		report:   func(Report) {},
		rand:     rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Kind returns the ruleset this game runs.
func (g *Game) Kind() Kind {
	return g.kind
}

// Validate returns every configuration problem; an empty result means the
// game can start.
func (g *Game) Validate() []string {
	return append(validateCommon(g.cfg), g.strategy.Validate(g.cfg)...)
}

// Start validates the configuration and begins the game at now. ctx bounds
// the actuator calls made while the game runs.
func (g *Game) Start(ctx context.Context, now time.Time) error {
	if problems := g.Validate(); len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}

	g.ctx = ctx
	g.settings = parseSettings(g.cfg)
	g.punisher = newPunisher(g.act, g.settings.Command, g.settings.Immune)
	// the start counts as the last punishment, but an ignored desired set
	// must not wait longer than the reaction window
	grace := g.settings.Immune
	if r := g.settings.Reaction; r > 0 && r < grace {
		grace = r
	}
	g.punisher.arm(now.Add(grace))
	g.end = now.Add(g.settings.Runtime)

	if err := g.strategy.Begin(g, now); err != nil {
		_ = g.ctrl.SetDesired(nil)
		return fmt.Errorf("start %s: %w", g.kind, err)
	}
	g.running = true

	g.log.Info("Game started",
		zap.Duration("runtime", g.settings.Runtime),
		zap.Stringer("command", g.settings.Command))
	g.report(Report{Kind: ReportStarted, Ruleset: g.kind, Desired: g.ctrl.DesiredSlots()})
	return nil
}

// Stop ends the game. A punishment already in flight still completes, but
// its result is dropped.
func (g *Game) Stop() {
	if !g.running {
		return
	}
	g.running = false
	_ = g.ctrl.SetDesired(nil)
	g.log.Info("Game stopped")
	g.report(Report{Kind: ReportStopped, Ruleset: g.kind})
}

// Running reports whether the game is in progress.
func (g *Game) Running() bool {
	return g.running
}

// Period is how often Tick should be called.
func (g *Game) Period() time.Duration {
	return g.strategy.Period(&g.settings)
}

// Remaining returns the time left until the runtime ends.
func (g *Game) Remaining(now time.Time) time.Duration {
	return max(0, g.end.Sub(now))
}

// Tick advances the game to now. It stops the game once the runtime has
// elapsed and reports whether the game is still running.
func (g *Game) Tick(now time.Time) bool {
	if !g.running {
		return false
	}
	if now.After(g.end) {
		g.log.Info("Runtime elapsed")
		g.Stop()
		return false
	}
	g.strategy.Tick(g, now)
	return g.running
}

// Completions delivers the result of each punishment started by the game.
func (g *Game) Completions() <-chan error {
	if g.punisher == nil {
		return nil
	}
	return g.punisher.done
}

// Complete records the result of a punishment received from Completions.
// The immunity window is measured from now.
func (g *Game) Complete(err error, now time.Time) {
	if g.punisher == nil {
		return
	}
	if !g.running {
		g.log.Debug("Punishment finished after the game stopped", zap.Error(err))
		return
	}
	g.punisher.complete(now)
	if err != nil {
		g.log.Warn("Punishment failed", zap.Error(err))
	} else {
		g.log.Debug("Punishment delivered")
	}
	g.report(Report{Kind: ReportPunished, Ruleset: g.kind, Err: err})
}

// punish asks the punisher to fire. It reports whether a call was started.
func (g *Game) punish(now time.Time) bool {
	if !g.punisher.punish(g.ctx, now) {
		return false
	}
	g.log.Info("Punishing", zap.Stringer("command", g.settings.Command))
	g.report(Report{Kind: ReportPunishing, Ruleset: g.kind, Command: g.settings.Command})
	return true
}

// setDesired commits a new desired set and announces it.
func (g *Game) setDesired(slots []int) error {
	if err := g.ctrl.SetDesired(slots); err != nil {
		return err
	}
	g.report(Report{Kind: ReportDesired, Ruleset: g.kind, Desired: g.ctrl.DesiredSlots()})
	return nil
}

func (g *Game) reportStatus(status controller.Status, now time.Time) {
	r := Report{Kind: ReportStatus, Ruleset: g.kind, Status: status, ShowTimer: g.settings.ShowTimer}
	if g.settings.ShowTimer {
		r.Remaining = g.Remaining(now)
	}
	g.report(r)
}
