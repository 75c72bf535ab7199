package ruleset

import (
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/soar/remopad/internal/controller"
)

// simon holds a fixed set of buttons and adds one randomly picked play
// button, re-picked every pick interval.
type simon struct {
	esc      escalation
	nextPick time.Time
}

func (s *simon) Validate(c Config) []string {
	var problems []string
	if !c.Has(keyHoldButtons) && !c.Has(playKeys...) {
		problems = append(problems, fmt.Sprintf("Required setting %q is missing.", keyPlayButtons))
	}
	hold, err := c.Slots(keyHoldButtons)
	if err != nil {
		problems = append(problems, err.Error())
	}
	play, err := c.Slots(playKeys...)
	if err != nil {
		problems = append(problems, err.Error())
	}
	for _, p := range play {
		if slices.Contains(hold, p) {
			problems = append(problems, fmt.Sprintf("Button %d is both a hold and a play button.", p))
		}
	}
	problems = requireInt(c, problems, keyReaction)
	if len(play) > 0 {
		if n, ok := c.Int(keyPickInterval); !ok || n <= 0 {
			problems = append(problems, fmt.Sprintf("Required setting %q is missing or not a positive number.", keyPickInterval))
		}
	}
	return problems
}

func (s *simon) Period(*Settings) time.Duration {
	return complianceTick
}

func (s *simon) Begin(g *Game, now time.Time) error {
	s.esc.reset(now)
	if len(g.settings.PlayButtons) == 0 {
		return g.setDesired(g.settings.HoldButtons)
	}
	return s.pick(g, now)
}

func (s *simon) Tick(g *Game, now time.Time) {
	status := g.ctrl.CheckCompliance()
	g.reportStatus(status, now)
	if s.esc.update(status, now, g.settings.Reaction) {
		g.punish(now)
	}

	if len(g.settings.PlayButtons) > 0 && !now.Before(s.nextPick) {
		if err := s.pick(g, now); err != nil {
			g.log.Warn("Pick failed", zap.Error(err))
		}
	}
}

// pick desires the hold buttons plus one play button chosen uniformly among
// those compatible with the hold set, and schedules the next pick.
func (s *simon) pick(g *Game, now time.Time) error {
	s.nextPick = now.Add(s.interval(g))

	hold := g.settings.HoldButtons
	if err := g.ctrl.SetDesired(hold); err != nil {
		return err
	}
	for _, i := range g.rand.Perm(len(g.settings.PlayButtons)) {
		slot := g.settings.PlayButtons[i]
		b, ok := g.ctrl.Button(slot)
		if !ok {
			return fmt.Errorf("slot %d: %w", slot, controller.ErrUnknownSlot)
		}
		if g.ctrl.IsCompatible(b) {
			return g.setDesired(append(slices.Clone(hold), slot))
		}
	}
	return fmt.Errorf("no play button fits the hold buttons: %w", controller.ErrConflict)
}

// interval is the pick interval with up to a third of it added or removed.
func (s *simon) interval(g *Game) time.Duration {
	base := g.settings.PickInterval
	jitter := (g.rand.Float64()*2 - 1) * float64(base) / 3
	return base + time.Duration(jitter)
}
