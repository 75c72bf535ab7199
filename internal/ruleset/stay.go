package ruleset

import "time"

// stay requires a fixed set of buttons to be held for the whole game.
type stay struct {
	esc escalation
}

func (s *stay) Validate(c Config) []string {
	var problems []string
	problems = requireSlots(c, problems, keyButtons)
	problems = requireInt(c, problems, keyReaction)
	return problems
}

func (s *stay) Period(*Settings) time.Duration {
	return complianceTick
}

func (s *stay) Begin(g *Game, now time.Time) error {
	s.esc.reset(now)
	return g.setDesired(g.settings.Buttons)
}

func (s *stay) Tick(g *Game, now time.Time) {
	status := g.ctrl.CheckCompliance()
	g.reportStatus(status, now)
	if s.esc.update(status, now, g.settings.Reaction) {
		g.punish(now)
	}
}
