package ruleset

import (
	"time"

	"github.com/soar/remopad/internal/controller"
)

// walk requires every play button to be pressed at least once per reaction
// window. It is evaluated once per window.
type walk struct {
	counts map[int]int
}

func (w *walk) Validate(c Config) []string {
	var problems []string
	problems = requireSlots(c, problems, playKeys...)
	if n, ok := c.Int(keyReaction); !ok || n <= 0 {
		problems = append(problems, "Required setting \"reaction_ms\" is missing or not a positive number.")
	}
	return problems
}

func (w *walk) Period(s *Settings) time.Duration {
	return s.Reaction
}

func (w *walk) Begin(g *Game, now time.Time) error {
	w.counts = nil
	return g.setDesired(g.settings.PlayButtons)
}

// Tick compares activation counters with the previous window. The first
// window only records a baseline.
func (w *walk) Tick(g *Game, now time.Time) {
	counts := make(map[int]int, len(g.settings.PlayButtons))
	missed := false
	for _, slot := range g.settings.PlayButtons {
		n, _ := g.ctrl.Activations(slot)
		counts[slot] = n
		if w.counts != nil && n <= w.counts[slot] {
			missed = true
		}
	}
	first := w.counts == nil
	w.counts = counts

	if first {
		return
	}
	status := controller.Compliant
	if missed {
		status = controller.Violated
		g.punish(now)
	}
	g.reportStatus(status, now)
}
