package ruleset

import (
	"context"
	"time"

	"github.com/soar/remopad/internal/actuator"
)

// punisher gates actuator calls: at most one in flight, and none until
// the immunity window after the previous one has run out.
type punisher struct {
	act       actuator.Actuator
	cmd       actuator.Command
	immune    time.Duration
	inFlight  bool
	notBefore time.Time
	done      chan error
}

func newPunisher(act actuator.Actuator, cmd actuator.Command, immune time.Duration) *punisher {
	return &punisher{
		act:    act,
		cmd:    cmd,
		immune: immune,
		done:   make(chan error, 1),
	}
}

// arm forbids punishments before t.
func (p *punisher) arm(t time.Time) {
	p.notBefore = t
}

// allowed reports whether a punishment may start at now.
func (p *punisher) allowed(now time.Time) bool {
	return !p.inFlight && !now.Before(p.notBefore)
}

// punish starts the actuator call in the background. The result arrives on
// done and must be handed back through complete.
func (p *punisher) punish(ctx context.Context, now time.Time) bool {
	if !p.allowed(now) {
		return false
	}
	p.inFlight = true
	go func() {
		p.done <- p.act.Command(ctx, p.cmd)
	}()
	return true
}

// complete clears the in-flight flag and opens the immunity window measured
// from now, whether the call succeeded or not.
func (p *punisher) complete(now time.Time) {
	p.inFlight = false
	p.notBefore = now.Add(p.immune)
}
