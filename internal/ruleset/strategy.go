package ruleset

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/soar/remopad/internal/controller"
)

// Kind names a ruleset.
type Kind string

const (
	KindStay  Kind = "stay"
	KindSimon Kind = "simon"
	KindWalk  Kind = "walk"
)

func (k Kind) String() string {
	return string(k)
}

// Strategy is the ruleset specific part of a game.
type Strategy interface {
	// Validate returns problems with the strategy's own settings.
	Validate(c Config) []string
	// Period is the tick interval the strategy wants.
	Period(s *Settings) time.Duration
	// Begin sets up the desired buttons when the game starts.
	Begin(g *Game, now time.Time) error
	// Tick evaluates compliance and punishes when needed.
	Tick(g *Game, now time.Time)
}

var strategies = map[Kind]func() Strategy{
	KindStay:  func() Strategy { return &stay{} },
	KindSimon: func() Strategy { return &simon{} },
	KindWalk:  func() Strategy { return &walk{} },
}

// Kinds lists the known rulesets, sorted.
func Kinds() []Kind {
	kinds := make([]Kind, 0, len(strategies))
	for k := range strategies {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Lookup returns a fresh strategy for the named ruleset.
func Lookup(name string) (Kind, Strategy, error) {
	kind := Kind(strings.ToLower(strings.TrimSpace(name)))
	newStrategy, ok := strategies[kind]
	if !ok {
		return "", nil, fmt.Errorf("unknown ruleset %q", name)
	}
	return kind, newStrategy(), nil
}

// escalation turns per-tick compliance into a punish decision. A violation
// punishes at once; pending punishes once it has lasted the reaction window.
type escalation struct {
	last         controller.Status
	pendingSince time.Time
}

// reset treats the operator as pending from now.
func (e *escalation) reset(now time.Time) {
	e.last = controller.Pending
	e.pendingSince = now
}

func (e *escalation) update(status controller.Status, now time.Time, reaction time.Duration) bool {
	defer func() { e.last = status }()

	switch status {
	case controller.Violated:
		return true
	case controller.Pending:
		if e.last != controller.Pending {
			e.pendingSince = now
		}
		return now.Sub(e.pendingSince) >= reaction
	}
	return false
}

const complianceTick = 100 * time.Millisecond
