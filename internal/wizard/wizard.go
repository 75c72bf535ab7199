// Package wizard discovers the physical layout of an unknown controller by
// asking the operator to press each supported logical slot in turn.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/soar/remopad/internal/gamepad"
)

// SettleDelay is how long a released control must stay released before the
// slot is committed. Some triggers briefly report their opposite extreme on
// release, which must not be read as the next press.
const SettleDelay = 100 * time.Millisecond

// ErrIncomplete is returned by Save before every slot has been assigned.
var ErrIncomplete = errors.New("mapping wizard has not finished")

// Phase is the wizard's state.
type Phase int

const (
	AwaitingPress Phase = iota
	AwaitingRelease
	Complete
)

func (p Phase) String() string {
	switch p {
	case AwaitingPress:
		return "awaiting-press"
	case AwaitingRelease:
		return "awaiting-release"
	}
	return "complete"
}

// State is the wizard state. Pending and the settle bookkeeping are only
// meaningful in AwaitingRelease.
type State struct {
	Phase    Phase
	Pending  gamepad.Code
	settling bool
	released time.Time
}

// SettingsSaver persists one section of the flat settings table.
type SettingsSaver interface {
	SaveSettings(ctx context.Context, section string, values map[string]string) error
}

// Wizard is the mapping discovery state machine. Feed it one snapshot per
// frame with Observe.
type Wizard struct {
	slots    []int
	index    int
	mapping  gamepad.Mapping
	state    State
	baseline gamepad.Snapshot
	last     gamepad.Snapshot
}

// New starts a wizard. initial is the controller state at start, used as
// the baseline for the first press.
func New(initial gamepad.Snapshot) *Wizard {
	w := &Wizard{
		slots:    gamepad.SupportedSlots,
		mapping:  gamepad.NewMapping(),
		baseline: initial,
		last:     initial,
	}
	if len(w.slots) == 0 {
		w.state.Phase = Complete
	}
	return w
}

// State returns the current state.
func (w *Wizard) State() State {
	return w.state
}

// Done reports whether every supported slot has been assigned.
func (w *Wizard) Done() bool {
	return w.state.Phase == Complete
}

// CurrentSlot returns the slot the operator is asked to press.
func (w *Wizard) CurrentSlot() (int, bool) {
	if w.Done() {
		return 0, false
	}
	return w.slots[w.index], true
}

// Progress returns how many slots are assigned out of how many.
func (w *Wizard) Progress() (int, int) {
	return w.index, len(w.slots)
}

// Mapping returns the mapping assembled so far.
func (w *Wizard) Mapping() gamepad.Mapping {
	return append(gamepad.Mapping(nil), w.mapping...)
}

// Observe advances the state machine with the snapshot taken at now.
func (w *Wizard) Observe(now time.Time, snap gamepad.Snapshot) {
	w.last = snap

	switch w.state.Phase {
	case AwaitingPress:
		code, err := gamepad.NewlyActivated(w.baseline, snap)
		if err != nil {
			// nothing pressed yet, or an ambiguous chord: keep waiting
			return
		}
		w.state = State{Phase: AwaitingRelease, Pending: code}

	case AwaitingRelease:
		if snap.Active(w.state.Pending) {
			w.state.settling = false
			return
		}
		if !w.state.settling {
			w.state.settling = true
			w.state.released = now
			return
		}
		if now.Sub(w.state.released) >= SettleDelay {
			w.assign(gamepad.Token{Present: true, Code: w.state.Pending})
		}
	}
}

// Skip records the current slot as absent on this device, whatever the
// hardware is doing.
func (w *Wizard) Skip() {
	if w.Done() {
		return
	}
	w.assign(gamepad.Token{})
}

func (w *Wizard) assign(tok gamepad.Token) {
	w.mapping[w.slots[w.index]] = tok
	w.index++
	w.baseline = w.last
	if w.index >= len(w.slots) {
		w.state = State{Phase: Complete}
		return
	}
	w.state = State{Phase: AwaitingPress}
}

// Save persists the finished mapping under the normalized platform/device key.
func (w *Wizard) Save(ctx context.Context, saver SettingsSaver, platform, device string) error {
	if !w.Done() {
		return ErrIncomplete
	}
	key := gamepad.MappingKey(platform, device)
	values := map[string]string{key: w.mapping.String()}
	if err := saver.SaveSettings(ctx, gamepad.SettingsSection, values); err != nil {
		return fmt.Errorf("save mapping %s: %w", key, err)
	}
	return nil
}
