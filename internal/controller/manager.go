package controller

import (
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/soar/remopad/internal/gamepad"
)

// ErrUnknownSlot is returned when a ruleset refers to a slot the connected
// controller does not have.
var ErrUnknownSlot = errors.New("slot not mapped on this controller")

// ErrConflict is returned when a desired set contains both directions of one axis.
var ErrConflict = errors.New("opposite directions cannot both be desired")

// UnmappedDeviceError reports that no stored mapping matches the controller.
type UnmappedDeviceError struct {
	Platform string
	Device   string
	Key      string
}

func (e *UnmappedDeviceError) Error() string {
	return fmt.Sprintf("no gamepad mapping for %q on %q (key %s)", e.Device, e.Platform, e.Key)
}

// StateReader provides the latest raw controller state.
type StateReader interface {
	CurrentState() gamepad.RawState
}

// Manager owns the logical buttons of the connected controller. It is not
// safe for concurrent use; one session loop drives it.
type Manager struct {
	source        StateReader
	state         gamepad.RawState
	lastTimestamp uint64
	buttons       []*Button
	bySlot        map[int]*Button
	log           *zap.Logger
}

// NewManager creates a manager reading from source.
func NewManager(source StateReader, log *zap.Logger) *Manager {
	return &Manager{
		source: source,
		bySlot: make(map[int]*Button),
		log:    log.Named("controller"),
	}
}

// ResolveMapping looks up the mapping for platform/device in table, keyed by
// gamepad.MappingKey, and loads it. A miss returns *UnmappedDeviceError.
func (m *Manager) ResolveMapping(platform, device string, table map[string]string) error {
	key := gamepad.MappingKey(platform, device)
	raw, ok := table[key]
	if !ok {
		return &UnmappedDeviceError{Platform: platform, Device: device, Key: key}
	}
	m.Load(gamepad.ParseMapping(raw))
	m.log.Info("Gamepad mapping loaded", zap.String("key", key), zap.Int("buttons", len(m.buttons)))
	return nil
}

// Load replaces the button set with one button per present mapping token.
func (m *Manager) Load(mapping gamepad.Mapping) {
	m.buttons = nil
	m.bySlot = make(map[int]*Button)
	for slot, tok := range mapping {
		if !tok.Present {
			continue
		}
		b := &Button{
			Slot:      slot,
			Index:     tok.Code.Index,
			Direction: tok.Code.Direction,
			manager:   m,
		}
		m.buttons = append(m.buttons, b)
		m.bySlot[slot] = b
	}
	m.refresh()
}

// Reset discards every button. Used when the controller goes away.
func (m *Manager) Reset() {
	m.buttons = nil
	m.bySlot = make(map[int]*Button)
	m.state = gamepad.RawState{}
	m.lastTimestamp = 0
}

// Mapping returns the mapping the current button set was built from.
func (m *Manager) Mapping() gamepad.Mapping {
	mapping := gamepad.NewMapping()
	for _, b := range m.buttons {
		if b.Slot < len(mapping) {
			mapping[b.Slot] = gamepad.Token{Present: true, Code: b.Code()}
		}
	}
	return mapping
}

// Buttons returns the logical buttons ordered by slot.
func (m *Manager) Buttons() []*Button {
	return m.buttons
}

// Button returns the button mapped to slot.
func (m *Manager) Button(slot int) (*Button, bool) {
	b, ok := m.bySlot[slot]
	return b, ok
}

// State returns the latest sampled raw state.
func (m *Manager) State() gamepad.RawState {
	return m.state
}

func (m *Manager) refresh() bool {
	st := m.source.CurrentState()
	changed := st.Timestamp > m.lastTimestamp
	m.lastTimestamp = st.Timestamp
	m.state = st
	return changed
}

// ChangesSincePreviousCheck fetches the latest hardware sample and reports
// whether it is newer than the one seen by the previous call.
func (m *Manager) ChangesSincePreviousCheck() bool {
	return m.refresh()
}

// Sample observes every button when a new hardware sample is available so
// press edges are counted at the device's reporting rate.
func (m *Manager) Sample() bool {
	if !m.ChangesSincePreviousCheck() {
		return false
	}
	for _, b := range m.buttons {
		b.IsPressed()
	}
	return true
}

// CheckCompliance returns the worst status across all buttons.
func (m *Manager) CheckCompliance() Status {
	m.refresh()
	status := Compliant
	for _, b := range m.buttons {
		status = Worst(status, b.CheckCompliance())
	}
	return status
}

// IsCompatible reports whether candidate may be desired alongside every
// button that is desired now.
func (m *Manager) IsCompatible(candidate *Button) bool {
	for _, b := range m.buttons {
		if b.Desired && b.IsOppositeDirection(candidate) {
			return false
		}
	}
	return true
}

// SetDesired clears the desired set and marks slots as desired. The set is
// only committed when every slot is mapped and no two slots conflict.
func (m *Manager) SetDesired(slots []int) error {
	chosen := make([]*Button, 0, len(slots))
	for _, slot := range slots {
		b, ok := m.bySlot[slot]
		if !ok {
			return fmt.Errorf("slot %d: %w", slot, ErrUnknownSlot)
		}
		for _, c := range chosen {
			if c.IsOppositeDirection(b) {
				return fmt.Errorf("slots %d and %d: %w", c.Slot, b.Slot, ErrConflict)
			}
		}
		chosen = append(chosen, b)
	}

	for _, b := range m.buttons {
		b.Desired = false
	}
	for _, b := range chosen {
		b.Desired = true
	}
	return nil
}

// DesiredSlots returns the slots currently desired, ascending.
func (m *Manager) DesiredSlots() []int {
	var slots []int
	for _, b := range m.buttons {
		if b.Desired {
			slots = append(slots, b.Slot)
		}
	}
	sort.Ints(slots)
	return slots
}

// Activations returns the activation counter of slot.
func (m *Manager) Activations(slot int) (int, bool) {
	b, ok := m.bySlot[slot]
	if !ok {
		return 0, false
	}
	return b.Activations(), true
}
