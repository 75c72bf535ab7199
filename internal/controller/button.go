package controller

import "github.com/soar/remopad/internal/gamepad"

// Button is one logical control backed either by a physical button
// (Direction 0) or by one direction of an axis (Direction -1 or +1).
type Button struct {
	Slot      int
	Index     int
	Direction int

	// Desired is set by the active ruleset.
	Desired bool

	lastObserved bool
	pressed      bool
	activations  int
	manager      *Manager
}

// Code returns the physical control backing the button.
func (b *Button) Code() gamepad.Code {
	return gamepad.Code{Index: b.Index, Direction: b.Direction}
}

// IsPressed reads the button from the manager's latest sample. A press edge
// observed here increments the activation counter.
func (b *Button) IsPressed() bool {
	state := b.manager.state
	var pressed bool
	if b.Direction == 0 {
		pressed = state.Button(b.Index)
	} else {
		pressed = state.Axis(b.Index)*float64(b.Direction) > gamepad.AxisThreshold
	}
	if pressed && !b.pressed {
		b.activations++
	}
	b.pressed = pressed
	return pressed
}

// Activations returns how many press edges have been observed so far.
func (b *Button) Activations() int {
	return b.activations
}

// CheckCompliance compares the observed state with the desired one.
//
// A button that matches is compliant. A mismatch that has not changed since
// the previous check is pending: the operator has not reacted yet. A mismatch
// that just appeared is a violation. The observed state becomes the baseline
// for the next check in every case, so holding a wrong position after a
// violation degrades to pending.
func (b *Button) CheckCompliance() Status {
	observed := b.IsPressed()
	last := b.lastObserved
	b.lastObserved = observed

	switch {
	case observed == b.Desired:
		return Compliant
	case observed == last:
		return Pending
	}
	return Violated
}

// IsOppositeDirection reports whether b and o are the two opposite
// directions of the same axis.
func (b *Button) IsOppositeDirection(o *Button) bool {
	if b.Direction == 0 || o.Direction == 0 {
		return false
	}
	return b.Index == o.Index && b.Direction == -o.Direction
}
