package gamepad

import (
	"errors"
	"strconv"
)

// AxisThreshold is the deflection an axis must exceed to count as pressed.
// It is kept high so analog drift never registers as input.
const AxisThreshold = 0.8

var (
	// ErrNoActivation is returned by NewlyActivated when nothing was pressed.
	ErrNoActivation = errors.New("no control activated")
	// ErrAmbiguousInput is returned by NewlyActivated when more than one
	// control was pressed between the two snapshots.
	ErrAmbiguousInput = errors.New("more than one control activated")
)

// Snapshot is an immutable capture of buttons and sign-quantized axes.
type Snapshot struct {
	Buttons []bool
	Axes    []int8
}

// Quantize maps an axis value to -1, 0 or +1.
func Quantize(v float64) int8 {
	switch {
	case v > AxisThreshold:
		return 1
	case v < -AxisThreshold:
		return -1
	}
	return 0
}

// Capture records the current controls of s.
func Capture(s RawState) Snapshot {
	snap := Snapshot{
		Buttons: make([]bool, len(s.Buttons)),
		Axes:    make([]int8, len(s.Axes)),
	}
	copy(snap.Buttons, s.Buttons)
	for i, v := range s.Axes {
		snap.Axes[i] = Quantize(v)
	}
	return snap
}

// Active reports whether the control identified by c is engaged in the snapshot.
func (s Snapshot) Active(c Code) bool {
	if c.Direction == 0 {
		return c.Index >= 0 && c.Index < len(s.Buttons) && s.Buttons[c.Index]
	}
	return c.Index >= 0 && c.Index < len(s.Axes) && int(s.Axes[c.Index]) == c.Direction
}

// Code identifies a physical control: a button index, or an axis index plus
// direction.
type Code struct {
	Index     int
	Direction int
}

func (c Code) String() string {
	s := strconv.Itoa(c.Index)
	switch {
	case c.Direction > 0:
		s += "+"
	case c.Direction < 0:
		s += "-"
	}
	return s
}

// NewlyActivated returns the single control that became active between prev
// and cur. Buttons are scanned before axes.
func NewlyActivated(prev, cur Snapshot) (Code, error) {
	var (
		change Code
		found  bool
	)

	for i, pressed := range cur.Buttons {
		if !pressed {
			continue
		}
		if i < len(prev.Buttons) && prev.Buttons[i] {
			continue
		}
		if found {
			return Code{}, ErrAmbiguousInput
		}
		change, found = Code{Index: i}, true
	}

	for i, v := range cur.Axes {
		if v == 0 {
			continue
		}
		if i < len(prev.Axes) && prev.Axes[i] == v {
			continue
		}
		if found {
			return Code{}, ErrAmbiguousInput
		}
		change, found = Code{Index: i, Direction: int(v)}, true
	}

	if !found {
		return Code{}, ErrNoActivation
	}
	return change, nil
}
