package gamepad

import "math"

// RawState is the unmapped state of one controller as reported by the platform.
type RawState struct {
	Connected bool   `json:"connected"`
	Name      string `json:"name"`
	Platform  string `json:"platform"`
	Device    string `json:"device"`
	// Timestamp advances every time the hardware reports a new sample.
	Timestamp uint64    `json:"timestamp"`
	Buttons   []bool    `json:"buttons"`
	Axes      []float64 `json:"axes"`
}

// Button returns the pressed flag of button i, false when out of range.
func (s RawState) Button(i int) bool {
	if i < 0 || i >= len(s.Buttons) {
		return false
	}
	return s.Buttons[i]
}

// Axis returns the value of axis i, 0 when out of range.
func (s RawState) Axis(i int) float64 {
	if i < 0 || i >= len(s.Axes) {
		return 0
	}
	return s.Axes[i]
}

// Clone returns a deep copy so the state can cross goroutines.
func (s RawState) Clone() RawState {
	c := s
	c.Buttons = append([]bool(nil), s.Buttons...)
	c.Axes = append([]float64(nil), s.Axes...)
	return c
}

const analogThreshold = 0.01

func floatEqual(a, b float64) bool {
	return math.Abs(a-b) < analogThreshold
}

// SameInput reports whether two states carry the same controls. Analog
// jitter below analogThreshold is ignored.
func SameInput(prev, cur RawState) bool {
	if prev.Connected != cur.Connected || prev.Name != cur.Name {
		return false
	}
	if len(prev.Buttons) != len(cur.Buttons) || len(prev.Axes) != len(cur.Axes) {
		return false
	}
	for i := range prev.Buttons {
		if prev.Buttons[i] != cur.Buttons[i] {
			return false
		}
	}
	for i := range prev.Axes {
		if !floatEqual(prev.Axes[i], cur.Axes[i]) {
			return false
		}
	}
	return true
}

// EventKind distinguishes hot-plug events.
type EventKind int

const (
	Connected EventKind = iota
	Disconnected
)

func (k EventKind) String() string {
	if k == Connected {
		return "connected"
	}
	return "disconnected"
}

// Event is emitted by a reader when the active controller appears or goes away.
type Event struct {
	Kind  EventKind
	State RawState
}
