package gamepad

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuantize(t *testing.T) {
	assert.Equal(t, int8(1), Quantize(0.81))
	assert.Equal(t, int8(0), Quantize(0.8))
	assert.Equal(t, int8(0), Quantize(0.5))
	assert.Equal(t, int8(0), Quantize(-0.8))
	assert.Equal(t, int8(-1), Quantize(-0.95))
}

func TestCaptureCopiesButtons(t *testing.T) {
	s := RawState{Buttons: []bool{true, false}, Axes: []float64{0.9, -0.2, -1}}
	snap := Capture(s)
	s.Buttons[0] = false

	assert.Equal(t, []bool{true, false}, snap.Buttons)
	assert.Equal(t, []int8{1, 0, -1}, snap.Axes)
}

func TestNewlyActivated(t *testing.T) {
	idle := Snapshot{Buttons: []bool{false, false, false}, Axes: []int8{0, 0}}

	tests := []struct {
		name string
		cur  Snapshot
		want Code
		err  error
	}{
		{"nothing", idle, Code{}, ErrNoActivation},
		{"button", Snapshot{Buttons: []bool{false, true, false}, Axes: []int8{0, 0}}, Code{Index: 1}, nil},
		{"axis plus", Snapshot{Buttons: []bool{false, false, false}, Axes: []int8{0, 1}}, Code{Index: 1, Direction: 1}, nil},
		{"axis minus", Snapshot{Buttons: []bool{false, false, false}, Axes: []int8{-1, 0}}, Code{Index: 0, Direction: -1}, nil},
		{"two buttons", Snapshot{Buttons: []bool{true, true, false}, Axes: []int8{0, 0}}, Code{}, ErrAmbiguousInput},
		{"button and axis", Snapshot{Buttons: []bool{false, false, true}, Axes: []int8{1, 0}}, Code{}, ErrAmbiguousInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewlyActivated(idle, tt.cur)
			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewlyActivatedIgnoresHeldAndReleased(t *testing.T) {
	old := Snapshot{Buttons: []bool{true, true}, Axes: []int8{1}}
	cur := Snapshot{Buttons: []bool{true, false}, Axes: []int8{1}}

	_, err := NewlyActivated(old, cur)
	require.ErrorIs(t, err, ErrNoActivation)
}

func TestNewlyActivatedAxisFlip(t *testing.T) {
	// a trigger that snaps to its opposite extreme counts as a new activation
	old := Snapshot{Axes: []int8{1}}
	cur := Snapshot{Axes: []int8{-1}}

	got, err := NewlyActivated(old, cur)
	require.NoError(t, err)
	assert.Equal(t, "0-", got.String())
}

func TestSnapshotActive(t *testing.T) {
	snap := Snapshot{Buttons: []bool{false, true}, Axes: []int8{0, -1}}

	assert.True(t, snap.Active(Code{Index: 1}))
	assert.False(t, snap.Active(Code{Index: 0}))
	assert.True(t, snap.Active(Code{Index: 1, Direction: -1}))
	assert.False(t, snap.Active(Code{Index: 1, Direction: 1}))
	assert.False(t, snap.Active(Code{Index: 7}))
}
