package tray

import (
	"bytes"
	"encoding/binary"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soar/remopad/internal/session"
)

func TestRenderIconIsPNGInICO(t *testing.T) {
	data := stateAlert.icon()

	require.Greater(t, len(data), 22)
	assert.Equal(t, []byte{0, 0, 1, 0, 1, 0}, data[:6])
	assert.Equal(t, byte(iconSize), data[6])
	size := binary.LittleEndian.Uint32(data[14:18])
	offset := binary.LittleEndian.Uint32(data[18:22])
	assert.Equal(t, uint32(22), offset)
	assert.Equal(t, len(data)-22, int(size))

	img, err := png.Decode(bytes.NewReader(data[offset:]))
	require.NoError(t, err)
	assert.Equal(t, iconSize, img.Bounds().Dx())

	r, g, b, a := img.At(iconSize/2, iconSize/2).RGBA()
	assert.Equal(t, [4]uint32{0xd0d0, 0x3030, 0x3030, 0xffff}, [4]uint32{r, g, b, a})
	_, _, _, a = img.At(0, 0).RGBA()
	assert.Zero(t, a)

	assert.Same(t, &data[0], &stateAlert.icon()[0], "cached")
}

func TestNextState(t *testing.T) {
	tests := []struct {
		cur   iconState
		event session.EventType
		want  iconState
		ok    bool
	}{
		{stateIdle, session.EventConnected, stateReady, true},
		{stateReady, session.EventWizard, stateMapping, true},
		{stateMapping, session.EventWizard, stateMapping, false},
		{stateMapping, session.EventMapped, stateReady, true},
		{stateReady, session.EventGameStarted, statePlaying, true},
		{statePlaying, session.EventPunishing, stateAlert, true},
		{stateAlert, session.EventPunished, statePlaying, true},
		{statePlaying, session.EventCompliance, statePlaying, false},
		{statePlaying, session.EventGameStopped, stateReady, true},
		{stateReady, session.EventDisconnected, stateIdle, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.event), func(t *testing.T) {
			got, ok := nextState(tt.cur, session.Event{Type: tt.event})
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.ok, ok)
		})
	}
}
