package tray

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"sync"

	"github.com/soar/remopad/internal/session"
)

// iconState is what the tray icon shows.
type iconState int

const (
	stateIdle iconState = iota
	stateReady
	stateMapping
	statePlaying
	stateAlert
)

func (s iconState) String() string {
	switch s {
	case stateReady:
		return "controller ready"
	case stateMapping:
		return "mapping controller"
	case statePlaying:
		return "game running"
	case stateAlert:
		return "punishing"
	}
	return "no controller"
}

var stateColors = map[iconState]color.RGBA{
	stateIdle:    {0x80, 0x80, 0x80, 0xff},
	stateReady:   {0x3a, 0x7b, 0xd5, 0xff},
	stateMapping: {0xe0, 0xa0, 0x20, 0xff},
	statePlaying: {0x2e, 0xa0, 0x4a, 0xff},
	stateAlert:   {0xd0, 0x30, 0x30, 0xff},
}

// nextState returns the state an event moves to, and false when the event
// does not affect the icon.
func nextState(cur iconState, ev session.Event) (iconState, bool) {
	switch ev.Type {
	case session.EventConnected:
		return stateReady, true
	case session.EventDisconnected:
		return stateIdle, true
	case session.EventWizard:
		return stateMapping, cur != stateMapping
	case session.EventMapped, session.EventGameStopped:
		return stateReady, true
	case session.EventGameStarted:
		return statePlaying, true
	case session.EventPunished:
		return statePlaying, cur == stateAlert
	case session.EventPunishing:
		return stateAlert, true
	}
	return cur, false
}

const iconSize = 32

var (
	iconMu    sync.Mutex
	iconCache = map[iconState][]byte{}
)

func (s iconState) icon() []byte {
	iconMu.Lock()
	defer iconMu.Unlock()
	if data, ok := iconCache[s]; ok {
		return data
	}
	data := renderIcon(stateColors[s])
	iconCache[s] = data
	return data
}

// renderIcon draws a filled disc and wraps the PNG in a single-image ICO
// container, which every systray backend accepts.
func renderIcon(c color.RGBA) []byte {
	img := image.NewNRGBA(image.Rect(0, 0, iconSize, iconSize))
	r := float64(iconSize)/2 - 1
	for y := 0; y < iconSize; y++ {
		for x := 0; x < iconSize; x++ {
			dx, dy := float64(x)+0.5-float64(iconSize)/2, float64(y)+0.5-float64(iconSize)/2
			if dx*dx+dy*dy <= r*r {
				img.Set(x, y, color.NRGBA{c.R, c.G, c.B, c.A})
			}
		}
	}

	var pngData bytes.Buffer
	_ = png.Encode(&pngData, img)
	return wrapICO(pngData.Bytes())
}

func wrapICO(pngData []byte) []byte {
	var buf bytes.Buffer
	// ICONDIR
	_ = binary.Write(&buf, binary.LittleEndian, [3]uint16{0, 1, 1})
	// ICONDIRENTRY
	buf.Write([]byte{iconSize, iconSize, 0, 0})
	_ = binary.Write(&buf, binary.LittleEndian, struct {
		Planes, BitCount uint16
		Size, Offset     uint32
	}{1, 32, uint32(len(pngData)), 6 + 16})
	buf.Write(pngData)
	return buf.Bytes()
}
