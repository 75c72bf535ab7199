//go:build !nosdl

// Package sdlinput reads controllers through SDL3. purego-sdl3 loads the SDL
// library when this package is initialized, so builds with -tags nosdl leave
// it out and use the joystick reader instead.
package sdlinput

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/jupiterrider/purego-sdl3/sdl"
	"go.uber.org/zap"

	"github.com/soar/remopad/internal/gamepad"
)

const (
	pollDelayNS       = 16_000_000 // ~60Hz
	hatUp       uint8 = 0x01
	hatRight    uint8 = 0x02
	hatDown     uint8 = 0x04
	hatLeft     uint8 = 0x08
)

type joystickInfo struct {
	joystick *sdl.Joystick
	name     string
	device   string
	id       sdl.JoystickID
}

// Reader reads controller input through the SDL3 joystick API. Only the
// first connected joystick is reported; others are kept open so one can be
// promoted when the active one goes away.
type Reader struct {
	state     gamepad.RawState
	joysticks map[sdl.JoystickID]*joystickInfo
	activeID  sdl.JoystickID
	hasActive bool
	platform  string
	started   time.Time
	changes   chan gamepad.RawState
	events    chan gamepad.Event
	log       *zap.Logger
	mu        sync.RWMutex
}

// NewReader creates a reader. Run must be called to start polling.
func NewReader(log *zap.Logger) *Reader {
	return &Reader{
		joysticks: make(map[sdl.JoystickID]*joystickInfo),
		platform:  runtime.GOOS + " sdl3",
		changes:   make(chan gamepad.RawState, 64),
		events:    make(chan gamepad.Event, 8),
		log:       log.Named("sdl"),
	}
}

// Changes returns the channel on which raw state changes are sent.
func (r *Reader) Changes() <-chan gamepad.RawState {
	return r.changes
}

// Events returns the channel on which connect and disconnect events are sent.
func (r *Reader) Events() <-chan gamepad.Event {
	return r.events
}

// CurrentState returns a copy of the current controller state.
func (r *Reader) CurrentState() gamepad.RawState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state.Clone()
}

// Run initializes SDL and runs the event+polling loop on a locked OS thread
// until ctx is cancelled.
func (r *Reader) Run(ctx context.Context) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if !sdl.Init(sdl.InitJoystick) {
		r.log.Error("SDL init failed", zap.String("error", sdl.GetError()))
		return
	}
	defer sdl.Quit()

	r.started = time.Now()
	r.log.Info("SDL3 joystick subsystem initialized")

	for _, id := range sdl.GetJoysticks() {
		r.openJoystick(id)
	}

	for {
		select {
		case <-ctx.Done():
			r.closeAll()
			return
		default:
		}

		r.processEvents()
		r.pollState()
		sdl.DelayNS(pollDelayNS)
	}
}

func (r *Reader) processEvents() {
	var event sdl.Event
	for sdl.PollEvent(&event) {
		switch event.Type() {
		case sdl.EventJoystickAdded:
			r.openJoystick(event.JDevice().Which)
		case sdl.EventJoystickRemoved:
			r.removeJoystick(event.JDevice().Which)
		}
	}
}

func (r *Reader) openJoystick(instanceID sdl.JoystickID) {
	if _, exists := r.joysticks[instanceID]; exists {
		return
	}

	js := sdl.OpenJoystick(instanceID)
	if js == nil {
		r.log.Warn("Failed to open joystick",
			zap.Uint32("id", uint32(instanceID)), zap.String("error", sdl.GetError()))
		return
	}

	jsID := sdl.GetJoystickID(js)
	name := sdl.GetJoystickName(js)
	info := &joystickInfo{
		joystick: js,
		name:     name,
		device:   gamepad.DeviceIdentity(name, sdl.GetJoystickVendor(js), sdl.GetJoystickProduct(js)),
		id:       jsID,
	}
	r.joysticks[jsID] = info

	r.log.Info("Joystick connected",
		zap.String("device", info.device),
		zap.Int32("axes", sdl.GetNumJoystickAxes(js)),
		zap.Int32("buttons", sdl.GetNumJoystickButtons(js)),
		zap.Int32("hats", sdl.GetNumJoystickHats(js)))

	if !r.hasActive {
		r.activate(info)
	}
}

func (r *Reader) activate(info *joystickInfo) {
	r.activeID = info.id
	r.hasActive = true

	r.mu.Lock()
	r.state = gamepad.RawState{
		Connected: true,
		Name:      info.name,
		Platform:  r.platform,
		Device:    info.device,
		Timestamp: r.now(),
	}
	r.mu.Unlock()

	r.log.Info("Active joystick set", zap.String("device", info.device))
	r.pollState()
	r.emitEvent(gamepad.Connected)
}

func (r *Reader) removeJoystick(instanceID sdl.JoystickID) {
	info, exists := r.joysticks[instanceID]
	if !exists {
		return
	}

	r.log.Info("Joystick disconnected", zap.String("device", info.device))
	sdl.CloseJoystick(info.joystick)
	delete(r.joysticks, instanceID)

	if !r.hasActive || r.activeID != instanceID {
		return
	}
	r.hasActive = false
	r.emitEvent(gamepad.Disconnected)

	r.mu.Lock()
	r.state = gamepad.RawState{}
	r.mu.Unlock()

	for _, js := range r.joysticks {
		if sdl.JoystickConnected(js.joystick) {
			r.activate(js)
			return
		}
	}
}

func (r *Reader) closeAll() {
	for id, info := range r.joysticks {
		sdl.CloseJoystick(info.joystick)
		delete(r.joysticks, id)
	}
}

func (r *Reader) pollState() {
	if !r.hasActive {
		return
	}

	info, exists := r.joysticks[r.activeID]
	if !exists || !sdl.JoystickConnected(info.joystick) {
		return
	}
	js := info.joystick

	numAxes := sdl.GetNumJoystickAxes(js)
	numButtons := sdl.GetNumJoystickButtons(js)
	numHats := sdl.GetNumJoystickHats(js)

	state := gamepad.RawState{
		Connected: true,
		Name:      info.name,
		Platform:  r.platform,
		Device:    info.device,
		Buttons:   make([]bool, 0, numButtons),
		Axes:      make([]float64, 0, numAxes+2*numHats),
	}
	for i := int32(0); i < numButtons; i++ {
		state.Buttons = append(state.Buttons, sdl.GetJoystickButton(js, i))
	}
	for i := int32(0); i < numAxes; i++ {
		state.Axes = append(state.Axes, gamepad.NormalizeAxis(sdl.GetJoystickAxis(js, i)))
	}
	// hats become two pseudo axes each, x then y, so d-pads reported as hats
	// can be mapped like sticks
	for i := int32(0); i < numHats; i++ {
		hat := sdl.GetJoystickHat(js, i)
		state.Axes = append(state.Axes, hatAxis(hat&hatLeft != 0, hat&hatRight != 0))
		state.Axes = append(state.Axes, hatAxis(hat&hatUp != 0, hat&hatDown != 0))
	}

	r.mu.Lock()
	if gamepad.SameInput(r.state, state) {
		r.mu.Unlock()
		return
	}
	state.Timestamp = r.now()
	r.state = state
	r.mu.Unlock()
	r.emitState()
}

func hatAxis(negative, positive bool) float64 {
	switch {
	case negative && !positive:
		return -1
	case positive && !negative:
		return 1
	}
	return 0
}

func (r *Reader) now() uint64 {
	return uint64(time.Since(r.started).Nanoseconds()) + 1
}

func (r *Reader) emitState() {
	s := r.CurrentState()
	select {
	case r.changes <- s:
	default:
		// Drop if channel is full to avoid blocking the SDL thread
	}
}

func (r *Reader) emitEvent(kind gamepad.EventKind) {
	ev := gamepad.Event{Kind: kind, State: r.CurrentState()}
	select {
	case r.events <- ev:
	default:
		r.log.Warn("Dropped controller event", zap.Stringer("kind", kind))
	}
}
