package gamepad

import (
	"context"
	"math"
	"runtime"
	"sync"
	"time"

	"github.com/0xcafed00d/joystick"
	"go.uber.org/zap"
)

const (
	joystickPollInterval  = 16 * time.Millisecond
	joystickProbeInterval = 2 * time.Second
	maxJoystickProbe      = 4
)

// JoystickReader reads the operating system joystick device directly
// (/dev/input/js* on Linux). It needs no shared libraries, so it is the
// reader for builds made with -tags nosdl.
type JoystickReader struct {
	index    int
	platform string
	state    RawState
	started  time.Time
	changes  chan RawState
	events   chan Event
	log      *zap.Logger
	mu       sync.RWMutex
}

// NewJoystickReader creates a reader for joystick index; a negative index
// probes the first few devices and takes the first one found.
func NewJoystickReader(index int, log *zap.Logger) *JoystickReader {
	return &JoystickReader{
		index:    index,
		platform: runtime.GOOS + " joystick",
		changes:  make(chan RawState, 64),
		events:   make(chan Event, 8),
		log:      log.Named("joystick"),
	}
}

// Changes returns the channel on which raw state changes are sent.
func (r *JoystickReader) Changes() <-chan RawState {
	return r.changes
}

// Events returns the channel on which connect and disconnect events are sent.
func (r *JoystickReader) Events() <-chan Event {
	return r.events
}

// CurrentState returns a copy of the current controller state.
func (r *JoystickReader) CurrentState() RawState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state.Clone()
}

// Run probes for a device and polls it until ctx is cancelled. A device that
// fails to read is reported as disconnected and probing starts over.
func (r *JoystickReader) Run(ctx context.Context) {
	r.started = time.Now()
	for {
		js, err := r.find()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			case <-time.After(joystickProbeInterval):
				continue
			}
		}

		err = r.poll(ctx, js)
		js.Close()
		if ctx.Err() != nil {
			return
		}
		r.log.Info("Joystick disconnected", zap.Error(err))
		r.emitEvent(Disconnected)
		r.mu.Lock()
		r.state = RawState{}
		r.mu.Unlock()
	}
}

func (r *JoystickReader) find() (joystick.Joystick, error) {
	if r.index >= 0 {
		return joystick.Open(r.index)
	}
	var lastErr error
	for i := 0; i < maxJoystickProbe; i++ {
		js, err := joystick.Open(i)
		if err == nil {
			return js, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func (r *JoystickReader) poll(ctx context.Context, js joystick.Joystick) error {
	name := js.Name()
	r.log.Info("Joystick connected",
		zap.String("device", name),
		zap.Int("axes", js.AxisCount()),
		zap.Int("buttons", js.ButtonCount()))

	r.mu.Lock()
	r.state = RawState{
		Connected: true,
		Name:      name,
		Platform:  r.platform,
		Device:    name,
		Timestamp: r.now(),
	}
	r.mu.Unlock()
	r.emitEvent(Connected)

	ticker := time.NewTicker(joystickPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		raw, err := js.Read()
		if err != nil {
			return err
		}
		r.update(name, js.ButtonCount(), raw)
	}
}

func (r *JoystickReader) update(name string, numButtons int, raw joystick.State) {
	state := RawState{
		Connected: true,
		Name:      name,
		Platform:  r.platform,
		Device:    name,
		Buttons:   make([]bool, numButtons),
		Axes:      make([]float64, len(raw.AxisData)),
	}
	for i := 0; i < numButtons && i < 32; i++ {
		state.Buttons[i] = raw.Buttons&(1<<uint(i)) != 0
	}
	for i, v := range raw.AxisData {
		state.Axes[i] = NormalizeAxis(int16(max(math.MinInt16, min(math.MaxInt16, v))))
	}

	r.mu.Lock()
	if SameInput(r.state, state) {
		r.mu.Unlock()
		return
	}
	state.Timestamp = r.now()
	r.state = state
	r.mu.Unlock()

	select {
	case r.changes <- state.Clone():
	default:
	}
}

func (r *JoystickReader) now() uint64 {
	return uint64(time.Since(r.started).Nanoseconds()) + 1
}

func (r *JoystickReader) emitEvent(kind EventKind) {
	ev := Event{Kind: kind, State: r.CurrentState()}
	select {
	case r.events <- ev:
	default:
		r.log.Warn("Dropped controller event", zap.Stringer("kind", kind))
	}
}
