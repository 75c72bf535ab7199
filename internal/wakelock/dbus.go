// Package wakelock keeps the display awake while a game runs.
package wakelock

import (
	"fmt"

	"github.com/godbus/dbus/v5"
	"go.uber.org/zap"
)

const (
	screenSaverDest  = "org.freedesktop.ScreenSaver"
	screenSaverPath  = dbus.ObjectPath("/org/freedesktop/ScreenSaver")
	inhibitMethod    = screenSaverDest + ".Inhibit"
	unInhibitMethod  = screenSaverDest + ".UnInhibit"
	applicationName  = "remopad"
	inhibitionReason = "game in progress"
)

// Lock is a display wake resource.
type Lock interface {
	Acquire() error
	Release() error
}

// Inhibitor holds an org.freedesktop.ScreenSaver inhibition on the session bus.
type Inhibitor struct {
	conn   *dbus.Conn
	cookie uint32
	held   bool
	log    *zap.Logger
}

// NewInhibitor connects to the session bus.
func NewInhibitor(log *zap.Logger) (*Inhibitor, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w", err)
	}
	return &Inhibitor{conn: conn, log: log.Named("wakelock")}, nil
}

func (i *Inhibitor) object() dbus.BusObject {
	return i.conn.Object(screenSaverDest, screenSaverPath)
}

// Acquire inhibits the screensaver. Acquiring twice is a no-op.
func (i *Inhibitor) Acquire() error {
	if i.held {
		return nil
	}
	var cookie uint32
	if err := i.object().Call(inhibitMethod, 0, applicationName, inhibitionReason).Store(&cookie); err != nil {
		return fmt.Errorf("inhibit screensaver: %w", err)
	}
	i.cookie, i.held = cookie, true
	i.log.Debug("Screensaver inhibited", zap.Uint32("cookie", cookie))
	return nil
}

// Release lifts the inhibition if one is held.
func (i *Inhibitor) Release() error {
	if !i.held {
		return nil
	}
	i.held = false
	if err := i.object().Call(unInhibitMethod, 0, i.cookie).Err; err != nil {
		return fmt.Errorf("uninhibit screensaver: %w", err)
	}
	i.log.Debug("Screensaver inhibition released", zap.Uint32("cookie", i.cookie))
	return nil
}

// Close releases the inhibition and closes the bus connection.
func (i *Inhibitor) Close() error {
	err := i.Release()
	if cerr := i.conn.Close(); err == nil {
		err = cerr
	}
	return err
}

// Nop is a Lock that does nothing, for systems without a session bus.
type Nop struct{}

func (Nop) Acquire() error { return nil }
func (Nop) Release() error { return nil }
