package wakelock

import "go.uber.org/zap"

// Guard tracks whether the lock is wanted and whether the operator can see
// the application. The lock is held only while both are true; it is given
// up on hide and taken again on show.
type Guard struct {
	lock    Lock
	wanted  bool
	visible bool
	held    bool
	log     *zap.Logger
}

// NewGuard wraps lock. The application starts visible.
func NewGuard(lock Lock, log *zap.Logger) *Guard {
	return &Guard{lock: lock, visible: true, log: log.Named("wakelock")}
}

// Want asks for the lock, typically when a game starts.
func (g *Guard) Want() error {
	g.wanted = true
	return g.sync()
}

// Unwant gives the lock up, typically when a game stops.
func (g *Guard) Unwant() error {
	g.wanted = false
	return g.sync()
}

// SetVisible records a visibility change.
func (g *Guard) SetVisible(visible bool) error {
	g.visible = visible
	return g.sync()
}

// Held reports whether the lock is currently held.
func (g *Guard) Held() bool {
	return g.held
}

func (g *Guard) sync() error {
	want := g.wanted && g.visible
	switch {
	case want && !g.held:
		if err := g.lock.Acquire(); err != nil {
			g.log.Warn("Wake lock acquire failed", zap.Error(err))
			return err
		}
		g.held = true
		g.log.Info("Wake lock acquired")
	case !want && g.held:
		g.held = false
		if err := g.lock.Release(); err != nil {
			g.log.Warn("Wake lock release failed", zap.Error(err))
			return err
		}
		g.log.Info("Wake lock released")
	}
	return nil
}
