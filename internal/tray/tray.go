package tray

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"fyne.io/systray"
	"go.uber.org/zap"

	"github.com/soar/remopad/internal/session"
)

const requestTimeout = 5 * time.Second

// ShutdownFunc is called when "Exit" is clicked
type ShutdownFunc func()

// Controls is the part of the session the menu drives.
type Controls interface {
	StartGame(ctx context.Context) error
	StopGame(ctx context.Context) error
}

// Tray manages the system tray icon and menu
type Tray struct {
	shutdownFunc ShutdownFunc
	controls     Controls
	url          string
	log          *zap.Logger
	once         sync.Once
	shuttingDown atomic.Bool
	ready        atomic.Bool
	state        atomic.Value // iconState
	menuStart    *systray.MenuItem
	menuStop     *systray.MenuItem
	menuOpen     *systray.MenuItem
	menuExit     *systray.MenuItem
}

// New creates a new Tray instance
func New(controls Controls, url string, shutdownFn ShutdownFunc, log *zap.Logger) *Tray {
	t := &Tray{
		shutdownFunc: shutdownFn,
		controls:     controls,
		url:          url,
		log:          log.Named("tray"),
	}
	t.state.Store(stateIdle)
	return t
}

// Run initializes and runs the system tray (blocks until Quit())
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit removes the tray icon.
func (t *Tray) Quit() {
	if t.ready.Load() {
		systray.Quit()
	}
}

// onReady is called when the tray is ready
func (t *Tray) onReady() {
	systray.SetTitle("remopad")

	t.menuStart = systray.AddMenuItem("Start game", "Start a game with the configured ruleset")
	t.menuStop = systray.AddMenuItem("Stop game", "Stop the running game")
	systray.AddSeparator()
	t.menuOpen = systray.AddMenuItem("Open status", "Open the status endpoint")
	t.menuExit = systray.AddMenuItem("Exit", "Quit application")

	t.ready.Store(true)
	t.apply(t.state.Load().(iconState))

	// Handle menu clicks in separate goroutines to prevent blocking
	go t.handleMenuClicks()

	t.log.Info("System tray initialized")
}

// handleMenuClicks processes menu item clicks without blocking
func (t *Tray) handleMenuClicks() {
	for {
		select {
		case <-t.menuStart.ClickedCh:
			t.request("start", t.controls.StartGame)
		case <-t.menuStop.ClickedCh:
			t.request("stop", t.controls.StopGame)
		case <-t.menuOpen.ClickedCh:
			if !t.shuttingDown.Load() {
				t.openBrowser()
			}
		case <-t.menuExit.ClickedCh:
			if t.shuttingDown.CompareAndSwap(false, true) {
				t.once.Do(t.shutdownFunc)
				systray.Quit()
				return
			}
		}
	}
}

func (t *Tray) request(name string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		t.log.Warn("Tray request failed", zap.String("request", name), zap.Error(err))
		systray.SetTooltip(fmt.Sprintf("remopad: %v", err))
	}
}

// Publish follows session events to keep the icon and menu current.
func (t *Tray) Publish(ev session.Event) {
	next, ok := nextState(t.state.Load().(iconState), ev)
	if !ok {
		return
	}
	t.state.Store(next)
	if t.ready.Load() {
		t.apply(next)
	}
}

func (t *Tray) apply(s iconState) {
	systray.SetIcon(s.icon())
	systray.SetTooltip("remopad: " + s.String())
	if s == statePlaying || s == stateAlert {
		t.menuStart.Disable()
		t.menuStop.Enable()
	} else {
		t.menuStart.Enable()
		t.menuStop.Disable()
	}
}

// onExit is called when the tray is exiting
func (t *Tray) onExit() {
	t.shuttingDown.Store(true)
	t.log.Info("System tray exiting")
}

// openBrowser opens the status endpoint in the default web browser
func (t *Tray) openBrowser() {
	// Prevent multiple browser launches during shutdown
	if t.shuttingDown.Load() {
		return
	}

	url := t.url + "/api/status"
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	case "darwin":
		cmd = exec.Command("open", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}

	if err := cmd.Start(); err != nil {
		t.log.Warn("Failed to open browser", zap.Error(err))
	}
}
