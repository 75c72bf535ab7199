package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/soar/remopad/internal/actuator"
	"github.com/soar/remopad/internal/config"
	"github.com/soar/remopad/internal/gamepad"
	"github.com/soar/remopad/internal/hub"
	"github.com/soar/remopad/internal/server"
	"github.com/soar/remopad/internal/session"
	"github.com/soar/remopad/internal/settings"
	"github.com/soar/remopad/internal/tray"
	"github.com/soar/remopad/internal/wakelock"
)

// Cross-platform signal handling: use os.Interrupt on all platforms
var shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

// reader is a controller input source that polls until ctx is cancelled.
type reader interface {
	session.Reader
	Run(ctx context.Context)
}

func main() {
	cfg, err := config.Load(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	log, err := cfg.Logger()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("remopad failed", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, shutdownSignals...)

	var client *actuator.Client
	if cfg.Actuator.Driver == "http" || cfg.Settings.Backend == "remote" {
		client = actuator.NewClient(cfg.Actuator.URL, cfg.Actuator.Token, cfg.Actuator.Timeout, log)
	}

	act, closeAct := newActuator(cfg, client, log)
	defer closeAct()

	store, gameConfig, closeStore, err := newSettings(cfg, client, log)
	if err != nil {
		return err
	}
	defer closeStore()

	lock, closeLock := newWakeLock(cfg, log)
	defer closeLock()

	input, err := newReader(cfg, log)
	if err != nil {
		return err
	}

	h := hub.NewHub(log)
	var (
		broadcaster *hub.Broadcaster
		icon        *tray.Tray
	)
	sess := session.New(session.Options{
		Reader:     input,
		Settings:   store,
		Actuator:   act,
		WakeLock:   lock,
		GameConfig: gameConfig,
		Log:        log,
		Publisher: session.PublisherFunc(func(ev session.Event) {
			broadcaster.Publish(ev)
			if icon != nil {
				icon.Publish(ev)
			}
		}),
	})
	broadcaster = hub.NewBroadcaster(h, sess)

	hubDone := make(chan struct{})
	go h.Run(hubDone)
	defer close(hubDone)
	go broadcaster.Run(ctx)

	srv := server.New(h, broadcaster, sess, cfg.Listen, log)
	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- err
		}
	}()

	url := "http://localhost" + cfg.Listen
	if !strings.HasPrefix(cfg.Listen, ":") {
		url = "http://" + cfg.Listen
	}
	log.Info("remopad started", zap.String("url", url), zap.String("session", sess.ID()))

	// Channel for tray-triggered shutdown
	shutdownRequested := make(chan struct{})
	if cfg.Tray {
		icon = tray.New(sess, url, func() { close(shutdownRequested) }, log)
		go icon.Run()
		defer icon.Quit()
	} else {
		log.Info("Press Ctrl+C to exit")
	}

	// The SDL reader locks its own OS thread.
	readerDone := make(chan struct{})
	go func() {
		input.Run(ctx)
		close(readerDone)
	}()

	sessionDone := make(chan error, 1)
	go func() {
		sessionDone <- sess.Run(ctx)
	}()

	select {
	case <-sigCh:
		log.Info("Shutting down...")
	case <-shutdownRequested:
		log.Info("Shutdown requested from tray")
	case err := <-serverErrCh:
		log.Error("HTTP server error", zap.Error(err))
	}
	cancel()

	<-readerDone
	<-sessionDone

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP server shutdown error", zap.Error(err))
	}

	log.Info("remopad stopped")
	return nil
}

func newReader(cfg config.Config, log *zap.Logger) (reader, error) {
	if cfg.Input.Driver == "joystick" {
		return gamepad.NewJoystickReader(cfg.Input.Index, log), nil
	}
	return newSDLReader(log)
}

func newActuator(cfg config.Config, client *actuator.Client, log *zap.Logger) (actuator.Actuator, func()) {
	switch cfg.Actuator.Driver {
	case "serial":
		s := actuator.NewSerial(cfg.Actuator.Port, cfg.Actuator.Baud, log)
		return s, func() {
			if err := s.Close(); err != nil {
				log.Warn("Closing serial port failed", zap.Error(err))
			}
		}
	case "log":
		return actuator.NewLog(log), func() {}
	}
	return client, func() {}
}

func newSettings(cfg config.Config, client *actuator.Client, log *zap.Logger) (settings.Provider, session.ConfigSource, func(), error) {
	if cfg.Settings.Backend == "remote" {
		fetch := func(ctx context.Context) (map[string]string, error) {
			rc, err := client.FetchConfig(ctx)
			if err != nil {
				return nil, err
			}
			return rc.Applications["gamepad"], nil
		}
		return client, session.LayeredConfig(fetch, cfg.Game), func() {}, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Settings.Path), 0o755); err != nil {
		return nil, nil, nil, fmt.Errorf("settings dir: %w", err)
	}
	store, err := settings.Open(cfg.Settings.Path, log)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open settings: %w", err)
	}
	closeStore := func() {
		if err := store.Close(); err != nil {
			log.Warn("Closing settings store failed", zap.Error(err))
		}
	}
	return store, session.StaticConfig(cfg.Game), closeStore, nil
}

func newWakeLock(cfg config.Config, log *zap.Logger) (wakelock.Lock, func()) {
	if !cfg.WakeLock {
		return wakelock.Nop{}, func() {}
	}
	inhibitor, err := wakelock.NewInhibitor(log)
	if err != nil {
		log.Warn("Wake lock unavailable", zap.Error(err))
		return wakelock.Nop{}, func() {}
	}
	return inhibitor, func() {
		if err := inhibitor.Close(); err != nil {
			log.Warn("Closing wake lock failed", zap.Error(err))
		}
	}
}
