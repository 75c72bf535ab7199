package session

import (
	"time"

	"github.com/soar/remopad/internal/gamepad"
)

// EventType names a session event.
type EventType string

const (
	EventConnected    EventType = "connected"
	EventDisconnected EventType = "disconnected"
	EventInput        EventType = "input"
	EventWizard       EventType = "wizard"
	EventMapped       EventType = "mapped"
	EventGameStarted  EventType = "game_started"
	EventCompliance   EventType = "compliance"
	EventDesired      EventType = "desired"
	EventPunishing    EventType = "punishing"
	EventPunished     EventType = "punished"
	EventGameStopped  EventType = "game_stopped"
	EventError        EventType = "error"
)

// Event is published to observers such as websocket clients.
type Event struct {
	Type      EventType         `json:"type"`
	Session   string            `json:"session"`
	Timestamp int64             `json:"timestamp"` // Unix milliseconds
	State     *gamepad.RawState `json:"state,omitempty"`
	Wizard    *WizardStatus     `json:"wizard,omitempty"`
	Mapping   string            `json:"mapping,omitempty"`
	Ruleset   string            `json:"ruleset,omitempty"`
	Status    string            `json:"status,omitempty"`
	Desired   []int             `json:"desired,omitempty"`
	// RemainingMS is only set when the ruleset shows its timer.
	RemainingMS *int64 `json:"remainingMs,omitempty"`
	Command     string `json:"command,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Publisher receives session events. Publish must not block.
type Publisher interface {
	Publish(Event)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(Event)

func (f PublisherFunc) Publish(ev Event) { f(ev) }

// Phase is the coarse state of a session.
type Phase string

const (
	PhaseDisconnected Phase = "disconnected"
	PhaseMapping      Phase = "mapping"
	PhaseReady        Phase = "ready"
	PhasePlaying      Phase = "playing"
	// PhaseLookupFailed means the stored mappings could not be read. The
	// lookup is retried; the wizard is not started.
	PhaseLookupFailed Phase = "lookup_failed"
)

// WizardStatus describes the mapping wizard's progress.
type WizardStatus struct {
	Slot     int    `json:"slot"`
	SlotName string `json:"slotName"`
	Phase    string `json:"phase"`
	Done     int    `json:"done"`
	Total    int    `json:"total"`
}

// GameStatus describes a running game.
type GameStatus struct {
	Ruleset     string `json:"ruleset"`
	Desired     []int  `json:"desired"`
	RemainingMS int64  `json:"remainingMs"`
}

// Status is a point-in-time view of the session.
type Status struct {
	ID       string        `json:"id"`
	Phase    Phase         `json:"phase"`
	Platform string        `json:"platform,omitempty"`
	Device   string        `json:"device,omitempty"`
	Mapping  string        `json:"mapping,omitempty"`
	Wizard   *WizardStatus `json:"wizard,omitempty"`
	Game     *GameStatus   `json:"game,omitempty"`
	WakeLock bool          `json:"wakeLock"`
	Visible  bool          `json:"visible"`
}

func millis(t time.Time) int64 {
	return t.UnixMilli()
}
