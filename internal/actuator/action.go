// Package actuator issues stimulus commands to remote receivers and talks to
// the settings service that stores gamepad mappings.
package actuator

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Action is a stimulus a receiver can emit. Not every receiver supports
// every action.
type Action string

const (
	Light     Action = "LIGHT"
	Beep      Action = "BEEP"
	Vibrate   Action = "VIBRATE"
	Shock     Action = "SHOCK"
	BeepShock Action = "BEEPSHOCK"
)

// Actions lists every valid action.
var Actions = []Action{Light, Beep, Vibrate, Shock, BeepShock}

// ParseAction parses an action name, case-insensitively.
func ParseAction(s string) (Action, error) {
	a := Action(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Actions {
		if a == known {
			return a, nil
		}
	}
	return "", fmt.Errorf("unknown action %q", s)
}

// Command is one stimulus request.
type Command struct {
	Receiver int
	Action   Action
	// Power is a percentage, 0-100.
	Power    int
	Duration time.Duration
}

func (c Command) String() string {
	return fmt.Sprintf("receiver=%d action=%s power=%d duration=%dms",
		c.Receiver, c.Action, c.Power, c.Duration.Milliseconds())
}

// Actuator sends commands to a receiver.
type Actuator interface {
	Command(ctx context.Context, cmd Command) error
}
