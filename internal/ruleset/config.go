package ruleset

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/soar/remopad/internal/actuator"
	"github.com/soar/remopad/internal/gamepad"
)

// Config is the flat key/value bag a game is configured from.
type Config map[string]string

// Merge returns a copy of c with every key of over applied on top.
func (c Config) Merge(over map[string]string) Config {
	out := make(Config, len(c)+len(over))
	for k, v := range c {
		out[k] = v
	}
	for k, v := range over {
		out[k] = v
	}
	return out
}

// lookup returns the first key of keys with a non-empty value. When all of
// them are empty, the first key present is returned.
func (c Config) lookup(keys ...string) (string, string, bool) {
	present := ""
	for _, k := range keys {
		v, ok := c[k]
		if !ok {
			continue
		}
		if v = strings.TrimSpace(v); v != "" {
			return k, v, true
		}
		if present == "" {
			present = k
		}
	}
	if present != "" {
		return present, "", true
	}
	return keys[0], "", false
}

// Int parses the first set key of keys as an integer.
func (c Config) Int(keys ...string) (int, bool) {
	_, v, ok := c.lookup(keys...)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	return n, err == nil
}

// Slots parses a space/comma delimited list of logical slots.
func (c Config) Slots(keys ...string) ([]int, error) {
	key, v, _ := c.lookup(keys...)
	var slots []int
	for _, f := range gamepad.Fields(v) {
		n, err := strconv.Atoi(f)
		if err != nil || n < 0 || n >= gamepad.SlotCount {
			return nil, fmt.Errorf("Setting %q contains invalid button %q.", key, f)
		}
		slots = append(slots, n)
	}
	return slots, nil
}

// Bool parses key as a boolean, false when unset or invalid.
func (c Config) Bool(key string) bool {
	b, _ := strconv.ParseBool(strings.TrimSpace(c[key]))
	return b
}

// Has reports whether any of keys is present, even if empty.
func (c Config) Has(keys ...string) bool {
	_, _, ok := c.lookup(keys...)
	return ok
}

const (
	keyRuleset      = "ruleset"
	keyImmune       = "immune_ms"
	keyReaction     = "reaction_ms"
	keyPickInterval = "pick_interval_s"
	keyAction       = "action"
	keyReceiver     = "receiver"
	keyRuntime      = "runtime_min"
	keyShowTimer    = "show_timer"
	keyButtons      = "buttons"
	keyHoldButtons  = "hold_buttons"
	keyPlayButtons  = "play_buttons"
)

var (
	powerKeys    = []string{"shock_power_percent", "power"}
	durationKeys = []string{"duration_ms", "duration"}
	playKeys     = []string{keyPlayButtons, keyButtons}
)

// Settings is the validated, typed form of a Config. It does not change
// while a game runs.
type Settings struct {
	Immune       time.Duration
	Reaction     time.Duration
	PickInterval time.Duration
	Runtime      time.Duration
	Command      actuator.Command
	Buttons      []int
	PlayButtons  []int
	HoldButtons  []int
	ShowTimer    bool
}

func requireInt(c Config, problems []string, keys ...string) []string {
	if _, ok := c.Int(keys...); !ok {
		problems = append(problems, fmt.Sprintf("Required setting %q is missing or not a number.", keys[0]))
	}
	return problems
}

func requireSlots(c Config, problems []string, keys ...string) []string {
	if _, v, ok := c.lookup(keys...); !ok || v == "" {
		return append(problems, fmt.Sprintf("Required setting %q is missing.", keys[0]))
	}
	if _, err := c.Slots(keys...); err != nil {
		problems = append(problems, err.Error())
	}
	return problems
}

// validateCommon checks the settings every ruleset needs.
func validateCommon(c Config) []string {
	var problems []string
	problems = requireInt(c, problems, keyImmune)
	problems = requireInt(c, problems, keyReceiver)
	if _, err := actuator.ParseAction(c[keyAction]); err != nil {
		problems = append(problems, fmt.Sprintf(
			"Required setting %q is missing or not one of LIGHT, BEEP, VIBRATE, SHOCK, BEEPSHOCK.", keyAction))
	}
	if p, ok := c.Int(powerKeys...); !ok {
		problems = requireInt(c, problems, powerKeys...)
	} else if p < 0 || p > 100 {
		problems = append(problems, fmt.Sprintf("Setting %q must be between 0 and 100.", powerKeys[0]))
	}
	problems = requireInt(c, problems, durationKeys...)
	problems = requireInt(c, problems, keyRuntime)
	return problems
}

// parseSettings converts an already validated config.
func parseSettings(c Config) Settings {
	ms := func(keys ...string) time.Duration {
		n, _ := c.Int(keys...)
		return time.Duration(n) * time.Millisecond
	}
	slots := func(keys ...string) []int {
		s, _ := c.Slots(keys...)
		return s
	}

	action, _ := actuator.ParseAction(c[keyAction])
	receiver, _ := c.Int(keyReceiver)
	power, _ := c.Int(powerKeys...)
	pick, _ := c.Int(keyPickInterval)
	runtime, _ := c.Int(keyRuntime)

	return Settings{
		Immune:       ms(keyImmune),
		Reaction:     ms(keyReaction),
		PickInterval: time.Duration(pick) * time.Second,
		Runtime:      time.Duration(runtime) * time.Minute,
		Command: actuator.Command{
			Receiver: receiver,
			Action:   action,
			Power:    power,
			Duration: ms(durationKeys...),
		},
		Buttons:     slots(keyButtons),
		PlayButtons: slots(playKeys...),
		HoldButtons: slots(keyHoldButtons),
		ShowTimer:   c.Bool(keyShowTimer),
	}
}

// ValidationError lists every configuration problem found before a start.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid game configuration: " + strings.Join(e.Problems, " ")
}
