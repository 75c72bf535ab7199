package ruleset

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/soar/remopad/internal/actuator"
)

func TestLookup(t *testing.T) {
	kind, s, err := Lookup(" Simon ")
	require.NoError(t, err)
	assert.Equal(t, KindSimon, kind)
	assert.IsType(t, &simon{}, s)

	_, _, err = Lookup("tag")
	assert.EqualError(t, err, `unknown ruleset "tag"`)

	assert.Equal(t, []Kind{KindSimon, KindStay, KindWalk}, Kinds())
}

func TestValidateReportsEveryProblem(t *testing.T) {
	g, err := NewGame(Config{"ruleset": "stay", "action": "zap"}, nil, nil, zaptest.NewLogger(t))
	require.NoError(t, err)

	problems := g.Validate()
	assert.Len(t, problems, 8)
	assert.Contains(t, problems, `Required setting "immune_ms" is missing or not a number.`)
	assert.Contains(t, problems, `Required setting "shock_power_percent" is missing or not a number.`)
	assert.Contains(t, problems, `Required setting "buttons" is missing.`)

	err = g.Start(context.Background(), time.Now())
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, problems, verr.Problems)
}

func TestValidatePowerRange(t *testing.T) {
	cfg := baseConfig("stay", map[string]string{"buttons": "2", "shock_power_percent": "150"})
	g, err := NewGame(cfg, nil, nil, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, []string{`Setting "shock_power_percent" must be between 0 and 100.`}, g.Validate())
}

func TestValidateInvalidButton(t *testing.T) {
	cfg := baseConfig("walk", map[string]string{"play_buttons": "1 x 40"})
	g, err := NewGame(cfg, nil, nil, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, []string{`Setting "play_buttons" contains invalid button "x".`}, g.Validate())
}

func TestSimonRejectsOverlappingHoldAndPlay(t *testing.T) {
	cfg := baseConfig("simon", map[string]string{"hold_buttons": "1", "play_buttons": "1 3", "pick_interval_s": "2"})
	g, err := NewGame(cfg, nil, nil, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, []string{"Button 1 is both a hold and a play button."}, g.Validate())
}

func TestParseSettingsAliases(t *testing.T) {
	cfg := Config{
		"ruleset":         "simon",
		"immune_ms":       "2500",
		"reaction_ms":     "800",
		"pick_interval_s": "4",
		"receiver":        "3",
		"action":          "Shock",
		"power":           "20",
		"duration":        "300",
		"runtime_min":     "5",
		"buttons":         "1, 3",
		"hold_buttons":    "12",
		"show_timer":      "1",
	}
	assert.Empty(t, validateCommon(cfg))

	s := parseSettings(cfg)
	assert.Equal(t, Settings{
		Immune:       2500 * time.Millisecond,
		Reaction:     800 * time.Millisecond,
		PickInterval: 4 * time.Second,
		Runtime:      5 * time.Minute,
		Command: actuator.Command{
			Receiver: 3, Action: actuator.Shock, Power: 20, Duration: 300 * time.Millisecond,
		},
		Buttons:     []int{1, 3},
		PlayButtons: []int{1, 3},
		HoldButtons: []int{12},
		ShowTimer:   true,
	}, s)
}

func TestConfigMerge(t *testing.T) {
	base := Config{"a": "1", "b": "2"}
	merged := base.Merge(map[string]string{"b": "3", "c": "4"})
	assert.Equal(t, Config{"a": "1", "b": "3", "c": "4"}, merged)
	assert.Equal(t, "2", base["b"])
}

func TestEmptyAliasFallsBack(t *testing.T) {
	cfg := Config{"play_buttons": " ", "buttons": "3"}
	slots, err := cfg.Slots(playKeys...)
	require.NoError(t, err)
	assert.Equal(t, []int{3}, slots)

	cfg = Config{"play_buttons": ""}
	assert.True(t, cfg.Has(playKeys...))
	slots, err = cfg.Slots(playKeys...)
	require.NoError(t, err)
	assert.Empty(t, slots)
}
