package ruleset

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soar/remopad/internal/actuator"
	"github.com/soar/remopad/internal/controller"
)

func TestPunisherCollapsesCallsWithinImmunity(t *testing.T) {
	act := &recordingActuator{}
	p := newPunisher(act, actuator.Command{Action: actuator.Beep}, 3*time.Second)
	t0 := time.Unix(1000, 0)

	require.True(t, p.punish(context.Background(), t0))
	assert.False(t, p.punish(context.Background(), t0.Add(10*time.Millisecond)), "call in flight")

	require.NoError(t, <-p.done)
	p.complete(t0.Add(20 * time.Millisecond))

	assert.False(t, p.punish(context.Background(), t0.Add(time.Second)))
	assert.Equal(t, 1, act.count())

	for i := 1; i <= 3; i++ {
		at := t0.Add(20*time.Millisecond + time.Duration(i)*(3*time.Second+time.Millisecond))
		require.True(t, p.punish(context.Background(), at))
		require.NoError(t, <-p.done)
		p.complete(at)
	}
	assert.Equal(t, 4, act.count())
}

func TestPunisherArm(t *testing.T) {
	p := newPunisher(&recordingActuator{}, actuator.Command{}, 0)
	t0 := time.Unix(1000, 0)
	p.arm(t0.Add(time.Second))

	assert.False(t, p.allowed(t0))
	assert.False(t, p.allowed(t0.Add(999*time.Millisecond)))
	assert.True(t, p.allowed(t0.Add(time.Second)))
}

func TestEscalation(t *testing.T) {
	t0 := time.Unix(1000, 0)
	reaction := time.Second

	var e escalation
	e.reset(t0)
	assert.False(t, e.update(controller.Pending, t0.Add(500*time.Millisecond), reaction))
	assert.True(t, e.update(controller.Pending, t0.Add(time.Second), reaction))

	assert.False(t, e.update(controller.Compliant, t0.Add(2*time.Second), reaction))
	assert.False(t, e.update(controller.Pending, t0.Add(3*time.Second), reaction), "pending window restarts")
	assert.False(t, e.update(controller.Pending, t0.Add(3900*time.Millisecond), reaction))
	assert.True(t, e.update(controller.Pending, t0.Add(4*time.Second), reaction))

	assert.True(t, e.update(controller.Violated, t0.Add(4100*time.Millisecond), reaction))
}
