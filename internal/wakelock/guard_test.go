package wakelock

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type countingLock struct {
	acquired, released int
	err                error
}

func (l *countingLock) Acquire() error {
	if l.err != nil {
		return l.err
	}
	l.acquired++
	return nil
}

func (l *countingLock) Release() error {
	l.released++
	return nil
}

func TestGuardFollowsVisibility(t *testing.T) {
	lock := &countingLock{}
	g := NewGuard(lock, zaptest.NewLogger(t))

	require.NoError(t, g.Want())
	assert.True(t, g.Held())
	require.NoError(t, g.Want())
	assert.Equal(t, 1, lock.acquired)

	require.NoError(t, g.SetVisible(false))
	assert.False(t, g.Held())
	assert.Equal(t, 1, lock.released)

	require.NoError(t, g.SetVisible(true))
	assert.True(t, g.Held())
	assert.Equal(t, 2, lock.acquired)

	require.NoError(t, g.Unwant())
	assert.False(t, g.Held())
	assert.Equal(t, 2, lock.released)

	require.NoError(t, g.SetVisible(false))
	require.NoError(t, g.SetVisible(true))
	assert.Equal(t, 2, lock.acquired, "not wanted, so not re-acquired")
}

func TestGuardAcquireFailure(t *testing.T) {
	lock := &countingLock{err: errors.New("no session bus")}
	g := NewGuard(lock, zaptest.NewLogger(t))

	assert.EqualError(t, g.Want(), "no session bus")
	assert.False(t, g.Held())

	lock.err = nil
	require.NoError(t, g.SetVisible(true))
	assert.True(t, g.Held(), "still wanted, acquired on next change")
}

func TestNop(t *testing.T) {
	var l Lock = Nop{}
	assert.NoError(t, l.Acquire())
	assert.NoError(t, l.Release())
}
