package hub

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soar/remopad/internal/session"
)

type fakeControls struct {
	started, stopped, skipped int
	visible                   []bool
	err                       error
}

func (f *fakeControls) StartGame(context.Context) error { f.started++; return f.err }
func (f *fakeControls) StopGame(context.Context) error  { f.stopped++; return f.err }
func (f *fakeControls) SkipSlot(context.Context) error  { f.skipped++; return f.err }

func (f *fakeControls) SetVisible(_ context.Context, v bool) error {
	f.visible = append(f.visible, v)
	return f.err
}

func (f *fakeControls) Status(context.Context) (session.Status, error) {
	return session.Status{ID: "abc", Phase: session.PhaseReady}, f.err
}

func TestHandleRequest(t *testing.T) {
	c := &fakeControls{}
	yes, no := true, false

	for _, typ := range []string{RequestStart, RequestStop, RequestSkip} {
		reply := handleRequest(c, ClientMessage{Type: typ})
		assert.Equal(t, "ack", reply.Type)
		assert.Equal(t, typ, reply.Request)
		assert.Empty(t, reply.Error)
	}
	assert.Equal(t, 1, c.started)
	assert.Equal(t, 1, c.stopped)
	assert.Equal(t, 1, c.skipped)

	handleRequest(c, ClientMessage{Type: RequestVisibility, Visible: &no})
	handleRequest(c, ClientMessage{Type: RequestVisibility, Visible: &yes})
	assert.Equal(t, []bool{false, true}, c.visible)

	reply := handleRequest(c, ClientMessage{Type: RequestVisibility})
	assert.Equal(t, `"visible" is required`, reply.Error)

	reply = handleRequest(c, ClientMessage{Type: RequestStatus})
	assert.Equal(t, "status", reply.Type)
	require.NotNil(t, reply.Status)
	assert.Equal(t, session.PhaseReady, reply.Status.Phase)

	reply = handleRequest(c, ClientMessage{Type: "select_player"})
	assert.Equal(t, `unknown request "select_player"`, reply.Error)
}

func TestHandleRequestError(t *testing.T) {
	c := &fakeControls{err: session.ErrNoController}
	reply := handleRequest(c, ClientMessage{Type: RequestStart})
	assert.Equal(t, session.ErrNoController.Error(), reply.Error)

	c.err = errors.New("boom")
	reply = handleRequest(c, ClientMessage{Type: RequestStatus})
	assert.Equal(t, "ack", reply.Type)
	assert.Equal(t, "boom", reply.Error)
}
