package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/soar/remopad/internal/hub"
	"github.com/soar/remopad/internal/ruleset"
	"github.com/soar/remopad/internal/session"
)

type fakeControls struct {
	startErr error
	visible  bool
}

func (f *fakeControls) StartGame(context.Context) error { return f.startErr }
func (f *fakeControls) StopGame(context.Context) error  { return nil }
func (f *fakeControls) SkipSlot(context.Context) error  { return session.ErrNoWizard }

func (f *fakeControls) SetVisible(_ context.Context, v bool) error {
	f.visible = v
	return nil
}

func (f *fakeControls) Status(context.Context) (session.Status, error) {
	return session.Status{ID: "s1", Phase: session.PhaseReady, Visible: f.visible}, nil
}

func newTestServer(t *testing.T, controls *fakeControls) (*httptest.Server, *hub.Broadcaster) {
	t.Helper()
	log := zaptest.NewLogger(t)
	h := hub.NewHub(log)
	b := hub.NewBroadcaster(h, controls)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go h.Run(done)
	go b.Run(ctx)

	ts := httptest.NewServer(New(h, b, controls, "", log).Handler())
	t.Cleanup(func() {
		ts.Close()
		cancel()
		close(done)
	})
	return ts, b
}

func TestStatusEndpoint(t *testing.T) {
	ts, _ := newTestServer(t, &fakeControls{})

	resp, err := http.Get(ts.URL + "/api/status")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var st session.Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	assert.Equal(t, "s1", st.ID)
	assert.Equal(t, session.PhaseReady, st.Phase)
}

func TestRulesetsEndpoint(t *testing.T) {
	ts, _ := newTestServer(t, &fakeControls{})

	resp, err := http.Get(ts.URL + "/api/rulesets")
	require.NoError(t, err)
	defer resp.Body.Close()

	var kinds []string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&kinds))
	assert.Equal(t, []string{"simon", "stay", "walk"}, kinds)
}

func TestControlErrors(t *testing.T) {
	controls := &fakeControls{startErr: &ruleset.ValidationError{Problems: []string{"Required setting \"buttons\" is missing."}}}
	ts, _ := newTestServer(t, controls)

	resp, err := http.Post(ts.URL+"/api/game/start", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	var body errorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, []string{"Required setting \"buttons\" is missing."}, body.Problems)

	resp2, err := http.Post(ts.URL+"/api/wizard/skip", "application/json", nil)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusConflict, resp2.StatusCode)

	resp3, err := http.Post(ts.URL+"/api/game/stop", "application/json", nil)
	require.NoError(t, err)
	defer resp3.Body.Close()
	assert.Equal(t, http.StatusOK, resp3.StatusCode)

	resp4, err := http.Get(ts.URL + "/api/game/start")
	require.NoError(t, err)
	defer resp4.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp4.StatusCode)
}

func TestVisibilityEndpoint(t *testing.T) {
	controls := &fakeControls{visible: true}
	ts, _ := newTestServer(t, controls)

	resp, err := http.Post(ts.URL+"/api/visibility", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Post(ts.URL+"/api/visibility", "application/json", strings.NewReader(`{"visible": false}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	var st session.Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	assert.False(t, st.Visible)
}

func TestWebSocketFlow(t *testing.T) {
	ts, b := newTestServer(t, &fakeControls{})

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var msg hub.WSMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "status", msg.Type)
	require.NotNil(t, msg.Status)
	assert.Equal(t, "s1", msg.Status.ID)

	require.NoError(t, conn.WriteJSON(hub.ClientMessage{Type: hub.RequestStart}))
	msg = hub.WSMessage{}
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "ack", msg.Type)
	assert.Equal(t, hub.RequestStart, msg.Request)
	assert.Empty(t, msg.Error)

	b.Publish(session.Event{Type: session.EventDesired, Desired: []int{2, 12}})
	msg = hub.WSMessage{}
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "event", msg.Type)
	require.NotNil(t, msg.Event)
	assert.Equal(t, session.EventDesired, msg.Event.Type)
	assert.Equal(t, []int{2, 12}, msg.Event.Desired)
	assert.Positive(t, msg.Seq)
}
