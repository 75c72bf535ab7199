package hub

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/soar/remopad/internal/session"
)

const (
	fullSyncInterval = 5 * time.Second
	eventBuffer      = 256
)

// Broadcaster forwards session events to every hub client and sends a full
// status snapshot periodically so late or lossy clients resynchronize.
type Broadcaster struct {
	hub      *Hub
	controls Controls
	events   chan session.Event
	seq      int64
	log      *zap.Logger
}

func NewBroadcaster(h *Hub, controls Controls) *Broadcaster {
	return &Broadcaster{
		hub:      h,
		controls: controls,
		events:   make(chan session.Event, eventBuffer),
		log:      h.log.Named("broadcast"),
	}
}

// Publish queues ev for broadcasting. It never blocks; events are dropped
// when the queue is full.
func (b *Broadcaster) Publish(ev session.Event) {
	select {
	case b.events <- ev:
	default:
		b.log.Warn("Dropped session event", zap.String("type", string(ev.Type)))
	}
}

// Run starts the broadcaster loop until ctx is cancelled. Should be run in
// a goroutine.
func (b *Broadcaster) Run(ctx context.Context) {
	ticker := time.NewTicker(fullSyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case ev := <-b.events:
			b.seq++
			b.send(NewEventMessage(b.seq, ev))

		case <-ticker.C:
			if b.hub.Count() == 0 {
				continue
			}
			st, err := b.controls.Status(ctx)
			if err != nil {
				continue
			}
			b.seq++
			b.send(NewStatusMessage(b.seq, st))
		}
	}
}

// SendInitialState sends the current session status to a newly connected client.
func (b *Broadcaster) SendInitialState(ctx context.Context, c *Client) {
	st, err := b.controls.Status(ctx)
	if err != nil {
		b.log.Warn("Reading session status failed", zap.Error(err))
		return
	}
	data, err := json.Marshal(NewStatusMessage(0, st))
	if err != nil {
		b.log.Error("Error marshaling initial state", zap.Error(err))
		return
	}
	b.hub.SendTo(c, data)
}

func (b *Broadcaster) send(msg *WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		b.log.Error("Error marshaling message", zap.String("type", msg.Type), zap.Error(err))
		return
	}
	b.hub.Broadcast(data)
}
