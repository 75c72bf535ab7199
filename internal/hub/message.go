package hub

import (
	"time"

	"github.com/soar/remopad/internal/session"
)

// WSMessage represents a WebSocket message sent from server to client.
type WSMessage struct {
	Type      string          `json:"type"`      // "event", "status" or "ack"
	Seq       int64           `json:"seq"`       // Sequence number for ordering
	Timestamp int64           `json:"timestamp"` // Unix timestamp in milliseconds
	Event     *session.Event  `json:"event,omitempty"`
	Status    *session.Status `json:"status,omitempty"`
	Request   string          `json:"request,omitempty"` // Client request type for "ack"
	Error     string          `json:"error,omitempty"`
}

// NewEventMessage wraps a session event.
func NewEventMessage(seq int64, ev session.Event) *WSMessage {
	return &WSMessage{
		Type:      "event",
		Seq:       seq,
		Timestamp: time.Now().UnixMilli(),
		Event:     &ev,
	}
}

// NewStatusMessage creates a "status" message carrying a full session snapshot.
func NewStatusMessage(seq int64, st session.Status) *WSMessage {
	return &WSMessage{
		Type:      "status",
		Seq:       seq,
		Timestamp: time.Now().UnixMilli(),
		Status:    &st,
	}
}

// NewAckMessage answers a client request.
func NewAckMessage(request string, err error) *WSMessage {
	msg := &WSMessage{
		Type:      "ack",
		Timestamp: time.Now().UnixMilli(),
		Request:   request,
	}
	if err != nil {
		msg.Error = err.Error()
	}
	return msg
}

// Client request types.
const (
	RequestStart      = "start"
	RequestStop       = "stop"
	RequestSkip       = "skip"
	RequestVisibility = "visibility"
	RequestStatus     = "status"
)

// ClientMessage represents a message sent from the client to the server.
type ClientMessage struct {
	Type    string `json:"type"`
	Visible *bool  `json:"visible,omitempty"`
}
