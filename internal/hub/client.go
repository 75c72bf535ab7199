package hub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/soar/remopad/internal/session"
)

const requestTimeout = 5 * time.Second

// Controls is what clients may ask of the session.
type Controls interface {
	StartGame(ctx context.Context) error
	StopGame(ctx context.Context) error
	SkipSlot(ctx context.Context) error
	SetVisible(ctx context.Context, visible bool) error
	Status(ctx context.Context) (session.Status, error)
}

// Client represents a connected WebSocket client.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	log  *zap.Logger
}

// NewClient creates a new Client attached to the hub.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, 256),
		log:  hub.log.With(zap.String("remote", conn.RemoteAddr().String())),
	}
}

// WritePump sends messages from the send channel to the WebSocket connection.
func (c *Client) WritePump() {
	defer func() {
		c.conn.Close()
	}()

	for msg := range c.send {
		err := c.conn.WriteMessage(websocket.TextMessage, msg)
		if err != nil {
			break
		}
	}
}

// ReadPumpWithHandler reads messages from the WebSocket and handles client commands.
func (c *Client) ReadPumpWithHandler(controls Controls) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			break
		}

		var clientMsg ClientMessage
		if err := json.Unmarshal(message, &clientMsg); err != nil {
			c.log.Warn("Error parsing client message", zap.Error(err))
			continue
		}

		reply := handleRequest(controls, clientMsg)
		data, err := json.Marshal(reply)
		if err != nil {
			c.log.Error("Error marshaling reply", zap.Error(err))
			continue
		}
		if !c.hub.SendTo(c, data) {
			c.log.Debug("Reply dropped", zap.String("request", clientMsg.Type))
		}
	}
}

var errUnknownRequest = errors.New("unknown request")

// handleRequest runs one client request against the session and builds the
// reply.
func handleRequest(controls Controls, msg ClientMessage) *WSMessage {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	var err error
	switch msg.Type {
	case RequestStart:
		err = controls.StartGame(ctx)
	case RequestStop:
		err = controls.StopGame(ctx)
	case RequestSkip:
		err = controls.SkipSlot(ctx)
	case RequestVisibility:
		if msg.Visible == nil {
			err = errors.New(`"visible" is required`)
			break
		}
		err = controls.SetVisible(ctx, *msg.Visible)
	case RequestStatus:
		st, serr := controls.Status(ctx)
		if serr == nil {
			return NewStatusMessage(0, st)
		}
		err = serr
	default:
		err = fmt.Errorf("%w %q", errUnknownRequest, msg.Type)
	}
	return NewAckMessage(msg.Type, err)
}
