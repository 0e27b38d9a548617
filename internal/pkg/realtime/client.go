package realtime

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/flexlog/flexchat/internal/app/services"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum frame size allowed from peer; inbound frames are control
	// frames, never content
	maxMessageSize = 4 * 1024
)

var (
	newline = []byte{'\n'}
	space   = []byte{' '}
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allow all origins for development, in production you should restrict this
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// clientFrame is an inbound control frame. Clients report input activity
// over the socket; content writes go through the HTTP API.
type clientFrame struct {
	Type string `json:"type"`
}

const (
	frameTyping     = "typing"
	frameTypingStop = "typing_stop"
	frameHeartbeat  = "heartbeat"
)

// Client is a middleman between the websocket connection and the hub
type Client struct {
	hub *Hub

	conn *websocket.Conn

	// Buffered channel of outbound signals
	send chan []byte

	userID int64

	conversationID int64

	typing services.TypingService

	presence services.PresenceService

	logger zerolog.Logger
}

// readPump consumes control frames from the peer. Any inbound frame counts
// as user activity for presence.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.presence.Disconnect(context.Background(), c.userID)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Info().
					Int64("userID", c.userID).
					Int64("conversationID", c.conversationID).
					Msg("WebSocket closed normally")
			} else if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn().
					Err(err).
					Int64("userID", c.userID).
					Int64("conversationID", c.conversationID).
					Msg("Unexpected WebSocket close")
			} else {
				c.logger.Debug().
					Err(err).
					Int64("userID", c.userID).
					Int64("conversationID", c.conversationID).
					Msg("WebSocket read error")
			}
			break
		}

		message = bytes.TrimSpace(bytes.Replace(message, newline, space, -1))
		c.presence.Touch(context.Background(), c.userID)

		var frame clientFrame
		if err := json.Unmarshal(message, &frame); err != nil {
			c.logger.Debug().
				Err(err).
				Int64("userID", c.userID).
				Msg("Ignored malformed client frame")
			continue
		}

		switch frame.Type {
		case frameTyping:
			c.typing.SetTyping(context.Background(), c.conversationID, c.userID)
		case frameTypingStop:
			c.typing.ClearTyping(context.Background(), c.conversationID, c.userID)
		case frameHeartbeat:
			c.presence.Heartbeat(context.Background(), c.userID, &c.conversationID)
		default:
			c.logger.Debug().
				Str("type", frame.Type).
				Int64("userID", c.userID).
				Msg("Ignored unknown client frame")
		}
	}
}

// writePump pumps signals from the hub to the websocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued signals
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write(newline)
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
