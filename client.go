// client.go
// The read goroutine decodes envelopes from the browser and hands them to the manager loop.
// The write goroutine drains the client's send queue back to the browser and keeps the
// connection alive with pings.
// Separating read/write avoids head-of-line blocking when a browser is slow.

package main

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
)

// Limits tunes every connection pump.
type Limits struct {
	SendBuffer     int
	MaxMessageSize int64
	WriteWait      time.Duration
	PongWait       time.Duration
}

func (l Limits) pingInterval() time.Duration {
	return (l.PongWait * 9) / 10
}

func (c *Client) read(limits Limits) {
	defer func() {
		c.manager.Unregister(c)
		c.socket.Close()
	}()

	c.socket.SetReadLimit(limits.MaxMessageSize)
	_ = c.socket.SetReadDeadline(time.Now().Add(limits.PongWait))
	c.socket.SetPongHandler(func(string) error {
		return c.socket.SetReadDeadline(time.Now().Add(limits.PongWait))
	})

	for {
		_, data, err := c.socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Warn("Unexpected close", "error", err)
			}
			return
		}
		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil || env.Event == "" {
			c.log.Debug("Dropped malformed frame", "error", err)
			continue
		}
		c.manager.Dispatch(c, env)
	}
}

func (c *Client) write(limits Limits) {
	ticker := time.NewTicker(limits.pingInterval())
	defer func() {
		ticker.Stop()
		c.socket.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.socket.SetWriteDeadline(time.Now().Add(limits.WriteWait))
			if !ok {
				_ = c.socket.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.socket.WriteMessage(websocket.TextMessage, message); err != nil {
				c.log.Debug("Write failed", "error", err)
				return
			}
		case <-ticker.C:
			if err := c.socket.WriteControl(websocket.PingMessage, nil, time.Now().Add(limits.WriteWait)); err != nil {
				c.log.Debug("Ping failed", "error", err)
				return
			}
		}
	}
}

// enqueue never blocks. A full queue drops the frame; the rest of the fan-out
// carries on. Only the manager loop calls it, and only for registered clients.
func (c *Client) enqueue(frame []byte) bool {
	select {
	case c.send <- frame:
		return true
	default:
		c.log.Warn("Send queue full, frame dropped")
		return false
	}
}
