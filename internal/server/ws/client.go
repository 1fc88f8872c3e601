package ws

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 4096
	sendBufferSize = 256
)

// subscribeMsg changes a client's subscriptions. A non-nil Pool replaces
// the pool filter; an empty Pool clears it.
type subscribeMsg struct {
	Action   string   `json:"action"` // subscribe | unsubscribe
	Channels []string `json:"channels"`
	Pool     *string  `json:"pool,omitempty"`
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu   sync.RWMutex
	subs map[string]bool // exact names or "prefix*" patterns
	pool string
}

func newClient(h *Hub, conn *websocket.Conn, channels []string, pool string) *client {
	c := &client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
		subs: make(map[string]bool, len(channels)),
		pool: strings.ToLower(strings.TrimSpace(pool)),
	}
	for _, ch := range channels {
		c.subs[ch] = true
	}
	return c
}

// wants reports whether an event on channel about poolID should reach c.
// Events without a pool id pass the pool filter.
func (c *client) wants(channel, poolID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.pool != "" && poolID != "" && poolID != c.pool {
		return false
	}
	if c.subs[channel] {
		return true
	}
	for sub := range c.subs {
		if prefix, ok := strings.CutSuffix(sub, "*"); ok && strings.HasPrefix(channel, prefix) {
			return true
		}
	}
	return false
}

func (c *client) handleSubscription(msg subscribeMsg) {
	c.mu.Lock()
	defer c.mu.Unlock()

	on := msg.Action == "subscribe"
	if on || msg.Action == "unsubscribe" {
		for _, ch := range msg.Channels {
			if on {
				c.subs[ch] = true
			} else {
				delete(c.subs, ch)
			}
		}
	}
	if msg.Pool != nil {
		c.pool = strings.ToLower(strings.TrimSpace(*msg.Pool))
	}
}

// readLoop applies subscription messages until the peer goes away.
func (c *client) readLoop() {
	defer func() {
		c.hub.remove(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("connection closed abnormally", "error", err.Error())
			}
			return
		}
		var msg subscribeMsg
		if json.Unmarshal(raw, &msg) == nil {
			c.handleSubscription(msg)
		}
	}
}

// writeLoop drains send into text frames and keeps the connection alive
// with pings. A closed send channel ends the session.
func (c *client) writeLoop() {
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ping.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ping.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
