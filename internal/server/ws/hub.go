// Package ws pushes metrics and alert events from the signal bus to
// WebSocket clients.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/akbaridria/obrix/internal/domain"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// envelope wraps every frame pushed to clients.
type envelope struct {
	Type    string          `json:"type"`
	Channel string          `json:"channel,omitempty"`
	Payload json.RawMessage `json:"payload"`
}

// broadcastMsg is an encoded frame plus the routing data used to filter it.
type broadcastMsg struct {
	channel string
	data    []byte
	poolID  string
}

// Config lists the bus channels to bridge and the metadata sent in the
// status frame on connect.
type Config struct {
	Channels  []string
	Mode      string
	StartedAt time.Time
}

// Hub tracks connected clients and fans bus events out to them.
type Hub struct {
	bus       domain.SignalBus
	logger    *slog.Logger
	channels  []string
	mode      string
	startedAt time.Time

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
}

// NewHub creates a hub. Run must be started for events to flow.
func NewHub(bus domain.SignalBus, logger *slog.Logger, cfg Config) *Hub {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = "unknown"
	}
	startedAt := cfg.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now().UTC()
	}
	return &Hub{
		bus:       bus,
		logger:    logger.With(slog.String("component", "ws")),
		channels:  cfg.Channels,
		mode:      mode,
		startedAt: startedAt,
		clients:   make(map[*client]struct{}),
	}
}

// Run subscribes to every configured channel and forwards events until ctx
// is cancelled, then disconnects all clients.
func (h *Hub) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for _, ch := range h.channels {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.pump(ctx, ch)
		}()
	}

	<-ctx.Done()
	wg.Wait()

	h.mu.Lock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	return ctx.Err()
}

// pump forwards one bus channel to the matching clients.
func (h *Hub) pump(ctx context.Context, channel string) {
	events, err := h.bus.Subscribe(ctx, channel)
	if err != nil {
		h.logger.ErrorContext(ctx, "subscribe failed",
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
		return
	}
	h.logger.InfoContext(ctx, "bridging channel", slog.String("channel", channel))

	for {
		var data []byte
		select {
		case <-ctx.Done():
			return
		case d, ok := <-events:
			if !ok {
				h.logger.WarnContext(ctx, "subscription closed", slog.String("channel", channel))
				return
			}
			data = d
		}

		msg, err := wrap(channel, data)
		if err != nil {
			h.logger.WarnContext(ctx, "dropping malformed event",
				slog.String("channel", channel),
				slog.String("error", err.Error()),
			)
			continue
		}
		h.deliver(msg)
	}
}

func (h *Hub) deliver(msg broadcastMsg) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if !c.wants(msg.channel, msg.poolID) {
			continue
		}
		select {
		case c.send <- msg.data:
		default:
			h.logger.Warn("client too slow, event dropped", slog.String("channel", msg.channel))
		}
	}
}

// wrap encodes the envelope for an event and pulls out its pool id.
func wrap(channel string, data []byte) (broadcastMsg, error) {
	var probe struct {
		PoolID string `json:"poolId"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return broadcastMsg{}, err
	}
	out, err := json.Marshal(envelope{
		Type:    strings.TrimPrefix(channel, "ch:"),
		Channel: channel,
		Payload: data,
	})
	if err != nil {
		return broadcastMsg{}, err
	}
	return broadcastMsg{channel: channel, data: out, poolID: strings.ToLower(probe.PoolID)}, nil
}

// HandleWS upgrades the request and starts streaming. ?pool= narrows the
// stream to one pool.
// GET /ws
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("upgrade failed", slog.String("error", err.Error()))
		return
	}

	c := newClient(h, conn, h.channels, r.URL.Query().Get("pool"))
	c.send <- h.statusFrame()
	if !h.add(c) {
		_ = conn.Close()
		return
	}

	go c.writeLoop()
	go c.readLoop()
}

func (h *Hub) add(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	h.logger.Info("client connected", slog.Int("clients", len(h.clients)))
	return true
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	h.logger.Info("client disconnected", slog.Int("clients", len(h.clients)))
}

// statusFrame lets clients mark the connection healthy before the first
// event arrives.
func (h *Hub) statusFrame() []byte {
	uptime := time.Since(h.startedAt)
	if uptime < 0 {
		uptime = 0
	}
	payload, _ := json.Marshal(map[string]any{
		"mode":           h.mode,
		"uptime_seconds": int64(uptime.Seconds()),
		"channels":       h.channels,
	})
	frame, _ := json.Marshal(envelope{Type: "status", Payload: payload})
	return frame
}
