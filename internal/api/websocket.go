package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/lightsync/internal/device"
	"github.com/nerrad567/lightsync/internal/infrastructure/config"
	"github.com/nerrad567/lightsync/internal/infrastructure/logging"
	"github.com/nerrad567/lightsync/internal/mirror"
)

// Message types of the event stream.
const (
	WSTypeSubscribe   = "subscribe"
	WSTypeUnsubscribe = "unsubscribe"
	WSTypePing        = "ping"
	WSTypePong        = "pong"
	WSTypeEvent       = "event"
	WSTypeResponse    = "response"
	WSTypeError       = "error"
)

// Event channels.
const (
	// ChannelStateForwarded carries every state the sink accepted.
	ChannelStateForwarded = "mirror.state_forwarded"

	// ChannelSnapshot delivers the last forwarded state per source once,
	// right after a client subscribes to it.
	ChannelSnapshot = "mirror.snapshot"
)

const (
	// outboxSize is the number of queued messages per subscriber. A
	// subscriber that falls further behind loses events.
	outboxSize = 256

	// Used when the matching WebSocketConfig field is not positive.
	defaultPingInterval   = 30 * time.Second
	defaultPongTimeout    = 10 * time.Second
	defaultMaxMessageSize = 8192
)

// WSMessage is the envelope of every message on the stream.
type WSMessage struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	EventType string `json:"event_type,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// WSSubscribePayload lists the channels of a subscribe or unsubscribe request.
type WSSubscribePayload struct {
	Channels []string `json:"channels"`
}

// inbound is a client request. The payload is decoded per message type.
type inbound struct {
	Type    string          `json:"type"`
	ID      string          `json:"id"`
	Payload json.RawMessage `json:"payload"`
}

// snapshotFunc returns the last forwarded state per source.
type snapshotFunc func() map[string]device.LightState

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Read-only stream on a local listener; browsers on any origin may watch.
	CheckOrigin: func(_ *http.Request) bool { return true },
}

// Hub fans forward events out to WebSocket subscribers.
// It implements mirror.Observer.
//
// Thread Safety: All methods are safe for concurrent use.
type Hub struct {
	keepalive keepalive
	readLimit int64
	logger    *logging.Logger

	mu   sync.RWMutex
	subs map[*subscriber]struct{}
}

// NewHub creates a hub with no subscribers. Unset keepalive and size
// settings fall back to 30s ping, 10s pong and 8 KiB messages.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	readLimit := int64(cfg.MaxMessageSize)
	if readLimit <= 0 {
		readLimit = defaultMaxMessageSize
	}
	return &Hub{
		keepalive: keepaliveFrom(cfg),
		readLimit: readLimit,
		logger:    logger,
		subs:      make(map[*subscriber]struct{}),
	}
}

// Run blocks until ctx is done, then disconnects every subscriber.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()

	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs {
		delete(h.subs, sub)
		sub.stop()
		sub.conn.Close()
	}
}

// OnForward broadcasts event on ChannelStateForwarded.
func (h *Hub) OnForward(_ context.Context, event mirror.ForwardEvent) error {
	h.Broadcast(ChannelStateForwarded, event)
	return nil
}

// Broadcast queues an event for every subscriber of channel.
// Subscribers with a full outbox skip the event.
func (h *Hub) Broadcast(channel string, payload any) {
	data, err := encodeMessage(WSMessage{Type: WSTypeEvent, EventType: channel, Payload: payload})
	if err != nil {
		h.logger.Error("encoding stream event", "channel", channel, "error", err)
		return
	}

	h.mu.RLock()
	recipients := make([]*subscriber, 0, len(h.subs))
	for sub := range h.subs {
		if sub.wants(channel) {
			recipients = append(recipients, sub)
		}
	}
	h.mu.RUnlock()

	for _, sub := range recipients {
		sub.enqueue(data)
	}
	if len(recipients) > 0 {
		h.logger.Debug("stream event sent", "channel", channel, "recipients", len(recipients))
	}
}

// ClientCount returns the number of connected subscribers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *Hub) add(sub *subscriber) {
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	n := len(h.subs)
	h.mu.Unlock()
	h.logger.Debug("stream subscriber connected", "subscribers", n)
}

// remove drops sub and stops its write loop. Run may already have done both.
func (h *Hub) remove(sub *subscriber) {
	h.mu.Lock()
	_, ok := h.subs[sub]
	if ok {
		delete(h.subs, sub)
	}
	sub.stop()
	n := len(h.subs)
	h.mu.Unlock()
	if ok {
		h.logger.Debug("stream subscriber disconnected", "subscribers", n)
	}
}

// handleWebSocket upgrades the request and attaches a subscriber to the hub.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	sub := &subscriber{
		hub:      s.hub,
		conn:     conn,
		outbox:   make(chan []byte, outboxSize),
		done:     make(chan struct{}),
		channels: make(map[string]struct{}),
		snapshot: s.syncer.LastForwarded,
	}
	s.hub.add(sub)

	go sub.writeLoop()
	go sub.readLoop()
}

// keepalive holds the ping cadence of a connection.
type keepalive struct {
	ping time.Duration
	pong time.Duration
}

func keepaliveFrom(cfg config.WebSocketConfig) keepalive {
	k := keepalive{
		ping: time.Duration(cfg.PingInterval) * time.Second,
		pong: time.Duration(cfg.PongTimeout) * time.Second,
	}
	if k.ping <= 0 {
		k.ping = defaultPingInterval
	}
	if k.pong <= 0 {
		k.pong = defaultPongTimeout
	}
	return k
}

// readDeadline is how long a connection may stay silent.
func (k keepalive) readDeadline() time.Time {
	return time.Now().Add(k.ping + k.pong)
}

// writeDeadline bounds a single frame write.
func (k keepalive) writeDeadline() time.Time {
	return time.Now().Add(k.pong)
}

// subscriber is one connected stream client.
//
// outbox is never closed; done signals the write loop to stop.
type subscriber struct {
	hub      *Hub
	conn     *websocket.Conn
	outbox   chan []byte
	snapshot snapshotFunc

	done     chan struct{}
	stopOnce sync.Once

	mu       sync.RWMutex
	channels map[string]struct{}
}

func (c *subscriber) wants(channel string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.channels[channel]
	return ok
}

// stop ends the write loop. Safe to call more than once.
func (c *subscriber) stop() {
	c.stopOnce.Do(func() { close(c.done) })
}

// enqueue queues data without blocking. Data for a stopped subscriber or a
// full outbox is dropped.
func (c *subscriber) enqueue(data []byte) {
	select {
	case <-c.done:
		return
	default:
	}

	select {
	case c.outbox <- data:
	default:
	}
}

func (c *subscriber) reply(id, msgType string, payload any) {
	data, err := encodeMessage(WSMessage{Type: msgType, ID: id, Payload: payload})
	if err != nil {
		return
	}
	c.enqueue(data)
}

func (c *subscriber) replyError(id, message string) {
	c.reply(id, WSTypeError, map[string]string{"message": message})
}

func (c *subscriber) readLoop() {
	defer func() {
		c.hub.remove(c)
		c.conn.Close()
	}()

	ka := c.hub.keepalive
	c.conn.SetReadLimit(c.hub.readLimit)
	_ = c.conn.SetReadDeadline(ka.readDeadline()) //nolint:errcheck // Reset on every frame
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(ka.readDeadline())
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("stream read error", "error", err)
			}
			return
		}
		// Browsers do not always answer protocol pings; any frame counts.
		_ = c.conn.SetReadDeadline(ka.readDeadline()) //nolint:errcheck // Next read reports failures
		c.dispatch(data)
	}
}

func (c *subscriber) writeLoop() {
	ka := c.hub.keepalive
	ticker := time.NewTicker(ka.ping)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(ka.writeDeadline())      //nolint:errcheck // Closing anyway
			_ = c.conn.WriteMessage(websocket.CloseMessage, nil) //nolint:errcheck // Closing anyway
			return
		case data := <-c.outbox:
			_ = c.conn.SetWriteDeadline(ka.writeDeadline()) //nolint:errcheck // Write reports failures
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(ka.writeDeadline()) //nolint:errcheck // Write reports failures
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// dispatch handles one client request.
func (c *subscriber) dispatch(data []byte) {
	var req inbound
	if err := json.Unmarshal(data, &req); err != nil {
		c.replyError("", "invalid JSON message")
		return
	}

	switch req.Type {
	case WSTypeSubscribe, WSTypeUnsubscribe:
		c.updateChannels(req)
	case WSTypePing:
		c.reply(req.ID, WSTypePong, nil)
	default:
		c.replyError(req.ID, "unknown message type: "+req.Type)
	}
}

// updateChannels applies a subscribe or unsubscribe request. Subscribing to
// ChannelSnapshot answers with one snapshot event after the response.
func (c *subscriber) updateChannels(req inbound) {
	var p WSSubscribePayload
	if len(req.Payload) > 0 {
		if err := json.Unmarshal(req.Payload, &p); err != nil {
			c.replyError(req.ID, "invalid "+req.Type+" payload")
			return
		}
	}

	adding := req.Type == WSTypeSubscribe
	c.mu.Lock()
	for _, ch := range p.Channels {
		if adding {
			c.channels[ch] = struct{}{}
		} else {
			delete(c.channels, ch)
		}
	}
	c.mu.Unlock()

	key := "unsubscribed"
	if adding {
		key = "subscribed"
	}
	c.reply(req.ID, WSTypeResponse, map[string][]string{key: p.Channels})

	if adding && c.snapshot != nil {
		for _, ch := range p.Channels {
			if ch == ChannelSnapshot {
				c.sendSnapshot()
				break
			}
		}
	}
}

func (c *subscriber) sendSnapshot() {
	data, err := encodeMessage(WSMessage{Type: WSTypeEvent, EventType: ChannelSnapshot, Payload: c.snapshot()})
	if err != nil {
		c.hub.logger.Error("encoding snapshot", "error", err)
		return
	}
	c.enqueue(data)
}

// encodeMessage stamps msg with the current time and encodes it.
func encodeMessage(msg WSMessage) ([]byte, error) {
	msg.Timestamp = time.Now().UTC().Format(time.RFC3339)
	return json.Marshal(msg)
}
