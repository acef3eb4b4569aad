package websocket

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10

	// largest frame accepted from a peer
	maxFrameSize = 512
	sendBuffer   = 256
)

// Client is one dashboard connection. It only ever sends subscribe and
// unsubscribe frames; everything else flows from the hub to the peer.
type Client struct {
	id     string
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	logger *slog.Logger
}

// NewClient wraps conn. conn may be nil in tests that never pump.
func NewClient(hub *Hub, conn *websocket.Conn, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	id := uuid.NewString()
	return &Client{
		id:     id,
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		logger: logger.With("client_id", id),
	}
}

// ID returns the client identifier
func (c *Client) ID() string {
	return c.id
}

// ReadPump reads subscription frames until the peer goes away, then
// unregisters the client
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxFrameSize)
	extend := func(string) error { return c.conn.SetReadDeadline(time.Now().Add(pongWait)) }
	_ = extend("")
	c.conn.SetPongHandler(extend)

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("dashboard connection dropped", slog.Any("error", err))
			}
			return
		}
		c.handleMessage(frame)
	}
}

// WritePump forwards hub events to the peer and keeps the connection alive
// with pings. It returns when the hub closes the send channel.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(frame []byte) {
	var msg WSMessage
	if err := json.Unmarshal(frame, &msg); err != nil {
		c.sendError("invalid message format")
		return
	}

	var apply func(*Client, string)
	switch msg.Type {
	case MessageTypeSubscribe:
		apply = c.hub.Subscribe
	case MessageTypeUnsubscribe:
		apply = c.hub.Unsubscribe
	default:
		c.sendError("unknown message type")
		return
	}

	if !validTopic(msg.Topic) {
		c.sendError("topic must be one of articles, emails, all")
		return
	}
	apply(c, msg.Topic)
}

// sendError queues an error frame, dropping it when the buffer is full
func (c *Client) sendError(text string) {
	data, err := json.Marshal(WSMessage{Type: MessageTypeError, Error: text})
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}
