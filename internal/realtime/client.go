package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/eventhub/backend/internal/models"
)

const (
	sendBuffer   = 32
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = (pongWait * 9) / 10
	maxFrameSize = 16 << 10
)

// Frame is the envelope for every message on the socket, in both directions.
type Frame struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

type inbound struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Client is one authenticated WebSocket connection.
type Client struct {
	user *models.User
	conn *websocket.Conn
	send chan Frame
	done chan struct{}
	once sync.Once
	log  *zap.Logger
}

func newClient(user *models.User, conn *websocket.Conn, log *zap.Logger) *Client {
	return &Client{
		user: user,
		conn: conn,
		send: make(chan Frame, sendBuffer),
		done: make(chan struct{}),
		log:  log.With(zap.String("userId", user.ID)),
	}
}

func (c *Client) UserID() string { return c.user.ID }

// Send queues f without blocking. A full buffer drops the frame.
func (c *Client) Send(f Frame) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- f:
		return true
	default:
		c.log.Warn("realtime buffer full, dropping frame", zap.String("type", f.Type))
		return false
	}
}

// Close stops the write pump, which closes the socket and so ends the
// read pump. Safe to call more than once.
func (c *Client) Close() {
	c.once.Do(func() { close(c.done) })
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case f := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(f); err != nil {
				c.log.Debug("realtime write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "")
			c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
			return
		}
	}
}

// readPump blocks until the peer goes away or the client is closed.
func (c *Client) readPump(handle func(inbound)) {
	c.conn.SetReadLimit(maxFrameSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("realtime read error", zap.Error(err))
			}
			return
		}
		var in inbound
		if err := json.Unmarshal(data, &in); err != nil || in.Type == "" {
			c.Send(Frame{Type: "error", Payload: errorPayload("Invalid frame")})
			continue
		}
		handle(in)
	}
}
