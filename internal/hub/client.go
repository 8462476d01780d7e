package hub

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rexmirak/Chat-app/internal/config"
	"github.com/rexmirak/Chat-app/internal/domain"
	"github.com/rexmirak/Chat-app/pkg/log"
)

// ErrClosed is returned when sending on a connection that is no longer open.
var ErrClosed = errors.New("connection closed")

// Client wraps one websocket connection for one authenticated user. The
// owning user identity is set at handshake and never changes. A client is
// discarded on close, never reused.
type Client struct {
	ID     string
	UserID string

	conn *websocket.Conn
	send chan []byte
	cfg  config.WebSocketConfig

	mu     sync.Mutex
	closed bool
}

// NewClient creates a client for an upgraded, authenticated connection.
func NewClient(id, userID string, conn *websocket.Conn, cfg config.WebSocketConfig) *Client {
	return &Client{
		ID:     id,
		UserID: userID,
		conn:   conn,
		send:   make(chan []byte, 256),
		cfg:    cfg,
	}
}

// Open reports whether the client can still accept events.
func (c *Client) Open() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

// SendEvent serialises an event and queues it for the write pump. It never
// blocks; when the outbound buffer is full the event is dropped, matching
// the relay's best-effort delivery contract.
func (c *Client) SendEvent(event *domain.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}

	select {
	case c.send <- data:
	default:
		l := log.L()
		l.Debug().Str(log.FieldConnID, c.ID).Str(log.FieldEvent, event.Event).Msg("outbound buffer full, event dropped")
	}
	return nil
}

// Close marks the client closed and releases the write pump. Safe to call
// more than once.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// ReadPump reads inbound frames and dispatches them to handler in arrival
// order. Frames of one connection are therefore processed sequentially; the
// handler decides what runs asynchronously. ReadPump returns when the
// connection drops for any reason, after marking the client closed.
func (c *Client) ReadPump(handler func(*Client, []byte)) {
	defer func() {
		c.Close()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.cfg.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				l := log.L()
				l.Debug().Err(err).Str(log.FieldConnID, c.ID).Msg("websocket read error")
			}
			break
		}

		handler(c, message)
	}
}

// WritePump drains the send queue to the socket and keeps the connection
// alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
