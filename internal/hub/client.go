package hub

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/weiawesome/wes-io-live/live-relay/internal/config"
	pkglog "github.com/weiawesome/wes-io-live/live-relay/pkg/log"
)

// Client is one open WebSocket connection. Conn is nil for in-memory
// clients used in tests; only the Send channel is exercised then.
type Client struct {
	ID       string
	Registry *Registry
	Conn     *websocket.Conn
	Send     chan []byte
	config   config.WebSocketConfig
}

// NewClient creates a client whose send buffer is sized from the registry config.
func NewClient(id string, reg *Registry, conn *websocket.Conn) *Client {
	return &Client{
		ID:       id,
		Registry: reg,
		Conn:     conn,
		Send:     make(chan []byte, reg.config.SendBuffer),
		config:   reg.config,
	}
}

// ReadPump reads frames until the connection fails, then releases the
// client. It blocks for the lifetime of the connection.
func (c *Client) ReadPump(handler func(*Client, []byte)) {
	defer func() {
		c.Registry.Release(c.ID)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				l := pkglog.L()
				l.Warn().Err(err).Str(pkglog.FieldConnID, c.ID).Msg("websocket read error")
			}
			break
		}

		handler(c, message)
	}
}

// WritePump drains Send to the connection and keeps it alive with pings.
// It exits when Send is closed by the registry or a write fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
