package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Lyon85/321-Golf/internal/protocol"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 64 * 1024
	sendBuffer     = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origins are checked by middleware.WebSocketCORSCheck before the upgrade.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Client is one relay connection. Only the hub goroutine reads or writes
// room, slot and closed.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	identity string

	room   *Room
	slot   int
	closed bool
}

func (c *Client) label() string {
	if c.identity != "" {
		return c.identity
	}
	if c.conn != nil {
		return c.conn.RemoteAddr().String()
	}
	return "client"
}

// deliver queues an envelope without blocking the hub.
func (c *Client) deliver(env protocol.Envelope) {
	if c.closed {
		return
	}
	data, err := json.Marshal(env)
	if err != nil {
		log.Printf("[WS] marshal %s: %v", env.Type, err)
		return
	}
	select {
	case c.send <- data:
	default:
		log.Printf("[WS] send buffer full for %s, dropping %s", c.label(), env.Type)
	}
}

func (c *Client) sendMsg(msg protocol.Message) {
	env, err := protocol.Encode(msg)
	if err != nil {
		log.Printf("[WS] encode %s: %v", msg.MessageType(), err)
		return
	}
	c.deliver(env)
}

// ServeWS upgrades the request and starts the client's pumps. identity is
// the verified token subject, or empty for anonymous clients.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, identity string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WS] Upgrade error: %v", err)
		return
	}

	client := &Client{
		hub:      h,
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
		identity: identity,
		slot:     protocol.NoSlot,
	}

	select {
	case h.register <- client:
	case <-h.stopped:
		conn.Close()
		return
	}
	go client.writePump()
	go client.readPump()
}

// readPump hands every frame to the hub. Parsing happens on the hub
// goroutine so frames from one client stay ordered.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.stopped:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[WS] unexpected close for %s: %v", c.label(), err)
			}
			return
		}
		select {
		case c.hub.inbound <- frame{client: c, data: message}:
		case <-c.hub.stopped:
			return
		}
	}
}

// writePump writes queued frames and keeps the connection alive with pings.
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
				// The hub closed the channel: room gone or client replaced.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("[WS] write error for %s: %v", c.label(), err)
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
