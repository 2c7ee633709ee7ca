package hub

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handler carries out the requests a client can make.
type Handler interface {
	CloseTab(id string) bool
	Execute(command string) error
}

// Client represents a connected WebSocket client.
type Client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	log  *zap.Logger

	mu     sync.Mutex
	closed bool
}

// NewClient creates a new Client attached to the hub.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	id := uuid.NewString()
	return &Client{
		id:   id,
		hub:  hub,
		conn: conn,
		send: make(chan []byte, 256),
		log:  hub.log.With(zap.String("client", id)),
	}
}

func (c *Client) ID() string {
	return c.id
}

// enqueue queues msg for the write pump. It reports false when the buffer is
// full or the client is closed.
func (c *Client) enqueue(msg []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// closeSend ends the write pump.
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// WritePump sends messages from the send channel to the WebSocket connection.
func (c *Client) WritePump() {
	defer func() {
		c.conn.Close()
	}()

	for msg := range c.send {
		err := c.conn.WriteMessage(websocket.TextMessage, msg)
		if err != nil {
			break
		}
	}
}

// ReadPumpWithHandler reads messages from the WebSocket and handles client
// requests until the connection drops.
func (c *Client) ReadPumpWithHandler(handler Handler) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		c.handle(handler, message)
	}
}

func (c *Client) handle(handler Handler, message []byte) {
	var clientMsg ClientMessage
	if err := json.Unmarshal(message, &clientMsg); err != nil {
		c.log.Warn("error parsing client message", zap.Error(err))
		return
	}

	switch clientMsg.Type {
	case ClientCloseTab:
		if !handler.CloseTab(clientMsg.Tab) {
			c.log.Warn("close requested for unknown tab", zap.String("tab", clientMsg.Tab))
		}
	case ClientExecute:
		if err := handler.Execute(clientMsg.Command); err != nil {
			c.log.Warn("command failed", zap.String("command", clientMsg.Command), zap.Error(err))
			c.trySend(NewErrorMessage(0, err))
		}
	default:
		c.log.Warn("unknown client message", zap.String("type", clientMsg.Type))
	}
}

func (c *Client) trySend(msg *WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.log.Error("error marshaling message", zap.Error(err))
		return
	}
	c.enqueue(data)
}
