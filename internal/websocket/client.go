package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	ws "github.com/coder/websocket"
)

const (
	sendBufferSize = 16
	pingInterval   = 30 * time.Second
	writeTimeout   = 10 * time.Second
	// Clients only ever send small subscription frames.
	readLimit = 4096
)

// subscribeFrame narrows the entities a client hears about. An empty list
// restores the default of everything. Expiry alerts are always delivered.
type subscribeFrame struct {
	Subscribe []string `json:"subscribe"`
}

// Client is one live connection, typically a kitchen tablet or phone.
type Client struct {
	hub  *Hub
	conn *ws.Conn
	send chan []byte

	mu       sync.RWMutex
	entities map[string]bool
}

func NewClient(hub *Hub, conn *ws.Conn) *Client {
	return &Client{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}
}

// wants reports whether msg passes the client's entity filter.
func (c *Client) wants(msg Message) bool {
	if msg.Type == TypeExpiryAlert {
		return true
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entities) == 0 || c.entities[msg.Entity]
}

func (c *Client) setEntities(entities []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(entities) == 0 {
		c.entities = nil
		return
	}
	c.entities = make(map[string]bool, len(entities))
	for _, e := range entities {
		c.entities[e] = true
	}
}

// Run serves the connection until it closes.
func (c *Client) Run(ctx context.Context) {
	c.conn.SetReadLimit(readLimit)
	c.hub.Register(c)
	defer c.hub.Unregister(c)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go c.writeLoop(ctx)
	c.readLoop(ctx)
}

// readLoop applies subscription frames and ignores anything else.
func (c *Client) readLoop(ctx context.Context) {
	for {
		typ, data, err := c.conn.Read(ctx)
		if err != nil {
			return
		}
		if typ != ws.MessageText {
			continue
		}
		var f subscribeFrame
		if json.Unmarshal(data, &f) == nil && f.Subscribe != nil {
			c.setEntities(f.Subscribe)
		}
	}
}

func (c *Client) write(ctx context.Context, msg []byte) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return c.conn.Write(ctx, ws.MessageText, msg)
}

// writeLoop forwards queued messages and pings so dead peers are noticed.
func (c *Client) writeLoop(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.write(ctx, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.Ping(ctx); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
