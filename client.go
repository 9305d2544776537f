package main

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
)

const (
	writeWait         = 10 * time.Second
	pongWait          = 60 * time.Second
	pingPeriod        = (pongWait * 9) / 10
	maxMessageSize    = 4096
	sendBufSize       = 256
	maxMessagesPerSec = 50
)

type outbound struct {
	data   []byte
	binary bool
}

// Client represents a WebSocket connection
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan outbound
	remoteAddr string
	log        *zap.Logger

	identity Identity
	token    string
	binary   bool // gameUpdate frames as msgpack

	msgCount   int
	msgResetAt time.Time

	mu     sync.Mutex
	closed bool
}

// NewClient creates a new Client for an authenticated identity
func NewClient(hub *Hub, conn *websocket.Conn, remoteAddr string, ident Identity, token string, binary bool) *Client {
	return &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan outbound, sendBufSize),
		remoteAddr: remoteAddr,
		log: hub.log.With(
			zap.Int64("user_id", ident.ID),
			zap.String("remote_addr", remoteAddr),
		),
		identity: ident,
		token:    token,
		binary:   binary,
	}
}

// ReadPump reads messages from the WebSocket connection
func (c *Client) ReadPump() {
	defer func() {
		c.hub.TrackDisconnect(c.remoteAddr)
		c.hub.unregister <- c
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
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("ws read error", zap.Error(err))
			}
			break
		}

		// Rate limiting
		now := time.Now()
		if now.After(c.msgResetAt) {
			c.msgCount = 0
			c.msgResetAt = now.Add(time.Second)
		}
		c.msgCount++
		if c.msgCount > maxMessagesPerSec {
			c.log.Warn("rate limit exceeded, disconnecting")
			break
		}

		c.handleMessage(message)
	}
}

// WritePump writes messages to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			kind := websocket.TextMessage
			if msg.binary {
				kind = websocket.BinaryMessage
			}
			if err := c.conn.WriteMessage(kind, msg.data); err != nil {
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

// SendJSON sends a JSON message to the client
func (c *Client) SendJSON(msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.log.Error("marshal error", zap.Error(err))
		return
	}
	c.enqueue(outbound{data: data})
}

// SendState sends a gameUpdate, as msgpack when the client asked for it
func (c *Client) SendState(update GameUpdate) {
	env := Envelope{T: MsgGameUpdate, Data: update}
	if !c.binary {
		c.SendJSON(env)
		return
	}
	data, err := msgpack.Marshal(env)
	if err != nil {
		c.log.Error("msgpack marshal error", zap.Error(err))
		return
	}
	c.enqueue(outbound{data: data, binary: true})
}

// enqueue never blocks; a client too slow to drain its buffer misses
// messages.
func (c *Client) enqueue(msg outbound) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}

// close stops further sends and lets WritePump finish
func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// handleMessage decodes one frame and hands it to the gateway
func (c *Client) handleMessage(raw []byte) {
	var env InEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.SendJSON(errorEnvelope(ErrBadPayload))
		return
	}
	c.hub.gateway.Dispatch(c, c.token, env)
}
