package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/halolight/halolight/internal/common/logger"
	"github.com/halolight/halolight/internal/state"
	wsproto "github.com/halolight/halolight/pkg/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBufferSize = 64
)

// Client is one WebSocket connection bound to a state bundle.
type Client struct {
	id         string
	hub        *Hub
	conn       *websocket.Conn
	bundle     *state.Bundle
	dispatcher *wsproto.Dispatcher
	outbound   chan []byte
	log        *logger.Logger

	mu     sync.Mutex
	closed bool
}

func newClient(hub *Hub, conn *websocket.Conn, bundle *state.Bundle) *Client {
	id := uuid.NewString()
	c := &Client{
		id:       id,
		hub:      hub,
		conn:     conn,
		bundle:   bundle,
		outbound: make(chan []byte, sendBufferSize),
		log: hub.log.WithFields(
			zap.String("client_id", id),
			zap.String("namespace", bundle.Namespace)),
	}
	c.dispatcher = newBundleDispatcher(bundle)
	return c
}

// send queues an encoded frame; slow clients are disconnected rather than
// allowed to block the hub. Frames sent to a dropped client are discarded.
func (c *Client) send(msg *wsproto.Message) {
	data, err := msg.Encode()
	if err != nil {
		c.log.Warn("Failed to encode frame", zap.Error(err))
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.outbound <- data:
	default:
		c.log.Warn("Send buffer full, dropping client")
		c.closeLocked()
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

// closeLocked closes the outbound channel exactly once; writePump sees the
// close and tears down the connection. Callers must hold c.mu.
func (c *Client) closeLocked() {
	if c.closed {
		return
	}
	c.closed = true
	close(c.outbound)
}

// readPump reads action frames and dispatches them until the connection
// drops. Runs on the connection's handler goroutine.
func (c *Client) readPump() {
	defer func() {
		c.hub.removeClient(c)
		c.close()
		_ = c.conn.Close()
		c.log.Info("Client disconnected")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	ctx := context.WithValue(context.Background(), logger.ClientIDKey, c.id)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("Unexpected close", zap.Error(err))
			}
			return
		}

		msg, err := wsproto.ParseMessage(data)
		if err != nil {
			c.send(wsproto.NewError("", "", wsproto.ErrCodeBadPayload, err.Error()))
			continue
		}

		// Actions run inline: one connection processes its actions in
		// order, which the store mutation contract depends on.
		c.send(c.dispatcher.Dispatch(ctx, msg))
	}
}

// writePump drains the outbound queue and keeps the connection alive with
// pings. Runs on its own goroutine per client.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.outbound:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
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
