// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package gateway

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/danielhkuo/livepoll/metrics"
)

var (
	ErrSlowConsumer = errors.New("websocket send buffer full")
	ErrClosed       = errors.New("websocket connection closed")
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// client owns one websocket connection. Publishers hand it frames through
// enqueue; a single writer goroutine drains them in order.
type client struct {
	conn      *websocket.Conn
	codec     codec
	namespace string

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	closeMsg  []byte
}

func newClient(conn *websocket.Conn, namespace string, buffer int) *client {
	return &client{
		conn:      conn,
		codec:     codecFor(conn.Subprotocol()),
		namespace: namespace,
		send:      make(chan []byte, buffer),
		done:      make(chan struct{}),
	}
}

// deliver encodes v and queues it. It never blocks: a full buffer closes
// the connection and returns ErrSlowConsumer.
func (c *client) deliver(v any) error {
	data, err := c.codec.encode(v)
	if err != nil {
		return err
	}
	return c.enqueue(data)
}

func (c *client) enqueue(data []byte) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	select {
	case c.send <- data:
		return nil
	default:
		slog.Warn("closing slow websocket consumer",
			"namespace", c.namespace,
			"remote", c.conn.RemoteAddr().String(),
		)
		metrics.SlowConsumers.WithLabelValues(c.namespace).Inc()
		c.close(websocket.ClosePolicyViolation, "slow consumer")
		return ErrSlowConsumer
	}
}

// close marks the client closed. The writer sends the close frame and
// releases the connection, so close never blocks the caller.
func (c *client) close(code int, reason string) {
	c.closeOnce.Do(func() {
		c.closeMsg = websocket.FormatCloseMessage(code, reason)
		close(c.done)
	})
}

func (c *client) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// writePump writes queued frames and pings until the client closes. It is
// the only goroutine that writes data frames.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage, c.closeMsg, time.Now().Add(writeWait))
			return
		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(c.codec.frameType(), data); err != nil {
				slog.Debug("websocket write failed", "namespace", c.namespace, "error", err)
				c.close(websocket.CloseInternalServerErr, "")
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.close(websocket.CloseGoingAway, "")
				return
			}
		}
	}
}

// readPump discards inbound frames and returns when the peer goes away or
// the client is closed.
func (c *client) readPump() {
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) && !c.closed() {
				slog.Debug("websocket read failed", "namespace", c.namespace, "error", err)
			}
			return
		}
	}
}
