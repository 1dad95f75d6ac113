// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package hub

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// DefaultWriteTimeout bounds a single websocket write so one slow client
// cannot hold up a room's broadcast for long
const DefaultWriteTimeout = 5 * time.Second

// WSConn adapts a gorilla websocket to Conn. gorilla allows one concurrent
// writer, so writes are serialized here.
type WSConn struct {
	ws           *websocket.Conn
	writeMu      sync.Mutex
	closed       atomic.Bool
	writeTimeout time.Duration
}

func NewWSConn(ws *websocket.Conn) *WSConn {
	return &WSConn{ws: ws, writeTimeout: DefaultWriteTimeout}
}

// Send writes one text frame. A failed write closes the connection; the
// read loop that owns it then unregisters it.
func (c *WSConn) Send(data []byte) error {
	if c.closed.Load() {
		return ErrConnClosed
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		c.closeLocked()
		return err
	}
	if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		c.closeLocked()
		return err
	}
	return nil
}

func (c *WSConn) Closed() bool {
	return c.closed.Load()
}

func (c *WSConn) Close() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.closeLocked()
}

func (c *WSConn) closeLocked() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	_ = c.ws.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	return c.ws.Close()
}

// ReadMessage reads the next frame from the client
func (c *WSConn) ReadMessage() ([]byte, error) {
	_, data, err := c.ws.ReadMessage()
	return data, err
}

// SetReadLimit caps the size of client frames
func (c *WSConn) SetReadLimit(n int64) {
	c.ws.SetReadLimit(n)
}
