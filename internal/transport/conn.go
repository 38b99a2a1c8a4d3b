// Package transport carries MQTT control packets over a WebSocket binary
// connection, one packet per frame. It knows nothing about packet
// contents — that's internal/wire's job — only about shipping and
// receiving whole frames.
package transport

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ErrNotBinary is returned by Receive when a peer sends a text frame
// instead of binary. This implementation never speaks anything else.
var ErrNotBinary = fmt.Errorf("transport: received non-binary WebSocket message")

var closeMessage = websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")

// Conn wraps a *websocket.Conn so that every MQTT control packet maps to
// exactly one WebSocket binary frame in each direction. A Conn is safe for
// one concurrent reader and any number of concurrent writers: Send
// serializes writes with sendMu so interleaved goroutines never corrupt a
// frame's bytes — a subscriber connection can be written to by the
// broker's publish loop at the same time its own receive loop is blocked
// in Receive.
type Conn struct {
	ws *websocket.Conn

	sendMu sync.Mutex
}

// New wraps an already-upgraded WebSocket connection.
func New(ws *websocket.Conn) *Conn {
	return &Conn{ws: ws}
}

// Send writes frame as a single WebSocket binary message.
func (c *Conn) Send(frame []byte) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if err := c.ws.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		return fmt.Errorf("transport: send: %w", err)
	}
	return nil
}

// Receive blocks for the next complete WebSocket message and returns its
// payload. It is an error for the message to be non-binary; this
// implementation has no use for WebSocket text frames.
func (c *Conn) Receive() ([]byte, error) {
	messageType, data, err := c.ws.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("transport: receive: %w", err)
	}
	if messageType != websocket.BinaryMessage {
		return nil, ErrNotBinary
	}
	return data, nil
}

// SetReadDeadline bounds how long the next Receive may block. Neither the
// broker nor the client engine sets one; a Conn has no read deadline unless
// a caller sets it here.
func (c *Conn) SetReadDeadline(t time.Time) error {
	return c.ws.SetReadDeadline(t)
}

// Close sends a normal-closure control frame and tears down the
// underlying connection.
func (c *Conn) Close() error {
	c.sendMu.Lock()
	_ = c.ws.WriteControl(websocket.CloseMessage, closeMessage, time.Now().Add(time.Second))
	c.sendMu.Unlock()
	return c.ws.Close()
}

// RemoteAddr returns the peer's network address, used only for logging.
func (c *Conn) RemoteAddr() net.Addr {
	return c.ws.RemoteAddr()
}
