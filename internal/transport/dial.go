package transport

import (
	"fmt"

	"github.com/gorilla/websocket"
)

// Dial opens a client-side WebSocket connection to url (ws:// or wss://)
// and wraps it in a Conn.
func Dial(url string) (*Conn, error) {
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", url, err)
	}
	return New(ws), nil
}
