package broker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/wavecast/broker/internal/transport"
)

// Broker is a single long-lived WebSocket-framed MQTT dispatcher. The zero
// value is not ready to use; construct one with New.
type Broker struct {
	registry *registry
	server   *http.Server

	mu       sync.Mutex
	listened bool
}

// New constructs a Broker. It does not start listening until Start is
// called.
func New() *Broker {
	return &Broker{registry: newRegistry()}
}

// Handler returns an http.Handler that upgrades every request to a
// WebSocket connection and serves it. Start uses this internally; it's
// exposed so callers (and tests) can embed the broker in their own HTTP
// server or test harness instead of letting Start own the listener.
func (b *Broker) Handler() http.Handler {
	return http.HandlerFunc(b.handleUpgrade)
}

// Start binds host:port and serves WebSocket connections until Stop is
// called or the listener fails. It blocks the caller; run it in its own
// goroutine to manage it alongside other work.
func (b *Broker) Start(host string, port int) error {
	b.mu.Lock()
	if b.listened {
		b.mu.Unlock()
		return fmt.Errorf("broker: already started")
	}
	b.listened = true
	b.server = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", host, port),
		Handler: b.Handler(),
	}
	b.mu.Unlock()

	err := b.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return fmt.Errorf("broker: serve: %w", err)
}

// Stop closes the listener and every active connection. Each per-connection
// loop observes the resulting transport error, cleans up its subscription
// entries, and exits on its own.
func (b *Broker) Stop() error {
	b.mu.Lock()
	srv := b.server
	b.mu.Unlock()

	if srv == nil {
		return nil
	}

	// Close the listener first so no new connections are accepted, then
	// close every connection already tracked; each one's receive loop
	// unwinds through its own cleanup path.
	err := srv.Shutdown(context.Background())
	b.registry.closeAll()
	return err
}

func (b *Broker) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := transport.Upgrade(w, r)
	if err != nil {
		return
	}

	c := &connection{conn: conn, addr: conn.RemoteAddr().String()}
	b.registry.accept(c)
	b.serve(c)
}
