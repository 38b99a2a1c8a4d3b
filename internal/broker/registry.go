package broker

import "sync"

// connection is the broker's handle for one accepted WebSocket connection.
// subscriptions hold non-owning references to it; the registry's cleanup
// step is responsible for invalidating every such reference before the
// connection itself is dropped.
type connection struct {
	conn         frameConn
	clientID     string
	addr         string
	disconnected bool
}

// frameConn is the slice of *transport.Conn the broker depends on. Kept as
// an interface so tests can exercise registry and fan-out logic without a
// real WebSocket.
type frameConn interface {
	Send([]byte) error
	Receive() ([]byte, error)
	Close() error
}

// registry holds the broker's two pieces of shared state — the client-id
// table and the subscription index — behind one mutex: both are mutated
// together and neither is ever held across an I/O call.
type registry struct {
	mu            sync.Mutex
	clients       map[string]*connection
	subscriptions map[string]map[*connection]struct{}
	all           map[*connection]struct{}
}

func newRegistry() *registry {
	return &registry{
		clients:       make(map[string]*connection),
		subscriptions: make(map[string]map[*connection]struct{}),
		all:           make(map[*connection]struct{}),
	}
}

// accept tracks c from the moment its WebSocket handshake completes, before
// it has necessarily sent CONNECT, so Stop can find and close it.
func (r *registry) accept(c *connection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.all[c] = struct{}{}
}

// closeAll closes every tracked connection. Each one's own receive loop
// observes the resulting transport error and calls forget on its way out.
func (r *registry) closeAll() {
	r.mu.Lock()
	conns := make([]*connection, 0, len(r.all))
	for c := range r.all {
		conns = append(conns, c)
	}
	r.mu.Unlock()

	for _, c := range conns {
		_ = c.conn.Close()
	}
}

// bind records clientID as owned by c, replacing the id's prior owner, if
// any. It does not check for duplicate CONNECTs on the same connection —
// that's the handler's job, before bind is ever called.
func (r *registry) bind(clientID string, c *connection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[clientID] = c
	c.clientID = clientID
}

// subscribe adds c to topic's subscriber set, idempotently: repeated
// SUBSCRIBEs for the same topic never produce duplicate fan-out.
func (r *registry) subscribe(topic string, c *connection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.subscriptions[topic]
	if !ok {
		set = make(map[*connection]struct{})
		r.subscriptions[topic] = set
	}
	set[c] = struct{}{}
}

// unsubscribe removes c from topic's subscriber set, dropping the topic key
// entirely once its set is empty.
func (r *registry) unsubscribe(topic string, c *connection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.subscriptions[topic]
	if !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(r.subscriptions, topic)
	}
}

// snapshot returns the subscribers of topic at this instant, copied out
// from under the lock so fan-out sends never happen while holding it.
func (r *registry) snapshot(topic string) []*connection {
	r.mu.Lock()
	defer r.mu.Unlock()

	set := r.subscriptions[topic]
	if len(set) == 0 {
		return nil
	}
	subs := make([]*connection, 0, len(set))
	for c := range set {
		subs = append(subs, c)
	}
	return subs
}

// forget removes every trace of c from the registry: its subscription
// entries and, if present, its clients entry. Called once, from the
// connection's own cleanup step, on DecodeError, transport error,
// DISCONNECT, or unexpected close alike.
func (r *registry) forget(c *connection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for topic, set := range r.subscriptions {
		if _, ok := set[c]; !ok {
			continue
		}
		delete(set, c)
		if len(set) == 0 {
			delete(r.subscriptions, topic)
		}
	}

	if c.clientID != "" && r.clients[c.clientID] == c {
		delete(r.clients, c.clientID)
	}

	delete(r.all, c)
}
