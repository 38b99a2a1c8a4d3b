package client

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/wavecast/broker/internal/transport"
	"github.com/wavecast/broker/internal/wire"
)

// Callback receives a delivered PUBLISH. payload is a string when the
// message's Payload Format Indicator was 1 (UTF-8 text), and []byte
// otherwise.
type Callback func(topic string, payload any, properties wire.PublishProperties)

// Engine holds one outbound connection to a broker. All of its exported
// methods return promptly; encoding and transmission happen on the calling
// goroutine, but inbound dispatch and keep-alive run in the background.
type Engine struct {
	opts Options
	conn *transport.Conn

	sendMu sync.Mutex

	cbMu      sync.Mutex
	callbacks map[string]Callback

	stop     chan struct{}
	stopOnce sync.Once
}

// New constructs an Engine. It does not connect until Connect is called.
func New(opts Options) *Engine {
	return &Engine{
		opts:      opts.withDefaults(),
		callbacks: make(map[string]Callback),
		stop:      make(chan struct{}),
	}
}

// ClientID returns the id this Engine connects (or will connect) with.
func (e *Engine) ClientID() string {
	return e.opts.ClientID
}

// Connect opens the WebSocket, sends CONNECT, and starts the receive and
// keep-alive loops. It returns once CONNECT has been transmitted; it does
// not wait for CONNACK — all core operations return promptly and I/O
// is asynchronous.
func (e *Engine) Connect() error {
	conn, err := transport.Dial(e.opts.URL)
	if err != nil {
		return fmt.Errorf("client: connect: %w", err)
	}
	e.conn = conn

	go e.receiveLoop()

	frame, err := wire.Encode(wire.Connect{
		ClientID:  e.opts.ClientID,
		KeepAlive: wireKeepAliveSeconds,
	})
	if err != nil {
		conn.Close()
		return fmt.Errorf("client: encode CONNECT: %w", err)
	}
	if err := e.send(frame); err != nil {
		conn.Close()
		return fmt.Errorf("client: send CONNECT: %w", err)
	}

	go e.keepAliveLoop()

	return nil
}

// Subscribe registers callback for topic, replacing any prior registration,
// then sends SUBSCRIBE. Registration happens before transmission so a
// server echo can never race ahead of the callback.
func (e *Engine) Subscribe(topic string, callback Callback, packetID uint16) error {
	if packetID == 0 {
		packetID = 1
	}

	e.cbMu.Lock()
	e.callbacks[topic] = callback
	e.cbMu.Unlock()

	frame, err := wire.Encode(wire.Subscribe{
		PacketID: packetID,
		Filters:  []wire.TopicFilter{{Topic: topic}},
	})
	if err != nil {
		return fmt.Errorf("client: encode SUBSCRIBE: %w", err)
	}
	return e.send(frame)
}

// Unsubscribe removes the callback for topic, then sends UNSUBSCRIBE. The
// packet is sent even if topic was never registered locally — the server
// is authoritative about what it thinks this connection is subscribed to.
func (e *Engine) Unsubscribe(topic string, packetID uint16) error {
	if packetID == 0 {
		packetID = 1
	}

	e.cbMu.Lock()
	delete(e.callbacks, topic)
	e.cbMu.Unlock()

	frame, err := wire.Encode(wire.Unsubscribe{
		PacketID: packetID,
		Topics:   []string{topic},
	})
	if err != nil {
		return fmt.Errorf("client: encode UNSUBSCRIBE: %w", err)
	}
	return e.send(frame)
}

// Publish sends payload to topic. A string payload sets the Payload Format
// Indicator to 1 and is transmitted as its UTF-8 bytes; a []byte payload is
// sent as raw bytes with the indicator left at 0. Any other payload type is
// rejected with an error. contentType, when non-empty, is carried as the
// Content Type property.
func (e *Engine) Publish(topic string, payload any, contentType string) error {
	props := wire.PublishProperties{}
	if contentType != "" {
		props.HasContentType = true
		props.ContentType = contentType
	}

	var raw []byte
	switch v := payload.(type) {
	case string:
		props.PayloadFormatIndicator = 1
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("client: publish: unsupported payload type %T", payload)
	}

	frame, err := wire.Encode(wire.Publish{
		Topic:      topic,
		Properties: props,
		Payload:    raw,
	})
	if err != nil {
		return fmt.Errorf("client: encode PUBLISH: %w", err)
	}
	return e.send(frame)
}

// Disconnect sends DISCONNECT, stops the keep-alive loop, and closes the
// transport. The receive loop exits on its own once the transport closes.
func (e *Engine) Disconnect() error {
	frame, err := wire.Encode(wire.Disconnect{})
	if err == nil {
		_ = e.send(frame)
	}

	e.stopOnce.Do(func() { close(e.stop) })

	if e.conn != nil {
		return e.conn.Close()
	}
	return nil
}

func (e *Engine) send(frame []byte) error {
	e.sendMu.Lock()
	defer e.sendMu.Unlock()
	return e.conn.Send(frame)
}

func (e *Engine) keepAliveLoop() {
	ticker := time.NewTicker(e.opts.KeepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.stop:
			return
		case <-ticker.C:
			frame, err := wire.Encode(wire.PingReq{})
			if err != nil {
				continue
			}
			if err := e.send(frame); err != nil {
				log.Printf("client: keep-alive: %v", err)
				return
			}
		}
	}
}

func (e *Engine) receiveLoop() {
	for {
		frame, err := e.conn.Receive()
		if err != nil {
			log.Printf("client: receive: %v", err)
			return
		}
		e.dispatch(frame)
	}
}

// dispatch handles one inbound frame. A frame that fails to decode is fatal
// to the connection: the transport is closed and the receive loop exits on
// its next read. A bad callback must not tear down the receive loop, so
// callback invocation is wrapped in a recover.
func (e *Engine) dispatch(frame []byte) {
	pkt, err := wire.Decode(frame)
	if err != nil {
		log.Printf("client: decode: %v; closing connection", err)
		_ = e.conn.Close()
		return
	}

	switch p := pkt.(type) {
	case wire.ConnAck:
		// observational only.
	case wire.Publish:
		e.dispatchPublish(p)
	case wire.PingResp:
		// observational only.
	default:
		log.Printf("client: ignoring unexpected packet %s", p)
	}
}

func (e *Engine) dispatchPublish(p wire.Publish) {
	e.cbMu.Lock()
	cb, ok := e.callbacks[p.Topic]
	e.cbMu.Unlock()
	if !ok {
		return
	}

	var payload any
	if p.Properties.IsUTF8() {
		payload = string(p.Payload)
	} else {
		payload = p.Payload
	}

	defer func() {
		if r := recover(); r != nil {
			log.Printf("client: callback for %q panicked: %v", p.Topic, r)
		}
	}()
	cb(p.Topic, payload, p.Properties)
}
