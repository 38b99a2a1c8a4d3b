// Package broker implements the WebSocket-framed MQTT packet dispatcher:
// connection registry, subscription index, and topic-keyed fan-out under
// concurrent ingress.
package broker

import (
	"errors"
	"fmt"
	"log"

	"golang.org/x/sync/errgroup"

	"github.com/wavecast/broker/internal/wire"
)

// fanOutConcurrency bounds how many subscriber sends a single PUBLISH fans
// out to in parallel. A slow subscriber stalls only its own send slot;
// this cap keeps one publish from spawning unbounded goroutines on a
// heavily subscribed topic.
const fanOutConcurrency = 32

// serve runs the per-connection receive loop: one packet at a time,
// dispatched by type, until a DecodeError, transport error, or DISCONNECT
// ends it. It always leaves the registry consistent for this connection
// before returning.
func (b *Broker) serve(c *connection) {
	defer func() {
		b.registry.forget(c)
		c.conn.Close()
	}()

	for {
		frame, err := c.conn.Receive()
		if err != nil {
			log.Printf("broker: %s: receive: %v", c.addr, err)
			return
		}

		if err := b.dispatch(c, frame); err != nil {
			var decodeErr *wire.DecodeError
			if errors.As(err, &decodeErr) {
				log.Printf("broker: %s: dropping connection: %v", c.addr, err)
			} else {
				log.Printf("broker: %s: %v", c.addr, err)
			}
			return
		}

		if c.disconnected {
			return
		}
	}
}

// dispatch decodes one frame and applies its effect to broker state,
// replying or fanning out as required. A non-nil error always means the
// caller should tear the connection down.
func (b *Broker) dispatch(c *connection, frame []byte) error {
	// PUBLISH never needs a full decode: parsing it far enough to find the
	// topic, then re-emitting the original bytes, avoids the double-parse
	// the broker has no use for.
	if len(frame) > 0 && wire.PacketType(frame[0]>>4) == wire.PublishType {
		return b.handlePublish(c, frame)
	}

	pkt, err := wire.Decode(frame)
	if err != nil {
		return err
	}

	switch p := pkt.(type) {
	case wire.Connect:
		return b.handleConnect(c, p)
	case wire.Subscribe:
		return b.handleSubscribe(c, p)
	case wire.Unsubscribe:
		return b.handleUnsubscribe(c, p)
	case wire.PingReq:
		return b.handlePingReq(c)
	case wire.Disconnect:
		c.disconnected = true
		return nil
	default:
		return fmt.Errorf("broker: unexpected packet %s from %s", pkt, c.addr)
	}
}

func (b *Broker) handleConnect(c *connection, p wire.Connect) error {
	if c.clientID != "" {
		return fmt.Errorf("broker: %s: duplicate CONNECT for client %q", c.addr, c.clientID)
	}

	b.registry.bind(p.ClientID, c)

	frame, err := wire.Encode(wire.ConnAck{SessionPresent: false, ReasonCode: wire.Success})
	if err != nil {
		return fmt.Errorf("broker: encode CONNACK: %w", err)
	}
	return c.conn.Send(frame)
}

func (b *Broker) handleSubscribe(c *connection, p wire.Subscribe) error {
	codes := make([]wire.ReasonCode, len(p.Filters))
	for i, f := range p.Filters {
		b.registry.subscribe(f.Topic, c)
		codes[i] = wire.Success
	}

	frame, err := wire.Encode(wire.SubAck{PacketID: p.PacketID, ReasonCodes: codes})
	if err != nil {
		return fmt.Errorf("broker: encode SUBACK: %w", err)
	}
	return c.conn.Send(frame)
}

func (b *Broker) handleUnsubscribe(c *connection, p wire.Unsubscribe) error {
	for _, topic := range p.Topics {
		b.registry.unsubscribe(topic, c)
	}

	frame, err := wire.Encode(wire.UnsubAck{PacketID: p.PacketID, ReasonCode: wire.Success})
	if err != nil {
		return fmt.Errorf("broker: encode UNSUBACK: %w", err)
	}
	return c.conn.Send(frame)
}

func (b *Broker) handlePingReq(c *connection) error {
	frame, err := wire.Encode(wire.PingResp{})
	if err != nil {
		return fmt.Errorf("broker: encode PINGRESP: %w", err)
	}
	return c.conn.Send(frame)
}

// handlePublish snapshots topic's subscribers and re-emits frame to each,
// unchanged, without holding the registry lock. A send failure to one
// subscriber is logged and skipped; it never aborts fan-out to the rest,
// nor does it affect the publisher.
func (b *Broker) handlePublish(c *connection, frame []byte) error {
	topic, err := wire.ParseTopic(frame)
	if err != nil {
		return err
	}

	subs := b.registry.snapshot(topic)
	if len(subs) == 0 {
		return nil
	}

	g := new(errgroup.Group)
	g.SetLimit(fanOutConcurrency)

	for _, sub := range subs {
		sub := sub
		g.Go(func() error {
			if err := sub.conn.Send(frame); err != nil {
				log.Printf("broker: fan-out to %s on %q: %v", sub.addr, topic, err)
			}
			return nil
		})
	}

	return g.Wait()
}
