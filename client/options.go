// Package client implements the Client Engine: a single outbound broker
// connection that multiplexes subscribe/unsubscribe/publish/disconnect
// requests and background keep-alive into frames, and demultiplexes
// inbound PUBLISH frames to per-topic user callbacks.
package client

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// defaultKeepAliveInterval is how often the Engine sends PINGREQ while
// connected. The wire CONNECT still advertises a 60-second keep-alive to
// the broker; this is the Engine's own, much shorter, sending cadence.
const defaultKeepAliveInterval = 10 * time.Second

// wireKeepAliveSeconds is the keep-alive value advertised in CONNECT.
const wireKeepAliveSeconds = 60

// Options configures a new Engine. The zero value is valid: a random
// client id is generated and defaults are applied for everything else.
type Options struct {
	URL               string
	ClientID          string
	KeepAliveInterval time.Duration
}

func (o Options) withDefaults() Options {
	if o.URL == "" {
		o.URL = "ws://localhost:6789"
	}
	if o.ClientID == "" {
		o.ClientID = newClientID()
	}
	if o.KeepAliveInterval <= 0 {
		o.KeepAliveInterval = defaultKeepAliveInterval
	}
	return o
}

// newClientID generates a 32-hex-character identifier, the same shape
// produced by stripping the dashes from a random UUID.
func newClientID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}
