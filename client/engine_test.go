package client

import (
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavecast/broker/internal/broker"
	"github.com/wavecast/broker/internal/wire"
)

func startTestBroker(t *testing.T) string {
	t.Helper()

	b := broker.New()
	srv := httptest.NewServer(b.Handler())
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func newConnectedEngine(t *testing.T, url string) *Engine {
	t.Helper()

	e := New(Options{URL: url})
	require.NoError(t, e.Connect())
	t.Cleanup(func() { _ = e.Disconnect() })

	// Give the broker a moment to process CONNECT before the caller issues
	// further operations; real usage doesn't need this because SUBACK/
	// fan-out ordering is per-connection, but two distinct Engines racing
	// their CONNECTs have no such guarantee.
	time.Sleep(20 * time.Millisecond)
	return e
}

// TestBasicPubSubText covers a UTF-8 publish delivered to a subscriber on
// the same topic.
func TestBasicPubSubText(t *testing.T) {
	url := startTestBroker(t)
	a := newConnectedEngine(t, url)
	b := newConnectedEngine(t, url)

	received := make(chan struct {
		topic   string
		payload any
		props   wire.PublishProperties
	}, 1)

	require.NoError(t, a.Subscribe("test/topic", func(topic string, payload any, props wire.PublishProperties) {
		received <- struct {
			topic   string
			payload any
			props   wire.PublishProperties
		}{topic, payload, props}
	}, 1))
	time.Sleep(20 * time.Millisecond)

	require.NoError(t, b.Publish("test/topic", "hello", "text/plain"))

	select {
	case msg := <-received:
		assert.Equal(t, "test/topic", msg.topic)
		assert.Equal(t, "hello", msg.payload)
		assert.True(t, msg.props.IsUTF8())
		assert.Equal(t, "text/plain", msg.props.ContentType)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for delivery")
	}
}

// TestBinaryPayload covers a binary publish delivered as []byte, not string.
func TestBinaryPayload(t *testing.T) {
	url := startTestBroker(t)
	a := newConnectedEngine(t, url)
	b := newConnectedEngine(t, url)

	received := make(chan any, 1)
	require.NoError(t, a.Subscribe("test/binary", func(_ string, payload any, props wire.PublishProperties) {
		assert.False(t, props.IsUTF8())
		received <- payload
	}, 1))
	time.Sleep(20 * time.Millisecond)

	payload := []byte{0x01, 0x02, 0x03, 0x04}
	require.NoError(t, b.Publish("test/binary", payload, "application/octet-stream"))

	select {
	case got := <-received:
		assert.Equal(t, payload, got)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for delivery")
	}
}

// TestMultiSubscriberFanOut covers one publish reaching every subscriber
// of its topic.
func TestMultiSubscriberFanOut(t *testing.T) {
	url := startTestBroker(t)
	a := newConnectedEngine(t, url)
	b := newConnectedEngine(t, url)
	c := newConnectedEngine(t, url)
	d := newConnectedEngine(t, url)

	var mu sync.Mutex
	counts := map[string]int{}
	for name, eng := range map[string]*Engine{"a": a, "b": b, "c": c} {
		name := name
		require.NoError(t, eng.Subscribe("t", func(_ string, payload any, _ wire.PublishProperties) {
			mu.Lock()
			counts[name]++
			mu.Unlock()
		}, 1))
	}
	time.Sleep(30 * time.Millisecond)

	require.NoError(t, d.Publish("t", "x", ""))
	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, counts["a"])
	assert.Equal(t, 1, counts["b"])
	assert.Equal(t, 1, counts["c"])
}

// TestUnsubscribeStopsDelivery covers delivery stopping after UNSUBSCRIBE.
func TestUnsubscribeStopsDelivery(t *testing.T) {
	url := startTestBroker(t)
	a := newConnectedEngine(t, url)
	d := newConnectedEngine(t, url)

	var count int
	var mu sync.Mutex
	require.NoError(t, a.Subscribe("t", func(_ string, _ any, _ wire.PublishProperties) {
		mu.Lock()
		count++
		mu.Unlock()
	}, 1))
	time.Sleep(20 * time.Millisecond)

	require.NoError(t, d.Publish("t", "a", ""))
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, a.Unsubscribe("t", 1))
	time.Sleep(20 * time.Millisecond)

	require.NoError(t, d.Publish("t", "b", ""))
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, count)
}

// TestDisconnectCleansUpSubscription covers a subscriber that closes its
// transport without DISCONNECT: a later publish to its topic from another
// client still succeeds. The broker's registry state after the close is
// not observable from here; registry_test.go checks that forget removes
// the connection from every subscriber set.
func TestDisconnectCleansUpSubscription(t *testing.T) {
	url := startTestBroker(t)
	a := New(Options{URL: url})
	require.NoError(t, a.Connect())
	time.Sleep(20 * time.Millisecond)

	require.NoError(t, a.Subscribe("t", func(_ string, _ any, _ wire.PublishProperties) {}, 1))
	time.Sleep(20 * time.Millisecond)

	// Close without sending DISCONNECT — just tear down the transport.
	require.NoError(t, a.conn.Close())
	time.Sleep(50 * time.Millisecond)

	d := newConnectedEngine(t, url)
	// Should not error or block even though the only prior subscriber of
	// "t" is gone.
	require.NoError(t, d.Publish("t", "b", ""))
	time.Sleep(20 * time.Millisecond)
}
