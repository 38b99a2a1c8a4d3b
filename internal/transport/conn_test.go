package transport

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func startEchoServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()

	var serverConn *Conn
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := Upgrade(w, r)
		assert.NoError(t, err)
		serverConn = conn

		frame, err := conn.Receive()
		assert.NoError(t, err)
		assert.NoError(t, conn.Send(frame))
	}))

	t.Cleanup(func() {
		if serverConn != nil {
			serverConn.Close()
		}
		srv.Close()
	})

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	return srv, url
}

func TestDialSendReceiveRoundTrip(t *testing.T) {
	_, url := startEchoServer(t)

	conn, err := Dial(url)
	assert.NoError(t, err)
	defer conn.Close()

	frame := []byte{0x01, 0x02, 0x03}
	assert.NoError(t, conn.Send(frame))

	echoed, err := conn.Receive()
	assert.NoError(t, err)
	assert.Equal(t, frame, echoed)
}

func TestDialInvalidURL(t *testing.T) {
	_, err := Dial("not-a-url")
	assert.Error(t, err)
}
