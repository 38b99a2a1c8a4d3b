package wire

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeDecodeConnect(t *testing.T) {
	p := Connect{
		ClientID:      "4f9a6f2e8e6a4b6c9a9e6f2e8e6a4b6c",
		ProtocolName:  "MQTT",
		ProtocolLevel: 4,
		ConnectFlags:  0x02,
		KeepAlive:     60,
	}

	frame, err := Encode(p)
	assert.NoError(t, err)

	decoded, err := Decode(frame)
	assert.NoError(t, err)
	assert.Equal(t, p, decoded)
}

func TestEncodeDecodeConnAck(t *testing.T) {
	p := ConnAck{SessionPresent: false, ReasonCode: Success}

	frame, err := Encode(p)
	assert.NoError(t, err)

	decoded, err := Decode(frame)
	assert.NoError(t, err)
	assert.Equal(t, p, decoded)
}

func TestEncodeDecodePublishBinary(t *testing.T) {
	p := Publish{
		Topic:      "sensors/room-1/temperature",
		Properties: PublishProperties{PayloadFormatIndicator: 0},
		Payload:    []byte{0x01, 0x02, 0x03, 0xff},
	}

	frame, err := Encode(p)
	assert.NoError(t, err)

	decoded, err := Decode(frame)
	assert.NoError(t, err)
	assert.Equal(t, p, decoded)
}

func TestEncodeDecodePublishUTF8WithContentType(t *testing.T) {
	p := Publish{
		Topic: "chat/general",
		Properties: PublishProperties{
			PayloadFormatIndicator: 1,
			HasContentType:         true,
			ContentType:            "text/plain",
		},
		Payload: []byte("hello, room"),
	}

	frame, err := Encode(p)
	assert.NoError(t, err)

	decoded, err := Decode(frame)
	assert.NoError(t, err)
	assert.Equal(t, p, decoded)

	topic, err := ParseTopic(frame)
	assert.NoError(t, err)
	assert.Equal(t, p.Topic, topic)
}

// TestLargePublishThreeByteVarint checks a 200-byte topic and a
// 300000-byte payload push the remaining length encoding to 3 bytes.
func TestLargePublishThreeByteVarint(t *testing.T) {
	topic := strings.Repeat("a", 200)
	payload := bytes.Repeat([]byte{0x42}, 300000)

	p := Publish{
		Topic:      topic,
		Properties: PublishProperties{PayloadFormatIndicator: 0},
		Payload:    payload,
	}

	frame, err := Encode(p)
	assert.NoError(t, err)

	_, n, err := decodeRemainingLength(frame[1:])
	assert.NoError(t, err)
	assert.Equal(t, 3, n)

	decoded, err := Decode(frame)
	assert.NoError(t, err)
	assert.Equal(t, p, decoded)

	parsedTopic, err := ParseTopic(frame)
	assert.NoError(t, err)
	assert.Equal(t, topic, parsedTopic)
}

func TestEncodeDecodeSubscribe(t *testing.T) {
	p := Subscribe{
		PacketID: 7,
		Filters: []TopicFilter{
			{Topic: "a/b", QoS: 0},
			{Topic: "c/d/e", QoS: 0},
		},
	}

	frame, err := Encode(p)
	assert.NoError(t, err)

	decoded, err := Decode(frame)
	assert.NoError(t, err)
	assert.Equal(t, p, decoded)
}

func TestDecodeSubscribeRequiresAtLeastOneFilter(t *testing.T) {
	frame, err := Encode(Subscribe{PacketID: 1})
	assert.NoError(t, err)

	_, err = Decode(frame)
	assert.Error(t, err)
}

func TestEncodeDecodeSubAck(t *testing.T) {
	p := SubAck{
		PacketID:    7,
		ReasonCodes: []ReasonCode{Success, Success},
	}

	frame, err := Encode(p)
	assert.NoError(t, err)

	decoded, err := Decode(frame)
	assert.NoError(t, err)
	assert.Equal(t, p, decoded)
}

func TestEncodeDecodeUnsubscribe(t *testing.T) {
	p := Unsubscribe{
		PacketID: 9,
		Topics:   []string{"a/b", "c/d/e"},
	}

	frame, err := Encode(p)
	assert.NoError(t, err)

	decoded, err := Decode(frame)
	assert.NoError(t, err)
	assert.Equal(t, p, decoded)
}

func TestEncodeDecodeUnsubAck(t *testing.T) {
	p := UnsubAck{PacketID: 9, ReasonCode: Success}

	frame, err := Encode(p)
	assert.NoError(t, err)

	decoded, err := Decode(frame)
	assert.NoError(t, err)
	assert.Equal(t, p, decoded)
}

func TestEncodeDecodeNakedPackets(t *testing.T) {
	for _, p := range []Packet{PingReq{}, PingResp{}, Disconnect{}} {
		frame, err := Encode(p)
		assert.NoError(t, err)

		decoded, err := Decode(frame)
		assert.NoError(t, err)
		assert.Equal(t, p, decoded)
	}
}

func TestDecodeRejectsUnsupportedType(t *testing.T) {
	frame := []byte{byte(0) << 4, 0}
	_, err := Decode(frame)
	assert.Error(t, err)

	var decodeErr *DecodeError
	assert.ErrorAs(t, err, &decodeErr)
}

func TestDecodeRejectsTruncatedFrame(t *testing.T) {
	frame, err := Encode(PingReq{})
	assert.NoError(t, err)

	_, err = Decode(frame[:len(frame)-0]) // sanity: full frame decodes
	assert.NoError(t, err)

	_, err = Decode([]byte{frame[0]})
	assert.Error(t, err)
}

func TestParseTopicRejectsNonPublish(t *testing.T) {
	frame, err := Encode(PingReq{})
	assert.NoError(t, err)

	_, err = ParseTopic(frame)
	assert.Error(t, err)
}
