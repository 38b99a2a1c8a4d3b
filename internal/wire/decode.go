package wire

import "encoding/binary"

// Decode parses a single MQTT control packet out of frame — the full
// contents of one WebSocket binary frame, fixed header included. It never
// reads past frame's length and never reads less of it than the fixed
// header's remaining-length field promises.
func Decode(frame []byte) (Packet, error) {
	if len(frame) < 1 {
		return nil, newDecodeError(0, "empty frame")
	}

	t := PacketType(frame[0] >> 4)
	rest := frame[1:]

	length, n, err := decodeRemainingLength(rest)
	if err != nil {
		return nil, err
	}
	rest = rest[n:]

	if len(rest) < length {
		return nil, newDecodeError(t, "truncated body: need %d bytes, have %d", length, len(rest))
	}
	body := rest[:length]

	switch t {
	case ConnectType:
		return decodeConnect(body)
	case ConnAckType:
		return decodeConnAck(body)
	case PublishType:
		return decodePublish(body)
	case SubscribeType:
		return decodeSubscribe(body)
	case SubAckType:
		return decodeSubAck(body)
	case UnsubscribeType:
		return decodeUnsubscribe(body)
	case UnsubAckType:
		return decodeUnsubAck(body)
	case PingReqType:
		return PingReq{}, nil
	case PingRespType:
		return PingResp{}, nil
	case DisconnectType:
		return Disconnect{}, nil
	default:
		return nil, newDecodeError(t, "unsupported packet type")
	}
}

func decodeConnect(body []byte) (Packet, error) {
	protocolName, body, err := decodeString(body, ConnectType)
	if err != nil {
		return nil, err
	}

	if len(body) < 4 {
		return nil, newDecodeError(ConnectType, "truncated variable header")
	}
	protocolLevel := body[0]
	connectFlags := body[1]
	keepAlive := binary.BigEndian.Uint16(body[2:4])
	body = body[4:]

	clientID, _, err := decodeString(body, ConnectType)
	if err != nil {
		return nil, err
	}

	return Connect{
		ClientID:      clientID,
		ProtocolName:  protocolName,
		ProtocolLevel: protocolLevel,
		ConnectFlags:  connectFlags,
		KeepAlive:     keepAlive,
	}, nil
}

func decodeConnAck(body []byte) (Packet, error) {
	if len(body) != 2 {
		return nil, newDecodeError(ConnAckType, "expected 2-byte body, got %d", len(body))
	}
	return ConnAck{
		SessionPresent: body[0] != 0,
		ReasonCode:     ReasonCode(body[1]),
	}, nil
}

// decodePublish parses a full PUBLISH packet, properties included. The
// broker's re-emission path does not use this: it relies on ParseTopic
// instead, to avoid paying for a properties parse it immediately discards.
func decodePublish(body []byte) (Packet, error) {
	topic, body, err := decodeString(body, PublishType)
	if err != nil {
		return nil, err
	}

	if len(body) < 1 {
		return nil, newDecodeError(PublishType, "truncated properties length")
	}
	propsLen := int(body[0])
	body = body[1:]

	props, payload, err := decodeProperties(body, propsLen)
	if err != nil {
		return nil, err
	}

	return Publish{
		Topic:      topic,
		Properties: props,
		Payload:    payload,
	}, nil
}

func decodeSubscribe(body []byte) (Packet, error) {
	if len(body) < 2 {
		return nil, newDecodeError(SubscribeType, "truncated packet id")
	}
	packetID := binary.BigEndian.Uint16(body[:2])
	body = body[2:]

	var filters []TopicFilter
	for len(body) > 0 {
		var topic string
		var err error
		topic, body, err = decodeString(body, SubscribeType)
		if err != nil {
			return nil, err
		}
		if len(body) < 1 {
			return nil, newDecodeError(SubscribeType, "truncated QoS byte")
		}
		filters = append(filters, TopicFilter{Topic: topic, QoS: body[0]})
		body = body[1:]
	}

	if len(filters) == 0 {
		return nil, newDecodeError(SubscribeType, "no topic filters")
	}

	return Subscribe{PacketID: packetID, Filters: filters}, nil
}

func decodeSubAck(body []byte) (Packet, error) {
	if len(body) < 3 {
		return nil, newDecodeError(SubAckType, "truncated packet")
	}
	packetID := binary.BigEndian.Uint16(body[:2])
	body = body[2:]

	codes := make([]ReasonCode, len(body))
	for i, b := range body {
		codes[i] = ReasonCode(b)
	}

	return SubAck{PacketID: packetID, ReasonCodes: codes}, nil
}

func decodeUnsubscribe(body []byte) (Packet, error) {
	if len(body) < 2 {
		return nil, newDecodeError(UnsubscribeType, "truncated packet id")
	}
	packetID := binary.BigEndian.Uint16(body[:2])
	body = body[2:]

	var topics []string
	for len(body) > 0 {
		var topic string
		var err error
		topic, body, err = decodeString(body, UnsubscribeType)
		if err != nil {
			return nil, err
		}
		topics = append(topics, topic)
	}

	if len(topics) == 0 {
		return nil, newDecodeError(UnsubscribeType, "no topics")
	}

	return Unsubscribe{PacketID: packetID, Topics: topics}, nil
}

func decodeUnsubAck(body []byte) (Packet, error) {
	if len(body) != 3 {
		return nil, newDecodeError(UnsubAckType, "expected 3-byte body, got %d", len(body))
	}
	packetID := binary.BigEndian.Uint16(body[:2])
	return UnsubAck{PacketID: packetID, ReasonCode: ReasonCode(body[2])}, nil
}
