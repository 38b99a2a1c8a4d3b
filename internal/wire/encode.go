package wire

import "encoding/binary"

// Encode serializes p into a single MQTT control packet ready to be sent as
// one WebSocket binary frame.
func Encode(p Packet) ([]byte, error) {
	switch pkt := p.(type) {
	case Connect:
		return encodeConnect(pkt)
	case ConnAck:
		return encodeConnAck(pkt)
	case Publish:
		return encodePublish(pkt)
	case Subscribe:
		return encodeSubscribe(pkt)
	case SubAck:
		return encodeSubAck(pkt)
	case Unsubscribe:
		return encodeUnsubscribe(pkt)
	case UnsubAck:
		return encodeUnsubAck(pkt)
	case PingReq:
		return encodeNaked(PingReqType, flagsPingReq)
	case PingResp:
		return encodeNaked(PingRespType, flagsPingResp)
	case Disconnect:
		return encodeNaked(DisconnectType, flagsDisconnect)
	default:
		return nil, newDecodeError(0, "unsupported packet type %T", p)
	}
}

func assembleFrame(t PacketType, flags byte, body []byte) ([]byte, error) {
	frame := make([]byte, 0, len(body)+5)
	frame = append(frame, byte(t)<<4|flags)

	frame, err := encodeRemainingLength(frame, len(body))
	if err != nil {
		return nil, err
	}

	return append(frame, body...), nil
}

func encodeNaked(t PacketType, flags byte) ([]byte, error) {
	return assembleFrame(t, flags, nil)
}

func encodeConnect(p Connect) ([]byte, error) {
	var body []byte
	var err error

	protocolName := p.ProtocolName
	if protocolName == "" {
		protocolName = "MQTT"
	}
	protocolLevel := p.ProtocolLevel
	if protocolLevel == 0 {
		protocolLevel = 4
	}

	body, err = encodeString(body, protocolName)
	if err != nil {
		return nil, err
	}
	body = append(body, protocolLevel, p.ConnectFlags)

	var keepAlive [2]byte
	binary.BigEndian.PutUint16(keepAlive[:], p.KeepAlive)
	body = append(body, keepAlive[:]...)

	body, err = encodeString(body, p.ClientID)
	if err != nil {
		return nil, err
	}

	return assembleFrame(ConnectType, flagsConnect, body)
}

func encodeConnAck(p ConnAck) ([]byte, error) {
	var sessionPresent byte
	if p.SessionPresent {
		sessionPresent = 1
	}
	body := []byte{sessionPresent, byte(p.ReasonCode)}
	return assembleFrame(ConnAckType, flagsConnAck, body)
}

func encodePublish(p Publish) ([]byte, error) {
	body, err := encodeString(nil, p.Topic)
	if err != nil {
		return nil, err
	}

	propsBytes, err := encodeProperties(p.Properties)
	if err != nil {
		return nil, err
	}

	body = append(body, byte(len(propsBytes)))
	body = append(body, propsBytes...)
	body = append(body, p.Payload...)

	return assembleFrame(PublishType, 0, body)
}

func encodeSubscribe(p Subscribe) ([]byte, error) {
	var packetID [2]byte
	binary.BigEndian.PutUint16(packetID[:], p.PacketID)
	body := append([]byte{}, packetID[:]...)

	var err error
	for _, f := range p.Filters {
		body, err = encodeString(body, f.Topic)
		if err != nil {
			return nil, err
		}
		body = append(body, f.QoS)
	}

	return assembleFrame(SubscribeType, flagsSubscribe, body)
}

func encodeSubAck(p SubAck) ([]byte, error) {
	var packetID [2]byte
	binary.BigEndian.PutUint16(packetID[:], p.PacketID)
	body := append([]byte{}, packetID[:]...)

	for _, rc := range p.ReasonCodes {
		body = append(body, byte(rc))
	}

	return assembleFrame(SubAckType, flagsSubAck, body)
}

func encodeUnsubscribe(p Unsubscribe) ([]byte, error) {
	var packetID [2]byte
	binary.BigEndian.PutUint16(packetID[:], p.PacketID)
	body := append([]byte{}, packetID[:]...)

	var err error
	for _, topic := range p.Topics {
		body, err = encodeString(body, topic)
		if err != nil {
			return nil, err
		}
	}

	return assembleFrame(UnsubscribeType, flagsUnsubscribe, body)
}

func encodeUnsubAck(p UnsubAck) ([]byte, error) {
	var packetID [2]byte
	binary.BigEndian.PutUint16(packetID[:], p.PacketID)
	body := append(append([]byte{}, packetID[:]...), byte(p.ReasonCode))
	return assembleFrame(UnsubAckType, flagsUnsubAck, body)
}
