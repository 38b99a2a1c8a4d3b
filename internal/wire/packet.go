// Package wire implements the byte-accurate encoder/decoder for the subset
// of MQTT 5 control packets WaveCast speaks over a WebSocket binary frame.
// It performs no I/O and holds no state: every exported function takes a
// byte slice (or a typed Packet) and returns the other.
package wire

import "fmt"

// PacketType identifies the control packet kind carried in the high nibble
// of the fixed header's first byte. Only the values below are supported;
// anything else is a DecodeError.
type PacketType byte

const (
	ConnectType     PacketType = 1
	ConnAckType     PacketType = 2
	PublishType     PacketType = 3
	SubscribeType   PacketType = 8
	SubAckType      PacketType = 9
	UnsubscribeType PacketType = 10
	UnsubAckType    PacketType = 11
	PingReqType     PacketType = 12
	PingRespType    PacketType = 13
	DisconnectType  PacketType = 14
)

func (t PacketType) String() string {
	switch t {
	case ConnectType:
		return "CONNECT"
	case ConnAckType:
		return "CONNACK"
	case PublishType:
		return "PUBLISH"
	case SubscribeType:
		return "SUBSCRIBE"
	case SubAckType:
		return "SUBACK"
	case UnsubscribeType:
		return "UNSUBSCRIBE"
	case UnsubAckType:
		return "UNSUBACK"
	case PingReqType:
		return "PINGREQ"
	case PingRespType:
		return "PINGRESP"
	case DisconnectType:
		return "DISCONNECT"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", byte(t))
	}
}

// fixed header flags for the packet types that fix theirs.
const (
	flagsConnect     byte = 0x00
	flagsConnAck     byte = 0x00
	flagsSubscribe   byte = 0x02
	flagsSubAck      byte = 0x00
	flagsUnsubscribe byte = 0x02
	flagsUnsubAck    byte = 0x00
	flagsPingReq     byte = 0x00
	flagsPingResp    byte = 0x00
	flagsDisconnect  byte = 0x00
)

// ReasonCode is a one-byte MQTT reason/return code. This subset only ever
// produces Success; the type exists so call sites read as intent rather
// than a bare zero, matching the vocabulary of codecs like ReturnCode in
// the wider MQTT ecosystem.
type ReasonCode byte

// Success is the only reason code this implementation ever emits: QoS 0,
// no authentication, no wildcards, nothing that can be meaningfully
// rejected at the protocol layer handled here.
const Success ReasonCode = 0

// Packet is the tagged-variant interface implemented by every decoded or
// to-be-encoded control packet in this subset.
type Packet interface {
	Type() PacketType
	String() string
}

// Connect is sent by a client as the first packet on a new connection.
type Connect struct {
	ClientID      string
	ProtocolName  string
	ProtocolLevel byte
	ConnectFlags  byte
	KeepAlive     uint16
}

func (Connect) Type() PacketType { return ConnectType }
func (p Connect) String() string {
	return fmt.Sprintf("<CONNECT client_id=%q keep_alive=%d>", p.ClientID, p.KeepAlive)
}

// ConnAck is the broker's reply to CONNECT.
type ConnAck struct {
	SessionPresent bool
	ReasonCode     ReasonCode
}

func (ConnAck) Type() PacketType { return ConnAckType }
func (p ConnAck) String() string {
	return fmt.Sprintf("<CONNACK session_present=%v reason=%d>", p.SessionPresent, p.ReasonCode)
}

// Publish carries an application message addressed to a topic.
type Publish struct {
	Topic      string
	Properties PublishProperties
	Payload    []byte
}

func (Publish) Type() PacketType { return PublishType }
func (p Publish) String() string {
	return fmt.Sprintf("<PUBLISH topic=%q len=%d>", p.Topic, len(p.Payload))
}

// TopicFilter pairs a topic with its requested QoS in a SUBSCRIBE packet.
// QoS is parsed but otherwise ignored: every delivery in this subset is
// best-effort.
type TopicFilter struct {
	Topic string
	QoS   byte
}

// Subscribe requests one or more topic subscriptions.
type Subscribe struct {
	PacketID uint16
	Filters  []TopicFilter
}

func (Subscribe) Type() PacketType { return SubscribeType }
func (p Subscribe) String() string {
	return fmt.Sprintf("<SUBSCRIBE id=%d topics=%d>", p.PacketID, len(p.Filters))
}

// SubAck acknowledges a SUBSCRIBE, one reason code per requested topic in
// the same order.
type SubAck struct {
	PacketID    uint16
	ReasonCodes []ReasonCode
}

func (SubAck) Type() PacketType { return SubAckType }
func (p SubAck) String() string {
	return fmt.Sprintf("<SUBACK id=%d codes=%d>", p.PacketID, len(p.ReasonCodes))
}

// Unsubscribe requests removal of one or more topic subscriptions.
type Unsubscribe struct {
	PacketID uint16
	Topics   []string
}

func (Unsubscribe) Type() PacketType { return UnsubscribeType }
func (p Unsubscribe) String() string {
	return fmt.Sprintf("<UNSUBSCRIBE id=%d topics=%d>", p.PacketID, len(p.Topics))
}

// UnsubAck acknowledges an UNSUBSCRIBE. The wire layout carries a single
// trailing reason-code byte regardless of how many topics were named;
// this implementation always emits Success.
type UnsubAck struct {
	PacketID   uint16
	ReasonCode ReasonCode
}

func (UnsubAck) Type() PacketType { return UnsubAckType }
func (p UnsubAck) String() string {
	return fmt.Sprintf("<UNSUBACK id=%d reason=%d>", p.PacketID, p.ReasonCode)
}

// PingReq keeps the connection alive and asks for a PingResp.
type PingReq struct{}

func (PingReq) Type() PacketType { return PingReqType }
func (PingReq) String() string   { return "<PINGREQ>" }

// PingResp answers a PingReq.
type PingResp struct{}

func (PingResp) Type() PacketType { return PingRespType }
func (PingResp) String() string   { return "<PINGRESP>" }

// Disconnect is the final packet a client sends before a clean close.
type Disconnect struct{}

func (Disconnect) Type() PacketType { return DisconnectType }
func (Disconnect) String() string   { return "<DISCONNECT>" }
