package frame

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// PacketType is the transport-level type carried in the first byte.
type PacketType byte

const (
	PacketOpen    PacketType = '0'
	PacketClose   PacketType = '1'
	PacketPing    PacketType = '2'
	PacketPong    PacketType = '3'
	PacketMessage PacketType = '4'
	PacketUpgrade PacketType = '5'
	PacketNoop    PacketType = '6'
)

// MessageType is the socket-level type carried in the second byte of a message packet.
type MessageType byte

const (
	MessageConnect      MessageType = '0'
	MessageDisconnect   MessageType = '1'
	MessageEvent        MessageType = '2'
	MessageAck          MessageType = '3'
	MessageConnectError MessageType = '4'
	MessageBinaryEvent  MessageType = '5'
	MessageBinaryAck    MessageType = '6'
)

const DefaultNamespace = "/"

var (
	ErrEmptyFrame          = errors.New("frame: empty frame")
	ErrUnknownPacketType   = errors.New("frame: unknown packet type")
	ErrUnknownMessageType  = errors.New("frame: unknown message type")
	ErrTruncated           = errors.New("frame: truncated frame")
	ErrBinaryUnsupported   = errors.New("frame: binary attachments unsupported")
	ErrInvalidAckID        = errors.New("frame: invalid ack id")
	ErrNotEvent            = errors.New("frame: not an event message")
	ErrMalformedEvent      = errors.New("frame: malformed event data")
	ErrMalformedHandshake  = errors.New("frame: malformed open handshake")
	ErrMessageTypeMismatch = errors.New("frame: message type on non-message packet")
)

// Frame is one decoded text frame.
//
// Message, Namespace and AckID are only meaningful when Packet is PacketMessage.
type Frame struct {
	Packet    PacketType
	Message   MessageType
	Namespace string
	AckID     uint64
	HasAck    bool
	Data      []byte
}

// Handshake is the JSON body of an open packet.
type Handshake struct {
	SID          string   `json:"sid"`
	Upgrades     []string `json:"upgrades"`
	PingInterval int64    `json:"pingInterval"`
	PingTimeout  int64    `json:"pingTimeout"`
	MaxPayload   int64    `json:"maxPayload"`
}

func (h Handshake) Interval() time.Duration {
	return time.Duration(h.PingInterval) * time.Millisecond
}

func (h Handshake) Timeout() time.Duration {
	return time.Duration(h.PingTimeout) * time.Millisecond
}

func validPacket(p PacketType) bool {
	return p >= PacketOpen && p <= PacketNoop
}

func validMessage(m MessageType) bool {
	return m >= MessageConnect && m <= MessageBinaryAck
}

// Decode parses one text frame. Data aliases raw.
func Decode(raw []byte) (Frame, error) {
	if len(raw) == 0 {
		return Frame{}, ErrEmptyFrame
	}
	f := Frame{Packet: PacketType(raw[0])}
	if !validPacket(f.Packet) {
		return Frame{}, fmt.Errorf("%w: %q", ErrUnknownPacketType, raw[0])
	}
	if f.Packet != PacketMessage {
		f.Data = raw[1:]
		return f, nil
	}

	if len(raw) < 2 {
		return Frame{}, fmt.Errorf("%w: message without socket type", ErrTruncated)
	}
	f.Message = MessageType(raw[1])
	if !validMessage(f.Message) {
		return Frame{}, fmt.Errorf("%w: %q", ErrUnknownMessageType, raw[1])
	}
	if f.Message == MessageBinaryEvent || f.Message == MessageBinaryAck {
		return Frame{}, ErrBinaryUnsupported
	}

	rest := raw[2:]
	f.Namespace = DefaultNamespace
	if len(rest) > 0 && rest[0] == '/' {
		if idx := bytes.IndexByte(rest, ','); idx >= 0 {
			f.Namespace = string(rest[:idx])
			rest = rest[idx+1:]
		} else {
			f.Namespace = string(rest)
			rest = nil
		}
	}

	digits := 0
	for digits < len(rest) && rest[digits] >= '0' && rest[digits] <= '9' {
		digits++
	}
	if digits > 0 {
		id, err := strconv.ParseUint(string(rest[:digits]), 10, 64)
		if err != nil {
			return Frame{}, fmt.Errorf("%w: %v", ErrInvalidAckID, err)
		}
		f.AckID = id
		f.HasAck = true
		rest = rest[digits:]
	}
	f.Data = rest
	return f, nil
}

// Encode is the inverse of Decode.
func Encode(f Frame) ([]byte, error) {
	if !validPacket(f.Packet) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPacketType, byte(f.Packet))
	}
	if f.Packet != PacketMessage {
		if f.Message != 0 {
			return nil, ErrMessageTypeMismatch
		}
		out := make([]byte, 0, 1+len(f.Data))
		out = append(out, byte(f.Packet))
		return append(out, f.Data...), nil
	}
	if !validMessage(f.Message) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessageType, byte(f.Message))
	}

	var buf bytes.Buffer
	buf.WriteByte(byte(f.Packet))
	buf.WriteByte(byte(f.Message))
	if f.Namespace != "" && f.Namespace != DefaultNamespace {
		buf.WriteString(f.Namespace)
		buf.WriteByte(',')
	}
	if f.HasAck {
		buf.WriteString(strconv.FormatUint(f.AckID, 10))
	}
	buf.Write(f.Data)
	return buf.Bytes(), nil
}

// IsControl reports whether the frame carries no application event.
func (f Frame) IsControl() bool {
	return f.Packet != PacketMessage || f.Message != MessageEvent
}

// Event splits event data into its name and first argument.
// The name is always element 0 of the JSON array; payload is nil when absent.
func (f Frame) Event() (string, json.RawMessage, error) {
	if f.Packet != PacketMessage || f.Message != MessageEvent {
		return "", nil, ErrNotEvent
	}
	var parts []json.RawMessage
	if err := json.Unmarshal(f.Data, &parts); err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if len(parts) == 0 {
		return "", nil, fmt.Errorf("%w: empty array", ErrMalformedEvent)
	}
	var name string
	if err := json.Unmarshal(parts[0], &name); err != nil {
		return "", nil, fmt.Errorf("%w: event name is not a string", ErrMalformedEvent)
	}
	if len(parts) < 2 {
		return name, nil, nil
	}
	return name, parts[1], nil
}

// Handshake decodes the body of an open packet.
func (f Frame) Handshake() (Handshake, error) {
	if f.Packet != PacketOpen {
		return Handshake{}, fmt.Errorf("%w: packet=%q", ErrMalformedHandshake, byte(f.Packet))
	}
	var h Handshake
	if err := json.Unmarshal(f.Data, &h); err != nil {
		return Handshake{}, fmt.Errorf("%w: %v", ErrMalformedHandshake, err)
	}
	if h.PingInterval < 0 || h.PingTimeout < 0 {
		return Handshake{}, fmt.Errorf("%w: negative ping timing", ErrMalformedHandshake)
	}
	return h, nil
}

// Connect builds the namespace connect packet ("40" for the default namespace).
func Connect(namespace string) []byte {
	out, _ := Encode(Frame{Packet: PacketMessage, Message: MessageConnect, Namespace: namespace})
	return out
}

func Pong() []byte {
	return []byte{byte(PacketPong)}
}

func Ping() []byte {
	return []byte{byte(PacketPing)}
}

// EncodeEvent builds an event message on the default namespace.
func EncodeEvent(name string, args ...any) ([]byte, error) {
	parts := make([]any, 0, 1+len(args))
	parts = append(parts, name)
	parts = append(parts, args...)
	data, err := json.Marshal(parts)
	if err != nil {
		return nil, err
	}
	return Encode(Frame{Packet: PacketMessage, Message: MessageEvent, Data: data})
}

// EncodeOpen builds an open packet.
func EncodeOpen(h Handshake) ([]byte, error) {
	data, err := json.Marshal(h)
	if err != nil {
		return nil, err
	}
	return Encode(Frame{Packet: PacketOpen, Data: data})
}
