package message

import (
	"errors"
	"fmt"
)

// HeaderSize is the length of the common header prefix.
const HeaderSize = 3

// Encoded datagram lengths per type tag. Decoding rejects any other length
// for the tag, so a truncated or padded datagram never half-parses.
const (
	moveToSize    = HeaderSize + 1
	heartbeatSize = HeaderSize + HeartbeatTextSize
)

var (
	// ErrMalformedMessage marks a datagram whose size does not match its
	// type tag, or that is too short to carry a header at all.
	ErrMalformedMessage = errors.New("malformed message")

	// ErrUnknownMessageType marks a header whose type tag is not a
	// recognized variant.
	ErrUnknownMessageType = errors.New("unknown message type")
)

// DecodeHeader reads the common prefix without touching the body. It fails
// only when fewer than HeaderSize bytes are present; the tag is reported as
// carried, recognized or not, so receivers can log before rejecting.
func DecodeHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, fmt.Errorf("%w: %d bytes, want at least %d", ErrMalformedMessage, len(b), HeaderSize)
	}
	return Header{Src: Role(b[0]), Dest: Role(b[1]), Type: Type(b[2])}, nil
}

func (h Header) encode(b []byte) {
	b[0] = uint8(h.Src)
	b[1] = uint8(h.Dest)
	b[2] = uint8(h.Type)
}

// Encode serializes the command. The header tag is forced to TypeMoveTo so a
// hand-built value cannot go out mistagged.
func (m MoveTo) Encode() []byte {
	b := make([]byte, moveToSize)
	m.Header.Type = TypeMoveTo
	m.Header.encode(b)
	b[HeaderSize] = m.Angle
	return b
}

// DecodeMoveTo parses a full datagram carrying a move command.
func DecodeMoveTo(b []byte) (MoveTo, error) {
	h, err := DecodeHeader(b)
	if err != nil {
		return MoveTo{}, err
	}
	if h.Type != TypeMoveTo {
		return MoveTo{}, fmt.Errorf("%w: tag %s, want %s", ErrMalformedMessage, h.Type, TypeMoveTo)
	}
	if len(b) != moveToSize {
		return MoveTo{}, fmt.Errorf("%w: %s is %d bytes, want %d", ErrMalformedMessage, h.Type, len(b), moveToSize)
	}
	return MoveTo{Header: h, Angle: b[HeaderSize]}, nil
}

// Encode serializes the heartbeat, NUL-padding or truncating the text to the
// fixed field width.
func (m Heartbeat) Encode() []byte {
	b := make([]byte, heartbeatSize)
	m.Header.Type = TypeHeartbeat
	m.Header.encode(b)
	copy(b[HeaderSize:], m.Text)
	return b
}

// DecodeHeartbeat parses a full datagram carrying a heartbeat. The text is
// trimmed at the first NUL, matching the padding Encode applies.
func DecodeHeartbeat(b []byte) (Heartbeat, error) {
	h, err := DecodeHeader(b)
	if err != nil {
		return Heartbeat{}, err
	}
	if h.Type != TypeHeartbeat {
		return Heartbeat{}, fmt.Errorf("%w: tag %s, want %s", ErrMalformedMessage, h.Type, TypeHeartbeat)
	}
	if len(b) != heartbeatSize {
		return Heartbeat{}, fmt.Errorf("%w: %s is %d bytes, want %d", ErrMalformedMessage, h.Type, len(b), heartbeatSize)
	}
	text := b[HeaderSize:]
	for i, c := range text {
		if c == 0 {
			text = text[:i]
			break
		}
	}
	return Heartbeat{Header: h, Text: string(text)}, nil
}

// Decode classifies a datagram by its header tag and parses the matching
// variant. Unrecognized tags fail with ErrUnknownMessageType.
func Decode(b []byte) (any, error) {
	h, err := DecodeHeader(b)
	if err != nil {
		return nil, err
	}
	switch h.Type {
	case TypeMoveTo:
		return DecodeMoveTo(b)
	case TypeHeartbeat:
		return DecodeHeartbeat(b)
	default:
		return nil, fmt.Errorf("%w: tag 0x%02x", ErrUnknownMessageType, uint8(h.Type))
	}
}
