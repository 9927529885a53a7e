// Package message defines the fixed-layout datagrams exchanged between camper
// nodes. Every datagram starts with the same 3-byte header so any node can
// classify it before knowing the full type; the remainder is variant-specific
// with a size that is fixed per type tag (no length prefix on the wire).
package message

import "fmt"

// Role identifies a node kind. Each running node owns exactly one role for its
// lifetime, and every header carries a source and destination role.
type Role uint8

const (
	RoleHub Role = iota
	RoleRearCam
)

func (r Role) String() string {
	switch r {
	case RoleHub:
		return "hub"
	case RoleRearCam:
		return "rear-camera"
	default:
		return fmt.Sprintf("role(%d)", uint8(r))
	}
}

// Type is the message-type tag carried in the header.
type Type uint8

const (
	TypeMoveTo Type = iota
	TypeHeartbeat
)

func (t Type) String() string {
	switch t {
	case TypeMoveTo:
		return "move-to"
	case TypeHeartbeat:
		return "heartbeat"
	default:
		return fmt.Sprintf("type(0x%02x)", uint8(t))
	}
}

// Header is the first HeaderSize bytes of every datagram: source role,
// destination role, message-type tag. Single-byte fields, no padding.
type Header struct {
	Src  Role
	Dest Role
	Type Type
}

// MoveTo commands the rear camera actuator to a target angle (0-180).
// Values above MaxAngle fit on the wire but are rejected by the actuator.
type MoveTo struct {
	Header
	Angle uint8
}

// MaxAngle is the upper bound of the actuator's declared range.
const MaxAngle = 180

// NewMoveTo builds a move command with a correctly tagged header.
func NewMoveTo(src, dest Role, angle uint8) MoveTo {
	return MoveTo{
		Header: Header{Src: src, Dest: dest, Type: TypeMoveTo},
		Angle:  angle,
	}
}

// Heartbeat is a periodic liveness announcement carrying a short node name.
// The text occupies a fixed NUL-padded field on the wire; anything longer
// than HeartbeatTextSize bytes is truncated at encode time.
type Heartbeat struct {
	Header
	Text string
}

// HeartbeatTextSize is the width of the heartbeat text field on the wire.
const HeartbeatTextSize = 16

// NewHeartbeat builds a heartbeat with a correctly tagged header.
func NewHeartbeat(src, dest Role, text string) Heartbeat {
	return Heartbeat{
		Header: Header{Src: src, Dest: dest, Type: TypeHeartbeat},
		Text:   text,
	}
}
