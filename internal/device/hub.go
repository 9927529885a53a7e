package device

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/diericx/camper/internal/actuator"
	"github.com/diericx/camper/internal/input"
	"github.com/diericx/camper/internal/message"
	"github.com/diericx/camper/internal/peers"
)

// How often the hub sweeps the peer registry for silent nodes.
const registrySweepInterval = 5 * time.Second

// Hub is the input node: it watches the cabin switch and commands the rear
// camera. It also keeps the peer registry fed from heartbeats.
type Hub struct {
	name          string
	sw            *input.Debouncer
	link          Link
	registry      *peers.Registry
	pressedAngle  int
	releasedAngle int
	log           zerolog.Logger

	initialized bool
	nextSweep   time.Time
}

// NewHub builds the hub role. Both angles must be within the actuator range.
func NewHub(name string, sw *input.Debouncer, link Link, registry *peers.Registry, pressedAngle, releasedAngle int, log zerolog.Logger) (*Hub, error) {
	for _, a := range []int{pressedAngle, releasedAngle} {
		if a < 0 || a > message.MaxAngle {
			return nil, fmt.Errorf("angle %d not in [0, %d]", a, message.MaxAngle)
		}
	}
	return &Hub{
		name:          name,
		sw:            sw,
		link:          link,
		registry:      registry,
		pressedAngle:  pressedAngle,
		releasedAngle: releasedAngle,
		log:           log,
	}, nil
}

// Init registers the broadcast peer.
func (h *Hub) Init() error {
	if h.initialized {
		return fmt.Errorf("hub already initialized")
	}
	h.initialized = true

	if err := h.link.RegisterBroadcastPeer(); err != nil {
		return err
	}

	h.log.Info().
		Str("name", h.name).
		Int("pressed_angle", h.pressedAngle).
		Int("released_angle", h.releasedAngle).
		Msg("Hub ready")
	return nil
}

// OnReceive logs every inbound frame. Heartbeats additionally refresh the
// peer registry.
func (h *Hub) OnReceive(hdr message.Header, frame []byte, from string) {
	switch hdr.Type {
	case message.TypeHeartbeat:
		hb, err := message.DecodeHeartbeat(frame)
		if err != nil {
			h.log.Warn().Err(err).Str("from", from).Msg("Bad heartbeat")
			return
		}
		h.log.Debug().
			Str("peer", hb.Text).
			Str("from", from).
			Msg("Heartbeat received")
		if h.registry != nil {
			h.registry.MarkSeen(hb.Text, hdr.Src.String(), from, time.Now())
		}
	default:
		h.log.Info().
			Str("type", hdr.Type.String()).
			Str("src", hdr.Src.String()).
			Str("from", from).
			Msg("No handler for message type")
	}
}

// OnSendResult logs delivery outcomes of move commands.
func (h *Hub) OnSendResult(ok bool) {
	if ok {
		h.log.Debug().Msg("Delivery success")
	} else {
		h.log.Warn().Msg("Delivery failed")
	}
}

// OnPeriodic polls the switch and sends a move command on each confirmed
// edge, then sweeps the registry on its own slower cadence.
func (h *Hub) OnPeriodic(now time.Time) {
	edge, err := h.sw.Poll(now)
	if err != nil {
		h.log.Error().Err(err).Msg("Switch read failed")
	} else {
		switch edge {
		case input.EdgePress:
			if err := h.SendMove(h.pressedAngle); err != nil {
				h.log.Error().Err(err).Msg("Error sending move command")
			}
		case input.EdgeRelease:
			if err := h.SendMove(h.releasedAngle); err != nil {
				h.log.Error().Err(err).Msg("Error sending move command")
			}
		}
	}

	if h.registry != nil && now.After(h.nextSweep) {
		h.registry.Sweep(now)
		h.nextSweep = now.Add(registrySweepInterval)
	}
}

// Role returns the hub identity.
func (h *Hub) Role() message.Role {
	return message.RoleHub
}

// SendMove broadcasts a move command to the rear camera.
func (h *Hub) SendMove(angle int) error {
	if angle < 0 || angle > message.MaxAngle {
		return fmt.Errorf("%w: %d not in [0, %d]", actuator.ErrInvalidTarget, angle, message.MaxAngle)
	}

	m := message.NewMoveTo(message.RoleHub, message.RoleRearCam, uint8(angle))
	if err := h.link.Send(m.Encode()); err != nil {
		return fmt.Errorf("sending move command: %w", err)
	}
	h.log.Info().Int("angle", angle).Msg("Sent move command")
	return nil
}

// Peers lists the registry, empty when the hub runs without one.
func (h *Hub) Peers() []peers.Record {
	if h.registry == nil {
		return nil
	}
	return h.registry.List()
}
