package device

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/diericx/camper/internal/actuator"
	"github.com/diericx/camper/internal/message"
)

// RearCam is the actuator node: it executes move commands against the servo
// controller and announces itself to the hub with heartbeats.
type RearCam struct {
	name      string
	ctrl      *actuator.Controller
	link      Link
	heartbeat time.Duration
	log       zerolog.Logger

	initialized   bool
	nextHeartbeat time.Time
}

// NewRearCam builds the rear camera role. A zero heartbeat interval disables
// announcements.
func NewRearCam(name string, ctrl *actuator.Controller, link Link, heartbeat time.Duration, log zerolog.Logger) *RearCam {
	return &RearCam{
		name:      name,
		ctrl:      ctrl,
		link:      link,
		heartbeat: heartbeat,
		log:       log,
	}
}

// Init registers the broadcast peer and drives the servo to its persisted
// position.
func (r *RearCam) Init() error {
	if r.initialized {
		return fmt.Errorf("rear camera already initialized")
	}
	r.initialized = true

	if err := r.link.RegisterBroadcastPeer(); err != nil {
		return err
	}
	if err := r.ctrl.Init(); err != nil {
		return fmt.Errorf("initializing actuator: %w", err)
	}

	r.log.Info().
		Str("name", r.name).
		Int("position", r.ctrl.Position()).
		Msg("Rear camera ready")
	return nil
}

// OnReceive executes move commands. The motion blocks the loop until the
// horn reaches the target; commands received meanwhile queue up behind it.
func (r *RearCam) OnReceive(hdr message.Header, frame []byte, from string) {
	switch hdr.Type {
	case message.TypeMoveTo:
		m, err := message.DecodeMoveTo(frame)
		if err != nil {
			r.log.Warn().Err(err).Str("from", from).Msg("Bad move command")
			return
		}
		if err := r.ctrl.MoveTo(int(m.Angle)); err != nil {
			if errors.Is(err, actuator.ErrInvalidTarget) {
				r.log.Warn().Err(err).Str("from", from).Msg("Rejecting move command")
			} else {
				r.log.Error().Err(err).Msg("Move failed")
			}
		}
	default:
		r.log.Info().
			Str("type", hdr.Type.String()).
			Str("src", hdr.Src.String()).
			Str("from", from).
			Msg("No handler for message type")
	}
}

// OnSendResult logs heartbeat delivery outcomes.
func (r *RearCam) OnSendResult(ok bool) {
	if ok {
		r.log.Debug().Msg("Delivery success")
	} else {
		r.log.Warn().Msg("Delivery failed")
	}
}

// OnPeriodic emits a heartbeat when the interval has elapsed. The first tick
// after startup announces immediately.
func (r *RearCam) OnPeriodic(now time.Time) {
	if r.heartbeat <= 0 {
		return
	}
	if now.Before(r.nextHeartbeat) {
		return
	}
	r.nextHeartbeat = now.Add(r.heartbeat)

	hb := message.NewHeartbeat(message.RoleRearCam, message.RoleHub, r.name)
	if err := r.link.Send(hb.Encode()); err != nil {
		r.log.Warn().Err(err).Msg("Error sending heartbeat")
		return
	}
	r.log.Debug().Str("name", r.name).Msg("Heartbeat sent")
}

// Role returns the rear camera identity.
func (r *RearCam) Role() message.Role {
	return message.RoleRearCam
}

// Position reports the controller's current angle.
func (r *RearCam) Position() int {
	return r.ctrl.Position()
}

// MoveTo drives the servo directly, bypassing the link. The local control
// API uses it.
func (r *RearCam) MoveTo(angle int) error {
	return r.ctrl.MoveTo(angle)
}
