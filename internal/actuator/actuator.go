// Package actuator drives the rear camera servo. Motion is slew limited: the
// controller walks one degree at a time toward the target so the camera never
// snaps, and the resting position is persisted so a restart resumes where the
// horn actually is.
package actuator

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/diericx/camper/internal/message"
)

// ErrInvalidTarget marks a commanded angle outside the servo's range.
var ErrInvalidTarget = errors.New("invalid target angle")

// Storage keys for the persisted position.
const (
	posNamespace = "rearCamera"
	posKey       = "servoPos"

	defaultPosition = 0
)

// Servo is the hardware write boundary.
type Servo interface {
	Write(angle uint8) error
}

// PositionStore persists the resting position between runs.
type PositionStore interface {
	GetInt(namespace, key string, def int) (int, error)
	PutInt(namespace, key string, val int) error
}

// Controller owns the servo position. It is not safe for concurrent use; the
// node loop is its only caller.
type Controller struct {
	servo        Servo
	store        PositionStore
	stepInterval time.Duration
	log          zerolog.Logger

	pos int
}

// NewController builds a controller stepping one degree per stepInterval.
// An interval of zero steps without pausing, which tests rely on.
func NewController(servo Servo, store PositionStore, stepInterval time.Duration, log zerolog.Logger) *Controller {
	return &Controller{
		servo:        servo,
		store:        store,
		stepInterval: stepInterval,
		log:          log,
	}
}

// Init loads the persisted position and drives the servo there. A storage
// failure falls back to the default position rather than blocking startup.
func (c *Controller) Init() error {
	pos, err := c.store.GetInt(posNamespace, posKey, defaultPosition)
	if err != nil {
		c.log.Warn().Err(err).Int("default", defaultPosition).Msg("Could not read stored position, using default")
	}
	c.pos = pos

	if err := c.servo.Write(uint8(pos)); err != nil {
		return fmt.Errorf("driving servo to %d: %w", pos, err)
	}

	c.log.Info().Int("position", pos).Msg("Servo initialized")
	return nil
}

// Position returns the current resting position.
func (c *Controller) Position() int {
	return c.pos
}

// MoveTo walks the servo to target one degree per step interval, blocking
// until it arrives, then persists the new resting position. A target equal to
// the current position is a no-op and is not re-persisted. A storage failure
// after a completed motion is logged, not returned; the horn already moved.
func (c *Controller) MoveTo(target int) error {
	if target < 0 || target > message.MaxAngle {
		return fmt.Errorf("%w: %d not in [0, %d]", ErrInvalidTarget, target, message.MaxAngle)
	}
	if target == c.pos {
		return nil
	}

	c.log.Info().Int("from", c.pos).Int("to", target).Msg("Moving servo")

	for c.pos != target {
		if target > c.pos {
			c.pos++
		} else {
			c.pos--
		}
		if err := c.servo.Write(uint8(c.pos)); err != nil {
			return fmt.Errorf("stepping servo to %d: %w", c.pos, err)
		}
		if c.stepInterval > 0 {
			time.Sleep(c.stepInterval)
		}
	}

	if err := c.store.PutInt(posNamespace, posKey, c.pos); err != nil {
		c.log.Warn().Err(err).Int("position", c.pos).Msg("Could not persist position")
	}
	return nil
}
