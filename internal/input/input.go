// Package input reads the hub's momentary switch and turns raw line chatter
// into clean press and release edges.
package input

import (
	"time"

	"github.com/rs/zerolog"
)

// Raw line levels. The switch closes to ground behind a pull-up, so the idle
// line reads high and a press reads low.
const (
	levelPressed  = 0
	levelReleased = 1
)

// Edge is a confirmed switch transition.
type Edge int

const (
	EdgeNone Edge = iota
	EdgePress
	EdgeRelease
)

func (e Edge) String() string {
	switch e {
	case EdgePress:
		return "press"
	case EdgeRelease:
		return "release"
	default:
		return "none"
	}
}

// Reader reads the current raw level of a digital line.
type Reader interface {
	Value() (int, error)
}

// Debouncer confirms a raw level change only after it has held for a full
// debounce window. Chatter inside the window restarts it, so a bouncing
// contact settles to exactly one edge. Press and release always alternate:
// a release edge is never reported before its press.
type Debouncer struct {
	src    Reader
	window time.Duration
	log    zerolog.Logger

	confirmed int
	candidate int
	changedAt time.Time
	pressed   bool
}

// NewDebouncer wraps src with the given debounce window. The line is assumed
// released at start; a switch held down across startup is reported as a press
// once the window elapses.
func NewDebouncer(src Reader, window time.Duration, log zerolog.Logger) *Debouncer {
	return &Debouncer{
		src:       src,
		window:    window,
		log:       log,
		confirmed: levelReleased,
		candidate: levelReleased,
	}
}

// Poll samples the line and reports at most one confirmed edge. It is meant
// to be called from the node loop on every tick with the loop's clock.
func (d *Debouncer) Poll(now time.Time) (Edge, error) {
	raw, err := d.src.Value()
	if err != nil {
		return EdgeNone, err
	}

	if raw != d.candidate {
		d.candidate = raw
		d.changedAt = now
	}

	if d.candidate == d.confirmed {
		return EdgeNone, nil
	}
	if now.Sub(d.changedAt) < d.window {
		return EdgeNone, nil
	}

	d.confirmed = d.candidate
	if d.confirmed == levelPressed {
		d.pressed = true
		d.log.Debug().Msg("Switch pressed")
		return EdgePress, nil
	}
	if d.pressed {
		d.pressed = false
		d.log.Debug().Msg("Switch released")
		return EdgeRelease, nil
	}
	return EdgeNone, nil
}
