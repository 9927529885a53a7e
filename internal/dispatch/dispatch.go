// Package dispatch routes received frames to the local device role. Every
// node overhears all link traffic; the dispatcher peels the shared header and
// delivers only frames addressed to this node's role.
package dispatch

import (
	"github.com/rs/zerolog"

	"github.com/diericx/camper/internal/message"
)

// Sink receives frames that passed the destination filter. The full frame is
// handed over, header included, so the sink can decode the typed variant.
type Sink interface {
	OnReceive(h message.Header, frame []byte, from string)
}

// Stats counts dispatch outcomes since startup.
type Stats struct {
	Delivered uint64 `json:"delivered"`
	Ignored   uint64 `json:"ignored"`
	Dropped   uint64 `json:"dropped"`
}

// Dispatcher filters frames for one role. It is driven from the node loop
// only and keeps its counters unsynchronized.
type Dispatcher struct {
	role    message.Role
	ownAddr string
	sink    Sink
	log     zerolog.Logger
	stats   Stats
}

// New builds a dispatcher delivering to sink everything addressed to role.
// Frames whose source is ownAddr are ignored; the transports already filter
// self-originated broadcasts, this is the second line.
func New(role message.Role, ownAddr string, sink Sink, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{role: role, ownAddr: ownAddr, sink: sink, log: log}
}

// Dispatch classifies one raw frame. Frames too short for a header are
// dropped; self-originated frames and frames for other roles are ignored.
func (d *Dispatcher) Dispatch(frame []byte, from string) {
	if from != "" && from == d.ownAddr {
		d.stats.Ignored++
		return
	}

	h, err := message.DecodeHeader(frame)
	if err != nil {
		d.stats.Dropped++
		d.log.Warn().Err(err).Str("from", from).Msg("Dropping frame")
		return
	}

	if h.Dest != d.role {
		d.stats.Ignored++
		d.log.Debug().
			Str("from", from).
			Str("dest", h.Dest.String()).
			Msg("Ignoring frame for other role")
		return
	}

	d.stats.Delivered++
	d.sink.OnReceive(h, frame, from)
}

// Stats returns the counters.
func (d *Dispatcher) Stats() Stats {
	return d.stats
}
