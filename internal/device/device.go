// Package device defines the node role lifecycle and implements the two
// camper roles. A device never touches the link or the clock directly: the
// node loop feeds it received frames, send outcomes and periodic ticks, and
// the device acts through the narrow boundaries it was built with.
package device

import (
	"time"

	"github.com/diericx/camper/internal/message"
)

// Link is the device's view of the transport: register the all-peers
// destination once during Init, then send encoded frames to it.
type Link interface {
	RegisterBroadcastPeer() error
	Send(data []byte) error
}

// Device is the role contract driven by the node loop. All methods run on
// the loop goroutine; implementations are free to keep unsynchronized state.
type Device interface {
	// Init registers the broadcast peer and prepares the role. It runs
	// exactly once; calling it again is an error. The node decides whether
	// a failure is fatal or leaves the role running degraded.
	Init() error

	// OnReceive handles one frame addressed to this role. The full frame is
	// passed with its header already decoded; from is the sender's link
	// address.
	OnReceive(h message.Header, frame []byte, from string)

	// OnSendResult reports the outcome of an earlier send.
	OnSendResult(ok bool)

	// OnPeriodic runs once per loop tick with the loop's clock.
	OnPeriodic(now time.Time)

	// Role returns the fixed role identity of this device.
	Role() message.Role
}
