// Package transport moves fixed-layout datagrams over the camper link. The
// link is connectionless and broadcast-only: every send goes to all peers,
// and delivery outcomes come back asynchronously as send results.
package transport

import "errors"

// ErrPeerRegistrationFailed marks a failure to set up the broadcast
// destination. Nodes treat this as fatal at startup.
var ErrPeerRegistrationFailed = errors.New("peer registration failed")

// Datagram is one received frame with its source address.
type Datagram struct {
	Data []byte
	From string
}

// SendResult reports the outcome of one earlier Send.
type SendResult struct {
	OK  bool
	Err error
}

// Queue depths. The node loop drains both channels every pass; overflow is
// dropped with a warning rather than blocking the reader.
const (
	rxQueueDepth     = 256
	resultQueueDepth = 64
)
