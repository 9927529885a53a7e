package transport

import (
	"errors"
	"fmt"
	"sync"
)

var errDeliveryFailed = errors.New("delivery failed")

// Bus is an in-process broadcast link. The simulator runs a hub and a rear
// camera endpoint on one bus; tests use it to drive nodes without sockets.
type Bus struct {
	mu  sync.Mutex
	eps []*BusEndpoint
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Endpoint attaches a named endpoint to the bus.
func (b *Bus) Endpoint(name string) *BusEndpoint {
	ep := &BusEndpoint{
		bus:     b,
		name:    name,
		rx:      make(chan Datagram, rxQueueDepth),
		results: make(chan SendResult, resultQueueDepth),
	}
	b.mu.Lock()
	b.eps = append(b.eps, ep)
	b.mu.Unlock()
	return ep
}

// BusEndpoint is one attachment point on the bus. Sends reach every other
// endpoint, never the sender, mirroring the real link.
type BusEndpoint struct {
	bus        *Bus
	name       string
	registered bool
	failNext   bool
	rx         chan Datagram
	results    chan SendResult
}

// RegisterBroadcastPeer marks the endpoint ready to send.
func (e *BusEndpoint) RegisterBroadcastPeer() error {
	e.registered = true
	return nil
}

// FailNextSend makes the next Send report a delivery failure without
// delivering anything, for exercising send-result handling.
func (e *BusEndpoint) FailNextSend() {
	e.failNext = true
}

// Send delivers a copy of data to every other endpoint and queues a result.
func (e *BusEndpoint) Send(data []byte) error {
	if !e.registered {
		return fmt.Errorf("no broadcast peer registered")
	}

	if e.failNext {
		e.failNext = false
		select {
		case e.results <- SendResult{OK: false, Err: errDeliveryFailed}:
		default:
		}
		return nil
	}

	e.bus.mu.Lock()
	eps := append([]*BusEndpoint(nil), e.bus.eps...)
	e.bus.mu.Unlock()

	for _, other := range eps {
		if other == e {
			continue
		}
		d := make([]byte, len(data))
		copy(d, data)
		select {
		case other.rx <- Datagram{Data: d, From: e.name}:
		default:
		}
	}

	select {
	case e.results <- SendResult{OK: true}:
	default:
	}
	return nil
}

// Receive returns the inbound datagram queue.
func (e *BusEndpoint) Receive() <-chan Datagram {
	return e.rx
}

// Results returns the send outcome queue.
func (e *BusEndpoint) Results() <-chan SendResult {
	return e.results
}

// LocalAddr returns the endpoint name.
func (e *BusEndpoint) LocalAddr() string {
	return e.name
}

// Close detaches nothing; bus endpoints have no resources to release.
func (e *BusEndpoint) Close() error {
	return nil
}
