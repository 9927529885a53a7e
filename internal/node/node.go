// Package node runs a device role as a single loop goroutine. Everything the
// role does, receiving, send results, periodic work and externally injected
// commands, happens on that one goroutine, so devices never need locks.
package node

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/diericx/camper/internal/actuator"
	"github.com/diericx/camper/internal/device"
	"github.com/diericx/camper/internal/dispatch"
	"github.com/diericx/camper/internal/peers"
	"github.com/diericx/camper/internal/transport"
)

// ErrStopped is returned by Do when the loop has already exited.
var ErrStopped = errors.New("node stopped")

// Transport is the node's receive-side view of the link. Sending belongs to
// the device through its Link.
type Transport interface {
	Receive() <-chan transport.Datagram
	Results() <-chan transport.SendResult
	LocalAddr() string
}

// Node drives one device role.
type Node struct {
	name string
	dev  device.Device
	tr   Transport
	disp *dispatch.Dispatcher
	tick time.Duration
	log  zerolog.Logger

	started time.Time
	cmds    chan func()
	stopped chan struct{}
}

// New wires a device to its transport. The dispatcher filters on the
// device's role and the transport's own address.
func New(name string, dev device.Device, tr Transport, tick time.Duration, log zerolog.Logger) *Node {
	return &Node{
		name:    name,
		dev:     dev,
		tr:      tr,
		disp:    dispatch.New(dev.Role(), tr.LocalAddr(), dev, log),
		tick:    tick,
		log:     log,
		cmds:    make(chan func(), 8),
		stopped: make(chan struct{}),
	}
}

// Run initializes the device and loops until ctx ends. A failed broadcast
// peer registration is downgraded to receive-only operation; any other init
// failure aborts.
func (n *Node) Run(ctx context.Context) error {
	defer close(n.stopped)

	if err := n.dev.Init(); err != nil {
		if errors.Is(err, transport.ErrPeerRegistrationFailed) {
			n.log.Error().Err(err).Msg("Peer registration failed, continuing receive-only")
		} else {
			return fmt.Errorf("device init: %w", err)
		}
	}

	n.started = time.Now()
	n.log.Info().
		Str("role", n.dev.Role().String()).
		Str("name", n.name).
		Str("addr", n.tr.LocalAddr()).
		Dur("tick", n.tick).
		Msg("Node running")

	ticker := time.NewTicker(n.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			n.log.Info().Msg("Node stopping")
			return nil
		case dg := <-n.tr.Receive():
			n.disp.Dispatch(dg.Data, dg.From)
		case res := <-n.tr.Results():
			n.dev.OnSendResult(res.OK)
		case fn := <-n.cmds:
			fn()
		case now := <-ticker.C:
			n.dev.OnPeriodic(now)
		}
	}
}

// Do runs fn on the loop goroutine and waits for it to complete. It fails
// when the loop has stopped or ctx ends first; a function already enqueued
// may still run after ctx ends.
func (n *Node) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	wrapped := func() {
		defer close(done)
		fn()
	}

	select {
	case n.cmds <- wrapped:
	case <-n.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-done:
		return nil
	case <-n.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot is a point-in-time view of the node for the status API.
type Snapshot struct {
	Role     string         `json:"role"`
	Name     string         `json:"name"`
	Addr     string         `json:"addr"`
	Uptime   string         `json:"uptime"`
	Dispatch dispatch.Stats `json:"dispatch"`
	Position *int           `json:"position,omitempty"`
	Peers    []peers.Record `json:"peers,omitempty"`
}

// Snapshot captures the node state on the loop goroutine.
func (n *Node) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := n.Do(ctx, func() {
		snap = Snapshot{
			Role:     n.dev.Role().String(),
			Name:     n.name,
			Addr:     n.tr.LocalAddr(),
			Uptime:   time.Since(n.started).Round(time.Second).String(),
			Dispatch: n.disp.Stats(),
		}
		switch d := n.dev.(type) {
		case *device.RearCam:
			pos := d.Position()
			snap.Position = &pos
		case *device.Hub:
			snap.Peers = d.Peers()
		}
	})
	return snap, err
}

// Command asks the role to act on a target angle: the hub broadcasts a move
// command, the rear camera moves its own servo. The motion or send happens
// on the loop goroutine.
func (n *Node) Command(ctx context.Context, angle int) error {
	var cmdErr error
	err := n.Do(ctx, func() {
		switch d := n.dev.(type) {
		case *device.Hub:
			cmdErr = d.SendMove(angle)
		case *device.RearCam:
			cmdErr = d.MoveTo(angle)
		default:
			cmdErr = fmt.Errorf("role %s takes no commands", n.dev.Role())
		}
	})
	if err != nil {
		return err
	}
	if cmdErr != nil && !errors.Is(cmdErr, actuator.ErrInvalidTarget) {
		return fmt.Errorf("command failed: %w", cmdErr)
	}
	return cmdErr
}
