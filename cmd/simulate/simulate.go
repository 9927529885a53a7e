// Package simulate runs a hub and a rear camera in one process, wired over
// an in-memory link, with the reversing switch driven from the keyboard.
package simulate

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/term"

	"github.com/diericx/camper/internal/actuator"
	"github.com/diericx/camper/internal/device"
	"github.com/diericx/camper/internal/input"
	"github.com/diericx/camper/internal/node"
	"github.com/diericx/camper/internal/peers"
	"github.com/diericx/camper/internal/transport"
	"github.com/diericx/camper/pkg/config"
)

// keySwitch stands in for the GPIO line. Toggled from the key loop, read
// from the hub loop.
type keySwitch struct {
	level atomic.Int32
}

func newKeySwitch() *keySwitch {
	k := &keySwitch{}
	k.level.Store(1) // released
	return k
}

func (k *keySwitch) Value() (int, error) {
	return int(k.level.Load()), nil
}

// toggle flips the line and reports whether it is now pressed.
func (k *keySwitch) toggle() bool {
	if k.level.Load() == 0 {
		k.level.Store(1)
		return false
	}
	k.level.Store(0)
	return true
}

// consoleServo renders each written angle in place of a real horn.
type consoleServo struct{}

func (consoleServo) Write(angle uint8) error {
	fmt.Printf("\r  servo %3d°   ", angle)
	return nil
}

type memPosStore struct {
	vals map[string]int
}

func (m *memPosStore) GetInt(namespace, key string, def int) (int, error) {
	v, ok := m.vals[namespace+"/"+key]
	if !ok {
		return def, nil
	}
	return v, nil
}

func (m *memPosStore) PutInt(namespace, key string, val int) error {
	m.vals[namespace+"/"+key] = val
	return nil
}

type memRecordStore struct{}

func (memRecordStore) PutRecord(namespace, key string, rec any) error { return nil }

func (memRecordStore) ForEachRecord(namespace string, fn func(key string, raw []byte) error) error {
	return nil
}

// Run starts the bench simulation. Works without a config file; with one,
// the configured debounce, slew and heartbeat settings apply.
func Run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		cfg = config.Default()
	}

	tick, err := cfg.Net.ParseTick()
	if err != nil {
		return fmt.Errorf("parsing tick: %w", err)
	}
	debounce, err := cfg.Hub.ParseDebounce()
	if err != nil {
		return fmt.Errorf("parsing debounce: %w", err)
	}
	stepInterval, err := cfg.RearCam.ParseStepInterval()
	if err != nil {
		return fmt.Errorf("parsing step interval: %w", err)
	}
	heartbeat, err := cfg.RearCam.ParseHeartbeatInterval()
	if err != nil {
		return fmt.Errorf("parsing heartbeat interval: %w", err)
	}
	stale, err := cfg.Registry.ParseStaleThreshold()
	if err != nil {
		return fmt.Errorf("parsing stale threshold: %w", err)
	}

	bus := transport.NewBus()

	camEp := bus.Endpoint("rear-camera")
	ctrl := actuator.NewController(consoleServo{}, &memPosStore{vals: map[string]int{}}, stepInterval, zerolog.Nop())
	cam := device.NewRearCam("rear-camera", ctrl, camEp, heartbeat, zerolog.Nop())
	camNode := node.New("rear-camera", cam, camEp, tick, zerolog.Nop())

	hubEp := bus.Endpoint("hub")
	sw := newKeySwitch()
	deb := input.NewDebouncer(sw, debounce, zerolog.Nop())
	registry := peers.NewRegistry(memRecordStore{}, stale, zerolog.Nop())
	hub, err := device.NewHub("hub", deb, hubEp, registry, cfg.Hub.PressedAngle, cfg.Hub.ReleasedAngle, zerolog.Nop())
	if err != nil {
		return fmt.Errorf("configuring hub: %w", err)
	}
	hubNode := node.New("hub", hub, hubEp, tick, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 2)
	go func() { errCh <- camNode.Run(ctx) }()
	go func() { errCh <- hubNode.Run(ctx) }()

	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("setting raw terminal: %w", err)
	}
	defer term.Restore(fd, oldState)

	fmt.Print("  camper simulator: hub and rear camera on an in-memory link\r\n")
	fmt.Printf("  SPACE toggles the reversing switch (%d°/%d°), s prints status, q quits\r\n\r\n",
		cfg.Hub.PressedAngle, cfg.Hub.ReleasedAngle)

	keyCh := make(chan byte, 1)
	go func() {
		buf := make([]byte, 1)
		for {
			if _, err := os.Stdin.Read(buf); err != nil {
				return
			}
			keyCh <- buf[0]
		}
	}()

	for {
		select {
		case err := <-errCh:
			cancel()
			<-errCh
			return fmt.Errorf("simulation node failed: %w", err)

		case key := <-keyCh:
			switch key {
			case ' ':
				if sw.toggle() {
					fmt.Print("\r\n  switch pressed\r\n")
				} else {
					fmt.Print("\r\n  switch released\r\n")
				}
			case 's':
				printStatus(ctx, hubNode, camNode)
			case 'q', 3, 4: // q, Ctrl-C, Ctrl-D
				fmt.Print("\r\n")
				cancel()
				for i := 0; i < 2; i++ {
					if err := <-errCh; err != nil {
						return fmt.Errorf("node shutdown: %w", err)
					}
				}
				return nil
			}
		}
	}
}

func printStatus(ctx context.Context, hubNode, camNode *node.Node) {
	hubSnap, err := hubNode.Snapshot(ctx)
	if err != nil {
		fmt.Printf("\r\n  hub status: %v\r\n", err)
		return
	}
	camSnap, err := camNode.Snapshot(ctx)
	if err != nil {
		fmt.Printf("\r\n  camera status: %v\r\n", err)
		return
	}

	position := 0
	if camSnap.Position != nil {
		position = *camSnap.Position
	}
	fmt.Printf("\r\n  hub: %d frames delivered, %d peers   camera: %d°, %d frames delivered\r\n",
		hubSnap.Dispatch.Delivered, len(hubSnap.Peers), position, camSnap.Dispatch.Delivered)
}
