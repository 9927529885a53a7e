// Package send implements the one-shot move command injector.
package send

import (
	"fmt"
	"strconv"
	"time"

	"github.com/diericx/camper/internal/message"
	"github.com/diericx/camper/internal/transport"
	"github.com/diericx/camper/pkg/config"
	"github.com/diericx/camper/pkg/logger"
)

const resultWait = 2 * time.Second

// Run broadcasts a single move command onto the camper LAN. Maintenance
// tool: any box on the network can nudge the camera without a running hub.
func Run(configPath string, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: camper send <angle>")
	}
	angle, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid angle %q: %w", args[0], err)
	}
	if angle < 0 || angle > message.MaxAngle {
		return fmt.Errorf("angle %d out of range [0, %d]", angle, message.MaxAngle)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log := logger.Init(cfg.Node.LogLevel)

	tr, err := transport.NewUDP(cfg.Net.NetworkRange, cfg.Net.Port, cfg.Net.MulticastGroup, cfg.Net.Interface, log)
	if err != nil {
		return fmt.Errorf("opening transport: %w", err)
	}
	defer tr.Close()

	if err := tr.RegisterBroadcastPeer(); err != nil {
		return fmt.Errorf("registering broadcast peer: %w", err)
	}

	frame := message.NewMoveTo(message.RoleHub, message.RoleRearCam, uint8(angle)).Encode()
	if err := tr.Send(frame); err != nil {
		return fmt.Errorf("sending move command: %w", err)
	}

	select {
	case res := <-tr.Results():
		if !res.OK {
			return fmt.Errorf("move command not delivered: %w", res.Err)
		}
	case <-time.After(resultWait):
		return fmt.Errorf("no send result within %s", resultWait)
	}

	fmt.Printf("Sent move command: angle %d\n", angle)
	return nil
}
