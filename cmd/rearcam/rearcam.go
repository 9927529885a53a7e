// Package rearcam implements the camper rear camera node.
package rearcam

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/diericx/camper/internal/actuator"
	"github.com/diericx/camper/internal/device"
	"github.com/diericx/camper/internal/httpapi"
	"github.com/diericx/camper/internal/node"
	"github.com/diericx/camper/internal/store"
	"github.com/diericx/camper/internal/transport"
	"github.com/diericx/camper/pkg/config"
	"github.com/diericx/camper/pkg/logger"
)

// Run starts the rear camera node: servo on PWM, position persisted,
// move commands taken from the broadcast link and the local HTTP API.
func Run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log := logger.Init(cfg.Node.LogLevel)

	// Ensure database directory exists
	dbDir := filepath.Dir(cfg.Node.DBPath)
	if err := os.MkdirAll(dbDir, 0700); err != nil {
		return fmt.Errorf("creating database directory %s: %w", dbDir, err)
	}

	db, err := store.New(cfg.Node.DBPath, log)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer db.Close()

	tick, err := cfg.Net.ParseTick()
	if err != nil {
		return fmt.Errorf("parsing tick: %w", err)
	}
	stepInterval, err := cfg.RearCam.ParseStepInterval()
	if err != nil {
		return fmt.Errorf("parsing step interval: %w", err)
	}
	heartbeat, err := cfg.RearCam.ParseHeartbeatInterval()
	if err != nil {
		return fmt.Errorf("parsing heartbeat interval: %w", err)
	}

	servo, err := actuator.OpenPWMServo(cfg.RearCam.PWMChip, cfg.RearCam.PWMChannel)
	if err != nil {
		return fmt.Errorf("opening servo: %w", err)
	}
	defer servo.Close()

	ctrl := actuator.NewController(servo, db, stepInterval, log)

	tr, err := transport.NewUDP(cfg.Net.NetworkRange, cfg.Net.Port, cfg.Net.MulticastGroup, cfg.Net.Interface, log)
	if err != nil {
		return fmt.Errorf("opening transport: %w", err)
	}
	defer tr.Close()

	name := cfg.Node.ResolveDeviceName("rear-camera")
	dev := device.NewRearCam(name, ctrl, tr, heartbeat, log)
	n := node.New(name, dev, tr, tick, log)

	log.Info().
		Str("db_path", cfg.Node.DBPath).
		Str("network_range", cfg.Net.NetworkRange).
		Str("device_name", name).
		Msg("Starting rear camera node")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- n.Run(ctx) }()

	if cfg.Node.HTTPListen != "" {
		api := httpapi.NewServer(n, cfg.Net.NetworkRange, log)
		go func() {
			if err := api.Start(cfg.Node.HTTPListen); err != nil {
				log.Error().Err(err).Msg("HTTP API stopped")
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("node error: %w", err)
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("Shutting down")
		cancel()
		if err := <-errCh; err != nil {
			return fmt.Errorf("node shutdown: %w", err)
		}
		return nil
	}
}
