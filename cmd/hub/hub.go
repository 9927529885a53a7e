// Package hub implements the camper hub node.
package hub

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/diericx/camper/internal/device"
	"github.com/diericx/camper/internal/httpapi"
	"github.com/diericx/camper/internal/input"
	"github.com/diericx/camper/internal/node"
	"github.com/diericx/camper/internal/peers"
	"github.com/diericx/camper/internal/store"
	"github.com/diericx/camper/internal/transport"
	"github.com/diericx/camper/pkg/config"
	"github.com/diericx/camper/pkg/logger"
)

// Run starts the hub node: reversing switch on GPIO, debounced edges turned
// into broadcast move commands, peer heartbeats tracked in the registry.
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
	debounce, err := cfg.Hub.ParseDebounce()
	if err != nil {
		return fmt.Errorf("parsing debounce: %w", err)
	}
	stale, err := cfg.Registry.ParseStaleThreshold()
	if err != nil {
		return fmt.Errorf("parsing stale threshold: %w", err)
	}

	sw, err := input.OpenSwitch(cfg.Hub.GPIOChip, cfg.Hub.GPIOLine)
	if err != nil {
		return fmt.Errorf("opening switch line: %w", err)
	}
	defer sw.Close()

	registry := peers.NewRegistry(db, stale, log)
	if err := registry.Load(); err != nil {
		log.Warn().Err(err).Msg("Failed to load peer records")
	}

	tr, err := transport.NewUDP(cfg.Net.NetworkRange, cfg.Net.Port, cfg.Net.MulticastGroup, cfg.Net.Interface, log)
	if err != nil {
		return fmt.Errorf("opening transport: %w", err)
	}
	defer tr.Close()

	name := cfg.Node.ResolveDeviceName("hub")
	deb := input.NewDebouncer(sw, debounce, log)
	dev, err := device.NewHub(name, deb, tr, registry, cfg.Hub.PressedAngle, cfg.Hub.ReleasedAngle, log)
	if err != nil {
		return fmt.Errorf("configuring hub: %w", err)
	}
	n := node.New(name, dev, tr, tick, log)

	log.Info().
		Str("db_path", cfg.Node.DBPath).
		Str("network_range", cfg.Net.NetworkRange).
		Str("gpio_chip", cfg.Hub.GPIOChip).
		Int("gpio_line", cfg.Hub.GPIOLine).
		Str("device_name", name).
		Msg("Starting hub node")

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
