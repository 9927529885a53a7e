// Package config provides TOML configuration loading for camper.
package config

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config is the top-level configuration structure. The same file serves every
// subcommand; each node reads the sections it needs.
type Config struct {
	Node     NodeConfig     `toml:"node"`
	Net      NetConfig      `toml:"net"`
	Hub      HubConfig      `toml:"hub"`
	RearCam  RearCamConfig  `toml:"rearcam"`
	Registry RegistryConfig `toml:"registry"`
}

// NodeConfig holds settings shared by every node role. An empty http_listen
// disables the HTTP API.
type NodeConfig struct {
	LogLevel   string `toml:"log_level"`
	DBPath     string `toml:"db_path"`
	HTTPListen string `toml:"http_listen"`
	DeviceName string `toml:"device_name"`
}

// NetConfig holds the broadcast link settings. With an empty multicast_group
// the node sends to the subnet broadcast address of network_range; setting a
// group switches the link to multicast on the named interface.
type NetConfig struct {
	NetworkRange   string `toml:"network_range"`
	Port           int    `toml:"port"`
	MulticastGroup string `toml:"multicast_group"`
	Interface      string `toml:"interface"`
	Tick           string `toml:"tick"`
}

// HubConfig holds the switch input settings for the hub role.
type HubConfig struct {
	GPIOChip      string `toml:"gpio_chip"`
	GPIOLine      int    `toml:"gpio_line"`
	Debounce      string `toml:"debounce"`
	PressedAngle  int    `toml:"pressed_angle"`
	ReleasedAngle int    `toml:"released_angle"`
}

// RearCamConfig holds the actuator settings for the rear camera role.
type RearCamConfig struct {
	PWMChip           int    `toml:"pwm_chip"`
	PWMChannel        int    `toml:"pwm_channel"`
	StepInterval      string `toml:"step_interval"`
	HeartbeatInterval string `toml:"heartbeat_interval"`
}

// RegistryConfig holds peer-registry settings for the hub role.
type RegistryConfig struct {
	StaleThreshold string `toml:"stale_threshold"`
}

// ParseTick parses the node loop tick interval string to a time.Duration.
// The tick drives the loop ticker and must be positive.
func (n *NetConfig) ParseTick() (time.Duration, error) {
	if n.Tick == "" {
		return 5 * time.Millisecond, nil
	}
	d, err := time.ParseDuration(n.Tick)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("tick must be positive, got %s", d)
	}
	return d, nil
}

// ParseDebounce parses the switch debounce window string to a time.Duration.
func (h *HubConfig) ParseDebounce() (time.Duration, error) {
	if h.Debounce == "" {
		return 200 * time.Millisecond, nil
	}
	return time.ParseDuration(h.Debounce)
}

// ParseStepInterval parses the actuator step interval string to a time.Duration.
func (r *RearCamConfig) ParseStepInterval() (time.Duration, error) {
	if r.StepInterval == "" {
		return 10 * time.Millisecond, nil
	}
	return time.ParseDuration(r.StepInterval)
}

// ParseHeartbeatInterval parses the heartbeat interval string to a time.Duration.
func (r *RearCamConfig) ParseHeartbeatInterval() (time.Duration, error) {
	if r.HeartbeatInterval == "" {
		return 30 * time.Second, nil
	}
	return time.ParseDuration(r.HeartbeatInterval)
}

// ParseStaleThreshold parses the registry stale threshold string to a time.Duration.
func (r *RegistryConfig) ParseStaleThreshold() (time.Duration, error) {
	if r.StaleThreshold == "" {
		return 120 * time.Second, nil
	}
	return time.ParseDuration(r.StaleThreshold)
}

// ResolveDeviceName returns the configured device name, falling back to the
// hostname and then the given role name. The name doubles as heartbeat text.
func (n *NodeConfig) ResolveDeviceName(fallback string) string {
	if n.DeviceName != "" {
		return n.DeviceName
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return fallback
}

// Default returns a config populated with the built-in defaults.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads and parses a TOML config file, applying defaults for unset values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := &Config{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	applyDefaults(cfg)
	cfg.expandPaths()
	return cfg, nil
}

func (cfg *Config) expandPaths() {
	cfg.Node.DBPath = ExpandPath(cfg.Node.DBPath)
}

// ExpandPath expands tilde (~) to the user's home directory.
func ExpandPath(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	usr, err := user.Current()
	if err != nil {
		return path
	}
	if path == "~" {
		return usr.HomeDir
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(usr.HomeDir, path[2:])
	}
	return path
}

func applyDefaults(cfg *Config) {

	// Node defaults
	if cfg.Node.LogLevel == "" {
		cfg.Node.LogLevel = "info"
	}
	if cfg.Node.DBPath == "" {
		cfg.Node.DBPath = "/var/lib/camper/camper.db"
	}

	// Net defaults
	if cfg.Net.NetworkRange == "" {
		cfg.Net.NetworkRange = "192.168.4.0/24"
	}
	if cfg.Net.Port == 0 {
		cfg.Net.Port = 5683
	}
	if cfg.Net.Tick == "" {
		cfg.Net.Tick = "5ms"
	}

	// Hub defaults
	if cfg.Hub.GPIOChip == "" {
		cfg.Hub.GPIOChip = "gpiochip0"
	}
	if cfg.Hub.GPIOLine == 0 {
		cfg.Hub.GPIOLine = 2
	}
	if cfg.Hub.Debounce == "" {
		cfg.Hub.Debounce = "200ms"
	}
	if cfg.Hub.ReleasedAngle == 0 {
		cfg.Hub.ReleasedAngle = 90
	}

	// RearCam defaults
	if cfg.RearCam.StepInterval == "" {
		cfg.RearCam.StepInterval = "10ms"
	}
	if cfg.RearCam.HeartbeatInterval == "" {
		cfg.RearCam.HeartbeatInterval = "30s"
	}

	// Registry defaults
	if cfg.Registry.StaleThreshold == "" {
		cfg.Registry.StaleThreshold = "120s"
	}
}
