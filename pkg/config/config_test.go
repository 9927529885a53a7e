package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_ValidConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.toml")

	content := `
[node]
  log_level = "debug"
  db_path = "/tmp/camper-test.db"
  http_listen = ":9000"
  device_name = "bench-hub"

[net]
  network_range = "10.51.240.0/23"
  port = 5700
  tick = "2ms"

[hub]
  gpio_chip = "gpiochip1"
  gpio_line = 17
  debounce = "50ms"
  pressed_angle = 10
  released_angle = 99

[rearcam]
  pwm_chip = 1
  pwm_channel = 2
  step_interval = "20ms"
  heartbeat_interval = "10s"

[registry]
  stale_threshold = "60s"
`
	if err := os.WriteFile(cfgPath, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Node.LogLevel != "debug" {
		t.Errorf("Node.LogLevel: got %s, want debug", cfg.Node.LogLevel)
	}
	if cfg.Node.DBPath != "/tmp/camper-test.db" {
		t.Errorf("Node.DBPath: got %s, want /tmp/camper-test.db", cfg.Node.DBPath)
	}
	if cfg.Node.DeviceName != "bench-hub" {
		t.Errorf("Node.DeviceName: got %s, want bench-hub", cfg.Node.DeviceName)
	}
	if cfg.Net.NetworkRange != "10.51.240.0/23" {
		t.Errorf("Net.NetworkRange: got %s, want 10.51.240.0/23", cfg.Net.NetworkRange)
	}
	if cfg.Net.Port != 5700 {
		t.Errorf("Net.Port: got %d, want 5700", cfg.Net.Port)
	}
	if cfg.Hub.GPIOLine != 17 {
		t.Errorf("Hub.GPIOLine: got %d, want 17", cfg.Hub.GPIOLine)
	}
	if cfg.Hub.PressedAngle != 10 {
		t.Errorf("Hub.PressedAngle: got %d, want 10", cfg.Hub.PressedAngle)
	}
	if cfg.Hub.ReleasedAngle != 99 {
		t.Errorf("Hub.ReleasedAngle: got %d, want 99", cfg.Hub.ReleasedAngle)
	}
	if cfg.RearCam.PWMChip != 1 {
		t.Errorf("RearCam.PWMChip: got %d, want 1", cfg.RearCam.PWMChip)
	}
	if cfg.RearCam.PWMChannel != 2 {
		t.Errorf("RearCam.PWMChannel: got %d, want 2", cfg.RearCam.PWMChannel)
	}
}

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.toml")

	// Minimal config — all defaults should apply
	content := `
[node]
  device_name = "test"
`
	if err := os.WriteFile(cfgPath, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Node.LogLevel != "info" {
		t.Errorf("default LogLevel: got %s, want info", cfg.Node.LogLevel)
	}
	if cfg.Node.DBPath != "/var/lib/camper/camper.db" {
		t.Errorf("default DBPath: got %s, want /var/lib/camper/camper.db", cfg.Node.DBPath)
	}
	if cfg.Node.HTTPListen != "" {
		t.Errorf("HTTPListen: got %q, want empty (API off unless configured)", cfg.Node.HTTPListen)
	}
	if cfg.Net.NetworkRange != "192.168.4.0/24" {
		t.Errorf("default NetworkRange: got %s, want 192.168.4.0/24", cfg.Net.NetworkRange)
	}
	if cfg.Net.Port != 5683 {
		t.Errorf("default Port: got %d, want 5683", cfg.Net.Port)
	}
	if cfg.Net.Tick != "5ms" {
		t.Errorf("default Tick: got %s, want 5ms", cfg.Net.Tick)
	}
	if cfg.Hub.GPIOChip != "gpiochip0" {
		t.Errorf("default GPIOChip: got %s, want gpiochip0", cfg.Hub.GPIOChip)
	}
	if cfg.Hub.GPIOLine != 2 {
		t.Errorf("default GPIOLine: got %d, want 2", cfg.Hub.GPIOLine)
	}
	if cfg.Hub.Debounce != "200ms" {
		t.Errorf("default Debounce: got %s, want 200ms", cfg.Hub.Debounce)
	}
	if cfg.Hub.PressedAngle != 0 {
		t.Errorf("default PressedAngle: got %d, want 0", cfg.Hub.PressedAngle)
	}
	if cfg.Hub.ReleasedAngle != 90 {
		t.Errorf("default ReleasedAngle: got %d, want 90", cfg.Hub.ReleasedAngle)
	}
	if cfg.RearCam.StepInterval != "10ms" {
		t.Errorf("default StepInterval: got %s, want 10ms", cfg.RearCam.StepInterval)
	}
	if cfg.RearCam.HeartbeatInterval != "30s" {
		t.Errorf("default HeartbeatInterval: got %s, want 30s", cfg.RearCam.HeartbeatInterval)
	}
	if cfg.Registry.StaleThreshold != "120s" {
		t.Errorf("default StaleThreshold: got %s, want 120s", cfg.Registry.StaleThreshold)
	}
}

func TestLoad_NonexistentFile(t *testing.T) {
	_, err := Load("/nonexistent/config.toml")
	if err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestLoad_InvalidTOML(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.toml")

	if err := os.WriteFile(cfgPath, []byte("invalid [[[ toml"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	_, err := Load(cfgPath)
	if err == nil {
		t.Error("expected error for invalid TOML")
	}
}

func TestParseTick(t *testing.T) {
	cfg := &NetConfig{Tick: "10ms"}
	d, err := cfg.ParseTick()
	if err != nil {
		t.Fatalf("parse tick: %v", err)
	}
	if d.Milliseconds() != 10 {
		t.Errorf("Tick: got %v, want 10ms", d)
	}
}

func TestParseTick_Default(t *testing.T) {
	cfg := &NetConfig{}
	d, err := cfg.ParseTick()
	if err != nil {
		t.Fatalf("parse tick: %v", err)
	}
	if d.Milliseconds() != 5 {
		t.Errorf("Default tick: got %v, want 5ms", d)
	}
}

func TestParseDebounce_Default(t *testing.T) {
	cfg := &HubConfig{}
	d, err := cfg.ParseDebounce()
	if err != nil {
		t.Fatalf("parse debounce: %v", err)
	}
	if d.Milliseconds() != 200 {
		t.Errorf("Default debounce: got %v, want 200ms", d)
	}
}

func TestParseStepInterval_Default(t *testing.T) {
	cfg := &RearCamConfig{}
	d, err := cfg.ParseStepInterval()
	if err != nil {
		t.Fatalf("parse step interval: %v", err)
	}
	if d.Milliseconds() != 10 {
		t.Errorf("Default step interval: got %v, want 10ms", d)
	}
}

func TestParseHeartbeatInterval_Default(t *testing.T) {
	cfg := &RearCamConfig{}
	d, err := cfg.ParseHeartbeatInterval()
	if err != nil {
		t.Fatalf("parse heartbeat interval: %v", err)
	}
	if d.Seconds() != 30 {
		t.Errorf("Default heartbeat interval: got %v, want 30s", d)
	}
}

func TestParseStaleThreshold(t *testing.T) {
	cfg := &RegistryConfig{StaleThreshold: "45s"}
	d, err := cfg.ParseStaleThreshold()
	if err != nil {
		t.Fatalf("parse threshold: %v", err)
	}
	if d.Seconds() != 45 {
		t.Errorf("Threshold: got %v, want 45s", d)
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Node.LogLevel != "info" {
		t.Errorf("Node.LogLevel: got %s, want info", cfg.Node.LogLevel)
	}
	if cfg.Net.NetworkRange != "192.168.4.0/24" {
		t.Errorf("Net.NetworkRange: got %s, want 192.168.4.0/24", cfg.Net.NetworkRange)
	}
	if cfg.Net.Port != 5683 {
		t.Errorf("Net.Port: got %d, want 5683", cfg.Net.Port)
	}
}

func TestResolveDeviceName_Configured(t *testing.T) {
	n := &NodeConfig{DeviceName: "cam-pi"}
	if got := n.ResolveDeviceName("rear-camera"); got != "cam-pi" {
		t.Errorf("ResolveDeviceName: got %s, want cam-pi", got)
	}
}

func TestResolveDeviceName_FallsBackToHostname(t *testing.T) {
	host, err := os.Hostname()
	if err != nil || host == "" {
		t.Skip("no hostname available")
	}

	n := &NodeConfig{}
	if got := n.ResolveDeviceName("rear-camera"); got != host {
		t.Errorf("ResolveDeviceName: got %s, want %s", got, host)
	}
}

func TestParseTick_RejectsZero(t *testing.T) {
	cfg := &NetConfig{Tick: "0s"}
	if _, err := cfg.ParseTick(); err == nil {
		t.Fatal("expected error for zero tick")
	}
}
