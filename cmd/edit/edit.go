// Package edit opens the camper configuration in the system editor.
package edit

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

const defaultConfigTemplate = `[node]
  log_level   = "info"
  db_path     = "/var/lib/camper/camper.db"
  http_listen = ":8480"
  device_name = ""

[net]
  network_range   = "192.168.4.0/24"
  port            = 5683
  multicast_group = ""
  interface       = ""
  tick            = "5ms"

[hub]
  gpio_chip      = "gpiochip0"
  gpio_line      = 2
  debounce       = "200ms"
  pressed_angle  = 0
  released_angle = 90

[rearcam]
  pwm_chip           = 0
  pwm_channel        = 0
  step_interval      = "10ms"
  heartbeat_interval = "30s"

[registry]
  stale_threshold = "120s"
`

// Run opens the configuration file in the system editor, creating it with
// default values first if it does not exist.
func Run(path string) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	// Create file if it doesn't exist
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Printf("Creating new config file at %s...\n", path)
		if err := os.WriteFile(path, []byte(defaultConfigTemplate), 0644); err != nil {
			return fmt.Errorf("writing default config: %w", err)
		}
	}

	// Determine editor
	editor := os.Getenv("EDITOR")
	if editor == "" {
		for _, e := range []string{"vi", "nano", "vim"} {
			if _, err := exec.LookPath(e); err == nil {
				editor = e
				break
			}
		}
	}

	if editor == "" {
		return fmt.Errorf("no editor found ($EDITOR environment variable not set, and vi/nano/vim not in PATH)")
	}

	cmd := exec.Command(editor, path)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	return cmd.Run()
}
