// camper — Camper Broadcast Control System
//
// Usage:
//
//	camper hub      — run the hub node (reversing switch → move commands)
//	camper rearcam  — run the rear camera node (move commands → servo)
//	camper send     — broadcast a one-shot move command
//	camper status   — query a running node over HTTP
//	camper simulate — run both roles in-process with a keyboard switch
package main

import (
	"fmt"
	"os"

	"github.com/diericx/camper/cmd/edit"
	"github.com/diericx/camper/cmd/hub"
	"github.com/diericx/camper/cmd/rearcam"
	"github.com/diericx/camper/cmd/send"
	"github.com/diericx/camper/cmd/simulate"
	"github.com/diericx/camper/cmd/status"
)

const (
	defaultSystemPath = "/etc/camper/config.toml"
	defaultLocalPath  = "config.toml"
	version           = "1.2.0"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	configPath := ""

	// Parse --config flag if present
	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--config" && i+1 < len(args) {
			configPath = args[i+1]
			args = append(args[:i], args[i+2:]...)
			i--
			continue
		}
		if len(arg) > 9 && arg[:9] == "--config=" {
			configPath = arg[9:]
			args = append(args[:i], args[i+1:]...)
			i--
			continue
		}
	}

	// Auto-discover config if not specified
	if configPath == "" {
		if _, err := os.Stat(defaultLocalPath); err == nil {
			configPath = defaultLocalPath
		} else {
			configPath = defaultSystemPath
		}
	}

	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	subcommand := args[0]
	var err error

	switch subcommand {
	case "hub":
		err = hub.Run(configPath)
	case "rearcam":
		err = rearcam.Run(configPath)
	case "send":
		err = send.Run(configPath, args[1:])
	case "status":
		err = status.Run(configPath, args[1:])
	case "simulate":
		err = simulate.Run(configPath)
	case "edit":
		err = edit.Run(configPath)
	case "version":
		fmt.Printf("camper v%s\n", version)
		return
	case "help", "--help", "-h":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", subcommand)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf(`camper v%s — Camper Broadcast Control System

Usage:
  camper <command> [--config <path>]

Commands:
  hub       Start the hub node (reversing switch, peer registry)
  rearcam   Start the rear camera node (servo, heartbeats)
  send      Broadcast a one-shot move command: camper send <angle>
  status    Show a running node's status: camper status [host:port]
  simulate  Run hub + rear camera in-process with a keyboard switch
  edit      Edit the configuration file in your system editor
  version   Print version information
  help      Show this help message

Options:
  --config <path>  Path to config file (default: looks for ./config.toml, then %s)

Examples:
  camper rearcam                        # Start the camera node with default config
  camper send 45                        # Point the camera at 45°
  camper status 192.168.4.21:8480       # Query the camera node from another box
  camper simulate                       # Bench-test both roles without hardware

`, version, defaultSystemPath)
}
