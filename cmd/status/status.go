// Package status implements the node status query command.
package status

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/diericx/camper/internal/httpapi"
	"github.com/diericx/camper/pkg/config"
)

const requestTimeout = 5 * time.Second

// Run fetches and prints the status of a running node over its HTTP API.
// With no argument it queries the local node from the config's listen
// address; an explicit host:port queries another box on the camper LAN.
func Run(configPath string, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	addr := cfg.Node.HTTPListen
	if len(args) > 0 {
		addr = args[0]
	}
	if addr == "" {
		return fmt.Errorf("no address: set http_listen in the config or pass host:port")
	}

	client := &http.Client{Timeout: requestTimeout}
	url := baseURL(addr) + "/api/status"

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("querying %s: %w\nIs a camper node running?", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("querying %s: HTTP %s", url, resp.Status)
	}

	var status httpapi.StatusPayload
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return fmt.Errorf("decoding status: %w", err)
	}

	display(status)
	return nil
}

// baseURL turns a listen address into something dialable, mapping wildcard
// hosts to localhost.
func baseURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port)
}

func display(status httpapi.StatusPayload) {
	fmt.Printf("\n  Camper Node Status\n\n")
	fmt.Printf("  Role:     %s\n", status.Role)
	fmt.Printf("  Name:     %s\n", status.Name)
	fmt.Printf("  Address:  %s\n", status.Addr)
	fmt.Printf("  Uptime:   %s\n", status.Uptime)
	if status.Position != nil {
		fmt.Printf("  Camera:   %d°\n", *status.Position)
	}
	fmt.Printf("  Frames:   %d delivered / %d ignored / %d dropped\n",
		status.Dispatch.Delivered, status.Dispatch.Ignored, status.Dispatch.Dropped)

	if status.System != nil {
		fmt.Printf("\n  Host: %s (%s, %s) — %s, %.1f GB RAM\n",
			status.System.Hostname,
			status.System.OSName,
			status.System.Arch,
			status.System.IPAddress,
			status.System.MemoryGB)
	}

	if status.Peers != nil {
		fmt.Printf("\n  Known Peers (%d)\n\n", len(status.Peers))
		displayPeerTable(status)
	}
	fmt.Println()
}

func displayPeerTable(status httpapi.StatusPayload) {
	fmt.Printf("  %-4s %-18s %-14s %-22s %-10s %-7s\n",
		"#", "Name", "Role", "Address", "Last Seen", "Active")
	fmt.Printf("  %s %s %s %s %s %s\n",
		strings.Repeat("─", 4),
		strings.Repeat("─", 18),
		strings.Repeat("─", 14),
		strings.Repeat("─", 22),
		strings.Repeat("─", 10),
		strings.Repeat("─", 7))

	for i, peer := range status.Peers {
		active := "✗"
		if peer.Active {
			active = "✓"
		}

		fmt.Printf("  %-4d %-18s %-14s %-22s %-10s %-7s\n",
			i+1,
			truncate(peer.Name, 18),
			truncate(peer.Role, 14),
			truncate(peer.Addr, 22),
			peer.LastSeen.Format("15:04:05"),
			active,
		)
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-1] + "…"
}
