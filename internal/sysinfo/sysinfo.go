// Package sysinfo collects local host metadata for the status API and for
// picking the network interface that faces the camper LAN.
package sysinfo

import (
	"fmt"
	"math"
	"net"
	"os"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemInfo holds the collected host information.
type SystemInfo struct {
	IPAddress     string  `json:"ip_address"`
	Hostname      string  `json:"hostname"`
	OSName        string  `json:"os_name"`
	Kernel        string  `json:"kernel"`
	Arch          string  `json:"arch"`
	UptimeSeconds uint64  `json:"uptime_seconds"`
	MemoryGB      float64 `json:"memory_gb"`
}

// Collect gathers host metadata. When networkRange is a CIDR, the reported IP
// is the local address inside that range; otherwise the first usable IPv4 of
// an up, non-loopback interface is used.
func Collect(networkRange string) (*SystemInfo, error) {
	ipAddr, err := localIP(networkRange)
	if err != nil {
		return nil, err
	}

	hostname, _ := os.Hostname()
	osName, kernel, uptime := getOSInfo()

	info := &SystemInfo{
		IPAddress:     ipAddr,
		Hostname:      hostname,
		OSName:        osName,
		Kernel:        kernel,
		Arch:          runtime.GOARCH,
		UptimeSeconds: uptime,
	}

	memInfo, err := mem.VirtualMemory()
	if err == nil {
		info.MemoryGB = math.Round(float64(memInfo.Total)/(1024*1024*1024)*100) / 100
	}

	return info, nil
}

// localIP finds the IPv4 address within the CIDR, or a best-effort default
// when no range is given.
func localIP(networkRange string) (string, error) {
	var ipNet *net.IPNet
	if networkRange != "" {
		var err error
		_, ipNet, err = net.ParseCIDR(networkRange)
		if err != nil {
			return "", fmt.Errorf("parsing network range %s: %w", networkRange, err)
		}
	}

	ifaces, err := net.Interfaces()
	if err != nil {
		return "", err
	}

	fallback := ""
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		if iface.Flags&net.FlagUp == 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			an, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}
			ip4 := an.IP.To4()
			if ip4 == nil {
				continue
			}
			if ipNet != nil && ipNet.Contains(ip4) {
				return ip4.String(), nil
			}
			if fallback == "" {
				fallback = ip4.String()
			}
		}
	}

	// Nothing inside the range; report the first usable address so callers
	// can still log something dialable.
	return fallback, nil
}

// getOSInfo retrieves OS name, kernel version and uptime.
func getOSInfo() (string, string, uint64) {
	var osName, kernel string
	var uptime uint64

	hostInfo, err := host.Info()
	if err == nil {
		osName = hostInfo.Platform
		if hostInfo.PlatformVersion != "" {
			osName += " " + hostInfo.PlatformVersion
		}
		kernel = hostInfo.KernelVersion
		uptime = hostInfo.Uptime
	} else {
		osName = runtime.GOOS
	}

	if runtime.GOOS == "linux" {
		if prettyName := readOSReleasePrettyName(); prettyName != "" {
			osName = prettyName
		}
	}

	return osName, kernel, uptime
}

// readOSReleasePrettyName parses /etc/os-release for the PRETTY_NAME field.
func readOSReleasePrettyName() string {
	data, err := os.ReadFile("/etc/os-release")
	if err != nil {
		return ""
	}
	for _, line := range strings.Split(string(data), "\n") {
		if strings.HasPrefix(line, "PRETTY_NAME=") {
			val := strings.TrimPrefix(line, "PRETTY_NAME=")
			val = strings.Trim(val, "\"")
			return val
		}
	}
	return ""
}
