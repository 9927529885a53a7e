package transport

import (
	"fmt"
	"net"
	"sync"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/net/ipv4"

	"github.com/diericx/camper/internal/sysinfo"
)

const maxPacketSize = 512

// UDP carries datagrams over IPv4, either to the subnet broadcast address of
// the configured network range or, when a group is set, to a multicast group
// on a pinned interface.
type UDP struct {
	conn  *net.UDPConn
	pconn *ipv4.PacketConn

	networkRange string
	port         int
	group        string
	ifaceName    string
	localIP      string
	dest         *net.UDPAddr

	rx      chan Datagram
	results chan SendResult
	log     zerolog.Logger

	closeOnce sync.Once
	done      chan struct{}
}

// NewUDP binds the shared send/receive socket on the given port and starts
// reading. Datagrams are not deliverable until RegisterBroadcastPeer runs.
func NewUDP(networkRange string, port int, multicastGroup, ifaceName string, log zerolog.Logger) (*UDP, error) {
	info, err := sysinfo.Collect(networkRange)
	if err != nil {
		return nil, fmt.Errorf("detecting local interface: %w", err)
	}

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4zero, Port: port})
	if err != nil {
		return nil, fmt.Errorf("listening on UDP port %d: %w", port, err)
	}

	t := &UDP{
		conn:         conn,
		networkRange: networkRange,
		port:         port,
		group:        multicastGroup,
		ifaceName:    ifaceName,
		localIP:      info.IPAddress,
		rx:           make(chan Datagram, rxQueueDepth),
		results:      make(chan SendResult, resultQueueDepth),
		log:          log,
		done:         make(chan struct{}),
	}

	log.Info().
		Str("local_ip", t.localIP).
		Int("port", port).
		Msg("Link socket bound")

	go t.readLoop()
	return t, nil
}

// RegisterBroadcastPeer resolves and pins the all-peers destination. In
// broadcast mode that is the subnet broadcast address of the network range;
// in multicast mode the socket joins the group first.
func (t *UDP) RegisterBroadcastPeer() error {
	if t.group != "" {
		if err := t.joinGroup(); err != nil {
			return fmt.Errorf("%w: %v", ErrPeerRegistrationFailed, err)
		}
	} else {
		_, ipNet, err := net.ParseCIDR(t.networkRange)
		if err != nil {
			return fmt.Errorf("%w: parsing network range %s: %v", ErrPeerRegistrationFailed, t.networkRange, err)
		}
		bcast := getBroadcastIP(ipNet)
		if bcast == nil {
			return fmt.Errorf("%w: %s is not an IPv4 range", ErrPeerRegistrationFailed, t.networkRange)
		}
		if err := enableBroadcast(t.conn); err != nil {
			return fmt.Errorf("%w: enabling broadcast: %v", ErrPeerRegistrationFailed, err)
		}
		t.dest = &net.UDPAddr{IP: bcast, Port: t.port}
	}

	t.log.Info().Str("peer", t.dest.String()).Msg("Broadcast peer registered")
	return nil
}

func (t *UDP) joinGroup() error {
	group := net.ParseIP(t.group)
	if group == nil || !group.IsMulticast() {
		return fmt.Errorf("%s is not a multicast group", t.group)
	}

	iface, err := t.pickInterface()
	if err != nil {
		return err
	}

	p := ipv4.NewPacketConn(t.conn)
	if err := p.JoinGroup(iface, &net.UDPAddr{IP: group}); err != nil {
		return fmt.Errorf("joining %s on %s: %w", t.group, iface.Name, err)
	}
	if err := p.SetMulticastInterface(iface); err != nil {
		return fmt.Errorf("pinning %s: %w", iface.Name, err)
	}
	if err := p.SetMulticastTTL(1); err != nil {
		return fmt.Errorf("setting TTL: %w", err)
	}
	if err := p.SetMulticastLoopback(false); err != nil {
		return fmt.Errorf("disabling loopback: %w", err)
	}

	t.pconn = p
	t.dest = &net.UDPAddr{IP: group, Port: t.port}
	return nil
}

// pickInterface returns the configured interface, or the one owning the
// detected local IP when none is named.
func (t *UDP) pickInterface() (*net.Interface, error) {
	if t.ifaceName != "" {
		iface, err := net.InterfaceByName(t.ifaceName)
		if err != nil {
			return nil, fmt.Errorf("interface %s: %w", t.ifaceName, err)
		}
		return iface, nil
	}

	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	for i := range ifaces {
		addrs, err := ifaces[i].Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			if an, ok := addr.(*net.IPNet); ok && an.IP.String() == t.localIP {
				return &ifaces[i], nil
			}
		}
	}
	return nil, fmt.Errorf("no interface owns %s", t.localIP)
}

// Send writes one datagram to the registered destination and queues its
// outcome on the results channel.
func (t *UDP) Send(data []byte) error {
	if t.dest == nil {
		return fmt.Errorf("no broadcast peer registered")
	}

	_, err := t.conn.WriteToUDP(data, t.dest)
	res := SendResult{OK: err == nil, Err: err}
	select {
	case t.results <- res:
	default:
		t.log.Warn().Msg("Send result queue full, dropping result")
	}

	if err != nil {
		return fmt.Errorf("sending %d bytes to %s: %w", len(data), t.dest, err)
	}

	t.log.Debug().
		Str("target", t.dest.String()).
		Int("bytes", len(data)).
		Msg("Datagram sent")
	return nil
}

// Receive returns the inbound datagram queue.
func (t *UDP) Receive() <-chan Datagram {
	return t.rx
}

// Results returns the send outcome queue.
func (t *UDP) Results() <-chan SendResult {
	return t.results
}

// LocalAddr returns the detected local address of the link.
func (t *UDP) LocalAddr() string {
	return fmt.Sprintf("%s:%d", t.localIP, t.port)
}

// Close stops the reader and releases the socket.
func (t *UDP) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.done)
		err = t.conn.Close()
	})
	return err
}

func (t *UDP) readLoop() {
	buf := make([]byte, maxPacketSize)
	for {
		n, src, err := t.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-t.done:
				return
			default:
			}
			t.log.Error().Err(err).Msg("Error reading from UDP")
			continue
		}

		// Our own broadcasts loop back through the shared socket
		if src.Port == t.port && src.IP.String() == t.localIP {
			continue
		}

		data := make([]byte, n)
		copy(data, buf[:n])
		dg := Datagram{Data: data, From: src.String()}

		select {
		case t.rx <- dg:
		default:
			t.log.Warn().Str("from", dg.From).Msg("Receive queue full, dropping datagram")
		}
	}
}

// enableBroadcast sets SO_BROADCAST so sends to the subnet broadcast address
// are permitted.
func enableBroadcast(conn *net.UDPConn) error {
	rc, err := conn.SyscallConn()
	if err != nil {
		return err
	}
	var serr error
	err = rc.Control(func(fd uintptr) {
		serr = syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_BROADCAST, 1)
	})
	if err != nil {
		return err
	}
	return serr
}

func getBroadcastIP(n *net.IPNet) net.IP {
	ip := n.IP.To4()
	if ip == nil {
		return nil
	}
	mask := n.Mask
	broadcastIP := make(net.IP, len(ip))
	for i := range ip {
		broadcastIP[i] = ip[i] | ^mask[i]
	}
	return broadcastIP
}
