package wiz

import (
	"context"
	"fmt"
	"net"
	"time"
)

// Source is a lamp found by discovery. Address is its identity.
type Source struct {
	Address string `json:"address"`
	MAC     string `json:"mac"`
}

// DiscoverSources broadcasts a getSystemConfig query and collects the lamps
// that answer within the discovery window.
//
// Every reply with a result section carrying a mac field adds its sender.
// Repeated replies from one address are counted once; the result keeps
// first-seen order. Malformed replies are logged and skipped. Running out
// of time ends discovery normally, so an empty result is not an error.
//
// Parameters:
//   - ctx: Cancels discovery early; the lamps found so far are returned with ctx.Err()
//   - broadcast: Broadcast address of the local network (e.g. "192.168.1.255")
//
// Returns:
//   - []Source: Discovered lamps
//   - error: ErrDiscovery if the socket cannot be opened or the query not sent
func (c *Client) DiscoverSources(ctx context.Context, broadcast string) ([]Source, error) {
	dst := net.ParseIP(broadcast)
	if dst == nil || dst.To4() == nil {
		return nil, fmt.Errorf("%w: invalid broadcast address %q", ErrDiscovery, broadcast)
	}

	// Go enables SO_BROADCAST on UDP sockets by default.
	conn, err := net.ListenPacket("udp4", ":0")
	if err != nil {
		return nil, fmt.Errorf("%w: opening socket: %w", ErrDiscovery, err)
	}
	defer conn.Close()

	if err := conn.SetDeadline(deadlineFor(ctx, c.cfg.DiscoveryTimeout)); err != nil {
		return nil, fmt.Errorf("%w: setting deadline: %w", ErrDiscovery, err)
	}
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now()) //nolint:errcheck // Unblocks the read loop
	})
	defer stop()

	if _, err := conn.WriteTo(discoveryQuery, &net.UDPAddr{IP: dst, Port: c.cfg.Port}); err != nil {
		return nil, fmt.Errorf("%w: sending query: %w", ErrDiscovery, err)
	}

	var sources []Source
	seen := make(map[string]bool)
	buf := make([]byte, readBufferSize)

	for {
		n, from, err := conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return sources, ctx.Err()
			}
			if !isTimeout(err) {
				c.logError("error during lamp discovery", "error", err)
			}
			break
		}

		udpAddr, ok := from.(*net.UDPAddr)
		if !ok {
			continue
		}
		addr := udpAddr.IP.String()

		mac, err := parseSystemConfig(buf[:n])
		if err != nil {
			c.logDebug("ignoring discovery reply", "from", addr, "error", err)
			continue
		}

		if seen[addr] {
			continue
		}
		seen[addr] = true
		sources = append(sources, Source{Address: addr, MAC: mac})
		c.logDebug("lamp answered discovery", "address", addr, "mac", mac)
	}

	return sources, nil
}

// Addresses returns the addresses of the given sources in order.
func Addresses(sources []Source) []string {
	addrs := make([]string, len(sources))
	for i, s := range sources {
		addrs[i] = s.Address
	}
	return addrs
}
