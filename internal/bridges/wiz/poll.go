package wiz

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/nerrad567/lightsync/internal/device"
)

// PollSource fetches the current state of one lamp.
//
// Each call sends a single getPilot datagram on a fresh socket and waits
// for one reply. The socket is closed before returning.
//
// Parameters:
//   - ctx: Cancels the wait; the socket is released immediately
//   - addr: Lamp IPv4 address
//
// Returns:
//   - device.LightState: Parsed state
//   - error: ErrTimeout when no reply arrives in the poll window,
//     ErrPoll for any other failure, or the context error
func (c *Client) PollSource(ctx context.Context, addr string) (device.LightState, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "udp4", net.JoinHostPort(addr, strconv.Itoa(c.cfg.Port)))
	if err != nil {
		return device.LightState{}, fmt.Errorf("%w: dialling %s: %w", ErrPoll, addr, err)
	}
	defer conn.Close()

	if err := conn.SetDeadline(deadlineFor(ctx, c.cfg.PollTimeout)); err != nil {
		return device.LightState{}, fmt.Errorf("%w: setting deadline: %w", ErrPoll, err)
	}
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now()) //nolint:errcheck // Unblocks the pending read
	})
	defer stop()

	if _, err := conn.Write(pilotQuery); err != nil {
		return device.LightState{}, fmt.Errorf("%w: sending query to %s: %w", ErrPoll, addr, err)
	}

	buf := make([]byte, readBufferSize)
	n, err := conn.Read(buf)
	if err != nil {
		if ctx.Err() != nil {
			return device.LightState{}, fmt.Errorf("polling %s: %w", addr, ctx.Err())
		}
		if isTimeout(err) {
			return device.LightState{}, fmt.Errorf("%w: no reply from %s within %v", ErrTimeout, addr, c.cfg.PollTimeout)
		}
		return device.LightState{}, fmt.Errorf("%w: reading reply from %s: %w", ErrPoll, addr, err)
	}

	c.logDebug("received pilot", "address", addr, "payload", string(buf[:n]))

	state, err := parsePilot(buf[:n])
	if err != nil {
		return device.LightState{}, fmt.Errorf("lamp %s: %w", addr, err)
	}
	return state, nil
}
