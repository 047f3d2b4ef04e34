package hypercube

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/nerrad567/lightsync/internal/device"
)

// StateCommand is the body of POST /json/state.
type StateCommand struct {
	On         bool      `json:"on"`
	Brightness int       `json:"bri"`
	Segments   []Segment `json:"seg"`
}

// Segment addresses a run of LEDs within a StateCommand.
type Segment struct {
	Start   int      `json:"start"`
	Stop    int      `json:"stop"`
	Colors  [][3]int `json:"col"`
	Effect  int      `json:"fx"`
	Palette int      `json:"pal"`
}

// BuildCommand translates a source state into the sink's command.
// The whole cube is one segment showing a single colour.
func (c *Client) BuildCommand(state device.LightState) StateCommand {
	return StateCommand{
		On:         true,
		Brightness: state.ScaledBrightness(),
		Segments: []Segment{{
			Start:   0,
			Stop:    c.cfg.SegmentStop,
			Colors:  [][3]int{state.RGB()},
			Effect:  c.cfg.Effect,
			Palette: c.cfg.Palette,
		}},
	}
}

// PushToSink sends state to the sink at addr.
//
// Parameters:
//   - ctx: Bounds the request together with the command timeout
//   - addr: Sink address
//   - state: Source state to mirror
//
// Returns:
//   - error: ErrSinkUnreachable on transport failure, ErrSinkRejected on a
//     non-2xx answer
func (c *Client) PushToSink(ctx context.Context, addr string, state device.LightState) error {
	cmd := c.BuildCommand(state)
	body, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("encoding command: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.CommandTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(addr, "/json/state"), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building state request for %s: %w", addr, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Close = true

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrSinkUnreachable, addr, err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256)) //nolint:errcheck // Diagnostic only
		return fmt.Errorf("%w: %s answered status %d: %s", ErrSinkRejected, addr, resp.StatusCode, bytes.TrimSpace(snippet))
	}

	c.logDebug("command sent to sink", "address", addr, "bri", cmd.Brightness, "rgb", state.RGB())
	return nil
}
