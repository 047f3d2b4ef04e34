package hypercube

import (
	"context"
	"fmt"
)

// DiscoverSink probes each candidate address in order and returns the first
// that identifies as a HyperCube.
//
// Each probe is bounded by the probe timeout. Unreachable hosts, non-200
// answers, bad JSON and other brands are logged at debug and skipped.
//
// Parameters:
//   - ctx: Cancels the scan between or during probes
//   - candidates: Addresses to probe, in order (usually network.DeriveScanRange)
//
// Returns:
//   - string: Address of the sink
//   - bool: false if no candidate identified as a HyperCube
//   - error: Only the context error when the scan is cancelled
func (c *Client) DiscoverSink(ctx context.Context, candidates []string) (string, bool, error) {
	for _, addr := range candidates {
		if err := ctx.Err(); err != nil {
			return "", false, fmt.Errorf("sink discovery: %w", err)
		}

		info, err := c.Identify(ctx, addr)
		if err != nil {
			if ctx.Err() != nil {
				return "", false, fmt.Errorf("sink discovery: %w", ctx.Err())
			}
			c.logDebug("sink probe failed", "address", addr, "error", err)
			continue
		}

		c.logInfo("sink discovered", "address", addr, "name", info.Name, "version", info.Version)
		return addr, true, nil
	}
	return "", false, nil
}
