package hypercube

import "errors"

// Domain errors for the HyperCube sink bridge.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrSinkUnreachable is returned when the sink cannot be contacted:
	// connection refused, DNS failure or timeout.
	ErrSinkUnreachable = errors.New("hypercube: sink unreachable")

	// ErrSinkRejected is returned when the sink answers a command with a
	// non-2xx status.
	ErrSinkRejected = errors.New("hypercube: command rejected")

	// ErrNotHyperCube is returned by Identify when the device answers but
	// does not report the expected brand.
	ErrNotHyperCube = errors.New("hypercube: device is not a HyperCube")
)
