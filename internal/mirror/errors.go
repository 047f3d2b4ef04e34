package mirror

import "errors"

// Domain errors for the mirror loop.
// These are terminal: they stop lightsync before the loop starts.
var (
	// ErrNoSink is returned when no HyperCube was found or configured.
	ErrNoSink = errors.New("mirror: no sink available")

	// ErrNoSources is returned when discovery found no lamps.
	ErrNoSources = errors.New("mirror: no sources available")

	// ErrInvalidSelection is returned when the source selection does not
	// name a discovered lamp.
	ErrInvalidSelection = errors.New("mirror: invalid source selection")
)
