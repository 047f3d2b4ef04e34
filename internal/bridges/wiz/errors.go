package wiz

import "errors"

// Domain errors for the WiZ source bridge.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrTimeout is returned when a lamp does not answer within the poll window.
	ErrTimeout = errors.New("wiz: operation timed out")

	// ErrPoll is returned for any other poll failure: transport errors,
	// malformed JSON, error replies or missing colour fields.
	ErrPoll = errors.New("wiz: poll failed")

	// ErrDiscovery is returned when the discovery socket cannot be set up
	// or the broadcast cannot be sent.
	ErrDiscovery = errors.New("wiz: discovery failed")
)
