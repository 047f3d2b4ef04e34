package device

import "errors"

// ErrInvalidState is returned when a light state has a value out of range.
//
//	if errors.Is(err, device.ErrInvalidState) {
//	    // reject the poll result
//	}
var ErrInvalidState = errors.New("device: invalid light state")
