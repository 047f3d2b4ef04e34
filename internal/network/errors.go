package network

import "errors"

// Domain errors for local address resolution.
var (
	// ErrNoSuitableNetwork is returned when the host has no usable IPv4 address.
	ErrNoSuitableNetwork = errors.New("network: no suitable network found")

	// ErrInvalidAddress is returned when an address is not a dotted IPv4 string.
	ErrInvalidAddress = errors.New("network: invalid IPv4 address")
)
