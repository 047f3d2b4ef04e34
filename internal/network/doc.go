// Package network resolves the host's local IPv4 address and derives the
// broadcast address and /24 scan range used by lamp and cube discovery.
//
// Every derivation assumes a /24-equivalent network: the last octet is the
// host part. Discovery never leaves that network.
package network
