package network

import (
	"fmt"
	"net"
)

// Subnet layout for a /24-equivalent network.
const (
	// broadcastOctet is the host octet of the broadcast address.
	broadcastOctet = 255

	// firstHostOctet and lastHostOctet bound the usable host addresses.
	firstHostOctet = 1
	lastHostOctet  = 254
)

// InterfaceSource lists network interfaces and their addresses.
// The default implementation reads the host's interfaces; tests supply fakes.
type InterfaceSource interface {
	Interfaces() ([]Interface, error)
}

// Interface is the subset of net.Interface the resolver needs.
type Interface struct {
	Name  string
	Flags net.Flags
	Addrs []net.Addr
}

// hostInterfaces reads interfaces from the operating system.
type hostInterfaces struct{}

// Interfaces implements InterfaceSource.
func (hostInterfaces) Interfaces() ([]Interface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("listing interfaces: %w", err)
	}

	result := make([]Interface, 0, len(ifaces))
	for _, iface := range ifaces {
		addrs, err := iface.Addrs()
		if err != nil {
			// One unreadable interface must not hide the others.
			continue
		}
		result = append(result, Interface{
			Name:  iface.Name,
			Flags: iface.Flags,
			Addrs: addrs,
		})
	}
	return result, nil
}

// ResolveLocalAddress returns the first IPv4 address of an interface that is
// up and not a loopback.
//
// Returns:
//   - string: Dotted IPv4 address (e.g. "192.168.1.42")
//   - error: ErrNoSuitableNetwork if no interface qualifies
func ResolveLocalAddress() (string, error) {
	return ResolveFrom(hostInterfaces{})
}

// ResolveFrom is ResolveLocalAddress over an explicit interface source.
func ResolveFrom(src InterfaceSource) (string, error) {
	ifaces, err := src.Interfaces()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNoSuitableNetwork, err)
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		for _, addr := range iface.Addrs {
			if ip := ipv4Of(addr); ip != nil {
				return ip.String(), nil
			}
		}
	}

	return "", ErrNoSuitableNetwork
}

// ipv4Of extracts an IPv4 address from an interface address, or nil.
func ipv4Of(addr net.Addr) net.IP {
	var ip net.IP
	switch v := addr.(type) {
	case *net.IPNet:
		ip = v.IP
	case *net.IPAddr:
		ip = v.IP
	default:
		return nil
	}
	if ip.IsLoopback() {
		return nil
	}
	return ip.To4()
}

// DeriveBroadcast replaces the last octet of addr with 255.
//
// Example:
//
//	DeriveBroadcast("192.168.1.42") // "192.168.1.255"
func DeriveBroadcast(addr string) (string, error) {
	ip, err := parseIPv4(addr)
	if err != nil {
		return "", err
	}
	ip[3] = broadcastOctet
	return ip.String(), nil
}

// DeriveScanRange returns every host address of the /24 network containing
// addr, excluding the network and broadcast addresses, in ascending order.
//
// Example:
//
//	DeriveScanRange("192.168.1.42") // "192.168.1.1" ... "192.168.1.254"
func DeriveScanRange(addr string) ([]string, error) {
	ip, err := parseIPv4(addr)
	if err != nil {
		return nil, err
	}

	hosts := make([]string, 0, lastHostOctet-firstHostOctet+1)
	for octet := firstHostOctet; octet <= lastHostOctet; octet++ {
		host := net.IPv4(ip[0], ip[1], ip[2], byte(octet)).To4()
		hosts = append(hosts, host.String())
	}
	return hosts, nil
}

// parseIPv4 parses a dotted IPv4 string into a fresh 4-byte slice.
func parseIPv4(addr string) (net.IP, error) {
	ip := net.ParseIP(addr)
	if ip == nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, addr)
	}
	v4 := ip.To4()
	if v4 == nil {
		return nil, fmt.Errorf("%w: %q is not IPv4", ErrInvalidAddress, addr)
	}
	out := make(net.IP, net.IPv4len)
	copy(out, v4)
	return out, nil
}
