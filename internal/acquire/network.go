package acquire

import (
	"context"
	"net"
)

// OnlineFunc reports whether the host has any usable network connection
type OnlineFunc func(ctx context.Context) bool

// InterfacesOnline reports true when at least one non-loopback interface is up
// and has an address. It does not touch the network.
func InterfacesOnline(context.Context) bool {
	ifaces, err := net.Interfaces()
	if err != nil {
		// Unknown: do not claim offline
		return true
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err == nil && len(addrs) > 0 {
			return true
		}
	}
	return false
}
