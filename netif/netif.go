// Package netif models the attachment handle between a physical or radio
// driver and the IP stack facing network interface object. The network
// manager owns handles; drivers are bound to them via Attach and the IP stack
// reports acquired addresses through the notify callback supplied at creation.
package netif

import "net"

// Addr is an IPv4 address assignment. Fields may be nil when unknown.
type Addr struct {
	IP      net.IP
	Netmask net.IP
	Gateway net.IP
}

func (a Addr) IsZero() bool {
	return a.IP == nil && a.Netmask == nil && a.Gateway == nil
}

// Copy returns a deep copy, callers must never hand out the stored slices.
func (a Addr) Copy() Addr {
	return Addr{
		IP:      copyIP(a.IP),
		Netmask: copyIP(a.Netmask),
		Gateway: copyIP(a.Gateway),
	}
}

func copyIP(ip net.IP) net.IP {
	if ip == nil {
		return nil
	}
	out := make(net.IP, len(ip))
	copy(out, ip)
	return out
}

type DNSKind int

const (
	DNSPrimary DNSKind = iota
	DNSBackup
)

// Attachment is the stoppable binding a driver hands to a handle. Destroying
// a handle stops its attachment first, mirroring how tearing down the
// interface object implicitly stops the underlying driver.
type Attachment interface {
	Stop() error
}

// NotifyFunc reports an acquired address for the handle that produced it.
type NotifyFunc func(h Handle, a Addr)

type Handle interface {
	Name() string

	// EnableAutoConfig and DisableAutoConfig toggle automatic address
	// assignment (DHCP). Static assignment requires disabling first.
	EnableAutoConfig() error
	DisableAutoConfig() error

	SetAddress(a Addr) error
	SetDNS(kind DNSKind, server net.IP) error

	Attach(dev Attachment) error

	IPInfo() (Addr, error)
	DNSInfo(kind DNSKind) (net.IP, error)

	// Destroy stops any attachment, cancels address notifications and
	// releases the handle. The handle is unusable afterwards.
	Destroy() error
}

type Factory interface {
	New(name string, notify NotifyFunc) (Handle, error)
}
