package netman

import (
	"net"

	"github.com/nearhop/netman/netif"
)

// Status is the lifecycle state of one network interface.
type Status int

const (
	StatusUninitialized Status = iota
	StatusStopped
	StatusStarted
	StatusConnecting
	StatusConnected
	StatusDisconnected
	StatusWaitingForReconnect

	// Event-only statuses for access point client churn, never stored as an
	// interface state.
	StatusClientConnected
	StatusClientDisconnected
)

func (s Status) String() string {
	switch s {
	case StatusUninitialized:
		return "uninitialized"
	case StatusStopped:
		return "stopped"
	case StatusStarted:
		return "started"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusDisconnected:
		return "disconnected"
	case StatusWaitingForReconnect:
		return "waiting_for_reconnect"
	case StatusClientConnected:
		return "client_connected"
	case StatusClientDisconnected:
		return "client_disconnected"
	default:
		return "unknown"
	}
}

// Source identifies which interface produced an event or owns a state.
type Source int

const (
	SourceSTA Source = iota
	SourceAP
	SourceEthernet
)

func (s Source) String() string {
	switch s {
	case SourceSTA:
		return "sta"
	case SourceAP:
		return "ap"
	case SourceEthernet:
		return "ethernet"
	default:
		return "unknown"
	}
}

// AddressInfo is the IPv4 assignment of an interface. It is only populated
// while the interface is connected.
type AddressInfo struct {
	IP      net.IP
	Netmask net.IP
	Gateway net.IP
}

func (a AddressInfo) IsZero() bool {
	return a.IP == nil && a.Netmask == nil && a.Gateway == nil
}

func (a AddressInfo) Copy() AddressInfo {
	return AddressInfo{
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

func addrFromNetif(a netif.Addr) AddressInfo {
	return AddressInfo{IP: copyIP(a.IP), Netmask: copyIP(a.Netmask), Gateway: copyIP(a.Gateway)}
}

// DNSInfo is a single DNS server assignment.
type DNSInfo struct {
	Server net.IP
}

type DNSKind int

const (
	DNSPrimary DNSKind = iota
	DNSBackup
)

// InterfaceState is the per-interface slice of the status model.
type InterfaceState struct {
	Status Status
	Addr   AddressInfo
}

// StatusSnapshot is a consistent copy of the whole status model, safe to read
// without further synchronization.
type StatusSnapshot struct {
	STA      InterfaceState
	AP       InterfaceState
	Ethernet InterfaceState

	APClients int
}

// statusModel is the single source of truth for interface state. Only the
// dispatcher mutates it, always under the manager lock.
type statusModel struct {
	sta       InterfaceState
	ap        InterfaceState
	eth       InterfaceState
	apClients int
}

func (s *statusModel) reset() {
	s.sta = InterfaceState{Status: StatusStopped}
	s.ap = InterfaceState{Status: StatusStopped}
	s.eth = InterfaceState{Status: StatusStopped}
	s.apClients = 0
}

func (s *statusModel) snapshot() StatusSnapshot {
	return StatusSnapshot{
		STA:       InterfaceState{Status: s.sta.Status, Addr: s.sta.Addr.Copy()},
		AP:        InterfaceState{Status: s.ap.Status, Addr: s.ap.Addr.Copy()},
		Ethernet:  InterfaceState{Status: s.eth.Status, Addr: s.eth.Addr.Copy()},
		APClients: s.apClients,
	}
}
