// Package wifi is the boundary to the shared Wi-Fi radio driver. The radio is
// a single resource serving the station and access point roles at once; it is
// initialized once, mode switched, and raises raw events whose vocabulary may
// be wider than what a consumer understands.
package wifi

import (
	"fmt"
	"net"
)

type Mode int

const (
	ModeNone Mode = iota
	ModeStation
	ModeAccessPoint
	ModeCombined
)

func (m Mode) String() string {
	switch m {
	case ModeStation:
		return "sta"
	case ModeAccessPoint:
		return "ap"
	case ModeCombined:
		return "apsta"
	default:
		return "none"
	}
}

type AuthMode int

const (
	AuthOpen AuthMode = iota
	AuthWPA2PSK
)

// EventType values are raw driver event codes. Drivers may raise codes not
// listed here; consumers are expected to treat those as no-ops.
type EventType int

const (
	EventStationStart EventType = iota + 1
	EventStationStop
	EventStationConnected // associated, no address yet
	EventStationDisconnected
	EventAccessPointStart
	EventAccessPointStop
	EventStationJoined // AP role: a client associated
	EventStationLeft   // AP role: a client deassociated
)

// Station describes a client of the access point.
type Station struct {
	MAC net.HardwareAddr
	AID uint16
}

func (s Station) String() string {
	return fmt.Sprintf("%s/aid=%d", s.MAC, s.AID)
}

// Copy keeps handed out stations detached from driver memory.
func (s Station) Copy() Station {
	out := Station{AID: s.AID}
	if s.MAC != nil {
		out.MAC = make(net.HardwareAddr, len(s.MAC))
		copy(out.MAC, s.MAC)
	}
	return out
}

type Event struct {
	Type    EventType
	Station *Station // set for EventStationJoined and EventStationLeft
}

type StationSettings struct {
	SSID     string
	Password string

	// Scan and connect preferences
	FastScan    bool
	MinimumRSSI int
}

type AccessPointSettings struct {
	SSID       string
	Password   string
	Channel    uint8
	MaxClients uint8
	Auth       AuthMode
}

// Driver is implemented by the platform radio integration. All calls are
// serialized by the manager; Subscribe must be called before Start and the
// callback may fire from any goroutine.
type Driver interface {
	Init() error
	Deinit() error

	SetMode(m Mode) error
	ConfigureStation(s StationSettings) error
	ConfigureAccessPoint(s AccessPointSettings) error

	Start() error
	Stop() error

	// Connect begins a station association attempt. Completion is reported
	// through events, not the return value.
	Connect() error

	// Stations lists the clients currently associated to the access point.
	Stations() ([]Station, error)

	Subscribe(cb func(Event))
}
