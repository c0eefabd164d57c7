// Package eth is the boundary to wired ethernet drivers. A driver probes for
// physical devices; each device binds to a netif attachment handle and raises
// link events once started.
package eth

import (
	"errors"

	"github.com/nearhop/netman/netif"
)

type EventType int

const (
	EventStarted EventType = iota + 1
	EventStopped
	EventLinkUp
	EventLinkDown
)

type Event struct {
	Type EventType
}

var ErrNoDevices = errors.New("eth: no ethernet devices detected")

// Device is one physical ethernet port. Start may only be called after
// Attach; Stop is idempotent and also satisfies netif.Attachment so that
// destroying the handle stops the device.
type Device interface {
	netif.Attachment

	Name() string
	Attach(h netif.Handle) error
	Start() error
	Subscribe(cb func(Event))
}

type Driver interface {
	// Probe initializes the driver layer and returns every usable device.
	Probe() ([]Device, error)

	// Release frees driver resources. Devices must be stopped first.
	Release() error
}
