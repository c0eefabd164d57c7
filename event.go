package netman

import "github.com/nearhop/netman/wifi"

// Event is the normalized notification delivered to the subscriber. Exactly
// one payload field is set depending on Status: Addr for Connected and access
// point Started, Client for client churn, neither otherwise. Payload pointers
// are only valid for the duration of the callback.
type Event struct {
	Source Source
	Status Status

	Addr   *AddressInfo
	Client *wifi.Station
}

// EventCallback receives every normalized event. It runs with the manager
// lock held: treat the event as a read-only snapshot and never call back into
// the manager from inside the callback.
type EventCallback func(e Event)

func (e Event) Copy() Event {
	out := Event{Source: e.Source, Status: e.Status}
	if e.Addr != nil {
		a := e.Addr.Copy()
		out.Addr = &a
	}
	if e.Client != nil {
		c := e.Client.Copy()
		out.Client = &c
	}
	return out
}
