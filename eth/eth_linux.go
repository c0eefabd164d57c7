//go:build linux
// +build linux

package eth

import (
	"fmt"
	"net"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/vishvananda/netlink"

	"github.com/nearhop/netman/netif"
)

// NewDriver returns the platform ethernet driver. On linux devices are
// discovered and watched through netlink.
func NewDriver(l *logrus.Logger) Driver {
	return &linuxDriver{l: l}
}

type linuxDriver struct {
	l *logrus.Logger
}

func (d *linuxDriver) Probe() ([]Device, error) {
	links, err := netlink.LinkList()
	if err != nil {
		return nil, fmt.Errorf("eth: list links: %w", err)
	}

	var out []Device
	for _, link := range links {
		attrs := link.Attrs()
		if attrs == nil || attrs.Flags&net.FlagLoopback != 0 {
			continue
		}
		// Physical wired ports only
		if link.Type() != "device" || len(attrs.HardwareAddr) == 0 {
			continue
		}

		d.l.WithField("device", attrs.Name).Debug("Detected ethernet device")
		out = append(out, &linuxDevice{l: d.l, name: attrs.Name, index: attrs.Index})
	}
	return out, nil
}

func (d *linuxDriver) Release() error { return nil }

type linuxDevice struct {
	l     *logrus.Logger
	name  string
	index int

	mu      sync.Mutex
	cb      func(Event)
	handle  netif.Handle
	stop    chan struct{}
	running bool
	wasUp   bool
}

func (d *linuxDevice) Name() string { return d.name }

func (d *linuxDevice) Attach(h netif.Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handle = h
	return nil
}

func (d *linuxDevice) Subscribe(cb func(Event)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cb = cb
}

func (d *linuxDevice) Start() error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return nil
	}
	if d.handle == nil {
		d.mu.Unlock()
		return fmt.Errorf("eth: device %s started before attach", d.name)
	}
	d.running = true
	d.stop = make(chan struct{})
	d.mu.Unlock()

	link, err := netlink.LinkByIndex(d.index)
	if err != nil {
		return err
	}
	if err := netlink.LinkSetUp(link); err != nil {
		return fmt.Errorf("eth: set %s up: %w", d.name, err)
	}

	updates := make(chan netlink.LinkUpdate)
	done := make(chan struct{})
	if err := netlink.LinkSubscribe(updates, done); err != nil {
		return fmt.Errorf("eth: link subscribe: %w", err)
	}

	initiallyUp := link.Attrs().OperState == netlink.OperUp
	d.mu.Lock()
	d.wasUp = initiallyUp
	d.mu.Unlock()

	// Events are delivered from the watch goroutine only, never from inside
	// Start itself: the caller may hold locks the handler also needs.
	go func() {
		d.emit(Event{Type: EventStarted})
		// Report the current carrier state so a cable that is already
		// plugged in is not missed.
		if initiallyUp {
			d.emit(Event{Type: EventLinkUp})
		}

		for {
			select {
			case <-d.stop:
				close(done)
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				d.handleUpdate(update)
			}
		}
	}()
	return nil
}

func (d *linuxDevice) handleUpdate(update netlink.LinkUpdate) {
	if update.Link == nil || update.Link.Attrs() == nil {
		return
	}
	if update.Link.Attrs().Index != d.index {
		return
	}

	up := update.Link.Attrs().OperState == netlink.OperUp
	d.mu.Lock()
	changed := up != d.wasUp
	d.wasUp = up
	d.mu.Unlock()
	if !changed {
		return
	}

	if up {
		d.l.WithField("device", d.name).Info("Link up")
		d.emit(Event{Type: EventLinkUp})
	} else {
		d.l.WithField("device", d.name).Warn("Link down")
		d.emit(Event{Type: EventLinkDown})
	}
}

func (d *linuxDevice) Stop() error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return nil
	}
	d.running = false
	close(d.stop)
	d.mu.Unlock()

	// Do not wait for the watcher: Stop runs under caller locks that an
	// in-flight emit may be blocked on. The watcher drains and exits on its
	// own, and consumers drop events that land after a stop.
	go d.emit(Event{Type: EventStopped})
	return nil
}

func (d *linuxDevice) emit(e Event) {
	d.mu.Lock()
	cb := d.cb
	d.mu.Unlock()
	if cb != nil {
		cb(e)
	}
}
