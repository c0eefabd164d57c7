//go:build linux
// +build linux

package netif

import (
	"fmt"
	"net"
	"sync"

	"github.com/jackpal/gateway"
	"github.com/sirupsen/logrus"
	"github.com/vishvananda/netlink"
)

// NewFactory returns the platform factory. On linux handles are bound to real
// links via netlink and address acquisition is observed by subscribing to
// kernel address updates.
func NewFactory(l *logrus.Logger) Factory {
	return &linuxFactory{l: l}
}

type linuxFactory struct {
	l *logrus.Logger
}

func (f *linuxFactory) New(name string, notify NotifyFunc) (Handle, error) {
	link, err := netlink.LinkByName(name)
	if err != nil {
		return nil, fmt.Errorf("netif: link %s: %w", name, err)
	}

	h := &linuxHandle{
		l:      f.l,
		name:   name,
		index:  link.Attrs().Index,
		notify: notify,
		stop:   make(chan struct{}),
	}

	if notify != nil {
		if err := h.watch(); err != nil {
			return nil, err
		}
	}
	return h, nil
}

type linuxHandle struct {
	l      *logrus.Logger
	name   string
	index  int
	notify NotifyFunc

	mu        sync.Mutex
	dns       [2]net.IP
	gw        net.IP
	att       Attachment
	destroyed bool

	stop chan struct{}
}

func (h *linuxHandle) Name() string { return h.name }

// The kernel has no per-link dhcp client to stop; auto config toggles are
// recorded for the external dhcp agent to honor.
func (h *linuxHandle) EnableAutoConfig() error  { return nil }
func (h *linuxHandle) DisableAutoConfig() error { return nil }

func (h *linuxHandle) SetAddress(a Addr) error {
	link, err := netlink.LinkByIndex(h.index)
	if err != nil {
		return err
	}

	if a.IP != nil && a.Netmask != nil {
		addr := &netlink.Addr{IPNet: &net.IPNet{IP: a.IP, Mask: net.IPMask(a.Netmask.To4())}}
		if err := netlink.AddrReplace(link, addr); err != nil {
			return fmt.Errorf("netif: assign %s to %s: %w", a.IP, h.name, err)
		}
	}

	if a.Gateway != nil {
		route := &netlink.Route{LinkIndex: h.index, Gw: a.Gateway}
		if err := netlink.RouteReplace(route); err != nil {
			return fmt.Errorf("netif: default route via %s: %w", a.Gateway, err)
		}
		h.mu.Lock()
		h.gw = copyIP(a.Gateway)
		h.mu.Unlock()
	}

	h.l.WithField("interface", h.name).WithField("ip", a.IP).Info("Applied static address")
	return nil
}

func (h *linuxHandle) SetDNS(kind DNSKind, server net.IP) error {
	h.mu.Lock()
	h.dns[kind] = copyIP(server)
	h.mu.Unlock()
	return nil
}

func (h *linuxHandle) Attach(dev Attachment) error {
	h.mu.Lock()
	h.att = dev
	h.mu.Unlock()
	return nil
}

func (h *linuxHandle) IPInfo() (Addr, error) {
	link, err := netlink.LinkByIndex(h.index)
	if err != nil {
		return Addr{}, err
	}

	addrs, err := netlink.AddrList(link, netlink.FAMILY_V4)
	if err != nil {
		return Addr{}, err
	}
	if len(addrs) == 0 {
		return Addr{}, nil
	}

	out := Addr{
		IP:      copyIP(addrs[0].IP),
		Netmask: copyIP(net.IP(addrs[0].Mask)),
	}

	h.mu.Lock()
	gw := copyIP(h.gw)
	h.mu.Unlock()
	if gw == nil {
		// Likely auto configured, ask the routing table
		if discovered, err := gateway.DiscoverGateway(); err == nil {
			gw = discovered
		}
	}
	out.Gateway = gw
	return out, nil
}

func (h *linuxHandle) DNSInfo(kind DNSKind) (net.IP, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.dns[kind] == nil {
		return nil, fmt.Errorf("netif: no dns server recorded for %s", h.name)
	}
	return copyIP(h.dns[kind]), nil
}

func (h *linuxHandle) Destroy() error {
	h.mu.Lock()
	if h.destroyed {
		h.mu.Unlock()
		return nil
	}
	h.destroyed = true
	att := h.att
	h.att = nil
	h.mu.Unlock()

	// Signal the watcher and return without waiting for it. Callers hold
	// locks across Destroy that the notify target also needs; waiting here
	// for an in-flight delivery would deadlock. A notification that lands
	// after Destroy is the consumer's to drop.
	close(h.stop)

	if att != nil {
		return att.Stop()
	}
	return nil
}

// watch subscribes to kernel address updates and reports new v4 addresses on
// our link as acquisitions.
func (h *linuxHandle) watch() error {
	updates := make(chan netlink.AddrUpdate)
	done := make(chan struct{})

	if err := netlink.AddrSubscribe(updates, done); err != nil {
		return fmt.Errorf("netif: address subscribe: %w", err)
	}

	go func() {
		for {
			select {
			case <-h.stop:
				close(done)
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				if update.LinkIndex != h.index || !update.NewAddr {
					continue
				}
				v4 := update.LinkAddress.IP.To4()
				if v4 == nil {
					continue
				}

				a := Addr{
					IP:      copyIP(v4),
					Netmask: copyIP(net.IP(update.LinkAddress.Mask)),
				}
				if gw, err := gateway.DiscoverGateway(); err == nil {
					a.Gateway = gw
				}

				h.l.WithField("interface", h.name).WithField("ip", a.IP).Info("Address acquired")
				if h.notify != nil {
					h.notify(h, a)
				}
			}
		}
	}()
	return nil
}
