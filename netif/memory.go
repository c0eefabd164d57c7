package netif

import (
	"errors"
	"net"
	"sync"
)

// MemoryFactory produces handles that keep all state in memory. It backs
// platforms without a real IP stack integration and is handy in tests; a
// static address assignment is reported back through notify as if the stack
// had acquired it, automatic configuration never completes on its own.
type MemoryFactory struct {
	mu      sync.Mutex
	handles []*MemoryHandle
}

func NewMemoryFactory() *MemoryFactory {
	return &MemoryFactory{}
}

func (f *MemoryFactory) New(name string, notify NotifyFunc) (Handle, error) {
	h := &MemoryHandle{name: name, notify: notify, auto: true}
	f.mu.Lock()
	f.handles = append(f.handles, h)
	f.mu.Unlock()
	return h, nil
}

// Handles returns the live handles created so far, mostly for tests.
func (f *MemoryFactory) Handles() []*MemoryHandle {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*MemoryHandle, len(f.handles))
	copy(out, f.handles)
	return out
}

type MemoryHandle struct {
	mu        sync.Mutex
	name      string
	notify    NotifyFunc
	auto      bool
	addr      Addr
	dns       [2]net.IP
	att       Attachment
	destroyed bool
}

var errDestroyed = errors.New("netif: handle destroyed")

func (h *MemoryHandle) Name() string { return h.name }

func (h *MemoryHandle) EnableAutoConfig() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.destroyed {
		return errDestroyed
	}
	h.auto = true
	return nil
}

func (h *MemoryHandle) DisableAutoConfig() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.destroyed {
		return errDestroyed
	}
	h.auto = false
	return nil
}

func (h *MemoryHandle) SetAddress(a Addr) error {
	h.mu.Lock()
	if h.destroyed {
		h.mu.Unlock()
		return errDestroyed
	}
	h.addr = a.Copy()
	notify := h.notify
	h.mu.Unlock()

	// Address notifications always arrive from a separate goroutine, the
	// caller of SetAddress may hold locks the notify target also needs.
	if notify != nil {
		go notify(h, a.Copy())
	}
	return nil
}

func (h *MemoryHandle) SetDNS(kind DNSKind, server net.IP) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.destroyed {
		return errDestroyed
	}
	h.dns[kind] = copyIP(server)
	return nil
}

func (h *MemoryHandle) Attach(dev Attachment) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.destroyed {
		return errDestroyed
	}
	h.att = dev
	return nil
}

func (h *MemoryHandle) IPInfo() (Addr, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.destroyed {
		return Addr{}, errDestroyed
	}
	return h.addr.Copy(), nil
}

func (h *MemoryHandle) DNSInfo(kind DNSKind) (net.IP, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.destroyed {
		return nil, errDestroyed
	}
	if h.dns[kind] == nil {
		return nil, errors.New("netif: no dns server recorded")
	}
	return copyIP(h.dns[kind]), nil
}

func (h *MemoryHandle) Destroy() error {
	h.mu.Lock()
	if h.destroyed {
		h.mu.Unlock()
		return nil
	}
	h.destroyed = true
	att := h.att
	h.att = nil
	h.notify = nil
	h.mu.Unlock()

	if att != nil {
		return att.Stop()
	}
	return nil
}

// AcquireAddress simulates the IP stack handing out an address, for tests and
// for loopback style setups.
func (h *MemoryHandle) AcquireAddress(a Addr) {
	h.mu.Lock()
	if h.destroyed {
		h.mu.Unlock()
		return
	}
	h.addr = a.Copy()
	notify := h.notify
	h.mu.Unlock()

	if notify != nil {
		go notify(h, a.Copy())
	}
}
