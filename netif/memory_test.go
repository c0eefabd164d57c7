package netif

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type notifyRecorder struct {
	mu    sync.Mutex
	addrs []Addr
}

func (r *notifyRecorder) notify(h Handle, a Addr) {
	r.mu.Lock()
	r.addrs = append(r.addrs, a)
	r.mu.Unlock()
}

func (r *notifyRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.addrs)
}

func TestMemoryHandleStaticAddress(t *testing.T) {
	f := NewMemoryFactory()
	rec := &notifyRecorder{}

	h, err := f.New("wlan0", rec.notify)
	require.NoError(t, err)
	assert.Equal(t, "wlan0", h.Name())

	addr := Addr{
		IP:      net.IPv4(10, 0, 0, 2).To4(),
		Netmask: net.IPv4(255, 255, 255, 0).To4(),
	}
	require.NoError(t, h.DisableAutoConfig())
	require.NoError(t, h.SetAddress(addr))

	got, err := h.IPInfo()
	require.NoError(t, err)
	assert.Equal(t, addr.IP, got.IP)

	// The assignment is reported back through notify, asynchronously
	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, time.Millisecond)
}

func TestMemoryHandleDNS(t *testing.T) {
	f := NewMemoryFactory()
	h, err := f.New("eth0", nil)
	require.NoError(t, err)

	_, err = h.DNSInfo(DNSPrimary)
	assert.Error(t, err)

	server := net.IPv4(1, 1, 1, 1).To4()
	require.NoError(t, h.SetDNS(DNSPrimary, server))

	got, err := h.DNSInfo(DNSPrimary)
	require.NoError(t, err)
	assert.Equal(t, server, got)

	_, err = h.DNSInfo(DNSBackup)
	assert.Error(t, err)
}

type stopRecorder struct {
	stopped bool
}

func (s *stopRecorder) Stop() error {
	s.stopped = true
	return nil
}

func TestMemoryHandleDestroy(t *testing.T) {
	f := NewMemoryFactory()
	rec := &notifyRecorder{}

	h, err := f.New("eth0", rec.notify)
	require.NoError(t, err)

	att := &stopRecorder{}
	require.NoError(t, h.Attach(att))

	require.NoError(t, h.Destroy())
	assert.True(t, att.stopped)

	// Destroy is idempotent and everything afterwards fails
	require.NoError(t, h.Destroy())
	assert.Error(t, h.SetAddress(Addr{}))
	_, err = h.IPInfo()
	assert.Error(t, err)

	// No notifications after destroy
	mh := h.(*MemoryHandle)
	mh.AcquireAddress(Addr{IP: net.IPv4(1, 2, 3, 4).To4()})
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, 0, rec.count())
}

func TestAddrCopy(t *testing.T) {
	a := Addr{IP: net.IPv4(10, 0, 0, 1).To4()}
	b := a.Copy()
	b.IP[0] = 99
	assert.NotEqual(t, a.IP, b.IP)

	assert.True(t, Addr{}.IsZero())
	assert.False(t, a.IsZero())
}
