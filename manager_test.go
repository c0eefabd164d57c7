package netman

import (
	"errors"
	"io/ioutil"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nearhop/netman/eth"
	"github.com/nearhop/netman/netif"
	"github.com/nearhop/netman/store"
	"github.com/nearhop/netman/wifi"
)

// callRecorder keeps one ordered list of driver calls across all the fakes so
// tests can assert cross-driver sequencing.
type callRecorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *callRecorder) add(s string) {
	r.mu.Lock()
	r.calls = append(r.calls, s)
	r.mu.Unlock()
}

func (r *callRecorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.calls))
	copy(out, r.calls)
	return out
}

func (r *callRecorder) count(s string) int {
	n := 0
	for _, c := range r.list() {
		if c == s {
			n++
		}
	}
	return n
}

// index returns the position of the first occurrence of s, or -1.
func (r *callRecorder) index(s string) int {
	for i, c := range r.list() {
		if c == s {
			return i
		}
	}
	return -1
}

type fakeWifi struct {
	rec *callRecorder

	mu       sync.Mutex
	cb       func(wifi.Event)
	stations []wifi.Station
}

func (f *fakeWifi) Init() error   { f.rec.add("wifi.init"); return nil }
func (f *fakeWifi) Deinit() error { f.rec.add("wifi.deinit"); return nil }

func (f *fakeWifi) SetMode(m wifi.Mode) error {
	f.rec.add("wifi.setmode:" + m.String())
	return nil
}

func (f *fakeWifi) ConfigureStation(s wifi.StationSettings) error {
	f.rec.add("wifi.configure_sta")
	return nil
}

func (f *fakeWifi) ConfigureAccessPoint(s wifi.AccessPointSettings) error {
	f.rec.add("wifi.configure_ap")
	return nil
}

func (f *fakeWifi) Start() error   { f.rec.add("wifi.start"); return nil }
func (f *fakeWifi) Stop() error    { f.rec.add("wifi.stop"); return nil }
func (f *fakeWifi) Connect() error { f.rec.add("wifi.connect"); return nil }

func (f *fakeWifi) Stations() ([]wifi.Station, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stations, nil
}

func (f *fakeWifi) Subscribe(cb func(wifi.Event)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cb = cb
}

type fakeEthDriver struct {
	rec     *callRecorder
	devices []eth.Device
}

func (f *fakeEthDriver) Probe() ([]eth.Device, error) {
	f.rec.add("eth.probe")
	return f.devices, nil
}

func (f *fakeEthDriver) Release() error {
	f.rec.add("eth.release")
	return nil
}

type fakeEthDevice struct {
	rec      *callRecorder
	name     string
	startErr error

	mu     sync.Mutex
	handle netif.Handle
	cb     func(eth.Event)
}

func (f *fakeEthDevice) Name() string { return f.name }

func (f *fakeEthDevice) Attach(h netif.Handle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handle = h
	return nil
}

func (f *fakeEthDevice) Subscribe(cb func(eth.Event)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cb = cb
}

func (f *fakeEthDevice) Start() error { f.rec.add("ethdev.start"); return f.startErr }
func (f *fakeEthDevice) Stop() error  { f.rec.add("ethdev.stop"); return nil }

// eventSink collects emitted events. The callback runs with the manager lock
// held so it only appends, never calls back in.
type eventSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *eventSink) add(e Event) {
	s.mu.Lock()
	s.events = append(s.events, e.Copy())
	s.mu.Unlock()
}

func (s *eventSink) list() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

func (s *eventSink) statuses(source Source) []Status {
	var out []Status
	for _, e := range s.list() {
		if e.Source == source {
			out = append(out, e.Status)
		}
	}
	return out
}

type testEnv struct {
	m      *Manager
	rec    *callRecorder
	wifi   *fakeWifi
	eth    *fakeEthDriver
	netifs *netif.MemoryFactory
	sink   *eventSink
}

func newTestEnv(t *testing.T, opts Options) *testEnv {
	t.Helper()

	l := logrus.New()
	l.SetOutput(ioutil.Discard)

	env := &testEnv{
		rec:    &callRecorder{},
		netifs: netif.NewMemoryFactory(),
		sink:   &eventSink{},
	}
	env.wifi = &fakeWifi{rec: env.rec}
	env.eth = &fakeEthDriver{rec: env.rec}

	opts.Wifi = env.wifi
	if opts.Eth == nil {
		opts.Eth = env.eth
	}
	opts.Netifs = env.netifs
	opts.Callback = env.sink.add

	m, err := New(l, opts)
	require.NoError(t, err)
	env.m = m

	t.Cleanup(func() { _ = m.Close() })
	return env
}

func staConfig() *Config {
	return &Config{
		STAEnabled: true,
		STA:        StationConfig{Interface: "wlan0", SSID: "upstream", Password: "pw"},
	}
}

func fullConfig() *Config {
	c := staConfig()
	c.APEnabled = true
	c.AP = AccessPointConfig{Interface: "uap0", SSID: "device-ap", Channel: 1, MaxClients: 4}
	c.EthernetEnabled = true
	return c
}

func (e *testEnv) staHandle() netif.Handle {
	e.m.mu.Lock()
	defer e.m.mu.Unlock()
	return e.m.staHandle
}

func (e *testEnv) ethHandle() netif.Handle {
	e.m.mu.Lock()
	defer e.m.mu.Unlock()
	return e.m.ethHandle
}

func TestStartupOrder(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.eth.devices = []eth.Device{&fakeEthDevice{rec: env.rec, name: "eth0"}}

	require.NoError(t, env.m.Start(fullConfig()))

	calls := env.rec
	assert.Less(t, calls.index("wifi.init"), calls.index("wifi.setmode:apsta"))
	assert.Less(t, calls.index("wifi.setmode:apsta"), calls.index("wifi.configure_sta"))
	assert.Less(t, calls.index("wifi.configure_sta"), calls.index("wifi.configure_ap"))
	assert.Less(t, calls.index("wifi.configure_ap"), calls.index("eth.probe"))
	assert.Less(t, calls.index("eth.probe"), calls.index("ethdev.start"))

	// The radio starts only once everything else is in place
	assert.Less(t, calls.index("ethdev.start"), calls.index("wifi.start"))
}

func TestTeardownOrder(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.eth.devices = []eth.Device{&fakeEthDevice{rec: env.rec, name: "eth0"}}

	require.NoError(t, env.m.Start(fullConfig()))
	require.NoError(t, env.m.Stop())

	calls := env.rec
	assert.Less(t, calls.index("ethdev.stop"), calls.index("eth.release"))
	assert.Less(t, calls.index("eth.release"), calls.index("wifi.stop"))
	assert.Less(t, calls.index("wifi.stop"), calls.index("wifi.deinit"))

	snap := env.m.GetStatus()
	assert.Equal(t, StatusStopped, snap.STA.Status)
	assert.Equal(t, StatusStopped, snap.AP.Status)
	assert.Equal(t, StatusStopped, snap.Ethernet.Status)
	assert.Equal(t, 0, snap.APClients)
}

func TestStopIdempotent(t *testing.T) {
	env := newTestEnv(t, Options{})

	require.NoError(t, env.m.Start(staConfig()))
	require.NoError(t, env.m.Stop())
	require.NoError(t, env.m.Stop())

	assert.Equal(t, 1, env.rec.count("wifi.stop"))
	assert.Equal(t, 1, env.rec.count("wifi.deinit"))
}

func TestStartEthernetNoDevices(t *testing.T) {
	env := newTestEnv(t, Options{})

	err := env.m.Start(fullConfig())
	assert.ErrorIs(t, err, eth.ErrNoDevices)

	// The wifi side survives an ethernet failure
	assert.Equal(t, 1, env.rec.count("wifi.start"))
}

func TestStartEthernetPartialFailure(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.eth.devices = []eth.Device{
		&fakeEthDevice{rec: env.rec, name: "eth0", startErr: errors.New("phy wedged")},
	}

	err := env.m.Start(fullConfig())
	require.Error(t, err)

	// The partial bring-up is unwound: no handle survives to answer queries
	_, err = env.m.IPInfo(SourceEthernet)
	assert.ErrorIs(t, err, ErrInterfaceNotActive)

	assert.Equal(t, 1, env.rec.count("ethdev.stop"))
	assert.Equal(t, 1, env.rec.count("eth.release"))

	// And the wifi side is untouched by the unwind
	assert.Equal(t, 1, env.rec.count("wifi.start"))
	assert.Equal(t, 0, env.rec.count("wifi.stop"))
}

func TestRestartStopsFirst(t *testing.T) {
	env := newTestEnv(t, Options{})

	require.NoError(t, env.m.Start(staConfig()))
	require.NoError(t, env.m.Start(staConfig()))

	assert.Equal(t, 2, env.rec.count("wifi.init"))
	assert.Equal(t, 1, env.rec.count("wifi.stop"))
}

func TestQueriesWhenInactive(t *testing.T) {
	env := newTestEnv(t, Options{})

	_, err := env.m.IPInfo(SourceSTA)
	assert.ErrorIs(t, err, ErrInterfaceNotActive)

	_, err = env.m.DNSInfo(SourceEthernet, DNSPrimary)
	assert.ErrorIs(t, err, ErrInterfaceNotActive)

	_, err = env.m.ApClients()
	assert.ErrorIs(t, err, ErrInterfaceNotActive)
}

func TestIPInfoStatic(t *testing.T) {
	env := newTestEnv(t, Options{})

	cfg := staConfig()
	cfg.STA.Static = &StaticIP{
		Address: net.IPv4(10, 0, 0, 9).To4(),
		Netmask: net.IPv4(255, 255, 255, 0).To4(),
		Gateway: net.IPv4(10, 0, 0, 1).To4(),
		DNS1:    net.IPv4(9, 9, 9, 9).To4(),
	}
	require.NoError(t, env.m.Start(cfg))

	a, err := env.m.IPInfo(SourceSTA)
	require.NoError(t, err)
	assert.Equal(t, net.IPv4(10, 0, 0, 9).To4(), a.IP)

	d, err := env.m.DNSInfo(SourceSTA, DNSPrimary)
	require.NoError(t, err)
	assert.Equal(t, net.IPv4(9, 9, 9, 9).To4(), d.Server)

	_, err = env.m.DNSInfo(SourceSTA, DNSBackup)
	assert.Error(t, err)

	// A static assignment is reported back as an acquired address
	require.Eventually(t, func() bool {
		return env.m.IsStaConnected()
	}, time.Second, 5*time.Millisecond)
}

func TestApClientsQuery(t *testing.T) {
	env := newTestEnv(t, Options{})

	mac, _ := net.ParseMAC("02:00:00:00:00:01")
	env.wifi.stations = []wifi.Station{{MAC: mac, AID: 1}}

	cfg := &Config{
		APEnabled: true,
		AP:        AccessPointConfig{Interface: "uap0", SSID: "device-ap", Channel: 1, MaxClients: 4},
	}
	require.NoError(t, env.m.Start(cfg))

	clients, err := env.m.ApClients()
	require.NoError(t, err)
	require.Len(t, clients, 1)
	assert.Equal(t, mac, clients[0].MAC)

	// Handed out stations are copies, not driver memory
	clients[0].MAC[0] = 0xff
	assert.NotEqual(t, clients[0].MAC, env.wifi.stations[0].MAC)
}

func TestSaveLoadConfig(t *testing.T) {
	l := logrus.New()
	l.SetOutput(ioutil.Discard)
	st, err := store.NewFileStore(l, t.TempDir())
	require.NoError(t, err)

	env := newTestEnv(t, Options{Store: st})

	_, err = env.m.LoadConfig()
	assert.ErrorIs(t, err, store.ErrNotFound)

	in := fullConfig()
	require.NoError(t, env.m.SaveConfig(in))

	out, err := env.m.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, in.STA.SSID, out.STA.SSID)
	assert.Equal(t, in.AP.SSID, out.AP.SSID)
	assert.True(t, out.EthernetEnabled)

	// A blob of the wrong length is corruption, not a partial config
	require.NoError(t, st.Put(storeNamespace, storeConfigKey, []byte("short")))
	_, err = env.m.LoadConfig()
	assert.ErrorIs(t, err, ErrConfigSize)
}

func TestSaveConfigWithoutStore(t *testing.T) {
	env := newTestEnv(t, Options{})

	assert.ErrorIs(t, env.m.SaveConfig(staConfig()), ErrNoStore)
	_, err := env.m.LoadConfig()
	assert.ErrorIs(t, err, ErrNoStore)
}

func TestStartNilConfigUsesDefaults(t *testing.T) {
	env := newTestEnv(t, Options{Defaults: staConfig()})

	require.NoError(t, env.m.Start(nil))
	assert.Equal(t, 1, env.rec.count("wifi.configure_sta"))
	assert.Equal(t, 0, env.rec.count("wifi.configure_ap"))
}

func TestStartNilConfigLoadsSaved(t *testing.T) {
	l := logrus.New()
	l.SetOutput(ioutil.Discard)
	st, err := store.NewFileStore(l, t.TempDir())
	require.NoError(t, err)

	env := newTestEnv(t, Options{Store: st})
	require.NoError(t, env.m.SaveConfig(staConfig()))

	require.NoError(t, env.m.Start(nil))
	assert.Equal(t, 1, env.rec.count("wifi.configure_sta"))
}

func TestClosedManagerPanics(t *testing.T) {
	env := newTestEnv(t, Options{})

	require.NoError(t, env.m.Close())
	require.NoError(t, env.m.Close())

	assert.Panics(t, func() { env.m.GetStatus() })
	assert.Panics(t, func() { _ = env.m.Stop() })
}
