// Package netman is a unified lifecycle controller for a device's network
// interfaces: a Wi-Fi station, a Wi-Fi access point and a wired ethernet
// link, any subset of which may be active at once. Raw driver events are
// reconciled into one status model, station connectivity loss is recovered
// with bounded exponential backoff, and every state change is reported to a
// single subscriber callback as a normalized event.
package netman

import (
	"errors"
	"sync"
	"time"

	"github.com/rcrowley/go-metrics"
	"github.com/sirupsen/logrus"

	"github.com/nearhop/netman/eth"
	"github.com/nearhop/netman/netif"
	"github.com/nearhop/netman/store"
	"github.com/nearhop/netman/wifi"
)

const (
	storeNamespace = "netman"
	storeConfigKey = "config"
)

var (
	// ErrInterfaceNotActive is returned by queries against an interface that
	// has no live attachment handle.
	ErrInterfaceNotActive = errors.New("netman: interface not active")

	// ErrNoStore is returned by config persistence when no store was wired.
	ErrNoStore = errors.New("netman: no config store configured")
)

// Options wires a Manager. Zero fields get platform defaults; a nil Store
// disables config persistence.
type Options struct {
	Wifi   wifi.Driver
	Eth    eth.Driver
	Netifs netif.Factory
	Store  store.Store

	// Callback is the single event subscriber. May be nil.
	Callback EventCallback

	Reconnect ReconnectConfig

	// Defaults is the compiled-in configuration used by Start(nil) when the
	// store holds no saved config.
	Defaults *Config

	DNSProbe    *DNSProbeConfig
	HistorySize int
}

// Manager owns the interface handles and the status model. All mutable state
// is guarded by mu; event handlers, queries and lifecycle calls each take it
// for the duration of one step, so reads always observe a consistent record.
type Manager struct {
	l  *logrus.Logger
	mu sync.Mutex

	wifi     wifi.Driver
	eth      eth.Driver
	netifs   netif.Factory
	store    store.Store
	cb       EventCallback
	defaults *Config

	status   statusModel
	staRetry retryState
	retryCfg ReconnectConfig

	// generation invalidates pending reconnect timers across stop/start
	generation     uint64
	reconnectTimer *time.Timer

	staHandle  netif.Handle
	apHandle   netif.Handle
	ethHandle  netif.Handle
	ethDevices []eth.Device
	wifiActive bool

	running bool
	closed  bool

	history *eventHistory
	probe   *dnsProber

	metricEmitted metrics.Counter
	metricIgnored metrics.Counter
	metricRetries metrics.Counter
	metricGaveUp  metrics.Counter
}

// New builds a Manager and registers its event subscriptions with the wifi
// driver. Ethernet devices subscribe at start time since they only exist
// after a probe.
func New(l *logrus.Logger, opts Options) (*Manager, error) {
	if opts.Wifi == nil {
		opts.Wifi = wifi.NewNullDriver()
	}
	if opts.Eth == nil {
		opts.Eth = eth.NewDriver(l)
	}
	if opts.Netifs == nil {
		opts.Netifs = netif.NewFactory(l)
	}

	m := &Manager{
		l:        l,
		wifi:     opts.Wifi,
		eth:      opts.Eth,
		netifs:   opts.Netifs,
		store:    opts.Store,
		cb:       opts.Callback,
		defaults: opts.Defaults,
		retryCfg: opts.Reconnect.withDefaults(),
		history:  newEventHistory(opts.HistorySize),

		metricEmitted: metrics.GetOrRegisterCounter("dispatcher.events.emitted", nil),
		metricIgnored: metrics.GetOrRegisterCounter("dispatcher.events.ignored", nil),
		metricRetries: metrics.GetOrRegisterCounter("reconnect.attempts", nil),
		metricGaveUp:  metrics.GetOrRegisterCounter("reconnect.gave_up", nil),
	}
	if opts.DNSProbe != nil {
		m.probe = newDNSProber(l, *opts.DNSProbe)
	}

	m.status.reset()
	m.wifi.Subscribe(m.handleWifiEvent)

	l.Info("Network manager initialized")
	return m, nil
}

// RegisterCallback installs the event subscriber if none was set yet.
func (m *Manager) RegisterCallback(cb EventCallback) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assertOpen()
	if m.cb == nil {
		m.cb = cb
	}
}

// Start brings up the interfaces selected by cfg, always performing a full
// stop first. A nil cfg loads the saved configuration from the store,
// falling back to the compiled-in defaults when none exists. A failed
// ethernet bring-up aborts only the ethernet portion: the error is returned
// but any Wi-Fi interfaces keep running.
func (m *Manager) Start(cfg *Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assertOpen()

	if cfg == nil {
		loaded, err := m.loadConfigLocked()
		switch {
		case err == nil:
			cfg = loaded
		case errors.Is(err, store.ErrNotFound) || errors.Is(err, ErrNoStore):
			m.l.Info("No saved config, using defaults")
			cfg = m.defaults
			if cfg == nil {
				cfg = &Config{}
			}
		default:
			return err
		}
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	return m.startLocked(cfg)
}

// Stop tears down all interfaces. Idempotent; teardown is unconditional and
// driver errors during it are logged, never surfaced.
func (m *Manager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assertOpen()
	m.stopLocked()
	return nil
}

// Close stops everything and releases the manager. Any call on a closed
// manager panics: that is a caller bug, not a recoverable condition.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.stopLocked()
	m.closed = true
	m.cb = nil
	m.l.Info("Network manager closed")
	return nil
}

// GetStatus returns a copy of the status model.
func (m *Manager) GetStatus() StatusSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assertOpen()
	return m.status.snapshot()
}

func (m *Manager) IsStaConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assertOpen()
	return m.status.sta.Status == StatusConnected
}

func (m *Manager) IsEthConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assertOpen()
	return m.status.eth.Status == StatusConnected
}

// ApClients lists the stations currently associated to the access point.
func (m *Manager) ApClients() ([]wifi.Station, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assertOpen()

	if m.apHandle == nil {
		return nil, ErrInterfaceNotActive
	}

	stations, err := m.wifi.Stations()
	if err != nil {
		return nil, err
	}

	out := make([]wifi.Station, len(stations))
	for i, s := range stations {
		out[i] = s.Copy()
	}
	return out, nil
}

// IPInfo returns the current address assignment of the station or ethernet
// interface.
func (m *Manager) IPInfo(source Source) (AddressInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assertOpen()

	h := m.queryHandleLocked(source)
	if h == nil {
		return AddressInfo{}, ErrInterfaceNotActive
	}

	a, err := h.IPInfo()
	if err != nil {
		return AddressInfo{}, err
	}
	return addrFromNetif(a), nil
}

// DNSInfo returns the primary or backup DNS server of the station or
// ethernet interface.
func (m *Manager) DNSInfo(source Source, kind DNSKind) (DNSInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assertOpen()

	h := m.queryHandleLocked(source)
	if h == nil {
		return DNSInfo{}, ErrInterfaceNotActive
	}

	server, err := h.DNSInfo(netif.DNSKind(kind))
	if err != nil {
		return DNSInfo{}, err
	}
	return DNSInfo{Server: server}, nil
}

// Only the station and ethernet interfaces are queryable, matching the
// persisted addressing model.
func (m *Manager) queryHandleLocked(source Source) netif.Handle {
	switch source {
	case SourceSTA:
		return m.staHandle
	case SourceEthernet:
		return m.ethHandle
	default:
		return nil
	}
}

// SaveConfig persists cfg as an opaque blob.
func (m *Manager) SaveConfig(cfg *Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assertOpen()

	if m.store == nil {
		return ErrNoStore
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	err := m.store.Put(storeNamespace, storeConfigKey, cfg.MarshalBlob())
	if err != nil {
		m.l.WithError(err).Error("Failed to save config")
		return err
	}
	m.l.Info("Configuration saved")
	return nil
}

// LoadConfig reads the persisted configuration. store.ErrNotFound means no
// config was ever saved; ErrConfigSize means the stored blob does not match
// the expected layout and is treated as corrupt.
func (m *Manager) LoadConfig() (*Config, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assertOpen()
	return m.loadConfigLocked()
}

func (m *Manager) loadConfigLocked() (*Config, error) {
	if m.store == nil {
		return nil, ErrNoStore
	}

	b, err := m.store.Get(storeNamespace, storeConfigKey)
	if err != nil {
		return nil, err
	}

	cfg, err := UnmarshalBlob(b)
	if err != nil {
		m.l.WithField("bytes", len(b)).Warn("Persisted config has unexpected size")
		return nil, err
	}
	return cfg, nil
}

// RecentEvents returns up to n of the latest normalized events, oldest
// first.
func (m *Manager) RecentEvents(n int) []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assertOpen()
	return m.history.list(n)
}

func (m *Manager) assertOpen() {
	if m.closed {
		panic("netman: use of closed Manager")
	}
}

// emitLocked delivers one normalized event to the subscriber. The lock stays
// held so the event always reflects this interface's latest state.
func (m *Manager) emitLocked(e Event) {
	m.metricEmitted.Inc(1)
	m.history.add(e)
	if m.cb != nil {
		m.cb(e)
	}
}
