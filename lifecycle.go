package netman

import (
	"net"

	"github.com/nearhop/netman/eth"
	"github.com/nearhop/netman/netif"
	"github.com/nearhop/netman/util"
	"github.com/nearhop/netman/wifi"
)

// The access point serves its own subnet; clients are handed addresses
// relative to this one.
var defaultAPAddr = netif.Addr{
	IP:      net.IPv4(192, 168, 4, 1).To4(),
	Netmask: net.IPv4(255, 255, 255, 0).To4(),
}

// startLocked brings the configured interfaces up in a fixed order: radio
// init and mode, interface handles with their addressing, ethernet
// probe/attach/start, and the radio start last so station and access point
// events only begin once everything they touch exists.
func (m *Manager) startLocked(cfg *Config) error {
	m.stopLocked()
	m.running = true

	wifiMode := wifi.ModeNone
	switch {
	case cfg.STAEnabled && cfg.APEnabled:
		wifiMode = wifi.ModeCombined
	case cfg.STAEnabled:
		wifiMode = wifi.ModeStation
	case cfg.APEnabled:
		wifiMode = wifi.ModeAccessPoint
	}

	if wifiMode != wifi.ModeNone {
		if err := m.wifi.Init(); err != nil {
			m.stopLocked()
			return util.NewContextualError("Failed to initialize wifi radio", nil, err)
		}
		m.wifiActive = true

		if err := m.wifi.SetMode(wifiMode); err != nil {
			m.stopLocked()
			return util.NewContextualError("Failed to set wifi mode", m.modeFields(wifiMode), err)
		}

		if cfg.STAEnabled {
			if err := m.startStationLocked(cfg); err != nil {
				m.stopLocked()
				return err
			}
		}
		if cfg.APEnabled {
			if err := m.startAccessPointLocked(cfg); err != nil {
				m.stopLocked()
				return err
			}
		}
	}

	// Ethernet failure does not take the radio down with it. The error is
	// surfaced after the wifi start below.
	var ethErr error
	if cfg.EthernetEnabled {
		ethErr = m.startEthernetLocked(cfg)
		if ethErr != nil {
			m.l.WithError(ethErr).Error("Ethernet bring-up failed")
			// A half-built ethernet interface must not answer queries
			m.teardownEthernetLocked()
		}
	}

	if wifiMode != wifi.ModeNone {
		if err := m.wifi.Start(); err != nil {
			m.stopLocked()
			return util.NewContextualError("Failed to start wifi radio", nil, err)
		}
	}

	m.l.WithFields(m.modeFields(wifiMode)).Info("Network interfaces started")
	return ethErr
}

func (m *Manager) modeFields(mode wifi.Mode) map[string]interface{} {
	return map[string]interface{}{"wifiMode": mode.String()}
}

func (m *Manager) startStationLocked(cfg *Config) error {
	h, err := m.netifs.New(cfg.STA.Interface, m.handleAddr)
	if err != nil {
		return util.NewContextualError("Failed to create station interface", nil, err)
	}
	m.staHandle = h

	if err := applyAddressing(h, cfg.STA.Static); err != nil {
		return util.NewContextualError("Failed to configure station addressing", nil, err)
	}

	err = m.wifi.ConfigureStation(wifi.StationSettings{
		SSID:     cfg.STA.SSID,
		Password: cfg.STA.Password,
		FastScan: true,
	})
	if err != nil {
		return util.NewContextualError("Failed to configure station", nil, err)
	}
	return nil
}

func (m *Manager) startAccessPointLocked(cfg *Config) error {
	// Access point address assignments come from us, not a remote stack, so
	// no notify target is needed.
	h, err := m.netifs.New(cfg.AP.Interface, nil)
	if err != nil {
		return util.NewContextualError("Failed to create access point interface", nil, err)
	}
	m.apHandle = h

	if err := h.DisableAutoConfig(); err != nil {
		return err
	}
	if err := h.SetAddress(defaultAPAddr); err != nil {
		return err
	}

	auth := wifi.AuthWPA2PSK
	if cfg.AP.Password == "" {
		auth = wifi.AuthOpen
	}
	err = m.wifi.ConfigureAccessPoint(wifi.AccessPointSettings{
		SSID:       cfg.AP.SSID,
		Password:   cfg.AP.Password,
		Channel:    cfg.AP.Channel,
		MaxClients: cfg.AP.MaxClients,
		Auth:       auth,
	})
	if err != nil {
		return util.NewContextualError("Failed to configure access point", nil, err)
	}
	return nil
}

func (m *Manager) startEthernetLocked(cfg *Config) error {
	devices, err := m.eth.Probe()
	if err != nil {
		return util.NewContextualError("Ethernet probe failed", nil, err)
	}
	if len(devices) == 0 {
		return eth.ErrNoDevices
	}
	m.ethDevices = devices

	// A single wired port is assumed; extra ports are probed but left idle.
	dev := devices[0]
	if len(devices) > 1 {
		m.l.WithField("devices", len(devices)).
			Warn("Multiple ethernet devices found, using the first")
	}

	h, err := m.netifs.New(dev.Name(), m.handleAddr)
	if err != nil {
		return util.NewContextualError("Failed to create ethernet interface", nil, err)
	}
	m.ethHandle = h

	if err := applyAddressing(h, cfg.Ethernet.Static); err != nil {
		return util.NewContextualError("Failed to configure ethernet addressing", nil, err)
	}

	if err := h.Attach(dev); err != nil {
		return err
	}
	if err := dev.Attach(h); err != nil {
		return err
	}
	dev.Subscribe(m.handleEthEvent)

	if err := dev.Start(); err != nil {
		return util.NewContextualError("Failed to start ethernet device",
			map[string]interface{}{"device": dev.Name()}, err)
	}
	return nil
}

// applyAddressing switches a handle between a static assignment and
// automatic configuration. Static requires stopping the automatic client
// first so the two never fight over the address.
func applyAddressing(h netif.Handle, s *StaticIP) error {
	if s == nil {
		return h.EnableAutoConfig()
	}

	if err := h.DisableAutoConfig(); err != nil {
		return err
	}
	err := h.SetAddress(netif.Addr{IP: s.Address, Netmask: s.Netmask, Gateway: s.Gateway})
	if err != nil {
		return err
	}
	if s.DNS1 != nil {
		if err := h.SetDNS(netif.DNSPrimary, s.DNS1); err != nil {
			return err
		}
	}
	if s.DNS2 != nil {
		if err := h.SetDNS(netif.DNSBackup, s.DNS2); err != nil {
			return err
		}
	}
	return nil
}

// teardownEthernetLocked unwinds whatever portion of the ethernet bring-up
// happened, whether a full run or a failed partial one.
func (m *Manager) teardownEthernetLocked() {
	if m.ethHandle != nil {
		// Destroying the handle stops the attached device first
		if err := m.ethHandle.Destroy(); err != nil {
			m.l.WithError(err).Error("Failed to destroy ethernet interface")
		}
		m.ethHandle = nil
	}
	if m.ethDevices != nil {
		if err := m.eth.Release(); err != nil {
			m.l.WithError(err).Error("Failed to release ethernet driver")
		}
		m.ethDevices = nil
	}
}

// stopLocked tears everything down unconditionally in the reverse of the
// bring-up order: pending reconnects first, then ethernet handle and driver,
// then the radio, then the wifi handles. Teardown errors are logged and
// swallowed, a failed step must not leave later steps undone.
func (m *Manager) stopLocked() {
	m.cancelReconnectLocked()
	m.teardownEthernetLocked()

	if m.wifiActive {
		if err := m.wifi.Stop(); err != nil {
			m.l.WithError(err).Error("Failed to stop wifi radio")
		}
		if err := m.wifi.Deinit(); err != nil {
			m.l.WithError(err).Error("Failed to deinit wifi radio")
		}
		m.wifiActive = false
	}

	if m.staHandle != nil {
		if err := m.staHandle.Destroy(); err != nil {
			m.l.WithError(err).Error("Failed to destroy station interface")
		}
		m.staHandle = nil
	}
	if m.apHandle != nil {
		if err := m.apHandle.Destroy(); err != nil {
			m.l.WithError(err).Error("Failed to destroy access point interface")
		}
		m.apHandle = nil
	}

	wasRunning := m.running
	m.running = false
	m.status.reset()
	m.staRetry.reset()

	if wasRunning {
		m.l.Info("Network interfaces stopped")
	}
}
