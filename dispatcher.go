package netman

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nearhop/netman/eth"
	"github.com/nearhop/netman/netif"
	"github.com/nearhop/netman/wifi"
)

// The handlers below are the only writers of the status model. Each one takes
// the manager lock for the full classify-update-emit step, so a subscriber
// callback always observes the model state the event describes.

func (m *Manager) handleWifiEvent(e wifi.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Drivers may deliver late events after teardown
	if m.closed || !m.running {
		return
	}

	switch e.Type {
	case wifi.EventStationStart:
		m.status.sta.Status = StatusConnecting
		m.emitLocked(Event{Source: SourceSTA, Status: StatusConnecting})
		if err := m.wifi.Connect(); err != nil {
			m.l.WithError(err).Error("Failed to begin station association")
		}

	case wifi.EventStationStop:
		m.status.sta = InterfaceState{Status: StatusStopped}
		m.emitLocked(Event{Source: SourceSTA, Status: StatusStopped})

	case wifi.EventStationConnected:
		// Associated, still waiting for an address. Not a status change.
		m.l.Debug("Station associated, waiting for address")

	case wifi.EventStationDisconnected:
		m.status.sta = InterfaceState{Status: StatusDisconnected}
		m.emitLocked(Event{Source: SourceSTA, Status: StatusDisconnected})
		m.scheduleReconnectLocked()

	case wifi.EventAccessPointStart:
		m.status.ap.Status = StatusStarted
		if m.apHandle != nil {
			if a, err := m.apHandle.IPInfo(); err == nil {
				m.status.ap.Addr = addrFromNetif(a)
			}
		}
		ev := Event{Source: SourceAP, Status: StatusStarted}
		if !m.status.ap.Addr.IsZero() {
			a := m.status.ap.Addr.Copy()
			ev.Addr = &a
		}
		m.emitLocked(ev)

	case wifi.EventAccessPointStop:
		m.status.ap = InterfaceState{Status: StatusStopped}
		m.status.apClients = 0
		m.emitLocked(Event{Source: SourceAP, Status: StatusStopped})

	case wifi.EventStationJoined:
		m.status.apClients++
		ev := Event{Source: SourceAP, Status: StatusClientConnected}
		if e.Station != nil {
			s := e.Station.Copy()
			ev.Client = &s
		}
		m.logClient("Client connected", e.Station)
		m.emitLocked(ev)

	case wifi.EventStationLeft:
		// Saturate at zero, a leave without a recorded join must not go
		// negative.
		if m.status.apClients > 0 {
			m.status.apClients--
		}
		ev := Event{Source: SourceAP, Status: StatusClientDisconnected}
		if e.Station != nil {
			s := e.Station.Copy()
			ev.Client = &s
		}
		m.logClient("Client disconnected", e.Station)
		m.emitLocked(ev)

	default:
		// Unknown driver codes are an explicit no-op, not an error.
		m.metricIgnored.Inc(1)
		m.l.WithField("type", int(e.Type)).Debug("Ignoring unhandled wifi event")
	}
}

func (m *Manager) logClient(msg string, s *wifi.Station) {
	f := logrus.Fields{"clients": m.status.apClients}
	if s != nil {
		f["station"] = s.String()
	}
	m.l.WithFields(f).Info(msg)
}

func (m *Manager) handleEthEvent(e eth.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed || !m.running {
		return
	}

	switch e.Type {
	case eth.EventStarted:
		m.status.eth.Status = StatusStarted
		m.emitLocked(Event{Source: SourceEthernet, Status: StatusStarted})

	case eth.EventStopped:
		m.status.eth = InterfaceState{Status: StatusStopped}
		m.emitLocked(Event{Source: SourceEthernet, Status: StatusStopped})

	case eth.EventLinkUp:
		m.status.eth.Status = StatusConnecting
		m.emitLocked(Event{Source: SourceEthernet, Status: StatusConnecting})

	case eth.EventLinkDown:
		m.status.eth = InterfaceState{Status: StatusDisconnected}
		m.emitLocked(Event{Source: SourceEthernet, Status: StatusDisconnected})

	default:
		m.metricIgnored.Inc(1)
		m.l.WithField("type", int(e.Type)).Debug("Ignoring unhandled ethernet event")
	}
}

// handleAddr is the netif notify target: the IP stack acquired an address for
// one of our handles.
func (m *Manager) handleAddr(h netif.Handle, a netif.Addr) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed || !m.running {
		return
	}

	var source Source
	switch h {
	case m.staHandle:
		source = SourceSTA
		m.staRetry.reset()
	case m.ethHandle:
		source = SourceEthernet
	default:
		// Late notification from a destroyed handle
		return
	}

	addr := addrFromNetif(a)
	m.l.WithFields(logrus.Fields{"interface": h.Name(), "ip": addr.IP}).
		Info("Acquired address")

	switch source {
	case SourceSTA:
		m.status.sta = InterfaceState{Status: StatusConnected, Addr: addr}
	case SourceEthernet:
		m.status.eth = InterfaceState{Status: StatusConnected, Addr: addr}
	}

	ev := Event{Source: source, Status: StatusConnected}
	a2 := addr.Copy()
	ev.Addr = &a2
	m.emitLocked(ev)

	if m.probe != nil {
		go m.probe.check(h.Name())
	}
}

// scheduleReconnectLocked arms the backoff timer after a station disconnect.
// The attempt counter advances before the wait, so successive delays double
// starting at twice the base interval. Once the attempt budget is spent the
// station is left Disconnected.
func (m *Manager) scheduleReconnectLocked() {
	delay, ok := reconnectDelay(m.staRetry.attempts, m.retryCfg.MaxAttempts, m.retryCfg.BaseInterval)
	if !ok {
		m.metricGaveUp.Inc(1)
		m.l.WithField("attempts", m.staRetry.attempts).
			Warn("Station reconnect attempts exhausted")
		return
	}

	m.staRetry.attempts++
	m.metricRetries.Inc(1)

	m.status.sta.Status = StatusWaitingForReconnect
	m.emitLocked(Event{Source: SourceSTA, Status: StatusWaitingForReconnect})

	m.l.WithFields(logrus.Fields{
		"attempt": m.staRetry.attempts,
		"delay":   delay,
	}).Info("Waiting before station reconnect")

	gen := m.generation
	m.reconnectTimer = time.AfterFunc(delay, func() { m.tryReconnect(gen) })
}

// tryReconnect fires from the backoff timer. The generation check discards
// timers that survived a stop or restart; the sleep itself never holds the
// manager lock.
func (m *Manager) tryReconnect(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed || !m.running || gen != m.generation {
		return
	}
	if m.status.sta.Status != StatusWaitingForReconnect {
		return
	}

	m.status.sta.Status = StatusConnecting
	m.emitLocked(Event{Source: SourceSTA, Status: StatusConnecting})

	if err := m.wifi.Connect(); err != nil {
		m.l.WithError(err).Error("Station reconnect attempt failed to start")
		m.status.sta.Status = StatusDisconnected
		m.emitLocked(Event{Source: SourceSTA, Status: StatusDisconnected})
		m.scheduleReconnectLocked()
	}
}

// cancelReconnectLocked guarantees no reconnect outlives a stop: the timer is
// stopped and the generation bumped so an already fired timer gives up at the
// generation check.
func (m *Manager) cancelReconnectLocked() {
	m.generation++
	if m.reconnectTimer != nil {
		m.reconnectTimer.Stop()
		m.reconnectTimer = nil
	}
}
