package netman

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/nearhop/netman/wifi"
)

// Every interaction here needs to take extra care to copy memory and not return or use arguments "as is" when touching
// core. This means copying IP objects, slices, de-referencing pointers and taking the actual value, etc

type Control struct {
	m          *Manager
	l          *logrus.Logger
	cfg        *Config
	statsStart func()
}

// Start brings the configured interfaces up, this is a nonblocking call. To block use Control.ShutdownBlock()
func (c *Control) Start() error {
	if c.statsStart != nil {
		go c.statsStart()
	}
	return c.m.Start(c.cfg)
}

// Stop signals the manager to shut down, returns after the teardown is complete
func (c *Control) Stop() {
	if err := c.m.Close(); err != nil {
		c.l.WithError(err).Error("Close failed")
	}
	c.l.Info("Goodbye")
}

// ShutdownBlock will listen for and block on term and interrupt signals, calling Control.Stop() once signalled
func (c *Control) ShutdownBlock() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM)
	signal.Notify(sigChan, syscall.SIGINT)

	rawSig := <-sigChan
	sig := rawSig.String()
	c.l.WithField("signal", sig).Info("Caught signal, shutting down")
	c.Stop()
}

// RegisterEventCallback installs the single event subscriber. Only the first
// registration wins.
func (c *Control) RegisterEventCallback(cb EventCallback) {
	c.m.RegisterCallback(cb)
}

func (c *Control) GetStatus() StatusSnapshot { return c.m.GetStatus() }
func (c *Control) IsStaConnected() bool      { return c.m.IsStaConnected() }
func (c *Control) IsEthConnected() bool      { return c.m.IsEthConnected() }

func (c *Control) ApClients() ([]wifi.Station, error) {
	return c.m.ApClients()
}

func (c *Control) IPInfo(source Source) (AddressInfo, error) {
	return c.m.IPInfo(source)
}

func (c *Control) DNSInfo(source Source, kind DNSKind) (DNSInfo, error) {
	return c.m.DNSInfo(source, kind)
}

func (c *Control) SaveConfig(cfg *Config) error {
	return c.m.SaveConfig(cfg)
}

func (c *Control) LoadConfig() (*Config, error) {
	return c.m.LoadConfig()
}

func (c *Control) RecentEvents(n int) []Event {
	return c.m.RecentEvents(n)
}
