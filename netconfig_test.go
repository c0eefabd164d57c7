package netman

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nearhop/netman/config"
)

func TestConfigBlobRoundTrip(t *testing.T) {
	in := &Config{
		STAEnabled: true,
		APEnabled:  true,
		STA: StationConfig{
			Interface: "wlan0",
			SSID:      "upstream",
			Password:  "hunter22",
			Static: &StaticIP{
				Address: net.IPv4(10, 1, 2, 3).To4(),
				Netmask: net.IPv4(255, 255, 255, 0).To4(),
				Gateway: net.IPv4(10, 1, 2, 1).To4(),
				DNS1:    net.IPv4(1, 1, 1, 1).To4(),
			},
		},
		AP: AccessPointConfig{
			Interface:  "uap0",
			SSID:       "device-ap",
			Password:   "secret99",
			Channel:    6,
			MaxClients: 8,
		},
	}

	b := in.MarshalBlob()
	assert.Len(t, b, configBlobSize)

	out, err := UnmarshalBlob(b)
	require.NoError(t, err)

	assert.Equal(t, in.STAEnabled, out.STAEnabled)
	assert.Equal(t, in.APEnabled, out.APEnabled)
	assert.Equal(t, in.EthernetEnabled, out.EthernetEnabled)
	assert.Equal(t, in.STA.SSID, out.STA.SSID)
	assert.Equal(t, in.STA.Password, out.STA.Password)
	require.NotNil(t, out.STA.Static)
	assert.Equal(t, in.STA.Static.Address, out.STA.Static.Address)
	assert.Equal(t, in.STA.Static.Netmask, out.STA.Static.Netmask)
	assert.Equal(t, in.STA.Static.Gateway, out.STA.Static.Gateway)
	assert.Equal(t, in.STA.Static.DNS1, out.STA.Static.DNS1)
	assert.Nil(t, out.STA.Static.DNS2)
	assert.Equal(t, in.AP.SSID, out.AP.SSID)
	assert.Equal(t, in.AP.Password, out.AP.Password)
	assert.Equal(t, in.AP.Channel, out.AP.Channel)
	assert.Equal(t, in.AP.MaxClients, out.AP.MaxClients)
	assert.Nil(t, out.Ethernet.Static)
}

func TestUnmarshalBlobSizeMismatch(t *testing.T) {
	_, err := UnmarshalBlob(make([]byte, configBlobSize-1))
	assert.ErrorIs(t, err, ErrConfigSize)

	_, err = UnmarshalBlob(make([]byte, configBlobSize+1))
	assert.ErrorIs(t, err, ErrConfigSize)

	_, err = UnmarshalBlob(nil)
	assert.ErrorIs(t, err, ErrConfigSize)
}

func TestConfigValidate(t *testing.T) {
	c := &Config{STAEnabled: true}
	assert.Error(t, c.Validate())

	c.STA.SSID = "ok"
	assert.NoError(t, c.Validate())

	c.STA.SSID = "this-ssid-is-much-longer-than-thirty-one-bytes"
	assert.Error(t, c.Validate())

	c = &Config{APEnabled: true}
	assert.Error(t, c.Validate())
	c.AP.SSID = "ap"
	assert.NoError(t, c.Validate())
}

func TestParseConfig(t *testing.T) {
	c := config.NewC()
	err := c.LoadString(`
interfaces:
  station:
    enabled: true
    ssid: upstream
    password: hunter22
    static:
      address: 10.1.2.3
      netmask: 255.255.255.0
      gateway: 10.1.2.1
      dns1: 1.1.1.1
  access_point:
    enabled: true
    ssid: device-ap
    password: secret99
    channel: 6
    max_clients: 8
  ethernet:
    enabled: true
`)
	require.NoError(t, err)

	cfg, err := ParseConfig(c)
	require.NoError(t, err)

	assert.True(t, cfg.STAEnabled)
	assert.Equal(t, "wlan0", cfg.STA.Interface)
	assert.Equal(t, "upstream", cfg.STA.SSID)
	require.NotNil(t, cfg.STA.Static)
	assert.Equal(t, net.IPv4(10, 1, 2, 3).To4(), cfg.STA.Static.Address)
	assert.Equal(t, net.IPv4(1, 1, 1, 1).To4(), cfg.STA.Static.DNS1)
	assert.Nil(t, cfg.STA.Static.DNS2)

	assert.True(t, cfg.APEnabled)
	assert.Equal(t, "uap0", cfg.AP.Interface)
	assert.Equal(t, uint8(6), cfg.AP.Channel)
	assert.Equal(t, uint8(8), cfg.AP.MaxClients)

	assert.True(t, cfg.EthernetEnabled)
	assert.Nil(t, cfg.Ethernet.Static)
}

func TestParseConfigDefaults(t *testing.T) {
	c := config.NewC()
	require.NoError(t, c.LoadString(`{}`))

	cfg, err := ParseConfig(c)
	require.NoError(t, err)
	assert.False(t, cfg.STAEnabled)
	assert.False(t, cfg.APEnabled)
	assert.False(t, cfg.EthernetEnabled)
	assert.Equal(t, uint8(1), cfg.AP.Channel)
	assert.Equal(t, uint8(4), cfg.AP.MaxClients)
}

func TestParseConfigStaticMissingAddress(t *testing.T) {
	c := config.NewC()
	require.NoError(t, c.LoadString(`
interfaces:
  station:
    enabled: true
    ssid: upstream
    static:
      netmask: 255.255.255.0
`))

	_, err := ParseConfig(c)
	assert.Error(t, err)
}

func TestParseConfigBadAddress(t *testing.T) {
	c := config.NewC()
	require.NoError(t, c.LoadString(`
interfaces:
  ethernet:
    enabled: true
    static:
      address: not-an-ip
      netmask: 255.255.255.0
`))

	_, err := ParseConfig(c)
	assert.Error(t, err)
}
