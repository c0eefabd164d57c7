package netman

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net"

	"github.com/nearhop/netman/config"
	"github.com/nearhop/netman/util"
)

// Limits carried over from the firmware the persisted layout is shared with:
// ssids are at most 31 bytes, passwords at most 63.
const (
	maxSSIDLen     = 31
	maxPasswordLen = 63
)

// StaticIP is an explicit address assignment, used instead of automatic
// configuration when present. DNS servers are optional.
type StaticIP struct {
	Address net.IP
	Netmask net.IP
	Gateway net.IP
	DNS1    net.IP
	DNS2    net.IP
}

type StationConfig struct {
	Interface string
	SSID      string
	Password  string
	Static    *StaticIP
}

type AccessPointConfig struct {
	Interface  string
	SSID       string
	Password   string
	Channel    uint8
	MaxClients uint8
}

type EthernetConfig struct {
	Static *StaticIP
}

// Config selects which interfaces a run brings up and how. It is consumed at
// start time; changing it requires a full stop and start cycle.
type Config struct {
	STAEnabled      bool
	APEnabled       bool
	EthernetEnabled bool

	STA      StationConfig
	AP       AccessPointConfig
	Ethernet EthernetConfig
}

func (c *Config) Validate() error {
	if c.STAEnabled {
		if c.STA.SSID == "" {
			return errors.New("station enabled without an ssid")
		}
		if len(c.STA.SSID) > maxSSIDLen || len(c.STA.Password) > maxPasswordLen {
			return fmt.Errorf("station ssid or password too long (max %d/%d)", maxSSIDLen, maxPasswordLen)
		}
	}
	if c.APEnabled {
		if c.AP.SSID == "" {
			return errors.New("access point enabled without an ssid")
		}
		if len(c.AP.SSID) > maxSSIDLen || len(c.AP.Password) > maxPasswordLen {
			return fmt.Errorf("access point ssid or password too long (max %d/%d)", maxSSIDLen, maxPasswordLen)
		}
	}
	return nil
}

// ParseConfig builds a Config from the yaml settings tree. Absent keys fall
// back to compiled-in defaults.
func ParseConfig(c *config.C) (*Config, error) {
	out := &Config{
		STAEnabled:      c.GetBool("interfaces.station.enabled", false),
		APEnabled:       c.GetBool("interfaces.access_point.enabled", false),
		EthernetEnabled: c.GetBool("interfaces.ethernet.enabled", false),
	}

	out.STA = StationConfig{
		Interface: c.GetString("interfaces.station.interface", "wlan0"),
		SSID:      c.GetString("interfaces.station.ssid", ""),
		Password:  c.GetString("interfaces.station.password", ""),
	}
	static, err := parseStatic(c, "interfaces.station.static")
	if err != nil {
		return nil, err
	}
	out.STA.Static = static

	out.AP = AccessPointConfig{
		Interface:  c.GetString("interfaces.access_point.interface", "uap0"),
		SSID:       c.GetString("interfaces.access_point.ssid", ""),
		Password:   c.GetString("interfaces.access_point.password", ""),
		Channel:    uint8(c.GetInt("interfaces.access_point.channel", 1)),
		MaxClients: uint8(c.GetInt("interfaces.access_point.max_clients", 4)),
	}

	static, err = parseStatic(c, "interfaces.ethernet.static")
	if err != nil {
		return nil, err
	}
	out.Ethernet.Static = static

	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

func parseStatic(c *config.C, key string) (*StaticIP, error) {
	if !c.IsSet(key) {
		return nil, nil
	}

	s := &StaticIP{}
	fields := []struct {
		name string
		out  *net.IP
		must bool
	}{
		{"address", &s.Address, true},
		{"netmask", &s.Netmask, true},
		{"gateway", &s.Gateway, false},
		{"dns1", &s.DNS1, false},
		{"dns2", &s.DNS2, false},
	}

	for _, f := range fields {
		raw := c.GetString(key+"."+f.name, "")
		if raw == "" {
			if f.must {
				return nil, fmt.Errorf("%s.%s is required for a static assignment", key, f.name)
			}
			continue
		}
		ip := net.ParseIP(raw)
		if ip == nil || ip.To4() == nil {
			return nil, fmt.Errorf("%s.%s is not a valid IPv4 address: %s", key, f.name, raw)
		}
		*f.out = ip.To4()
	}
	return s, nil
}

/*
Persisted blob layout, fixed size so a length mismatch is detectable as
corruption rather than silently producing a partial config:

	  0  station/access point/ethernet enabled flags (1 byte each)
	  3  station: ssid[32] password[64] staticflag ip mask gw dns1 dns2
	120  access point: ssid[32] password[64] channel maxclients
	218  ethernet: staticflag ip mask gw dns1 dns2
	239  end
*/
const configBlobSize = 239

// ErrConfigSize reports a persisted blob whose length does not match the
// expected layout. The stored entry is treated as corrupt, never partially
// decoded.
var ErrConfigSize = errors.New("netman: persisted config size mismatch")

func (c *Config) MarshalBlob() []byte {
	b := make([]byte, configBlobSize)

	putBool(b, 0, c.STAEnabled)
	putBool(b, 1, c.APEnabled)
	putBool(b, 2, c.EthernetEnabled)

	putString(b, 3, 32, c.STA.SSID)
	putString(b, 35, 64, c.STA.Password)
	putStatic(b, 99, c.STA.Static)

	putString(b, 120, 32, c.AP.SSID)
	putString(b, 152, 64, c.AP.Password)
	b[216] = c.AP.Channel
	b[217] = c.AP.MaxClients

	putStatic(b, 218, c.Ethernet.Static)
	return b
}

func UnmarshalBlob(b []byte) (*Config, error) {
	if len(b) != configBlobSize {
		return nil, ErrConfigSize
	}

	c := &Config{
		STAEnabled:      b[0] != 0,
		APEnabled:       b[1] != 0,
		EthernetEnabled: b[2] != 0,
	}

	c.STA.SSID = getString(b, 3, 32)
	c.STA.Password = getString(b, 35, 64)
	c.STA.Static = getStatic(b, 99)
	c.STA.Interface = "wlan0"

	c.AP.SSID = getString(b, 120, 32)
	c.AP.Password = getString(b, 152, 64)
	c.AP.Channel = b[216]
	c.AP.MaxClients = b[217]
	c.AP.Interface = "uap0"

	c.Ethernet.Static = getStatic(b, 218)
	return c, nil
}

func putBool(b []byte, off int, v bool) {
	if v {
		b[off] = 1
	}
}

func putString(b []byte, off, size int, s string) {
	copy(b[off:off+size], s)
}

func getString(b []byte, off, size int) string {
	raw := b[off : off+size]
	for i, c := range raw {
		if c == 0 {
			return string(raw[:i])
		}
	}
	return string(raw)
}

func putStatic(b []byte, off int, s *StaticIP) {
	if s == nil {
		return
	}
	b[off] = 1
	binary.BigEndian.PutUint32(b[off+1:], util.Ip2int(s.Address))
	binary.BigEndian.PutUint32(b[off+5:], util.Ip2int(s.Netmask))
	binary.BigEndian.PutUint32(b[off+9:], util.Ip2int(s.Gateway))
	binary.BigEndian.PutUint32(b[off+13:], util.Ip2int(s.DNS1))
	binary.BigEndian.PutUint32(b[off+17:], util.Ip2int(s.DNS2))
}

func getStatic(b []byte, off int) *StaticIP {
	if b[off] == 0 {
		return nil
	}
	return &StaticIP{
		Address: util.Int2ip(binary.BigEndian.Uint32(b[off+1:])),
		Netmask: util.Int2ip(binary.BigEndian.Uint32(b[off+5:])),
		Gateway: util.Int2ip(binary.BigEndian.Uint32(b[off+9:])),
		DNS1:    util.Int2ip(binary.BigEndian.Uint32(b[off+13:])),
		DNS2:    util.Int2ip(binary.BigEndian.Uint32(b[off+17:])),
	}
}
