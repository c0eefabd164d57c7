package util

import (
	"encoding/binary"
	"net"
)

// Ip2int returns the big endian uint32 form of an IPv4 address. IPv4-in-IPv6
// representations are unwrapped first. A nil or non-v4 ip yields 0.
func Ip2int(ip net.IP) uint32 {
	v4 := ip.To4()
	if v4 == nil {
		return 0
	}
	return binary.BigEndian.Uint32(v4)
}

// Int2ip is the inverse of Ip2int. 0 yields nil rather than 0.0.0.0 so that
// "no address" round-trips cleanly.
func Int2ip(nn uint32) net.IP {
	if nn == 0 {
		return nil
	}
	ip := make(net.IP, net.IPv4len)
	binary.BigEndian.PutUint32(ip, nn)
	return ip
}
