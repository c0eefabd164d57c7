//go:build !linux
// +build !linux

package netif

import "github.com/sirupsen/logrus"

// NewFactory returns the platform factory. Without a netlink capable kernel
// the in-memory handles are all we can offer.
func NewFactory(l *logrus.Logger) Factory {
	return NewMemoryFactory()
}
