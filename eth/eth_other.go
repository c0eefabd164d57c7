//go:build !linux
// +build !linux

package eth

import "github.com/sirupsen/logrus"

// NewDriver returns the platform ethernet driver. Without netlink there is
// nothing to probe, so ethernet bring-up reports zero devices.
func NewDriver(l *logrus.Logger) Driver {
	return &nullDriver{}
}

type nullDriver struct{}

func (d *nullDriver) Probe() ([]Device, error) { return nil, nil }
func (d *nullDriver) Release() error           { return nil }
