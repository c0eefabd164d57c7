package wifi

import "errors"

// NullDriver satisfies Driver on platforms without a radio integration.
// Everything succeeds and nothing ever happens, mirroring a radio that is
// present but permanently idle.
type NullDriver struct {
	cb func(Event)
}

var ErrNoRadio = errors.New("wifi: no radio available")

func NewNullDriver() *NullDriver {
	return &NullDriver{}
}

func (d *NullDriver) Init() error                                { return nil }
func (d *NullDriver) Deinit() error                              { return nil }
func (d *NullDriver) SetMode(m Mode) error                       { return nil }
func (d *NullDriver) ConfigureStation(s StationSettings) error   { return nil }
func (d *NullDriver) ConfigureAccessPoint(s AccessPointSettings) error {
	return nil
}
func (d *NullDriver) Start() error   { return nil }
func (d *NullDriver) Stop() error    { return nil }
func (d *NullDriver) Connect() error { return nil }

func (d *NullDriver) Stations() ([]Station, error) {
	return nil, ErrNoRadio
}

func (d *NullDriver) Subscribe(cb func(Event)) {
	d.cb = cb
}
