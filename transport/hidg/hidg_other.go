//go:build !linux

package hidg

import "errors"

// Transport is only available on Linux, where the kernel exposes USB gadget
// HID function files.
type Transport struct{}

func Open(path string) (*Transport, error) {
	return nil, errors.New("hidg transport requires linux")
}

func (t *Transport) Transmit(reportID uint8, report []byte) error {
	return errors.New("hidg transport requires linux")
}

func (t *Transport) Close() error { return nil }
