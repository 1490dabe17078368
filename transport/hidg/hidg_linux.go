// Package hidg delivers reports to a Linux USB gadget HID function file
// (/dev/hidgN). The gadget's report descriptor must declare one keyboard
// collection per report ID; configuring the gadget itself is out of scope
// here.
package hidg

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Transport writes reports to a HID gadget function file.
type Transport struct {
	path string
	fd   int
}

// Open opens the gadget file non-blocking so a stalled endpoint (host
// suspended, cable pulled) fails a transmit instead of wedging the caller;
// the keepalive resends soon enough anyway.
func Open(path string) (*Transport, error) {
	fd, err := unix.Open(path, unix.O_WRONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &Transport{path: path, fd: fd}, nil
}

// Transmit writes one encoded report. The report ID is already the leading
// byte of the buffer, which is exactly what the gadget layer expects.
func (t *Transport) Transmit(reportID uint8, report []byte) error {
	n, err := unix.Write(t.fd, report)
	if err != nil {
		return fmt.Errorf("write %s: %w", t.path, err)
	}
	if n != len(report) {
		return fmt.Errorf("short write to %s: %d of %d bytes", t.path, n, len(report))
	}
	return nil
}

// Close closes the gadget file.
func (t *Transport) Close() error {
	return unix.Close(t.fd)
}
