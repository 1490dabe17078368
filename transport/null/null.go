// Package null provides a transport that records transmissions instead of
// delivering them, for tests and dry runs.
package null

import "sync"

// Transmission is one recorded report delivery.
type Transmission struct {
	ReportID uint8
	Report   []byte
}

// Transport records every transmit. The zero value is ready to use.
type Transport struct {
	mu   sync.Mutex
	sent []Transmission
	err  error
}

func New() *Transport {
	return &Transport{}
}

// Transmit records the report and returns the configured error, if any.
func (t *Transport) Transmit(reportID uint8, report []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	buf := make([]byte, len(report))
	copy(buf, report)
	t.sent = append(t.sent, Transmission{ReportID: reportID, Report: buf})
	return t.err
}

// Transmissions returns a copy of everything recorded so far.
func (t *Transport) Transmissions() []Transmission {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Transmission, len(t.sent))
	copy(out, t.sent)
	return out
}

// Reset drops all recorded transmissions.
func (t *Transport) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent = nil
}

// FailWith makes subsequent transmits return err (nil restores success).
// Transmissions are still recorded, mirroring a transport that accepts the
// buffer but fails to put it on the wire.
func (t *Transport) FailWith(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.err = err
}
