// Package stream delivers reports over a byte stream, framed so a remote
// HID bridge can demultiplex them by report ID.
package stream

import (
	"fmt"
	"net"
	"sync"
)

// Transport frames reports onto a net.Conn.
//
// Frame format:
//
//	Byte 0: Report ID
//	Byte 1: Payload length
//	Bytes 2+: Payload (the encoded report, ID byte included)
type Transport struct {
	mu   sync.Mutex
	conn net.Conn
}

// New wraps an established connection. Wrap the conn with Seal first when a
// pre-shared key is in use.
func New(conn net.Conn) *Transport {
	return &Transport{conn: conn}
}

// Dial connects to a report sink. A psk of non-zero length seals the
// connection with an AEAD before any report crosses it.
func Dial(network, addr string, psk []byte) (*Transport, error) {
	conn, err := net.Dial(network, addr)
	if err != nil {
		return nil, fmt.Errorf("dial report sink: %w", err)
	}
	if len(psk) > 0 {
		sealed, err := Seal(conn, psk)
		if err != nil {
			conn.Close()
			return nil, err
		}
		conn = sealed
	}
	return New(conn), nil
}

// Transmit writes one framed report. Serialized internally so a keepalive
// tick and a key-event mutation never interleave partial frames.
func (t *Transport) Transmit(reportID uint8, report []byte) error {
	if len(report) > 0xFF {
		return fmt.Errorf("report too large: %d bytes", len(report))
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	frame := make([]byte, 0, 2+len(report))
	frame = append(frame, reportID, uint8(len(report)))
	frame = append(frame, report...)
	if _, err := t.conn.Write(frame); err != nil {
		return fmt.Errorf("write report frame: %w", err)
	}
	return nil
}

// Close closes the underlying connection.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn.Close()
}
