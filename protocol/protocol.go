// Package protocol defines the binary wire format key-event sources use to
// feed a running splitter daemon.
//
// Every frame starts with a one-byte frame type; all integers are big-endian.
package protocol

import (
	"encoding"
	"encoding/binary"
	"fmt"
	"io"
)

// Frame types.
const (
	FrameKeyEvent   = 0x01
	FrameLayerState = 0x02
)

// KeyEventSize is the wire size of a key event frame, type byte included.
const KeyEventSize = 1 + 2 + 1 + 1 + 8

// LayerStateSize is the wire size of a layer state frame, type byte included.
const LayerStateSize = 1 + 4

// KeyEvent is one position state change from the key-event source. The key
// code carries whatever the upstream keymap resolved for the position at
// press time; it is meaningless on release frames and transmitted as zero.
type KeyEvent struct {
	Position  uint16
	Pressed   bool
	Key       uint8
	Timestamp int64 // milliseconds, source clock
}

// LayerState is the source's full layer bitmask, sent whenever it changes.
type LayerState struct {
	State uint32
}

// MarshalBinary encodes a key event frame.
//
// Wire format (13 bytes):
//
//	Byte 0: Frame type (0x01)
//	Bytes 1-2: Position
//	Byte 3: Pressed (0x00 or 0x01)
//	Byte 4: Key code
//	Bytes 5-12: Timestamp
func (e KeyEvent) MarshalBinary() ([]byte, error) {
	b := make([]byte, KeyEventSize)
	b[0] = FrameKeyEvent
	binary.BigEndian.PutUint16(b[1:3], e.Position)
	if e.Pressed {
		b[3] = 0x01
	}
	b[4] = e.Key
	binary.BigEndian.PutUint64(b[5:13], uint64(e.Timestamp))
	return b, nil
}

// UnmarshalBinary decodes a key event frame body (everything after the type
// byte).
func (e *KeyEvent) UnmarshalBinary(data []byte) error {
	if len(data) < KeyEventSize-1 {
		return io.ErrUnexpectedEOF
	}
	e.Position = binary.BigEndian.Uint16(data[0:2])
	e.Pressed = data[2] != 0
	e.Key = data[3]
	e.Timestamp = int64(binary.BigEndian.Uint64(data[4:12]))
	return nil
}

// MarshalBinary encodes a layer state frame.
//
// Wire format (5 bytes):
//
//	Byte 0: Frame type (0x02)
//	Bytes 1-4: Layer bitmask
func (l LayerState) MarshalBinary() ([]byte, error) {
	b := make([]byte, LayerStateSize)
	b[0] = FrameLayerState
	binary.BigEndian.PutUint32(b[1:5], l.State)
	return b, nil
}

// UnmarshalBinary decodes a layer state frame body (everything after the
// type byte).
func (l *LayerState) UnmarshalBinary(data []byte) error {
	if len(data) < LayerStateSize-1 {
		return io.ErrUnexpectedEOF
	}
	l.State = binary.BigEndian.Uint32(data[0:4])
	return nil
}

// WriteFrame writes one frame to w.
func WriteFrame(w io.Writer, frame encoding.BinaryMarshaler) error {
	b, err := frame.MarshalBinary()
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// ReadFrame reads the next frame from r, returning a KeyEvent or LayerState.
// io.EOF is returned untouched on a clean connection close between frames.
func ReadFrame(r io.Reader) (any, error) {
	var kind [1]byte
	if _, err := io.ReadFull(r, kind[:]); err != nil {
		return nil, err
	}
	switch kind[0] {
	case FrameKeyEvent:
		body := make([]byte, KeyEventSize-1)
		if _, err := io.ReadFull(r, body); err != nil {
			return nil, fmt.Errorf("read key event: %w", err)
		}
		var e KeyEvent
		if err := e.UnmarshalBinary(body); err != nil {
			return nil, err
		}
		return e, nil
	case FrameLayerState:
		body := make([]byte, LayerStateSize-1)
		if _, err := io.ReadFull(r, body); err != nil {
			return nil, fmt.Errorf("read layer state: %w", err)
		}
		var l LayerState
		if err := l.UnmarshalBinary(body); err != nil {
			return nil, err
		}
		return l, nil
	default:
		return nil, fmt.Errorf("unknown frame type 0x%02X", kind[0])
	}
}
