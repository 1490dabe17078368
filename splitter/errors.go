package splitter

import "errors"

var (
	// ErrInvalidDevice is returned when a device index is outside [0, DeviceCount).
	ErrInvalidDevice = errors.New("device index out of range")

	// ErrInvalidPosition is returned when a physical position is outside
	// [0, MaxPositions).
	ErrInvalidPosition = errors.New("position out of range")

	// ErrRollover is returned when more than MaxKeys keys are held on one
	// virtual device at the same time. The offending keystroke is dropped;
	// retrying is meaningless for a transient hardware event.
	ErrRollover = errors.New("key slots exhausted")
)
