// Package splitter partitions one physical keyboard's key matrix into
// several independent virtual HID keyboard endpoints, each with its own
// report ID, so the host sees multiple simultaneous keyboards instead of one.
package splitter

import (
	"fmt"
	"log/slog"
	"sync"
)

// Splitter owns all per-device report state, the position tracking table and
// the activation gate. Construct one at startup with New and keep it for the
// process lifetime; every entry point is safe for concurrent use, with one
// mutex treating each mutation (and the keepalive's read-and-transmit) as a
// single critical section.
type Splitter struct {
	mu         sync.Mutex
	classifier *Classifier
	reports    []Report
	// tracked remembers, per physical position, the key code last routed to
	// a device and not yet released. Zero means no press is outstanding.
	// The device is not remembered: the classifier is pure, so it agrees
	// between press and release, but the key code may be layer-shifted and
	// has to be read back rather than recomputed.
	tracked [MaxPositions]uint8
	active  bool
	tr      Transport
	logger  *slog.Logger
}

// New builds a Splitter for the given mapping. Reports are allocated once,
// with report IDs assigned as BaseID+index, and the gate starts active so all
// devices enumerate immediately.
func New(m Mapping, tr Transport, logger *slog.Logger) (*Splitter, error) {
	c, err := m.Classifier()
	if err != nil {
		return nil, fmt.Errorf("build classifier: %w", err)
	}
	if tr == nil {
		return nil, fmt.Errorf("nil transport")
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Splitter{
		classifier: c,
		reports:    make([]Report, m.Devices),
		active:     true,
		tr:         tr,
		logger:     logger,
	}
	for i := range s.reports {
		s.reports[i].ID = m.ReportID(i)
	}
	return s, nil
}

// DeviceCount returns the number of virtual devices.
func (s *Splitter) DeviceCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reports)
}

// Classify returns the virtual device index for a physical position.
func (s *Splitter) Classify(position uint16) uint8 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.classifier.Classify(position)
}

// Snapshot returns a copy of one device's current report.
func (s *Splitter) Snapshot(device uint8) (Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if int(device) >= len(s.reports) {
		return Report{}, ErrInvalidDevice
	}
	return s.reports[device], nil
}

// Press marks key as held on a device and transmits its report.
// Pressing an already-held key is a successful no-op. Returns ErrRollover
// when the device already holds MaxKeys keys; existing slots are untouched
// and the keystroke is dropped.
func (s *Splitter) Press(device, key uint8) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pressLocked(device, key)
}

func (s *Splitter) pressLocked(device, key uint8) error {
	if int(device) >= len(s.reports) {
		return ErrInvalidDevice
	}
	changed, ok := s.reports[device].press(key)
	if !ok {
		return ErrRollover
	}
	if changed {
		s.transmitLocked(device)
	}
	return nil
}

// Release removes key from a device and transmits its report. Releasing a
// key that is not down is a successful no-op; key-event streams double
// deliver at the boundary and that must not surface as an error.
func (s *Splitter) Release(device, key uint8) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.releaseLocked(device, key)
}

func (s *Splitter) releaseLocked(device, key uint8) error {
	if int(device) >= len(s.reports) {
		return ErrInvalidDevice
	}
	if s.reports[device].release(key) {
		s.transmitLocked(device)
	}
	return nil
}

// RegisterModifier ORs bits into a device's modifier bitmask and transmits.
func (s *Splitter) RegisterModifier(device, modifier uint8) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if int(device) >= len(s.reports) {
		return ErrInvalidDevice
	}
	s.reports[device].Modifiers |= modifier
	s.transmitLocked(device)
	return nil
}

// UnregisterModifier clears bits from a device's modifier bitmask and
// transmits.
func (s *Splitter) UnregisterModifier(device, modifier uint8) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if int(device) >= len(s.reports) {
		return ErrInvalidDevice
	}
	s.reports[device].Modifiers &^= modifier
	s.transmitLocked(device)
	return nil
}

// Clear zeroes one device's key slots, leaving its modifiers untouched, and
// transmits.
func (s *Splitter) Clear(device uint8) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if int(device) >= len(s.reports) {
		return ErrInvalidDevice
	}
	s.clearLocked(device)
	return nil
}

func (s *Splitter) clearLocked(device uint8) {
	s.reports[device].clearKeys()
	s.transmitLocked(device)
}

// ClearAll clears every device in ascending device order.
func (s *Splitter) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearAllLocked()
}

func (s *Splitter) clearAllLocked() {
	for i := range s.reports {
		s.clearLocked(uint8(i))
	}
}

// PositionPress routes a physical key press: classifies the position, records
// the routed key code for the later release, and presses it on the resolved
// device. While the gate is inactive the event is dropped (successfully).
func (s *Splitter) PositionPress(position uint16, key uint8) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if position >= MaxPositions {
		return ErrInvalidPosition
	}
	if !s.active {
		return nil
	}
	device := s.classifier.Classify(position)
	// A double press without an intervening release should not happen in a
	// well-formed stream; if it does, the newer key supersedes the tracked one.
	s.tracked[position] = key
	if err := s.pressLocked(device, key); err != nil {
		s.tracked[position] = 0
		return err
	}
	return nil
}

// PositionRelease routes a physical key release using the key code recorded
// at press time. A release with no outstanding press is a successful no-op,
// which covers releases arriving at startup or right after a state reset.
func (s *Splitter) PositionRelease(position uint16) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if position >= MaxPositions {
		return ErrInvalidPosition
	}
	key := s.tracked[position]
	if key == 0 {
		return nil
	}
	device := s.classifier.Classify(position)
	s.tracked[position] = 0
	return s.releaseLocked(device, key)
}

// Active reports whether the splitter is processing key events.
func (s *Splitter) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// SetActive flips the activation gate. Setting the current value is a no-op
// with no side effects. A real transition clears every device; transitioning
// to active additionally transmits one snapshot per device even though it is
// all-zero, so a freshly watching host learns of every endpoint immediately
// instead of waiting for the first keepalive tick.
func (s *Splitter) SetActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == active {
		return
	}
	s.active = active
	if active {
		s.logger.Info("splitter activated", "devices", len(s.reports))
	} else {
		s.logger.Info("splitter deactivated")
	}
	s.tracked = [MaxPositions]uint8{}
	s.clearAllLocked()
	if active {
		s.transmitAllLocked()
	}
}

// TransmitAll unconditionally retransmits every device's current report in
// ascending device order. The keepalive scheduler calls this on every tick.
func (s *Splitter) TransmitAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transmitAllLocked()
}

func (s *Splitter) transmitAllLocked() {
	for i := range s.reports {
		s.transmitLocked(uint8(i))
	}
}

// transmitLocked serializes one device's report and hands it to the
// transport. Transport failures are logged and swallowed: the wire is a
// best-effort projection of report state and converges on the next send.
func (s *Splitter) transmitLocked(device uint8) {
	r := s.reports[device]
	if err := s.tr.Transmit(r.ID, r.Encode()); err != nil {
		s.logger.Warn("transmit failed", "device", device, "report_id", r.ID, "error", err)
	}
}

// Reconfigure swaps the classifier for a new mapping without restarting.
// Reports are allocated once for the process lifetime, so the new mapping
// must keep the same device count and report IDs; anything else needs a
// restart. Held keys cannot be re-routed consistently across a table swap,
// so all devices are cleared and the tracking table reset first.
func (s *Splitter) Reconfigure(m Mapping) error {
	c, err := m.Classifier()
	if err != nil {
		return fmt.Errorf("build classifier: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.Devices != len(s.reports) {
		return fmt.Errorf("mapping declares %d devices, splitter has %d (restart required)", m.Devices, len(s.reports))
	}
	if m.ReportID(0) != s.reports[0].ID {
		return fmt.Errorf("mapping base report ID 0x%02X differs from 0x%02X (restart required)", m.ReportID(0), s.reports[0].ID)
	}
	s.tracked = [MaxPositions]uint8{}
	s.clearAllLocked()
	s.classifier = c
	s.logger.Info("classifier mapping reloaded", "devices", m.Devices)
	return nil
}
