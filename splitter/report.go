package splitter

// MaxKeys is the number of key slots each virtual device can report at once.
// Keys pressed beyond this on a single device are rejected with ErrRollover.
const MaxKeys = 18

// ReportSize is the wire size of one report:
// report ID, modifier bitmask, reserved byte, MaxKeys key codes.
const ReportSize = 3 + MaxKeys

// Report holds the current HID keyboard state of one virtual device.
//
// Occupied key slots are contiguous from index 0, a slot value of zero always
// means "empty", and no key code appears twice. Reports are created once at
// startup and mutated in place for the process lifetime.
type Report struct {
	ID        uint8
	Modifiers uint8
	Keys      [MaxKeys]uint8
}

// press marks key as held. Pressing a key that is already down is a no-op
// with changed=false. ok is false when every slot is taken.
func (r *Report) press(key uint8) (changed, ok bool) {
	for i := range r.Keys {
		if r.Keys[i] == key {
			return false, true
		}
		if r.Keys[i] == 0 {
			r.Keys[i] = key
			return true, true
		}
	}
	return false, false
}

// release removes key and compacts the slot sequence so occupied slots stay
// contiguous. Releasing a key that is not down is a no-op.
func (r *Report) release(key uint8) bool {
	if key == 0 {
		return false
	}
	for i := range r.Keys {
		if r.Keys[i] != key {
			continue
		}
		copy(r.Keys[i:], r.Keys[i+1:])
		r.Keys[MaxKeys-1] = 0
		return true
	}
	return false
}

func (r *Report) clearKeys() {
	r.Keys = [MaxKeys]uint8{}
}

// Encode builds the wire report.
//
// Report layout (ReportSize bytes):
//
//	Byte 0: Report ID
//	Byte 1: Modifiers (8 bits)
//	Byte 2: Reserved (0x00)
//	Bytes 3+: Key codes, zero-padded trailing
func (r Report) Encode() []byte {
	b := make([]byte, ReportSize)
	b[0] = r.ID
	b[1] = r.Modifiers
	b[2] = 0x00 // Reserved
	copy(b[3:], r.Keys[:])
	return b
}
