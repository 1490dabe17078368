package splitter

// MaxPositions bounds the physical key positions the splitter accepts.
// Large enough for any split keyboard matrix this is meant to front.
const MaxPositions = 128

// MaxDevices bounds how many virtual devices a mapping may declare.
const MaxDevices = 8

// Classifier maps physical key positions to virtual device indices.
//
// It is a pure total function over [0, MaxPositions): every position resolves
// to exactly one device, and positions no mapping rule claims resolve to the
// catch-all device so an unrecognized position never drops a keystroke. The
// groupings are product-defined data, not control flow; build one from a
// Mapping rather than hand-rolling conditionals.
type Classifier struct {
	table    [MaxPositions]uint8
	devices  int
	catchAll uint8
}

// Classify returns the virtual device index for a physical position.
// Deterministic and side-effect free; out-of-table positions go to the
// catch-all device.
func (c *Classifier) Classify(position uint16) uint8 {
	if int(position) >= len(c.table) {
		return c.catchAll
	}
	return c.table[position]
}

// DeviceCount returns how many virtual devices this classifier routes to.
func (c *Classifier) DeviceCount() int {
	return c.devices
}

// CatchAll returns the device index unclaimed positions resolve to.
func (c *Classifier) CatchAll() uint8 {
	return c.catchAll
}

// Table returns a copy of the full position table, for inspection tooling.
func (c *Classifier) Table() []uint8 {
	out := make([]uint8, len(c.table))
	copy(out, c.table[:])
	return out
}
