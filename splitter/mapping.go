package splitter

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml"
	yaml "gopkg.in/yaml.v3"
)

// DefaultBaseID is the first report ID handed out when a mapping does not
// pick one. Chosen to stay clear of the report IDs a conventional keyboard
// interface already uses.
const DefaultBaseID = 0x10

// Mapping declares how physical positions are grouped onto virtual devices.
// It is plain data so grouping changes are config edits, not code edits.
type Mapping struct {
	// Devices is the number of virtual keyboard endpoints, in [1, MaxDevices].
	Devices int `json:"devices" yaml:"devices" toml:"devices"`

	// BaseID is the report ID of device 0; device i reports as BaseID+i.
	// Zero means DefaultBaseID.
	BaseID uint8 `json:"base_id" yaml:"base_id" toml:"base_id"`

	// CatchAll is the device index positions outside every group resolve to.
	CatchAll uint8 `json:"catch_all" yaml:"catch_all" toml:"catch_all"`

	// Groups claim explicit positions for a device.
	Groups []Group `json:"groups" yaml:"groups" toml:"groups"`
}

// Group routes a set of positions to one device, as single positions and/or
// inclusive spans.
type Group struct {
	Device    uint8    `json:"device" yaml:"device" toml:"device"`
	Positions []uint16 `json:"positions,omitempty" yaml:"positions,omitempty" toml:"positions,omitempty"`
	Spans     []Span   `json:"spans,omitempty" yaml:"spans,omitempty" toml:"spans,omitempty"`
}

// Span is an inclusive position range [From, To].
type Span struct {
	From uint16 `json:"from" yaml:"from" toml:"from"`
	To   uint16 `json:"to" yaml:"to" toml:"to"`
}

// DefaultMapping returns the built-in grouping for a 42-key split layout:
// the whole left half on device 0, three two-key clusters of the right half
// on their own devices, and everything else on a catch-all fifth device.
func DefaultMapping() Mapping {
	return Mapping{
		Devices:  5,
		BaseID:   DefaultBaseID,
		CatchAll: 4,
		Groups: []Group{
			{Device: 0, Spans: []Span{{From: 0, To: 17}}},
			{Device: 1, Positions: []uint16{18, 19}},
			{Device: 2, Positions: []uint16{24, 25}},
			{Device: 3, Positions: []uint16{30, 31}},
		},
	}
}

// Validate checks the mapping against the splitter's hard bounds.
func (m Mapping) Validate() error {
	if m.Devices < 1 || m.Devices > MaxDevices {
		return fmt.Errorf("devices must be in [1, %d], got %d", MaxDevices, m.Devices)
	}
	if int(m.CatchAll) >= m.Devices {
		return fmt.Errorf("catch_all device %d out of range [0, %d)", m.CatchAll, m.Devices)
	}
	claimed := make(map[uint16]uint8)
	claim := func(pos uint16, dev uint8) error {
		if pos >= MaxPositions {
			return fmt.Errorf("position %d out of range [0, %d)", pos, MaxPositions)
		}
		if prev, ok := claimed[pos]; ok && prev != dev {
			return fmt.Errorf("position %d claimed by both device %d and device %d", pos, prev, dev)
		}
		claimed[pos] = dev
		return nil
	}
	for _, g := range m.Groups {
		if int(g.Device) >= m.Devices {
			return fmt.Errorf("group device %d out of range [0, %d)", g.Device, m.Devices)
		}
		for _, p := range g.Positions {
			if err := claim(p, g.Device); err != nil {
				return err
			}
		}
		for _, s := range g.Spans {
			if s.From > s.To {
				return fmt.Errorf("span %d-%d is inverted", s.From, s.To)
			}
			for p := s.From; p <= s.To; p++ {
				if err := claim(p, g.Device); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// Classifier builds the position table for this mapping. The table covers
// every position in [0, MaxPositions); unclaimed positions get the catch-all
// device.
func (m Mapping) Classifier() (*Classifier, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	c := &Classifier{devices: m.Devices, catchAll: m.CatchAll}
	for i := range c.table {
		c.table[i] = m.CatchAll
	}
	for _, g := range m.Groups {
		for _, p := range g.Positions {
			c.table[p] = g.Device
		}
		for _, s := range g.Spans {
			for p := s.From; p <= s.To; p++ {
				c.table[p] = g.Device
			}
		}
	}
	return c, nil
}

// ReportID returns the wire report ID for a device index under this mapping.
func (m Mapping) ReportID(device int) uint8 {
	base := m.BaseID
	if base == 0 {
		base = DefaultBaseID
	}
	return base + uint8(device)
}

// LoadMapping reads a mapping file, picking the decoder by extension
// (.yaml/.yml, .toml, anything else JSON).
func LoadMapping(path string) (Mapping, error) {
	var m Mapping
	data, err := os.ReadFile(path)
	if err != nil {
		return m, fmt.Errorf("read mapping: %w", err)
	}
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &m)
	case ".toml":
		err = toml.Unmarshal(data, &m)
	default:
		err = json.Unmarshal(data, &m)
	}
	if err != nil {
		return m, fmt.Errorf("decode mapping %s: %w", path, err)
	}
	if err := m.Validate(); err != nil {
		return m, fmt.Errorf("invalid mapping %s: %w", path, err)
	}
	return m, nil
}
