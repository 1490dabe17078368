package cmd

import (
	"fmt"
	"log/slog"

	"splithid/splitter"
)

// MappingCommand groups mapping inspection subcommands.
type MappingCommand struct {
	Show  MappingShow  `cmd:"" help:"Print the resolved position-to-device table"`
	Check MappingCheck `cmd:"" help:"Validate a mapping file"`
}

// MappingShow prints the fully resolved classifier table for a mapping file,
// collapsing runs of positions routed to the same device.
type MappingShow struct {
	File string `arg:"" optional:"" help:"Mapping file; built-in default when omitted"`
}

func (c *MappingShow) Run() error {
	m, err := loadOrDefault(c.File)
	if err != nil {
		return err
	}
	classifier, err := m.Classifier()
	if err != nil {
		return err
	}

	fmt.Printf("devices: %d, catch-all: %d, report IDs: 0x%02X..0x%02X\n",
		m.Devices, classifier.CatchAll(), m.ReportID(0), m.ReportID(m.Devices-1))

	table := classifier.Table()
	start := 0
	for i := 1; i <= len(table); i++ {
		if i < len(table) && table[i] == table[start] {
			continue
		}
		dev := table[start]
		note := ""
		if dev == classifier.CatchAll() {
			note = " (catch-all)"
		}
		if start == i-1 {
			fmt.Printf("position %3d       -> device %d (report 0x%02X)%s\n", start, dev, m.ReportID(int(dev)), note)
		} else {
			fmt.Printf("positions %3d-%3d  -> device %d (report 0x%02X)%s\n", start, i-1, dev, m.ReportID(int(dev)), note)
		}
		start = i
	}
	return nil
}

// MappingCheck validates a mapping file and reports what it declares.
type MappingCheck struct {
	File string `arg:"" help:"Mapping file to validate"`
}

func (c *MappingCheck) Run(logger *slog.Logger) error {
	m, err := splitter.LoadMapping(c.File)
	if err != nil {
		return err
	}
	logger.Info("mapping is valid",
		"file", c.File,
		"devices", m.Devices,
		"catch_all", m.CatchAll,
		"base_report_id", fmt.Sprintf("0x%02X", m.ReportID(0)))
	return nil
}

func loadOrDefault(path string) (splitter.Mapping, error) {
	if path == "" {
		return splitter.DefaultMapping(), nil
	}
	return splitter.LoadMapping(path)
}
